package diff

import (
	"fmt"

	"github.com/coral-mesh/bindiff/internal/model"
)

// MatchRow is one matched pair as printed by the diff command.
type MatchRow struct {
	AddressA   string          `json:"address_a" yaml:"address_a" header:"ADDRESS A"`
	NameA      string          `json:"name_a,omitempty" yaml:"name_a,omitempty" header:"NAME A"`
	AddressB   string          `json:"address_b" yaml:"address_b" header:"ADDRESS B"`
	NameB      string          `json:"name_b,omitempty" yaml:"name_b,omitempty" header:"NAME B"`
	Type       model.MatchType `json:"type" yaml:"type" header:"TYPE"`
	Similarity float64         `json:"similarity" yaml:"similarity" header:"SIMILARITY"`
	Confidence float64         `json:"confidence" yaml:"confidence" header:"CONFIDENCE"`

	Details model.MatchDetails `json:"details" yaml:"details"`
}

// FunctionRow is one unmatched function.
type FunctionRow struct {
	Side         string `json:"side" yaml:"side" header:"SIDE"`
	Address      string `json:"address" yaml:"address" header:"ADDRESS"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty" header:"NAME"`
	Blocks       int    `json:"blocks" yaml:"blocks" header:"BLOCKS"`
	Instructions int    `json:"instructions" yaml:"instructions" header:"INSTRUCTIONS"`
}

// Report is the structured output of a diff.
type Report struct {
	BinaryA    string        `json:"binary_a" yaml:"binary_a"`
	BinaryB    string        `json:"binary_b" yaml:"binary_b"`
	Stats      model.Stats   `json:"stats" yaml:"stats"`
	Matches    []MatchRow    `json:"matches" yaml:"matches"`
	UnmatchedA []FunctionRow `json:"unmatched_a" yaml:"unmatched_a"`
	UnmatchedB []FunctionRow `json:"unmatched_b" yaml:"unmatched_b"`
	Rejected   []string      `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// NewReport flattens a match set.
func NewReport(a, b *model.Snapshot, set *model.MatchSet) *Report {
	r := &Report{
		BinaryA:    a.ID(),
		BinaryB:    b.ID(),
		Stats:      set.Stats,
		Matches:    make([]MatchRow, 0, len(set.Results)),
		UnmatchedA: functionRows("a", set.UnmatchedA),
		UnmatchedB: functionRows("b", set.UnmatchedB),
	}
	for _, m := range set.Results {
		r.Matches = append(r.Matches, MatchRow{
			AddressA:   hex(m.A.Address()),
			NameA:      m.A.Name(),
			AddressB:   hex(m.B.Address()),
			NameB:      m.B.Name(),
			Type:       m.Type,
			Similarity: m.Similarity,
			Confidence: m.Confidence,
			Details:    m.Details,
		})
	}
	for _, s := range []*model.Snapshot{a, b} {
		for _, rej := range s.Rejected() {
			r.Rejected = append(r.Rejected, fmt.Sprintf("%s: %s", s.ID(), rej.Error()))
		}
	}
	return r
}

func functionRows(side string, fns []*model.Function) []FunctionRow {
	rows := make([]FunctionRow, 0, len(fns))
	for _, f := range fns {
		c := f.Counts()
		rows = append(rows, FunctionRow{
			Side:         side,
			Address:      hex(f.Address()),
			Name:         f.Name(),
			Blocks:       c.Blocks,
			Instructions: c.Instructions,
		})
	}
	return rows
}

func hex(addr uint64) string {
	return fmt.Sprintf("0x%x", addr)
}
