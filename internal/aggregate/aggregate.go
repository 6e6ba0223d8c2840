// Package aggregate assembles the final match set of a diff.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/coral-mesh/bindiff/internal/model"
)

// Build assembles the match set from the accepted results of every phase.
// Results keep phase order; within a phase they are ordered by A address.
// Functions of a or b that no result pairs are listed as unmatched, in
// address order.
func Build(a, b *model.Snapshot, results []model.MatchResult, phases []model.PhaseStats) *model.MatchSet {
	out := &model.MatchSet{
		Results: slices.Clone(results),
	}
	slices.SortStableFunc(out.Results, func(x, y model.MatchResult) int {
		if c := cmp.Compare(x.Type.Rank(), y.Type.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(x.A.Address(), y.A.Address())
	})

	matchedA := make(map[*model.Function]bool, len(results))
	matchedB := make(map[*model.Function]bool, len(results))
	for _, r := range out.Results {
		matchedA[r.A] = true
		matchedB[r.B] = true
	}
	out.UnmatchedA = unmatched(a, matchedA)
	out.UnmatchedB = unmatched(b, matchedB)

	out.Stats = Summarize(out.Results, size(a), size(b))
	out.Stats.Phases = slices.Clone(phases)
	return out
}

// Summarize computes the per-type and overall statistics of results.
// OverallSimilarity is the summed similarity of all results divided by the
// larger snapshot size, 0 when both are empty.
func Summarize(results []model.MatchResult, totalA, totalB int) model.Stats {
	st := model.Stats{
		TotalA:  totalA,
		TotalB:  totalB,
		Matched: len(results),
		PerType: make(map[model.MatchType]model.TypeStats, len(model.MatchTypes())),
	}
	for _, t := range model.MatchTypes() {
		st.PerType[t] = model.TypeStats{}
	}

	var sum float64
	for _, r := range results {
		ts := st.PerType[r.Type]
		ts.Count++
		ts.AvgSimilarity += r.Similarity
		ts.AvgConfidence += r.Confidence
		st.PerType[r.Type] = ts
		sum += r.Similarity
	}
	for t, ts := range st.PerType {
		if ts.Count > 0 {
			ts.AvgSimilarity /= float64(ts.Count)
			ts.AvgConfidence /= float64(ts.Count)
			st.PerType[t] = ts
		}
	}

	if n := max(totalA, totalB); n > 0 {
		st.OverallSimilarity = sum / float64(n)
	}
	return st
}

func unmatched(s *model.Snapshot, matched map[*model.Function]bool) []*model.Function {
	if s == nil {
		return nil
	}
	var out []*model.Function
	for _, f := range s.Functions() {
		if !matched[f] {
			out = append(out, f)
		}
	}
	return out
}

func size(s *model.Snapshot) int {
	if s == nil {
		return 0
	}
	return s.Len()
}
