package model

import "time"

// MatchType names the phase that produced a match, in phase order.
type MatchType string

// Match types, one per phase.
const (
	MatchExact      MatchType = "exact"
	MatchName       MatchType = "name"
	MatchMDIndex    MatchType = "md-index"
	MatchSPP        MatchType = "spp"
	MatchStructural MatchType = "structural"
	MatchFuzzy      MatchType = "fuzzy"
)

// MatchTypes lists every match type in phase order.
func MatchTypes() []MatchType {
	return []MatchType{MatchExact, MatchName, MatchMDIndex, MatchSPP, MatchStructural, MatchFuzzy}
}

// Rank returns the phase position of t (0 for exact), or -1 if unknown.
func (t MatchType) Rank() int {
	for i, m := range MatchTypes() {
		if m == t {
			return i
		}
	}
	return -1
}

// MatchDetails breaks a match down into the individual signals behind it.
// Fuzzy metrics are only populated when the fuzzy scorer ran for the pair.
type MatchDetails struct {
	BlockSimilarity       float64 `json:"block_similarity" yaml:"block_similarity"`
	EdgeSimilarity        float64 `json:"edge_similarity" yaml:"edge_similarity"`
	InstructionSimilarity float64 `json:"instruction_similarity" yaml:"instruction_similarity"`
	CallSimilarity        float64 `json:"call_similarity" yaml:"call_similarity"`
	NameSimilarity        float64 `json:"name_similarity" yaml:"name_similarity"`

	Jaccard        float64 `json:"jaccard,omitempty" yaml:"jaccard,omitempty"`
	Cosine         float64 `json:"cosine,omitempty" yaml:"cosine,omitempty"`
	EditSimilarity float64 `json:"edit_similarity,omitempty" yaml:"edit_similarity,omitempty"`
	Margin         float64 `json:"margin,omitempty" yaml:"margin,omitempty"`

	// Discrepancies is the node/edge edit count of a near-isomorphic pair.
	Discrepancies int `json:"discrepancies,omitempty" yaml:"discrepancies,omitempty"`
}

// MatchCandidate is a proposed pairing inside one phase. It is promoted to a
// MatchResult only when the phase accepts it.
type MatchCandidate struct {
	A          *Function
	B          *Function
	Phase      MatchType
	Similarity float64
	Confidence float64
	Details    MatchDetails
}

// Result promotes the candidate.
func (c MatchCandidate) Result() MatchResult {
	return MatchResult{
		A:          c.A,
		B:          c.B,
		Type:       c.Phase,
		Similarity: c.Similarity,
		Confidence: c.Confidence,
		Details:    c.Details,
	}
}

// MatchResult is one accepted pairing.
type MatchResult struct {
	A          *Function
	B          *Function
	Type       MatchType
	Similarity float64
	Confidence float64
	Details    MatchDetails
}

// TypeStats summarizes the matches of one type.
type TypeStats struct {
	Count         int     `json:"count" yaml:"count"`
	AvgSimilarity float64 `json:"avg_similarity" yaml:"avg_similarity"`
	AvgConfidence float64 `json:"avg_confidence" yaml:"avg_confidence"`
}

// PhaseStats records what one phase did.
type PhaseStats struct {
	Phase       MatchType     `json:"phase" yaml:"phase"`
	CandidatesA int           `json:"candidates_a" yaml:"candidates_a"`
	CandidatesB int           `json:"candidates_b" yaml:"candidates_b"`
	Matched     int           `json:"matched" yaml:"matched"`
	RemainingA  int           `json:"remaining_a" yaml:"remaining_a"`
	RemainingB  int           `json:"remaining_b" yaml:"remaining_b"`
	Comparisons int           `json:"comparisons" yaml:"comparisons"`
	Ambiguous   int           `json:"ambiguous" yaml:"ambiguous"`
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`

	// ReducedSignatures counts small-primes products that wrapped the modulus.
	ReducedSignatures int `json:"reduced_signatures,omitempty" yaml:"reduced_signatures,omitempty"`
	// BudgetExceeded counts isomorphism searches that ran out of steps.
	BudgetExceeded int `json:"budget_exceeded,omitempty" yaml:"budget_exceeded,omitempty"`
}

// Stats aggregates a MatchSet.
type Stats struct {
	TotalA            int                     `json:"total_a" yaml:"total_a"`
	TotalB            int                     `json:"total_b" yaml:"total_b"`
	Matched           int                     `json:"matched" yaml:"matched"`
	OverallSimilarity float64                 `json:"overall_similarity" yaml:"overall_similarity"`
	PerType           map[MatchType]TypeStats `json:"per_type" yaml:"per_type"`
	Phases            []PhaseStats            `json:"phases" yaml:"phases"`
}

// MatchSet is the immutable output of one diff invocation.
type MatchSet struct {
	Results    []MatchResult
	UnmatchedA []*Function
	UnmatchedB []*Function
	Stats      Stats
}

// ByType returns the results of one match type, in result order.
func (m *MatchSet) ByType(t MatchType) []MatchResult {
	var out []MatchResult
	for _, r := range m.Results {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// FindA returns the result that pairs the A-side function at addr.
func (m *MatchSet) FindA(addr uint64) (MatchResult, bool) {
	for _, r := range m.Results {
		if r.A.Address() == addr {
			return r, true
		}
	}
	return MatchResult{}, false
}

// FindB returns the result that pairs the B-side function at addr.
func (m *MatchSet) FindB(addr uint64) (MatchResult, bool) {
	for _, r := range m.Results {
		if r.B.Address() == addr {
			return r, true
		}
	}
	return MatchResult{}, false
}
