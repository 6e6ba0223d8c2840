package phase

import (
	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/namesim"
	"github.com/coral-mesh/bindiff/internal/similarity"
)

// Score is the fuzzy content similarity of a pair: the weighted combination
// of n-gram Jaccard, histogram cosine and edit similarity.
type Score struct {
	Similarity     float64
	Jaccard        float64
	Cosine         float64
	EditSimilarity float64
}

// ScorePair computes the fuzzy score of a and b. It is symmetric.
func (e *Env) ScorePair(a, b *model.Function) Score {
	fa, fb := e.Features(a), e.Features(b)
	s := Score{
		Jaccard:        similarity.Jaccard(fa.NGrams, fb.NGrams),
		Cosine:         similarity.Cosine(a.Histogram(), b.Histogram()),
		EditSimilarity: similarity.EditSimilarity(fa.Encoded, fb.Encoded),
	}
	s.Similarity = similarity.Combine(s.Jaccard, s.Cosine, s.EditSimilarity, e.cfg.FuzzyWeights)
	return s
}

// Details fills the per-signal breakdown of a pair. The fuzzy metrics are
// left zero; callers that scored the pair copy them in with withScore.
func Details(a, b *model.Function) model.MatchDetails {
	ca, cb := a.Counts(), b.Counts()
	return model.MatchDetails{
		BlockSimilarity:       similarity.Ratio(ca.Blocks, cb.Blocks),
		EdgeSimilarity:        similarity.Ratio(ca.Edges, cb.Edges),
		InstructionSimilarity: similarity.MultisetOverlap(a.Histogram(), b.Histogram()),
		CallSimilarity:        similarity.Ratio(ca.OutDegree, cb.OutDegree),
		NameSimilarity:        namesim.Functions(a, b),
	}
}

func withScore(d model.MatchDetails, s Score) model.MatchDetails {
	d.Jaccard = s.Jaccard
	d.Cosine = s.Cosine
	d.EditSimilarity = s.EditSimilarity
	return d
}

// fixedResult builds the result of a hash- or key-based phase: the reported
// similarity is the mnemonic multiset overlap of the pair.
func fixedResult(p Pair, t model.MatchType, confidence float64) model.MatchResult {
	d := Details(p.A, p.B)
	return model.MatchResult{
		A:          p.A,
		B:          p.B,
		Type:       t,
		Similarity: d.InstructionSimilarity,
		Confidence: confidence,
		Details:    d,
	}
}
