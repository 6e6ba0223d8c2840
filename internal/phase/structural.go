package phase

import (
	"context"

	"github.com/coral-mesh/bindiff/internal/constants"
	"github.com/coral-mesh/bindiff/internal/isomorph"
	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/workpool"
)

// Structural pairs functions whose CFGs are isomorphic or near-isomorphic.
//
// Candidates are pairs whose block and edge counts differ by at most the
// near-isomorphism tolerance in total. A pair is accepted when the graph
// check succeeds, both the graph similarity and the content score reach the
// similarity threshold, and each side is the other's unique best candidate.
// Similarity is the fraction of blocks and edges preserved (1.0 when
// isomorphic); confidence is the structural confidence scaled by it.
type Structural struct{}

// Type implements Stage.
func (Structural) Type() model.MatchType { return model.MatchStructural }

type structuralHit struct {
	b       int
	graph   isomorph.Result
	content Score
}

type rank struct {
	graph, content float64
}

func (r rank) better(o rank) bool {
	if r.graph != o.graph {
		return r.graph > o.graph
	}
	return r.content > o.content
}

type structuralSlot struct {
	hits        []structuralHit
	comparisons int
	exceeded    int
}

// Run implements Stage.
func (Structural) Run(ctx context.Context, env *Env, in Residual) (Result, error) {
	cfg := env.Config()
	el := in.Eligible(nonDegenerate)
	res := Result{CandidatesA: len(el.A), CandidatesB: len(el.B)}
	if len(el.A) == 0 || len(el.B) == 0 {
		return res, nil
	}

	k := cfg.NearIsomorphismTolerance
	opts := isomorph.Options{Budget: cfg.StructuralStepBudget, Tolerance: k}

	graphsB := make([]*isomorph.Graph, len(el.B))
	byBlocks := make(map[int][]int)
	for j, f := range el.B {
		graphsB[j] = isomorph.FromFunction(f)
		n := f.Counts().Blocks
		byBlocks[n] = append(byBlocks[n], j)
	}

	slots := make([]structuralSlot, len(el.A))
	err := workpool.Run(ctx, len(el.A), cfg.Workers, func(ctx context.Context, i int) error {
		a := el.A[i]
		ga := isomorph.FromFunction(a)
		ca := a.Counts()
		slot := &slots[i]

		for n := ca.Blocks - k; n <= ca.Blocks+k; n++ {
			for _, j := range byBlocks[n] {
				if err := ctx.Err(); err != nil {
					return err
				}
				cb := el.B[j].Counts()
				if absInt(ca.Blocks-cb.Blocks)+absInt(ca.Edges-cb.Edges) > k {
					continue
				}

				slot.comparisons++
				g := isomorph.Check(ga, graphsB[j], opts)
				if g.Outcome == isomorph.BudgetExceeded {
					slot.exceeded++
				}
				if !g.Matched() || g.Similarity < cfg.SimilarityThreshold {
					continue
				}
				sc := env.ScorePair(a, el.B[j])
				if sc.Similarity < cfg.SimilarityThreshold {
					continue
				}
				slot.hits = append(slot.hits, structuralHit{b: j, graph: g, content: sc})
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	// Best and runner-up rank per B, over every A.
	type bestOf struct {
		a      int
		rank   rank
		unique bool
	}
	bestB := make(map[int]*bestOf)
	for i, slot := range slots {
		res.Comparisons += slot.comparisons
		res.BudgetExceeded += slot.exceeded
		for _, h := range slot.hits {
			r := rank{graph: h.graph.Similarity, content: h.content.Similarity}
			cur, ok := bestB[h.b]
			switch {
			case !ok:
				bestB[h.b] = &bestOf{a: i, rank: r, unique: true}
			case r.better(cur.rank):
				*cur = bestOf{a: i, rank: r, unique: true}
			case !cur.rank.better(r):
				cur.unique = false
			}
		}
	}

	for i, slot := range slots {
		if len(slot.hits) == 0 {
			continue
		}
		best := 0
		unique := true
		for h := 1; h < len(slot.hits); h++ {
			rh := rank{graph: slot.hits[h].graph.Similarity, content: slot.hits[h].content.Similarity}
			rb := rank{graph: slot.hits[best].graph.Similarity, content: slot.hits[best].content.Similarity}
			switch {
			case rh.better(rb):
				best, unique = h, true
			case !rb.better(rh):
				unique = false
			}
		}

		hit := slot.hits[best]
		other := bestB[hit.b]
		if !unique || !other.unique || other.a != i {
			res.Ambiguous++
			continue
		}

		a, b := el.A[i], el.B[hit.b]
		d := withScore(Details(a, b), hit.content)
		d.Discrepancies = hit.graph.Discrepancies
		cand := model.MatchCandidate{
			A:          a,
			B:          b,
			Phase:      model.MatchStructural,
			Similarity: hit.graph.Similarity,
			Confidence: constants.ConfidenceStructural * hit.graph.Similarity,
			Details:    d,
		}
		res.Matches = append(res.Matches, cand.Result())
	}
	return res, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
