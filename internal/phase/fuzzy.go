package phase

import (
	"cmp"
	"context"
	"slices"

	"github.com/coral-mesh/bindiff/internal/bucket"
	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/workpool"
)

// Fuzzy scores bucketed candidate pairs and assigns them greedily.
//
// Each A bucket is scored against the same and adjacent B buckets in
// parallel. A single pass then merges the per-bucket runner-up scores,
// derives each candidate's confidence from its margin over the next-best
// alternative of either side, and assigns candidates best-first.
type Fuzzy struct{}

// Type implements Stage.
func (Fuzzy) Type() model.MatchType { return model.MatchFuzzy }

// alt is a scored alternative; idx is the other side's index.
type alt struct {
	idx int
	sim float64
}

// top2 keeps the two best alternatives.
type top2 struct {
	first, second alt
	n             int
}

func (t *top2) offer(a alt) {
	switch {
	case t.n == 0 || a.sim > t.first.sim:
		t.second = t.first
		t.first = a
	case t.n == 1 || a.sim > t.second.sim:
		t.second = a
	}
	t.n++
}

func (t *top2) merge(o top2) {
	if o.n > 0 {
		t.offer(o.first)
	}
	if o.n > 1 {
		t.offer(o.second)
	}
}

// bestExcluding returns the best similarity among alternatives other than idx.
func (t *top2) bestExcluding(idx int) float64 {
	switch {
	case t.n == 0:
		return 0
	case t.first.idx != idx:
		return t.first.sim
	case t.n > 1:
		return t.second.sim
	default:
		return 0
	}
}

type fuzzyCand struct {
	a, b  int
	score Score
}

type fuzzyBucket struct {
	cands       []fuzzyCand
	topB        map[int]*top2
	comparisons int
}

// Run implements Stage.
func (Fuzzy) Run(ctx context.Context, env *Env, in Residual) (Result, error) {
	cfg := env.Config()
	el := in.Eligible(nonDegenerate)
	res := Result{CandidatesA: len(el.A), CandidatesB: len(el.B)}
	if len(el.A) == 0 || len(el.B) == 0 {
		return res, nil
	}

	widths := bucket.Widths{Instructions: cfg.InstructionBucketWidth, Blocks: cfg.BlockBucketWidth}
	ixA, ixB := bucket.New(widths), bucket.New(widths)
	for i, f := range el.A {
		ixA.Add(f.Counts(), i)
	}
	for j, f := range el.B {
		ixB.Add(f.Counts(), j)
	}

	keys := ixA.Keys()
	topA := make([]top2, len(el.A))
	buckets := make([]fuzzyBucket, len(keys))

	err := workpool.Run(ctx, len(keys), cfg.Workers, func(ctx context.Context, k int) error {
		out := &buckets[k]
		out.topB = make(map[int]*top2)
		neighbors := ixB.Neighbors(keys[k])

		for _, i := range ixA.Get(keys[k]) {
			for _, j := range neighbors {
				if err := ctx.Err(); err != nil {
					return err
				}
				s := env.ScorePair(el.A[i], el.B[j])
				out.comparisons++

				topA[i].offer(alt{idx: j, sim: s.Similarity})
				tb, ok := out.topB[j]
				if !ok {
					tb = &top2{}
					out.topB[j] = tb
				}
				tb.offer(alt{idx: i, sim: s.Similarity})

				if s.Similarity >= cfg.SimilarityThreshold {
					out.cands = append(out.cands, fuzzyCand{a: i, b: j, score: s})
				}
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	// Global pass: runner-ups of B span buckets.
	topB := make([]top2, len(el.B))
	var cands []fuzzyCand
	for k := range buckets {
		res.Comparisons += buckets[k].comparisons
		for j, t := range buckets[k].topB {
			topB[j].merge(*t)
		}
		cands = append(cands, buckets[k].cands...)
	}

	accepted := make([]model.MatchCandidate, 0, len(cands))
	for _, c := range cands {
		sim := c.score.Similarity
		next := max(topA[c.a].bestExcluding(c.b), topB[c.b].bestExcluding(c.a))
		margin := max(sim-next, 0)
		conf := Confidence(sim, margin, cfg.MarginScale)
		if conf < cfg.ConfidenceThreshold {
			res.Ambiguous++
			continue
		}

		a, b := el.A[c.a], el.B[c.b]
		d := withScore(Details(a, b), c.score)
		d.Margin = margin
		accepted = append(accepted, model.MatchCandidate{
			A:          a,
			B:          b,
			Phase:      model.MatchFuzzy,
			Similarity: sim,
			Confidence: conf,
			Details:    d,
		})
	}

	res.Matches = Greedy(accepted)
	res.Ambiguous += len(accepted) - len(res.Matches)
	return res, nil
}

// Confidence derives fuzzy confidence from similarity and margin: half the
// similarity unconditionally, the other half in proportion to the margin up
// to scale.
func Confidence(sim, margin, scale float64) float64 {
	f := 1.0
	if scale > 0 {
		f = min(margin/scale, 1)
	}
	return sim * (0.5 + 0.5*f)
}

// Greedy assigns candidates best-first: higher similarity, then higher
// confidence, then lower A address, then lower B address. A candidate is
// taken when neither of its functions is taken yet.
func Greedy(cands []model.MatchCandidate) []model.MatchResult {
	sorted := slices.Clone(cands)
	slices.SortFunc(sorted, func(x, y model.MatchCandidate) int {
		if c := cmp.Compare(y.Similarity, x.Similarity); c != 0 {
			return c
		}
		if c := cmp.Compare(y.Confidence, x.Confidence); c != 0 {
			return c
		}
		if c := cmp.Compare(x.A.Address(), y.A.Address()); c != 0 {
			return c
		}
		return cmp.Compare(x.B.Address(), y.B.Address())
	})

	takenA := make(map[*model.Function]bool)
	takenB := make(map[*model.Function]bool)
	var out []model.MatchResult
	for _, c := range sorted {
		if takenA[c.A] || takenB[c.B] {
			continue
		}
		takenA[c.A], takenB[c.B] = true, true
		out = append(out, c.Result())
	}
	return out
}
