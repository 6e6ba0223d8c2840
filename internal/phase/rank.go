package phase

import (
	"cmp"
	"context"
	"slices"

	"github.com/coral-mesh/bindiff/internal/model"
)

// RankCandidates scores f against every function of pool and returns those
// that pass both thresholds, best confidence first. The margin of a candidate
// is its lead over the best other candidate in pool.
func RankCandidates(ctx context.Context, env *Env, f *model.Function, pool []*model.Function) ([]model.MatchCandidate, error) {
	cfg := env.Config()

	scores := make([]Score, len(pool))
	var best top2
	for j, b := range pool {
		if err := ctx.Err(); err != nil {
			return nil, model.Cancelled(err)
		}
		scores[j] = env.ScorePair(f, b)
		best.offer(alt{idx: j, sim: scores[j].Similarity})
	}

	var out []model.MatchCandidate
	for j, b := range pool {
		s := scores[j]
		if s.Similarity < cfg.SimilarityThreshold {
			continue
		}
		margin := max(s.Similarity-best.bestExcluding(j), 0)
		conf := Confidence(s.Similarity, margin, cfg.MarginScale)
		if conf < cfg.ConfidenceThreshold {
			continue
		}
		d := withScore(Details(f, b), s)
		d.Margin = margin
		out = append(out, model.MatchCandidate{
			A:          f,
			B:          b,
			Phase:      model.MatchFuzzy,
			Similarity: s.Similarity,
			Confidence: conf,
			Details:    d,
		})
	}

	slices.SortFunc(out, func(x, y model.MatchCandidate) int {
		if c := cmp.Compare(y.Confidence, x.Confidence); c != 0 {
			return c
		}
		if c := cmp.Compare(y.Similarity, x.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(x.B.Address(), y.B.Address())
	})
	return out, nil
}
