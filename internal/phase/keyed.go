package phase

import (
	"context"
	"slices"

	"github.com/coral-mesh/bindiff/internal/constants"
	"github.com/coral-mesh/bindiff/internal/model"
)

// Exact pairs non-degenerate functions with equal CFG and call-graph hashes.
type Exact struct{}

// Type implements Stage.
func (Exact) Type() model.MatchType { return model.MatchExact }

// Run implements Stage.
func (Exact) Run(_ context.Context, _ *Env, in Residual) (Result, error) {
	el := in.Eligible(nonDegenerate)
	pairs, ambiguous := UniquePairs(el.A, el.B, func(f *model.Function) ([2]uint64, bool) {
		return [2]uint64{f.CFGHash(), f.CallGraphHash()}, true
	})

	res := Result{CandidatesA: len(el.A), CandidatesB: len(el.B), Ambiguous: ambiguous}
	for _, p := range pairs {
		r := fixedResult(p, model.MatchExact, constants.ConfidenceExact)
		r.Similarity = 1.0
		res.Matches = append(res.Matches, r)
	}
	return res, nil
}

// Name pairs functions with identical, case-sensitive names. Placeholder
// names derived from addresses are ignored. Degenerate functions take part.
type Name struct{}

// Type implements Stage.
func (Name) Type() model.MatchType { return model.MatchName }

// Run implements Stage.
func (Name) Run(_ context.Context, _ *Env, in Residual) (Result, error) {
	el := in.Eligible(func(f *model.Function) bool {
		return !model.IsAddressLike(f.Name())
	})
	pairs, ambiguous := UniquePairs(el.A, el.B, func(f *model.Function) (string, bool) {
		return f.Name(), true
	})

	res := Result{CandidatesA: len(el.A), CandidatesB: len(el.B), Ambiguous: ambiguous}
	for _, p := range pairs {
		res.Matches = append(res.Matches, fixedResult(p, model.MatchName, constants.ConfidenceName))
	}
	return res, nil
}

// SmallPrimes pairs functions with equal small-primes products, i.e. equal
// mnemonic multisets up to modular collisions.
type SmallPrimes struct{}

// Type implements Stage.
func (SmallPrimes) Type() model.MatchType { return model.MatchSPP }

// Run implements Stage.
func (SmallPrimes) Run(_ context.Context, env *Env, in Residual) (Result, error) {
	el := in.Eligible(func(f *model.Function) bool {
		return !f.Degenerate() && f.Counts().Instructions > 0
	})

	res := Result{CandidatesA: len(el.A), CandidatesB: len(el.B)}
	for _, side := range [][]*model.Function{el.A, el.B} {
		for _, f := range side {
			if env.Features(f).Reduced {
				res.ReducedSignatures++
			}
		}
	}

	pairs, ambiguous := UniquePairs(el.A, el.B, func(f *model.Function) (uint64, bool) {
		return env.Features(f).Signature, true
	})
	res.Ambiguous = ambiguous
	for _, p := range pairs {
		res.Matches = append(res.Matches, fixedResult(p, model.MatchSPP, constants.ConfidenceSPP))
	}
	return res, nil
}

// MDIndex pairs functions whose metadata index values fall into the same
// tolerance cluster.
type MDIndex struct{}

// Type implements Stage.
func (MDIndex) Type() model.MatchType { return model.MatchMDIndex }

// Run implements Stage.
func (MDIndex) Run(_ context.Context, env *Env, in Residual) (Result, error) {
	el := in.Eligible(nonDegenerate)
	cluster := clusterValues(el, func(f *model.Function) float64 {
		return env.Features(f).MDIndex
	}, env.Config().MDIndexTolerance)

	pairs, ambiguous := UniquePairs(el.A, el.B, func(f *model.Function) (int, bool) {
		c, ok := cluster[f]
		return c, ok
	})

	res := Result{CandidatesA: len(el.A), CandidatesB: len(el.B), Ambiguous: ambiguous}
	for _, p := range pairs {
		res.Matches = append(res.Matches, fixedResult(p, model.MatchMDIndex, constants.ConfidenceMDIndex))
	}
	return res, nil
}

// clusterValues sorts the values of both sides and chains neighbours whose
// gap is at most eps into one cluster. With eps = 0 clusters are exact
// equality classes.
func clusterValues(in Residual, value func(*model.Function) float64, eps float64) map[*model.Function]int {
	type entry struct {
		f *model.Function
		v float64
	}
	entries := make([]entry, 0, len(in.A)+len(in.B))
	for _, f := range in.A {
		entries = append(entries, entry{f, value(f)})
	}
	for _, f := range in.B {
		entries = append(entries, entry{f, value(f)})
	}
	slices.SortStableFunc(entries, func(x, y entry) int {
		switch {
		case x.v < y.v:
			return -1
		case x.v > y.v:
			return 1
		}
		return 0
	})

	out := make(map[*model.Function]int, len(entries))
	id := 0
	for i, e := range entries {
		if i > 0 && e.v-entries[i-1].v > eps {
			id++
		}
		out[e.f] = id
	}
	return out
}
