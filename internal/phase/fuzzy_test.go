package phase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/bindiff/internal/config"
	"github.com/coral-mesh/bindiff/internal/extract"
	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/testutil"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		name              string
		sim, margin, want float64
		scale             float64
	}{
		{name: "saturated margin", sim: 0.8, margin: 0.2, scale: 0.1, want: 0.8},
		{name: "no margin", sim: 0.8, margin: 0, scale: 0.1, want: 0.4},
		{name: "half margin", sim: 0.8, margin: 0.05, scale: 0.1, want: 0.6},
		{name: "zero scale", sim: 0.7, margin: 0, scale: 0, want: 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(tt.sim, tt.margin, tt.scale), 1e-12)
		})
	}
}

func TestGreedy(t *testing.T) {
	a1 := testutil.Function(t, "a", 0x1000, "a1", chainBody)
	a2 := testutil.Function(t, "a", 0x2000, "a2", chainBody)
	b1 := testutil.Function(t, "b", 0x1000, "b1", chainBody)
	b2 := testutil.Function(t, "b", 0x2000, "b2", chainBody)
	cand := func(a, b *model.Function, sim, conf float64) model.MatchCandidate {
		return model.MatchCandidate{A: a, B: b, Phase: model.MatchFuzzy, Similarity: sim, Confidence: conf}
	}

	t.Run("best first", func(t *testing.T) {
		got := Greedy([]model.MatchCandidate{
			cand(a1, b1, 0.9, 0.9),
			cand(a2, b2, 0.8, 0.8),
			cand(a1, b2, 0.95, 0.6),
			cand(a2, b1, 0.7, 0.7),
		})
		require.Len(t, got, 2)
		assert.Equal(t, [2]*model.Function{a1, b2}, [2]*model.Function{got[0].A, got[0].B})
		assert.Equal(t, [2]*model.Function{a2, b1}, [2]*model.Function{got[1].A, got[1].B})
	})

	t.Run("ties by confidence then address", func(t *testing.T) {
		got := Greedy([]model.MatchCandidate{
			cand(a2, b1, 0.9, 0.8),
			cand(a1, b1, 0.9, 0.8),
			cand(a2, b2, 0.9, 0.7),
		})
		require.Len(t, got, 2)
		assert.Equal(t, a1, got[0].A)
		assert.Equal(t, b1, got[0].B)
		assert.Equal(t, a2, got[1].A)
		assert.Equal(t, b2, got[1].B)
	})
}

func TestFuzzy(t *testing.T) {
	base := testutil.Generated(7, 6)
	a, b := snapshots(t,
		[]extract.RawFunction{testutil.Raw(0x1000, "", base)},
		[]extract.RawFunction{testutil.Raw(0x5000, "", base.Replace(0, 0, "hlt"))},
	)
	env := newEnv(t, a, b, nil)

	res, err := Fuzzy{}.Run(testutil.NewTestContext(t), env, NewResidual(a, b))
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, model.MatchFuzzy, m.Type)
	assert.Greater(t, m.Similarity, 0.6)
	assert.Less(t, m.Similarity, 1.0)
	assert.Equal(t, m.Similarity, m.Details.Margin, "no runner-up on either side")
	assert.InDelta(t, m.Similarity, m.Confidence, 1e-12)
	assert.Equal(t, 1, res.Comparisons)
}

func TestFuzzy_TiedRunnerUpIsAmbiguous(t *testing.T) {
	base := testutil.Generated(7, 6)
	edited := base.Replace(0, 0, "hlt")
	a, b := snapshots(t,
		[]extract.RawFunction{testutil.Raw(0x1000, "", base)},
		[]extract.RawFunction{
			testutil.Raw(0x5000, "", edited),
			testutil.Raw(0x9000, "", edited),
		},
	)
	env := newEnv(t, a, b, nil)

	res, err := Fuzzy{}.Run(testutil.NewTestContext(t), env, NewResidual(a, b))
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, 2, res.Ambiguous)
	assert.Equal(t, 2, res.Comparisons)
}

func TestFuzzy_ThresholdIsInclusive(t *testing.T) {
	base := testutil.Generated(21, 5)
	a, b := snapshots(t,
		[]extract.RawFunction{testutil.Raw(0x1000, "", base)},
		[]extract.RawFunction{testutil.Raw(0x1000, "", base.Replace(1, 0, "hlt"))},
	)
	score := newEnv(t, a, b, nil).ScorePair(a.At(0), b.At(0)).Similarity
	require.Less(t, score, 1.0)

	tests := []struct {
		name      string
		threshold float64
		want      int
	}{
		{name: "equal to score", threshold: score, want: 1},
		{name: "just above score", threshold: math.Nextafter(score, 1), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, a, b, func(c *config.DiffConfig) {
				c.SimilarityThreshold = tt.threshold
				c.ConfidenceThreshold = 0
			})
			res, err := Fuzzy{}.Run(testutil.NewTestContext(t), env, NewResidual(a, b))
			require.NoError(t, err)
			assert.Len(t, res.Matches, tt.want)
		})
	}
}

func TestFuzzy_BucketsLimitComparisons(t *testing.T) {
	small := testutil.Chain([]string{"mov", "ret"})
	big := testutil.Generated(5, 40)
	a, b := snapshots(t,
		[]extract.RawFunction{testutil.Raw(0x1000, "", small)},
		[]extract.RawFunction{
			testutil.Raw(0x1000, "", small.Replace(0, 0, "lea")),
			testutil.Raw(0x100000, "", big),
		},
	)
	env := newEnv(t, a, b, nil)

	res, err := Fuzzy{}.Run(testutil.NewTestContext(t), env, NewResidual(a, b))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Comparisons, "distant bucket is never scored")
}

func TestFuzzy_CancelWithinBucket(t *testing.T) {
	const candidates = 60
	base := testutil.Generated(11, 400)
	raws := make([]extract.RawFunction, candidates)
	for i := range raws {
		blk := i % len(base.Blocks)
		raws[i] = testutil.Raw(0x100000*uint64(i+1), "", base.Replace(blk, 0, "hlt"))
	}
	a, b := snapshots(t, []extract.RawFunction{testutil.Raw(0x1000, "", base)}, raws)
	env := newEnv(t, a, b, nil)

	start := time.Now()
	env.ScorePair(a.At(0), b.At(0))
	pair := time.Since(start)

	ctx, cancel := context.WithCancel(testutil.NewTestContext(t))
	defer cancel()
	time.AfterFunc(2*pair, cancel)

	start = time.Now()
	_, err := Fuzzy{}.Run(ctx, env, NewResidual(a, b))
	elapsed := time.Since(start)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, candidates/3*pair, "scoring continued after cancel")
}

func TestRankCandidates(t *testing.T) {
	base := testutil.Generated(3, 5)
	f := testutil.Function(t, "a", 0x1000, "", base)
	near := testutil.Function(t, "b", 0x1000, "", base.Replace(0, 0, "hlt"))
	far := testutil.Function(t, "b", 0x2000, "", testutil.Chain([]string{"nop", "nop", "ret"}))

	a := testutil.Snapshot(t, "a", testutil.Raw(0x1000, "", base))
	b := testutil.Snapshot(t, "b", testutil.Raw(0x1000, "", base.Replace(0, 0, "hlt")))
	env := newEnv(t, a, b, nil)

	got, err := RankCandidates(testutil.NewTestContext(t), env, f, []*model.Function{far, near})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, near, got[0].B)
	farScore := env.ScorePair(f, far).Similarity
	assert.InDelta(t, got[0].Similarity-farScore, got[0].Details.Margin, 1e-12)
}
