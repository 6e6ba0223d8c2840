package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/testutil"
)

func TestBuild(t *testing.T) {
	body := testutil.Chain([]string{"push", "mov"}, []string{"pop", "ret"})
	a := testutil.Snapshot(t, "a",
		testutil.Raw(0x1000, "f1", body),
		testutil.Raw(0x2000, "f2", body),
		testutil.Raw(0x3000, "f3", body),
	)
	b := testutil.Snapshot(t, "b",
		testutil.Raw(0x1000, "g1", body),
		testutil.Raw(0x2000, "g2", body),
	)

	results := []model.MatchResult{
		{A: a.At(2), B: b.At(0), Type: model.MatchFuzzy, Similarity: 0.7, Confidence: 0.6},
		{A: a.At(1), B: b.At(1), Type: model.MatchExact, Similarity: 1, Confidence: 1},
	}
	phases := []model.PhaseStats{{Phase: model.MatchExact, Matched: 1, Elapsed: time.Millisecond}}

	set := Build(a, b, results, phases)

	require.Len(t, set.Results, 2)
	assert.Equal(t, model.MatchExact, set.Results[0].Type, "phase order first")
	assert.Equal(t, model.MatchFuzzy, set.Results[1].Type)

	require.Len(t, set.UnmatchedA, 1)
	assert.Equal(t, uint64(0x1000), set.UnmatchedA[0].Address())
	assert.Empty(t, set.UnmatchedB)

	assert.Equal(t, 3, set.Stats.TotalA)
	assert.Equal(t, 2, set.Stats.TotalB)
	assert.Equal(t, 2, set.Stats.Matched)
	assert.InDelta(t, 1.7/3, set.Stats.OverallSimilarity, 1e-12)
	assert.Equal(t, phases, set.Stats.Phases)

	assert.Len(t, set.Stats.PerType, 6)
	assert.Equal(t, model.TypeStats{Count: 1, AvgSimilarity: 0.7, AvgConfidence: 0.6}, set.Stats.PerType[model.MatchFuzzy])
	assert.Zero(t, set.Stats.PerType[model.MatchName].Count)

	r, ok := set.FindB(0x1000)
	require.True(t, ok)
	assert.Equal(t, "f3", r.A.Name())
	assert.Len(t, set.ByType(model.MatchExact), 1)
}

func TestSummarize(t *testing.T) {
	f := testutil.Function(t, "x", 0x1, "", testutil.Chain([]string{"ret"}))
	results := []model.MatchResult{
		{A: f, B: f, Type: model.MatchSPP, Similarity: 1, Confidence: 0.7},
		{A: f, B: f, Type: model.MatchSPP, Similarity: 0.5, Confidence: 0.7},
	}

	tests := []struct {
		name           string
		results        []model.MatchResult
		totalA, totalB int
		overall        float64
	}{
		{name: "empty", overall: 0},
		{name: "larger side divides", results: results, totalA: 2, totalB: 5, overall: 0.3},
		{name: "all matched", results: results, totalA: 2, totalB: 2, overall: 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Summarize(tt.results, tt.totalA, tt.totalB)
			assert.InDelta(t, tt.overall, st.OverallSimilarity, 1e-12)
			assert.Equal(t, len(tt.results), st.Matched)
		})
	}

	st := Summarize(results, 2, 2)
	assert.InDelta(t, 0.75, st.PerType[model.MatchSPP].AvgSimilarity, 1e-12)
	assert.InDelta(t, 0.7, st.PerType[model.MatchSPP].AvgConfidence, 1e-12)
}

func TestBuild_Empty(t *testing.T) {
	a := testutil.Snapshot(t, "a")
	b := testutil.Snapshot(t, "b")

	set := Build(a, b, nil, nil)
	assert.Empty(t, set.Results)
	assert.Empty(t, set.UnmatchedA)
	assert.Empty(t, set.UnmatchedB)
	assert.Zero(t, set.Stats.OverallSimilarity)
}
