package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/bindiff/internal/model"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []uint64
		want float64
	}{
		{name: "both empty", want: 1.0},
		{name: "one empty", a: []uint64{1, 2}, want: 0},
		{name: "identical", a: []uint64{1, 2, 3}, b: []uint64{1, 2, 3}, want: 1.0},
		{name: "disjoint", a: []uint64{1, 2}, b: []uint64{3, 4}, want: 0},
		{name: "half overlap", a: []uint64{1, 2, 3}, b: []uint64{2, 3, 4}, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.a, tt.b), 1e-12)
			assert.InDelta(t, tt.want, Jaccard(tt.b, tt.a), 1e-12, "jaccard must be symmetric")
		})
	}
}

func TestCosine(t *testing.T) {
	h := func(pairs ...any) []model.MnemonicCount {
		var out []model.MnemonicCount
		for i := 0; i < len(pairs); i += 2 {
			out = append(out, model.MnemonicCount{Mnemonic: pairs[i].(string), Count: pairs[i+1].(int)})
		}
		return out
	}

	assert.InDelta(t, 1.0, Cosine(nil, nil), 1e-12)
	assert.Equal(t, 0.0, Cosine(h("mov", 1), nil))
	assert.InDelta(t, 1.0, Cosine(h("mov", 2, "ret", 1), h("mov", 4, "ret", 2)), 1e-12, "scale invariant")
	assert.InDelta(t, 0.0, Cosine(h("add", 1), h("sub", 1)), 1e-12)

	// (1,1) . (1,0) / (sqrt2 * 1)
	assert.InDelta(t, 1/math.Sqrt2, Cosine(h("add", 1, "mov", 1), h("add", 1)), 1e-12)
}

func TestNormalizedEditDistance(t *testing.T) {
	assert.Equal(t, 0.0, NormalizedEditDistance(nil, nil))
	assert.Equal(t, 1.0, NormalizedEditDistance([]rune("abc"), nil))
	assert.Equal(t, 0.0, NormalizedEditDistance([]rune("abcd"), []rune("abcd")))
	assert.InDelta(t, 0.25, NormalizedEditDistance([]rune("abcd"), []rune("abxd")), 1e-12)
	assert.InDelta(t, 0.2, NormalizedEditDistance([]rune("abcd"), []rune("abcde")), 1e-12)
	assert.InDelta(t, 0.8, EditSimilarity([]rune("abcd"), []rune("abcde")), 1e-12)
}

func TestNGrams(t *testing.T) {
	assert.Nil(t, NGrams(nil, 3))

	short := NGrams([]string{"push", "ret"}, 3)
	require.Len(t, short, 1, "short sequences collapse into one gram")

	grams := NGrams([]string{"push", "mov", "call", "push", "mov", "call"}, 3)
	// push-mov-call, mov-call-push, call-push-mov; the repeat collapses.
	assert.Len(t, grams, 3)
	assert.IsIncreasing(t, grams)

	assert.Equal(t, NGrams([]string{"a", "b", "c"}, 3), NGrams([]string{"a", "b", "c"}, 3))
	assert.NotEqual(t, NGrams([]string{"a", "b", "c"}, 3), NGrams([]string{"c", "b", "a"}, 3))
}

func TestCombine(t *testing.T) {
	w := model.FuzzyWeights{Jaccard: 0.4, Cosine: 0.3, EditDistance: 0.3}
	assert.InDelta(t, 1.0, Combine(1, 1, 1, w), 1e-12)
	assert.InDelta(t, 0.4, Combine(1, 0, 0, w), 1e-12)
	assert.InDelta(t, 0.5, Combine(1, 0, 0, model.FuzzyWeights{Jaccard: 1, Cosine: 1}), 1e-12)
	assert.Equal(t, 0.0, Combine(1, 1, 1, model.FuzzyWeights{}))
}

func TestRatioAndOverlap(t *testing.T) {
	assert.Equal(t, 1.0, Ratio(0, 0))
	assert.Equal(t, 0.0, Ratio(0, 3))
	assert.InDelta(t, 0.5, Ratio(2, 4), 1e-12)

	a := []model.MnemonicCount{{Mnemonic: "mov", Count: 3}, {Mnemonic: "ret", Count: 1}}
	b := []model.MnemonicCount{{Mnemonic: "mov", Count: 2}, {Mnemonic: "nop", Count: 1}, {Mnemonic: "ret", Count: 1}}
	assert.InDelta(t, 0.75, MultisetOverlap(a, b), 1e-12)
	assert.Equal(t, 1.0, MultisetOverlap(nil, nil))
}
