package isomorph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coral-mesh/bindiff/internal/model"
)

func edges(pairs ...int) []model.Edge {
	out := make([]model.Edge, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.Edge{From: pairs[i], To: pairs[i+1]})
	}
	return out
}

func TestCheck_Isomorphic(t *testing.T) {
	tests := []struct {
		name string
		a, b *Graph
	}{
		{
			name: "empty graphs",
			a:    NewGraph(0, 0, nil),
			b:    NewGraph(0, 0, nil),
		},
		{
			name: "chain relabelled",
			a:    NewGraph(3, 0, edges(0, 1, 1, 2)),
			b:    NewGraph(3, 2, edges(2, 0, 0, 1)),
		},
		{
			name: "diamond with loop",
			a:    NewGraph(5, 0, edges(0, 1, 0, 2, 1, 3, 2, 3, 3, 4, 3, 0)),
			b:    NewGraph(5, 4, edges(4, 2, 4, 1, 2, 0, 1, 0, 0, 3, 0, 4)),
		},
		{
			name: "self loop",
			a:    NewGraph(2, 0, edges(0, 0, 0, 1)),
			b:    NewGraph(2, 1, edges(1, 1, 1, 0)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(tt.a, tt.b, Options{Budget: 1000})
			assert.Equal(t, Isomorphic, res.Outcome)
			assert.Equal(t, 1.0, res.Similarity)
			assert.True(t, res.Matched())
		})
	}
}

func TestCheck_NotIsomorphic(t *testing.T) {
	diamond := NewGraph(4, 0, edges(0, 1, 0, 2, 1, 3, 2, 3))
	cycle := NewGraph(4, 0, edges(0, 1, 1, 2, 2, 3, 3, 0))

	res := Check(diamond, cycle, Options{Budget: 1000})
	assert.Equal(t, NotIsomorphic, res.Outcome)
	assert.False(t, res.Matched())

	// Same shape, entry placed differently.
	a := NewGraph(3, 0, edges(0, 1, 1, 2))
	b := NewGraph(3, 1, edges(0, 1, 1, 2))
	assert.Equal(t, NotIsomorphic, Check(a, b, Options{Budget: 1000}).Outcome)
}

func TestCheck_BudgetExceeded(t *testing.T) {
	a := NewGraph(6, 0, edges(0, 1, 1, 2, 2, 3, 3, 4, 4, 5))
	b := NewGraph(6, 0, edges(0, 1, 1, 2, 2, 3, 3, 4, 4, 5))

	res := Check(a, b, Options{Budget: 1})
	assert.Equal(t, BudgetExceeded, res.Outcome)
	assert.False(t, res.Matched())

	res = Check(a, b, Options{Budget: 100})
	assert.Equal(t, Isomorphic, res.Outcome)
}

func TestCheck_NearIsomorphic(t *testing.T) {
	// A block inserted on the first edge of a chain.
	chain := NewGraph(3, 0, edges(0, 1, 1, 2))
	padded := NewGraph(4, 0, edges(0, 3, 3, 1, 1, 2))

	res := Check(chain, padded, Options{Budget: 1000, Tolerance: 2})
	assert.Equal(t, NearIsomorphic, res.Outcome)
	assert.Equal(t, 2, res.Discrepancies)
	assert.Equal(t, 2, res.PreservedEdges)
	assert.InDelta(t, 10.0/12.0, res.Similarity, 1e-12)

	// Argument order does not matter.
	swapped := Check(padded, chain, Options{Budget: 1000, Tolerance: 2})
	assert.Equal(t, res.Outcome, swapped.Outcome)
	assert.Equal(t, res.Discrepancies, swapped.Discrepancies)
	assert.InDelta(t, res.Similarity, swapped.Similarity, 1e-12)

	// Not enough tolerance.
	assert.Equal(t, NotIsomorphic, Check(chain, padded, Options{Budget: 1000, Tolerance: 1}).Outcome)
	// No tolerance disables the near search.
	assert.Equal(t, NotIsomorphic, Check(chain, padded, Options{Budget: 1000}).Outcome)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "isomorphic", Isomorphic.String())
	assert.Equal(t, "near-isomorphic", NearIsomorphic.String())
	assert.Equal(t, "budget-exceeded", BudgetExceeded.String())
	assert.Equal(t, "not-isomorphic", NotIsomorphic.String())
}
