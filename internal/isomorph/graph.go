// Package isomorph decides whether two control-flow graphs are isomorphic or
// near-isomorphic under an explicit step budget.
//
// Check runs a degree-sequence invariant test and then a backtracking search
// that counts every node assignment against the budget. The outcome is
// tri-state: a decision (isomorphic, near-isomorphic, not isomorphic) or
// BudgetExceeded when the search gave up. Callers treat BudgetExceeded as a
// negative result.
package isomorph

import (
	"cmp"
	"slices"

	"github.com/coral-mesh/bindiff/internal/model"
)

// Graph is an immutable directed graph over nodes 0..N-1 with a designated entry.
type Graph struct {
	n     int
	entry int
	edges int
	succ  [][]int
	pred  [][]int
}

// NewGraph builds a graph from an edge list. Out-of-range and duplicate edges
// are dropped.
func NewGraph(n, entry int, edges []model.Edge) *Graph {
	g := &Graph{
		n:     n,
		entry: entry,
		succ:  make([][]int, n),
		pred:  make([][]int, n),
	}
	for _, e := range edges {
		if e.From < 0 || e.To < 0 || e.From >= n || e.To >= n {
			continue
		}
		g.succ[e.From] = append(g.succ[e.From], e.To)
		g.pred[e.To] = append(g.pred[e.To], e.From)
	}
	for i := 0; i < n; i++ {
		slices.Sort(g.succ[i])
		g.succ[i] = slices.Compact(g.succ[i])
		slices.Sort(g.pred[i])
		g.pred[i] = slices.Compact(g.pred[i])
		g.edges += len(g.succ[i])
	}
	if g.entry < 0 || g.entry >= n {
		g.entry = 0
	}
	return g
}

// FromFunction builds the CFG graph of f.
func FromFunction(f *model.Function) *Graph {
	return NewGraph(len(f.Blocks()), f.Entry(), f.Edges())
}

// Nodes returns the node count.
func (g *Graph) Nodes() int { return g.n }

// EdgeCount returns the edge count.
func (g *Graph) EdgeCount() int { return g.edges }

// Entry returns the entry node.
func (g *Graph) Entry() int { return g.entry }

// HasEdge reports whether u->v is an edge.
func (g *Graph) HasEdge(u, v int) bool {
	_, ok := slices.BinarySearch(g.succ[u], v)
	return ok
}

type degree struct{ out, in int }

func (g *Graph) degreeOf(i int) degree {
	return degree{out: len(g.succ[i]), in: len(g.pred[i])}
}

// degreeSequence returns the sorted (out, in) degree pairs.
func (g *Graph) degreeSequence() []degree {
	seq := make([]degree, g.n)
	for i := 0; i < g.n; i++ {
		seq[i] = g.degreeOf(i)
	}
	slices.SortFunc(seq, func(a, b degree) int {
		if c := cmp.Compare(a.out, b.out); c != 0 {
			return c
		}
		return cmp.Compare(a.in, b.in)
	})
	return seq
}

// searchOrder returns the nodes in breadth-first order from the entry over
// the undirected graph, followed by unreachable nodes in index order.
func (g *Graph) searchOrder() []int {
	order := make([]int, 0, g.n)
	if g.n == 0 {
		return order
	}
	seen := make([]bool, g.n)
	visit := func(start int) {
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			order = append(order, u)
			for _, v := range g.succ[u] {
				if !seen[v] {
					seen[v] = true
					queue = append(queue, v)
				}
			}
			for _, v := range g.pred[u] {
				if !seen[v] {
					seen[v] = true
					queue = append(queue, v)
				}
			}
		}
	}
	visit(g.entry)
	for i := 0; i < g.n; i++ {
		if !seen[i] {
			visit(i)
		}
	}
	return order
}
