package isomorph

import (
	"cmp"
	"slices"
)

// Outcome is the result of an isomorphism check.
type Outcome int

// Possible outcomes.
const (
	NotIsomorphic Outcome = iota
	Isomorphic
	NearIsomorphic
	BudgetExceeded
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Isomorphic:
		return "isomorphic"
	case NearIsomorphic:
		return "near-isomorphic"
	case BudgetExceeded:
		return "budget-exceeded"
	default:
		return "not-isomorphic"
	}
}

// Options bounds a check.
type Options struct {
	// Budget is the maximum number of node assignments the search may try.
	Budget int
	// Tolerance is the maximum number of node/edge discrepancies accepted for
	// a near-isomorphic pair. Zero disables the near search.
	Tolerance int
}

// Result describes a check.
type Result struct {
	Outcome Outcome
	// Discrepancies is the node/edge edit count of the best mapping found.
	Discrepancies int
	// PreservedEdges is the number of edges mapped onto edges.
	PreservedEdges int
	// Similarity is the fraction of blocks and edges preserved, in [0,1].
	Similarity float64
	// Steps is the number of node assignments tried.
	Steps int
}

// Matched reports whether the outcome is a positive match.
func (r Result) Matched() bool {
	return r.Outcome == Isomorphic || r.Outcome == NearIsomorphic
}

// Check tests a and b for isomorphism, then for near-isomorphism within
// opts.Tolerance discrepancies. Exact isomorphism maps entry to entry.
func Check(a, b *Graph, opts Options) Result {
	if a.n == 0 && b.n == 0 {
		return Result{Outcome: Isomorphic, Similarity: 1}
	}

	steps := 0
	if a.n == b.n && a.edges == b.edges && slices.Equal(a.degreeSequence(), b.degreeSequence()) {
		sr := newSearcher(a, b, true, opts.Budget)
		sr.best = -1
		sr.target = a.edges
		sr.extend(0, 0, a.edges)
		steps = sr.steps
		if sr.best == a.edges {
			return Result{Outcome: Isomorphic, PreservedEdges: a.edges, Similarity: 1, Steps: steps}
		}
		if sr.exhausted {
			return Result{Outcome: BudgetExceeded, Steps: steps}
		}
	}

	if opts.Tolerance <= 0 {
		return Result{Outcome: NotIsomorphic, Steps: steps}
	}
	if absInt(a.n-b.n)+absInt(a.edges-b.edges) > opts.Tolerance {
		return Result{Outcome: NotIsomorphic, Steps: steps}
	}

	small, large := a, b
	if a.n > b.n {
		small, large = b, a
	}
	fixed := (large.n - small.n) + small.edges + large.edges
	need := (fixed - opts.Tolerance + 1) / 2
	if need < 0 {
		need = 0
	}

	sr := newSearcher(small, large, false, opts.Budget-steps)
	sr.best = need - 1
	sr.target = min(small.edges, large.edges)
	sr.extend(0, 0, small.edges)
	steps += sr.steps

	if sr.best < need {
		if sr.exhausted {
			return Result{Outcome: BudgetExceeded, Steps: steps}
		}
		return Result{Outcome: NotIsomorphic, Steps: steps}
	}

	preserved := sr.best
	total := a.n + b.n + a.edges + b.edges
	return Result{
		Outcome:        NearIsomorphic,
		Discrepancies:  fixed - 2*preserved,
		PreservedEdges: preserved,
		Similarity:     float64(2*(small.n+preserved)) / float64(total),
		Steps:          steps,
	}
}

// incidence is one edge touching a node of the small graph.
type incidence struct {
	other int
	out   bool
}

type candidate struct {
	node int
	gain int
	diff int
}

type searcher struct {
	s, l     *Graph
	exact    bool
	order    []int
	mapS     []int
	usedL    []bool
	incident [][]incidence

	budget    int
	steps     int
	exhausted bool
	best      int
	target    int
}

func newSearcher(s, l *Graph, exact bool, budget int) *searcher {
	sr := &searcher{
		s:        s,
		l:        l,
		exact:    exact,
		order:    s.searchOrder(),
		mapS:     make([]int, s.n),
		usedL:    make([]bool, l.n),
		incident: make([][]incidence, s.n),
		budget:   budget,
	}
	for i := range sr.mapS {
		sr.mapS[i] = -1
	}
	for u := 0; u < s.n; u++ {
		for _, v := range s.succ[u] {
			sr.incident[u] = append(sr.incident[u], incidence{other: v, out: true})
		}
		for _, v := range s.pred[u] {
			if v != u {
				sr.incident[u] = append(sr.incident[u], incidence{other: v, out: false})
			}
		}
	}
	return sr
}

// extend assigns order[depth] and recurses. It returns true when the search
// must stop, either because the target was reached or the budget ran out.
func (sr *searcher) extend(depth, preserved, remaining int) bool {
	if depth == len(sr.order) {
		if preserved > sr.best {
			sr.best = preserved
		}
		return sr.best >= sr.target
	}
	if preserved+remaining <= sr.best {
		return false
	}

	u := sr.order[depth]
	decided := sr.decided(u)
	for _, c := range sr.candidates(u, decided) {
		sr.steps++
		if sr.steps > sr.budget {
			sr.exhausted = true
			return true
		}

		sr.mapS[u] = c.node
		sr.usedL[c.node] = true
		stop := sr.extend(depth+1, preserved+c.gain, remaining-decided)
		sr.mapS[u] = -1
		sr.usedL[c.node] = false
		if stop {
			return true
		}
	}
	return false
}

// decided counts the edges of u whose other endpoint is already mapped or u itself.
func (sr *searcher) decided(u int) int {
	n := 0
	for _, inc := range sr.incident[u] {
		if inc.other == u || sr.mapS[inc.other] >= 0 {
			n++
		}
	}
	return n
}

func (sr *searcher) gain(u, x int) int {
	g := 0
	for _, inc := range sr.incident[u] {
		y := sr.mapS[inc.other]
		if inc.other == u {
			y = x
		}
		if y < 0 {
			continue
		}
		if inc.out && sr.l.HasEdge(x, y) {
			g++
		} else if !inc.out && sr.l.HasEdge(y, x) {
			g++
		}
	}
	return g
}

func (sr *searcher) candidates(u, decided int) []candidate {
	du := sr.s.degreeOf(u)
	isEntry := u == sr.s.entry

	out := make([]candidate, 0, sr.l.n)
	for x := 0; x < sr.l.n; x++ {
		if sr.usedL[x] {
			continue
		}
		dx := sr.l.degreeOf(x)
		if sr.exact {
			if du != dx || isEntry != (x == sr.l.entry) {
				continue
			}
		}
		g := sr.gain(u, x)
		if sr.exact && g != decided {
			continue
		}
		diff := absInt(du.out-dx.out) + absInt(du.in-dx.in)
		if isEntry && x == sr.l.entry {
			diff = -1
		}
		out = append(out, candidate{node: x, gain: g, diff: diff})
	}

	slices.SortFunc(out, func(a, b candidate) int {
		if c := cmp.Compare(b.gain, a.gain); c != 0 {
			return c
		}
		if c := cmp.Compare(a.diff, b.diff); c != 0 {
			return c
		}
		return cmp.Compare(a.node, b.node)
	})
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
