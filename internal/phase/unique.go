package phase

import "github.com/coral-mesh/bindiff/internal/model"

// Pair is a proposed A/B pairing.
type Pair struct {
	A *model.Function
	B *model.Function
}

// UniquePairs groups both sides by key and pairs the groups that hold exactly
// one function from A and one from B. Groups present on both sides with more
// than one member on either side are ambiguous and produce no pair. Functions
// for which key reports false take no part. Pairs come out in the order of a.
func UniquePairs[K comparable](a, b []*model.Function, key func(*model.Function) (K, bool)) (pairs []Pair, ambiguous int) {
	type group struct {
		a, b   *model.Function
		na, nb int
	}

	groups := make(map[K]*group)
	var order []K
	add := func(f *model.Function, sideA bool) {
		k, ok := key(f)
		if !ok {
			return
		}
		g, exists := groups[k]
		if !exists {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}
		if sideA {
			g.a = f
			g.na++
		} else {
			g.b = f
			g.nb++
		}
	}
	for _, f := range a {
		add(f, true)
	}
	for _, f := range b {
		add(f, false)
	}

	// order holds A-side keys first, in the order of a.
	for _, k := range order {
		g := groups[k]
		switch {
		case g.na == 1 && g.nb == 1:
			pairs = append(pairs, Pair{A: g.a, B: g.b})
		case g.na > 0 && g.nb > 0:
			ambiguous++
		}
	}
	return pairs, ambiguous
}
