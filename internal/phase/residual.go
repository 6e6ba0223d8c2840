package phase

import "github.com/coral-mesh/bindiff/internal/model"

// Residual is the pair of still-unmatched function pools handed from one
// stage to the next. Both sides are address-ordered. A Residual is never
// modified; Without returns a new one.
type Residual struct {
	A []*model.Function
	B []*model.Function
}

// NewResidual starts from every function of both snapshots.
func NewResidual(a, b *model.Snapshot) Residual {
	return Residual{A: a.Functions(), B: b.Functions()}
}

// Without returns the residual minus every function paired by matches.
func (r Residual) Without(matches []model.MatchResult) Residual {
	if len(matches) == 0 {
		return r
	}
	takenA := make(map[*model.Function]struct{}, len(matches))
	takenB := make(map[*model.Function]struct{}, len(matches))
	for _, m := range matches {
		takenA[m.A] = struct{}{}
		takenB[m.B] = struct{}{}
	}
	return Residual{A: without(r.A, takenA), B: without(r.B, takenB)}
}

// Eligible returns the residual restricted to functions keep accepts.
func (r Residual) Eligible(keep func(*model.Function) bool) Residual {
	return Residual{A: filter(r.A, keep), B: filter(r.B, keep)}
}

func without(fns []*model.Function, taken map[*model.Function]struct{}) []*model.Function {
	out := make([]*model.Function, 0, len(fns))
	for _, f := range fns {
		if _, ok := taken[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

func filter(fns []*model.Function, keep func(*model.Function) bool) []*model.Function {
	out := make([]*model.Function, 0, len(fns))
	for _, f := range fns {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// nonDegenerate admits functions with a usable CFG.
func nonDegenerate(f *model.Function) bool {
	return !f.Degenerate()
}
