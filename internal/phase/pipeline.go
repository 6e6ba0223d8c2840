// Package phase implements the six matching stages and the pipeline that
// runs them in order over a shrinking residual.
//
// Every stage sees only the functions left unmatched by the stages before it
// and returns its accepted matches; the pipeline removes them from the
// residual before the next stage starts. Stages never share mutable state.
package phase

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/coral-mesh/bindiff/internal/model"
)

// Stage is one matching strategy.
type Stage interface {
	// Type is the match type the stage assigns.
	Type() model.MatchType
	// Run matches functions of in. It must only pair functions of in and
	// must pair each function at most once.
	Run(ctx context.Context, env *Env, in Residual) (Result, error)
}

// Result is what one stage produced.
type Result struct {
	Matches []model.MatchResult

	CandidatesA       int
	CandidatesB       int
	Comparisons       int
	Ambiguous         int
	ReducedSignatures int
	BudgetExceeded    int
}

// DefaultStages returns the six stages in phase order.
func DefaultStages() []Stage {
	return []Stage{Exact{}, Name{}, MDIndex{}, SmallPrimes{}, Structural{}, Fuzzy{}}
}

// Outcome is the accumulated output of a pipeline run.
type Outcome struct {
	Results  []model.MatchResult
	Phases   []model.PhaseStats
	Residual Residual
}

// Pipeline runs stages in order with a barrier between them.
type Pipeline struct {
	stages  []Stage
	onStart func(model.MatchType, Residual)
	onPhase func(model.PhaseStats)
}

// NewPipeline creates a pipeline. With no stages, DefaultStages is used.
func NewPipeline(stages ...Stage) *Pipeline {
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	return &Pipeline{stages: stages}
}

// OnStart registers a callback invoked before every stage with its input.
func (p *Pipeline) OnStart(fn func(model.MatchType, Residual)) *Pipeline {
	p.onStart = fn
	return p
}

// OnPhase registers a callback invoked after every completed stage.
func (p *Pipeline) OnPhase(fn func(model.PhaseStats)) *Pipeline {
	p.onPhase = fn
	return p
}

// Run threads in through every stage. Cancellation is checked before each
// stage and by the long-running stages between candidate evaluations; a
// cancelled run returns an error wrapping model.ErrCancelled.
func (p *Pipeline) Run(ctx context.Context, env *Env, in Residual) (Outcome, error) {
	out := Outcome{Residual: in}

	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return Outcome{}, model.Cancelled(err)
		}

		if p.onStart != nil {
			p.onStart(st.Type(), out.Residual)
		}
		start := time.Now()
		res, err := st.Run(ctx, env, out.Residual)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Outcome{}, model.Cancelled(ctxErr)
			}
			return Outcome{}, fmt.Errorf("phase %s: %w", st.Type(), err)
		}
		if err := checkMatches(st.Type(), out.Residual, res.Matches); err != nil {
			return Outcome{}, err
		}

		matches := slices.Clone(res.Matches)
		slices.SortFunc(matches, func(x, y model.MatchResult) int {
			return cmp.Compare(x.A.Address(), y.A.Address())
		})
		next := out.Residual.Without(matches)

		stats := model.PhaseStats{
			Phase:             st.Type(),
			CandidatesA:       res.CandidatesA,
			CandidatesB:       res.CandidatesB,
			Matched:           len(matches),
			RemainingA:        len(next.A),
			RemainingB:        len(next.B),
			Comparisons:       res.Comparisons,
			Ambiguous:         res.Ambiguous,
			Elapsed:           time.Since(start),
			ReducedSignatures: res.ReducedSignatures,
			BudgetExceeded:    res.BudgetExceeded,
		}

		out.Results = append(out.Results, matches...)
		out.Phases = append(out.Phases, stats)
		out.Residual = next

		if p.onPhase != nil {
			p.onPhase(stats)
		}
	}

	return out, nil
}

// checkMatches rejects stage output that pairs a function outside the
// residual or pairs one function twice.
func checkMatches(t model.MatchType, in Residual, matches []model.MatchResult) error {
	inA := make(map[*model.Function]bool, len(in.A))
	for _, f := range in.A {
		inA[f] = true
	}
	inB := make(map[*model.Function]bool, len(in.B))
	for _, f := range in.B {
		inB[f] = true
	}

	seenA := make(map[*model.Function]bool, len(matches))
	seenB := make(map[*model.Function]bool, len(matches))
	for _, m := range matches {
		if !inA[m.A] || !inB[m.B] {
			return fmt.Errorf("phase %s: pair %s/%s is not in the residual", t, m.A.Label(), m.B.Label())
		}
		if seenA[m.A] || seenB[m.B] {
			return fmt.Errorf("phase %s: function paired twice in %s/%s", t, m.A.Label(), m.B.Label())
		}
		seenA[m.A], seenB[m.B] = true, true
	}
	return nil
}
