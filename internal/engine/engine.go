// Package engine runs a complete diff of two snapshots: it validates the
// configuration, builds the per-run feature index, drives the six matching
// phases and assembles the match set.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/bindiff/internal/aggregate"
	"github.com/coral-mesh/bindiff/internal/config"
	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/phase"
)

// ErrFunctionNotFound is returned by MatchOne for an unknown address.
var ErrFunctionNotFound = errors.New("function not found")

// ProgressEvent is reported after every completed phase. ProcessedA and
// ProcessedB count the functions of each side the phase considered.
type ProgressEvent struct {
	RunID      string
	Phase      model.MatchType
	ProcessedA int
	ProcessedB int
	Matched    int
	RemainingA int
	RemainingB int
	Elapsed    time.Duration
}

// Config configures an Engine.
type Config struct {
	// Logger receives run and phase events. Defaults to a disabled logger.
	Logger *zerolog.Logger
	// Progress, when set, is called synchronously after every phase.
	Progress func(ProgressEvent)
}

// Engine diffs snapshots. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	logger   zerolog.Logger
	progress func(ProgressEvent)
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "engine").Logger()
	}
	return &Engine{logger: logger, progress: cfg.Progress}
}

// Diff matches the functions of a against those of b. Either snapshot may
// be nil or empty. Errors are limited to invalid configuration
// (model.ErrInvalidConfig) and cancellation (model.ErrCancelled).
func (e *Engine) Diff(ctx context.Context, a, b *model.Snapshot, cfg config.DiffConfig) (*model.MatchSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}
	a, b = orEmpty(a), orEmpty(b)
	if err := ctx.Err(); err != nil {
		return nil, model.Cancelled(err)
	}

	runID := uuid.NewString()
	logger := e.logger.With().
		Str("run_id", runID).
		Str("binary_a", a.ID()).
		Str("binary_b", b.ID()).
		Logger()

	e.logRejected(logger, a)
	e.logRejected(logger, b)

	start := time.Now()
	logger.Info().
		Int("functions_a", a.Len()).
		Int("functions_b", b.Len()).
		Int("workers", cfg.Workers).
		Msg("Diff started")

	if a.Len() == 0 || b.Len() == 0 {
		logger.Info().Msg("Empty snapshot, nothing to match")
		return aggregate.Build(a, b, nil, nil), nil
	}

	env, err := phase.NewEnv(ctx, a, b, cfg)
	if err != nil {
		return nil, cancelledOr(ctx, err)
	}
	logger.Debug().Int("vocabulary", env.Vocabulary().Len()).Msg("Feature index built")

	pipeline := phase.NewPipeline().
		OnStart(func(t model.MatchType, in phase.Residual) {
			logger.Debug().
				Str("phase", string(t)).
				Int("remaining_a", len(in.A)).
				Int("remaining_b", len(in.B)).
				Msg("Phase started")
		}).
		OnPhase(func(st model.PhaseStats) {
			e.phaseDone(logger, runID, st)
		})

	out, err := pipeline.Run(ctx, env, phase.NewResidual(a, b))
	if err != nil {
		logger.Warn().Err(err).Msg("Diff aborted")
		return nil, cancelledOr(ctx, err)
	}

	set := aggregate.Build(a, b, out.Results, out.Phases)
	logger.Info().
		Int("matched", set.Stats.Matched).
		Int("unmatched_a", len(set.UnmatchedA)).
		Int("unmatched_b", len(set.UnmatchedB)).
		Float64("overall_similarity", set.Stats.OverallSimilarity).
		Dur("elapsed", time.Since(start)).
		Msg("Diff completed")
	return set, nil
}

// MatchOne ranks the functions of b against the function of a at addr by
// fuzzy similarity. Only candidates passing both thresholds are returned,
// highest confidence first.
func (e *Engine) MatchOne(ctx context.Context, a, b *model.Snapshot, addr uint64, cfg config.DiffConfig) ([]model.MatchCandidate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}
	a, b = orEmpty(a), orEmpty(b)
	f, ok := a.Lookup(addr)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x in %s", ErrFunctionNotFound, addr, a.ID())
	}

	env, err := phase.NewEnv(ctx, a, b, cfg)
	if err != nil {
		return nil, cancelledOr(ctx, err)
	}

	pool := make([]*model.Function, 0, b.Len())
	for _, g := range b.Functions() {
		if !g.Degenerate() {
			pool = append(pool, g)
		}
	}

	cands, err := phase.RankCandidates(ctx, env, f, pool)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().
		Str("function", f.Label()).
		Int("pool", len(pool)).
		Int("candidates", len(cands)).
		Msg("Single function ranked")
	return cands, nil
}

func (e *Engine) phaseDone(logger zerolog.Logger, runID string, st model.PhaseStats) {
	ev := logger.Info()
	if st.Matched == 0 {
		ev = logger.Debug()
	}
	ev.Str("phase", string(st.Phase)).
		Int("matched", st.Matched).
		Int("remaining_a", st.RemainingA).
		Int("remaining_b", st.RemainingB).
		Int("comparisons", st.Comparisons).
		Int("ambiguous", st.Ambiguous).
		Dur("elapsed", st.Elapsed).
		Msg("Phase completed")

	if st.BudgetExceeded > 0 {
		logger.Warn().Int("count", st.BudgetExceeded).Msg("Isomorphism search budget exceeded")
	}
	if st.ReducedSignatures > 0 {
		logger.Debug().Int("count", st.ReducedSignatures).Msg("Small-primes products reduced modulo 2^61-1")
	}

	if e.progress != nil {
		e.progress(ProgressEvent{
			RunID:      runID,
			Phase:      st.Phase,
			ProcessedA: st.CandidatesA,
			ProcessedB: st.CandidatesB,
			Matched:    st.Matched,
			RemainingA: st.RemainingA,
			RemainingB: st.RemainingB,
			Elapsed:    st.Elapsed,
		})
	}
}

func (e *Engine) logRejected(logger zerolog.Logger, s *model.Snapshot) {
	for _, r := range s.Rejected() {
		logger.Warn().
			Str("binary", s.ID()).
			Str("address", fmt.Sprintf("0x%x", r.Address)).
			Str("name", r.Name).
			Str("reason", r.Reason).
			Msg("Skipping malformed function")
	}
}

func orEmpty(s *model.Snapshot) *model.Snapshot {
	if s != nil {
		return s
	}
	empty, _ := model.NewSnapshot("", nil, nil)
	return empty
}

// cancelledOr maps errors caused by cancellation to model.ErrCancelled.
func cancelledOr(ctx context.Context, err error) error {
	if errors.Is(err, model.ErrCancelled) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.Cancelled(ctxErr)
	}
	return err
}

// Diff runs a diff with a default engine.
func Diff(ctx context.Context, a, b *model.Snapshot, cfg config.DiffConfig) (*model.MatchSet, error) {
	return New(Config{}).Diff(ctx, a, b, cfg)
}
