package phase

import (
	"context"
	"fmt"

	"github.com/coral-mesh/bindiff/internal/config"
	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/similarity"
	"github.com/coral-mesh/bindiff/internal/vocab"
	"github.com/coral-mesh/bindiff/internal/workpool"
)

// Features are the run-dependent values of one function. They depend on the
// configuration and on the vocabulary of both snapshots, so they cannot live
// on the function record itself.
type Features struct {
	MDIndex   float64
	Signature uint64
	// Reduced is set when the small-primes product wrapped the modulus.
	Reduced bool
	NGrams  []uint64
	Encoded []rune
}

// Env is the read-only per-run context shared by every stage.
type Env struct {
	cfg      config.DiffConfig
	vocab    *vocab.Vocabulary
	features map[*model.Function]*Features
}

// NewEnv builds the shared vocabulary and computes every function's features
// on a worker pool.
func NewEnv(ctx context.Context, a, b *model.Snapshot, cfg config.DiffConfig) (*Env, error) {
	env := &Env{
		cfg:   cfg,
		vocab: vocab.Build(a, b),
	}

	all := make([]*model.Function, 0, a.Len()+b.Len())
	all = append(all, a.Functions()...)
	all = append(all, b.Functions()...)

	feats, err := workpool.Map(ctx, all, cfg.Workers, func(_ context.Context, f *model.Function) (*Features, error) {
		return env.compute(f), nil
	})
	if err != nil {
		return nil, fmt.Errorf("compute features: %w", err)
	}

	env.features = make(map[*model.Function]*Features, len(all))
	for i, f := range all {
		env.features[f] = feats[i]
	}
	return env, nil
}

func (e *Env) compute(f *model.Function) *Features {
	sig, reduced := e.vocab.Signature(f.Histogram())
	return &Features{
		MDIndex:   model.MetadataIndex(f.Counts(), e.cfg.MDIndexWeights),
		Signature: sig,
		Reduced:   reduced,
		NGrams:    similarity.NGrams(f.Mnemonics(), e.cfg.NGramSize),
		Encoded:   e.vocab.Encode(f.Mnemonics()),
	}
}

// Config returns the run configuration.
func (e *Env) Config() config.DiffConfig { return e.cfg }

// Vocabulary returns the shared mnemonic vocabulary.
func (e *Env) Vocabulary() *vocab.Vocabulary { return e.vocab }

// Features returns the features of f. Functions that were not part of either
// snapshot are computed on demand.
func (e *Env) Features(f *model.Function) *Features {
	if ft, ok := e.features[f]; ok {
		return ft
	}
	return e.compute(f)
}
