package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

type floatFlag struct {
	name  string
	usage string
	field func(*DiffConfig) *float64
}

type intFlag struct {
	name  string
	usage string
	field func(*DiffConfig) *int
}

var floatFlags = []floatFlag{
	{"similarity-threshold", "minimum fuzzy similarity accepted", func(c *DiffConfig) *float64 { return &c.SimilarityThreshold }},
	{"confidence-threshold", "minimum fuzzy confidence accepted", func(c *DiffConfig) *float64 { return &c.ConfidenceThreshold }},
	{"md-index-tolerance", "metadata index equality tolerance", func(c *DiffConfig) *float64 { return &c.MDIndexTolerance }},
	{"margin-scale", "margin at which fuzzy confidence saturates", func(c *DiffConfig) *float64 { return &c.MarginScale }},
}

var intFlags = []intFlag{
	{"step-budget", "node assignments allowed per isomorphism check", func(c *DiffConfig) *int { return &c.StructuralStepBudget }},
	{"near-tolerance", "node/edge discrepancies allowed for near-isomorphism", func(c *DiffConfig) *int { return &c.NearIsomorphismTolerance }},
	{"instruction-bucket", "instruction-count bucket width", func(c *DiffConfig) *int { return &c.InstructionBucketWidth }},
	{"block-bucket", "block-count bucket width", func(c *DiffConfig) *int { return &c.BlockBucketWidth }},
	{"ngram", "mnemonic n-gram size", func(c *DiffConfig) *int { return &c.NGramSize }},
	{"workers", "worker goroutines (0 = GOMAXPROCS)", func(c *DiffConfig) *int { return &c.Workers }},
}

// RegisterFlags defines the diff tuning flags on fs with default values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultDiffConfig()
	for _, f := range floatFlags {
		fs.Float64(f.name, *f.field(d), f.usage)
	}
	for _, f := range intFlags {
		fs.Int(f.name, *f.field(d), f.usage)
	}
}

// ApplyFlags copies every flag the user set explicitly into cfg. Flags that
// were not registered on fs are ignored.
func ApplyFlags(fs *pflag.FlagSet, cfg *DiffConfig) error {
	for _, f := range floatFlags {
		if fs.Lookup(f.name) == nil || !fs.Changed(f.name) {
			continue
		}
		v, err := fs.GetFloat64(f.name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", f.name, err)
		}
		*f.field(cfg) = v
	}
	for _, f := range intFlags {
		if fs.Lookup(f.name) == nil || !fs.Changed(f.name) {
			continue
		}
		v, err := fs.GetInt(f.name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", f.name, err)
		}
		*f.field(cfg) = v
	}
	return nil
}
