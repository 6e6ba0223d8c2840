// Package config provides configuration loading and management.
package config

import "github.com/coral-mesh/bindiff/internal/model"

// DiffConfig carries every tunable of a diff run.
type DiffConfig struct {
	// SimilarityThreshold is the minimum fuzzy similarity accepted (inclusive).
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold" env:"BINDIFF_SIMILARITY_THRESHOLD"`

	// ConfidenceThreshold is the minimum fuzzy confidence accepted (inclusive).
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold" env:"BINDIFF_CONFIDENCE_THRESHOLD"`

	// MDIndexTolerance is ε: metadata index values closer than this are equal.
	MDIndexTolerance float64 `yaml:"md_index_tolerance" json:"md_index_tolerance" env:"BINDIFF_MD_INDEX_TOLERANCE"`

	// StructuralStepBudget caps the node assignments of one isomorphism check.
	StructuralStepBudget int `yaml:"structural_step_budget" json:"structural_step_budget" env:"BINDIFF_STRUCTURAL_STEP_BUDGET"`

	// NearIsomorphismTolerance is k, the node/edge discrepancies accepted for a
	// near-isomorphic pair. Zero disables near-isomorphism.
	NearIsomorphismTolerance int `yaml:"near_isomorphism_tolerance" json:"near_isomorphism_tolerance" env:"BINDIFF_NEAR_ISOMORPHISM_TOLERANCE"`

	// InstructionBucketWidth and BlockBucketWidth size the fuzzy candidate buckets.
	InstructionBucketWidth int `yaml:"instruction_bucket_width" json:"instruction_bucket_width" env:"BINDIFF_INSTRUCTION_BUCKET_WIDTH"`
	BlockBucketWidth       int `yaml:"block_bucket_width" json:"block_bucket_width" env:"BINDIFF_BLOCK_BUCKET_WIDTH"`

	// NGramSize is the mnemonic n-gram length for Jaccard similarity.
	NGramSize int `yaml:"ngram_size" json:"ngram_size" env:"BINDIFF_NGRAM_SIZE"`

	// MarginScale is the lead over the next-best alternative at which fuzzy
	// confidence reaches the similarity itself.
	MarginScale float64 `yaml:"margin_scale" json:"margin_scale" env:"BINDIFF_MARGIN_SCALE"`

	// Workers bounds parallelism. Zero means GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers" env:"BINDIFF_WORKERS"`

	MDIndexWeights model.MDWeights    `yaml:"md_index_weights" json:"md_index_weights"`
	FuzzyWeights   model.FuzzyWeights `yaml:"fuzzy_weights" json:"fuzzy_weights"`
}
