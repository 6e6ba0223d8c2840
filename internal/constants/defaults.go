// Package constants defines shared configuration constants and defaults.
package constants

// Acceptance thresholds.
const (
	// DefaultSimilarityThreshold is the minimum fuzzy similarity accepted.
	DefaultSimilarityThreshold = 0.6

	// DefaultConfidenceThreshold is the minimum fuzzy confidence accepted.
	DefaultConfidenceThreshold = 0.5

	// DefaultMDIndexTolerance is the gap under which two metadata index
	// values are considered equal.
	DefaultMDIndexTolerance = 1e-9

	// DefaultMarginScale is the margin at which fuzzy confidence saturates.
	DefaultMarginScale = 0.1
)

// Search bounds.
const (
	// DefaultStructuralStepBudget caps node assignments per isomorphism check.
	DefaultStructuralStepBudget = 50000

	// DefaultNearIsomorphismTolerance is the node/edge discrepancy allowance k.
	DefaultNearIsomorphismTolerance = 2

	// DefaultInstructionBucketWidth is the instruction-count bucket size.
	DefaultInstructionBucketWidth = 16

	// DefaultBlockBucketWidth is the block-count bucket size.
	DefaultBlockBucketWidth = 4

	// DefaultNGramSize is the mnemonic n-gram length used by Jaccard.
	DefaultNGramSize = 3
)

// Fixed phase confidences.
const (
	ConfidenceExact      = 1.0
	ConfidenceName       = 0.9
	ConfidenceMDIndex    = 0.75
	ConfidenceSPP        = 0.7
	ConfidenceStructural = 0.65
)
