package config

import (
	"github.com/coral-mesh/bindiff/internal/constants"
	"github.com/coral-mesh/bindiff/internal/model"
)

// DefaultDiffConfig returns a diff config with the documented defaults.
func DefaultDiffConfig() *DiffConfig {
	return &DiffConfig{
		SimilarityThreshold:      constants.DefaultSimilarityThreshold,
		ConfidenceThreshold:      constants.DefaultConfidenceThreshold,
		MDIndexTolerance:         constants.DefaultMDIndexTolerance,
		StructuralStepBudget:     constants.DefaultStructuralStepBudget,
		NearIsomorphismTolerance: constants.DefaultNearIsomorphismTolerance,
		InstructionBucketWidth:   constants.DefaultInstructionBucketWidth,
		BlockBucketWidth:         constants.DefaultBlockBucketWidth,
		NGramSize:                constants.DefaultNGramSize,
		MarginScale:              constants.DefaultMarginScale,
		MDIndexWeights:           model.DefaultMDWeights(),
		FuzzyWeights:             model.DefaultFuzzyWeights(),
	}
}
