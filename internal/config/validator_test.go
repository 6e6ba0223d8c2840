package config

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *DiffConfig)
		fields []string
	}{
		{name: "defaults", mutate: func(*DiffConfig) {}},
		{
			name:   "similarity above one",
			mutate: func(c *DiffConfig) { c.SimilarityThreshold = 1.01 },
			fields: []string{"similarity_threshold"},
		},
		{
			name:   "confidence negative",
			mutate: func(c *DiffConfig) { c.ConfidenceThreshold = -0.1 },
			fields: []string{"confidence_threshold"},
		},
		{
			name:   "nan threshold",
			mutate: func(c *DiffConfig) { c.SimilarityThreshold = math.NaN() },
			fields: []string{"similarity_threshold"},
		},
		{
			name:   "boundaries allowed",
			mutate: func(c *DiffConfig) { c.SimilarityThreshold, c.ConfidenceThreshold = 0, 1 },
		},
		{
			name: "search bounds",
			mutate: func(c *DiffConfig) {
				c.StructuralStepBudget = 0
				c.NearIsomorphismTolerance = -1
				c.InstructionBucketWidth = 0
				c.BlockBucketWidth = -2
				c.NGramSize = 0
			},
			fields: []string{
				"structural_step_budget", "near_isomorphism_tolerance",
				"instruction_bucket_width", "block_bucket_width", "ngram_size",
			},
		},
		{
			name: "zero fuzzy weights",
			mutate: func(c *DiffConfig) {
				c.FuzzyWeights.Jaccard = 0
				c.FuzzyWeights.Cosine = 0
				c.FuzzyWeights.EditDistance = 0
			},
			fields: []string{"fuzzy_weights"},
		},
		{
			name:   "negative md weight",
			mutate: func(c *DiffConfig) { c.MDIndexWeights.Edges = -1 },
			fields: []string{"md_index_weights"},
		},
		{
			name:   "tolerance and margin",
			mutate: func(c *DiffConfig) { c.MDIndexTolerance, c.MarginScale, c.Workers = -1, 0, -1 },
			fields: []string{"md_index_tolerance", "margin_scale", "workers"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDiffConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var multi *MultiValidationError
			require.True(t, errors.As(err, &multi))
			var got []string
			for _, e := range multi.Errors {
				got = append(got, e.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestMultiValidationError_Error(t *testing.T) {
	single := &MultiValidationError{Errors: []ValidationError{{Field: "a", Message: "bad"}}}
	assert.Equal(t, "a: bad", single.Error())

	multi := &MultiValidationError{Errors: []ValidationError{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}}
	assert.Contains(t, multi.Error(), "validation failed with 2 errors")
	assert.Contains(t, multi.Error(), "2. b: worse")

	assert.Equal(t, "no validation errors", (&MultiValidationError{}).Error())
}
