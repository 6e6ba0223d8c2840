package config

import (
	"fmt"
	"math"
	"strings"
)

// Validator is the interface for validating configuration.
type Validator interface {
	Validate() error
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		builder.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// Validate validates DiffConfig. Every violation is reported, not just the first.
func (c *DiffConfig) Validate() error {
	var errors []ValidationError
	add := func(field, msg string) {
		errors = append(errors, ValidationError{Field: field, Message: msg})
	}

	if !inUnitInterval(c.SimilarityThreshold) {
		add("similarity_threshold", "similarity threshold must be within [0,1]")
	}
	if !inUnitInterval(c.ConfidenceThreshold) {
		add("confidence_threshold", "confidence threshold must be within [0,1]")
	}
	if !finite(c.MDIndexTolerance) || c.MDIndexTolerance < 0 {
		add("md_index_tolerance", "metadata index tolerance must be a non-negative number")
	}
	if c.StructuralStepBudget <= 0 {
		add("structural_step_budget", "structural step budget must be positive")
	}
	if c.NearIsomorphismTolerance < 0 {
		add("near_isomorphism_tolerance", "near-isomorphism tolerance must not be negative")
	}
	if c.InstructionBucketWidth <= 0 {
		add("instruction_bucket_width", "instruction bucket width must be positive")
	}
	if c.BlockBucketWidth <= 0 {
		add("block_bucket_width", "block bucket width must be positive")
	}
	if c.NGramSize <= 0 {
		add("ngram_size", "n-gram size must be positive")
	}
	if !finite(c.MarginScale) || c.MarginScale <= 0 {
		add("margin_scale", "margin scale must be positive")
	}
	if c.Workers < 0 {
		add("workers", "workers must not be negative")
	}

	md := c.MDIndexWeights
	if msg := checkWeights(md.Blocks, md.Edges, md.InDegree, md.OutDegree, md.Instructions); msg != "" {
		add("md_index_weights", msg)
	}
	fw := c.FuzzyWeights
	if msg := checkWeights(fw.Jaccard, fw.Cosine, fw.EditDistance); msg != "" {
		add("fuzzy_weights", msg)
	}

	if len(errors) > 0 {
		return &MultiValidationError{Errors: errors}
	}

	return nil
}

func checkWeights(ws ...float64) string {
	sum := 0.0
	for _, w := range ws {
		if !finite(w) || w < 0 {
			return "weights must be non-negative numbers"
		}
		sum += w
	}
	if sum <= 0 {
		return "weights must not all be zero"
	}
	return ""
}

func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
