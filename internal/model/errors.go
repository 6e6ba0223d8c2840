package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFunction marks a raw function that could not be normalized.
	// The function is skipped; the run continues.
	ErrMalformedFunction = errors.New("malformed function")

	// ErrCancelled is returned when the caller cancels a diff before it completes.
	ErrCancelled = errors.New("diff cancelled by caller")

	// ErrInvalidConfig is returned before any phase runs when the configuration
	// fails validation.
	ErrInvalidConfig = errors.New("invalid diff configuration")
)

// MalformedFunctionError describes why a raw function was rejected.
type MalformedFunctionError struct {
	Address uint64
	Name    string
	Reason  string
}

// Error implements the error interface.
func (e *MalformedFunctionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("malformed function %s at 0x%x: %s", e.Name, e.Address, e.Reason)
	}
	return fmt.Sprintf("malformed function at 0x%x: %s", e.Address, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedFunction.
func (e *MalformedFunctionError) Unwrap() error {
	return ErrMalformedFunction
}

// Cancelled wraps a context error so that callers can test for both
// ErrCancelled and the underlying context error.
func Cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
