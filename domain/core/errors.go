package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrDimensionMismatch = errors.New("feature name count does not match matrix columns")
	ErrInsufficientData  = errors.New("insufficient data for analysis")
	ErrInvalidLabels     = errors.New("labels must contain exactly two classes")
	ErrInvalidROICount   = errors.New("invalid ROI count")
	ErrNonFinite         = errors.New("feature matrix contains NaN or infinite values")

	// Model errors
	ErrNotFitted = errors.New("model is not fitted")
	ErrNoModels  = errors.New("no trained models supplied")

	// Lookup errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// NewDimensionError reports a feature-name/column mismatch with both sizes.
func NewDimensionError(names, columns int) error {
	return fmt.Errorf("%w: %d names for %d columns", ErrDimensionMismatch, names, columns)
}

// NewROICountError reports an ROI count that cannot produce the given layout.
func NewROICountError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidROICount, reason)
}

// IsNotFoundError reports whether err wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInputError reports whether err was caused by caller-supplied data.
func IsInputError(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrInvalidLabels) ||
		errors.Is(err, ErrInvalidROICount) ||
		errors.Is(err, ErrNonFinite)
}
