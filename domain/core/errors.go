package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Pooling contract errors
	ErrInsufficientImputations = errors.New("insufficient imputations")
	ErrDegenerateVariance      = errors.New("degenerate pooled variance")
	ErrNonPositiveDF           = errors.New("non-positive degrees of freedom")
	ErrInvalidRecord           = errors.New("invalid imputation record")

	// Inference errors
	ErrInvalidConfidence = errors.New("confidence level must be strictly between 0 and 1")
)

// Error constructors with context
func NewRunNotFoundError(id RunID) error {
	return fmt.Errorf("%w with id %s", ErrRunNotFound, id)
}

func NewInsufficientImputationsError(coefficient string, m int) error {
	return fmt.Errorf("%w: coefficient %s has %d record(s), need at least 2", ErrInsufficientImputations, coefficient, m)
}

func NewDegenerateVarianceError(coefficient string, reason string) error {
	return fmt.Errorf("%w: coefficient %s: %s", ErrDegenerateVariance, coefficient, reason)
}

func NewNonPositiveDFError(coefficient string, df float64) error {
	return fmt.Errorf("%w: coefficient %s has df %g", ErrNonPositiveDF, coefficient, df)
}

func NewInvalidRecordError(coefficient string, reason string) error {
	return fmt.Errorf("%w: coefficient %s: %s", ErrInvalidRecord, coefficient, reason)
}

func NewInvalidConfidenceError(level float64) error {
	return fmt.Errorf("%w: got %g", ErrInvalidConfidence, level)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsPoolingError(err error) bool {
	return errors.Is(err, ErrInsufficientImputations) ||
		errors.Is(err, ErrDegenerateVariance) ||
		errors.Is(err, ErrNonPositiveDF) ||
		errors.Is(err, ErrInvalidRecord)
}

func IsInferenceError(err error) bool {
	return errors.Is(err, ErrInvalidConfidence)
}
