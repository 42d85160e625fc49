package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation and decode outcomes.
var (
	ErrVINLength     = errors.New("VIN must be exactly 17 characters")
	ErrVINCharacters = errors.New("VIN contains invalid characters (I, O, and Q are not used)")
	ErrVINFormat     = errors.New("VIN format is invalid")

	// ErrNoData means every source responded but none produced identifying
	// vehicle data. Callers treat this as a distinct outcome, not a failure
	// worth retrying with the same VIN.
	ErrNoData = errors.New("no vehicle data found for VIN")

	// ErrUpstream wraps network or API failures from the decode sources.
	ErrUpstream = errors.New("vehicle data source unavailable")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
