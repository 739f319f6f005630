// Package errs defines the error taxonomy shared by the domain stores.
// Validation, duplicate, and not-found conditions are recoverable and meant
// to be branched on with errors.Is / errors.As; anything else that comes out
// of a store is a storage-engine failure and should be treated as fatal to
// the operation that hit it.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate reports a candidate-key collision: another record with
	// the same identifying tuple already exists.
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotFound reports that no record exists for the given identifier.
	ErrNotFound = errors.New("record not found")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Required returns a ValidationError for an empty required field.
func Required(field string) error {
	return &ValidationError{Field: field}
}

// Invalid returns a ValidationError for a present but malformed field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
