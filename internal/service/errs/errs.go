package errs

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an order with the same idempotency key already exists.
	ErrConflict = errors.New("conflicting data")
	// ErrStatusFinal is returned when a status transition is attempted on an order
	// that already left NEW.
	ErrStatusFinal = errors.New("order status is final")
)

// ValidationError carries messages keyed by request field. Cart line problems
// are reported under the "items" key.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}
