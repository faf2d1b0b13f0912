package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound: the requested entity (document slot, reservation) has no
	// current value.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized: missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden: authenticated caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreUnavailable: a downstream store call failed.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field errors. It is returned before any remote
// call is made.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
