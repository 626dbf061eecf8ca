// Package apperr defines the error taxonomy shared by the learning services.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotAuthenticated is returned when an operation needs an active identity.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound marks an unknown catalog entry or record.
	ErrNotFound = errors.New("not found")
	// ErrRemoteUnavailable marks the hosted record store as unreachable.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrInvalidCredentials is returned by sign-in for a wrong email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("already exists")
	// ErrUnsupported is returned by providers that cannot serve an operation.
	ErrUnsupported = errors.New("not available in fallback mode")
)

// NotEligibleError is returned when certification preconditions are unmet.
type NotEligibleError struct {
	Reason    string
	Completed int
	Passed    int
	Total     int
}

func (e *NotEligibleError) Error() string {
	return "not eligible: " + e.Reason
}

// ValidationError carries per-field validation failures.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation builds a ValidationError for a single field.
func NewValidation(field, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotEligible reports whether err is (or wraps) a NotEligibleError.
func IsNotEligible(err error) bool {
	var ne *NotEligibleError
	return errors.As(err, &ne)
}
