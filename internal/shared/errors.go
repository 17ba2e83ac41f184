package shared

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing, expired or revoked token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness clash such as a duplicate username.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock indicates a sale larger than the stock on hand.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUpstreamUnavailable indicates the payment provider could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// FieldErrors carries per-field validation messages and matches ErrValidation.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	if len(f) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) succeed.
func (f FieldErrors) Unwrap() error {
	return ErrValidation
}

// Invalid builds a single-field validation error.
func Invalid(field, message string) error {
	return FieldErrors{field: message}
}
