// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Conflict errors, raised when a unique constraint is violated.
	ErrorUsernameExists = errors.New("username already registered")
	ErrorEmailExists    = errors.New("email already registered")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors. ErrorValidation is wrapped with the specific rule
	// that was violated, e.g. fmt.Errorf("%w: %s", ErrorValidation, rule).
	ErrorValidation       = errors.New("validation error")
	ErrorPasswordMismatch = errors.New("passwords do not match")
)
