// Package common defines shared constants and sentinel errors used across
// vulnreg components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Auth lifecycle errors.
	ErrNotConfigured     = errors.New("not configured")
	ErrAlreadyConfigured = errors.New("already configured")
	ErrWeakPassword      = errors.New("password too short")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrPersistence       = errors.New("persistence failure")

	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")
)
