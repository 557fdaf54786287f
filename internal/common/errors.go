// Package common defines shared constants and sentinel errors used across
// audiokeeper layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorInvalidInput = errors.New("invalid input")
	ErrorUpstream     = errors.New("upstream failure")

	// ErrIllegalPath is returned when a resolved path falls outside the
	// sandbox root of the operation. It matches ErrorInvalidInput.
	ErrIllegalPath = fmt.Errorf("illegal path: %w", ErrorInvalidInput)
)
