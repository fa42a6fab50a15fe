package service

import (
	"errors"
	"strings"
)

var (
	// ErrPreconditionFailed marks operations rejected because a required
	// business condition does not hold (no open cash session, commission
	// overdraw).
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidState marks lifecycle transitions the current status does
	// not allow.
	ErrInvalidState = errors.New("invalid state")

	// ErrUpstream wraps persistence failures so callers can distinguish
	// infrastructure trouble from domain rejections.
	ErrUpstream = errors.New("upstream failure")

	// ErrUnauthorized covers bad credentials and calls made without the
	// required role. The message never says which check failed.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError aggregates every rule an input violates instead of failing
// on the first one.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func newValidationError(violations []string) *ValidationError {
	return &ValidationError{Violations: violations}
}
