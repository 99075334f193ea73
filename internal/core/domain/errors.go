package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input. Input
	// contract violations are the only errors that propagate to callers
	// instead of degrading.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no reader can handle the file.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNotReady indicates an optional backend has no model loaded.
	// Callers should skip straight to the fallback.
	ErrNotReady = errors.New("service not ready")
)
