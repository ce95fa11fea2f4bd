package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound        = errors.New("not found")
	ErrReadOnly        = errors.New("subscription is read-only")
	ErrIndexMismatch   = errors.New("filter index mismatch")
	ErrInvalidHitCount = errors.New("invalid hit count")
)
