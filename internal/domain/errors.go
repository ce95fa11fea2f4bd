package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidText     = errors.New("invalid filter text")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidKind     = errors.New("invalid subscription kind")
)
