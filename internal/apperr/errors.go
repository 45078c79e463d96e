// Package apperr holds the sentinel errors shared across packages. Callers
// wrap them with context and test with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrDecode          = errors.New("decode failure")
	ErrEmptyNote       = errors.New("empty note")
	ErrEditor          = errors.New("editor failure")
	ErrAmbiguousTarget = errors.New("ambiguous target")
	ErrIO              = errors.New("io failure")
	ErrInvalidID       = errors.New("invalid identifier")
	ErrConflict        = errors.New("conflict")
)
