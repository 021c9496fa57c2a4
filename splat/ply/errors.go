package ply

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package unwraps to exactly one
// of these, so callers can classify failures with errors.Is without knowing
// the concrete type.
var (
	// ErrFormat marks a malformed or unsupported file structure.
	ErrFormat = errors.New("ply: format error")

	// ErrDecode marks an I/O failure while reading payload data.
	ErrDecode = errors.New("ply: decode error")
)

// MissingPropertyError reports a required vertex property that is absent
// from the header.
type MissingPropertyError struct {
	Property string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("ply: vertex element is missing required property %q", e.Property)
}

func (e *MissingPropertyError) Unwrap() error { return ErrFormat }

// TypeMismatchError reports a vertex property whose declared type cannot be
// coerced to float32, such as a list property at a scalar slot.
type TypeMismatchError struct {
	Property string
	Type     string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("ply: property %q has non-numeric type %s", e.Property, e.Type)
}

func (e *TypeMismatchError) Unwrap() error { return ErrFormat }
