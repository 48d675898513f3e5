package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no assignment exists for the given id.
	ErrNotFound = errors.New("assignment not found")

	// ErrForbidden is returned when the actor is not the owner of the
	// assignment. Distinct from ErrNotFound so callers can report 403 vs 404.
	ErrForbidden = errors.New("assignment belongs to another user")
)

// ValidationError carries per-field messages for rejected input. It is
// produced before any persistence or scoring happens.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}
