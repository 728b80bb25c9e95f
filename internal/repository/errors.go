package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a unique constraint was violated.
	ErrConflict = errors.New("repository: conflict")
)

// ConflictError carries the name of the violated unique constraint so
// callers can report the offending field. It matches ErrConflict under
// errors.Is.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("repository: conflict on %s", e.Constraint)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
