package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique attribute is already taken.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrInvalidReference is returned when a record points at a missing user or room.
	ErrInvalidReference = errors.New("persistence: invalid reference")
)

// ReferenceError names the booking field whose user or room is missing.
type ReferenceError struct {
	Field string
	ID    int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("persistence: %s %d does not exist", e.Field, e.ID)
}

// Unwrap lets errors.Is match ErrInvalidReference.
func (e *ReferenceError) Unwrap() error { return ErrInvalidReference }
