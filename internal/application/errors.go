package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/room-reservations/internal/persistence"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute such as an email is taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidReference is returned when a booking names a missing room or user.
	ErrInvalidReference = fmt.Errorf("application: invalid reference: %w", ErrNotFound)
	// ErrConflict is returned when a booking overlaps an active booking and the policy rejects it.
	ErrConflict = errors.New("application: booking conflict")
	// ErrDanglingReference is returned when a stored booking points at a room or user that is gone.
	ErrDanglingReference = fmt.Errorf("application: dangling reference: %w", ErrNotFound)
	// ErrInvalidCredentials is returned when an email and password do not match a user.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// InvalidReferenceError names the booking field whose referenced record is missing.
type InvalidReferenceError struct {
	Field string
	ID    int64
}

// Error implements the error interface.
func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("%s %d does not exist", e.Field, e.ID)
}

// Unwrap lets errors.Is match ErrInvalidReference and ErrNotFound.
func (e *InvalidReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// ConflictError carries the bookings that made a candidate booking unacceptable.
type ConflictError struct {
	Warnings []ConflictWarning
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.Warnings))
	for _, w := range e.Warnings {
		ids = append(ids, fmt.Sprint(w.BookingID))
	}
	return fmt.Sprintf("booking overlaps bookings %s", strings.Join(ids, ", "))
}

// Unwrap lets errors.Is match ErrConflict.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, ok := v.FieldErrors[field]; ok {
		return
	}
	v.FieldErrors[field] = message
}

// mapRepoError translates persistence sentinels into service errors.
func mapRepoError(err error) error {
	var refErr *persistence.ReferenceError
	if errors.As(err, &refErr) {
		return &InvalidReferenceError{Field: refErr.Field, ID: refErr.ID}
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrInvalidReference):
		return ErrInvalidReference
	}
	return err
}
