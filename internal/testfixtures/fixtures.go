// Package testfixtures builds deterministic inputs and wired services for tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/persistence"
)

var (
	userCounter uint64
	roomCounter uint64
)

var referenceTime = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserOption configures a generated user input.
type UserOption func(*application.UserInput)

// NewUserInput returns a valid registration with a unique email.
func NewUserInput(opts ...UserOption) application.UserInput {
	idx := atomic.AddUint64(&userCounter, 1)
	input := application.UserInput{
		Email:    fmt.Sprintf("user-%03d@example.com", idx),
		Password: fmt.Sprintf("password-%03d", idx),
		Role:     persistence.RoleStudent,
		Name:     fmt.Sprintf("User %03d", idx),
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithEmail overrides the generated email address.
func WithEmail(email string) UserOption {
	return func(in *application.UserInput) { in.Email = email }
}

// WithPassword overrides the generated password.
func WithPassword(password string) UserOption {
	return func(in *application.UserInput) { in.Password = password }
}

// WithRole overrides the default student role.
func WithRole(role persistence.Role) UserOption {
	return func(in *application.UserInput) { in.Role = role }
}

// ----------------------------- Room fixtures -----------------------------

// RoomOption configures a generated room input.
type RoomOption func(*application.RoomInput)

// NewRoomInput returns a valid room with a unique name.
func NewRoomInput(opts ...RoomOption) application.RoomInput {
	idx := atomic.AddUint64(&roomCounter, 1)
	input := application.RoomInput{
		Name:     fmt.Sprintf("R%03d", idx),
		Capacity: 20,
		Building: "A",
		Floor:    1,
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(in *application.RoomInput) { in.Name = name }
}

// WithCapacity overrides the default capacity.
func WithCapacity(capacity int) RoomOption {
	return func(in *application.RoomInput) { in.Capacity = capacity }
}

// --------------------------- Booking fixtures ----------------------------

// BookingOption configures a generated booking input.
type BookingOption func(*application.BookingInput)

// NewBookingInput returns a one hour morning booking on the reference date.
func NewBookingInput(roomID, userID int64, opts ...BookingOption) application.BookingInput {
	input := application.BookingInput{
		RoomID:    roomID,
		UserID:    userID,
		Date:      referenceTime.Format(application.DateLayout),
		StartTime: "09:00",
		EndTime:   "10:00",
		Reason:    "Study session",
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// OnDate overrides the booking date.
func OnDate(date string) BookingOption {
	return func(in *application.BookingInput) { in.Date = date }
}

// Between overrides the booking clock range.
func Between(start, end string) BookingOption {
	return func(in *application.BookingInput) {
		in.StartTime = start
		in.EndTime = end
	}
}

// WithReason overrides the booking reason.
func WithReason(reason string) BookingOption {
	return func(in *application.BookingInput) { in.Reason = reason }
}
