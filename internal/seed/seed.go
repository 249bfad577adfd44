// Package seed creates the demonstration users, rooms and bookings.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/persistence"
)

// UserCreator registers users.
type UserCreator interface {
	CreateUser(ctx context.Context, input application.UserInput) (persistence.User, error)
}

// RoomCreator adds rooms to the catalog.
type RoomCreator interface {
	CreateRoom(ctx context.Context, input application.RoomInput) (persistence.Room, error)
}

// BookingCreator creates bookings and sets their review status.
type BookingCreator interface {
	CreateBooking(ctx context.Context, input application.BookingInput) (persistence.Booking, []application.ConflictWarning, error)
	UpdateBookingStatus(ctx context.Context, id int64, status persistence.Status) (persistence.Booking, error)
}

// Result lists the records created by Defaults.
type Result struct {
	Users    []persistence.User
	Rooms    []persistence.Room
	Bookings []persistence.Booking
}

var defaultUsers = []application.UserInput{
	{Email: "admin@example.com", Password: "admin123", Role: persistence.RoleAdmin, Name: "Admin User"},
	{Email: "docente@example.com", Password: "docente123", Role: persistence.RoleInstructor, Name: "Docente User"},
	{Email: "studente@example.com", Password: "studente123", Role: persistence.RoleStudent, Name: "Studente User"},
}

var defaultRooms = []application.RoomInput{
	{Name: "A101", Capacity: 30, Building: "A", Floor: 1},
	{Name: "A102", Capacity: 25, Building: "A", Floor: 1},
	{Name: "B201", Capacity: 40, Building: "B", Floor: 2},
	{Name: "C301", Capacity: 50, Building: "C", Floor: 3},
}

// defaultBooking refers to users and rooms by their position in the default lists.
type defaultBooking struct {
	room, user int
	dayOffset  int
	start, end string
	reason     string
	status     persistence.Status
}

var defaultBookings = []defaultBooking{
	{room: 0, user: 2, dayOffset: 0, start: "14:00", end: "16:00", reason: "Lezione di Informatica", status: persistence.StatusPending},
	{room: 2, user: 1, dayOffset: 1, start: "10:00", end: "12:00", reason: "Riunione docenti", status: persistence.StatusApproved},
	{room: 3, user: 2, dayOffset: 2, start: "09:00", end: "11:00", reason: "Studio di gruppo", status: persistence.StatusRejected},
}

// Defaults creates three users (admin, instructor, student), four rooms and
// three bookings dated today, tomorrow and the day after relative to today.
// It stops at the first failure; records created before it are kept.
func Defaults(ctx context.Context, users UserCreator, rooms RoomCreator, bookings BookingCreator, today time.Time) (Result, error) {
	var result Result

	for _, input := range defaultUsers {
		user, err := users.CreateUser(ctx, input)
		if err != nil {
			return result, fmt.Errorf("seed user %s: %w", input.Email, err)
		}
		result.Users = append(result.Users, user)
	}

	for _, input := range defaultRooms {
		room, err := rooms.CreateRoom(ctx, input)
		if err != nil {
			return result, fmt.Errorf("seed room %s: %w", input.Name, err)
		}
		result.Rooms = append(result.Rooms, room)
	}

	for _, def := range defaultBookings {
		booking, _, err := bookings.CreateBooking(ctx, application.BookingInput{
			RoomID:    result.Rooms[def.room].ID,
			UserID:    result.Users[def.user].ID,
			Date:      today.AddDate(0, 0, def.dayOffset).Format(application.DateLayout),
			StartTime: def.start,
			EndTime:   def.end,
			Reason:    def.reason,
		})
		if err != nil {
			return result, fmt.Errorf("seed booking %q: %w", def.reason, err)
		}
		if def.status != persistence.StatusPending {
			booking, err = bookings.UpdateBookingStatus(ctx, booking.ID, def.status)
			if err != nil {
				return result, fmt.Errorf("seed booking %q status: %w", def.reason, err)
			}
		}
		result.Bookings = append(result.Bookings, booking)
	}
	return result, nil
}
