package persistence

import "time"

// Role identifies the privileges attached to a user account.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Status is the review state of a booking request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every booking status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// User represents an account that can request room bookings.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	Name         string `json:"name"`
}

// Room represents a bookable room. Rooms are reference data and never change after creation.
type Room struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Building string `json:"building"`
	Floor    int    `json:"floor"`
}

// Booking represents a request for a room on a given date and clock range.
//
// Date uses the YYYY-MM-DD layout and StartTime/EndTime use 24h HH:MM.
type Booking struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"roomId"`
	UserID    int64     `json:"userId"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Reason    string    `json:"reason"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookingWithDetails is a booking joined with the room and user it references.
type BookingWithDetails struct {
	Booking
	Room Room `json:"room"`
	User User `json:"user"`
}

// Snapshot is a point-in-time copy of every table and identifier counter.
type Snapshot struct {
	Users    []User
	Rooms    []Room
	Bookings []Booking
	// Next* hold the identifier the store will assign to the next record of each table.
	NextUserID    int64
	NextRoomID    int64
	NextBookingID int64
}
