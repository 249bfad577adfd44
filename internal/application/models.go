package application

import "github.com/example/room-reservations/internal/persistence"

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email    string           `json:"email" validate:"required,email"`
	Password string           `json:"password" validate:"required"`
	Role     persistence.Role `json:"role" validate:"oneof=admin instructor student"`
	Name     string           `json:"name" validate:"required"`
}

// RoomInput captures caller provided room attributes.
type RoomInput struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"gt=0"`
	Building string `json:"building" validate:"required"`
	Floor    int    `json:"floor"`
}

// BookingInput captures caller provided booking attributes. Status and
// creation time are assigned by the service.
type BookingInput struct {
	RoomID    int64  `json:"roomId"`
	UserID    int64  `json:"userId"`
	Date      string `json:"date" validate:"required,isodate"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
	Reason    string `json:"reason" validate:"required"`
}

// ConflictWarning describes an active booking that overlaps a candidate.
type ConflictWarning struct {
	BookingID int64              `json:"bookingId"`
	RoomID    int64              `json:"roomId"`
	Date      string             `json:"date"`
	StartTime string             `json:"startTime"`
	EndTime   string             `json:"endTime"`
	Status    persistence.Status `json:"status"`
}

// DetailedBookings is the result of a joined booking query. Bookings whose
// room or user cannot be resolved are left out of Bookings and listed in Dangling.
type DetailedBookings struct {
	Bookings []persistence.BookingWithDetails `json:"bookings"`
	Dangling []int64                          `json:"dangling,omitempty"`
}

// Degraded reports whether any matching booking had to be excluded.
func (d DetailedBookings) Degraded() bool {
	return len(d.Dangling) > 0
}

// RoomCount is the number of bookings that reference a room.
type RoomCount struct {
	RoomID   int64  `json:"roomId"`
	RoomName string `json:"roomName"`
	Count    int    `json:"count"`
}

// UserSummary is a leaderboard entry.
type UserSummary struct {
	ID            int64            `json:"id"`
	Email         string           `json:"email"`
	Role          persistence.Role `json:"role"`
	TotalBookings int              `json:"totalBookings"`
	Approved      int              `json:"approved"`
	Rejected      int              `json:"rejected"`
}

// Trends compares the current window of booking dates with the one before it.
// Percentages are rounded to one decimal place.
type Trends struct {
	Computed     bool    `json:"computed"`
	WindowDays   int     `json:"windowDays"`
	CurrentFrom  string  `json:"currentFrom"`
	CurrentTo    string  `json:"currentTo"`
	PreviousFrom string  `json:"previousFrom"`
	PreviousTo   string  `json:"previousTo"`
	Total        float64 `json:"total"`
	Approved     float64 `json:"approved"`
	Rejected     float64 `json:"rejected"`
}

// Stats is the summary consumed by reporting surfaces.
type Stats struct {
	Total          int           `json:"total"`
	Pending        int           `json:"pending"`
	Approved       int           `json:"approved"`
	Rejected       int           `json:"rejected"`
	BookingsByRoom []RoomCount   `json:"bookingsByRoom"`
	TopUsers       []UserSummary `json:"topUsers"`
	Trends         Trends        `json:"trends"`
}
