package persistence

import "context"

// UserRepository stores user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// RoomRepository stores the room catalog.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// BookingFilter narrows booking queries. Every non-nil field must match (AND).
//
// DateFrom and DateTo bound Date inclusively; both compare lexically, which is
// chronological for the YYYY-MM-DD layout.
type BookingFilter struct {
	UserID   *int64
	RoomID   *int64
	Date     *string
	Status   *Status
	DateFrom *string
	DateTo   *string
}

// Matches reports whether the booking satisfies every constraint of the filter.
func (f BookingFilter) Matches(b Booking) bool {
	if f.UserID != nil && b.UserID != *f.UserID {
		return false
	}
	if f.RoomID != nil && b.RoomID != *f.RoomID {
		return false
	}
	if f.Date != nil && b.Date != *f.Date {
		return false
	}
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	if f.DateFrom != nil && b.Date < *f.DateFrom {
		return false
	}
	if f.DateTo != nil && b.Date > *f.DateTo {
		return false
	}
	return true
}

// BookingRepository stores booking requests.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status Status) (Booking, error)
}

// SnapshotStore persists and restores complete snapshots of the entity tables.
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	Close() error
}

// BookingGuard inspects the bookings already stored for the candidate's room
// and date. Returning an error aborts the create.
type BookingGuard func(sameSlot []Booking) error

// GuardedBookingCreator is implemented by stores that can run a guard and the
// insert it protects as one atomic step.
type GuardedBookingCreator interface {
	CreateBookingWithGuard(ctx context.Context, booking Booking, guard BookingGuard) (Booking, error)
}

// StatusSwapper is implemented by stores that report the status a booking had
// immediately before the update, read under the same lock as the write.
type StatusSwapper interface {
	SwapBookingStatus(ctx context.Context, id int64, status Status) (updated Booking, previous Status, err error)
}
