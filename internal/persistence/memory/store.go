// Package memory holds the authoritative in-memory tables for users, rooms and bookings.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/example/room-reservations/internal/persistence"
)

var (
	_ persistence.UserRepository    = (*Store)(nil)
	_ persistence.RoomRepository    = (*Store)(nil)
	_ persistence.BookingRepository = (*Store)(nil)

	_ persistence.GuardedBookingCreator = (*Store)(nil)
	_ persistence.StatusSwapper         = (*Store)(nil)
)

// Store is an explicitly constructed, concurrency-safe entity store.
//
// All tables share one lock so that cross-table checks (email uniqueness,
// booking foreign keys) and identifier assignment happen atomically with the
// write they guard.
type Store struct {
	mu sync.RWMutex

	users    map[int64]persistence.User
	rooms    map[int64]persistence.Room
	bookings map[int64]persistence.Booking

	userOrder    []int64
	roomOrder    []int64
	bookingOrder []int64

	nextUserID    int64
	nextRoomID    int64
	nextBookingID int64

	version uint64
}

// New returns an empty store whose counters start at 1.
func New() *Store {
	s := &Store{}
	s.resetLocked()
	return s
}

// Reset discards every record and restarts all identifier counters.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.version++
}

func (s *Store) resetLocked() {
	s.users = make(map[int64]persistence.User)
	s.rooms = make(map[int64]persistence.Room)
	s.bookings = make(map[int64]persistence.Booking)
	s.userOrder = nil
	s.roomOrder = nil
	s.bookingOrder = nil
	s.nextUserID = 1
	s.nextRoomID = 1
	s.nextBookingID = 1
}

// Version returns a counter that changes after every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// --- UserRepository implementation ---

// CreateUser assigns the next user id and stores the record.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureUniqueEmailLocked(user.Email); err != nil {
		return persistence.User{}, err
	}

	user.ID = s.nextUserID
	s.nextUserID++
	s.users[user.ID] = user
	s.userOrder = append(s.userOrder, user.ID)
	s.version++
	return user, nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.userOrder {
		if user := s.users[id]; strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users in creation order.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, s.users[id])
	}
	return users, nil
}

func (s *Store) ensureUniqueEmailLocked(email string) error {
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return fmt.Errorf("memory: email %s: %w", email, persistence.ErrDuplicate)
		}
	}
	return nil
}

// --- RoomRepository implementation ---

// CreateRoom assigns the next room id and stores the record.
func (s *Store) CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rooms {
		if existing.Name == room.Name {
			return persistence.Room{}, fmt.Errorf("memory: room name %s: %w", room.Name, persistence.ErrDuplicate)
		}
	}

	room.ID = s.nextRoomID
	s.nextRoomID++
	s.rooms[room.ID] = room
	s.roomOrder = append(s.roomOrder, room.ID)
	s.version++
	return room, nil
}

// GetRoom retrieves a room by id.
func (s *Store) GetRoom(ctx context.Context, id int64) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

// ListRooms returns all rooms in creation order.
func (s *Store) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.roomOrder))
	for _, id := range s.roomOrder {
		rooms = append(rooms, s.rooms[id])
	}
	return rooms, nil
}

// --- BookingRepository implementation ---

// CreateBooking assigns the next booking id, forces the pending status and
// stores the record. The referenced room and user must exist.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	return s.CreateBookingWithGuard(ctx, booking, nil)
}

// CreateBookingWithGuard inserts booking after guard accepts the bookings
// already held for the same room and date. Both run under the write lock, so
// no other booking can slip in between the check and the insert.
func (s *Store) CreateBookingWithGuard(ctx context.Context, booking persistence.Booking, guard persistence.BookingGuard) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[booking.UserID]; !ok {
		return persistence.Booking{}, fmt.Errorf("memory: create booking: %w", &persistence.ReferenceError{Field: "user_id", ID: booking.UserID})
	}
	if _, ok := s.rooms[booking.RoomID]; !ok {
		return persistence.Booking{}, fmt.Errorf("memory: create booking: %w", &persistence.ReferenceError{Field: "room_id", ID: booking.RoomID})
	}

	if guard != nil {
		var sameSlot []persistence.Booking
		for _, id := range s.bookingOrder {
			existing := s.bookings[id]
			if existing.RoomID == booking.RoomID && existing.Date == booking.Date {
				sameSlot = append(sameSlot, existing)
			}
		}
		if err := guard(sameSlot); err != nil {
			return persistence.Booking{}, err
		}
	}

	booking.ID = s.nextBookingID
	s.nextBookingID++
	booking.Status = persistence.StatusPending
	s.bookings[booking.ID] = booking
	s.bookingOrder = append(s.bookingOrder, booking.ID)
	s.version++
	return booking, nil
}

// GetBooking retrieves a booking by id.
func (s *Store) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

// ListBookings returns bookings matching the filter in creation order.
func (s *Store) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := make([]persistence.Booking, 0)
	for _, id := range s.bookingOrder {
		booking := s.bookings[id]
		if !filter.Matches(booking) {
			continue
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

// UpdateBookingStatus replaces the status of an existing booking. Concurrent
// updates to the same booking are last-write-wins.
func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, status persistence.Status) (persistence.Booking, error) {
	booking, _, err := s.SwapBookingStatus(ctx, id, status)
	return booking, err
}

// SwapBookingStatus is UpdateBookingStatus that also returns the replaced status.
func (s *Store) SwapBookingStatus(ctx context.Context, id int64, status persistence.Status) (persistence.Booking, persistence.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, "", persistence.ErrNotFound
	}

	previous := booking.Status
	booking.Status = status
	s.bookings[id] = booking
	s.version++
	return booking, previous, nil
}

// --- Snapshots ---

// Export copies every table and counter into a snapshot.
func (s *Store) Export() persistence.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := persistence.Snapshot{
		Users:         make([]persistence.User, 0, len(s.userOrder)),
		Rooms:         make([]persistence.Room, 0, len(s.roomOrder)),
		Bookings:      make([]persistence.Booking, 0, len(s.bookingOrder)),
		NextUserID:    s.nextUserID,
		NextRoomID:    s.nextRoomID,
		NextBookingID: s.nextBookingID,
	}
	for _, id := range s.userOrder {
		snapshot.Users = append(snapshot.Users, s.users[id])
	}
	for _, id := range s.roomOrder {
		snapshot.Rooms = append(snapshot.Rooms, s.rooms[id])
	}
	for _, id := range s.bookingOrder {
		snapshot.Bookings = append(snapshot.Bookings, s.bookings[id])
	}
	return snapshot
}

// Import replaces the store contents with the snapshot.
//
// Identifiers must be positive and unique per table, emails unique ignoring
// case and room names unique. Counters lower than the
// highest stored id are raised so ids are never reused. Foreign keys are not
// checked; joins report bookings whose references cannot be resolved.
func (s *Store) Import(snapshot persistence.Snapshot) error {
	users := make(map[int64]persistence.User, len(snapshot.Users))
	userOrder := make([]int64, 0, len(snapshot.Users))
	emails := make(map[string]struct{}, len(snapshot.Users))
	nextUserID := max(snapshot.NextUserID, 1)
	for _, user := range snapshot.Users {
		if err := checkImportedID("user", user.ID, users); err != nil {
			return err
		}
		email := strings.ToLower(user.Email)
		if _, ok := emails[email]; ok {
			return fmt.Errorf("memory: user %d email %s: %w", user.ID, user.Email, persistence.ErrDuplicate)
		}
		emails[email] = struct{}{}
		users[user.ID] = user
		userOrder = append(userOrder, user.ID)
		nextUserID = max(nextUserID, user.ID+1)
	}

	rooms := make(map[int64]persistence.Room, len(snapshot.Rooms))
	roomOrder := make([]int64, 0, len(snapshot.Rooms))
	names := make(map[string]struct{}, len(snapshot.Rooms))
	nextRoomID := max(snapshot.NextRoomID, 1)
	for _, room := range snapshot.Rooms {
		if err := checkImportedID("room", room.ID, rooms); err != nil {
			return err
		}
		if _, ok := names[room.Name]; ok {
			return fmt.Errorf("memory: room %d name %s: %w", room.ID, room.Name, persistence.ErrDuplicate)
		}
		names[room.Name] = struct{}{}
		rooms[room.ID] = room
		roomOrder = append(roomOrder, room.ID)
		nextRoomID = max(nextRoomID, room.ID+1)
	}

	bookings := make(map[int64]persistence.Booking, len(snapshot.Bookings))
	bookingOrder := make([]int64, 0, len(snapshot.Bookings))
	nextBookingID := max(snapshot.NextBookingID, 1)
	for _, booking := range snapshot.Bookings {
		if err := checkImportedID("booking", booking.ID, bookings); err != nil {
			return err
		}
		bookings[booking.ID] = booking
		bookingOrder = append(bookingOrder, booking.ID)
		nextBookingID = max(nextBookingID, booking.ID+1)
	}

	slices.Sort(userOrder)
	slices.Sort(roomOrder)
	slices.Sort(bookingOrder)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users, s.userOrder, s.nextUserID = users, userOrder, nextUserID
	s.rooms, s.roomOrder, s.nextRoomID = rooms, roomOrder, nextRoomID
	s.bookings, s.bookingOrder, s.nextBookingID = bookings, bookingOrder, nextBookingID
	s.version++
	return nil
}

func checkImportedID[T any](table string, id int64, seen map[int64]T) error {
	if id <= 0 {
		return fmt.Errorf("memory: %s id %d must be positive", table, id)
	}
	if _, ok := seen[id]; ok {
		return fmt.Errorf("memory: %s id %d: %w", table, id, persistence.ErrDuplicate)
	}
	return nil
}
