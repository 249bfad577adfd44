package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/events"
	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/scheduler"
)

// BookingRepository captures the persistence operations needed by the booking service.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error)
	GetBooking(ctx context.Context, id int64) (persistence.Booking, error)
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status persistence.Status) (persistence.Booking, error)
}

// UserLookup resolves booking owners.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (persistence.User, error)
}

// RoomLookup resolves booked rooms.
type RoomLookup interface {
	GetRoom(ctx context.Context, id int64) (persistence.Room, error)
}

// ConflictPolicy decides what happens when a new booking overlaps an active one.
type ConflictPolicy string

const (
	// ConflictPolicyAllow stores the booking and reports the overlaps as warnings.
	ConflictPolicyAllow ConflictPolicy = "allow"
	// ConflictPolicyReject refuses the booking with a *ConflictError.
	ConflictPolicyReject ConflictPolicy = "reject"
)

// ParseConflictPolicy converts a configuration value into a policy. Empty selects allow.
func ParseConflictPolicy(value string) (ConflictPolicy, error) {
	switch policy := ConflictPolicy(strings.ToLower(strings.TrimSpace(value))); policy {
	case "", ConflictPolicyAllow:
		return ConflictPolicyAllow, nil
	case ConflictPolicyReject:
		return ConflictPolicyReject, nil
	}
	return "", fmt.Errorf("unknown conflict policy %q", value)
}

// BookingOption customises a BookingService.
type BookingOption func(*BookingService)

// WithConflictPolicy selects how overlapping bookings are handled.
func WithConflictPolicy(policy ConflictPolicy) BookingOption {
	return func(s *BookingService) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// WithEventPublisher announces created bookings and status changes through p.
func WithEventPublisher(p events.Publisher) BookingOption {
	return func(s *BookingService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithBookingLogger sets the base logger used when the context carries none.
func WithBookingLogger(logger *slog.Logger) BookingOption {
	return func(s *BookingService) {
		s.logger = defaultLogger(logger)
	}
}

// BookingService validates booking requests, answers booking queries and
// joins bookings with their room and user.
type BookingService struct {
	bookings  BookingRepository
	users     UserLookup
	rooms     RoomLookup
	now       func() time.Time
	policy    ConflictPolicy
	publisher events.Publisher
	logger    *slog.Logger
}

// NewBookingService wires dependencies for the booking service.
func NewBookingService(bookings BookingRepository, users UserLookup, rooms RoomLookup, now func() time.Time, opts ...BookingOption) *BookingService {
	if now == nil {
		now = time.Now
	}
	s := &BookingService{
		bookings:  bookings,
		users:     users,
		rooms:     rooms,
		now:       now,
		policy:    ConflictPolicyAllow,
		publisher: events.NopPublisher{},
		logger:    defaultLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

func (s *BookingService) ready() error {
	if s == nil || s.bookings == nil || s.users == nil || s.rooms == nil {
		return fmt.Errorf("booking service not configured")
	}
	return nil
}

// CreateBooking validates input, checks that the user and room exist and
// stores a pending booking stamped with the service clock. Overlapping
// pending or approved bookings in the same room and date are returned as
// warnings, or cause ErrConflict under ConflictPolicyReject.
func (s *BookingService) CreateBooking(ctx context.Context, input BookingInput) (booking persistence.Booking, warnings []ConflictWarning, err error) {
	if err = s.ready(); err != nil {
		return
	}

	normalized := BookingInput{
		RoomID:    input.RoomID,
		UserID:    input.UserID,
		Date:      strings.TrimSpace(input.Date),
		StartTime: strings.TrimSpace(input.StartTime),
		EndTime:   strings.TrimSpace(input.EndTime),
		Reason:    strings.TrimSpace(input.Reason),
	}
	logger := s.loggerWith(ctx, "CreateBooking",
		"room_id", normalized.RoomID,
		"user_id", normalized.UserID,
		"date", normalized.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID, "conflicts", len(warnings)).InfoContext(ctx, "booking created")
	}()

	candidate, vErr := validateBookingInput(normalized)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, lookupErr := s.users.GetUser(ctx, normalized.UserID); lookupErr != nil {
		err = referenceError("user_id", normalized.UserID, lookupErr)
		return
	}
	if _, lookupErr := s.rooms.GetRoom(ctx, normalized.RoomID); lookupErr != nil {
		err = referenceError("room_id", normalized.RoomID, lookupErr)
		return
	}

	guard := func(sameSlot []persistence.Booking) error {
		warnings = detectConflicts(sameSlot, candidate)
		if len(warnings) > 0 && s.policy == ConflictPolicyReject {
			return &ConflictError{Warnings: warnings}
		}
		return nil
	}

	record := persistence.Booking{
		RoomID:    normalized.RoomID,
		UserID:    normalized.UserID,
		Date:      normalized.Date,
		StartTime: normalized.StartTime,
		EndTime:   normalized.EndTime,
		Reason:    normalized.Reason,
		Status:    persistence.StatusPending,
		CreatedAt: s.now().UTC(),
	}

	if guarded, ok := s.bookings.(persistence.GuardedBookingCreator); ok {
		booking, err = guarded.CreateBookingWithGuard(ctx, record, guard)
	} else {
		booking, err = s.createChecked(ctx, record, guard)
	}
	if err != nil {
		var conflictErr *ConflictError
		if !errors.As(err, &conflictErr) {
			err = mapRepoError(err)
		}
		booking, warnings = persistence.Booking{}, nil
		return
	}

	s.publish(ctx, logger, events.NewBookingEvent(events.TypeBookingCreated, booking, s.now()))
	return
}

// createChecked runs the conflict guard against a listing and then inserts.
// Repositories that cannot run both atomically may admit a racing overlap.
func (s *BookingService) createChecked(ctx context.Context, record persistence.Booking, guard persistence.BookingGuard) (persistence.Booking, error) {
	sameSlot, err := s.bookings.ListBookings(ctx, persistence.BookingFilter{RoomID: &record.RoomID, Date: &record.Date})
	if err != nil {
		return persistence.Booking{}, err
	}
	if err := guard(sameSlot); err != nil {
		return persistence.Booking{}, err
	}
	return s.bookings.CreateBooking(ctx, record)
}

func validateBookingInput(input BookingInput) (scheduler.Slot, *ValidationError) {
	vErr := validateStruct(input)
	if vErr.HasErrors() {
		return scheduler.Slot{}, vErr
	}
	slotRange, err := scheduler.NewRange(input.StartTime, input.EndTime)
	if err != nil {
		vErr.add("startTime", "startTime must be a 24h HH:MM time")
		return scheduler.Slot{}, vErr
	}
	if slotRange.Start >= slotRange.End {
		vErr.add("endTime", "endTime must be after startTime")
		return scheduler.Slot{}, vErr
	}
	return scheduler.Slot{RoomID: input.RoomID, Date: input.Date, Range: slotRange}, vErr
}

func referenceError(field string, id int64, lookupErr error) error {
	if errors.Is(lookupErr, persistence.ErrNotFound) || errors.Is(lookupErr, ErrNotFound) {
		return &InvalidReferenceError{Field: field, ID: id}
	}
	return lookupErr
}

// detectConflicts lists the active bookings among sameSlot that overlap the
// candidate. Rejected bookings and bookings with unreadable times are ignored.
func detectConflicts(sameSlot []persistence.Booking, candidate scheduler.Slot) []ConflictWarning {
	byID := make(map[int64]persistence.Booking, len(sameSlot))
	slots := make([]scheduler.Slot, 0, len(sameSlot))
	for _, b := range sameSlot {
		if b.Status == persistence.StatusRejected {
			continue
		}
		r, err := scheduler.NewRange(b.StartTime, b.EndTime)
		if err != nil {
			continue
		}
		byID[b.ID] = b
		slots = append(slots, scheduler.Slot{BookingID: b.ID, RoomID: b.RoomID, Date: b.Date, Range: r})
	}

	conflicts := scheduler.DetectConflicts(slots, candidate)
	if len(conflicts) == 0 {
		return nil
	}
	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, c := range conflicts {
		b := byID[c.WithBookingID]
		warnings = append(warnings, ConflictWarning{
			BookingID: b.ID,
			RoomID:    b.RoomID,
			Date:      b.Date,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Status:    b.Status,
		})
	}
	return warnings
}

// UpdateBookingStatus replaces the status of a booking. Any transition is
// accepted; concurrent updates resolve last-write-wins. The published event
// names the status actually replaced when the repository is a StatusSwapper.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, id int64, status persistence.Status) (booking persistence.Booking, err error) {
	if err = s.ready(); err != nil {
		return
	}

	status = persistence.Status(strings.ToLower(strings.TrimSpace(string(status))))
	logger := s.loggerWith(ctx, "UpdateBookingStatus", "booking_id", id, "status", status)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking status updated")
	}()

	if !status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "status must be one of: pending, approved, rejected")
		err = vErr
		return
	}

	var previous persistence.Status
	booking, previous, err = s.swapStatus(ctx, id, status)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	event := events.NewBookingEvent(events.TypeBookingStatusChanged, booking, s.now())
	event.Previous = previous
	s.publish(ctx, logger, event)
	return
}

func (s *BookingService) swapStatus(ctx context.Context, id int64, status persistence.Status) (persistence.Booking, persistence.Status, error) {
	if swapper, ok := s.bookings.(persistence.StatusSwapper); ok {
		return swapper.SwapBookingStatus(ctx, id, status)
	}
	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return persistence.Booking{}, "", err
	}
	updated, err := s.bookings.UpdateBookingStatus(ctx, id, status)
	return updated, current.Status, err
}

func (s *BookingService) publish(ctx context.Context, logger *slog.Logger, event events.BookingEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish booking event", "event_type", event.Type, "event_id", event.ID, "error", err)
	}
}

// GetBooking returns the booking with the given id.
func (s *BookingService) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	if err := s.ready(); err != nil {
		return persistence.Booking{}, err
	}
	booking, err := s.bookings.GetBooking(ctx, id)
	return booking, mapRepoError(err)
}

// ListBookings returns every booking in creation order.
func (s *BookingService) ListBookings(ctx context.Context) ([]persistence.Booking, error) {
	return s.FilterBookings(ctx, persistence.BookingFilter{})
}

// ListBookingsByUser returns the bookings owned by userID.
func (s *BookingService) ListBookingsByUser(ctx context.Context, userID int64) ([]persistence.Booking, error) {
	return s.FilterBookings(ctx, persistence.BookingFilter{UserID: &userID})
}

// ListBookingsByRoom returns the bookings for roomID.
func (s *BookingService) ListBookingsByRoom(ctx context.Context, roomID int64) ([]persistence.Booking, error) {
	return s.FilterBookings(ctx, persistence.BookingFilter{RoomID: &roomID})
}

// ListBookingsByDate returns the bookings on date (YYYY-MM-DD).
func (s *BookingService) ListBookingsByDate(ctx context.Context, date string) ([]persistence.Booking, error) {
	return s.FilterBookings(ctx, persistence.BookingFilter{Date: &date})
}

// ListBookingsByStatus returns the bookings in status.
func (s *BookingService) ListBookingsByStatus(ctx context.Context, status persistence.Status) ([]persistence.Booking, error) {
	return s.FilterBookings(ctx, persistence.BookingFilter{Status: &status})
}

// FilterBookings returns the bookings matching every set field of filter.
// No match yields an empty slice.
func (s *BookingService) FilterBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []persistence.Booking{}
	}
	return bookings, nil
}

// GetBookingWithDetails returns a booking joined with its room and user.
// When either cannot be resolved the result is ErrDanglingReference.
func (s *BookingService) GetBookingWithDetails(ctx context.Context, id int64) (persistence.BookingWithDetails, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return persistence.BookingWithDetails{}, err
	}
	detail, err := newJoiner(s).join(ctx, booking)
	if err != nil {
		s.loggerWith(ctx, "GetBookingWithDetails", "booking_id", id).
			WarnContext(ctx, "booking references missing records", "error", err, "error_kind", ErrorKind(err))
		return persistence.BookingWithDetails{}, err
	}
	return detail, nil
}

// ListBookingsWithDetails joins every booking with its room and user.
func (s *BookingService) ListBookingsWithDetails(ctx context.Context) (DetailedBookings, error) {
	return s.FilterBookingsWithDetails(ctx, persistence.BookingFilter{})
}

// ListBookingsByUserWithDetails joins the bookings owned by userID.
func (s *BookingService) ListBookingsByUserWithDetails(ctx context.Context, userID int64) (DetailedBookings, error) {
	return s.FilterBookingsWithDetails(ctx, persistence.BookingFilter{UserID: &userID})
}

// ListBookingsByRoomWithDetails joins the bookings for roomID.
func (s *BookingService) ListBookingsByRoomWithDetails(ctx context.Context, roomID int64) (DetailedBookings, error) {
	return s.FilterBookingsWithDetails(ctx, persistence.BookingFilter{RoomID: &roomID})
}

// ListBookingsByDateWithDetails joins the bookings on date.
func (s *BookingService) ListBookingsByDateWithDetails(ctx context.Context, date string) (DetailedBookings, error) {
	return s.FilterBookingsWithDetails(ctx, persistence.BookingFilter{Date: &date})
}

// ListBookingsByStatusWithDetails joins the bookings in status.
func (s *BookingService) ListBookingsByStatusWithDetails(ctx context.Context, status persistence.Status) (DetailedBookings, error) {
	return s.FilterBookingsWithDetails(ctx, persistence.BookingFilter{Status: &status})
}

// FilterBookingsWithDetails joins the bookings matching filter. Bookings whose
// room or user is missing are reported in Dangling instead of Bookings.
func (s *BookingService) FilterBookingsWithDetails(ctx context.Context, filter persistence.BookingFilter) (DetailedBookings, error) {
	bookings, err := s.FilterBookings(ctx, filter)
	if err != nil {
		return DetailedBookings{}, err
	}

	result := DetailedBookings{Bookings: make([]persistence.BookingWithDetails, 0, len(bookings))}
	j := newJoiner(s)
	for _, b := range bookings {
		detail, joinErr := j.join(ctx, b)
		switch {
		case joinErr == nil:
			result.Bookings = append(result.Bookings, detail)
		case errors.Is(joinErr, ErrDanglingReference):
			result.Dangling = append(result.Dangling, b.ID)
		default:
			return DetailedBookings{}, joinErr
		}
	}

	if result.Degraded() {
		s.loggerWith(ctx, "FilterBookingsWithDetails").
			WarnContext(ctx, "bookings reference missing records", "dangling", result.Dangling)
	}
	return result, nil
}

// joiner resolves rooms and users once per query.
type joiner struct {
	s     *BookingService
	users map[int64]persistence.User
	rooms map[int64]persistence.Room
}

func newJoiner(s *BookingService) *joiner {
	return &joiner{
		s:     s,
		users: make(map[int64]persistence.User),
		rooms: make(map[int64]persistence.Room),
	}
}

func (j *joiner) join(ctx context.Context, b persistence.Booking) (persistence.BookingWithDetails, error) {
	room, ok := j.rooms[b.RoomID]
	if !ok {
		var err error
		room, err = j.s.rooms.GetRoom(ctx, b.RoomID)
		if err != nil {
			return persistence.BookingWithDetails{}, danglingError(b, "room", b.RoomID, err)
		}
		j.rooms[b.RoomID] = room
	}
	user, ok := j.users[b.UserID]
	if !ok {
		var err error
		user, err = j.s.users.GetUser(ctx, b.UserID)
		if err != nil {
			return persistence.BookingWithDetails{}, danglingError(b, "user", b.UserID, err)
		}
		j.users[b.UserID] = user
	}
	return persistence.BookingWithDetails{Booking: b, Room: room, User: user}, nil
}

func danglingError(b persistence.Booking, kind string, id int64, lookupErr error) error {
	if errors.Is(lookupErr, persistence.ErrNotFound) || errors.Is(lookupErr, ErrNotFound) {
		return fmt.Errorf("booking %d: %s %d: %w", b.ID, kind, id, ErrDanglingReference)
	}
	return lookupErr
}
