package testfixtures

import (
	"context"
	"log/slog"
	"testing"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/events"
	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/persistence/memory"
)

// Harness wires every application service to one in-memory store.
type Harness struct {
	Store    *memory.Store
	Clock    *Clock
	Events   *events.Recorder
	Users    *application.UserService
	Rooms    *application.RoomService
	Bookings *application.BookingService
	Reports  *application.ReportService
}

type harnessConfig struct {
	clock         *Clock
	logger        *slog.Logger
	bookingOpts   []application.BookingOption
	reportOptions []application.ReportOption
}

// HarnessOption configures NewHarness.
type HarnessOption func(*harnessConfig)

// WithClock overrides the clock shared by the services.
func WithClock(clock *Clock) HarnessOption {
	return func(c *harnessConfig) { c.clock = clock }
}

// WithLogger sets the logger passed to every service.
func WithLogger(logger *slog.Logger) HarnessOption {
	return func(c *harnessConfig) { c.logger = logger }
}

// WithBookingOptions appends options for the booking service.
func WithBookingOptions(opts ...application.BookingOption) HarnessOption {
	return func(c *harnessConfig) { c.bookingOpts = append(c.bookingOpts, opts...) }
}

// WithReportOptions appends options for the report service.
func WithReportOptions(opts ...application.ReportOption) HarnessOption {
	return func(c *harnessConfig) { c.reportOptions = append(c.reportOptions, opts...) }
}

// NewHarness builds a fresh store and the services over it. Passwords are
// hashed with FastArgon2idParams and booking events are recorded.
func NewHarness(opts ...HarnessOption) *Harness {
	cfg := harnessConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = NewClock(ReferenceTime())
	}

	store := memory.New()
	recorder := &events.Recorder{}
	now := cfg.clock.NowFunc()

	bookingOpts := append([]application.BookingOption{
		application.WithEventPublisher(recorder),
		application.WithBookingLogger(cfg.logger),
	}, cfg.bookingOpts...)
	reportOpts := append([]application.ReportOption{
		application.WithReportLogger(cfg.logger),
	}, cfg.reportOptions...)

	return &Harness{
		Store:    store,
		Clock:    cfg.clock,
		Events:   recorder,
		Users:    application.NewUserServiceWithLogger(store, application.NewPasswordHasher(application.FastArgon2idParams), cfg.logger),
		Rooms:    application.NewRoomServiceWithLogger(store, cfg.logger),
		Bookings: application.NewBookingService(store, store, store, now, bookingOpts...),
		Reports:  application.NewReportService(store, store, store, now, reportOpts...),
	}
}

// MustUser registers a user or fails the test.
func (h *Harness) MustUser(tb testing.TB, opts ...UserOption) persistence.User {
	tb.Helper()
	user, err := h.Users.CreateUser(context.Background(), NewUserInput(opts...))
	if err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return user
}

// MustRoom creates a room or fails the test.
func (h *Harness) MustRoom(tb testing.TB, opts ...RoomOption) persistence.Room {
	tb.Helper()
	room, err := h.Rooms.CreateRoom(context.Background(), NewRoomInput(opts...))
	if err != nil {
		tb.Fatalf("create room: %v", err)
	}
	return room
}

// MustBooking creates a booking or fails the test. Conflict warnings are ignored.
func (h *Harness) MustBooking(tb testing.TB, room persistence.Room, user persistence.User, opts ...BookingOption) persistence.Booking {
	tb.Helper()
	booking, _, err := h.Bookings.CreateBooking(context.Background(), NewBookingInput(room.ID, user.ID, opts...))
	if err != nil {
		tb.Fatalf("create booking: %v", err)
	}
	return booking
}
