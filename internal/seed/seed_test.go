package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/persistence/memory"
	"github.com/example/room-reservations/internal/testfixtures"
)

func newServices(store *memory.Store, now time.Time) (*application.UserService, *application.RoomService, *application.BookingService) {
	users := application.NewUserService(store, application.NewPasswordHasher(application.FastArgon2idParams))
	rooms := application.NewRoomService(store)
	bookings := application.NewBookingService(store, store, store, func() time.Time { return now })
	return users, rooms, bookings
}

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2024, 12, 31, 10, 0, 0, 0, time.UTC)
	store := memory.New()
	users, rooms, bookings := newServices(store, today)

	result, err := Defaults(ctx, users, rooms, bookings, today)
	if err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}
	if len(result.Users) != 3 || len(result.Rooms) != 4 || len(result.Bookings) != 3 {
		t.Fatalf("unexpected counts: %d users, %d rooms, %d bookings", len(result.Users), len(result.Rooms), len(result.Bookings))
	}

	if result.Users[0].Role != persistence.RoleAdmin || result.Users[1].Role != persistence.RoleInstructor || result.Users[2].Role != persistence.RoleStudent {
		t.Fatalf("unexpected roles: %+v", result.Users)
	}
	if _, err := users.VerifyCredentials(ctx, "admin@example.com", "admin123"); err != nil {
		t.Fatalf("expected admin credentials to verify, got %v", err)
	}

	want := []struct {
		roomID, userID int64
		date           string
		status         persistence.Status
	}{
		{1, 3, "2024-12-31", persistence.StatusPending},
		{3, 2, "2025-01-01", persistence.StatusApproved},
		{4, 3, "2025-01-02", persistence.StatusRejected},
	}
	for i, w := range want {
		got := result.Bookings[i]
		if got.RoomID != w.roomID || got.UserID != w.userID || got.Date != w.date || got.Status != w.status {
			t.Fatalf("booking %d: expected %+v, got %+v", i, w, got)
		}
	}
}

func TestDefaults_FailsOnSecondRun(t *testing.T) {
	ctx := context.Background()
	today := time.Now()
	store := memory.New()
	users, rooms, bookings := newServices(store, today)

	if _, err := Defaults(ctx, users, rooms, bookings, today); err != nil {
		t.Fatalf("first Defaults failed: %v", err)
	}
	_, err := Defaults(ctx, users, rooms, bookings, today)
	if !errors.Is(err, application.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on reseed, got %v", err)
	}
}

func TestDefaults_FeedsStats(t *testing.T) {
	ctx := context.Background()
	h := testfixtures.NewHarness()

	if _, err := Defaults(ctx, h.Users, h.Rooms, h.Bookings, h.Clock.Now()); err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}
	stats, err := h.Reports.ComputeStats(ctx)
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 1 || stats.Approved != 1 || stats.Rejected != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if len(stats.TopUsers) != 2 || stats.TopUsers[0].ID != 3 || stats.TopUsers[0].TotalBookings != 2 {
		t.Fatalf("expected the student to lead with two bookings, got %+v", stats.TopUsers)
	}
	if got := len(h.Events.Events()); got != 5 {
		t.Fatalf("expected 3 created and 2 status events, got %d", got)
	}
}
