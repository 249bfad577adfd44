package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), ""); !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("expected ErrMissingDSN, got %v", err)
	}
}

func TestOpen_WrapsDriverErrors(t *testing.T) {
	sentinel := errors.New("driver unavailable")
	original := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, sentinel }
	t.Cleanup(func() { sqlOpen = original })

	if _, err := Open(context.Background(), "postgres://example"); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

func TestStore_Integration(t *testing.T) {
	dsn := os.Getenv("ROOMBOOK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROOMBOOK_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	snapshot := persistence.Snapshot{
		Users:         []persistence.User{{ID: 1, Email: "a@example.com", PasswordHash: "h", Role: persistence.RoleAdmin, Name: "A"}},
		Rooms:         []persistence.Room{{ID: 1, Name: "A101", Capacity: 30, Building: "A", Floor: 1}},
		Bookings:      []persistence.Booking{{ID: 1, RoomID: 1, UserID: 1, Date: "2024-05-01", StartTime: "09:00", EndTime: "10:00", Reason: "r", Status: persistence.StatusPending, CreatedAt: created}},
		NextUserID:    2,
		NextRoomID:    2,
		NextBookingID: 2,
	}
	if err := store.Save(ctx, snapshot); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Bookings) != 1 || !loaded.Bookings[0].CreatedAt.Equal(created) || loaded.NextBookingID != 2 {
		t.Fatalf("unexpected snapshot: %+v", loaded)
	}
}
