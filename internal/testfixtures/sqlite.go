package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/room-reservations/internal/persistence/sqlite"
)

// NewSQLiteSnapshotStore opens a snapshot store in a temporary directory and
// closes it when the test finishes.
func NewSQLiteSnapshotStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "roombook.db")
	store, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open snapshot store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })
	return store
}
