// Package sqlite keeps entity snapshots in a SQLite file using the pure Go driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/example/room-reservations/internal/persistence/sqlstate"
)

// DefaultPath is used when Config.Path is empty.
const DefaultPath = "roombook.db"

// Config holds SQLite connection settings.
type Config struct {
	// Path is the database file, or ":memory:".
	Path string
	// BusyTimeout sets how long to wait for database locks.
	BusyTimeout time.Duration
	// JournalMode sets the journal mode (WAL, DELETE, TRUNCATE, PERSIST, MEMORY, OFF).
	JournalMode string
	// Synchronous sets the synchronous mode (OFF, NORMAL, FULL, EXTRA).
	Synchronous string
}

// DefaultConfig returns settings suited to a single local process.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		JournalMode: "WAL",
		Synchronous: "NORMAL",
	}
}

var (
	validJournalModes = map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	validSyncModes    = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
)

// Validate reports configuration values SQLite would reject.
func (c Config) Validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy timeout cannot be negative")
	}
	if c.JournalMode != "" && !validJournalModes[strings.ToUpper(c.JournalMode)] {
		return fmt.Errorf("sqlite: invalid journal mode %q", c.JournalMode)
	}
	if c.Synchronous != "" && !validSyncModes[strings.ToUpper(c.Synchronous)] {
		return fmt.Errorf("sqlite: invalid synchronous mode %q", c.Synchronous)
	}
	return nil
}

// Store is a sqlstate.Store bound to a SQLite file.
type Store struct {
	*sqlstate.Store
	path string
}

// Open creates the database directory if needed, applies the connection
// pragmas and ensures the snapshot schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}
	// One connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if err := configure(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := sqlstate.New(db, sqlstate.SQLite)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: store, path: cfg.Path}, nil
}

func configure(ctx context.Context, db *sql.DB, cfg Config) error {
	pragmas := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())}
	if cfg.JournalMode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+strings.ToUpper(cfg.JournalMode))
	}
	if cfg.Synchronous != "" {
		pragmas = append(pragmas, "PRAGMA synchronous = "+strings.ToUpper(cfg.Synchronous))
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return nil
}

// Path returns the database file in use.
func (s *Store) Path() string { return s.path }
