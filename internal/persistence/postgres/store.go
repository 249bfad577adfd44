// Package postgres keeps entity snapshots in Postgres through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/example/room-reservations/internal/persistence/sqlstate"
)

const driverName = "pgx"

// ErrMissingDSN is returned when no connection string is supplied.
var ErrMissingDSN = errors.New("postgres: dsn is required")

var sqlOpen = sql.Open

// Open connects to dsn, verifies the connection and ensures the snapshot schema exists.
func Open(ctx context.Context, dsn string) (*sqlstate.Store, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}
	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	store := sqlstate.New(db, sqlstate.Postgres)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
