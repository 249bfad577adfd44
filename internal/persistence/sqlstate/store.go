// Package sqlstate saves and restores entity snapshots through database/sql.
//
// The layout is one table per entity keyed by the store-assigned id plus a
// sequences table holding the next id of each entity. Save replaces every row
// in one transaction; there is no incremental write path.
package sqlstate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

var _ persistence.SnapshotStore = (*Store)(nil)

// Dialect captures the SQL differences between the supported engines.
type Dialect struct {
	Name string
	// IntegerType is the column type used for ids and counts.
	IntegerType string
	// NumberedPlaceholders selects $1, $2 ... instead of ?.
	NumberedPlaceholders bool
}

var (
	// SQLite matches modernc.org/sqlite.
	SQLite = Dialect{Name: "sqlite", IntegerType: "INTEGER"}
	// Postgres matches the pgx stdlib driver.
	Postgres = Dialect{Name: "postgres", IntegerType: "BIGINT", NumberedPlaceholders: true}
)

const (
	seqUsers    = "users"
	seqRooms    = "rooms"
	seqBookings = "bookings"
)

// Rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) Rebind(query string) string {
	if !d.NumberedPlaceholders {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) schema() []string {
	i := d.IntegerType
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + i + ` PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id ` + i + ` PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			capacity ` + i + ` NOT NULL,
			building TEXT NOT NULL,
			floor ` + i + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id ` + i + ` PRIMARY KEY,
			room_id ` + i + ` NOT NULL,
			user_id ` + i + ` NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			reason TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sequences (
			name TEXT PRIMARY KEY,
			next_id ` + i + ` NOT NULL
		)`,
	}
}

// Store reads and writes snapshots on db.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database. Call EnsureSchema before the first Load or Save.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// EnsureSchema creates the snapshot tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: ensure schema: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with snapshot.
func (s *Store) Save(ctx context.Context, snapshot persistence.Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin save: %w", s.dialect.Name, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"bookings", "rooms", "users", "sequences"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("%s: clear %s: %w", s.dialect.Name, table, err)
		}
	}

	insertUser := s.dialect.Rebind(`INSERT INTO users (id, email, password_hash, role, name) VALUES (?, ?, ?, ?, ?)`)
	for _, u := range snapshot.Users {
		if _, err := tx.ExecContext(ctx, insertUser, u.ID, u.Email, u.PasswordHash, string(u.Role), u.Name); err != nil {
			return fmt.Errorf("%s: insert user %d: %w", s.dialect.Name, u.ID, err)
		}
	}

	insertRoom := s.dialect.Rebind(`INSERT INTO rooms (id, name, capacity, building, floor) VALUES (?, ?, ?, ?, ?)`)
	for _, r := range snapshot.Rooms {
		if _, err := tx.ExecContext(ctx, insertRoom, r.ID, r.Name, r.Capacity, r.Building, r.Floor); err != nil {
			return fmt.Errorf("%s: insert room %d: %w", s.dialect.Name, r.ID, err)
		}
	}

	insertBooking := s.dialect.Rebind(`INSERT INTO bookings (id, room_id, user_id, date, start_time, end_time, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, b := range snapshot.Bookings {
		if _, err := tx.ExecContext(ctx, insertBooking,
			b.ID, b.RoomID, b.UserID, b.Date, b.StartTime, b.EndTime, b.Reason, string(b.Status),
			b.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("%s: insert booking %d: %w", s.dialect.Name, b.ID, err)
		}
	}

	insertSeq := s.dialect.Rebind(`INSERT INTO sequences (name, next_id) VALUES (?, ?)`)
	for name, next := range map[string]int64{
		seqUsers:    snapshot.NextUserID,
		seqRooms:    snapshot.NextRoomID,
		seqBookings: snapshot.NextBookingID,
	} {
		if _, err := tx.ExecContext(ctx, insertSeq, name, next); err != nil {
			return fmt.Errorf("%s: insert sequence %s: %w", s.dialect.Name, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit save: %w", s.dialect.Name, err)
	}
	return nil
}

// Load reads the stored snapshot. An empty database yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (persistence.Snapshot, error) {
	var snapshot persistence.Snapshot

	users, err := queryRows(ctx, s.db, `SELECT id, email, password_hash, role, name FROM users ORDER BY id`,
		func(rows *sql.Rows) (persistence.User, error) {
			var u persistence.User
			var role string
			err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.Name)
			u.Role = persistence.Role(role)
			return u, err
		})
	if err != nil {
		return snapshot, fmt.Errorf("%s: load users: %w", s.dialect.Name, err)
	}

	rooms, err := queryRows(ctx, s.db, `SELECT id, name, capacity, building, floor FROM rooms ORDER BY id`,
		func(rows *sql.Rows) (persistence.Room, error) {
			var r persistence.Room
			err := rows.Scan(&r.ID, &r.Name, &r.Capacity, &r.Building, &r.Floor)
			return r, err
		})
	if err != nil {
		return snapshot, fmt.Errorf("%s: load rooms: %w", s.dialect.Name, err)
	}

	bookings, err := queryRows(ctx, s.db, `SELECT id, room_id, user_id, date, start_time, end_time, reason, status, created_at FROM bookings ORDER BY id`,
		func(rows *sql.Rows) (persistence.Booking, error) {
			var b persistence.Booking
			var status, created string
			if err := rows.Scan(&b.ID, &b.RoomID, &b.UserID, &b.Date, &b.StartTime, &b.EndTime, &b.Reason, &status, &created); err != nil {
				return b, err
			}
			b.Status = persistence.Status(status)
			ts, err := time.Parse(time.RFC3339Nano, created)
			if err != nil {
				return b, fmt.Errorf("booking %d created_at: %w", b.ID, err)
			}
			b.CreatedAt = ts
			return b, nil
		})
	if err != nil {
		return snapshot, fmt.Errorf("%s: load bookings: %w", s.dialect.Name, err)
	}

	type sequence struct {
		name string
		next int64
	}
	sequences, err := queryRows(ctx, s.db, `SELECT name, next_id FROM sequences`,
		func(rows *sql.Rows) (sequence, error) {
			var seq sequence
			err := rows.Scan(&seq.name, &seq.next)
			return seq, err
		})
	if err != nil {
		return snapshot, fmt.Errorf("%s: load sequences: %w", s.dialect.Name, err)
	}

	snapshot.Users, snapshot.Rooms, snapshot.Bookings = users, rooms, bookings
	for _, seq := range sequences {
		switch seq.name {
		case seqUsers:
			snapshot.NextUserID = seq.next
		case seqRooms:
			snapshot.NextRoomID = seq.next
		case seqBookings:
			snapshot.NextBookingID = seq.next
		}
	}
	return snapshot, nil
}

func queryRows[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
