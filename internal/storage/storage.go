// Package storage is the persistence adapter: it loads and saves the
// scheduler's full state against a SQLite database. A missing database file
// is created empty via embedded migrations; Save replaces every record set
// inside one transaction so the durable state always matches one in-memory
// snapshot.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"courtbook/internal/booking"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeLayout = time.RFC3339Nano

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at filename and applies migrations.
func Open(filename string) (*Store, error) {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", ensureForeignKeysEnabledDSN(filename))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ensureForeignKeysEnabledDSN appends _fk=1 to the DSN unless already set.
func ensureForeignKeysEnabledDSN(dataSourceName string) string {
	if strings.Contains(dataSourceName, "_fk=") {
		return dataSourceName
	}
	if strings.Contains(dataSourceName, "?") {
		return dataSourceName + "&_fk=1"
	}
	return dataSourceName + "?_fk=1"
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("could not create migrate driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not create source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Load reads the three record sets. Waitlist entries come back in their
// stored queue order.
func (s *Store) Load(ctx context.Context) (booking.Snapshot, error) {
	var snap booking.Snapshot

	courts, err := s.loadCourts(ctx)
	if err != nil {
		return snap, fmt.Errorf("load courts: %w", err)
	}
	reservations, err := s.loadReservations(ctx)
	if err != nil {
		return snap, fmt.Errorf("load reservations: %w", err)
	}
	waitlist, err := s.loadWaitlist(ctx)
	if err != nil {
		return snap, fmt.Errorf("load waitlist: %w", err)
	}

	snap.Courts = courts
	snap.Reservations = reservations
	snap.Waitlist = waitlist
	return snap, nil
}

func (s *Store) loadCourts(ctx context.Context) ([]booking.Court, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, location, indoor, price_per_hour, max_attendees, description, features, time_slots
		 FROM courts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Court
	for rows.Next() {
		var c booking.Court
		var features, timeSlots string
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.Indoor, &c.PricePerHour,
			&c.MaxAttendees, &c.Description, &features, &timeSlots); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &c.Features); err != nil {
			return nil, fmt.Errorf("court %d features: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(timeSlots), &c.TimeSlots); err != nil {
			return nil, fmt.Errorf("court %d time slots: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) loadReservations(ctx context.Context) ([]booking.Reservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, court_id, user_id, start_time, end_time, price, vip, cancelled, from_waitlist
		 FROM reservations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Reservation
	for rows.Next() {
		var r booking.Reservation
		var start, end string
		if err := rows.Scan(&r.ID, &r.CourtID, &r.UserID, &start, &end,
			&r.Price, &r.VIP, &r.Cancelled, &r.FromWaitlist); err != nil {
			return nil, err
		}
		if r.StartTime, err = time.Parse(timeLayout, start); err != nil {
			return nil, fmt.Errorf("reservation %d start time: %w", r.ID, err)
		}
		if r.EndTime, err = time.Parse(timeLayout, end); err != nil {
			return nil, fmt.Errorf("reservation %d end time: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) loadWaitlist(ctx context.Context) ([]booking.WaitlistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, court_id, requested_time, vip, priority
		 FROM waitlist_entries ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.WaitlistEntry
	for rows.Next() {
		var e booking.WaitlistEntry
		var requested string
		if err := rows.Scan(&e.UserID, &e.CourtID, &requested, &e.VIP, &e.Priority); err != nil {
			return nil, err
		}
		if e.RequestedTime, err = time.Parse(timeLayout, requested); err != nil {
			return nil, fmt.Errorf("waitlist entry for user %d: %w", e.UserID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Save replaces all three record sets with the snapshot's contents.
func (s *Store) Save(ctx context.Context, snap booking.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"waitlist_entries", "reservations", "courts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range snap.Courts {
		features, err := json.Marshal(c.Features)
		if err != nil {
			return fmt.Errorf("court %d features: %w", c.ID, err)
		}
		timeSlots, err := json.Marshal(c.TimeSlots)
		if err != nil {
			return fmt.Errorf("court %d time slots: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO courts (id, name, location, indoor, price_per_hour, max_attendees, description, features, time_slots)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Location, c.Indoor, c.PricePerHour, c.MaxAttendees,
			c.Description, string(features), string(timeSlots)); err != nil {
			return fmt.Errorf("insert court %d: %w", c.ID, err)
		}
	}

	for _, r := range snap.Reservations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reservations (id, court_id, user_id, start_time, end_time, price, vip, cancelled, from_waitlist)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.CourtID, r.UserID,
			r.StartTime.Format(timeLayout), r.EndTime.Format(timeLayout),
			r.Price, r.VIP, r.Cancelled, r.FromWaitlist); err != nil {
			return fmt.Errorf("insert reservation %d: %w", r.ID, err)
		}
	}

	for _, e := range snap.Waitlist {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO waitlist_entries (user_id, court_id, requested_time, vip, priority)
			 VALUES (?, ?, ?, ?, ?)`,
			e.UserID, e.CourtID, e.RequestedTime.Format(timeLayout), e.VIP, e.Priority); err != nil {
			return fmt.Errorf("insert waitlist entry for user %d: %w", e.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}
	return nil
}
