package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrForeignKeysDisabled is returned by Bootstrap when the connection does not enforce
// foreign keys. Serving traffic in that state would let registrations and results point
// at events that do not exist.
var ErrForeignKeysDisabled = errors.New("foreign key enforcement is disabled")

var tableStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('admin', 'user'))
	);`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS registrations (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		event_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		created_at TEXT NOT NULL,
		FOREIGN KEY (event_id) REFERENCES events (id)
	);`,
	`CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		athlete TEXT NOT NULL,
		club TEXT,
		event_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		position INTEGER NOT NULL CHECK (position >= 1),
		score REAL NOT NULL,
		date TEXT NOT NULL,
		FOREIGN KEY (event_id) REFERENCES events (id)
	);`,
}

// Indexes run after the column migrations so that legacy tables already have every
// indexed column. The unique index also covers registrations tables created before the
// (email, event) constraint existed.
var indexStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_registrations_email_event ON registrations (email COLLATE NOCASE, event_id);`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_created_at ON registrations (created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_status ON registrations (status);`,
	`CREATE INDEX IF NOT EXISTS idx_results_event_id ON results (event_id);`,
	`CREATE INDEX IF NOT EXISTS idx_results_date ON results (date);`,
}

// DefaultEvents are seeded the first time the catalog is found empty.
var DefaultEvents = []Event{
	{ID: "caber", Name: "Caber Toss"},
	{ID: "tug", Name: "Tug o’ War"},
	{ID: "stone", Name: "Stone Put"},
}

// Bootstrap brings the schema up to date and seeds baseline data. It is idempotent
// and safe to run on every application start; any error means the store is not
// ready to serve requests.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.checkForeignKeys(ctx); err != nil {
		return err
	}

	return s.Write(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range tableStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		}

		if err := s.migrateRegistrationStatus(ctx, tx); err != nil {
			return err
		}

		for _, stmt := range indexStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create index: %w", err)
			}
		}

		return s.seedEvents(ctx, tx)
	})
}

func (s *Service) checkForeignKeys(ctx context.Context) error {
	var enabled int
	if err := s.db.GetContext(ctx, &enabled, `PRAGMA foreign_keys;`); err != nil {
		return fmt.Errorf("read foreign_keys pragma: %w", err)
	}
	if enabled != 1 {
		return ErrForeignKeysDisabled
	}
	return nil
}

// migrateRegistrationStatus adds the status column to registrations tables created
// before moderation existed. Existing rows become pending.
func (s *Service) migrateRegistrationStatus(ctx context.Context, db DBorTx) error {
	has, err := hasColumn(ctx, db, "registrations", "status")
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	_, err = db.ExecContext(ctx, `ALTER TABLE registrations ADD COLUMN status TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'approved', 'rejected'));`)
	if err != nil {
		return fmt.Errorf("add registrations.status: %w", err)
	}
	s.logger.Info().Msg("migrated registrations table: added status column")
	return nil
}

func hasColumn(ctx context.Context, db DBorTx, table, column string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, db, &count,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?;`, table, column)
	if err != nil {
		return false, fmt.Errorf("inspect %s columns: %w", table, err)
	}
	return count > 0, nil
}

func (s *Service) seedEvents(ctx context.Context, db DBorTx) error {
	var count int
	if err := sqlx.GetContext(ctx, db, &count, `SELECT COUNT(*) FROM events;`); err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, event := range DefaultEvents {
		if _, err := db.ExecContext(ctx, `INSERT INTO events (id, name) VALUES (?, ?);`, event.ID, event.Name); err != nil {
			return fmt.Errorf("seed event %s: %w", event.ID, err)
		}
	}
	s.logger.Info().Int("count", len(DefaultEvents)).Msg("seeded default events")
	return nil
}
