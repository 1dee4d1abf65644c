package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite" // The pure Go SQLite driver
)

const driverName = "sqlite"

// connectTimeout bounds the initial ping.
const connectTimeout = 5 * time.Second

// Service is the single handle onto the relational store. It is created once at
// startup and passed explicitly to every component that needs the database.
type Service struct {
	path   string
	db     *sqlx.DB
	logger zerolog.Logger

	// writeMu serialises multi-statement write transactions (bootstrap, seeding).
	// Single-statement writes go straight to the pool and rely on SQLite's own locking.
	writeMu sync.Mutex

	now func() time.Time
}

// dsn builds the connection string. The driver applies DSN pragmas to every new
// pooled connection, so foreign keys are on for all of them.
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewService opens the store at path and verifies the connection is alive.
func NewService(path string, logger zerolog.Logger) (*Service, error) {
	db, err := sqlx.Open(driverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to %s: %w", path, err)
	}

	return &Service{
		path:   path,
		db:     db,
		logger: logger.With().Str("component", "database").Logger(),
		now:    time.Now,
	}, nil
}

// DB exposes the underlying pool for read-only callers and tests.
func (s *Service) DB() *sqlx.DB {
	return s.db
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Write runs writeFunc inside a transaction. The transaction is rolled back if
// writeFunc returns an error and committed otherwise.
func (s *Service) Write(ctx context.Context, writeFunc func(tx *sqlx.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := writeFunc(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// Close releases every pooled connection.
func (s *Service) Close() error {
	err := s.db.Close()
	s.logger.Info().Str("path", s.path).Msg("database connections closed")
	return err
}
