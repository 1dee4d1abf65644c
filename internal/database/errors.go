package database

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrConflict means a uniqueness constraint rejected the write.
	ErrConflict = errors.New("record already exists")
	// ErrUnknownEvent means the referenced event does not exist.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidStatus means a status outside pending/approved/rejected was requested.
	ErrInvalidStatus = errors.New("invalid registration status")
)

// classify maps SQLite constraint failures onto the package's sentinel errors.
// Anything it does not recognise is returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", ErrUnknownEvent, err)
		}
	}

	// Fall back to the message in case extended result codes are not reported.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrUnknownEvent, err)
	}
	return err
}
