package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DBorTx lets helpers run against either the pool or an open transaction.
type DBorTx interface {
	sqlx.ExtContext
}

// TimestampLayout is the fixed-width UTC layout used for registrations.created_at.
// Fixed width keeps lexical ordering in SQLite identical to chronological ordering.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// --- User Queries ---

// GetUserByEmail looks a user up by email, ignoring case. It returns sql.ErrNoRows
// when no user matches.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.db.GetContext(ctx, user,
		`SELECT id, email, password_hash, role FROM users WHERE email = ? COLLATE NOCASE;`, email)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpsertAdmin makes email an admin with the given password hash, inserting the row if it
// does not exist and overwriting hash and role if it does. It is a single statement, so
// two boots racing on the same store cannot produce two admin rows.
func (s *Service) UpsertAdmin(ctx context.Context, email, passwordHash string) (*User, error) {
	user := &User{}
	err := s.db.GetContext(ctx, user, `
		INSERT INTO users (email, password_hash, role) VALUES (?, ?, 'admin')
		ON CONFLICT (email) DO UPDATE SET password_hash = excluded.password_hash, role = 'admin'
		RETURNING id, email, password_hash, role;`,
		email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("upsert admin: %w", err)
	}
	return user, nil
}

// --- Event Queries ---

// ListEvents returns the whole catalog ordered by display name.
func (s *Service) ListEvents(ctx context.Context) ([]Event, error) {
	events := []Event{}
	if err := s.db.SelectContext(ctx, &events, `SELECT id, name FROM events ORDER BY name;`); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEventByID returns the event or ErrUnknownEvent.
func (s *Service) GetEventByID(ctx context.Context, id string) (*Event, error) {
	event := &Event{}
	err := s.db.GetContext(ctx, event, `SELECT id, name FROM events WHERE id = ?;`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownEvent
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// --- Registration Queries ---

const registrationColumns = `
	r.id, r.first_name, r.last_name, r.email, r.event_id,
	e.name AS event_name, r.status, r.created_at`

// SubmitRegistration stores a new pending registration. The event lookup only exists to
// give a friendly ErrUnknownEvent; the foreign key and the unique (email, event) index are
// what actually guard the insert, so racing duplicates fail with ErrConflict.
func (s *Service) SubmitRegistration(ctx context.Context, in NewRegistration) (*Registration, error) {
	event, err := s.GetEventByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	reg := &Registration{
		ID:        uuid.NewString(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		EventID:   event.ID,
		EventName: event.Name,
		Status:    StatusPending,
		CreatedAt: s.now().UTC().Format(TimestampLayout),
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO registrations (id, first_name, last_name, email, event_id, status, created_at)
		VALUES (:id, :first_name, :last_name, :email, :event_id, :status, :created_at);`, reg)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", classify(err))
	}
	return reg, nil
}

// ListRegistrations returns every registration with its event's current name, newest first.
func (s *Service) ListRegistrations(ctx context.Context) ([]Registration, error) {
	registrations := []Registration{}
	err := s.db.SelectContext(ctx, &registrations, `
		SELECT`+registrationColumns+`
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		ORDER BY r.created_at DESC, r.rowid DESC;`)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return registrations, nil
}

// GetRegistration returns a single registration. It returns sql.ErrNoRows when absent.
func (s *Service) GetRegistration(ctx context.Context, id string) (*Registration, error) {
	reg := &Registration{}
	err := s.db.GetContext(ctx, reg, `
		SELECT`+registrationColumns+`
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.id = ?;`, id)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// StatusChange is the outcome of a moderation update.
type StatusChange struct {
	// Updated is the number of registrations the id matched, even if the status
	// already had the requested value.
	Updated int64
	// Previous is the status before the update; empty when nothing matched.
	Previous RegistrationStatus
}

// Changed reports whether the registration actually moved to a different status.
func (c StatusChange) Changed(to RegistrationStatus) bool {
	return c.Updated > 0 && c.Previous != to
}

// UpdateRegistrationStatus moves a registration to status and reports the prior
// status alongside the matched row count. Read and write share one transaction,
// so two concurrent identical updates cannot both observe a transition.
func (s *Service) UpdateRegistrationStatus(ctx context.Context, id string, status RegistrationStatus) (StatusChange, error) {
	var change StatusChange
	if !status.Valid() {
		return change, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	err := s.Write(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &change.Previous, `SELECT status FROM registrations WHERE id = ?;`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read registration status: %w", err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE registrations SET status = ? WHERE id = ?;`, status, id)
		if err != nil {
			return fmt.Errorf("update registration status: %w", err)
		}
		change.Updated, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return StatusChange{}, err
	}
	return change, nil
}

// SetRegistrationStatus moves a registration to status and reports how many rows matched.
// Any transition between the three states is allowed. An unknown id is not an error.
func (s *Service) SetRegistrationStatus(ctx context.Context, id string, status RegistrationStatus) (int64, error) {
	change, err := s.UpdateRegistrationStatus(ctx, id, status)
	return change.Updated, err
}

// DeleteRegistration removes a registration and reports how many rows were deleted.
func (s *Service) DeleteRegistration(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?;`, id)
	if err != nil {
		return 0, fmt.Errorf("delete registration: %w", err)
	}
	return res.RowsAffected()
}

// --- Result Queries ---

// ListResults returns the leaderboard: most recent date first, then best position.
func (s *Service) ListResults(ctx context.Context) ([]Result, error) {
	results := []Result{}
	err := s.db.SelectContext(ctx, &results, `
		SELECT id, athlete, club, event_id, event_name, position, score, date
		FROM results
		ORDER BY date DESC, position ASC;`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// CreateResult stores a leaderboard entry and returns it with its generated id.
func (s *Service) CreateResult(ctx context.Context, in NewResult) (*Result, error) {
	result := &Result{
		ID:        uuid.NewString(),
		Athlete:   in.Athlete,
		Club:      in.Club,
		EventID:   in.EventID,
		EventName: in.EventName,
		Position:  in.Position,
		Score:     in.Score,
		Date:      in.Date,
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO results (id, athlete, club, event_id, event_name, position, score, date)
		VALUES (:id, :athlete, :club, :event_id, :event_name, :position, :score, :date);`, result)
	if err != nil {
		return nil, fmt.Errorf("insert result: %w", classify(err))
	}
	return result, nil
}

// DeleteResult removes a result by id. Deleting an id that does not exist succeeds
// with zero rows affected.
func (s *Service) DeleteResult(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?;`, id)
	if err != nil {
		return 0, fmt.Errorf("delete result: %w", err)
	}
	return res.RowsAffected()
}
