package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionStore defines the interface for session bookkeeping.
type SessionStore interface {
	// Create registers a new session. The session's ID must be set (UUID).
	Create(ctx context.Context, id string) error
	// Touch updates the session length from its start time to now.
	Touch(ctx context.Context, id string) error
	// GetByID fetches a session. Returns ErrNotFound when missing.
	GetByID(ctx context.Context, id string) (*Session, error)
}

// SessionRepo provides methods for session operations.
// It implements the SessionStore interface.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create registers a new session.
func (r *SessionRepo) Create(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id) VALUES (?)",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Touch updates the session length from its start time to now.
func (r *SessionRepo) Touch(ctx context.Context, id string) error {
	session, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	length := int(time.Since(session.StartedAt).Seconds())
	if length < 0 {
		length = 0
	}

	_, err = r.db.ExecContext(ctx,
		"UPDATE sessions SET session_length_sec = ? WHERE id = ?",
		length, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// GetByID fetches a session.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := r.db.QueryRowContext(ctx,
		"SELECT id, started_at, session_length_sec FROM sessions WHERE id = ?",
		id,
	).Scan(&session.ID, &session.StartedAt, &session.SessionLengthSec)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return &session, nil
}
