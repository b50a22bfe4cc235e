package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_conversation_store.go -package=mocks textbook-chatbot/internal/storage ConversationStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ConversationStore defines the interface for conversation logging.
type ConversationStore interface {
	// Insert logs a completed turn. The record's ID must be set (UUID).
	Insert(ctx context.Context, record *ConversationRecord) error
	// SetCorrect records user feedback for a turn.
	// Returns ErrNotFound when the conversation does not exist.
	SetCorrect(ctx context.Context, id string, correct bool) error
	// GetByID fetches a single turn. Returns ErrNotFound when missing.
	GetByID(ctx context.Context, id string) (*ConversationRecord, error)
	// Statistics aggregates logged turns into confusion-matrix metrics.
	Statistics(ctx context.Context) (*Statistics, error)
}

// ConversationRepo provides methods for conversation operations.
// It implements the ConversationStore interface.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a new ConversationRepo.
func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Insert logs a completed turn.
func (r *ConversationRepo) Insert(ctx context.Context, record *ConversationRecord) error {
	// Empty session IDs are stored as NULL so the sessions foreign key
	// does not reject turns logged outside a session.
	sessionID := sql.NullString{String: record.SessionID, Valid: record.SessionID != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations
			(id, session_id, question, answer, citations, model_name, response_time_ms, was_relevant)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, sessionID, record.Question, record.Answer,
		record.Citations, record.ModelName, record.ResponseTimeMS, record.WasRelevant,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// SetCorrect records user feedback for a turn.
func (r *ConversationRepo) SetCorrect(ctx context.Context, id string, correct bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE conversations SET correct = ? WHERE id = ?",
		correct, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a single turn.
func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*ConversationRecord, error) {
	var record ConversationRecord
	var sessionID sql.NullString
	var correct sql.NullBool
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, question, answer, citations, model_name,
			response_time_ms, was_relevant, correct, created_at
		 FROM conversations WHERE id = ?`,
		id,
	).Scan(&record.ID, &sessionID, &record.Question, &record.Answer,
		&record.Citations, &record.ModelName, &record.ResponseTimeMS,
		&record.WasRelevant, &correct, &record.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	record.SessionID = sessionID.String
	if correct.Valid {
		record.Correct = &correct.Bool
	}
	return &record, nil
}

// Statistics aggregates logged turns into confusion-matrix metrics.
// Only turns with feedback (correct IS NOT NULL) contribute to the matrix:
//   - TP: answered (was_relevant) and feedback says correct
//   - FP: answered but feedback says it should have abstained
//   - TN: abstained (not was_relevant) and feedback says correct
//   - FN: abstained but feedback says it should have answered
func (r *ConversationRepo) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN correct = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN correct = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(response_time_ms), 0),
			COALESCE(SUM(CASE WHEN was_relevant = 1 AND correct = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN was_relevant = 1 AND correct = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN was_relevant = 0 AND correct = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN was_relevant = 0 AND correct = 0 THEN 1 ELSE 0 END), 0)
		FROM conversations`,
	).Scan(&stats.NumQuestions, &stats.NumCorrect, &stats.NumIncorrect,
		&stats.AvgResponseMS,
		&stats.Matrix.TP, &stats.Matrix.FP, &stats.Matrix.TN, &stats.Matrix.FN)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate conversations: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		"SELECT COALESCE(AVG(session_length_sec), 0) FROM sessions",
	).Scan(&stats.AvgSessionSec)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sessions: %w", err)
	}

	computeMetrics(stats)
	return stats, nil
}

// computeMetrics fills derived ratios, leaving nil where the denominator is zero.
func computeMetrics(stats *Statistics) {
	m := stats.Matrix
	ratio := func(num, den int) *float64 {
		if den == 0 {
			return nil
		}
		v := float64(num) / float64(den)
		return &v
	}

	stats.Sensitivity = ratio(m.TP, m.TP+m.FN)
	stats.Specificity = ratio(m.TN, m.TN+m.FP)
	stats.Accuracy = ratio(m.TP+m.TN, m.TP+m.TN+m.FP+m.FN)
	stats.Precision = ratio(m.TP, m.TP+m.FP)
	stats.Recall = stats.Sensitivity

	if stats.Precision != nil && stats.Recall != nil && *stats.Precision+*stats.Recall > 0 {
		f1 := 2 * (*stats.Precision * *stats.Recall) / (*stats.Precision + *stats.Recall)
		stats.F1 = &f1
	}
}
