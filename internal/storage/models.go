package storage

import "time"

// Session represents one user session.
type Session struct {
	ID               string // UUID
	StartedAt        time.Time
	SessionLengthSec int
}

// ConversationRecord is one question/answer turn, logged for the feedback
// and statistics collaborators.
type ConversationRecord struct {
	ID             string // UUID, the stable per-turn identifier
	SessionID      string
	Question       string
	Answer         string
	Citations      string
	ModelName      string
	ResponseTimeMS int
	WasRelevant    bool
	// Correct is nil until the user submits feedback.
	Correct   *bool
	CreatedAt time.Time
}

// ChunkRecord is a corpus chunk's text and source location, keyed by the
// same UUID as its vector point.
type ChunkRecord struct {
	ID         string
	SourceID   string // originating document, e.g. "textbook.pdf"
	PageNumber int    // 0-indexed page within the source
	ChunkIndex int    // index of the chunk within its page
	Text       string
}

// ConfusionMatrix aggregates feedback over the baseline question set.
// A turn counts as positive when the system judged it answerable
// (was_relevant) and the user feedback confirms or denies that call.
type ConfusionMatrix struct {
	TP int // answered, user says correctly
	FP int // answered, user says it should have abstained
	TN int // abstained, user says correctly
	FN int // abstained, user says it should have answered
}

// Statistics are the aggregate metrics derived from logged conversations.
type Statistics struct {
	NumQuestions  int
	NumCorrect    int
	NumIncorrect  int
	AvgResponseMS float64
	AvgSessionSec float64
	Matrix        ConfusionMatrix
	Sensitivity   *float64
	Specificity   *float64
	Accuracy      *float64
	Precision     *float64
	Recall        *float64
	F1            *float64
}
