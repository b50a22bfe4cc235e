package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"textbook-chatbot/internal/answer"
	"textbook-chatbot/internal/citation"
	"textbook-chatbot/internal/contextutil"
	"textbook-chatbot/internal/retrieval"
	"textbook-chatbot/internal/storage"
)

// Result is one completed chatbot turn. Relevant is false when the corpus
// had nothing to say and Answer carries the fixed fallback message.
type Result struct {
	ConversationID string
	Answer         string
	Citations      []citation.Reference
	Relevant       bool
	Stage          retrieval.Stage
	ResponseTime   time.Duration
}

// Engine runs the full question pipeline: refinement chain, answer
// synthesis, citation formatting, and conversation logging.
type Engine struct {
	chain         *retrieval.Chain
	synthesizer   *answer.Synthesizer
	formatter     *citation.Formatter
	conversations storage.ConversationStore
	modelName     string
	corpusTitle   string
	logger        *slog.Logger
}

func NewEngine(
	chain *retrieval.Chain,
	synthesizer *answer.Synthesizer,
	formatter *citation.Formatter,
	conversations storage.ConversationStore,
	modelName string,
	corpusTitle string,
) *Engine {
	return &Engine{
		chain:         chain,
		synthesizer:   synthesizer,
		formatter:     formatter,
		conversations: conversations,
		modelName:     modelName,
		corpusTitle:   corpusTitle,
		logger:        slog.Default(),
	}
}

// fallbackMessage is the answer for questions the corpus cannot address.
// No synthesis call is made for these turns.
func (e *Engine) fallbackMessage() string {
	return fmt.Sprintf(
		"I can only answer questions about %s, and I could not find anything in the text related to your question. Try rephrasing it, or ask about a topic the book covers.",
		e.corpusTitle,
	)
}

// Ask answers a question in one blocking call.
//
// Errors the caller must map:
//   - retrieval.ErrInvalidQuestion: degenerate input, nothing was logged
//   - retrieval.ErrUnavailable: the vector backend failed
//   - answer.ErrModelInvocation: synthesis failed after retries
//
// An unanswerable question is not an error: the Result carries the fixed
// fallback message with Relevant false, and the turn is still logged.
func (e *Engine) Ask(ctx context.Context, question string) (*Result, error) {
	started := time.Now()

	attempts, err := e.chain.Run(ctx, question)
	if err != nil && !errors.Is(err, retrieval.ErrNoRelevantContent) {
		return nil, err
	}

	if errors.Is(err, retrieval.ErrNoRelevantContent) {
		result := &Result{
			ConversationID: uuid.NewString(),
			Answer:         e.fallbackMessage(),
			Relevant:       false,
			Stage:          lastStage(attempts),
			ResponseTime:   time.Since(started),
		}
		e.record(ctx, question, result)
		return result, nil
	}

	final := attempts[len(attempts)-1]
	text, err := e.synthesizer.Synthesize(ctx, final.Question, passages(final.Candidates))
	if err != nil {
		return nil, err
	}

	result := &Result{
		ConversationID: uuid.NewString(),
		Answer:         text,
		Citations:      e.formatter.References(final.Candidates),
		Relevant:       true,
		Stage:          final.Stage,
		ResponseTime:   time.Since(started),
	}
	e.record(ctx, question, result)
	return result, nil
}

// AskStream is Ask with the answer delivered incrementally through the
// callback. The returned Result carries the full accumulated answer and the
// citations; callers emit those after the stream ends. The fallback message
// for unanswerable questions is delivered through the callback in one piece.
func (e *Engine) AskStream(ctx context.Context, question string, callback func(chunk string) error) (*Result, error) {
	started := time.Now()

	attempts, err := e.chain.Run(ctx, question)
	if err != nil && !errors.Is(err, retrieval.ErrNoRelevantContent) {
		return nil, err
	}

	if errors.Is(err, retrieval.ErrNoRelevantContent) {
		result := &Result{
			ConversationID: uuid.NewString(),
			Answer:         e.fallbackMessage(),
			Relevant:       false,
			Stage:          lastStage(attempts),
			ResponseTime:   time.Since(started),
		}
		if cbErr := callback(result.Answer); cbErr != nil {
			return nil, cbErr
		}
		e.record(ctx, question, result)
		return result, nil
	}

	final := attempts[len(attempts)-1]

	var builder strings.Builder
	err = e.synthesizer.SynthesizeStream(ctx, final.Question, passages(final.Candidates), func(chunk string) error {
		builder.WriteString(chunk)
		return callback(chunk)
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		ConversationID: uuid.NewString(),
		Answer:         builder.String(),
		Citations:      e.formatter.References(final.Candidates),
		Relevant:       true,
		Stage:          final.Stage,
		ResponseTime:   time.Since(started),
	}
	e.record(ctx, question, result)
	return result, nil
}

// record logs the turn. Logging failures are reported but never surface to
// the user; the answer was already produced.
func (e *Engine) record(ctx context.Context, question string, result *Result) {
	logger := contextutil.LoggerFromContext(ctx)

	rec := &storage.ConversationRecord{
		ID:             result.ConversationID,
		SessionID:      contextutil.SessionIDFromContext(ctx),
		Question:       question,
		Answer:         result.Answer,
		Citations:      e.formatter.Suffix(result.Citations),
		ModelName:      e.modelName,
		ResponseTimeMS: int(result.ResponseTime.Milliseconds()),
		WasRelevant:    result.Relevant,
	}
	if err := e.conversations.Insert(ctx, rec); err != nil {
		logger.ErrorContext(ctx, "failed to record conversation",
			"conversation_id", result.ConversationID,
			"error", err,
		)
		return
	}

	logger.InfoContext(ctx, "conversation recorded",
		"conversation_id", result.ConversationID,
		"relevant", result.Relevant,
		"stage", result.Stage,
		"response_time_ms", rec.ResponseTimeMS,
	)
}

func passages(candidates []retrieval.Candidate) []string {
	texts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		texts = append(texts, c.Text)
	}
	return texts
}

func lastStage(attempts []retrieval.QueryAttempt) retrieval.Stage {
	if len(attempts) == 0 {
		return retrieval.StageDirect
	}
	return attempts[len(attempts)-1].Stage
}
