package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"textbook-chatbot/internal/contextutil"
	"textbook-chatbot/internal/llm"
)

var (
	// ErrInvalidQuestion marks input rejected before any retrieval:
	// empty after trimming, or a bare interrogative with no content.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrNoRelevantContent marks a refinement chain that exhausted every
	// stage without the gate accepting anything. It is an expected
	// negative, not a failure.
	ErrNoRelevantContent = errors.New("no relevant content")
)

// rewriteSentinel is what the model is instructed to return when it judges
// the question unrelated to the corpus domain.
const rewriteSentinel = "NONE"

// bareInterrogatives are single-word questions rejected outright; there is
// nothing to retrieve against.
var bareInterrogatives = map[string]struct{}{
	"what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "who": {}, "which": {},
}

// Chain is the question refinement fallback: an ordered sequence of
// transformations tried until one yields candidates the gate accepts, or
// all are exhausted. Each stage transforms the question text fresh from the
// previous stage's output; stages run exactly once per turn, in order, with
// no backtracking.
type Chain struct {
	retriever   Retriever
	gate        *Gate
	rewriter    llm.CompletionClient
	corpusTitle string
	k           int
	logger      *slog.Logger
}

// NewChain creates a refinement chain. corpusTitle names the corpus in the
// rewrite instruction so the model can judge domain relevance.
func NewChain(retriever Retriever, gate *Gate, rewriter llm.CompletionClient, corpusTitle string, k int) *Chain {
	return &Chain{
		retriever:   retriever,
		gate:        gate,
		rewriter:    rewriter,
		corpusTitle: corpusTitle,
		k:           k,
		logger:      slog.Default(),
	}
}

// Run validates the question and walks the stages. On success it returns
// the attempts so far, with the terminal attempt carrying the gated
// candidates. Failure modes:
//   - ErrInvalidQuestion: degenerate input, no retrieval was performed
//   - ErrNoRelevantContent: all stages exhausted (attempts still returned)
//   - ErrUnavailable: the retrieval backend failed
//
// A failure inside the model-rewrite stage is treated as "stage yielded
// nothing" and never propagates raw.
func (c *Chain) Run(ctx context.Context, question string) ([]QueryAttempt, error) {
	logger := contextutil.LoggerFromContext(ctx)

	trimmed, err := validateQuestion(question)
	if err != nil {
		return nil, err
	}

	var attempts []QueryAttempt

	// Stage 1: direct retrieval on the trimmed question.
	attempt, err := c.attempt(ctx, StageDirect, trimmed)
	if err != nil {
		return attempts, err
	}
	attempts = append(attempts, attempt)
	if attempt.Found {
		return attempts, nil
	}

	// Stage 2: abbreviation expansion. Skipped when nothing expands.
	if expanded := expandAbbreviations(trimmed); expanded != trimmed {
		attempt, err = c.attempt(ctx, StageAbbreviation, expanded)
		if err != nil {
			return attempts, err
		}
		attempts = append(attempts, attempt)
		if attempt.Found {
			return attempts, nil
		}
	}

	// Stage 3: sanitization down to letters and spaces.
	if sanitized := sanitizeQuestion(trimmed); sanitized != "" && sanitized != trimmed {
		attempt, err = c.attempt(ctx, StageSanitize, sanitized)
		if err != nil {
			return attempts, err
		}
		attempts = append(attempts, attempt)
		if attempt.Found {
			return attempts, nil
		}
	}

	// Stage 4: model-assisted rewrite.
	rewritten, ok := c.rewrite(ctx, trimmed)
	if !ok {
		logger.InfoContext(ctx, "refinement exhausted, rewrite yielded nothing", "stages", len(attempts))
		return attempts, ErrNoRelevantContent
	}

	attempt, err = c.attempt(ctx, StageRewrite, rewritten)
	if err != nil {
		return attempts, err
	}
	attempts = append(attempts, attempt)
	if attempt.Found {
		return attempts, nil
	}

	logger.InfoContext(ctx, "refinement exhausted", "stages", len(attempts))
	return attempts, ErrNoRelevantContent
}

// attempt runs one retrieval pass and gates the result.
func (c *Chain) attempt(ctx context.Context, stage Stage, question string) (QueryAttempt, error) {
	logger := contextutil.LoggerFromContext(ctx)

	candidates, err := c.retriever.Search(ctx, question, c.k, c.gate.Loose)
	if err != nil {
		return QueryAttempt{}, err
	}

	accepted := c.gate.Filter(candidates)
	attempt := QueryAttempt{
		Stage:      stage,
		Question:   question,
		Candidates: accepted,
		Found:      len(accepted) > 0,
	}

	logger.InfoContext(ctx, "refinement stage completed",
		"stage", stage,
		"retrieved", len(candidates),
		"accepted", len(accepted),
	)
	return attempt, nil
}

// rewrite asks the model for a more descriptive restatement. Returns false
// when the model judges the question out of domain (sentinel), returns the
// sentinel embedded in prose, or the call itself fails.
func (c *Chain) rewrite(ctx context.Context, question string) (string, bool) {
	logger := contextutil.LoggerFromContext(ctx)

	system := fmt.Sprintf(
		"You rewrite user questions about %s to be more specific and descriptive, "+
			"so they match passages in the text. Reply with only the rewritten question. "+
			"If the question is unrelated to %s, reply with exactly %s.",
		c.corpusTitle, c.corpusTitle, rewriteSentinel,
	)

	rewritten, err := c.rewriter.Complete(ctx, system, question)
	if err != nil {
		// Stage failure is caught locally; the chain still reaches its
		// terminal message instead of surfacing a raw error.
		logger.WarnContext(ctx, "rewrite stage failed", "error", err)
		return "", false
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" || strings.EqualFold(rewritten, rewriteSentinel) {
		return "", false
	}
	return rewritten, true
}

// validateQuestion rejects degenerate input before any retrieval happens.
func validateQuestion(question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty question", ErrInvalidQuestion)
	}

	bare := strings.ToLower(strings.TrimSpace(sanitizeQuestion(trimmed)))
	if bare == "" {
		return "", fmt.Errorf("%w: no alphabetic content", ErrInvalidQuestion)
	}
	if _, ok := bareInterrogatives[bare]; ok {
		return "", fmt.Errorf("%w: bare interrogative %q", ErrInvalidQuestion, bare)
	}

	return trimmed, nil
}

// sanitizeQuestion strips everything but letters and spaces, collapsing
// runs of whitespace.
func sanitizeQuestion(question string) string {
	var builder strings.Builder
	builder.Grow(len(question))
	for _, r := range question {
		if unicode.IsLetter(r) || r == ' ' {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}
