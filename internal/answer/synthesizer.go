package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"textbook-chatbot/internal/contextutil"
	"textbook-chatbot/internal/llm"
)

// ErrModelInvocation marks a completion call that failed after the single
// permitted retry. The pipeline surfaces it as a generic failure message,
// never as an empty answer.
var ErrModelInvocation = errors.New("model invocation failed")

// Synthesizer assembles a grounding prompt from retrieved passages and
// invokes the language model. The prompt keeps explicit delimiters between
// question and context so the model cannot confuse the two.
type Synthesizer struct {
	client      llm.CompletionClient
	guardrail   Guardrail
	corpusTitle string
	logger      *slog.Logger
}

// NewSynthesizer creates a synthesizer. guardrail may be nil for no
// output policy enforcement.
func NewSynthesizer(client llm.CompletionClient, guardrail Guardrail, corpusTitle string) *Synthesizer {
	return &Synthesizer{
		client:      client,
		guardrail:   guardrail,
		corpusTitle: corpusTitle,
		logger:      slog.Default(),
	}
}

// systemPrompt constrains the model: answer only from provided context,
// self-identify as a chatbot rather than the source text, stay short.
func (s *Synthesizer) systemPrompt() string {
	return fmt.Sprintf(
		"You are a chatbot answering questions about %s.\n"+
			"1. Always identify yourself as a chatbot, not the text itself.\n"+
			"2. Answer based only on the provided context.\n"+
			"3. If the context does not contain the answer, say you don't have enough information.\n"+
			"4. Keep responses under 256 tokens.\n"+
			"5. Don't invent information.\n"+
			"Be accurate and concise. Answer only what's asked.",
		s.corpusTitle,
	)
}

// groundingPrompt embeds the question and concatenated passages inside a
// delimited template.
func groundingPrompt(question string, passages []string) string {
	var builder strings.Builder
	builder.WriteString("Question: ")
	builder.WriteString(question)
	builder.WriteString("\n\nRelevant Context:\n<context>\n")
	for i, passage := range passages {
		if i > 0 {
			builder.WriteString("\n---\n")
		}
		builder.WriteString(passage)
	}
	builder.WriteString("\n</context>")
	return builder.String()
}

// Synthesize blocks for the complete answer. Model failures are retried at
// most once before surfacing ErrModelInvocation.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, passages []string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)
	user := groundingPrompt(question, passages)

	var text string
	var err error
	for tries := 0; tries < 2; tries++ {
		text, err = s.client.Complete(ctx, s.systemPrompt(), user)
		if err == nil && strings.TrimSpace(text) != "" {
			break
		}
		if ctx.Err() != nil {
			break
		}
		logger.WarnContext(ctx, "completion attempt failed", "try", tries+1, "error", err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelInvocation, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: model returned empty output", ErrModelInvocation)
	}

	return s.applyGuardrail(ctx, question, text)
}

// SynthesizeStream emits answer fragments through the callback as they
// arrive. The stream is finite and not restartable; the consumer may abort
// by returning an error or cancelling the context, and the producer does
// not need to know why. When a guardrail is installed the output is
// accumulated and checked before anything reaches the callback, since a
// policy decision needs the whole text.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, question string, passages []string, callback func(chunk string) error) error {
	if s.guardrail != nil {
		text, err := s.Synthesize(ctx, question, passages)
		if err != nil {
			return err
		}
		return callback(text)
	}

	logger := contextutil.LoggerFromContext(ctx)
	user := groundingPrompt(question, passages)

	var streamed bool
	wrapped := func(chunk string) error {
		streamed = true
		return callback(chunk)
	}

	err := s.client.Stream(ctx, s.systemPrompt(), user, wrapped)
	if err != nil && !streamed && ctx.Err() == nil {
		// Nothing was emitted yet, so one retry is still safe.
		logger.WarnContext(ctx, "streaming attempt failed, retrying", "error", err)
		err = s.client.Stream(ctx, s.systemPrompt(), user, wrapped)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelInvocation, err)
	}
	return nil
}

func (s *Synthesizer) applyGuardrail(ctx context.Context, question, text string) (string, error) {
	if s.guardrail == nil {
		return text, nil
	}

	verdict, err := s.guardrail.Check(ctx, question, text)
	if err != nil {
		return "", fmt.Errorf("%w: guardrail check failed: %v", ErrModelInvocation, err)
	}
	return verdict, nil
}
