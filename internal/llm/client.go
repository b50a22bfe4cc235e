package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_completion_client.go -package=mocks textbook-chatbot/internal/llm CompletionClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks textbook-chatbot/internal/llm Embedder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrTimeout marks an external model call that exceeded its deadline.
// Callers use errors.Is to distinguish a slow backend from an empty
// retrieval or a model refusal.
var ErrTimeout = errors.New("model call timed out")

// CompletionClient abstracts a text-completion backend. Concrete providers
// (Mistral, llama.cpp, OpenAI) all expose an OpenAI-compatible API, so a
// single implementation serves them via base-URL configuration.
type CompletionClient interface {
	// Complete sends a system+user prompt pair and blocks for the full reply.
	Complete(ctx context.Context, system, user string) (string, error)
	// Stream sends a system+user prompt pair and invokes the callback for
	// each text fragment as it arrives. The stream is finite and not
	// restartable; a callback error aborts it.
	Stream(ctx context.Context, system, user string, callback func(chunk string) error) error
}

// Embedder converts texts into fixed-length vectors.
type Embedder interface {
	// EmbedTexts returns one vector per input text, each of ExpectedSize.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// ExpectedSize is the dimensionality of the vectors this embedder produces.
	ExpectedSize() int
}

// Client implements CompletionClient against an OpenAI-compatible API.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	pacer       *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds every completion call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithPacer installs a shared limiter that spaces out model calls.
func WithPacer(p *rate.Limiter) ClientOption {
	return func(c *Client) { c.pacer = p }
}

// NewClient creates a completion client for an OpenAI-compatible endpoint.
// baseURL should include the API prefix (e.g. "https://api.mistral.ai/v1").
func NewClient(baseURL, apiKey, model string, opts ...ClientOption) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	c := &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   256,
		temperature: 0.2,
		timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier, for conversation logging.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a chat completion request and blocks for the full reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if err := c.pace(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    buildMessages(system, user),
	})
	if err != nil {
		return "", wrapCallError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends a streaming chat completion request and invokes the callback
// for each delta. Context cancellation aborts the stream.
func (c *Client) Stream(ctx context.Context, system, user string, callback func(chunk string) error) error {
	if err := c.pace(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    buildMessages(system, user),
		Stream:      true,
	})
	if err != nil {
		return wrapCallError(ctx, err)
	}
	defer func() {
		_ = stream.Close()
	}()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return wrapCallError(ctx, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		if err := callback(chunk); err != nil {
			return fmt.Errorf("callback error: %w", err)
		}
	}
}

func (c *Client) pace(ctx context.Context) error {
	if c.pacer == nil {
		return nil
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for model call slot: %w", err)
	}
	return nil
}

func buildMessages(system, user string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})
	return messages
}

// wrapCallError maps a context deadline to ErrTimeout so callers can tell
// a slow backend apart from other failures.
func wrapCallError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("model call failed: %w", err)
}
