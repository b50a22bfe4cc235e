package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingsClient implements Embedder against an OpenAI-compatible
// embeddings API.
type EmbeddingsClient struct {
	api          *openai.Client
	model        string
	expectedSize int
	timeout      time.Duration
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the vector size the index was created with; every
// embedding returned by EmbedTexts is validated against it.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int, timeout time.Duration) *EmbeddingsClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EmbeddingsClient{
		api:          openai.NewClientWithConfig(cfg),
		model:        model,
		expectedSize: expectedSize,
		timeout:      timeout,
	}
}

// ExpectedSize returns the dimensionality of the vectors this client produces.
func (c *EmbeddingsClient) ExpectedSize() int {
	return c.expectedSize
}

// EmbedTexts generates embeddings for the given texts.
// Returns a slice of float32 vectors, one per input text, and validates
// that every returned vector matches the expected size.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, wrapCallError(ctx, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	result := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != c.expectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.expectedSize)
		}
		result[i] = data.Embedding
	}

	return result, nil
}
