package retrieval

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks textbook-chatbot/internal/retrieval Retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"textbook-chatbot/internal/contextutil"
	"textbook-chatbot/internal/llm"
	"textbook-chatbot/internal/storage"
	"textbook-chatbot/internal/vectorstore"
)

// ErrUnavailable marks a retrieval backend failure (embedding service or
// vector index unreachable). Distinct from an empty result, which is a
// correct negative.
var ErrUnavailable = errors.New("retrieval backend unavailable")

// Retriever finds corpus chunks relevant to a query.
type Retriever interface {
	// Search returns candidates within distanceThreshold, best first.
	// An empty slice means nothing cleared the threshold; an error means
	// the backend failed, never "no results".
	Search(ctx context.Context, query string, k int, distanceThreshold float64) ([]Candidate, error)
}

// Service is the explicitly constructed retrieval service owning the
// embedding function and the index handle; it is injected into request
// handlers rather than living in package state, so tests can run several
// corpora side by side.
type Service struct {
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	chunkRepo   storage.ChunkStore
	collection  string
	logger      *slog.Logger
}

// NewService creates a retrieval service over the named collection.
func NewService(
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	chunkRepo storage.ChunkStore,
	collection string,
) *Service {
	return &Service{
		embedder:    embedder,
		vectorStore: vectorStore,
		chunkRepo:   chunkRepo,
		collection:  collection,
		logger:      slog.Default(),
	}
}

// Search embeds the query, finds the k nearest chunks, blends in a lexical
// keyword score, and filters by the distance threshold. Read-only over the
// immutable index.
func (s *Service) Search(ctx context.Context, query string, k int, distanceThreshold float64) ([]Candidate, error) {
	logger := contextutil.LoggerFromContext(ctx)

	embeddings, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", ErrUnavailable, err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned for query", ErrUnavailable)
	}

	results, err := s.vectorStore.Search(ctx, s.collection, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search failed: %v", ErrUnavailable, err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, result := range results {
		chunk, err := s.chunkRepo.GetByID(ctx, result.PointID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				logger.WarnContext(ctx, "vector point has no stored chunk", "chunk_id", result.PointID)
				continue
			}
			return nil, fmt.Errorf("%w: failed to fetch chunk text: %v", ErrUnavailable, err)
		}

		// Cosine similarity from the store; distance is its complement.
		vectorDistance := float64(1 - result.Score)
		if vectorDistance < 0 {
			vectorDistance = 0
		}

		lexical := lexicalScore(query, chunk.Text)
		distance := vectorDistance - lexical
		if distance < 0 {
			distance = 0
		}

		if distance > distanceThreshold {
			continue
		}

		candidates = append(candidates, Candidate{
			ChunkID:        chunk.ID,
			SourceID:       chunk.SourceID,
			PageNumber:     chunk.PageNumber,
			Text:           chunk.Text,
			Distance:       distance,
			VectorDistance: vectorDistance,
			LexicalScore:   lexical,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	logger.DebugContext(ctx, "retrieval completed",
		"query_length", len(query),
		"k", k,
		"threshold", distanceThreshold,
		"raw_results", len(results),
		"candidates", len(candidates),
	)

	return candidates, nil
}
