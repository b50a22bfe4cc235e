package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks textbook-chatbot/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
// Score is the backend's similarity score (cosine, higher = more similar).
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// EnsureCollection creates the collection if missing, or validates the
	// vector size of an existing one.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Count returns the number of points in the collection, or 0 when the
	// collection does not exist.
	Count(ctx context.Context, collection string) (int, error)

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the k nearest points to the query vector, best first.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)
}
