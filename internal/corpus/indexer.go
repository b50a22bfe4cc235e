package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"textbook-chatbot/internal/llm"
	"textbook-chatbot/internal/storage"
	"textbook-chatbot/internal/vectorstore"
)

// embedBatchSize bounds how many chunk texts go to the embeddings API per call.
const embedBatchSize = 64

// Indexer builds the searchable index over the corpus: extracted pages are
// split into overlapping chunks, embedded, and upserted into the vector
// store, with chunk texts persisted to SQLite under the same IDs.
type Indexer struct {
	loader      *Loader
	splitter    *Splitter
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	chunkRepo   storage.ChunkStore
	collection  string
	logger      *slog.Logger
}

// NewIndexer creates an indexer for the named collection.
func NewIndexer(
	loader *Loader,
	splitter *Splitter,
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	chunkRepo storage.ChunkStore,
	collection string,
) *Indexer {
	return &Indexer{
		loader:      loader,
		splitter:    splitter,
		embedder:    embedder,
		vectorStore: vectorStore,
		chunkRepo:   chunkRepo,
		collection:  collection,
		logger:      slog.Default(),
	}
}

// BuildOrLoad ensures the collection exists and is populated. When the
// collection already holds points and SQLite holds chunk texts, the
// existing index is reused without recomputing embeddings. Returns the
// number of chunks in the index; zero is a valid, low-information state
// (missing or empty corpus), not an error.
func (ix *Indexer) BuildOrLoad(ctx context.Context) (int, error) {
	logger := ix.logger

	if err := ix.vectorStore.EnsureCollection(ctx, ix.collection, ix.embedder.ExpectedSize()); err != nil {
		return 0, fmt.Errorf("failed to ensure collection: %w", err)
	}

	pointCount, err := ix.vectorStore.Count(ctx, ix.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection points: %w", err)
	}
	chunkCount, err := ix.chunkRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count stored chunks: %w", err)
	}

	if pointCount > 0 && chunkCount == pointCount {
		logger.InfoContext(ctx, "loading existing index", "collection", ix.collection, "chunks", pointCount)
		return pointCount, nil
	}
	if pointCount > 0 || chunkCount > 0 {
		// One side is stale (interrupted build, swapped corpus). Rebuild the
		// SQLite half wholesale; the vector upsert overwrites by point ID.
		logger.WarnContext(ctx, "index out of sync, rebuilding",
			"collection", ix.collection, "points", pointCount, "stored_chunks", chunkCount)
		if err := ix.chunkRepo.DeleteAll(ctx); err != nil {
			return 0, fmt.Errorf("failed to clear stale chunks: %w", err)
		}
	}

	return ix.build(ctx)
}

// build scans the corpus and populates both stores.
func (ix *Indexer) build(ctx context.Context) (int, error) {
	logger := ix.logger

	pages, err := ix.loader.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load corpus: %w", err)
	}
	if len(pages) == 0 {
		logger.WarnContext(ctx, "corpus yielded no pages, index is empty")
		return 0, nil
	}

	var chunks []Chunk
	for _, page := range pages {
		for _, chunk := range ix.splitter.Split(page) {
			chunk.ID = uuid.New().String()
			chunks = append(chunks, chunk)
		}
	}
	logger.InfoContext(ctx, "corpus chunked", "pages", len(pages), "chunks", len(chunks))

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		embeddings, err := ix.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk batch: %w", err)
		}
		if len(embeddings) != len(batch) {
			return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
		}

		points := make([]vectorstore.Point, len(batch))
		for i, chunk := range batch {
			points[i] = vectorstore.Point{
				ID:  chunk.ID,
				Vec: embeddings[i],
				Meta: map[string]any{
					"source_id":   chunk.SourceID,
					"page_number": chunk.PageNumber,
					"chunk_index": chunk.Index,
				},
			}

			record := &storage.ChunkRecord{
				ID:         chunk.ID,
				SourceID:   chunk.SourceID,
				PageNumber: chunk.PageNumber,
				ChunkIndex: chunk.Index,
				Text:       chunk.Text,
			}
			if err := ix.chunkRepo.Insert(ctx, record); err != nil {
				return 0, fmt.Errorf("failed to persist chunk: %w", err)
			}
		}

		if err := ix.vectorStore.Upsert(ctx, ix.collection, points); err != nil {
			return 0, fmt.Errorf("failed to upsert vectors: %w", err)
		}

		logger.DebugContext(ctx, "indexed chunk batch", "from", start, "to", end)
	}

	logger.InfoContext(ctx, "index built", "collection", ix.collection, "chunks", len(chunks))
	return len(chunks), nil
}
