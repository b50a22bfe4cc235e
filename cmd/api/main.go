package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"textbook-chatbot/internal/answer"
	"textbook-chatbot/internal/chatbot"
	"textbook-chatbot/internal/citation"
	"textbook-chatbot/internal/config"
	"textbook-chatbot/internal/corpus"
	"textbook-chatbot/internal/http"
	"textbook-chatbot/internal/llm"
	"textbook-chatbot/internal/ratelimit"
	"textbook-chatbot/internal/retrieval"
	"textbook-chatbot/internal/storage"
	"textbook-chatbot/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	chunkRepo := storage.NewChunkRepo(db)
	conversationRepo := storage.NewConversationRepo(db)
	sessionRepo := storage.NewSessionRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(
		cfg.EmbeddingBaseURL,
		cfg.LLMAPIKey,
		cfg.EmbeddingModelName,
		cfg.QdrantVectorSize,
		cfg.ExternalCallTimeout,
	)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Build or load the corpus index before serving; questions against a
	// half-built index would gate everything out.
	indexer := corpus.NewIndexer(
		corpus.NewLoader(cfg.CorpusPath),
		corpus.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		vectorStore,
		chunkRepo,
		cfg.QdrantCollection,
	)
	chunkCount, err := indexer.BuildOrLoad(ctx)
	if err != nil {
		log.Fatalf("Failed to build corpus index: %v", err)
	}
	slog.Info("Corpus index ready", "collection", cfg.QdrantCollection, "chunks", chunkCount)

	// One completion client shared by the rewrite stage and the
	// synthesizer, paced so back-to-back model calls sit ~1s apart.
	pacer := rate.NewLimiter(rate.Every(time.Second), 1)
	llmClient := llm.NewClient(
		cfg.LLMBaseURL,
		cfg.LLMAPIKey,
		cfg.LLMModelName,
		llm.WithTimeout(cfg.ExternalCallTimeout),
		llm.WithPacer(pacer),
	)

	retrievalService := retrieval.NewService(embedder, vectorStore, chunkRepo, cfg.QdrantCollection)
	gate := retrieval.NewGate(cfg.StrictDistanceThreshold, cfg.LooseDistanceThreshold)
	chain := retrieval.NewChain(retrievalService, gate, llmClient, cfg.CorpusTitle, cfg.RetrievalK)

	synthesizer := answer.NewSynthesizer(llmClient, nil, cfg.CorpusTitle)
	formatter := citation.NewFormatter(citation.FrontMatterPagination{Offset: cfg.PageOffset}, 0)

	engine := chatbot.NewEngine(
		chain,
		synthesizer,
		formatter,
		conversationRepo,
		llmClient.Model(),
		cfg.CorpusTitle,
	)
	slog.Info("Chat engine initialized", "corpus", cfg.CorpusTitle, "model", llmClient.Model())

	limiter := ratelimit.NewSessionLimiter(cfg.RateLimitQuota, cfg.RateLimitWindow, cfg.RateLimitCooldown)
	go func() {
		ticker := time.NewTicker(cfg.RateLimitWindow)
		defer ticker.Stop()
		for range ticker.C {
			limiter.Prune()
		}
	}()

	deps := &http.Deps{
		Engine:        engine,
		Conversations: conversationRepo,
		Sessions:      sessionRepo,
		Limiter:       limiter,
		VectorStore:   vectorStore,
		DB:            db,
		Collection:    cfg.QdrantCollection,
		CorpusPath:    cfg.CorpusPath,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
