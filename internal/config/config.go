package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// LLM backend (any OpenAI-compatible endpoint).
	LLMBaseURL   string
	LLMModelName string
	LLMAPIKey    string

	// Embeddings backend.
	EmbeddingBaseURL   string
	EmbeddingModelName string

	// Corpus source.
	CorpusPath  string
	CorpusTitle string

	// Chunking parameters. ChunkSize is in runes; ChunkOverlap must be
	// smaller than ChunkSize.
	ChunkSize    int
	ChunkOverlap int

	// Citation pagination: number of front-matter pages before page 1 of
	// the corpus's own pagination (cover, preface, table of contents).
	PageOffset int

	// Retrieval thresholds. Distances are 1 - cosine similarity, so both
	// live in [0, 2]. Corpus- and model-dependent; tune empirically.
	StrictDistanceThreshold float64
	LooseDistanceThreshold  float64
	RetrievalK              int

	// SQLite log store.
	DBPath string

	// Qdrant vector index.
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	// Per-session request quota.
	RateLimitQuota    int
	RateLimitWindow   time.Duration
	RateLimitCooldown time.Duration

	ExternalCallTimeout time.Duration

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a .env next to go.mod (project root).
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.mistral.ai/v1"),
		LLMModelName:       getEnv("LLM_MODEL", "open-mistral-7b"),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		CorpusPath:         getEnv("CORPUS_PATH", ""),
		CorpusTitle:        getEnv("CORPUS_TITLE", "the textbook"),
		DBPath:             getEnv("DB_PATH", "./data/chatbot.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "textbook"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// Embeddings default to the same endpoint as the LLM.
	if cfg.EmbeddingBaseURL == "" {
		cfg.EmbeddingBaseURL = cfg.LLMBaseURL
	}

	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	if cfg.CorpusPath == "" {
		return nil, fmt.Errorf("CORPUS_PATH is required")
	}

	cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	if cfg.ChunkSize < 200 || cfg.ChunkSize > 2048 {
		return nil, fmt.Errorf("CHUNK_SIZE must be between 200 and 2048, got %d", cfg.ChunkSize)
	}
	cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", cfg.ChunkOverlap)
	}

	cfg.PageOffset, err = getEnvInt("PAGE_OFFSET", 0)
	if err != nil {
		return nil, err
	}
	if cfg.PageOffset < 0 {
		return nil, fmt.Errorf("PAGE_OFFSET must be non-negative, got %d", cfg.PageOffset)
	}

	cfg.StrictDistanceThreshold, err = getEnvFloat("STRICT_DISTANCE_THRESHOLD", 0.45)
	if err != nil {
		return nil, err
	}
	cfg.LooseDistanceThreshold, err = getEnvFloat("LOOSE_DISTANCE_THRESHOLD", 0.65)
	if err != nil {
		return nil, err
	}
	if cfg.StrictDistanceThreshold > cfg.LooseDistanceThreshold {
		return nil, fmt.Errorf("STRICT_DISTANCE_THRESHOLD (%g) must not exceed LOOSE_DISTANCE_THRESHOLD (%g)",
			cfg.StrictDistanceThreshold, cfg.LooseDistanceThreshold)
	}

	cfg.RetrievalK, err = getEnvInt("RETRIEVAL_K", 10)
	if err != nil {
		return nil, err
	}
	if cfg.RetrievalK <= 0 {
		return nil, fmt.Errorf("RETRIEVAL_K must be greater than 0")
	}

	// This must match the output vector size of the embeddings model.
	// If the vector size changes, the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	cfg.RateLimitQuota, err = getEnvInt("RATE_LIMIT_QUOTA", 10)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitQuota <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_QUOTA must be greater than 0")
	}
	cfg.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitCooldown, err = getEnvDuration("RATE_LIMIT_COOLDOWN", 60*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.ExternalCallTimeout, err = getEnvDuration("EXTERNAL_CALL_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))

	// Create the data directory for the SQLite file if needed.
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
