package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var envVars = []string{
	"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME",
	"CORPUS_PATH", "CORPUS_TITLE",
	"CHUNK_SIZE", "CHUNK_OVERLAP", "PAGE_OFFSET",
	"STRICT_DISTANCE_THRESHOLD", "LOOSE_DISTANCE_THRESHOLD", "RETRIEVAL_K",
	"DB_PATH", "QDRANT_URL", "QDRANT_COLLECTION", "QDRANT_VECTOR_SIZE",
	"RATE_LIMIT_QUOTA", "RATE_LIMIT_WINDOW", "RATE_LIMIT_COOLDOWN",
	"EXTERNAL_CALL_TIMEOUT", "API_PORT", "LOG_LEVEL", "LOG_FORMAT",
}

// stashEnv saves and clears the config env vars, restoring them on cleanup.
func stashEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string)
	for _, key := range envVars {
		original[key] = os.Getenv(key)
		unsetEnv(key)
	}
	t.Cleanup(func() {
		for key, value := range original {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	})
}

// setRequired sets the minimal environment Load accepts.
func setRequired(t *testing.T) {
	setEnv("LLM_API_KEY", "test-key")
	setEnv("CORPUS_PATH", t.TempDir())
	setEnv("QDRANT_VECTOR_SIZE", "1536")
}

func TestLoad(t *testing.T) {
	stashEnv(t)

	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name: "valid config with required fields",
			setupEnv: func(t *testing.T) {
				setRequired(t)
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMAPIKey == "test-key" &&
					cfg.CorpusPath != "" &&
					cfg.QdrantVectorSize == 1536
			},
		},
		{
			name: "missing LLM_API_KEY",
			setupEnv: func(t *testing.T) {
				setEnv("CORPUS_PATH", t.TempDir())
				setEnv("QDRANT_VECTOR_SIZE", "1536")
			},
			wantErr: true,
		},
		{
			name: "missing CORPUS_PATH",
			setupEnv: func(t *testing.T) {
				setEnv("LLM_API_KEY", "test-key")
				setEnv("QDRANT_VECTOR_SIZE", "1536")
			},
			wantErr: true,
		},
		{
			name: "missing QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("LLM_API_KEY", "test-key")
				setEnv("CORPUS_PATH", t.TempDir())
			},
			wantErr: true,
		},
		{
			name: "invalid QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				setEnv("QDRANT_VECTOR_SIZE", "invalid")
			},
			wantErr: true,
		},
		{
			name: "default values for optional fields",
			setupEnv: func(t *testing.T) {
				setRequired(t)
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.ChunkSize == 1000 &&
					cfg.ChunkOverlap == 200 &&
					cfg.PageOffset == 0 &&
					cfg.StrictDistanceThreshold == 0.45 &&
					cfg.LooseDistanceThreshold == 0.65 &&
					cfg.RetrievalK == 10 &&
					cfg.RateLimitQuota == 10 &&
					cfg.RateLimitWindow == 60*time.Second &&
					cfg.RateLimitCooldown == 60*time.Second &&
					cfg.ExternalCallTimeout == 30*time.Second &&
					cfg.CorpusTitle == "the textbook" &&
					cfg.QdrantCollection == "textbook" &&
					cfg.APIPort == "9000" &&
					cfg.LogLevel == slog.LevelInfo
			},
		},
		{
			name: "embedding endpoint defaults to LLM endpoint",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				setEnv("LLM_BASE_URL", "http://custom:9090")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.EmbeddingBaseURL == "http://custom:9090"
			},
		},
		{
			name: "chunk size below minimum",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				setEnv("CHUNK_SIZE", "100")
			},
			wantErr: true,
		},
		{
			name: "chunk overlap not smaller than chunk size",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				setEnv("CHUNK_SIZE", "500")
				setEnv("CHUNK_OVERLAP", "500")
			},
			wantErr: true,
		},
		{
			name: "strict threshold above loose threshold",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				setEnv("STRICT_DISTANCE_THRESHOLD", "0.7")
				setEnv("LOOSE_DISTANCE_THRESHOLD", "0.5")
			},
			wantErr: true,
		},
		{
			name: "negative page offset",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				setEnv("PAGE_OFFSET", "-1")
			},
			wantErr: true,
		},
		{
			name: "zero rate limit quota",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				setEnv("RATE_LIMIT_QUOTA", "0")
			},
			wantErr: true,
		},
		{
			name: "invalid rate limit window",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				setEnv("RATE_LIMIT_WINDOW", "sixty seconds")
			},
			wantErr: true,
		},
		{
			name: "custom tuning values",
			setupEnv: func(t *testing.T) {
				setRequired(t)
				setEnv("CHUNK_SIZE", "800")
				setEnv("CHUNK_OVERLAP", "100")
				setEnv("PAGE_OFFSET", "33")
				setEnv("RETRIEVAL_K", "5")
				setEnv("RATE_LIMIT_WINDOW", "30s")
				setEnv("LOG_LEVEL", "debug")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.ChunkSize == 800 &&
					cfg.ChunkOverlap == 100 &&
					cfg.PageOffset == 33 &&
					cfg.RetrievalK == 5 &&
					cfg.RateLimitWindow == 30*time.Second &&
					cfg.LogLevel == slog.LevelDebug
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Change to a temp directory without .env file to avoid loading it
			tmpDir := t.TempDir()
			originalWd, _ := os.Getwd()
			_ = os.Chdir(tmpDir)
			defer func() {
				_ = os.Chdir(originalWd)
			}()

			for _, key := range envVars {
				unsetEnv(key)
			}
			setEnv("DB_PATH", filepath.Join(tmpDir, "data", "test.db"))

			tt.setupEnv(t)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed")
			}
		})
	}
}

func TestLoadCreatesDataDirectory(t *testing.T) {
	stashEnv(t)

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "db.db")

	setRequired(t)
	setEnv("DB_PATH", dbPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Errorf("Load() should create data directory: %v", err)
	}
	if cfg.DBPath != dbPath {
		t.Errorf("Load() DBPath = %v, want %v", cfg.DBPath, dbPath)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"garbage", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
