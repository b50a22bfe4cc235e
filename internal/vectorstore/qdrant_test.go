package vectorstore

import (
	"context"
	"net/url"
	"strconv"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

// TestNewQdrantStoreURLParsing tests URL parsing logic without creating a real client.
// This avoids connection warnings in unit tests.
func TestNewQdrantStoreURLParsing(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantHost string
		wantPort int
	}{
		{
			name:     "valid URL",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "URL with custom port",
			urlStr:   "http://qdrant.internal:9000",
			wantHost: "qdrant.internal",
			wantPort: 9001,
		},
		{
			name:     "URL without port",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334, // Default
		},
		{
			name:     "URL without hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost", // Defaults to localhost
			wantPort: 6334,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsedURL, err := url.Parse(tt.urlStr)
			if err != nil {
				t.Fatalf("Failed to parse URL: %v", err)
			}

			// Same derivation NewQdrantStore performs.
			host := parsedURL.Hostname()
			if host == "" {
				host = "localhost"
			}

			port := 6334
			if parsedURL.Port() != "" {
				httpPort, err := strconv.Atoi(parsedURL.Port())
				if err == nil {
					port = httpPort + 1
				}
			}

			if host != tt.wantHost {
				t.Errorf("Host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("Port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantStoreInvalidURL(t *testing.T) {
	_, err := NewQdrantStore("://invalid")
	if err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestQdrantStoreUpsertEmptyPoints(t *testing.T) {
	// Empty input returns before the client is touched.
	store := &QdrantStore{}

	if err := store.Upsert(context.Background(), "test-collection", nil); err != nil {
		t.Errorf("Upsert() with no points should return early without error, got: %v", err)
	}
}

func TestQdrantStoreSearchInvalidK(t *testing.T) {
	// Validation fails before the client is touched.
	store := &QdrantStore{}

	if _, err := store.Search(context.Background(), "test-collection", []float32{1.0, 2.0}, 0); err == nil {
		t.Error("Search() with k=0 should return error")
	}
	if _, err := store.Search(context.Background(), "test-collection", []float32{1.0, 2.0}, -1); err == nil {
		t.Error("Search() with k=-1 should return error")
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	payload := map[string]*qdrant.Value{
		"source_id": {Kind: &qdrant.Value_StringValue{StringValue: "book.pdf"}},
		"page":      {Kind: &qdrant.Value_IntegerValue{IntegerValue: 4}},
		"relevant":  {Kind: &qdrant.Value_BoolValue{BoolValue: true}},
		"dropped":   nil,
	}

	result := convertPayloadToMap(payload)

	if got := result["source_id"]; got != "book.pdf" {
		t.Errorf("source_id = %v, want book.pdf", got)
	}
	if got := result["page"]; got != int64(4) {
		t.Errorf("page = %v, want int64(4)", got)
	}
	if got := result["relevant"]; got != true {
		t.Errorf("relevant = %v, want true", got)
	}
	if _, ok := result["dropped"]; ok {
		t.Error("nil payload values should be skipped")
	}
}

func TestConvertPayloadToMapNil(t *testing.T) {
	result := convertPayloadToMap(nil)
	if result == nil {
		t.Error("convertPayloadToMap() should return empty map, not nil")
	}
	if len(result) != 0 {
		t.Errorf("convertPayloadToMap(nil) returned %d items", len(result))
	}
}
