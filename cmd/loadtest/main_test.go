package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAndSearch(t *testing.T) {
	var uploads atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/documents":
			var doc map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
			assert.NotEmpty(t, doc["id"])
			uploads.Add(1)
			w.WriteHeader(http.StatusAccepted)
		case "/api/v1/search":
			assert.Equal(t, "acme", r.URL.Query().Get("tenant"))
			json.NewEncoder(w).Encode(map[string]any{"results": []string{"doc-000001"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := Config{
		SearchURL:   srv.URL,
		IngestURL:   srv.URL,
		Tenant:      "acme",
		APIKey:      "secret",
		Concurrency: 2,
		Duration:    100 * time.Millisecond,
		Seed:        5,
		Queries:     []string{"apple"},
	}
	require.NoError(t, seedDocuments(t.Context(), srv.Client(), cfg))
	assert.EqualValues(t, 5, uploads.Load())

	stats := runLoadTest(srv.Client(), cfg)
	assert.Positive(t, stats.success.Load())
	assert.Zero(t, stats.errors.Load())
	assert.Zero(t, stats.empty.Load())
}

func TestSyntheticTextUsesVocabulary(t *testing.T) {
	assert.Equal(t, syntheticText(3), syntheticText(3))
	assert.NotEqual(t, syntheticText(1), syntheticText(2))
}
