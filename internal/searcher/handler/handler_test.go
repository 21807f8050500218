package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store := storage.NewMemStore()
	docs := []index.Document{
		{"id": "D1", "text": "apple pie"},
		{"id": "D2", "text": "apple sauce"},
		{"id": "D3", "text": "banana bread"},
	}
	groups, err := shard.Split(docs, 2)
	require.NoError(t, err)
	for i, g := range groups {
		idx, err := index.Build(g, index.Config{Fields: []string{"text"}, Ref: "id"})
		require.NoError(t, err)
		data, err := segment.Encode(idx)
		require.NoError(t, err)
		require.NoError(t, store.Put(context.Background(), shard.Key("acme", index.DefaultName, i+1), data))
	}
	exec := executor.NewSharded(store, executor.Options{MaxResults: 50, TimeoutPerShard: time.Second}, nil)
	return New(exec, nil, nil)
}

func doSearch(h *Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSearchOK(t *testing.T) {
	rec := doSearch(newTestHandler(t), "/api/v1/search?tenant=acme&q=apple")
	require.Equal(t, http.StatusOK, rec.Code)

	var res executor.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []string{"D1", "D2"}, res.Results)
	assert.Equal(t, 2, res.Shards)
	assert.Equal(t, "apple", res.Query)
}

func TestSearchCountAlias(t *testing.T) {
	rec := doSearch(newTestHandler(t), "/api/v1/search?tenant=acme&q=apple&count=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var res executor.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []string{"D1"}, res.Results)
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing q", "/api/v1/search?tenant=acme", http.StatusBadRequest},
		{"missing tenant", "/api/v1/search?q=apple", http.StatusBadRequest},
		{"bad limit", "/api/v1/search?tenant=acme&q=apple&limit=zero", http.StatusBadRequest},
		{"unknown tenant", "/api/v1/search?tenant=nobody&q=apple", http.StatusPreconditionFailed},
	}
	h := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doSearch(h, tt.target)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	rec := doSearch(newTestHandler(t), "/api/v1/search?tenant=acme&q=")
	require.Equal(t, http.StatusOK, rec.Code)

	var res executor.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Empty(t, res.Results)
}

func TestCacheEndpointsDisabled(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Contains(t, rec.Body.String(), "disabled")

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate?tenant=acme", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
