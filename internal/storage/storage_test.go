package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "articles/acme/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "indexes/acme/documents/search_index_000002.idx", []byte("two")))
	require.NoError(t, s.Put(ctx, "indexes/acme/documents/search_index_000001.idx", []byte("one")))
	require.NoError(t, s.Put(ctx, "indexes/acme-corp/documents/search_index_000001.idx", []byte("other")))
	require.NoError(t, s.Put(ctx, "articles/acme/0001.json", []byte(`{"id":"1"}`)))

	keys, err := s.List(ctx, "indexes/acme/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"indexes/acme/documents/search_index_000001.idx",
		"indexes/acme/documents/search_index_000002.idx",
	}, keys)

	keys, err = s.List(ctx, "indexes/nobody/")
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, s.Put(ctx, "indexes/acme/documents/search_index_000001.idx", []byte("uno")))
	data, err := s.Get(ctx, "indexes/acme/documents/search_index_000001.idx")
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), data)

	require.NoError(t, s.Delete(ctx, "indexes/acme/documents/search_index_000002.idx"))
	require.NoError(t, s.Delete(ctx, "indexes/acme/documents/search_index_000002.idx"))
	_, err = s.Get(ctx, "indexes/acme/documents/search_index_000002.idx")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Put(ctx, "../escape", []byte("x")))
	assert.Error(t, s.Put(ctx, "a//b", []byte("x")))
}

func TestMemStore(t *testing.T) {
	exerciseStore(t, NewMemStore())
}

func TestMemStoreCopies(t *testing.T) {
	s := NewMemStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(context.Background(), "k", buf))
	buf[0] = 'z'
	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFSStore(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root)
	require.NoError(t, err)
	exerciseStore(t, s)

	// leftover temp files from an interrupted write are invisible
	dir := filepath.Join(root, "indexes", "acme", "documents")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "search_index_000009.idx.123.tmp"), []byte("partial"), 0o644))
	keys, err := s.List(context.Background(), "indexes/acme/documents/")
	require.NoError(t, err)
	assert.Equal(t, []string{"indexes/acme/documents/search_index_000001.idx"}, keys)
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv("TS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TS_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	if err := db.Ping(); err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}

	ctx := context.Background()
	table := fmt.Sprintf("blobs_test_%d", time.Now().UnixNano())
	s, err := NewPGStore(ctx, &postgres.Client{DB: db}, table)
	require.NoError(t, err)
	t.Cleanup(func() { db.Exec("DROP TABLE " + table) })
	exerciseStore(t, s)
}

func TestPGStoreRejectsBadTable(t *testing.T) {
	_, err := NewPGStore(context.Background(), nil, "blobs; DROP TABLE x")
	assert.Error(t, err)
}

// flakyStore fails the first n calls of every operation.
type flakyStore struct {
	BlobStore
	failures atomic.Int32
}

var errFlaky = errors.New("connection reset")

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, errFlaky
	}
	return f.BlobStore.Get(ctx, key)
}

func TestGuardedRetriesTransientErrors(t *testing.T) {
	mem := NewMemStore()
	require.NoError(t, mem.Put(context.Background(), "k", []byte("v")))
	flaky := &flakyStore{BlobStore: mem}
	flaky.failures.Store(2)

	g := NewGuarded(flaky, "test", resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, resilience.CircuitBreakerConfig{FailureThreshold: 10})
	data, err := g.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
}

func TestGuardedDoesNotRetryNotFound(t *testing.T) {
	calls := 0
	counting := &countingStore{BlobStore: NewMemStore(), calls: &calls}
	g := NewGuarded(counting, "test", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, resilience.CircuitBreakerConfig{FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		_, err := g.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, resilience.StateClosed, g.State())
}

func TestGuardedOpensBreaker(t *testing.T) {
	flaky := &flakyStore{BlobStore: NewMemStore()}
	flaky.failures.Store(100)
	g := NewGuarded(flaky, "test", resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})

	_, err := g.Get(context.Background(), "k")
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, resilience.StateOpen, g.State())

	_, err = g.Get(context.Background(), "k")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

type countingStore struct {
	BlobStore
	calls *int
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	*c.calls++
	return c.BlobStore.Get(ctx, key)
}

func TestKeys(t *testing.T) {
	ts := time.Unix(1700000000, 5)
	key := ArticleKey("acme", ts)
	assert.Equal(t, "articles/acme/1700000000000000005.json", key)
	assert.True(t, IsArticleKey("acme", key))
	assert.False(t, IsArticleKey("acme", "articles/acme-corp/1.json"))
	assert.False(t, IsArticleKey("acme", "articles/acme/sub/1.json"))

	tenant, ok := TenantOf(key)
	assert.True(t, ok)
	assert.Equal(t, "acme", tenant)
	tenant, ok = TenantOf("indexes/beta/documents/search_index_000001.idx")
	assert.True(t, ok)
	assert.Equal(t, "beta", tenant)
	_, ok = TenantOf("elsewhere/acme/x")
	assert.False(t, ok)
}

func TestOpenMemory(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Backend: config.BackendMemory}}
	opened, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, opened.Ping(context.Background()))
	require.NoError(t, opened.Store.Put(context.Background(), "a/b", []byte("x")))
	require.NoError(t, opened.Close())
}
