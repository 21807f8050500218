package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/ranker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("redis: nil")

type fakeBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string][]byte)}
}

func (f *fakeBackend) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, errMissing
	}
	return v, nil
}

func (f *fakeBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeBackend) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func result(tenant string, refs ...string) *executor.SearchResult {
	hits := make([]ranker.Hit, len(refs))
	for i, r := range refs {
		hits[i] = ranker.Hit{Ref: r, Score: 100}
	}
	return &executor.SearchResult{Tenant: tenant, Shards: 1, Results: refs, Hits: hits}
}

func TestBuildKey(t *testing.T) {
	a := BuildKey(executor.Request{Tenant: "acme", Query: "Apple", Limit: 25})
	assert.Regexp(t, `^search:acme:[0-9a-f]{32}$`, a)
	assert.NotEqual(t, a, BuildKey(executor.Request{Tenant: "acme", Query: "apple", Limit: 25}), "case matters")
	assert.NotEqual(t, a, BuildKey(executor.Request{Tenant: "acme", Query: "Apple", Limit: 10}))
	assert.NotEqual(t, a, BuildKey(executor.Request{Tenant: "beta", Query: "Apple", Limit: 25}))
	assert.Equal(t, a, BuildKey(executor.Request{Tenant: "acme", Query: "Apple", Limit: 25}))
}

func TestGetOrCompute(t *testing.T) {
	c := New(newFakeBackend(), time.Minute, nil)
	req := executor.Request{Tenant: "acme", Query: "apple", Limit: 25}
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return result("acme", "D1"), nil
	}

	got, hit, err := c.GetOrCompute(context.Background(), req, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"D1"}, got.Results)

	got, hit, err = c.GetOrCompute(context.Background(), req, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"D1"}, got.Results)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(newFakeBackend(), time.Minute, nil)
	req := executor.Request{Tenant: "acme", Query: "apple", Limit: 25}
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), req, func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get(context.Background(), req)
	assert.False(t, ok)
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c := New(newFakeBackend(), time.Minute, nil)
	req := executor.Request{Tenant: "acme", Query: "apple", Limit: 25}
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), req, func() (*executor.SearchResult, error) {
				calls.Add(1)
				<-release
				return result("acme", "D1"), nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestInvalidateTenant(t *testing.T) {
	backend := newFakeBackend()
	c := New(backend, time.Minute, nil)
	ctx := context.Background()
	acme := executor.Request{Tenant: "acme", Query: "apple", Limit: 25}
	acmeCorp := executor.Request{Tenant: "acme-corp", Query: "apple", Limit: 25}
	c.Set(ctx, acme, result("acme", "D1"))
	c.Set(ctx, acmeCorp, result("acme-corp", "X1"))

	require.NoError(t, c.InvalidateTenant(ctx, "acme"))
	_, ok := c.Get(ctx, acme)
	assert.False(t, ok)
	got, ok := c.Get(ctx, acmeCorp)
	require.True(t, ok)
	assert.Equal(t, []string{"X1"}, got.Results)
}
