// Package merger combines per-shard hit lists into one globally ranked,
// size-bounded list.
package merger

import (
	"container/heap"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/ranker"
)

// DefaultLimit applies when the caller passes no positive limit.
const DefaultLimit = 25

// ShardResult is the outcome of querying one shard. Err is set when the
// shard's hits could not be obtained.
type ShardResult struct {
	Key  string
	Hits []ranker.Hit
	Err  error
}

// Merge returns the best limit hits across all shards, ordered by score
// descending then ref ascending. If any shard failed, Merge fails with that
// shard's error instead of returning partial results.
func Merge(results []ShardResult, limit int) ([]ranker.Hit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	for _, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("shard %s: %w", r.Key, r.Err)
		}
	}
	h := &hitHeap{}
	heap.Init(h)
	for _, r := range results {
		for _, hit := range r.Hits {
			heap.Push(h, hit)
			if h.Len() > limit {
				heap.Pop(h)
			}
		}
	}
	merged := make([]ranker.Hit, h.Len())
	for i := len(merged) - 1; i >= 0; i-- {
		merged[i] = heap.Pop(h).(ranker.Hit)
	}
	return merged, nil
}

// hitHeap keeps the worst retained hit on top so it is evicted first.
type hitHeap []ranker.Hit

func (h hitHeap) Len() int { return len(h) }

func (h hitHeap) Less(i, j int) bool { return ranker.Less(h[j], h[i]) }

func (h hitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) {
	*h = append(*h, x.(ranker.Hit))
}

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
