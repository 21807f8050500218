package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/storage"
	apperrors "github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

// Request is one tenant query.
type Request struct {
	Tenant string
	Query  string
	Limit  int
}

// SearchResult is the merged answer for a Request.
type SearchResult struct {
	Tenant  string       `json:"tenant"`
	Query   string       `json:"query"`
	Shards  int          `json:"shards"`
	Results []string     `json:"results"`
	Hits    []ranker.Hit `json:"hits"`
}

type Options struct {
	IndexName           string
	DefaultLimit        int
	MaxResults          int
	MaxConcurrentShards int
	TimeoutPerShard     time.Duration
}

// ShardedExecutor answers tenant queries by loading every shard of the
// tenant's index from the blob store, scoring them in parallel and merging
// the per-shard hit lists.
type ShardedExecutor struct {
	store   storage.BlobStore
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewSharded(store storage.BlobStore, opts Options, m *metrics.Metrics) *ShardedExecutor {
	if opts.IndexName == "" {
		opts.IndexName = index.DefaultName
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = merger.DefaultLimit
	}
	if opts.MaxResults < opts.DefaultLimit {
		opts.MaxResults = opts.DefaultLimit
	}
	if opts.MaxConcurrentShards <= 0 {
		opts.MaxConcurrentShards = 8
	}
	return &ShardedExecutor{
		store:   store,
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "sharded-executor"),
	}
}

// Normalize validates req and resolves its limit: zero means the default and
// anything above MaxResults is capped.
func (se *ShardedExecutor) Normalize(req Request) (Request, error) {
	if req.Tenant == "" {
		return req, fmt.Errorf("%w: tenant is required", apperrors.ErrInvalidQuery)
	}
	if !shard.ValidTenant(req.Tenant) {
		return req, fmt.Errorf("%w: invalid tenant %q", apperrors.ErrInvalidQuery, req.Tenant)
	}
	switch {
	case req.Limit < 0:
		return req, fmt.Errorf("%w: limit must not be negative", apperrors.ErrInvalidQuery)
	case req.Limit == 0:
		req.Limit = se.opts.DefaultLimit
	case req.Limit > se.opts.MaxResults:
		req.Limit = se.opts.MaxResults
	}
	return req, nil
}

// ListShards returns the tenant's shard keys in shard order.
func (se *ShardedExecutor) ListShards(ctx context.Context, tenant string) ([]string, error) {
	keys, err := se.store.List(ctx, shard.Prefix(tenant, se.opts.IndexName))
	if err != nil {
		return nil, fmt.Errorf("%w: listing shards: %w", apperrors.ErrShardLoad, err)
	}
	return shard.FilterKeys(keys), nil
}

// Execute runs req over every shard of the tenant. Any shard that cannot be
// fetched or decoded fails the whole query; no partial result is returned.
func (se *ShardedExecutor) Execute(ctx context.Context, req Request) (res *SearchResult, err error) {
	start := time.Now()
	defer func() {
		if se.metrics != nil {
			se.metrics.SearchQueriesTotal.WithLabelValues(apperrors.Kind(err)).Inc()
		}
	}()

	req, err = se.Normalize(req)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("component", "sharded-executor", "tenant", req.Tenant)
	ctx, span := tracing.Start(ctx, "search")
	span.SetAttr("query", req.Query)
	defer func() {
		span.End(err)
		span.Log(ctx, log)
	}()

	keys, err := se.ListShards(ctx, req.Tenant)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("tenant %s: %w", req.Tenant, apperrors.ErrNoShards)
	}

	result := &SearchResult{
		Tenant:  req.Tenant,
		Query:   req.Query,
		Shards:  len(keys),
		Results: []string{},
		Hits:    []ranker.Hit{},
	}
	plan := parser.Parse(req.Query)
	if plan.Empty() {
		return result, nil
	}

	perShard := make([]merger.ShardResult, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(se.opts.MaxConcurrentShards)
	for i, key := range keys {
		g.Go(func() (err error) {
			sctx, sspan := tracing.Start(gctx, "shard")
			sspan.SetAttr("key", key)
			defer func() { sspan.End(err) }()

			idx, err := se.loadShard(sctx, key)
			if err != nil {
				return fmt.Errorf("shard %s: %w", key, err)
			}
			hits := Execute(idx, plan, req.Limit)
			sspan.SetAttr("hits", len(hits))
			perShard[i] = merger.ShardResult{Key: key, Hits: hits}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("query failed", "query", req.Query, "shards", len(keys), "error", err)
		return nil, err
	}

	hits, err := merger.Merge(perShard, req.Limit)
	if err != nil {
		return nil, err
	}
	result.Hits = hits
	result.Results = ranker.Refs(hits)

	if se.metrics != nil {
		se.metrics.ShardsPerQuery.Observe(float64(len(keys)))
		se.metrics.SearchResultsCount.Observe(float64(len(hits)))
	}
	log.Info("sharded query executed",
		"query", req.Query,
		"shards_queried", len(keys),
		"results", len(hits),
		"duration", time.Since(start),
	)
	return result, nil
}

// loadShard fetches one shard blob under the per-shard timeout and decodes it.
func (se *ShardedExecutor) loadShard(ctx context.Context, key string) (*index.Index, error) {
	start := time.Now()
	data, err := resilience.Do(ctx, se.opts.TimeoutPerShard, "fetch "+key, func(ctx context.Context) ([]byte, error) {
		return se.store.Get(ctx, key)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrShardLoad, err)
	}
	idx, err := segment.Decode(data)
	if err != nil {
		return nil, err
	}
	if se.metrics != nil {
		se.metrics.ShardLoadDuration.Observe(time.Since(start).Seconds())
	}
	return idx, nil
}
