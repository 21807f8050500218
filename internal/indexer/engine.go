// Package indexer rebuilds a tenant's sharded search index from the articles
// held in the blob store.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/storage"
	apperrors "github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

// Result summarises one re-index run.
type Result struct {
	Tenant    string        `json:"tenant"`
	Name      string        `json:"name"`
	Documents int           `json:"documents"`
	Shards    int           `json:"shards"`
	Keys      []string      `json:"keys"`
	Removed   []string      `json:"removed,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// CompleteEvent is published after a tenant's shard set has been replaced.
type CompleteEvent struct {
	Tenant      string    `json:"tenant"`
	Name        string    `json:"name"`
	Documents   int       `json:"documents"`
	Shards      int       `json:"shards"`
	CompletedAt time.Time `json:"completed_at"`
}

type Engine struct {
	store   storage.BlobStore
	cfg     index.Config
	workers int
	metrics *metrics.Metrics
	logger  *slog.Logger
	locks   sync.Map
}

func NewEngine(store storage.BlobStore, cfg index.Config, workers int, m *metrics.Metrics) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		store:   store,
		cfg:     cfg,
		workers: workers,
		metrics: m,
		logger:  slog.Default().With("component", "indexer", "index", cfg.Name),
	}, nil
}

// Config returns the validated index configuration.
func (e *Engine) Config() index.Config {
	return e.cfg
}

// Reindex rebuilds the tenant's whole shard set. Every shard is built and
// encoded before the first upload, so a build failure leaves the previous
// set untouched. Shards left over from an earlier, larger set are removed
// afterwards. Runs for the same tenant are serialised.
//
// Shard keys are overwritten in place, so the swap is not atomic for readers:
// a search that lists shards during the upload may see some shards from the
// previous build, and a ref that moved between shards can then be returned
// twice. The window closes when the upload and stale removal finish.
func (e *Engine) Reindex(ctx context.Context, tenant string) (res *Result, err error) {
	if !shard.ValidTenant(tenant) {
		return nil, fmt.Errorf("%w: invalid tenant %q", apperrors.ErrInvalidInput, tenant)
	}
	mu, _ := e.locks.LoadOrStore(tenant, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	start := time.Now()
	log := e.logger.With("tenant", tenant)
	ctx, span := tracing.Start(ctx, "reindex")
	span.SetAttr("tenant", tenant)
	defer func() {
		span.End(err)
		span.Log(ctx, log)
		if e.metrics == nil {
			return
		}
		status := "success"
		if err != nil {
			status = "failed"
		}
		e.metrics.ReindexTotal.WithLabelValues(status).Inc()
		e.metrics.ReindexDuration.Observe(time.Since(start).Seconds())
	}()

	_, loadSpan := tracing.Start(ctx, "load")
	docs, err := e.loadDocuments(ctx, tenant)
	loadSpan.SetAttr("documents", len(docs))
	loadSpan.End(err)
	if err != nil {
		return nil, err
	}
	docs = dedupeRefs(docs, e.cfg, log)

	_, buildSpan := tracing.Start(ctx, "build")
	blobs, err := BuildShardSet(ctx, docs, e.cfg, e.workers)
	buildSpan.End(err)
	if err != nil {
		log.Error("shard build failed, keeping previous index", "documents", len(docs), "error", err)
		return nil, err
	}

	keys := make([]string, len(blobs))
	for i := range blobs {
		keys[i] = shard.Key(tenant, e.cfg.Name, i+1)
	}
	_, uploadSpan := tracing.Start(ctx, "upload")
	uploadSpan.SetAttr("shards", len(blobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range blobs {
		g.Go(func() error {
			if err := e.store.Put(gctx, keys[i], blobs[i]); err != nil {
				return fmt.Errorf("uploading %s: %w", keys[i], err)
			}
			return nil
		})
	}
	err = g.Wait()
	uploadSpan.End(err)
	if err != nil {
		return nil, err
	}

	_, staleSpan := tracing.Start(ctx, "remove-stale")
	removed, err := e.removeStale(ctx, tenant, len(blobs))
	staleSpan.End(err)
	if err != nil {
		return nil, err
	}

	res = &Result{
		Tenant:    tenant,
		Name:      e.cfg.Name,
		Documents: len(docs),
		Shards:    len(blobs),
		Keys:      keys,
		Removed:   removed,
		Duration:  time.Since(start),
	}
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(len(docs)))
		e.metrics.ShardsWrittenTotal.Add(float64(len(blobs)))
	}
	log.Info("tenant re-indexed",
		"documents", res.Documents,
		"shards", res.Shards,
		"removed", len(removed),
		"duration", res.Duration,
	)
	return res, nil
}

// BuildShardSet splits docs by cfg.ShardCapacity and builds and encodes each
// shard in parallel. The returned blobs are in shard order. It touches no
// storage.
func BuildShardSet(ctx context.Context, docs []index.Document, cfg index.Config, workers int) ([][]byte, error) {
	cfg = cfg.WithDefaults()
	groups, err := shard.Split(docs, cfg.ShardCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	blobs := make([][]byte, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			idx, err := index.Build(group, cfg)
			if err != nil {
				return fmt.Errorf("building shard %d: %w", i+1, err)
			}
			data, err := segment.Encode(idx)
			if err != nil {
				return fmt.Errorf("encoding shard %d: %w", i+1, err)
			}
			blobs[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blobs, nil
}

// loadDocuments fetches the tenant's articles in key order, which is upload
// order.
func (e *Engine) loadDocuments(ctx context.Context, tenant string) ([]index.Document, error) {
	listed, err := e.store.List(ctx, storage.ArticlePrefix(tenant))
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	keys := make([]string, 0, len(listed))
	for _, k := range listed {
		if storage.IsArticleKey(tenant, k) {
			keys = append(keys, k)
		}
	}

	docs := make([]index.Document, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, key := range keys {
		g.Go(func() error {
			data, err := e.store.Get(gctx, key)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", key, err)
			}
			var doc index.Document
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("%w: decoding %s: %w", apperrors.ErrInvalidInput, key, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// dedupeRefs keeps only the most recent upload of each ref so that a
// re-uploaded document replaces its earlier version instead of failing the
// build.
func dedupeRefs(docs []index.Document, cfg index.Config, log *slog.Logger) []index.Document {
	last := make(map[string]int, len(docs))
	for i, d := range docs {
		last[d.Ref(cfg)] = i
	}
	if len(last) == len(docs) {
		return docs
	}
	out := make([]index.Document, 0, len(last))
	for i, d := range docs {
		if last[d.Ref(cfg)] == i {
			out = append(out, d)
		}
	}
	log.Warn("dropped superseded document versions", "dropped", len(docs)-len(out))
	return out
}

func (e *Engine) removeStale(ctx context.Context, tenant string, keep int) ([]string, error) {
	existing, err := e.store.List(ctx, shard.Prefix(tenant, e.cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("listing shards: %w", err)
	}
	var removed []string
	for _, key := range shard.FilterKeys(existing) {
		n, _ := shard.Number(key)
		if n <= keep {
			continue
		}
		if err := e.store.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("removing stale shard %s: %w", key, err)
		}
		removed = append(removed, key)
	}
	return removed, nil
}
