// Package publisher stores uploaded documents as tenant article blobs and
// announces them to the indexer, either through Kafka or by re-indexing the
// tenant in-process when no broker is configured.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/metrics"
)

// Reindexer rebuilds a tenant's index synchronously.
type Reindexer interface {
	Reindex(ctx context.Context, tenant string) (*indexer.Result, error)
}

// Publisher coordinates blob persistence and event production.
type Publisher struct {
	store   storage.BlobStore
	events  kafka.Publisher
	reindex Reindexer
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	last int64
}

// New creates a Publisher. events and reindex may each be nil; when both
// are set, events wins and reindex is not called.
func New(store storage.BlobStore, events kafka.Publisher, reindex Reindexer, m *metrics.Metrics) *Publisher {
	return &Publisher{
		store:   store,
		events:  events,
		reindex: reindex,
		metrics: m,
		logger:  slog.Default().With("component", "publisher"),
		now:     time.Now,
	}
}

// Ingest persists the document and triggers indexing. A repeated
// idempotency key returns the original article key without storing again.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	if req.IdempotencyKey != "" {
		existing, err := p.findByIdempotencyKey(ctx, req.Tenant, req.IdempotencyKey)
		if err != nil {
			p.count("error")
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != "" {
			p.logger.Info("duplicate ingestion detected",
				"tenant", req.Tenant,
				"idempotency_key", req.IdempotencyKey,
				"existing_key", existing,
			)
			p.count("duplicate")
			return &ingestion.IngestResponse{
				Tenant:    req.Tenant,
				Key:       existing,
				Ref:       req.Ref,
				Status:    ingestion.StatusAccepted,
				Duplicate: true,
			}, nil
		}
	}

	key := storage.ArticleKey(req.Tenant, p.nextStamp())
	if err := p.store.Put(ctx, key, req.Raw); err != nil {
		p.count("error")
		return nil, fmt.Errorf("storing document: %w", err)
	}
	if req.IdempotencyKey != "" {
		if err := p.store.Put(ctx, storage.IdempotencyKey(req.Tenant, req.IdempotencyKey), []byte(key)); err != nil {
			p.logger.Warn("failed to record idempotency key", "tenant", req.Tenant, "key", key, "error", err)
		}
	}

	resp := &ingestion.IngestResponse{
		Tenant: req.Tenant,
		Key:    key,
		Ref:    req.Ref,
		Status: ingestion.StatusAccepted,
	}

	switch {
	case p.events != nil:
		event := kafka.Event{
			Key: req.Tenant,
			Value: ingestion.IngestEvent{
				Tenant:     req.Tenant,
				Key:        key,
				Ref:        req.Ref,
				IngestedAt: p.now().UTC(),
			},
		}
		if err := p.events.Publish(ctx, event); err != nil {
			p.logger.Error("failed to publish to kafka, document waits for the next re-index",
				"tenant", req.Tenant,
				"key", key,
				"error", err,
			)
		}
	case p.reindex != nil:
		if _, err := p.reindex.Reindex(ctx, req.Tenant); err != nil {
			p.count("error")
			return nil, fmt.Errorf("indexing tenant %s: %w", req.Tenant, err)
		}
		resp.Status = ingestion.StatusIndexed
	}

	p.count("accepted")
	return resp, nil
}

// findByIdempotencyKey returns the article key recorded for token, or "" if
// the token is new.
func (p *Publisher) findByIdempotencyKey(ctx context.Context, tenant, token string) (string, error) {
	data, err := p.store.Get(ctx, storage.IdempotencyKey(tenant, token))
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// nextStamp returns a strictly increasing upload time so two uploads in the
// same nanosecond still get distinct, ordered keys.
func (p *Publisher) nextStamp() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.now().UnixNano()
	if n <= p.last {
		n = p.last + 1
	}
	p.last = n
	return time.Unix(0, n)
}

func (p *Publisher) count(status string) {
	if p.metrics != nil {
		p.metrics.DocsIngestedTotal.WithLabelValues(status).Inc()
	}
}
