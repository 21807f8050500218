// Package consumer turns ingest events from Kafka into tenant re-index runs
// and announces each finished run on the index-complete topic.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/kafka"
)

// Reindexer is the part of indexer.Engine the consumer drives.
type Reindexer interface {
	Reindex(ctx context.Context, tenant string) (*indexer.Result, error)
}

// Announce publishes the CompleteEvent for a finished run, keyed by tenant so
// searchers can drop that tenant's cached results.
func Announce(ctx context.Context, completed kafka.Publisher, res *indexer.Result) error {
	return completed.Publish(ctx, kafka.Event{
		Key: res.Tenant,
		Value: indexer.CompleteEvent{
			Tenant:      res.Tenant,
			Name:        res.Name,
			Documents:   res.Documents,
			Shards:      res.Shards,
			CompletedAt: time.Now().UTC(),
		},
	})
}

// HandleIngest returns a Kafka MessageHandler that rebuilds the event's
// tenant. Events that can never succeed (bad tenant, foreign key) are
// acknowledged and skipped. A failed re-index is returned to the consumer,
// which retries it before moving past the message. completed may be nil.
func HandleIngest(engine Reindexer, completed kafka.Publisher, timeout time.Duration) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return kafka.HandleJSON(logger, func(ctx context.Context, event ingestion.IngestEvent) error {
		if !shard.ValidTenant(event.Tenant) {
			logger.Warn("skipping event with invalid tenant", "tenant", event.Tenant)
			return nil
		}
		if event.Key != "" && !storage.IsArticleKey(event.Tenant, event.Key) {
			logger.Warn("skipping event for non-article key", "tenant", event.Tenant, "key", event.Key)
			return nil
		}
		logger.Debug("processing ingest event", "tenant", event.Tenant, "key", event.Key)

		runCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		res, err := engine.Reindex(runCtx, event.Tenant)
		if err != nil {
			return fmt.Errorf("re-indexing tenant %s: %w", event.Tenant, err)
		}

		if completed != nil {
			if err := Announce(ctx, completed, res); err != nil {
				logger.Error("failed to announce completed index", "tenant", event.Tenant, "error", err)
			}
		}
		logger.Info("tenant index rebuilt from event",
			"tenant", event.Tenant,
			"documents", res.Documents,
			"shards", res.Shards,
		)
		return nil
	})
}
