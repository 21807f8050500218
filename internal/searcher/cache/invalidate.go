package cache

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/kafka"
)

// HandleIndexComplete drops a tenant's cached results once the indexer
// announces a new shard set for it. A failed flush is returned so the
// consumer retries the event before moving on.
func HandleIndexComplete(c *QueryCache) kafka.MessageHandler {
	logger := slog.Default().With("component", "cache-invalidator")
	return kafka.HandleJSON(logger, func(ctx context.Context, event indexer.CompleteEvent) error {
		if event.Tenant == "" {
			return nil
		}
		if err := c.InvalidateTenant(ctx, event.Tenant); err != nil {
			return err
		}
		logger.Debug("cache invalidated after re-index", "tenant", event.Tenant, "shards", event.Shards)
		return nil
	})
}
