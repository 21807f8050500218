package storage

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/resilience"
)

// Opened is a configured store plus what the caller needs to probe and
// release it.
type Opened struct {
	Store BlobStore
	Ping  func(ctx context.Context) error
	Close func() error
}

// Open builds the backend selected by cfg.Storage and wraps it in Guarded.
// Breaker transitions are exported through m when it is non-nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Opened, error) {
	var (
		backend BlobStore
		ping    = func(context.Context) error { return nil }
		closeFn = func() error { return nil }
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		backend = NewMemStore()
	case config.BackendFS:
		fsStore, err := NewFSStore(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		backend = fsStore
	case config.BackendPostgres:
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		pg, err := NewPGStore(ctx, db, cfg.Storage.Table)
		if err != nil {
			db.Close()
			return nil, err
		}
		backend, ping, closeFn = pg, pg.Ping, db.Close
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	name := "store-" + cfg.Storage.Backend
	cb := resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Storage.BreakerThreshold,
		ResetTimeout:     cfg.Storage.BreakerReset,
	}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(resilience.StateClosed))
		cb.OnStateChange = func(name string, from, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	guarded := NewGuarded(backend, name, resilience.RetryConfig{MaxAttempts: cfg.Storage.RetryAttempts}, cb)
	return &Opened{
		Store: guarded,
		Ping: func(ctx context.Context) error {
			if guarded.State() == resilience.StateOpen {
				return fmt.Errorf("%s: %w", name, resilience.ErrCircuitOpen)
			}
			return ping(ctx)
		},
		Close: closeFn,
	}, nil
}
