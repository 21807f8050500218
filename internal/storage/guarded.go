package storage

import (
	"context"
	"errors"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/resilience"
)

// Guarded wraps a BlobStore with retry and a circuit breaker. ErrNotFound is
// an answer, not a failure: it is neither retried nor counted by the breaker.
type Guarded struct {
	next    BlobStore
	name    string
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

func NewGuarded(next BlobStore, name string, retry resilience.RetryConfig, cb resilience.CircuitBreakerConfig) *Guarded {
	cb.IsFailure = isFailure
	retry.Retryable = func(err error) bool {
		return isFailure(err) && !errors.Is(err, resilience.ErrCircuitOpen)
	}
	return &Guarded{
		next:    next,
		name:    name,
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(name, cb),
	}
}

func isFailure(err error) bool {
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (g *Guarded) do(ctx context.Context, op string, fn func() error) error {
	return resilience.Retry(ctx, g.name+"."+op, g.retry, func() error {
		return g.breaker.Execute(fn)
	})
}

func (g *Guarded) Put(ctx context.Context, key string, data []byte) error {
	return g.do(ctx, "put", func() error {
		return g.next.Put(ctx, key, data)
	})
}

func (g *Guarded) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := g.do(ctx, "get", func() error {
		var err error
		data, err = g.next.Get(ctx, key)
		return err
	})
	return data, err
}

func (g *Guarded) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := g.do(ctx, "list", func() error {
		var err error
		keys, err = g.next.List(ctx, prefix)
		return err
	})
	return keys, err
}

func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.do(ctx, "delete", func() error {
		return g.next.Delete(ctx, key)
	})
}

// State exposes the breaker state for health checks.
func (g *Guarded) State() resilience.State {
	return g.breaker.State()
}
