package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *clock) {
	c := &clock{t: time.Unix(1000, 0)}
	l := New(limit, window)
	l.now = c.now
	return l, c
}

func TestAllowExhaustsAndRefills(t *testing.T) {
	l, c := newTestLimiter(3, time.Minute)
	for range 3 {
		assert.True(t, l.Allow("acme"))
	}
	assert.False(t, l.Allow("acme"))
	assert.True(t, l.Allow("beta"), "buckets are per key")

	c.t = c.t.Add(30 * time.Second)
	assert.True(t, l.Allow("acme"))
	assert.False(t, l.Allow("acme"))
}

func TestRefillIsCapped(t *testing.T) {
	l, c := newTestLimiter(2, time.Second)
	assert.True(t, l.Allow("acme"))
	c.t = c.t.Add(time.Hour)
	assert.True(t, l.Allow("acme"))
	assert.True(t, l.Allow("acme"))
	assert.False(t, l.Allow("acme"))
}

func TestZeroLimitDeniesEverything(t *testing.T) {
	l, _ := newTestLimiter(0, time.Second)
	assert.False(t, l.Allow("acme"))
	assert.False(t, l.Allow("acme"))
}

func TestSweepAndReset(t *testing.T) {
	l, c := newTestLimiter(5, time.Second)
	l.Allow("acme")
	l.Allow("beta")
	l.Reset("beta")
	assert.Equal(t, 1, l.Len())

	c.t = c.t.Add(3 * time.Second)
	l.Sweep()
	assert.Equal(t, 0, l.Len())
}
