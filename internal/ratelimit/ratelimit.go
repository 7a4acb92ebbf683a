// Package ratelimit provides a per-path token bucket limiter. The
// monitor uses it to throttle how often a single hot path may announce
// operations.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxIdle       = 5 * time.Minute
	defaultSweepInterval = time.Minute
)

// PathLimiter manages one token bucket per path. Buckets that go unused
// are evicted so a long watch over a large tree does not grow without
// bound.
type PathLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	maxIdle time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing rps events per second per path with
// the given burst.
func New(rps float64, burst int) *PathLimiter {
	pl := &PathLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		maxIdle: defaultMaxIdle,
		done:    make(chan struct{}),
	}

	go pl.janitor()

	return pl
}

// Allow reports whether an event for the path may proceed right now.
func (pl *PathLimiter) Allow(path string) bool {
	return pl.get(path).Allow()
}

// Wait blocks until an event for the path is allowed or the context is
// canceled.
func (pl *PathLimiter) Wait(ctx context.Context, path string) error {
	return pl.get(path).Wait(ctx)
}

// Len returns the number of tracked paths.
func (pl *PathLimiter) Len() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.entries)
}

// Stop shuts down the eviction goroutine.
func (pl *PathLimiter) Stop() {
	pl.stopOnce.Do(func() {
		close(pl.done)
	})
}

func (pl *PathLimiter) get(path string) *rate.Limiter {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	e, ok := pl.entries[path]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(pl.limit, pl.burst)}
		pl.entries[path] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (pl *PathLimiter) janitor() {
	ticker := time.NewTicker(defaultSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pl.done:
			return
		case now := <-ticker.C:
			pl.sweep(now)
		}
	}
}

// sweep evicts buckets idle longer than maxIdle.
func (pl *PathLimiter) sweep(now time.Time) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	for path, e := range pl.entries {
		if now.Sub(e.lastSeen) > pl.maxIdle {
			delete(pl.entries, path)
		}
	}
}
