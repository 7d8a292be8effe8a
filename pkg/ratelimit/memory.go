package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is the number of Allow calls between sweeps of idle keys
const sweepInterval = 1024

// MemoryLimiter is a sliding log limiter held in process memory
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	hits  map[string][]time.Time
	calls int
}

// NewMemoryLimiter allows at most limit requests per key within any window
func NewMemoryLimiter(limit int, window time.Duration, opts ...OptionFunc) *MemoryLimiter {
	o := buildOptions(opts)
	return &MemoryLimiter{
		limit:  limit,
		window: window,
		now:    o.now,
		hits:   make(map[string][]time.Time),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepInterval == 0 {
		l.sweep(cutoff)
	}

	hits := prune(l.hits[key], cutoff)
	if len(hits) >= l.limit {
		l.hits[key] = hits
		retryAfter := l.window
		if len(hits) > 0 {
			retryAfter = hits[0].Add(l.window).Sub(now)
		}
		return Result{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}
	hits = append(hits, now)
	l.hits[key] = hits
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(hits),
	}, nil
}

func (l *MemoryLimiter) sweep(cutoff time.Time) {
	for key, hits := range l.hits {
		hits = prune(hits, cutoff)
		if len(hits) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = hits
	}
}

// prune drops hits at or before cutoff. hits is ordered oldest first.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(hits) && !hits[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return hits
	}
	return append(hits[:0], hits[idx:]...)
}
