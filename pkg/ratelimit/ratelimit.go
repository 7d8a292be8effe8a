package ratelimit

import (
	"context"
	"time"
)

// Result describes the limiter's decision for a single request
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed.
// Every allowed request counts against the key's window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type options struct {
	now func() time.Time
}

type OptionFunc func(*options)

// WithClock specifies the time source used to place requests in the window
func WithClock(now func() time.Time) OptionFunc {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []OptionFunc) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
