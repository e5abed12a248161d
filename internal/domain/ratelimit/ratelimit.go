// Package ratelimit implements the sliding-window request limiter that
// gatekeeps the task pipeline.
package ratelimit

import (
	"context"
	"time"

	"github.com/hotlabel/hotlabel/pkg/logger"
	"github.com/hotlabel/hotlabel/pkg/metrics"
)

// WindowStore is the slice of the shared store the limiter needs: the
// atomic trim+count+add+expire compound operation.
type WindowStore interface {
	SlideWindow(ctx context.Context, key string, now time.Time, window time.Duration) (countBefore int, err error)
}

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetSeconds int
}

// Limiter checks request rates against the shared store.
type Limiter struct {
	store WindowStore
	now   func() time.Time
	log   logger.Logger
}

// Option applies a configuration option to the Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a Limiter over the given window store.
func New(store WindowStore, opts ...Option) *Limiter {
	l := &Limiter{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records the request against key's window and decides whether it may
// proceed. The request is counted even when rejected, so hammering a
// limited endpoint keeps the window full.
//
// If the store is unreachable the limiter fails open: availability wins
// over strict enforcement.
func (l *Limiter) Check(ctx context.Context, key string, limit, windowSeconds int) Decision {
	now := l.now()
	window := time.Duration(windowSeconds) * time.Second

	countBefore, err := l.store.SlideWindow(ctx, key, now, window)
	if err != nil {
		if l.log != nil {
			l.log.Warn(ctx, "rate-limit store unreachable, failing open",
				logger.String("key", key),
				logger.Error(err),
			)
		}
		metrics.RecordRateLimitFailOpen()
		return Decision{
			Allowed:      true,
			Limit:        limit,
			Remaining:    limit,
			ResetSeconds: windowSeconds,
		}
	}

	allowed := countBefore < limit
	if !allowed {
		metrics.RecordRateLimited()
	}

	remaining := limit - countBefore - 1
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:      allowed,
		Limit:        limit,
		Remaining:    remaining,
		ResetSeconds: resetSeconds(now, windowSeconds),
	}
}

// resetSeconds estimates when a slot frees up. For windows longer than a
// minute the estimate aligns to window boundaries of the wall clock; for
// short windows the window length itself is returned. This is a coarse,
// policy-chosen approximation rather than a true time-to-next-slot.
func resetSeconds(now time.Time, windowSeconds int) int {
	if windowSeconds > 60 {
		return windowSeconds - int(now.Unix()%int64(windowSeconds))
	}
	return windowSeconds
}
