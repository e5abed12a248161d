// Package store defines the shared key-value store the pipeline coordinates
// through, and its backends.
//
// Every transient entity (session, profile, assignment, lease, validation,
// submission, rate window) lives here under a TTL; nothing is torn down
// explicitly. The compound SlideWindow operation is the only multi-step
// mutation and every backend must execute it atomically.
package store

import (
	"context"
	"time"
)

// Store provides read/write access to the shared transient state.
type Store interface {
	// Get returns the value for key, with found=false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes key=value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX writes key=value only when the key is absent. Returns true
	// when the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Incr atomically increments the integer counter at key, creating it
	// at 1 with the given TTL when absent. An existing counter keeps its
	// original deadline.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// SlideWindow executes trim + count + add + expire for a sliding
	// request window as one atomic unit: members with timestamps at or
	// before now-window are dropped, the surviving members are counted,
	// a member stamped now is appended, and the key's TTL is reset to the
	// window. It returns the count from before the append.
	SlideWindow(ctx context.Context, key string, now time.Time, window time.Duration) (countBefore int, err error)

	// Close releases backend resources.
	Close() error
}
