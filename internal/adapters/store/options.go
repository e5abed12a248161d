package store

import "time"

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithShardCount sets the number of shards.
func WithShardCount(count int) MemoryOption {
	return func(s *MemoryStore) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithSweepInterval sets how often expired entries are dropped.
func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithClock overrides the store's clock. Intended for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
