package store

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hotlabel/hotlabel/pkg/metrics"
)

// Default memory store configuration constants.
const (
	defaultShardCount    = 8
	defaultSweepInterval = 30 * time.Second
)

// entry is one live record. Exactly one of value/window is meaningful,
// depending on how the key is used.
type entry struct {
	value    string
	window   []int64
	deadline time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !now.Before(e.deadline)
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// MemoryStore implements Store with sharded in-process state and a
// background TTL sweeper. Per-key atomicity comes from the shard lock: a
// key always hashes to the same shard, so compound operations on one key
// run under one lock.
type MemoryStore struct {
	shards        []*shard
	shardCount    int
	sweepInterval time.Duration
	now           func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	closed   atomic.Bool
}

// NewMemoryStore creates a memory store and starts its sweeper.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		shardCount:    defaultShardCount,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}

	go s.sweepLoop()
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[int(h.Sum32())%s.shardCount]
}

// Get returns the live value for key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok || e.expired(s.now()) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set writes key=value with the given TTL.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.closed.Load() {
		return ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.entries[key] = &entry{value: value, deadline: s.deadline(ttl)}
	return nil
}

// SetNX writes key=value only when the key is absent or expired.
func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.entries[key]; ok && !e.expired(s.now()) {
		return false, nil
	}
	sh.entries[key] = &entry{value: value, deadline: s.deadline(ttl)}
	return true, nil
}

// Incr increments the counter at key, creating it at 1 when absent. An
// existing counter keeps its deadline.
func (s *MemoryStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok || e.expired(s.now()) {
		sh.entries[key] = &entry{value: "1", deadline: s.deadline(ttl)}
		return 1, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		n = 0
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	return n, nil
}

// Delete removes key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.entries, key)
	return nil
}

// SlideWindow executes trim+count+add+expire under the shard lock.
func (s *MemoryStore) SlideWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	nowSec := now.Unix()
	windowStart := nowSec - int64(window/time.Second)

	e, ok := sh.entries[key]
	if !ok || e.expired(s.now()) {
		e = &entry{}
		sh.entries[key] = e
	}

	kept := e.window[:0]
	for _, ts := range e.window {
		if ts > windowStart {
			kept = append(kept, ts)
		}
	}
	countBefore := len(kept)
	e.window = append(kept, nowSec)
	e.deadline = now.Add(window)

	return countBefore, nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	now := s.now()
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, e := range sh.entries {
			if !e.expired(now) {
				total++
			}
		}
		sh.mu.Unlock()
	}
	return total
}

// Close stops the sweeper and rejects further operations with ErrClosed.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

func (s *MemoryStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// sweepLoop drops expired entries so abandoned keys do not accumulate.
// Correctness never depends on the sweep; reads treat expired entries as
// absent regardless.
func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.now()
	evicted := 0
	live := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e.expired(now) {
				delete(sh.entries, k)
				evicted++
			} else {
				live++
			}
		}
		sh.mu.Unlock()
	}
	if evicted > 0 {
		metrics.RecordStoreEvictions(evicted)
	}
	metrics.UpdateStoreEntries(live)
}
