package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store on an embedded badger database. Badger's
// native per-key TTL carries the expiry semantics; compound operations run
// inside a single update transaction, which badger serializes per key.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a badger-backed store at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreInMemory opens an in-memory badger store. Intended for tests.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get returns the live value for key.
func (s *BadgerStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			found = true
			return nil
		})
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return value, found, nil
}

// Set writes key=value with the given TTL.
func (s *BadgerStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(newEntry(key, []byte(value), ttl))
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// SetNX writes key=value only when the key is absent.
func (s *BadgerStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	written := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		written = true
		return txn.SetEntry(newEntry(key, []byte(value), ttl))
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return written, nil
}

// Incr increments the counter at key, creating it at 1 when absent. The
// remaining lifetime of an existing counter is carried over.
func (s *BadgerStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var result int64
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			result = 1
			return txn.SetEntry(newEntry(key, []byte("1"), ttl))
		}
		if err != nil {
			return err
		}

		var n int64
		if verr := item.Value(func(val []byte) error {
			n, _ = strconv.ParseInt(string(val), 10, 64)
			return nil
		}); verr != nil {
			return verr
		}
		n++
		result = n

		remaining := remainingTTL(item)
		return txn.SetEntry(newEntry(key, []byte(strconv.FormatInt(n, 10)), remaining))
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return result, nil
}

// Delete removes key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// SlideWindow executes trim+count+add+expire inside one transaction.
func (s *BadgerStore) SlideWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	countBefore := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		var members []int64
		item, err := txn.Get([]byte(key))
		if err == nil {
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &members)
			}); verr != nil {
				return verr
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		nowSec := now.Unix()
		windowStart := nowSec - int64(window/time.Second)
		kept := members[:0]
		for _, ts := range members {
			if ts > windowStart {
				kept = append(kept, ts)
			}
		}
		countBefore = len(kept)
		kept = append(kept, nowSec)

		encoded, merr := json.Marshal(kept)
		if merr != nil {
			return merr
		}
		return txn.SetEntry(newEntry(key, encoded, window))
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return countBefore, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger store: %w", err)
	}
	return nil
}

func newEntry(key string, value []byte, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry([]byte(key), value)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}

// remainingTTL reads the lifetime left on an item so rewrites keep the
// original deadline.
func remainingTTL(item *badger.Item) time.Duration {
	exp := item.ExpiresAt()
	if exp == 0 {
		return 0
	}
	remaining := time.Until(time.Unix(int64(exp), 0))
	if remaining <= 0 {
		// Deadline already passed; keep the entry out of reads.
		return time.Millisecond
	}
	return remaining
}
