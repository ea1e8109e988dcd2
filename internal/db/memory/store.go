// Package memory implements db.Store in process memory. It backs the
// "memory" database driver for local runs and the repository tests.
package memory

import (
	"context"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/velum-cloud/ragdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// Store is a mutex-guarded map store.
type Store struct {
	mu   sync.RWMutex
	data map[string]entry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string]entry)}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady always succeeds immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || expired(e) {
		return nil, db.ErrKeyNotFound
	}
	return clone(e.value), nil
}

// GetMulti fetches multiple keys; missing keys yield nil entries.
func (s *Store) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]byte, len(keys))
	for i, key := range keys {
		if e, ok := s.data[key]; ok && !expired(e) {
			out[i] = clone(e.value)
		}
	}
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: clone(value)}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: clone(value), expiresAt: time.Now().Add(ttl)}
	return nil
}

// IncrBy atomically increments a key and returns the new value. A missing or
// expired key starts at zero, matching Redis INCRBY.
func (s *Store) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur int64
	e, live := s.data[key]
	if live && expired(e) {
		e, live = entry{}, false
	}
	if live {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, &db.Error{Op: db.OpIncrBy, Err: err}
		}
		cur = n
	}
	cur += val
	// Keep the expiry a previous Expire call set.
	e.value = []byte(strconv.FormatInt(cur, 10))
	s.data[key] = e
	return cur, nil
}

// Expire sets a TTL on a key. With nx, only when no expiry is set yet.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok || expired(e) {
		return nil
	}
	if nx && !e.expiresAt.IsZero() {
		return nil
	}
	e.expiresAt = time.Now().Add(ttl)
	s.data[key] = e
	return nil
}

// Del deletes keys. Deleting absent keys is not an error.
func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	return ok && !expired(e), nil
}

// Scan returns keys matching a glob pattern. Keys contain no slashes, so
// path.Match semantics coincide with Redis glob for the patterns used here.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k, e := range s.data {
		if expired(e) {
			continue
		}
		if ok, err := path.Match(pattern, k); err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		} else if ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func expired(e entry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
