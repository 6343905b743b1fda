/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package throttle

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type storeEntry struct {
	value []byte
	ttl   time.Duration
}

// mapStore is a Store that remembers the TTL of every write and can fail on demand.
type mapStore struct {
	mu      sync.Mutex
	entries map[string]storeEntry
	writes  int
	err     error
}

func newMapStore() *mapStore {
	return &mapStore{entries: make(map[string]storeEntry)}
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	e, ok := s.entries[key]
	return e.value, ok, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries[key] = storeEntry{value: append([]byte(nil), value...), ttl: ttl}
	s.writes++
	return nil
}

func (s *mapStore) entry(key string) (storeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

var errStoreUnavailable = errors.New("store is unavailable")
