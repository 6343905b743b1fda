/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/lrucache"
	"github.com/backendkit/go-backendkit/service"
)

// MemoryStoreOpts are optional settings of MemoryStore.
type MemoryStoreOpts struct {
	// MaxValueSize limits the size of a single value in bytes. Zero means no limit.
	MaxValueSize int
	// Now overrides the clock, used in tests.
	Now func() time.Time
}

// MemoryStore is an in-process Store backed by lrucache.LRUCache and bounded by the number of entries.
// When full, the least recently used entry is evicted.
// Expired entries are dropped on access and by the unit returned from NewCleanupUnit.
type MemoryStore struct {
	cache        *lrucache.LRUCache[string, []byte]
	maxValueSize int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore. metrics may be nil.
func NewMemoryStore(maxEntries int, metrics MetricsCollector, opts MemoryStoreOpts) (*MemoryStore, error) {
	if opts.MaxValueSize < 0 {
		return nil, fmt.Errorf("maxValueSize must be greater or equal to 0 (no limit)")
	}
	cache, err := lrucache.NewWithOpts[string, []byte](maxEntries, metrics, lrucache.Options{Now: opts.Now})
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache, maxValueSize: opts.MaxValueSize}, nil
}

// Get implements Store. The returned slice is a copy.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

// Set implements Store. The value is copied.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.maxValueSize > 0 && len(value) > s.maxValueSize {
		return fmt.Errorf("set %q: %w (%d > %d bytes)", key, ErrValueTooLarge, len(value), s.maxValueSize)
	}
	s.cache.AddWithTTL(key, append([]byte(nil), value...), ttl)
	return nil
}

// Delete implements Store. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

// Len returns the number of entries, including expired ones not yet cleaned up.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// DeleteExpired drops all expired entries and returns how many were dropped.
func (s *MemoryStore) DeleteExpired() int {
	return s.cache.DeleteExpired()
}

// NewCleanupUnit returns a unit dropping expired entries every interval until it's stopped.
func (s *MemoryStore) NewCleanupUnit(interval time.Duration, logger log.FieldLogger) *service.WorkerUnit {
	worker := service.WorkerFunc(func(context.Context) error {
		if removed := s.cache.DeleteExpired(); removed > 0 {
			logger.Debug("expired entries removed", log.Int("removed", removed), log.Int("left", s.cache.Len()))
		}
		return nil
	})
	return service.NewWorkerUnit(service.NewPeriodicWorkerWithOpts(worker, interval, logger,
		service.PeriodicWorkerOpts{Name: "kvstore-cleanup"}))
}
