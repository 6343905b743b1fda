/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

// Package kvstore provides key-value stores with per-entry TTL. They keep throttle state
// and prefetched users. MemoryStore keeps entries in process, RedisStore shares them between instances.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backendkit/go-backendkit/log"
)

// ErrValueTooLarge is returned by MemoryStore.Set when the value exceeds the configured limit.
var ErrValueTooLarge = errors.New("value is too large")

// Store is a byte-oriented key-value store with expiration.
type Store interface {
	// Get returns found=false for missing or expired keys.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value for ttl. A zero ttl means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New creates the store selected by cfg.Type.
// The returned close function closes the Redis connection.
// Expired entries of the memory store are dropped by MemoryStore.NewCleanupUnit, the caller runs it.
func New(ctx context.Context, cfg *Config, logger log.FieldLogger, metrics MetricsCollector) (Store, func() error, error) {
	switch cfg.Type {
	case TypeRedis:
		rs, err := NewRedisStore(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	case TypeMemory, "":
		ms, err := NewMemoryStore(cfg.Memory.MaxEntries, metrics, MemoryStoreOpts{MaxValueSize: int(cfg.Memory.MaxValueSize)})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("in-memory key-value store is used", log.Int("max_entries", cfg.Memory.MaxEntries))
		return ms, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
