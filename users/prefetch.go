/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package users

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/backendkit/go-backendkit/kvstore"
	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/softdelete"
)

// DefaultPrefetchTTL is how long a prefetched user stays in the store.
const DefaultPrefetchTTL = 5 * time.Minute

// Prefetcher caches users looked up by id in a key-value store.
// Password fields are never cached.
type Prefetcher struct {
	store   kvstore.Store
	manager *softdelete.Manager[*User]
	ttl     time.Duration
	logger  log.FieldLogger
}

// NewPrefetcher creates a new Prefetcher. A non-positive ttl means DefaultPrefetchTTL.
func NewPrefetcher(store kvstore.Store, manager *softdelete.Manager[*User], ttl time.Duration, logger log.FieldLogger) *Prefetcher {
	if ttl <= 0 {
		ttl = DefaultPrefetchTTL
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Prefetcher{store: store, manager: manager, ttl: ttl, logger: logger}
}

// Get returns the user, from the store if possible. Store failures are logged and the user is read
// from the repository.
func (p *Prefetcher) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	key := prefetchKey(id)
	data, found, err := p.store.Get(ctx, key)
	if err != nil {
		p.logger.Warn("failed to read prefetched user", log.String("key", key), log.Error(err))
	} else if found {
		var user User
		if err = json.Unmarshal(data, &user); err == nil {
			return &user, nil
		}
		p.logger.Warn("failed to decode prefetched user", log.String("key", key), log.Error(err))
	}

	user, err := p.manager.GetObject(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err = json.Marshal(user); err != nil {
		return nil, err
	}
	if err = p.store.Set(ctx, key, data, p.ttl); err != nil {
		p.logger.Warn("failed to store prefetched user", log.String("key", key), log.Error(err))
	}
	return user, nil
}

// Invalidate drops the cached user.
func (p *Prefetcher) Invalidate(ctx context.Context, id uuid.UUID) {
	key := prefetchKey(id)
	if err := p.store.Delete(ctx, key); err != nil {
		p.logger.Warn("failed to invalidate prefetched user", log.String("key", key), log.Error(err))
	}
}

func prefetchKey(id uuid.UUID) string {
	return "user:" + id.String() + ":prefetched"
}
