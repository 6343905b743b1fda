/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package kvstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func TestNewMemoryStore(t *testing.T) {
	_, err := NewMemoryStore(0, nil, MemoryStoreOpts{})
	require.EqualError(t, err, "maxEntries must be greater than 0")

	_, err = NewMemoryStore(1, nil, MemoryStoreOpts{MaxValueSize: -1})
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("get, set and delete", func(t *testing.T) {
		store, err := NewMemoryStore(10, nil, MemoryStoreOpts{})
		require.NoError(t, err)

		_, found, err := store.Get(ctx, "throttle_login_10.0.0.1")
		require.NoError(t, err)
		require.False(t, found)

		require.NoError(t, store.Set(ctx, "throttle_login_10.0.0.1", []byte(`{"request_count":1}`), time.Minute))
		val, found, err := store.Get(ctx, "throttle_login_10.0.0.1")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, `{"request_count":1}`, string(val))

		require.NoError(t, store.Delete(ctx, "throttle_login_10.0.0.1"))
		require.NoError(t, store.Delete(ctx, "missing"))
		_, found, _ = store.Get(ctx, "throttle_login_10.0.0.1")
		require.False(t, found)
	})

	t.Run("values are copied", func(t *testing.T) {
		store, err := NewMemoryStore(10, nil, MemoryStoreOpts{})
		require.NoError(t, err)

		val := []byte("abc")
		require.NoError(t, store.Set(ctx, "k", val, 0))
		val[0] = 'x'
		got, _, _ := store.Get(ctx, "k")
		require.Equal(t, "abc", string(got))
		got[1] = 'y'
		got2, _, _ := store.Get(ctx, "k")
		require.Equal(t, "abc", string(got2))
	})

	t.Run("entries expire", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		store, err := NewMemoryStore(10, nil, MemoryStoreOpts{Now: clock.Now})
		require.NoError(t, err)

		require.NoError(t, store.Set(ctx, "short", []byte("1"), time.Minute))
		require.NoError(t, store.Set(ctx, "long", []byte("2"), time.Hour))
		require.NoError(t, store.Set(ctx, "forever", []byte("3"), 0))

		clock.Advance(time.Minute)
		_, found, _ := store.Get(ctx, "short")
		require.False(t, found)
		require.Equal(t, 2, store.Len())

		clock.Advance(2 * time.Hour)
		require.Equal(t, 1, store.DeleteExpired())
		_, found, _ = store.Get(ctx, "forever")
		require.True(t, found)
	})

	t.Run("least recently used entry is evicted", func(t *testing.T) {
		metrics := NewPrometheusMetrics("")
		store, err := NewMemoryStore(2, metrics, MemoryStoreOpts{})
		require.NoError(t, err)

		require.NoError(t, store.Set(ctx, "a", []byte("a"), 0))
		require.NoError(t, store.Set(ctx, "b", []byte("b"), 0))
		_, _, _ = store.Get(ctx, "a")
		require.NoError(t, store.Set(ctx, "c", []byte("c"), 0))

		_, found, _ := store.Get(ctx, "b")
		require.False(t, found)
		_, found, _ = store.Get(ctx, "a")
		require.True(t, found)

		testutil.RequireGaugeValue(t, metrics.EntriesAmount, 2)
		testutil.RequireSamplesCountInCounter(t, metrics.EvictionsTotal, 1)
		testutil.RequireSamplesCountInCounter(t, metrics.HitsTotal, 2)
		testutil.RequireSamplesCountInCounter(t, metrics.MissesTotal, 1)
	})

	t.Run("value size limit", func(t *testing.T) {
		store, err := NewMemoryStore(10, nil, MemoryStoreOpts{MaxValueSize: 4})
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, "k", []byte("1234"), 0))
		require.ErrorIs(t, store.Set(ctx, "k", []byte("12345"), 0), ErrValueTooLarge)
	})
}

func TestMemoryStore_NewCleanupUnit(t *testing.T) {
	store, err := NewMemoryStore(10, nil, MemoryStoreOpts{})
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "expiring", []byte("v"), time.Millisecond))
	require.NoError(t, store.Set(context.Background(), "persistent", []byte("v"), 0))

	unit := store.NewCleanupUnit(5*time.Millisecond, log.NewDisabledLogger())
	fatalErr := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		unit.Start(fatalErr)
		close(done)
	}()
	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, unit.Stop(true))
	<-done
	require.Len(t, fatalErr, 0)

	_, found, err := store.Get(context.Background(), "persistent")
	require.NoError(t, err)
	require.True(t, found)
}
