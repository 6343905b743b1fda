/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/log/logtest"
)

func TestDoWithRetry(t *testing.T) {
	errConnRefused := errors.New("connection refused")
	errAuth := errors.New("wrong password")

	t.Run("succeeds after transient failures", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		calls := 0
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), nil,
			NotifyWithLogger(logRecorder, "ping redis"), func(ctx context.Context) error {
				calls++
				if calls < 3 {
					return errConnRefused
				}
				return nil
			})
		require.NoError(t, err)
		require.Equal(t, 3, calls)

		warns := logRecorder.FindAllEntriesByFilter(func(e logtest.RecordedEntry) bool { return e.Level == log.LevelWarn })
		require.Len(t, warns, 2)
		require.Equal(t, "ping redis failed, will retry", warns[0].Text)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NewExponentialBackoffPolicy(time.Millisecond, 2), nil, nil,
			func(ctx context.Context) error {
				calls++
				return errConnRefused
			})
		require.ErrorIs(t, err, errConnRefused)
		require.Equal(t, 3, calls)
	})

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 10),
			func(err error) bool { return !errors.Is(err, errAuth) }, nil,
			func(ctx context.Context) error {
				calls++
				return errAuth
			})
		require.ErrorIs(t, err, errAuth)
		require.Equal(t, 1, calls)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := DoWithRetry(ctx, NewConstantBackoffPolicy(time.Hour, 0), nil, nil,
			func(ctx context.Context) error { return errConnRefused })
		require.Error(t, err)
	})
}
