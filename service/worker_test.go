/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/log/logtest"
)

func TestPeriodicWorker_Run(t *testing.T) {
	t.Run("stop by context timeout", func(t *testing.T) {
		var c atomic.Int32
		periodicWorker := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			c.Inc()
			return nil
		}), time.Millisecond*100, log.NewDisabledLogger())

		ctx, ctxCancel := context.WithTimeout(context.Background(), time.Millisecond*450)
		defer ctxCancel()

		require.NoError(t, periodicWorker.Run(ctx))
		// Runs at 0, 100, 200, 300 and 400ms.
		require.InDelta(t, 5, c.Load(), 1)
	})

	t.Run("stop by worker", func(t *testing.T) {
		var c atomic.Int32
		periodicWorker := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			if c.Inc() == 2 {
				return ErrPeriodicWorkerStop
			}
			return nil
		}), time.Millisecond*10, log.NewDisabledLogger())

		require.NoError(t, periodicWorker.Run(context.Background()))
		require.EqualValues(t, 2, c.Load())
	})

	t.Run("errors are logged and do not stop the loop", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		var c atomic.Int32
		periodicWorker := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			switch c.Inc() {
			case 1:
				return errors.New("store is unavailable")
			case 3:
				return ErrPeriodicWorkerStop
			}
			return nil
		}), time.Millisecond*10, logRecorder, PeriodicWorkerOpts{Name: "kvstore-cleanup"})

		require.NoError(t, periodicWorker.Run(context.Background()))
		require.EqualValues(t, 3, c.Load())

		entry, found := logRecorder.FindEntry("periodic worker run failed")
		require.True(t, found)
		field, found := entry.FindField("worker")
		require.True(t, found)
		require.Equal(t, "kvstore-cleanup", string(field.Bytes))
	})

	t.Run("initial delay", func(t *testing.T) {
		var c atomic.Int32
		periodicWorker := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			c.Inc()
			return nil
		}), time.Millisecond*100, log.NewDisabledLogger(), PeriodicWorkerOpts{InitialDelay: time.Millisecond * 250})

		ctx, ctxCancel := context.WithTimeout(context.Background(), time.Millisecond*500)
		defer ctxCancel()

		require.NoError(t, periodicWorker.Run(ctx))
		// Runs at 250, 350 and 450ms.
		require.InDelta(t, 3, c.Load(), 1)
	})
}
