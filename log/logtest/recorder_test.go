/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/log"
)

func TestRecorder(t *testing.T) {
	recorder := NewRecorder()
	logger := recorder.With(log.String("request_id", "abc"))
	logger.Info("first", log.Int("n", 1))
	logger.WithLevel(log.LevelWarn).Info("filtered")
	recorder.Warnf("second %d", 2)

	entries := recorder.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, log.LevelInfo, entries[0].Level)
	requestID, ok := entries[0].FindField("request_id")
	require.True(t, ok)
	require.Equal(t, "abc", string(requestID.Bytes))

	entry, ok := recorder.FindEntry("second 2")
	require.True(t, ok)
	require.Equal(t, log.LevelWarn, entry.Level)

	recorder.Reset()
	require.Empty(t, recorder.Entries())
}
