/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/log"
)

func TestGetLoggerFromContext(t *testing.T) {
	t.Run("empty logger", func(t *testing.T) {
		require.Nil(t, GetLoggerFromContext(context.Background()))
	})
	t.Run("non empty logger", func(t *testing.T) {
		logger := log.NewDisabledLogger()
		ctx := NewContextWithLogger(context.Background(), logger)
		require.Equal(t, logger, GetLoggerFromContext(ctx))
	})
}

func TestGetRequestIDFromContext(t *testing.T) {
	require.Equal(t, "", GetRequestIDFromContext(context.Background()))
	require.Equal(t, "external-request-id",
		GetRequestIDFromContext(NewContextWithRequestID(context.Background(), "external-request-id")))
	require.Equal(t, "", GetInternalRequestIDFromContext(context.Background()))
	require.Equal(t, "internal-request-id",
		GetInternalRequestIDFromContext(NewContextWithInternalRequestID(context.Background(), "internal-request-id")))
}

func TestGetRequestStartTimeFromContext(t *testing.T) {
	require.True(t, GetRequestStartTimeFromContext(context.Background()).IsZero())
	now := time.Now()
	require.Equal(t, now, GetRequestStartTimeFromContext(NewContextWithRequestStartTime(context.Background(), now)))
}

func TestGetPrincipalFromContext(t *testing.T) {
	require.Nil(t, GetPrincipalFromContext(context.Background()))

	principal := &Principal{ID: uuid.New(), Username: "john@example.com"}
	ctx := NewContextWithPrincipal(context.Background(), principal)
	require.Same(t, principal, GetPrincipalFromContext(ctx))
}

func TestPrincipal_IsAdmin(t *testing.T) {
	tests := []struct {
		name      string
		principal *Principal
		want      bool
	}{
		{name: "nil", principal: nil, want: false},
		{name: "regular user", principal: &Principal{Groups: []string{"editors"}}, want: false},
		{name: "superuser", principal: &Principal{IsSuperuser: true}, want: true},
		{name: "admin group", principal: &Principal{Groups: []string{"editors", "Admin"}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.principal.IsAdmin())
		})
	}
}
