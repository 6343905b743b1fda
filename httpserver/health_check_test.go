/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/httpserver/middleware"
	"github.com/backendkit/go-backendkit/log/logtest"
	"github.com/backendkit/go-backendkit/restapi"
	"github.com/backendkit/go-backendkit/testutil"
)

func TestHealthCheckHandler_ServeHTTP(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	t.Run("no components", func(t *testing.T) {
		resp := httptest.NewRecorder()
		NewHealthCheckHandler(nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, restapi.ContentTypeAppJSON, resp.Header().Get("Content-Type"))
		testutil.RequireStringJSONInRecorder(t, resp, `{"components":{}}`)
	})

	t.Run("all components are healthy", func(t *testing.T) {
		resp := httptest.NewRecorder()
		h := NewHealthCheckHandler(map[string]HealthCheckComponent{"database": healthy, "kvstore": healthy})
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		testutil.RequireStringJSONInRecorder(t, resp, `{"components":{"database":true,"kvstore":true}}`)
	})

	t.Run("unhealthy component", func(t *testing.T) {
		logger := logtest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req = req.WithContext(middleware.NewContextWithLogger(req.Context(), logger))
		resp := httptest.NewRecorder()
		h := NewHealthCheckHandler(map[string]HealthCheckComponent{"database": broken, "kvstore": healthy})
		h.ServeHTTP(resp, req)
		require.Equal(t, http.StatusServiceUnavailable, resp.Code)
		testutil.RequireStringJSONInRecorder(t, resp, `{"components":{"database":false,"kvstore":true}}`)
		_, found := logger.FindEntry("component is unhealthy")
		require.True(t, found)
	})

	t.Run("client closed request", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		resp := httptest.NewRecorder()
		h := NewHealthCheckHandler(map[string]HealthCheckComponent{"database": func(ctx context.Context) error { return ctx.Err() }})
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil).WithContext(ctx))
		require.Equal(t, StatusClientClosedRequest, resp.Code)
	})
}
