/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/restapi"
	"github.com/backendkit/go-backendkit/testutil"
)

func TestInFlightLimit(t *testing.T) {
	t.Run("invalid params", func(t *testing.T) {
		_, err := InFlightLimit(0, testErrDomain, InFlightLimitOpts{})
		require.Error(t, err)
		_, err = InFlightLimit(1, testErrDomain, InFlightLimitOpts{BacklogLimit: -1})
		require.Error(t, err)
	})

	t.Run("request above the limit times out in backlog", func(t *testing.T) {
		mw, err := InFlightLimit(1, testErrDomain, InFlightLimitOpts{BacklogTimeout: 50 * time.Millisecond})
		require.NoError(t, err)

		started := make(chan struct{})
		release := make(chan struct{})
		h := mw(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/slow" {
				close(started)
				<-release
			}
		}))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
		}()
		<-started

		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/fast", nil))
		testutil.RequireErrorInRecorder(t, resp, http.StatusServiceUnavailable, testErrDomain, restapi.ErrCodeServiceUnavailable)
		require.Equal(t, "1", resp.Header().Get("Retry-After"))

		close(release)
		wg.Wait()

		resp = httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/fast", nil))
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("excluded endpoints are not limited", func(t *testing.T) {
		mw, err := InFlightLimit(1, testErrDomain, InFlightLimitOpts{
			BacklogTimeout:    10 * time.Millisecond,
			ExcludedEndpoints: []string{"/healthz"},
		})
		require.NoError(t, err)
		var inner http.Handler
		h := mw(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/outer" {
				inner.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			}
		}))
		inner = h
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/outer", nil))
		require.Equal(t, http.StatusOK, resp.Code)
	})
}
