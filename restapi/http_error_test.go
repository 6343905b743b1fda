/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package restapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottledMessage(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want string
	}{
		{60 * time.Second, "Too many attempts. Please try again after 60 seconds."},
		{time.Second, "Too many attempts. Please try again after 1 second."},
		{300 * time.Millisecond, "Too many attempts. Please try again after 1 second."},
		{1500 * time.Millisecond, "Too many attempts. Please try again after 2 seconds."},
		{0, "Too many attempts. Please try again after 0 seconds."},
	}
	for _, tt := range tests {
		t.Run(tt.wait.String(), func(t *testing.T) {
			require.Equal(t, tt.want, ThrottledMessage(tt.wait))
		})
	}
}

func TestHTTPError(t *testing.T) {
	tests := []struct {
		err        *HTTPError
		wantStatus int
		wantCode   string
	}{
		{NewBadRequestError("Bad", "bad"), http.StatusBadRequest, "badRequest"},
		{NewUnauthorizedError("Unauthorized", "who are you"), http.StatusUnauthorized, "unauthorized"},
		{NewForbiddenError("Forbidden", "no"), http.StatusForbidden, "forbidden"},
		{NewNotFoundError("Not Found", "nothing"), http.StatusNotFound, "notFound"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			require.Equal(t, tt.wantStatus, tt.err.Status)
			require.Equal(t, tt.wantCode, tt.err.Code)
			require.Equal(t, tt.err.Detail, tt.err.Error())

			apiErr := tt.err.ToError(testDomain)
			require.Equal(t, &Error{Domain: testDomain, Code: tt.wantCode, Title: tt.err.Title, Message: tt.err.Detail}, apiErr)
		})
	}

	throttled := NewThrottledError(testDomain, 2*time.Minute)
	require.Equal(t, ErrCodeTooManyRequests, throttled.Code)
	require.Equal(t, "Too many attempts. Please try again after 120 seconds.", throttled.Message)
}
