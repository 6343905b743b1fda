/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const headerForwardedFor = "X-Forwarded-For"

// RoutePatternGetterFunc is a function for getting route pattern from the request (e.g. "/users/{id}").
// It is used as a label of HTTP request metrics.
type RoutePatternGetterFunc func(r *http.Request) string

// WrapResponseWriter is a response writer that remembers the status code and the number of written bytes.
type WrapResponseWriter = chimw.WrapResponseWriter

// WrapResponseWriterIfNeeded wraps an http.ResponseWriter if it is not already wrapped.
func WrapResponseWriterIfNeeded(rw http.ResponseWriter, protoMajor int) WrapResponseWriter {
	if wrw, ok := rw.(WrapResponseWriter); ok {
		return wrw
	}
	return chimw.NewWrapResponseWriter(rw, protoMajor)
}

// ResponseStatus returns the status written into wrw. Nothing written means 200.
func ResponseStatus(wrw WrapResponseWriter) int {
	if status := wrw.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}

// ClientIP returns the IP address of the client.
// When trustForwardedFor is true, the first hop of the X-Forwarded-For header wins over the remote address.
func ClientIP(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if ip := firstForwardedFor(r); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstForwardedFor(r *http.Request) string {
	forwardedFor := r.Header.Get(headerForwardedFor)
	if i := strings.IndexByte(forwardedFor, ','); i != -1 {
		forwardedFor = forwardedFor[:i]
	}
	return strings.TrimSpace(forwardedFor)
}
