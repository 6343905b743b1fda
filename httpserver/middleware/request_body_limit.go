/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/backendkit/go-backendkit/restapi"
)

type requestBodyLimitHandler struct {
	next         http.Handler
	maxSizeBytes int64
	errorDomain  string
}

// RequestBodyLimit is a middleware that limits the size of a request body.
// A request declaring a larger Content-Length is answered with 413 right away,
// a body that turns out to be larger fails on read.
func RequestBodyLimit(maxSizeBytes int64, errDomain string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &requestBodyLimitHandler{next: next, maxSizeBytes: maxSizeBytes, errorDomain: errDomain}
	}
}

func (h *requestBodyLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxSizeBytes {
		restapi.RespondDomainError(rw, h.errorDomain, restapi.NewRequestTooLargeError(uint64(h.maxSizeBytes)),
			GetLoggerFromContext(r.Context()))
		return
	}
	r.Body = http.MaxBytesReader(rw, r.Body, h.maxSizeBytes)
	h.next.ServeHTTP(rw, r)
}
