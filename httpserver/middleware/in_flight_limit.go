/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/restapi"
)

// DefaultInFlightLimitBacklogTimeout determines how long a request may wait for a free slot.
const DefaultInFlightLimitBacklogTimeout = 5 * time.Second

// InFlightLimitOpts represents an options for InFlightLimit middleware.
type InFlightLimitOpts struct {
	// BacklogLimit is the number of requests that may wait for a free slot. Zero means the limit itself.
	BacklogLimit int
	// BacklogTimeout is how long a backlogged request waits before it is rejected.
	BacklogTimeout time.Duration
	// ExcludedEndpoints are served without limiting (e.g. "/metrics", "/healthz").
	ExcludedEndpoints []string
}

type inFlightLimitHandler struct {
	next         http.Handler
	slots        chan struct{}
	backlogSlots chan struct{}
	errDomain    string
	opts         InFlightLimitOpts
}

// InFlightLimit is a middleware that limits the number of requests served at the same time.
// Requests above the limit wait in a backlog and are answered with 503 when the backlog is full or times out.
func InFlightLimit(limit int, errDomain string, opts InFlightLimitOpts) (func(next http.Handler) http.Handler, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit should be positive, got %d", limit)
	}
	if opts.BacklogLimit < 0 {
		return nil, fmt.Errorf("backlog limit should not be negative, got %d", opts.BacklogLimit)
	}
	if opts.BacklogLimit == 0 {
		opts.BacklogLimit = limit
	}
	if opts.BacklogTimeout == 0 {
		opts.BacklogTimeout = DefaultInFlightLimitBacklogTimeout
	}
	slots := make(chan struct{}, limit)
	backlogSlots := make(chan struct{}, limit+opts.BacklogLimit)
	return func(next http.Handler) http.Handler {
		return &inFlightLimitHandler{
			next: next, slots: slots, backlogSlots: backlogSlots, errDomain: errDomain, opts: opts,
		}
	}, nil
}

func (h *inFlightLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	for i := range h.opts.ExcludedEndpoints {
		if r.URL.Path == h.opts.ExcludedEndpoints[i] {
			h.next.ServeHTTP(rw, r)
			return
		}
	}

	select {
	case h.backlogSlots <- struct{}{}:
		defer func() { <-h.backlogSlots }()
	default:
		h.reject(rw, r, false)
		return
	}

	timer := time.NewTimer(h.opts.BacklogTimeout)
	defer timer.Stop()
	select {
	case h.slots <- struct{}{}:
		defer func() { <-h.slots }()
		h.next.ServeHTTP(rw, r)
	case <-timer.C:
		h.reject(rw, r, true)
	case <-r.Context().Done():
		// The client has gone, nobody reads the answer.
	}
}

func (h *inFlightLimitHandler) reject(rw http.ResponseWriter, r *http.Request, backlogged bool) {
	logger := GetLoggerFromContext(r.Context())
	if logger != nil {
		logger.Warn("in-flight limit exceeded", log.Bool("in_flight_limit_backlogged", backlogged))
	}
	rw.Header().Set("Retry-After", "1")
	apiErr := restapi.NewError(h.errDomain, restapi.ErrCodeServiceUnavailable, restapi.ErrMessageServiceUnavailable)
	restapi.RespondError(rw, http.StatusServiceUnavailable, apiErr, logger)
}
