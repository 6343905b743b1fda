/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/restapi"
	"github.com/backendkit/go-backendkit/throttle"
)

// ThrottleIdentityLogFieldKey is the name of the logged field that contains the throttled identity.
const ThrottleIdentityLogFieldKey = "throttle_identity"

// ThrottleDecider decides whether a request of the identity is admitted. *throttle.Engine implements it.
type ThrottleDecider interface {
	Allow(ctx context.Context, identity string, exempt bool) (throttle.Decision, error)
}

// ThrottleOpts represents an options for Throttle middleware.
type ThrottleOpts struct {
	// GetIdentity returns the identity of the request. By default, it is the client IP.
	GetIdentity func(r *http.Request) string
	// TrustForwardedFor makes the default GetIdentity take the first hop of X-Forwarded-For.
	TrustForwardedFor bool
	// IsExempt reports whether the request is exempt from throttling.
	// By default, requests of an authenticated principal are exempt.
	IsExempt func(r *http.Request) bool
	// FailClosed makes the middleware answer 503 when the throttle state cannot be read or written.
	// By default such requests are admitted.
	FailClosed bool
}

type throttleHandler struct {
	next      http.Handler
	decider   ThrottleDecider
	errDomain string
	opts      ThrottleOpts
}

// Throttle is a middleware that admits or rejects requests using decider.
// A rejected request is answered with 429 and the Retry-After header (in whole seconds, rounded up).
func Throttle(decider ThrottleDecider, errDomain string, opts ThrottleOpts) func(next http.Handler) http.Handler {
	if opts.GetIdentity == nil {
		trustForwardedFor := opts.TrustForwardedFor
		opts.GetIdentity = func(r *http.Request) string {
			return ClientIP(r, trustForwardedFor)
		}
	}
	if opts.IsExempt == nil {
		opts.IsExempt = IsAuthenticated
	}
	return func(next http.Handler) http.Handler {
		return &throttleHandler{next: next, decider: decider, errDomain: errDomain, opts: opts}
	}
}

// IsAuthenticated reports whether the request carries an authenticated principal.
func IsAuthenticated(r *http.Request) bool {
	return GetPrincipalFromContext(r.Context()) != nil
}

func (h *throttleHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	identity := h.opts.GetIdentity(r)
	extendLoggingFields(GetLoggingParamsFromContext(r.Context()), log.String(ThrottleIdentityLogFieldKey, identity))
	logger := GetLoggerFromContext(r.Context())

	decision, err := h.decider.Allow(r.Context(), identity, h.opts.IsExempt(r))
	if err != nil {
		if h.opts.FailClosed {
			if logger != nil {
				logger.Error("throttle check failed, request is rejected",
					log.String(ThrottleIdentityLogFieldKey, identity), log.Error(err))
			}
			apiErr := restapi.NewError(h.errDomain, restapi.ErrCodeServiceUnavailable, restapi.ErrMessageServiceUnavailable)
			restapi.RespondError(rw, http.StatusServiceUnavailable, apiErr, logger)
			return
		}
		if logger != nil {
			logger.Error("throttle check failed, request is admitted",
				log.String(ThrottleIdentityLogFieldKey, identity), log.Error(err))
		}
		h.next.ServeHTTP(rw, r)
		return
	}

	if !decision.Allowed {
		respondThrottled(rw, h.errDomain, identity, decision.Wait, logger)
		return
	}

	h.next.ServeHTTP(rw, r)
}

func respondThrottled(rw http.ResponseWriter, errDomain, identity string, wait time.Duration, logger log.FieldLogger) {
	if logger != nil {
		logger = logger.With(log.String(ThrottleIdentityLogFieldKey, identity), log.Duration("throttle_wait", wait))
	}
	rw.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(wait.Seconds())))
	restapi.RespondError(rw, http.StatusTooManyRequests, restapi.NewThrottledError(errDomain, wait), logger)
}

// RetryAfterSeconds rounds secs up to the value of the Retry-After header. It is never less than 1.
func RetryAfterSeconds(secs float64) int {
	if n := int(math.Ceil(secs)); n > 1 {
		return n
	}
	return 1
}
