/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/restapi"
)

// ErrInvalidCredentials is returned by an Authenticator when the credentials are wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator resolves credentials into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*Principal, error)
}

// AuthenticatorFunc is an adapter to use ordinary functions as Authenticator.
type AuthenticatorFunc func(ctx context.Context, username, password string) (*Principal, error)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	return f(ctx, username, password)
}

// LoginThrottler counts failed logins per client. *throttle.Engine implements it.
type LoginThrottler interface {
	ThrottleDecider
	// RemainingWait returns how long a throttled identity still has to wait, without counting anything.
	RemainingWait(ctx context.Context, identity string) (time.Duration, error)
}

// AuthenticationOpts represents an options for Authentication middleware.
type AuthenticationOpts struct {
	// Realm is sent in the WWW-Authenticate header of 401 responses.
	Realm string
	// LoginThrottle, if set, registers every failed login of a client IP. A throttled client gets 429
	// without its credentials being checked.
	LoginThrottle LoginThrottler
	// TrustForwardedFor makes the client IP be taken from the X-Forwarded-For header.
	TrustForwardedFor bool
}

type authenticationHandler struct {
	next      http.Handler
	auth      Authenticator
	errDomain string
	opts      AuthenticationOpts
}

// Authentication is a middleware that resolves HTTP Basic credentials into a Principal
// and puts it into request's context. Requests without credentials are served as anonymous,
// requests with wrong credentials are answered with 401.
func Authentication(auth Authenticator, errDomain string, opts AuthenticationOpts) func(next http.Handler) http.Handler {
	if opts.Realm == "" {
		opts.Realm = "api"
	}
	return func(next http.Handler) http.Handler {
		return &authenticationHandler{next: next, auth: auth, errDomain: errDomain, opts: opts}
	}
}

func (h *authenticationHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		h.next.ServeHTTP(rw, r)
		return
	}

	logger := GetLoggerFromContext(r.Context())
	identity := ClientIP(r, h.opts.TrustForwardedFor)
	if h.loginThrottled(rw, r, identity, logger) {
		return
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		h.respondLoginFailed(rw, r, identity, "Invalid basic header.", logger)
		return
	}
	principal, err := h.auth.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.respondLoginFailed(rw, r, identity, "Invalid username/password.", logger)
			return
		}
		if logger != nil {
			logger.Error("authentication failed", log.Error(err))
		}
		restapi.RespondInternalError(rw, h.errDomain, logger)
		return
	}

	if lp := GetLoggingParamsFromContext(r.Context()); lp != nil {
		lp.ExtendFields(log.String("principal_id", principal.ID.String()))
	}
	h.next.ServeHTTP(rw, r.WithContext(NewContextWithPrincipal(r.Context(), principal)))
}

// loginThrottled answers 429 if the client has to wait after too many failed logins.
// Store failures are logged and the login goes on.
func (h *authenticationHandler) loginThrottled(
	rw http.ResponseWriter, r *http.Request, identity string, logger log.FieldLogger,
) bool {
	if h.opts.LoginThrottle == nil {
		return false
	}
	wait, err := h.opts.LoginThrottle.RemainingWait(r.Context(), identity)
	if err != nil {
		if logger != nil {
			logger.Error("login throttle check failed", log.String(ThrottleIdentityLogFieldKey, identity), log.Error(err))
		}
		return false
	}
	if wait <= 0 {
		return false
	}
	respondThrottled(rw, h.errDomain, identity, wait, logger)
	return true
}

// respondLoginFailed registers the failed login and answers 401, or 429 if the client has just been throttled.
func (h *authenticationHandler) respondLoginFailed(
	rw http.ResponseWriter, r *http.Request, identity string, detail string, logger log.FieldLogger,
) {
	if h.opts.LoginThrottle != nil {
		decision, err := h.opts.LoginThrottle.Allow(r.Context(), identity, false)
		if err != nil {
			if logger != nil {
				logger.Error("failed login registration failed", log.String(ThrottleIdentityLogFieldKey, identity), log.Error(err))
			}
		} else if !decision.Allowed {
			respondThrottled(rw, h.errDomain, identity, decision.Wait, logger)
			return
		}
	}
	h.respondUnauthorized(rw, detail, logger)
}

func (h *authenticationHandler) respondUnauthorized(rw http.ResponseWriter, detail string, logger log.FieldLogger) {
	rw.Header().Set("WWW-Authenticate", `Basic realm="`+h.opts.Realm+`"`)
	apiErr := restapi.NewUnauthorizedError("Authentication Failed", detail).ToError(h.errDomain)
	restapi.RespondError(rw, http.StatusUnauthorized, apiErr, logger)
}
