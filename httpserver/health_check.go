/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/backendkit/go-backendkit/httpserver/middleware"
	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/restapi"
)

// StatusClientClosedRequest is a special HTTP status code used by Nginx to show that the client
// closed the request before the server could send a response.
const StatusClientClosedRequest = 499

// HealthCheckComponent checks one dependency of the service (database, key-value store).
// A nil error means the component is healthy.
type HealthCheckComponent func(ctx context.Context) error

type healthCheckResponseData struct {
	Components map[string]bool `json:"components"`
}

// HealthCheckHandler implements http.Handler and does health-check of a service.
// It answers 200 when every component is healthy and 503 otherwise.
type HealthCheckHandler struct {
	names      []string
	components map[string]HealthCheckComponent
}

// NewHealthCheckHandler creates a new HealthCheckHandler for the named components.
func NewHealthCheckHandler(components map[string]HealthCheckComponent) *HealthCheckHandler {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)
	return &HealthCheckHandler{names: names, components: components}
}

// ServeHTTP serves heath-check HTTP request.
func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())

	healthy := true
	respData := healthCheckResponseData{Components: make(map[string]bool, len(h.names))}
	for _, name := range h.names {
		err := h.components[name](r.Context())
		if errors.Is(r.Context().Err(), context.Canceled) {
			rw.WriteHeader(StatusClientClosedRequest)
			return
		}
		respData.Components[name] = err == nil
		if err != nil {
			healthy = false
			if logger != nil {
				logger.Error("component is unhealthy", log.String("component", name), log.Error(err))
			}
		}
	}

	respStatus := http.StatusOK
	if !healthy {
		respStatus = http.StatusServiceUnavailable
	}
	restapi.RespondCodeAndJSON(rw, respStatus, respData, logger)
}
