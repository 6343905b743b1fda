/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var metricsResponseErrors *prometheus.CounterVec

const (
	metricsSubsystem = "restapi"

	metricsLabelResponseErrorDomain = "domain"
	metricsLabelResponseErrorCode   = "code"
	metricsLabelResponseStatus      = "status"
)

// MustInitAndRegisterMetrics initializes and registers the counter of error responses
// labeled by error domain, error code and HTTP status. Throttled responses are counted with status 429.
// It panics if the counter is already registered.
func MustInitAndRegisterMetrics(namespace string) {
	metricsResponseErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: metricsSubsystem,
		Name:      "response_errors_total",
		Help:      "Number of error responses by error domain, code and HTTP status.",
	}, []string{metricsLabelResponseErrorDomain, metricsLabelResponseErrorCode, metricsLabelResponseStatus})
	prometheus.MustRegister(metricsResponseErrors)
}

// UnregisterMetrics unregisters the counter and stops counting error responses.
func UnregisterMetrics() {
	if metricsResponseErrors != nil {
		prometheus.Unregister(metricsResponseErrors)
		metricsResponseErrors = nil
	}
}

func countResponseError(httpStatusCode int, err *Error) {
	if metricsResponseErrors == nil {
		return
	}
	metricsResponseErrors.With(prometheus.Labels{
		metricsLabelResponseErrorDomain: err.Domain,
		metricsLabelResponseErrorCode:   err.Code,
		metricsLabelResponseStatus:      strconv.Itoa(httpStatusCode),
	}).Inc()
}
