/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package throttle

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Decision outcomes used as the "outcome" metric label.
const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
	DecisionExempt  = "exempt"
)

// MetricsCollector collects throttle statistics.
type MetricsCollector interface {
	IncDecisions(scope, outcome string)
	IncViolations(scope string, repeated bool)
}

// PrometheusMetrics is a MetricsCollector exporting Prometheus metrics.
type PrometheusMetrics struct {
	DecisionsTotal  *prometheus.CounterVec
	ViolationsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_decisions_total",
			Help:      "Number of throttle decisions by scope and outcome.",
		}, []string{"scope", "outcome"}),
		ViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_violations_total",
			Help:      "Number of times identities reached the request limit.",
		}, []string{"scope", "repeated"}),
	}
}

// MustRegister registers metrics in the default Prometheus registry and panics on error.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.DecisionsTotal, pm.ViolationsTotal)
}

// Unregister removes metrics from the default Prometheus registry.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.DecisionsTotal)
	prometheus.Unregister(pm.ViolationsTotal)
}

// IncDecisions implements MetricsCollector.
func (pm *PrometheusMetrics) IncDecisions(scope, outcome string) {
	pm.DecisionsTotal.WithLabelValues(scope, outcome).Inc()
}

// IncViolations implements MetricsCollector.
func (pm *PrometheusMetrics) IncViolations(scope string, repeated bool) {
	pm.ViolationsTotal.WithLabelValues(scope, strconv.FormatBool(repeated)).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncDecisions(string, string) {}
func (disabledMetrics) IncViolations(string, bool)  {}
