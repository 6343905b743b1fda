/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package kvstore

import "github.com/backendkit/go-backendkit/lrucache"

// MetricsCollector collects usage statistics of MemoryStore.
type MetricsCollector = lrucache.MetricsCollector

// PrometheusMetrics is a MetricsCollector exporting Prometheus metrics.
type PrometheusMetrics = lrucache.PrometheusMetrics

// NewPrometheusMetrics creates metrics named <namespace>_kvstore_*. The namespace may be empty.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{Namespace: namespace, Subsystem: "kvstore"})
}
