/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the long-lived parts of a backend (HTTP server, store maintenance)
// until a shutdown signal or context cancellation.
package service

// Unit is a component of the service with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may block for the unit's lifetime.
	// A failure is reported by sending exactly one error to fatalErr; the channel is not used after Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own Prometheus collectors.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
