/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains testify-based assertions for HTTP responses, errors and Prometheus metrics,
// and helpers for starting network servers in tests.
package testutil

type tHelper interface {
	Helper()
}
