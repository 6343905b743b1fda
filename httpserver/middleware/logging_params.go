/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"sync"

	"github.com/backendkit/go-backendkit/log"
)

// LoggingParams stores fields that underlying middlewares and handlers want to see
// in the "response completed" entry of the Logging middleware.
type LoggingParams struct {
	mu     sync.Mutex
	fields []log.Field
}

// ExtendFields extends the list of fields logged by the Logging middleware.
func (lp *LoggingParams) ExtendFields(fields ...log.Field) {
	lp.mu.Lock()
	lp.fields = append(lp.fields, fields...)
	lp.mu.Unlock()
}

// Fields returns a copy of the collected fields.
func (lp *LoggingParams) Fields() []log.Field {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return append([]log.Field(nil), lp.fields...)
}

// extendLoggingFields is a nil-safe ExtendFields.
func extendLoggingFields(lp *LoggingParams, fields ...log.Field) {
	if lp != nil {
		lp.ExtendFields(fields...)
	}
}
