/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package softdelete

import (
	"context"

	"github.com/google/uuid"
)

// UniqueFieldValidator checks values of one field for uniqueness before records are created or updated.
type UniqueFieldValidator[T Record] struct {
	manager        *Manager[T]
	field          string
	includeDeleted bool
}

// NewUniqueFieldValidator creates a validator of the field.
// With includeDeleted, duplicates in trash are reported too (see Manager.ValidateFieldAsUniqueIncludingDeleted).
func NewUniqueFieldValidator[T Record](manager *Manager[T], field string, includeDeleted bool) *UniqueFieldValidator[T] {
	return &UniqueFieldValidator[T]{manager: manager, field: field, includeDeleted: includeDeleted}
}

// Field returns the name of the validated field.
func (v *UniqueFieldValidator[T]) Field() string {
	return v.field
}

// Validate checks the value. excludingID is the id of the record being updated, or uuid.Nil on create.
func (v *UniqueFieldValidator[T]) Validate(ctx context.Context, value interface{}, excludingID uuid.UUID) error {
	if v.includeDeleted {
		return v.manager.ValidateFieldAsUniqueIncludingDeleted(ctx, v.field, value, excludingID)
	}
	return v.manager.ValidateFieldAsUnique(ctx, v.field, value, excludingID)
}
