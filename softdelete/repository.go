/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package softdelete

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists records of one type.
//
// Every method is a single storage operation. Lookups of missing records return an error matching ErrNotFound.
// Field names in Update and Filter are the storage names (see the Field* constants), unknown names
// are rejected with ErrUnknownField.
type Repository[T Record] interface {
	Insert(ctx context.Context, rec T) error
	// Update writes only the listed fields, or every field except id and created_* if fields is nil.
	Update(ctx context.Context, rec T, fields []string) error
	Get(ctx context.Context, id uuid.UUID, scope Scope) (T, error)
	// List returns matching records, newest first.
	List(ctx context.Context, filter Filter) ([]T, error)
	Exists(ctx context.Context, filter Filter) (bool, error)
	Remove(ctx context.Context, id uuid.UUID) error
	RemoveWhere(ctx context.Context, filter Filter) (int, error)
}
