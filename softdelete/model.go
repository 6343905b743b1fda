/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package softdelete

import (
	"time"

	"github.com/google/uuid"
)

// Names of the base fields, as used in partial updates and filters.
const (
	FieldID        = "id"
	FieldIsDeleted = "is_deleted"
	FieldLocked    = "locked"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldDeletedAt = "deleted_at"
	FieldCreatedBy = "created_by"
	FieldUpdatedBy = "updated_by"
	FieldDeletedBy = "deleted_by"
)

// BaseFields lists the names of all base fields in their storage order.
var BaseFields = []string{
	FieldID, FieldIsDeleted, FieldLocked,
	FieldCreatedAt, FieldUpdatedAt, FieldDeletedAt,
	FieldCreatedBy, FieldUpdatedBy, FieldDeletedBy,
}

// Timestamps holds the creation and modification times of a record.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tombstone is the soft-deletion state of a record.
// DeletedAt is set if and only if IsDeleted is true.
type Tombstone struct {
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at"`
	DeletedBy *uuid.UUID `json:"deleted_by"`
}

// Model is embedded into domain records to give them the soft-delete lifecycle.
type Model struct {
	ID uuid.UUID `json:"id"`
	// Locked records cannot be soft-deleted.
	Locked bool `json:"locked"`
	Timestamps
	Tombstone
	CreatedBy *uuid.UUID `json:"created_by"`
	UpdatedBy *uuid.UUID `json:"updated_by"`
}

// SoftDeleteModel implements Record.
func (m *Model) SoftDeleteModel() *Model {
	return m
}

// IsNew reports whether the record has never been saved.
func (m *Model) IsNew() bool {
	return m.ID == uuid.Nil || m.CreatedAt.IsZero()
}

// Record is a domain record with the soft-delete lifecycle.
type Record interface {
	SoftDeleteModel() *Model
}

// DeleteHook is implemented by records that change additional fields when they are soft-deleted.
// OnSoftDelete returns the names of the changed fields, they are persisted together with the tombstone.
type DeleteHook interface {
	OnSoftDelete() []string
}

// RestoreHook is the counterpart of DeleteHook called on restore.
type RestoreHook interface {
	OnRestore() []string
}

// Scope selects records by their deletion state.
type Scope int

// Query scopes. The zero value is ScopeActive.
const (
	ScopeActive Scope = iota
	ScopeAll
	ScopeDeleted
)

// String implements fmt.Stringer.
func (s Scope) String() string {
	switch s {
	case ScopeActive:
		return "active"
	case ScopeAll:
		return "all"
	case ScopeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Matches reports whether the record belongs to the scope.
func (s Scope) Matches(m *Model) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopeDeleted:
		return m.IsDeleted
	default:
		return !m.IsDeleted
	}
}

// Filter narrows a query. Field and Value form an optional equality predicate,
// a non-nil ExcludeID excludes one record.
type Filter struct {
	Scope     Scope
	Field     string
	Value     interface{}
	ExcludeID uuid.UUID
}
