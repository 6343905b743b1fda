/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package sqlrepo

import (
	"time"

	"github.com/google/uuid"

	"github.com/backendkit/go-backendkit/softdelete"
)

// Column maps a domain field of T to a table column.
type Column[T softdelete.Record] struct {
	Name string
	// Value returns the value written to the column.
	Value func(rec T) interface{}
	// Target returns the pointer the column is scanned into.
	Target func(rec T) interface{}
}

// Schema describes how records of T are stored. The base columns of softdelete.Model
// are always present and precede the domain columns.
type Schema[T softdelete.Record] struct {
	Table   string
	Columns []Column[T]
	// New returns an empty record to scan a row into.
	New func() T
}

// BaseColumnsDDL is the column list of softdelete.Model for CREATE TABLE statements.
const BaseColumnsDDL = `id UUID PRIMARY KEY,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	locked BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ NULL,
	created_by UUID NULL,
	updated_by UUID NULL,
	deleted_by UUID NULL`

func baseColumns[T softdelete.Record]() []Column[T] {
	model := func(rec T) *softdelete.Model { return rec.SoftDeleteModel() }
	return []Column[T]{
		{
			Name:   softdelete.FieldID,
			Value:  func(rec T) interface{} { return model(rec).ID },
			Target: func(rec T) interface{} { return &model(rec).ID },
		},
		{
			Name:   softdelete.FieldIsDeleted,
			Value:  func(rec T) interface{} { return model(rec).IsDeleted },
			Target: func(rec T) interface{} { return &model(rec).IsDeleted },
		},
		{
			Name:   softdelete.FieldLocked,
			Value:  func(rec T) interface{} { return model(rec).Locked },
			Target: func(rec T) interface{} { return &model(rec).Locked },
		},
		{
			Name:   softdelete.FieldCreatedAt,
			Value:  func(rec T) interface{} { return model(rec).CreatedAt },
			Target: func(rec T) interface{} { return &model(rec).CreatedAt },
		},
		{
			Name:   softdelete.FieldUpdatedAt,
			Value:  func(rec T) interface{} { return model(rec).UpdatedAt },
			Target: func(rec T) interface{} { return &model(rec).UpdatedAt },
		},
		{
			Name:   softdelete.FieldDeletedAt,
			Value:  func(rec T) interface{} { return nullTime(model(rec).DeletedAt) },
			Target: func(rec T) interface{} { return &model(rec).DeletedAt },
		},
		{
			Name:   softdelete.FieldCreatedBy,
			Value:  func(rec T) interface{} { return nullUUID(model(rec).CreatedBy) },
			Target: func(rec T) interface{} { return &model(rec).CreatedBy },
		},
		{
			Name:   softdelete.FieldUpdatedBy,
			Value:  func(rec T) interface{} { return nullUUID(model(rec).UpdatedBy) },
			Target: func(rec T) interface{} { return &model(rec).UpdatedBy },
		},
		{
			Name:   softdelete.FieldDeletedBy,
			Value:  func(rec T) interface{} { return nullUUID(model(rec).DeletedBy) },
			Target: func(rec T) interface{} { return &model(rec).DeletedBy },
		},
	}
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
