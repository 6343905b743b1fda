/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

// Package memrepo provides an in-memory softdelete.Repository.
// Records are cloned on the way in and out, so callers never share memory with the repository.
package memrepo

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/backendkit/go-backendkit/softdelete"
)

// ErrAlreadyExists is returned by Insert when a record with the same id is stored already.
var ErrAlreadyExists = errors.New("record already exists")

// Field describes a domain field of T.
type Field[T softdelete.Record] struct {
	// Get returns the value compared by filters.
	Get func(rec T) interface{}
	// Copy copies the field from src to dst, used by partial updates.
	Copy func(dst, src T)
}

// Schema describes T for the repository. The base fields of softdelete.Model are known implicitly.
type Schema[T softdelete.Record] struct {
	// Clone returns a deep copy of the record.
	Clone  func(rec T) T
	Fields map[string]Field[T]
}

// Repository is an in-memory softdelete.Repository safe for concurrent use.
type Repository[T softdelete.Record] struct {
	schema  Schema[T]
	mu      sync.RWMutex
	records map[uuid.UUID]T
}

var _ softdelete.Repository[*softdelete.Model] = (*Repository[*softdelete.Model])(nil)

// New creates a new empty Repository.
func New[T softdelete.Record](schema Schema[T]) *Repository[T] {
	return &Repository[T]{schema: schema, records: make(map[uuid.UUID]T)}
}

// Len returns the number of stored records in all scopes.
func (r *Repository[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Insert implements softdelete.Repository.
func (r *Repository[T]) Insert(_ context.Context, rec T) error {
	id := rec.SoftDeleteModel().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}
	r.records[id] = r.schema.Clone(rec)
	return nil
}

// Update implements softdelete.Repository.
func (r *Repository[T]) Update(_ context.Context, rec T, fields []string) error {
	for _, f := range fields {
		if !r.isKnownField(f) {
			return fmt.Errorf("%w: %s", softdelete.ErrUnknownField, f)
		}
	}

	id := rec.SoftDeleteModel().ID
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", softdelete.ErrNotFound, id)
	}

	if fields == nil {
		updated := r.schema.Clone(rec)
		um, sm := updated.SoftDeleteModel(), stored.SoftDeleteModel()
		um.CreatedAt = sm.CreatedAt
		um.CreatedBy = sm.CreatedBy
		r.records[id] = updated
		return nil
	}

	updated := r.schema.Clone(stored)
	for _, f := range fields {
		if field, isDomain := r.schema.Fields[f]; isDomain {
			field.Copy(updated, rec)
			continue
		}
		copyBaseField(f, updated.SoftDeleteModel(), rec.SoftDeleteModel())
	}
	r.records[id] = updated
	return nil
}

// Get implements softdelete.Repository.
func (r *Repository[T]) Get(_ context.Context, id uuid.UUID, scope softdelete.Scope) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok || !scope.Matches(rec.SoftDeleteModel()) {
		var zero T
		return zero, fmt.Errorf("%w: %s", softdelete.ErrNotFound, id)
	}
	return r.schema.Clone(rec), nil
}

// List implements softdelete.Repository.
func (r *Repository[T]) List(_ context.Context, filter softdelete.Filter) ([]T, error) {
	if err := r.checkFilter(filter); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []T
	for _, rec := range r.records {
		if r.matches(rec, filter) {
			res = append(res, r.schema.Clone(rec))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		mi, mj := res[i].SoftDeleteModel(), res[j].SoftDeleteModel()
		if !mi.CreatedAt.Equal(mj.CreatedAt) {
			return mi.CreatedAt.After(mj.CreatedAt)
		}
		return mi.ID.String() < mj.ID.String()
	})
	return res, nil
}

// Exists implements softdelete.Repository.
func (r *Repository[T]) Exists(_ context.Context, filter softdelete.Filter) (bool, error) {
	if err := r.checkFilter(filter); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if r.matches(rec, filter) {
			return true, nil
		}
	}
	return false, nil
}

// Remove implements softdelete.Repository.
func (r *Repository[T]) Remove(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return fmt.Errorf("%w: %s", softdelete.ErrNotFound, id)
	}
	delete(r.records, id)
	return nil
}

// RemoveWhere implements softdelete.Repository.
func (r *Repository[T]) RemoveWhere(_ context.Context, filter softdelete.Filter) (int, error) {
	if err := r.checkFilter(filter); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.records {
		if r.matches(rec, filter) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *Repository[T]) isKnownField(name string) bool {
	if _, ok := r.schema.Fields[name]; ok {
		return true
	}
	_, ok := baseFieldValue(name, &softdelete.Model{})
	return ok
}

func (r *Repository[T]) checkFilter(filter softdelete.Filter) error {
	if filter.Field != "" && !r.isKnownField(filter.Field) {
		return fmt.Errorf("%w: %s", softdelete.ErrUnknownField, filter.Field)
	}
	return nil
}

func (r *Repository[T]) matches(rec T, filter softdelete.Filter) bool {
	m := rec.SoftDeleteModel()
	if !filter.Scope.Matches(m) {
		return false
	}
	if filter.ExcludeID != uuid.Nil && m.ID == filter.ExcludeID {
		return false
	}
	if filter.Field == "" {
		return true
	}
	var val interface{}
	if field, ok := r.schema.Fields[filter.Field]; ok {
		val = field.Get(rec)
	} else {
		val, _ = baseFieldValue(filter.Field, m)
	}
	return reflect.DeepEqual(val, filter.Value)
}

// baseFieldValue returns the value of the base field with pointers dereferenced.
func baseFieldValue(name string, m *softdelete.Model) (interface{}, bool) {
	switch name {
	case softdelete.FieldID:
		return m.ID, true
	case softdelete.FieldIsDeleted:
		return m.IsDeleted, true
	case softdelete.FieldLocked:
		return m.Locked, true
	case softdelete.FieldCreatedAt:
		return m.CreatedAt, true
	case softdelete.FieldUpdatedAt:
		return m.UpdatedAt, true
	case softdelete.FieldDeletedAt:
		return derefOrNil(m.DeletedAt), true
	case softdelete.FieldCreatedBy:
		return derefOrNil(m.CreatedBy), true
	case softdelete.FieldUpdatedBy:
		return derefOrNil(m.UpdatedBy), true
	case softdelete.FieldDeletedBy:
		return derefOrNil(m.DeletedBy), true
	default:
		return nil, false
	}
}

func derefOrNil[V any](p *V) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func copyBaseField(name string, dst, src *softdelete.Model) {
	switch name {
	case softdelete.FieldIsDeleted:
		dst.IsDeleted = src.IsDeleted
	case softdelete.FieldLocked:
		dst.Locked = src.Locked
	case softdelete.FieldUpdatedAt:
		dst.UpdatedAt = src.UpdatedAt
	case softdelete.FieldDeletedAt:
		dst.DeletedAt = clonePtr(src.DeletedAt)
	case softdelete.FieldUpdatedBy:
		dst.UpdatedBy = clonePtr(src.UpdatedBy)
	case softdelete.FieldDeletedBy:
		dst.DeletedBy = clonePtr(src.DeletedBy)
	}
}

// CloneModel returns a deep copy of the base model, for use in Schema.Clone.
func CloneModel(m softdelete.Model) softdelete.Model {
	m.DeletedAt = clonePtr(m.DeletedAt)
	m.DeletedBy = clonePtr(m.DeletedBy)
	m.CreatedBy = clonePtr(m.CreatedBy)
	m.UpdatedBy = clonePtr(m.UpdatedBy)
	return m
}

func clonePtr[V any](p *V) *V {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
