/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

// Package softdelete implements the soft-delete lifecycle of records:
// create, update, delete into trash, restore and permanent removal.
//
// Records embed Model and are persisted by a Repository. Queries take an explicit Scope:
// ScopeActive (the default) never returns deleted records.
package softdelete

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/backendkit/go-backendkit/log"
)

// ManagerOpts are optional settings of Manager.
type ManagerOpts struct {
	Logger log.FieldLogger
	// Now and NewID override the clock and the id generator, used in tests.
	Now   func() time.Time
	NewID func() uuid.UUID
}

// Manager runs lifecycle operations and scoped queries over a Repository.
type Manager[T Record] struct {
	repo   Repository[T]
	logger log.FieldLogger
	now    func() time.Time
	newID  func() uuid.UUID
}

// NewManager creates a new Manager.
func NewManager[T Record](repo Repository[T], opts ManagerOpts) *Manager[T] {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.New
	}
	return &Manager[T]{repo: repo, logger: opts.Logger, now: opts.Now, newID: opts.NewID}
}

// Repository returns the underlying repository.
func (m *Manager[T]) Repository() Repository[T] {
	return m.repo
}

// Save inserts a new record or updates an existing one.
//
// A new record gets an id (if it has none), created_at and created_by.
// For an existing record updated_at and updated_by are refreshed; when fields are given,
// only they are written, and the two audit fields are added to them.
// A uuid.Nil actor leaves the *_by fields untouched.
func (m *Manager[T]) Save(ctx context.Context, rec T, actor uuid.UUID, fields ...string) error {
	model := rec.SoftDeleteModel()
	now := m.now().UTC()

	if model.IsNew() {
		if model.ID == uuid.Nil {
			model.ID = m.newID()
		}
		model.CreatedAt = now
		model.UpdatedAt = now
		if actor != uuid.Nil {
			model.CreatedBy = actorRef(actor)
			model.UpdatedBy = actorRef(actor)
		}
		if err := m.repo.Insert(ctx, rec); err != nil {
			return fmt.Errorf("insert record %s: %w", model.ID, err)
		}
		m.logger.Debug("record created", log.String("id", model.ID.String()))
		return nil
	}

	for _, f := range fields {
		if f == FieldID || f == FieldCreatedAt || f == FieldCreatedBy {
			return fmt.Errorf("%w: %s", ErrImmutableField, f)
		}
	}
	model.UpdatedAt = now
	if actor != uuid.Nil {
		model.UpdatedBy = actorRef(actor)
	}
	if len(fields) == 0 {
		fields = nil
	} else {
		fields = appendFields(fields, FieldUpdatedAt, FieldUpdatedBy)
	}
	if err := m.repo.Update(ctx, rec, fields); err != nil {
		return fmt.Errorf("update record %s: %w", model.ID, err)
	}
	return nil
}

// Delete moves the record into trash on behalf of actor. Locked records are rejected with ErrLocked.
// If the update fails, the tombstone and updated_at of rec are put back.
func (m *Manager[T]) Delete(ctx context.Context, rec T, actor uuid.UUID) error {
	model := rec.SoftDeleteModel()
	if model.Locked {
		return fmt.Errorf("delete record %s: %w", model.ID, ErrLocked)
	}

	tombstone, updatedAt := model.Tombstone, model.UpdatedAt
	now := m.now().UTC()
	model.IsDeleted = true
	model.DeletedAt = &now
	model.DeletedBy = nil
	if actor != uuid.Nil {
		model.DeletedBy = actorRef(actor)
	}
	model.UpdatedAt = now
	fields := []string{FieldDeletedAt, FieldIsDeleted, FieldDeletedBy, FieldUpdatedAt}
	if hook, ok := interface{}(rec).(DeleteHook); ok {
		fields = appendFields(fields, hook.OnSoftDelete()...)
	}

	if err := m.repo.Update(ctx, rec, fields); err != nil {
		model.Tombstone, model.UpdatedAt = tombstone, updatedAt
		return fmt.Errorf("delete record %s: %w", model.ID, err)
	}
	m.logger.Info("record moved to trash",
		log.String("id", model.ID.String()), log.String("actor", actor.String()))
	return nil
}

// Restore brings the record back from trash.
// If the update fails, the tombstone and updated_at of rec are put back.
func (m *Manager[T]) Restore(ctx context.Context, rec T) error {
	model := rec.SoftDeleteModel()
	tombstone, updatedAt := model.Tombstone, model.UpdatedAt
	model.IsDeleted = false
	model.DeletedAt = nil
	model.DeletedBy = nil
	model.UpdatedAt = m.now().UTC()
	fields := []string{FieldIsDeleted, FieldDeletedAt, FieldDeletedBy, FieldUpdatedAt}
	if hook, ok := interface{}(rec).(RestoreHook); ok {
		fields = appendFields(fields, hook.OnRestore()...)
	}

	if err := m.repo.Update(ctx, rec, fields); err != nil {
		model.Tombstone, model.UpdatedAt = tombstone, updatedAt
		return fmt.Errorf("restore record %s: %w", model.ID, err)
	}
	m.logger.Info("record restored", log.String("id", model.ID.String()))
	return nil
}

// HardDelete removes the record from storage. The locked flag is not checked.
func (m *Manager[T]) HardDelete(ctx context.Context, rec T) error {
	id := rec.SoftDeleteModel().ID
	if err := m.repo.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove record %s: %w", id, err)
	}
	m.logger.Info("record deleted permanently", log.String("id", id.String()))
	return nil
}

// Objects returns active records.
func (m *Manager[T]) Objects(ctx context.Context) ([]T, error) {
	return m.Find(ctx, Filter{Scope: ScopeActive})
}

// AllObjects returns active and deleted records.
func (m *Manager[T]) AllObjects(ctx context.Context) ([]T, error) {
	return m.Find(ctx, Filter{Scope: ScopeAll})
}

// Deleted returns records in trash.
func (m *Manager[T]) Deleted(ctx context.Context) ([]T, error) {
	return m.Find(ctx, Filter{Scope: ScopeDeleted})
}

// Find returns records matching the filter.
func (m *Manager[T]) Find(ctx context.Context, filter Filter) ([]T, error) {
	recs, err := m.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", filter.Scope, err)
	}
	return recs, nil
}

// GetObject looks the record up regardless of its deletion state.
// A missing record yields an error matching ErrNotFound.
func (m *Manager[T]) GetObject(ctx context.Context, id uuid.UUID) (T, error) {
	return m.repo.Get(ctx, id, ScopeAll)
}

// GetObjectOrNone is GetObject that reports a missing record with found == false instead of an error.
func (m *Manager[T]) GetObjectOrNone(ctx context.Context, id uuid.UUID) (rec T, found bool, err error) {
	rec, err = m.repo.Get(ctx, id, ScopeAll)
	if err != nil {
		var zero T
		if errors.Is(err, ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return rec, true, nil
}

// ValidateFieldAsUnique fails with *DuplicateValueError if an active record other than excludingID
// has the value in the field. Pass uuid.Nil to check against all records.
func (m *Manager[T]) ValidateFieldAsUnique(ctx context.Context, field string, value interface{}, excludingID uuid.UUID) error {
	return m.validateUnique(ctx, ScopeActive, field, value, excludingID)
}

// ValidateFieldAsUniqueIncludingDeleted is ValidateFieldAsUnique that also looks into trash.
// A duplicate found only in trash yields an error matching ErrDuplicateInTrash, so the caller
// may offer restoring the record instead of creating a new one.
func (m *Manager[T]) ValidateFieldAsUniqueIncludingDeleted(
	ctx context.Context, field string, value interface{}, excludingID uuid.UUID,
) error {
	if err := m.validateUnique(ctx, ScopeActive, field, value, excludingID); err != nil {
		return err
	}
	return m.validateUnique(ctx, ScopeDeleted, field, value, excludingID)
}

func (m *Manager[T]) validateUnique(ctx context.Context, scope Scope, field string, value interface{}, excludingID uuid.UUID) error {
	exists, err := m.repo.Exists(ctx, Filter{Scope: scope, Field: field, Value: value, ExcludeID: excludingID})
	if err != nil {
		return fmt.Errorf("check uniqueness of %s: %w", field, err)
	}
	if exists {
		return &DuplicateValueError{Field: field, Value: value, InTrash: scope == ScopeDeleted}
	}
	return nil
}

// EmptyTrash permanently removes all deleted records and returns their number.
func (m *Manager[T]) EmptyTrash(ctx context.Context) (int, error) {
	n, err := m.repo.RemoveWhere(ctx, Filter{Scope: ScopeDeleted})
	if err != nil {
		return 0, fmt.Errorf("empty trash: %w", err)
	}
	m.logger.Info("trash emptied", log.Int("count", n))
	return n, nil
}

// RestoreAll restores all deleted records one by one and returns their number.
// An empty trash yields ErrNothingToRestore.
func (m *Manager[T]) RestoreAll(ctx context.Context) (int, error) {
	recs, err := m.Deleted(ctx)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, ErrNothingToRestore
	}
	for i, rec := range recs {
		if err = m.Restore(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}

func actorRef(actor uuid.UUID) *uuid.UUID {
	return &actor
}

func appendFields(fields []string, extra ...string) []string {
	res := make([]string, 0, len(fields)+len(extra))
	seen := make(map[string]struct{}, len(fields)+len(extra))
	for _, list := range [][]string{fields, extra} {
		for _, f := range list {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			res = append(res, f)
		}
	}
	return res
}
