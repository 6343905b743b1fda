/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package softdelete_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/log/logtest"
	"github.com/backendkit/go-backendkit/softdelete"
	"github.com/backendkit/go-backendkit/testutil"
)

func TestManager_Save(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()

	t.Run("create stamps creation fields", func(t *testing.T) {
		m, _, clock := newTestManager()
		n := &note{Title: "first"}
		require.NoError(t, m.Save(ctx, n, admin))
		require.NotEqual(t, uuid.Nil, n.ID)
		require.Equal(t, clock.Now(), n.CreatedAt)
		require.Equal(t, clock.Now(), n.UpdatedAt)
		require.Equal(t, &admin, n.CreatedBy)

		stored, err := m.GetObject(ctx, n.ID)
		require.NoError(t, err)
		require.Equal(t, "first", stored.Title)
		require.False(t, stored.IsDeleted)
	})

	t.Run("create keeps preassigned id", func(t *testing.T) {
		m, _, _ := newTestManager()
		id := uuid.New()
		n := &note{Model: softdelete.Model{ID: id}, Title: "imported"}
		require.NoError(t, m.Save(ctx, n, uuid.Nil))
		require.Equal(t, id, n.ID)
		require.Nil(t, n.CreatedBy)
	})

	t.Run("update refreshes updated_at but keeps created_at", func(t *testing.T) {
		m, _, clock := newTestManager()
		n := mustCreate(m, "draft", admin)
		createdAt := n.CreatedAt

		clock.Advance(time.Hour)
		editor := uuid.New()
		n.Title = "final"
		n.CreatedAt = clock.Now()
		require.NoError(t, m.Save(ctx, n, editor))

		stored, err := m.GetObject(ctx, n.ID)
		require.NoError(t, err)
		require.Equal(t, "final", stored.Title)
		require.Equal(t, createdAt, stored.CreatedAt)
		require.Equal(t, clock.Now(), stored.UpdatedAt)
		require.Equal(t, &editor, stored.UpdatedBy)
		require.Equal(t, &admin, stored.CreatedBy)
	})

	t.Run("partial update writes listed fields and timestamps", func(t *testing.T) {
		m, _, clock := newTestManager()
		n := mustCreate(m, "draft", admin)

		clock.Advance(time.Minute)
		n.Title = "changed"
		n.Locked = true
		require.NoError(t, m.Save(ctx, n, admin, "title"))

		stored, err := m.GetObject(ctx, n.ID)
		require.NoError(t, err)
		require.Equal(t, "changed", stored.Title)
		require.False(t, stored.Locked, "locked was not in the field list")
		require.Equal(t, clock.Now(), stored.UpdatedAt, "updated_at must be added to the field list")
	})

	t.Run("immutable and unknown fields", func(t *testing.T) {
		m, _, _ := newTestManager()
		n := mustCreate(m, "draft", admin)
		require.ErrorIs(t, m.Save(ctx, n, admin, softdelete.FieldCreatedAt), softdelete.ErrImmutableField)
		require.ErrorIs(t, m.Save(ctx, n, admin, "color"), softdelete.ErrUnknownField)
	})
}

func TestManager_DeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()

	t.Run("locked record is not deleted", func(t *testing.T) {
		m, _, _ := newTestManager()
		n := &note{Model: softdelete.Model{Locked: true}, Title: "system"}
		require.NoError(t, m.Save(ctx, n, admin))

		require.ErrorIs(t, m.Delete(ctx, n, admin), softdelete.ErrLocked)
		require.False(t, n.IsDeleted)
		require.Nil(t, n.DeletedAt)

		stored, err := m.GetObject(ctx, n.ID)
		require.NoError(t, err)
		require.False(t, stored.IsDeleted)
	})

	t.Run("delete then restore", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		clock := newFakeClock()
		m := softdelete.NewManager[*note](newTestRepo(), softdelete.ManagerOpts{Logger: logRecorder, Now: clock.Now})
		n := &note{Title: "temp"}
		require.NoError(t, m.Save(ctx, n, admin))

		clock.Advance(time.Minute)
		deletedAt := clock.Now()
		require.NoError(t, m.Delete(ctx, n, admin))
		require.True(t, n.IsDeleted)
		require.True(t, n.Archived)

		stored, err := m.GetObject(ctx, n.ID)
		require.NoError(t, err)
		require.True(t, stored.IsDeleted)
		require.Equal(t, &deletedAt, stored.DeletedAt)
		require.Equal(t, &admin, stored.DeletedBy)
		require.True(t, stored.Archived, "hook fields must be persisted")

		entry, found := logRecorder.FindEntry("record moved to trash")
		require.True(t, found)
		actor, found := entry.FindField("actor")
		require.True(t, found)
		require.Equal(t, admin.String(), string(actor.Bytes))

		clock.Advance(time.Minute)
		require.NoError(t, m.Restore(ctx, stored))
		restored, err := m.GetObject(ctx, n.ID)
		require.NoError(t, err)
		require.False(t, restored.IsDeleted)
		require.Nil(t, restored.DeletedAt)
		require.Nil(t, restored.DeletedBy)
		require.False(t, restored.Archived)
		require.Equal(t, clock.Now(), restored.UpdatedAt)

		_, found = logRecorder.FindEntry("record restored")
		require.True(t, found)
	})

	t.Run("storage error is propagated and the record is put back", func(t *testing.T) {
		clock := newFakeClock()
		repo := newTestRepo()
		healthy := softdelete.NewManager[*note](repo, softdelete.ManagerOpts{Now: clock.Now})
		m := softdelete.NewManager[*note](failingRepo{repo}, softdelete.ManagerOpts{Now: clock.Now})
		n := &note{Title: "temp"}
		require.NoError(t, m.Save(ctx, n, admin))
		createdAt := n.UpdatedAt

		clock.Advance(time.Minute)
		require.ErrorIs(t, m.Delete(ctx, n, admin), errStorageDown)
		require.Equal(t, softdelete.Tombstone{}, n.Tombstone)
		require.Equal(t, createdAt, n.UpdatedAt)

		require.NoError(t, healthy.Delete(ctx, n, admin))
		deleted := n.Tombstone
		deletedAt := n.UpdatedAt

		clock.Advance(time.Minute)
		require.ErrorIs(t, m.Restore(ctx, n), errStorageDown)
		require.Equal(t, deleted, n.Tombstone)
		require.True(t, n.IsDeleted)
		require.Equal(t, deletedAt, n.UpdatedAt)
	})

	t.Run("hard delete ignores the lock", func(t *testing.T) {
		m, repo, _ := newTestManager()
		n := &note{Model: softdelete.Model{Locked: true}, Title: "system"}
		require.NoError(t, m.Save(ctx, n, admin))
		require.NoError(t, m.HardDelete(ctx, n))
		require.Equal(t, 0, repo.Len())
		require.ErrorIs(t, m.HardDelete(ctx, n), softdelete.ErrNotFound)
	})
}

func TestManager_Scopes(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager()
	admin := uuid.New()

	older := mustCreate(m, "older", admin)
	clock.Advance(time.Second)
	newer := mustCreate(m, "newer", admin)
	clock.Advance(time.Second)
	trashed := mustCreate(m, "trashed", admin)
	require.NoError(t, m.Delete(ctx, trashed, admin))

	titles := func(notes []*note) []string {
		res := make([]string, 0, len(notes))
		for _, n := range notes {
			res = append(res, n.Title)
		}
		return res
	}

	active, err := m.Objects(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"newer", "older"}, titles(active))

	all, err := m.AllObjects(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"trashed", "newer", "older"}, titles(all))

	deleted, err := m.Deleted(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"trashed"}, titles(deleted))

	found, err := m.Find(ctx, softdelete.Filter{Field: "title", Value: "older"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, older.ID, found[0].ID)

	_, err = m.Find(ctx, softdelete.Filter{Field: "color", Value: "red"})
	require.ErrorIs(t, err, softdelete.ErrUnknownField)

	// Point lookups are not scoped.
	got, err := m.GetObject(ctx, trashed.ID)
	require.NoError(t, err)
	require.True(t, got.IsDeleted)

	_, err = m.GetObject(ctx, uuid.New())
	require.ErrorIs(t, err, softdelete.ErrNotFound)

	got, ok, err := m.GetObjectOrNone(ctx, newer.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "newer", got.Title)

	got, ok, err = m.GetObjectOrNone(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, got)
}

func TestManager_ValidateFieldAsUnique(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager()
	active := mustCreate(m, "taken", uuid.Nil)
	trashed := mustCreate(m, "recycled", uuid.Nil)
	require.NoError(t, m.Delete(ctx, trashed, uuid.Nil))

	err := m.ValidateFieldAsUnique(ctx, "title", "taken", uuid.Nil)
	require.ErrorIs(t, err, softdelete.ErrDuplicate)
	require.EqualError(t, err, "taken already exists.")

	require.NoError(t, m.ValidateFieldAsUnique(ctx, "title", "taken", active.ID), "the record itself is excluded")
	require.NoError(t, m.ValidateFieldAsUnique(ctx, "title", "recycled", uuid.Nil), "trash is not checked")
	require.NoError(t, m.ValidateFieldAsUnique(ctx, "title", "fresh", uuid.Nil))

	err = m.ValidateFieldAsUniqueIncludingDeleted(ctx, "title", "recycled", uuid.Nil)
	require.ErrorIs(t, err, softdelete.ErrDuplicateInTrash)
	require.NotErrorIs(t, err, softdelete.ErrDuplicate)
	require.EqualError(t, err, "recycled already exists in trash. Please restore and use it.")
	testutil.RequireDuplicateValueError(t, err, "title", true)

	err = m.ValidateFieldAsUniqueIncludingDeleted(ctx, "title", "taken", uuid.Nil)
	require.ErrorIs(t, err, softdelete.ErrDuplicate)
	require.NotErrorIs(t, err, softdelete.ErrDuplicateInTrash)

	require.NoError(t, m.ValidateFieldAsUniqueIncludingDeleted(ctx, "title", "recycled", trashed.ID))

	validator := softdelete.NewUniqueFieldValidator(m, "title", true)
	require.Equal(t, "title", validator.Field())
	require.ErrorIs(t, validator.Validate(ctx, "recycled", uuid.Nil), softdelete.ErrDuplicateInTrash)
	require.ErrorIs(t, softdelete.NewUniqueFieldValidator(m, "title", false).Validate(ctx, "taken", uuid.Nil),
		softdelete.ErrDuplicate)

	for _, value := range []string{"taken", "recycled"} {
		testutil.RequireErrorIsAny(t, validator.Validate(ctx, value, uuid.Nil),
			[]error{softdelete.ErrDuplicate, softdelete.ErrDuplicateInTrash}, "value %q", value)
	}
}

func TestManager_Trash(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()

	t.Run("restore all", func(t *testing.T) {
		m, _, _ := newTestManager()
		_, err := m.RestoreAll(ctx)
		require.ErrorIs(t, err, softdelete.ErrNothingToRestore)

		for _, title := range []string{"a", "b"} {
			require.NoError(t, m.Delete(ctx, mustCreate(m, title, admin), admin))
		}
		mustCreate(m, "c", admin)

		n, err := m.RestoreAll(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		active, err := m.Objects(ctx)
		require.NoError(t, err)
		require.Len(t, active, 3)
		for _, rec := range active {
			require.False(t, rec.Archived)
		}
	})

	t.Run("empty trash", func(t *testing.T) {
		m, repo, _ := newTestManager()
		for _, title := range []string{"a", "b"} {
			require.NoError(t, m.Delete(ctx, mustCreate(m, title, admin), admin))
		}
		kept := mustCreate(m, "c", admin)

		n, err := m.EmptyTrash(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Equal(t, 1, repo.Len())
		_, err = m.GetObject(ctx, kept.ID)
		require.NoError(t, err)

		n, err = m.EmptyTrash(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, n)
	})
}

func TestScope(t *testing.T) {
	active := &softdelete.Model{}
	deleted := &softdelete.Model{Tombstone: softdelete.Tombstone{IsDeleted: true}}

	require.True(t, softdelete.ScopeActive.Matches(active))
	require.False(t, softdelete.ScopeActive.Matches(deleted))
	require.True(t, softdelete.ScopeAll.Matches(deleted))
	require.True(t, softdelete.ScopeDeleted.Matches(deleted))
	require.False(t, softdelete.ScopeDeleted.Matches(active))
	require.Equal(t, "active", softdelete.Filter{}.Scope.String())
}
