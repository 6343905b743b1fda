/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package softdelete_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/backendkit/go-backendkit/softdelete"
	"github.com/backendkit/go-backendkit/softdelete/memrepo"
)

type note struct {
	softdelete.Model
	Title    string
	Archived bool
}

// OnSoftDelete archives the note together with moving it into trash.
func (n *note) OnSoftDelete() []string {
	n.Archived = true
	return []string{"archived"}
}

func (n *note) OnRestore() []string {
	n.Archived = false
	return []string{"archived"}
}

var noteSchema = memrepo.Schema[*note]{
	Clone: func(n *note) *note {
		c := *n
		c.Model = memrepo.CloneModel(n.Model)
		return &c
	},
	Fields: map[string]memrepo.Field[*note]{
		"title": {
			Get:  func(n *note) interface{} { return n.Title },
			Copy: func(dst, src *note) { dst.Title = src.Title },
		},
		"archived": {
			Get:  func(n *note) interface{} { return n.Archived },
			Copy: func(dst, src *note) { dst.Archived = src.Archived },
		},
	},
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRepo() *memrepo.Repository[*note] {
	return memrepo.New(noteSchema)
}

func newTestManager() (*softdelete.Manager[*note], *memrepo.Repository[*note], *fakeClock) {
	clock := newFakeClock()
	repo := newTestRepo()
	return softdelete.NewManager[*note](repo, softdelete.ManagerOpts{Now: clock.Now}), repo, clock
}

// failingRepo fails every Update, the rest is served by the embedded repository.
type failingRepo struct {
	softdelete.Repository[*note]
}

var errStorageDown = errors.New("storage is down")

func (r failingRepo) Update(context.Context, *note, []string) error {
	return errStorageDown
}

func mustCreate(m *softdelete.Manager[*note], title string, actor uuid.UUID) *note {
	n := &note{Title: title}
	if err := m.Save(context.Background(), n, actor); err != nil {
		panic(err)
	}
	return n
}
