/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package softdeleteapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/httpserver/middleware"
	"github.com/backendkit/go-backendkit/restapi"
	"github.com/backendkit/go-backendkit/softdelete"
	"github.com/backendkit/go-backendkit/softdelete/memrepo"
	"github.com/backendkit/go-backendkit/testutil"
)

const testErrDomain = "Notes"

type note struct {
	softdelete.Model
	Title string `json:"title"`
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
	},
}

var (
	superuser = &middleware.Principal{ID: uuid.New(), Username: "root@example.com", IsSuperuser: true}
	admin     = &middleware.Principal{ID: uuid.New(), Username: "admin@example.com", Groups: []string{"Admin"}}
	member    = &middleware.Principal{ID: uuid.New(), Username: "member@example.com"}
)

type testEnv struct {
	manager *softdelete.Manager[*note]
	router  chi.Router
	changed []uuid.UUID
}

func newTestEnv(t *testing.T, allowViewDeleted bool) *testEnv {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env := &testEnv{}
	env.manager = softdelete.NewManager[*note](memrepo.New(noteSchema), softdelete.ManagerOpts{
		Now: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
	})
	handler := NewHandler(env.manager, Opts[*note]{
		ErrorDomain:      testErrDomain,
		AllowViewDeleted: allowViewDeleted,
		OnChange:         func(_ context.Context, id uuid.UUID) { env.changed = append(env.changed, id) },
	})
	env.router = chi.NewRouter()
	env.router.Route("/notes", handler.Routes)
	return env
}

func (env *testEnv) create(t *testing.T, title string, deleted bool) *note {
	t.Helper()
	ctx := context.Background()
	rec := &note{Title: title}
	require.NoError(t, env.manager.Save(ctx, rec, superuser.ID))
	if deleted {
		require.NoError(t, env.manager.Delete(ctx, rec, superuser.ID))
	}
	return rec
}

func (env *testEnv) do(method, target string, principal *middleware.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if principal != nil {
		req = req.WithContext(middleware.NewContextWithPrincipal(req.Context(), principal))
	}
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	return resp
}

type listResponse struct {
	Count   int    `json:"count"`
	Results []note `json:"results"`
}

func decodeList(t *testing.T, resp *httptest.ResponseRecorder) listResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.Code)
	var data listResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &data))
	require.Len(t, data.Results, data.Count)
	return data
}

func titles(data listResponse) []string {
	res := make([]string, 0, len(data.Results))
	for _, n := range data.Results {
		res = append(res, n.Title)
	}
	return res
}

func TestHandler_List(t *testing.T) {
	env := newTestEnv(t, true)
	env.create(t, "first", false)
	env.create(t, "second", true)
	env.create(t, "third", false)

	require.Equal(t, []string{"third", "first"}, titles(decodeList(t, env.do(http.MethodGet, "/notes/", member))))
	require.Equal(t, []string{"third", "first"}, titles(decodeList(t, env.do(http.MethodGet, "/notes/", admin))))
	require.Equal(t, []string{"third", "second", "first"},
		titles(decodeList(t, env.do(http.MethodGet, "/notes/", superuser))))

	testutil.RequireErrorInRecorder(t, env.do(http.MethodGet, "/notes/", nil),
		http.StatusUnauthorized, testErrDomain, "unauthorized")

	t.Run("superusers do not see deleted records when viewing deleted is disabled", func(t *testing.T) {
		env := newTestEnv(t, false)
		env.create(t, "active", false)
		env.create(t, "deleted", true)
		require.Equal(t, []string{"active"}, titles(decodeList(t, env.do(http.MethodGet, "/notes/", superuser))))
	})
}

func TestHandler_Deleted(t *testing.T) {
	env := newTestEnv(t, true)
	env.create(t, "active", false)
	env.create(t, "deleted", true)

	require.Equal(t, []string{"deleted"}, titles(decodeList(t, env.do(http.MethodGet, "/notes/deleted", admin))))
	testutil.RequireErrorInRecorder(t, env.do(http.MethodGet, "/notes/deleted", member),
		http.StatusForbidden, testErrDomain, "forbidden")

	env = newTestEnv(t, false)
	resp := env.do(http.MethodGet, "/notes/deleted", superuser)
	var respData restapi.ErrorResponseData
	testutil.RequireJSONInRecorder(t, resp, &restapi.ErrorResponseData{Err: &restapi.Error{
		Domain:  testErrDomain,
		Code:    "forbidden",
		Title:   "View Deleted Not Allowed",
		Message: "Viewing deleted objects is not allowed for this model.",
	}}, &respData)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestHandler_Retrieve(t *testing.T) {
	env := newTestEnv(t, true)
	active := env.create(t, "active", false)
	deleted := env.create(t, "deleted", true)

	resp := env.do(http.MethodGet, "/notes/"+active.ID.String(), member)
	require.Equal(t, http.StatusOK, resp.Code)
	var got note
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Equal(t, active.ID, got.ID)
	require.Equal(t, "active", got.Title)

	testutil.RequireErrorInRecorder(t, env.do(http.MethodGet, "/notes/"+deleted.ID.String(), member),
		http.StatusNotFound, testErrDomain, restapi.ErrCodeNotFound)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/notes/"+deleted.ID.String(), superuser).Code)
	testutil.RequireErrorInRecorder(t, env.do(http.MethodGet, "/notes/not-a-uuid", superuser),
		http.StatusNotFound, testErrDomain, restapi.ErrCodeNotFound)
}

func TestHandler_Destroy(t *testing.T) {
	env := newTestEnv(t, true)
	rec := env.create(t, "note", false)

	resp := env.do(http.MethodDelete, "/notes/"+rec.ID.String(), member)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, []uuid.UUID{rec.ID}, env.changed)

	got, err := env.manager.GetObject(context.Background(), rec.ID)
	require.NoError(t, err)
	require.True(t, got.IsDeleted)
	require.NotNil(t, got.DeletedAt)
	require.Equal(t, member.ID, *got.DeletedBy)

	// Deleting twice answers 404, the record is not in the default scope anymore.
	testutil.RequireErrorInRecorder(t, env.do(http.MethodDelete, "/notes/"+rec.ID.String(), member),
		http.StatusNotFound, testErrDomain, restapi.ErrCodeNotFound)

	t.Run("locked", func(t *testing.T) {
		locked := &note{Model: softdelete.Model{Locked: true}, Title: "locked"}
		require.NoError(t, env.manager.Save(context.Background(), locked, superuser.ID))
		testutil.RequireErrorInRecorder(t, env.do(http.MethodDelete, "/notes/"+locked.ID.String(), superuser),
			http.StatusConflict, testErrDomain, restapi.ErrCodeLocked)
		got, err := env.manager.GetObject(context.Background(), locked.ID)
		require.NoError(t, err)
		require.False(t, got.IsDeleted)
	})

	t.Run("anonymous", func(t *testing.T) {
		active := env.create(t, "active", false)
		testutil.RequireErrorInRecorder(t, env.do(http.MethodDelete, "/notes/"+active.ID.String(), nil),
			http.StatusUnauthorized, testErrDomain, "unauthorized")
	})
}

func TestHandler_Restore(t *testing.T) {
	env := newTestEnv(t, true)
	active := env.create(t, "active", false)
	deleted := env.create(t, "deleted", true)

	testutil.RequireErrorInRecorder(t, env.do(http.MethodPost, "/notes/"+deleted.ID.String()+"/restore", member),
		http.StatusForbidden, testErrDomain, "forbidden")
	testutil.RequireErrorInRecorder(t, env.do(http.MethodPost, "/notes/"+active.ID.String()+"/restore", admin),
		http.StatusBadRequest, testErrDomain, "badRequest")

	resp := env.do(http.MethodPost, "/notes/"+deleted.ID.String()+"/restore", admin)
	require.Equal(t, http.StatusOK, resp.Code)
	testutil.RequireStringJSONInRecorder(t, resp, `{"detail":"Object restored successfully."}`)
	require.Equal(t, []uuid.UUID{deleted.ID}, env.changed)

	got, err := env.manager.GetObject(context.Background(), deleted.ID)
	require.NoError(t, err)
	require.False(t, got.IsDeleted)
	require.Nil(t, got.DeletedAt)
	require.Nil(t, got.DeletedBy)

	env = newTestEnv(t, false)
	deleted = env.create(t, "deleted", true)
	testutil.RequireErrorInRecorder(t, env.do(http.MethodPost, "/notes/"+deleted.ID.String()+"/restore", superuser),
		http.StatusForbidden, testErrDomain, "forbidden")
}

func TestHandler_DeletePermanently(t *testing.T) {
	env := newTestEnv(t, true)
	active := env.create(t, "active", false)
	deleted := env.create(t, "deleted", true)

	testutil.RequireErrorInRecorder(t,
		env.do(http.MethodPost, "/notes/"+active.ID.String()+"/delete-permanently", superuser),
		http.StatusBadRequest, testErrDomain, "badRequest")

	resp := env.do(http.MethodPost, "/notes/"+deleted.ID.String()+"/delete-permanently", superuser)
	testutil.RequireStringJSONInRecorder(t, resp, `{"detail":"Object deleted permanently successfully."}`)
	_, found, err := env.manager.GetObjectOrNone(context.Background(), deleted.ID)
	require.NoError(t, err)
	require.False(t, found)

	testutil.RequireErrorInRecorder(t,
		env.do(http.MethodPost, "/notes/"+deleted.ID.String()+"/delete-permanently", superuser),
		http.StatusNotFound, testErrDomain, restapi.ErrCodeNotFound)
}

func TestHandler_EmptyTrash(t *testing.T) {
	env := newTestEnv(t, true)
	active := env.create(t, "active", false)
	deleted1 := env.create(t, "deleted1", true)
	deleted2 := env.create(t, "deleted2", true)

	testutil.RequireErrorInRecorder(t, env.do(http.MethodPost, "/notes/empty-trash", member),
		http.StatusForbidden, testErrDomain, "forbidden")

	resp := env.do(http.MethodPost, "/notes/empty-trash", admin)
	testutil.RequireStringJSONInRecorder(t, resp, `{"detail":"Trash emptied successfully."}`)
	require.ElementsMatch(t, []uuid.UUID{deleted1.ID, deleted2.ID}, env.changed)

	all, err := env.manager.AllObjects(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, active.ID, all[0].ID)
}

func TestHandler_RestoreAll(t *testing.T) {
	env := newTestEnv(t, true)
	env.create(t, "active", false)

	testutil.RequireErrorInRecorder(t, env.do(http.MethodPost, "/notes/restore-all", admin),
		http.StatusBadRequest, testErrDomain, restapi.ErrCodeNothingToRestore)

	deleted1 := env.create(t, "deleted1", true)
	deleted2 := env.create(t, "deleted2", true)

	resp := env.do(http.MethodPost, "/notes/restore-all", superuser)
	testutil.RequireStringJSONInRecorder(t, resp, `{"detail":"All deleted objects restored successfully."}`)
	require.ElementsMatch(t, []uuid.UUID{deleted1.ID, deleted2.ID}, env.changed)

	deleted, err := env.manager.Deleted(context.Background())
	require.NoError(t, err)
	require.Empty(t, deleted)

	env = newTestEnv(t, false)
	testutil.RequireErrorInRecorder(t, env.do(http.MethodPost, "/notes/restore-all", superuser),
		http.StatusForbidden, testErrDomain, "forbidden")
}
