/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

// Package softdeleteapi exposes the soft-delete lifecycle of a record type over REST:
// listing, trash listing, soft delete, restore, permanent delete, empty trash and restore all.
package softdeleteapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/backendkit/go-backendkit/httpserver/middleware"
	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/restapi"
	"github.com/backendkit/go-backendkit/softdelete"
)

// Messages of successful actions.
const (
	DetailRestored           = "Object restored successfully."
	DetailDeletedPermanently = "Object deleted permanently successfully."
	DetailTrashEmptied       = "Trash emptied successfully."
	DetailAllRestored        = "All deleted objects restored successfully."
)

// URLParamID is the chi URL parameter holding the record id.
const URLParamID = "id"

// Opts represents options for Handler.
type Opts[T softdelete.Record] struct {
	// ErrorDomain is used for error responses.
	ErrorDomain string
	// AllowViewDeleted enables trash operations and lets superusers see deleted records in the list.
	AllowViewDeleted bool
	// Present converts a record into its response representation. The record itself is used when nil.
	Present func(rec T) interface{}
	// OnChange is called with the id of every record changed by a lifecycle operation.
	OnChange func(ctx context.Context, id uuid.UUID)
}

// ListResponseData is the body of list responses.
type ListResponseData struct {
	Count   int           `json:"count"`
	Results []interface{} `json:"results"`
}

// Handler serves the soft-delete lifecycle of T.
// Every endpoint requires an authenticated principal, trash operations require an admin.
type Handler[T softdelete.Record] struct {
	manager *softdelete.Manager[T]
	opts    Opts[T]
}

// NewHandler creates a new Handler.
func NewHandler[T softdelete.Record](manager *softdelete.Manager[T], opts Opts[T]) *Handler[T] {
	if opts.Present == nil {
		opts.Present = func(rec T) interface{} { return rec }
	}
	return &Handler[T]{manager: manager, opts: opts}
}

// Routes registers the endpoints on the router.
func (h *Handler[T]) Routes(router chi.Router) {
	router.Get("/", h.list)
	router.Get("/deleted", h.deleted)
	router.Post("/empty-trash", h.emptyTrash)
	router.Post("/restore-all", h.restoreAll)
	router.Route("/{"+URLParamID+"}", func(router chi.Router) {
		router.Get("/", h.retrieve)
		router.Delete("/", h.destroy)
		router.Post("/restore", h.restore)
		router.Post("/delete-permanently", h.deletePermanently)
	})
}

func (h *Handler[T]) list(rw http.ResponseWriter, r *http.Request) {
	principal, ok := h.authenticated(rw, r)
	if !ok {
		return
	}
	find := h.manager.Objects
	if principal.IsSuperuser && h.opts.AllowViewDeleted {
		find = h.manager.AllObjects
	}
	recs, err := find(r.Context())
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	h.respondList(rw, r, recs)
}

func (h *Handler[T]) deleted(rw http.ResponseWriter, r *http.Request) {
	if !h.trashAllowed(rw, r, "Viewing deleted objects is not allowed for this model.", "View Deleted Not Allowed") {
		return
	}
	recs, err := h.manager.Deleted(r.Context())
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	h.respondList(rw, r, recs)
}

func (h *Handler[T]) retrieve(rw http.ResponseWriter, r *http.Request) {
	principal, ok := h.authenticated(rw, r)
	if !ok {
		return
	}
	scope := softdelete.ScopeActive
	if principal.IsSuperuser && h.opts.AllowViewDeleted {
		scope = softdelete.ScopeAll
	}
	rec, ok := h.getObject(rw, r, scope)
	if !ok {
		return
	}
	restapi.RespondJSON(rw, h.opts.Present(rec), middleware.GetLoggerFromContext(r.Context()))
}

func (h *Handler[T]) destroy(rw http.ResponseWriter, r *http.Request) {
	principal, ok := h.authenticated(rw, r)
	if !ok {
		return
	}
	rec, ok := h.getObject(rw, r, softdelete.ScopeActive)
	if !ok {
		return
	}
	if err := h.manager.Delete(r.Context(), rec, principal.ID); err != nil {
		h.respondError(rw, r, err)
		return
	}
	h.changed(r.Context(), rec)
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler[T]) restore(rw http.ResponseWriter, r *http.Request) {
	if !h.trashAllowed(rw, r, "Restoring deleted objects is not allowed for this model.", "Restore Not Allowed") {
		return
	}
	rec, ok := h.getDeletedObject(rw, r)
	if !ok {
		return
	}
	if err := h.manager.Restore(r.Context(), rec); err != nil {
		h.respondError(rw, r, err)
		return
	}
	h.changed(r.Context(), rec)
	restapi.RespondDetail(rw, DetailRestored, middleware.GetLoggerFromContext(r.Context()))
}

func (h *Handler[T]) deletePermanently(rw http.ResponseWriter, r *http.Request) {
	if !h.trashAllowed(rw, r, "Permanently deleting objects is not allowed for this model.", "Permanent Delete Not Allowed") {
		return
	}
	rec, ok := h.getDeletedObject(rw, r)
	if !ok {
		return
	}
	if err := h.manager.HardDelete(r.Context(), rec); err != nil {
		h.respondError(rw, r, err)
		return
	}
	h.changed(r.Context(), rec)
	restapi.RespondDetail(rw, DetailDeletedPermanently, middleware.GetLoggerFromContext(r.Context()))
}

func (h *Handler[T]) emptyTrash(rw http.ResponseWriter, r *http.Request) {
	if !h.trashAllowed(rw, r, "Emptying trash is not allowed for this model.", "Empty Trash Not Allowed") {
		return
	}
	var recs []T
	if h.opts.OnChange != nil {
		var err error
		if recs, err = h.manager.Deleted(r.Context()); err != nil {
			h.respondError(rw, r, err)
			return
		}
	}
	n, err := h.manager.EmptyTrash(r.Context())
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	h.changed(r.Context(), recs...)
	logger := middleware.GetLoggerFromContext(r.Context())
	if logger != nil {
		logger.Info("trash emptied", log.Int("count", n),
			log.String("principal_id", middleware.GetPrincipalFromContext(r.Context()).ID.String()))
	}
	restapi.RespondDetail(rw, DetailTrashEmptied, logger)
}

func (h *Handler[T]) restoreAll(rw http.ResponseWriter, r *http.Request) {
	if !h.trashAllowed(rw, r, "Restoring all deleted objects is not allowed for this model.", "Restore All Not Allowed") {
		return
	}
	var recs []T
	if h.opts.OnChange != nil {
		var err error
		if recs, err = h.manager.Deleted(r.Context()); err != nil {
			h.respondError(rw, r, err)
			return
		}
	}
	n, err := h.manager.RestoreAll(r.Context())
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	h.changed(r.Context(), recs...)
	logger := middleware.GetLoggerFromContext(r.Context())
	if logger != nil {
		logger.Info("all deleted objects restored", log.Int("count", n),
			log.String("principal_id", middleware.GetPrincipalFromContext(r.Context()).ID.String()))
	}
	restapi.RespondDetail(rw, DetailAllRestored, logger)
}

func (h *Handler[T]) authenticated(rw http.ResponseWriter, r *http.Request) (*middleware.Principal, bool) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		h.respondError(rw, r, restapi.NewUnauthorizedError("Unauthorized", "Authentication credentials were not provided."))
		return nil, false
	}
	return principal, true
}

// trashAllowed checks that the principal is an admin and that trash operations are enabled.
func (h *Handler[T]) trashAllowed(rw http.ResponseWriter, r *http.Request, notAllowedDetail, notAllowedTitle string) bool {
	principal, ok := h.authenticated(rw, r)
	if !ok {
		return false
	}
	if !principal.IsAdmin() {
		h.respondError(rw, r, restapi.NewForbiddenError("Forbidden", "You do not have permission to perform this action."))
		return false
	}
	if !h.opts.AllowViewDeleted {
		h.respondError(rw, r, restapi.NewForbiddenError(notAllowedTitle, notAllowedDetail))
		return false
	}
	return true
}

func (h *Handler[T]) getObject(rw http.ResponseWriter, r *http.Request, scope softdelete.Scope) (rec T, ok bool) {
	id, err := uuid.Parse(chi.URLParam(r, URLParamID))
	if err != nil {
		h.respondError(rw, r, softdelete.ErrNotFound)
		return rec, false
	}
	if rec, err = h.manager.Repository().Get(r.Context(), id, scope); err != nil {
		h.respondError(rw, r, err)
		return rec, false
	}
	return rec, true
}

func (h *Handler[T]) getDeletedObject(rw http.ResponseWriter, r *http.Request) (rec T, ok bool) {
	if rec, ok = h.getObject(rw, r, softdelete.ScopeAll); !ok {
		return rec, false
	}
	if !rec.SoftDeleteModel().IsDeleted {
		h.respondError(rw, r, restapi.NewBadRequestError("Object Not Deleted", "Object is not deleted."))
		return rec, false
	}
	return rec, true
}

func (h *Handler[T]) changed(ctx context.Context, recs ...T) {
	if h.opts.OnChange == nil {
		return
	}
	for _, rec := range recs {
		h.opts.OnChange(ctx, rec.SoftDeleteModel().ID)
	}
}

func (h *Handler[T]) respondList(rw http.ResponseWriter, r *http.Request, recs []T) {
	results := make([]interface{}, 0, len(recs))
	for _, rec := range recs {
		results = append(results, h.opts.Present(rec))
	}
	restapi.RespondJSON(rw, ListResponseData{Count: len(results), Results: results}, middleware.GetLoggerFromContext(r.Context()))
}

func (h *Handler[T]) respondError(rw http.ResponseWriter, r *http.Request, err error) {
	restapi.RespondDomainError(rw, h.opts.ErrorDomain, err, middleware.GetLoggerFromContext(r.Context()))
}
