/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/backendkit/go-backendkit/httpserver/middleware"
	"github.com/backendkit/go-backendkit/restapi"
)

// Authenticator resolves HTTP Basic credentials (email and password) into principals.
type Authenticator struct {
	svc *Service
}

var _ middleware.Authenticator = (*Authenticator)(nil)

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(svc *Service) *Authenticator {
	return &Authenticator{svc: svc}
}

// Authenticate implements middleware.Authenticator.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*middleware.Principal, error) {
	user, err := a.svc.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: %v", middleware.ErrInvalidCredentials, err)
		}
		return nil, err
	}
	return NewPrincipal(user), nil
}

// NewPrincipal returns the principal acting on behalf of the user.
func NewPrincipal(user *User) *middleware.Principal {
	return &middleware.Principal{
		ID:          user.ID,
		Username:    user.Email,
		IsSuperuser: user.IsSuperuser,
		Groups:      append([]string(nil), user.Groups...),
	}
}

// NewMeHandler returns the handler answering with the authenticated user, read through the prefetcher.
func NewMeHandler(prefetcher *Prefetcher, errDomain string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		logger := middleware.GetLoggerFromContext(r.Context())
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			restapi.RespondDomainError(rw, errDomain,
				restapi.NewUnauthorizedError("Unauthorized", "Authentication credentials were not provided."), logger)
			return
		}
		user, err := prefetcher.Get(r.Context(), principal.ID)
		if err != nil {
			restapi.RespondDomainError(rw, errDomain, err, logger)
			return
		}
		restapi.RespondJSON(rw, user, logger)
	}
}

// CreateRequest is the body of the create user request.
type CreateRequest struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Password    string   `json:"password"`
	IsSuperuser bool     `json:"is_superuser"`
	Groups      []string `json:"groups"`
}

// NewCreateHandler returns the handler creating users. Only admins may create users
// and only superusers may create superusers. An empty password leaves the account invited.
func NewCreateHandler(svc *Service, errDomain string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		logger := middleware.GetLoggerFromContext(r.Context())
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			restapi.RespondDomainError(rw, errDomain,
				restapi.NewUnauthorizedError("Unauthorized", "Authentication credentials were not provided."), logger)
			return
		}
		if !principal.IsAdmin() {
			restapi.RespondDomainError(rw, errDomain,
				restapi.NewForbiddenError("Forbidden", "You do not have permission to perform this action."), logger)
			return
		}

		var req CreateRequest
		if err := restapi.DecodeRequestJSONStrict(r, &req, true); err != nil {
			restapi.RespondDomainError(rw, errDomain, err, logger)
			return
		}
		if req.IsSuperuser && !principal.IsSuperuser {
			restapi.RespondDomainError(rw, errDomain,
				restapi.NewForbiddenError("Forbidden", "Only superusers may create superusers."), logger)
			return
		}

		user, err := svc.Create(r.Context(), CreateParams{
			Email:       req.Email,
			Name:        req.Name,
			Password:    req.Password,
			IsSuperuser: req.IsSuperuser,
			Groups:      req.Groups,
		}, principal.ID)
		if err != nil {
			if errors.Is(err, ErrInvalidEmail) {
				err = restapi.NewBadRequestError("Invalid Email", "Enter a valid email address.")
			}
			restapi.RespondDomainError(rw, errDomain, err, logger)
			return
		}
		restapi.RespondCodeAndJSON(rw, http.StatusCreated, user, logger)
	}
}
