/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/softdelete"
)

// Service errors.
var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CreateParams are the attributes of a new user. An empty Password leaves the account without
// a usable password, as for invited users.
type CreateParams struct {
	Email       string
	Name        string
	Password    string
	IsSuperuser bool
	Groups      []string
}

// Service implements account operations on top of the soft-delete manager.
type Service struct {
	manager *softdelete.Manager[*User]
	emails  *softdelete.UniqueFieldValidator[*User]
	logger  log.FieldLogger
	now     func() time.Time
}

// NewService creates a new Service.
func NewService(manager *softdelete.Manager[*User], logger log.FieldLogger) *Service {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Service{
		manager: manager,
		emails:  softdelete.NewUniqueFieldValidator(manager, FieldEmail, true),
		logger:  logger,
		now:     time.Now,
	}
}

// Manager returns the underlying manager.
func (s *Service) Manager() *softdelete.Manager[*User] {
	return s.manager
}

// Create validates and stores a new user. An email used by an active or a deleted user is rejected
// with *softdelete.DuplicateValueError.
func (s *Service) Create(ctx context.Context, params CreateParams, actor uuid.UUID) (*User, error) {
	email := NormalizeEmail(params.Email)
	if at := strings.LastIndex(email, "@"); at <= 0 || at == len(email)-1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, params.Email)
	}
	if err := s.emails.Validate(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}

	user := New(email, params.Name)
	user.IsSuperuser = params.IsSuperuser
	user.Groups = append(Groups{}, params.Groups...)
	if params.Password == "" {
		user.SetUnusablePassword()
	} else if _, err := user.SetPassword(params.Password, s.now()); err != nil {
		return nil, err
	}
	if err := s.manager.Save(ctx, user, actor); err != nil {
		return nil, err
	}
	s.logger.Info("user created", log.String("user_id", user.ID.String()), log.Bool("superuser", user.IsSuperuser))
	return user, nil
}

// ChangePassword sets a new password and saves only the password fields.
func (s *Service) ChangePassword(ctx context.Context, user *User, raw string, actor uuid.UUID) error {
	fields, err := user.SetPassword(raw, s.now())
	if err != nil {
		return err
	}
	return s.manager.Save(ctx, user, actor, fields...)
}

// Authenticate returns the active user with the email and password.
// Any mismatch, including a deleted or deactivated account, yields ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	found, err := s.manager.Find(ctx, softdelete.Filter{Field: FieldEmail, Value: NormalizeEmail(email)})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 || !found[0].IsActive || !found[0].CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return found[0], nil
}
