/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

// Package users provides the user record: a soft-deletable account with password history.
package users

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/backendkit/go-backendkit/softdelete"
)

// AdminGroup is the group whose members may manage trash.
const AdminGroup = "admin"

// Gender values.
const (
	GenderMale           = "male"
	GenderFemale         = "female"
	GenderOther          = "other"
	GenderPreferNotToSay = "prefer_not_to_say"
)

// Field names of User.
const (
	FieldEmail         = "email"
	FieldName          = "name"
	FieldGender        = "gender"
	FieldColor         = "color"
	FieldIsActive      = "is_active"
	FieldIsSuperuser   = "is_superuser"
	FieldGroups        = "groups"
	FieldPassword      = "password"
	FieldPastPasswords = "past_passwords"
)

// User is an account.
type User struct {
	softdelete.Model
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	Gender        string          `json:"gender"`
	Color         string          `json:"color"`
	IsActive      bool            `json:"is_active"`
	IsSuperuser   bool            `json:"is_superuser"`
	Groups        Groups          `json:"groups"`
	PasswordHash  string          `json:"-"`
	PastPasswords PasswordHistory `json:"-"`
}

// New returns an active user with defaults applied.
func New(email, name string) *User {
	return &User{
		Email:    NormalizeEmail(email),
		Name:     name,
		Gender:   GenderPreferNotToSay,
		Color:    RandomColor(),
		IsActive: true,
		Groups:   Groups{},
	}
}

// OnSoftDelete deactivates the user when moved into trash.
func (u *User) OnSoftDelete() []string {
	u.IsActive = false
	return []string{FieldIsActive}
}

// OnRestore reactivates the user.
func (u *User) OnRestore() []string {
	u.IsActive = true
	return []string{FieldIsActive}
}

// IsAdmin reports whether the user is a superuser or a member of the admin group.
func (u *User) IsAdmin() bool {
	return u.IsSuperuser || u.Groups.Contains(AdminGroup)
}

// CanBeReinvited reports whether an invitation may be sent again: the user never activated the account.
func (u *User) CanBeReinvited() bool {
	return !u.IsActive && !u.HasUsablePassword()
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	c := *u
	c.Model.DeletedAt = clonePtr(u.DeletedAt)
	c.Model.DeletedBy = clonePtr(u.DeletedBy)
	c.Model.CreatedBy = clonePtr(u.CreatedBy)
	c.Model.UpdatedBy = clonePtr(u.UpdatedBy)
	c.Groups = append(Groups(nil), u.Groups...)
	c.PastPasswords = append(PasswordHistory(nil), u.PastPasswords...)
	return &c
}

// NormalizeEmail lowercases the domain part of the address, the local part is kept as is.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

// RandomColor returns a random "#rrggbb" color used as the user's avatar background.
func RandomColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000)) //nolint:gosec
}

// Groups is a list of group names stored as a JSON array.
type Groups []string

// Contains reports whether the group is in the list, ignoring case.
func (g Groups) Contains(group string) bool {
	for _, name := range g {
		if strings.EqualFold(name, group) {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (g Groups) Value() (driver.Value, error) {
	return jsonValue(g, "[]")
}

// Scan implements sql.Scanner.
func (g *Groups) Scan(src interface{}) error {
	return jsonScan(src, g)
}

// PastPassword is a password hash the user had before.
type PastPassword struct {
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordHistory is the list of past passwords, newest first, stored as a JSON array.
type PasswordHistory []PastPassword

// Value implements driver.Valuer.
func (h PasswordHistory) Value() (driver.Value, error) {
	return jsonValue(h, "[]")
}

// Scan implements sql.Scanner.
func (h *PasswordHistory) Scan(src interface{}) error {
	return jsonScan(src, h)
}

func jsonValue(v interface{}, empty string) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func jsonScan(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %T: %w", dst, err)
	}
	return nil
}

func clonePtr[V any](p *V) *V {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
