/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package users

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHistorySize is the number of recent passwords a new password must differ from.
const PasswordHistorySize = 3

const unusablePasswordPrefix = "!"

var passwordHashCost = bcrypt.DefaultCost

// Password errors.
var (
	ErrPasswordReused = errors.New("password was used recently")
	ErrEmptyPassword  = errors.New("password cannot be empty")
)

// SetPassword hashes and sets the password, remembering it in the history.
// A password matching one of the last PasswordHistorySize ones is rejected with ErrPasswordReused.
// The returned field names are to be passed to a partial save.
func (u *User) SetPassword(raw string, now time.Time) ([]string, error) {
	if raw == "" {
		return nil, ErrEmptyPassword
	}
	if !u.CheckAgainstPastPasswords(raw) {
		return nil, ErrPasswordReused
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), passwordHashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.PastPasswords = append(PasswordHistory{{Hash: u.PasswordHash, CreatedAt: now.UTC()}}, u.PastPasswords...)
	if len(u.PastPasswords) > PasswordHistorySize {
		u.PastPasswords = u.PastPasswords[:PasswordHistorySize]
	}
	return []string{FieldPassword, FieldPastPasswords}, nil
}

// SetUnusablePassword marks the account as having no password (e.g. invited, not yet activated).
func (u *User) SetUnusablePassword() []string {
	u.PasswordHash = unusablePasswordPrefix
	return []string{FieldPassword}
}

// HasUsablePassword reports whether the user can log in with a password.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, unusablePasswordPrefix)
}

// CheckPassword reports whether raw matches the current password.
func (u *User) CheckPassword(raw string) bool {
	if !u.HasUsablePassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(raw)) == nil
}

// CheckAgainstPastPasswords reports whether raw differs from each of the last PasswordHistorySize passwords.
func (u *User) CheckAgainstPastPasswords(raw string) bool {
	for i, past := range u.PastPasswords {
		if i == PasswordHistorySize {
			break
		}
		if bcrypt.CompareHashAndPassword([]byte(past.Hash), []byte(raw)) == nil {
			return false
		}
	}
	return true
}
