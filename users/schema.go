/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package users

import (
	"github.com/backendkit/go-backendkit/softdelete/memrepo"
	"github.com/backendkit/go-backendkit/softdelete/sqlrepo"
)

// TableName is the table users are stored in.
const TableName = "users"

// Migrations create the users table.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS "users" (
	` + sqlrepo.BaseColumnsDDL + `,
	email TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT 'prefer_not_to_say',
	color VARCHAR(7) NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
	groups JSONB NOT NULL DEFAULT '[]',
	password TEXT NOT NULL DEFAULT '',
	past_passwords JSONB NOT NULL DEFAULT '[]'
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON "users" (email)`,
	`CREATE INDEX IF NOT EXISTS users_is_deleted_idx ON "users" (is_deleted)`,
}

// SQLSchema maps User to the users table.
var SQLSchema = sqlrepo.Schema[*User]{
	Table: TableName,
	Columns: []sqlrepo.Column[*User]{
		{Name: FieldEmail, Value: func(u *User) interface{} { return u.Email }, Target: func(u *User) interface{} { return &u.Email }},
		{Name: FieldName, Value: func(u *User) interface{} { return u.Name }, Target: func(u *User) interface{} { return &u.Name }},
		{Name: FieldGender, Value: func(u *User) interface{} { return u.Gender }, Target: func(u *User) interface{} { return &u.Gender }},
		{Name: FieldColor, Value: func(u *User) interface{} { return u.Color }, Target: func(u *User) interface{} { return &u.Color }},
		{Name: FieldIsActive, Value: func(u *User) interface{} { return u.IsActive }, Target: func(u *User) interface{} { return &u.IsActive }},
		{Name: FieldIsSuperuser, Value: func(u *User) interface{} { return u.IsSuperuser }, Target: func(u *User) interface{} { return &u.IsSuperuser }},
		{Name: FieldGroups, Value: func(u *User) interface{} { return u.Groups }, Target: func(u *User) interface{} { return &u.Groups }},
		{Name: FieldPassword, Value: func(u *User) interface{} { return u.PasswordHash }, Target: func(u *User) interface{} { return &u.PasswordHash }},
		{Name: FieldPastPasswords, Value: func(u *User) interface{} { return u.PastPasswords }, Target: func(u *User) interface{} { return &u.PastPasswords }},
	},
	New: func() *User { return &User{} },
}

// MemorySchema describes User for the in-memory repository.
var MemorySchema = memrepo.Schema[*User]{
	Clone: (*User).Clone,
	Fields: map[string]memrepo.Field[*User]{
		FieldEmail: {
			Get:  func(u *User) interface{} { return u.Email },
			Copy: func(dst, src *User) { dst.Email = src.Email },
		},
		FieldName: {
			Get:  func(u *User) interface{} { return u.Name },
			Copy: func(dst, src *User) { dst.Name = src.Name },
		},
		FieldGender: {
			Get:  func(u *User) interface{} { return u.Gender },
			Copy: func(dst, src *User) { dst.Gender = src.Gender },
		},
		FieldColor: {
			Get:  func(u *User) interface{} { return u.Color },
			Copy: func(dst, src *User) { dst.Color = src.Color },
		},
		FieldIsActive: {
			Get:  func(u *User) interface{} { return u.IsActive },
			Copy: func(dst, src *User) { dst.IsActive = src.IsActive },
		},
		FieldIsSuperuser: {
			Get:  func(u *User) interface{} { return u.IsSuperuser },
			Copy: func(dst, src *User) { dst.IsSuperuser = src.IsSuperuser },
		},
		FieldGroups: {
			Get:  func(u *User) interface{} { return u.Groups },
			Copy: func(dst, src *User) { dst.Groups = append(Groups(nil), src.Groups...) },
		},
		FieldPassword: {
			Get:  func(u *User) interface{} { return u.PasswordHash },
			Copy: func(dst, src *User) { dst.PasswordHash = src.PasswordHash },
		},
		FieldPastPasswords: {
			Get:  func(u *User) interface{} { return u.PastPasswords },
			Copy: func(dst, src *User) { dst.PastPasswords = append(PasswordHistory(nil), src.PastPasswords...) },
		},
	},
}
