/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package middleware

import (
	"strings"

	"github.com/google/uuid"
)

// AdminGroup is the group whose members are treated as administrators.
const AdminGroup = "admin"

// Principal is the authenticated user on whose behalf the request is served.
type Principal struct {
	ID          uuid.UUID
	Username    string
	IsSuperuser bool
	Groups      []string
}

// IsAdmin reports whether the principal is a superuser or a member of the "admin" group (case-insensitive).
func (p *Principal) IsAdmin() bool {
	if p == nil {
		return false
	}
	if p.IsSuperuser {
		return true
	}
	for _, g := range p.Groups {
		if strings.EqualFold(g, AdminGroup) {
			return true
		}
	}
	return false
}
