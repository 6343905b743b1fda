/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package softdelete

import (
	"errors"
	"fmt"
)

// Errors returned by Manager and repositories.
var (
	ErrLocked           = errors.New("record is locked")
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("value already exists")
	ErrDuplicateInTrash = errors.New("value already exists in trash")
	ErrNothingToRestore = errors.New("no deleted records to restore")
	ErrUnknownField     = errors.New("unknown field")
	ErrImmutableField   = errors.New("field cannot be updated")
)

// DuplicateValueError is returned by uniqueness validation.
// It matches ErrDuplicate or ErrDuplicateInTrash (when InTrash is true) with errors.Is.
type DuplicateValueError struct {
	Field   string
	Value   interface{}
	InTrash bool
}

func (e *DuplicateValueError) Error() string {
	if e.InTrash {
		return fmt.Sprintf("%v already exists in trash. Please restore and use it.", e.Value)
	}
	return fmt.Sprintf("%v already exists.", e.Value)
}

// Is implements the errors.Is contract.
func (e *DuplicateValueError) Is(target error) bool {
	if e.InTrash {
		return target == ErrDuplicateInTrash
	}
	return target == ErrDuplicate
}
