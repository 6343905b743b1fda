/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/softdelete"
)

// RequireNoErrorInChannel asserts that a buffered channel (usually the fatal error channel of a service unit)
// holds no error. An empty channel passes.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var err error
	select {
	case err = <-c:
	default:
	}
	require.NoError(t, err, msgAndArgs...)
}

// RequireErrorIsAny asserts that err matches at least one of targets with errors.Is.
// The failure message lists the whole chain of err.
func RequireErrorIsAny(t require.TestingT, err error, targets []error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return
		}
	}
	wantTexts := make([]string, 0, len(targets))
	for _, target := range targets {
		wantTexts = append(wantTexts, fmt.Sprintf("%q", target.Error()))
	}
	require.FailNow(t, fmt.Sprintf("Error chain should match one of the targets:\n"+
		"targets:  [%s]\n"+
		"in chain: %s", strings.Join(wantTexts, "; "), errorChain(err),
	), msgAndArgs...)
}

// RequireDuplicateValueError asserts that err wraps a *softdelete.DuplicateValueError for field.
// inTrash tells whether the conflicting record is expected to be soft-deleted.
func RequireDuplicateValueError(t require.TestingT, err error, field string, inTrash bool, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var dupErr *softdelete.DuplicateValueError
	if !errors.As(err, &dupErr) {
		require.FailNow(t, fmt.Sprintf("Error chain should contain *softdelete.DuplicateValueError:\n"+
			"in chain: %s", errorChain(err)), msgAndArgs...)
		return
	}
	require.Equal(t, field, dupErr.Field, msgAndArgs...)
	require.Equal(t, inTrash, dupErr.InTrash, msgAndArgs...)
}

func errorChain(err error) string {
	if err == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%q", err.Error()))
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		sb.WriteString(fmt.Sprintf("\n\t%q", e.Error()))
	}
	return sb.String()
}
