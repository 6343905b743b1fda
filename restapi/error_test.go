/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpCode2ErrorCode(t *testing.T) {
	tests := []struct {
		httpCode    int
		wantErrCode string
	}{
		{http.StatusInternalServerError, ErrCodeInternal},
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
		{http.StatusTooManyRequests, ErrCodeTooManyRequests},
		{http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{http.StatusBadRequest, "badRequest"},
		{http.StatusUnauthorized, "unauthorized"},
		{http.StatusForbidden, "forbidden"},
		{http.StatusConflict, "conflict"},
	}
	for _, tt := range tests {
		t.Run(tt.wantErrCode, func(t *testing.T) {
			assert.Equal(t, tt.wantErrCode, httpCode2ErrorCode(tt.httpCode))
		})
	}
}

func TestError_JSON(t *testing.T) {
	apiErr := NewError("Notes", ErrCodeDuplicateInTrash, "Hello already exists in trash. Please restore and use it.").
		WithTitle("Duplicate Value In Trash").
		AddContext("field", "title").
		AddDebug("query", "notes")

	data, err := json.Marshal(apiErr)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"domain": "Notes",
		"code": "duplicateValueInTrash",
		"title": "Duplicate Value In Trash",
		"message": "Hello already exists in trash. Please restore and use it.",
		"context": {"field": "title"},
		"debug": {"query": "notes"}
	}`, string(data))

	data, err = json.Marshal(NewInternalError("Notes"))
	require.NoError(t, err)
	require.JSONEq(t, `{"domain": "Notes", "code": "internalError", "message": "Internal error."}`, string(data))
}
