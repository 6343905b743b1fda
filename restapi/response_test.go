/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/log/logtest"
	"github.com/backendkit/go-backendkit/softdelete"
	"github.com/backendkit/go-backendkit/testutil"
)

const testDomain = "TestDomain"

type responseRecorderReturnedErrorOnWrite struct {
	*httptest.ResponseRecorder
}

func (rw *responseRecorderReturnedErrorOnWrite) Write(_ []byte) (int, error) {
	return 0, fmt.Errorf("error on write")
}

func TestRespondJSON(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		type Person struct {
			Name string `json:"name"`
			Age  int    `json:"age"`
		}
		resp := httptest.NewRecorder()
		logger := logtest.NewRecorder()
		p := &Person{"Bob", 12}
		require.Empty(t, resp.Header().Get("Content-Type"))
		RespondJSON(resp, p, logger)
		testutil.RequireJSONInRecorder(t, resp, p, &Person{})
		require.Equal(t, 0, len(logger.Entries()))
		require.Equal(t, ContentTypeAppJSON, resp.Header().Get("Content-Type"))
	})

	t.Run("marshaling error", func(t *testing.T) {
		var resp *httptest.ResponseRecorder

		// Without logging.
		resp = httptest.NewRecorder()
		RespondJSON(resp, make(chan bool), nil)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		testutil.RequireEmptyBodyInRecorder(t, resp)

		// With logging.
		resp = httptest.NewRecorder()
		logger := logtest.NewRecorder()
		RespondJSON(resp, make(chan bool), logger)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		testutil.RequireEmptyBodyInRecorder(t, resp)
		require.Equal(t, 1, len(logger.Entries()))
		require.Equal(t, log.LevelError, logger.Entries()[0].Level)
	})

	t.Run("writing error", func(t *testing.T) {
		resp := &responseRecorderReturnedErrorOnWrite{httptest.NewRecorder()}
		logger := logtest.NewRecorder()
		RespondJSON(resp, "foo", logger)
		require.Equal(t, 1, len(logger.Entries()))
		require.Equal(t, log.LevelError, logger.Entries()[0].Level)
	})

	t.Run("change Content-Type", func(t *testing.T) {
		resp := httptest.NewRecorder()
		logger := logtest.NewRecorder()
		resp.Header().Set("Content-Type", "something completely different")
		RespondJSON(resp, "nothing", logger)
		require.Equal(t, 0, len(logger.Entries()))
		require.Equal(t, "something completely different", resp.Header().Get("Content-Type"))
	})
}

func TestRespondError(t *testing.T) {
	var resp *httptest.ResponseRecorder

	tests := []struct {
		name           string
		httpStatusCode int
		apiErr         *Error
		useLogger      bool
	}{
		{
			name:           "Without logging",
			httpStatusCode: http.StatusInternalServerError,
			apiErr:         NewInternalError("serviceA"),
			useLogger:      false,
		},
		{
			name:           "With logging",
			httpStatusCode: http.StatusInternalServerError,
			apiErr:         NewError("serviceB", "errCode", "Error message."),
			useLogger:      true,
		},
		{
			name:           "With logging and context",
			httpStatusCode: http.StatusBadRequest,
			apiErr:         NewError("serviceC", "errCode", "Error message.").AddContext("err", "json validation error"),
			useLogger:      true,
		},
	}
	runTests := func() {
		for i := range tests {
			tt := tests[i]
			t.Run(tt.name, func(t *testing.T) {
				MustInitAndRegisterMetrics("")
				defer UnregisterMetrics()

				var logger log.FieldLogger
				if tt.useLogger {
					logger = logtest.NewRecorder()
				}
				resp = httptest.NewRecorder()
				RespondError(resp, tt.httpStatusCode, tt.apiErr, logger)

				testutil.RequireErrorInRecorder(t, resp, tt.httpStatusCode, tt.apiErr.Domain, tt.apiErr.Code)

				if logger != nil {
					logRecorder := logger.(*logtest.Recorder)
					require.Equal(t, 1, len(logRecorder.Entries()))
					logEntry := logRecorder.Entries()[0]
					wantLevel := log.LevelWarn
					if tt.httpStatusCode >= http.StatusInternalServerError {
						wantLevel = log.LevelError
					}
					require.Equal(t, wantLevel, logEntry.Level)
					logField, found := logEntry.FindField("error_code")
					require.True(t, found)
					require.Equal(t, tt.apiErr.Code, string(logField.Bytes))

					if tt.apiErr.Context != nil {
						logField, found = logEntry.FindField("error_context")
						require.True(t, found)
						toStrings := func(m map[string]interface{}) []string {
							var res []string
							for k, v := range m {
								res = append(res, fmt.Sprintf("%s: %v", k, v))
							}
							return res
						}

						// This function is needed because we don't have access
						// to underlying type of logf slice of strings (logf.stringArray)
						fromInternalStrArray := func(s interface{}) []string {
							var res []string
							value := reflect.ValueOf(s)
							if value.Kind() != reflect.Slice {
								t.Errorf("expected slice, got %v", value.Kind())
							}
							for i := 0; i < value.Len(); i++ {
								elem := value.Index(i)
								if elem.Kind() != reflect.String {
									t.Errorf("expected string, got %v", elem.Kind())
								}
								// Now you can work with each string element
								res = append(res, elem.String())
							}
							return res
						}

						require.Equal(t, toStrings(tt.apiErr.Context), fromInternalStrArray(logField.Any))
					}
				}

				labels := prometheus.Labels{
					metricsLabelResponseErrorDomain: tt.apiErr.Domain,
					metricsLabelResponseErrorCode:   tt.apiErr.Code,
					metricsLabelResponseStatus:      strconv.Itoa(tt.httpStatusCode),
				}
				testutil.RequireCounterVecValue(t, metricsResponseErrors, labels, 1)
			})
		}
	}

	runTests()
}

func TestRespondInternalError(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondInternalError(resp, testDomain, nil)
	testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, testDomain, "internalError")
}

func TestRespondCodeAndJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	logger := logtest.NewRecorder()
	// Test case 1: Valid response data
	data := map[string]string{"message": "Hello, World!"}
	RespondCodeAndJSON(rr, http.StatusOK, data, logger)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, ContentTypeAppJSON, rr.Header().Get("Content-Type"))
	var respData map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &respData)
	require.NoError(t, err)
	require.Equal(t, data, respData)

	// Test case 2: Nil response data, body should be empty and have no content type
	rr = httptest.NewRecorder()
	RespondCodeAndJSON(rr, http.StatusNoContent, nil, logger)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "", rr.Header().Get("Content-Type"))
	require.Empty(t, rr.Body.String())

	// Test case 3: Error while marshaling JSON
	rr = httptest.NewRecorder()
	invalidData := make(chan int)
	RespondCodeAndJSON(rr, http.StatusOK, invalidData, logger)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, ContentTypeAppJSON, rr.Header().Get("Content-Type"))
	require.Empty(t, rr.Body.String())
}

func TestRespondDetail(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondDetail(resp, "Object restored successfully.", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	testutil.RequireStringJSONInRecorder(t, resp, `{"detail":"Object restored successfully."}`)
}

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantTitle  string
		wantMsg    string
	}{
		{
			name:       "http error",
			err:        fmt.Errorf("restore: %w", NewBadRequestError("Object Not Deleted", "Object is not deleted.")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "badRequest",
			wantTitle:  "Object Not Deleted",
			wantMsg:    "Object is not deleted.",
		},
		{
			name:       "forbidden",
			err:        NewForbiddenError("Restore Not Allowed", "You do not have permission to perform this action."),
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
			wantTitle:  "Restore Not Allowed",
			wantMsg:    "You do not have permission to perform this action.",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("get: %w", softdelete.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
			wantTitle:  "Not Found",
			wantMsg:    ErrMessageNotFound,
		},
		{
			name:       "locked",
			err:        fmt.Errorf("delete: %w", softdelete.ErrLocked),
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeLocked,
			wantTitle:  "Object Locked",
			wantMsg:    ErrMessageLocked,
		},
		{
			name:       "duplicate",
			err:        &softdelete.DuplicateValueError{Field: "email", Value: "a@b.c"},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeDuplicate,
			wantTitle:  "Duplicate Value",
			wantMsg:    "a@b.c already exists.",
		},
		{
			name:       "duplicate in trash",
			err:        &softdelete.DuplicateValueError{Field: "email", Value: "a@b.c", InTrash: true},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeDuplicateInTrash,
			wantTitle:  "Duplicate Value In Trash",
			wantMsg:    "a@b.c already exists in trash. Please restore and use it.",
		},
		{
			name:       "nothing to restore",
			err:        softdelete.ErrNothingToRestore,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeNothingToRestore,
			wantTitle:  "No Deleted Objects",
			wantMsg:    ErrMessageNothingToRestore,
		},
		{
			name:       "unexpected",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
			wantMsg:    ErrMessageInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			logger := logtest.NewRecorder()
			RespondDomainError(resp, testDomain, tt.err, logger)

			require.Equal(t, tt.wantStatus, resp.Code)
			var body ErrorResponseData
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			require.Equal(t, testDomain, body.Err.Domain)
			require.Equal(t, tt.wantCode, body.Err.Code)
			require.Equal(t, tt.wantTitle, body.Err.Title)
			require.Equal(t, tt.wantMsg, body.Err.Message)

			_, found := logger.FindEntry("unexpected error")
			require.Equal(t, tt.wantStatus == http.StatusInternalServerError, found)
		})
	}
}

func TestResponseErrorsMetrics(t *testing.T) {
	MustInitAndRegisterMetrics("")
	defer UnregisterMetrics()

	for i := 0; i < 2; i++ {
		RespondError(httptest.NewRecorder(), http.StatusTooManyRequests, NewThrottledError(testDomain, 30*time.Second), nil)
	}
	RespondDomainError(httptest.NewRecorder(), testDomain, softdelete.ErrNotFound, nil)

	throttled := NewThrottledError(testDomain, time.Second)
	testutil.RequireCounterVecValue(t, metricsResponseErrors, prometheus.Labels{
		metricsLabelResponseErrorDomain: testDomain,
		metricsLabelResponseErrorCode:   throttled.Code,
		metricsLabelResponseStatus:      "429",
	}, 2)
	testutil.RequireCounterVecValue(t, metricsResponseErrors, prometheus.Labels{
		metricsLabelResponseErrorDomain: testDomain,
		metricsLabelResponseErrorCode:   ErrCodeNotFound,
		metricsLabelResponseStatus:      "404",
	}, 1)

	UnregisterMetrics()
	require.Nil(t, metricsResponseErrors)
	require.NotPanics(t, func() {
		RespondError(httptest.NewRecorder(), http.StatusTooManyRequests, NewThrottledError(testDomain, time.Second), nil)
	})
}
