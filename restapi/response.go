/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package restapi writes JSON responses and errors of the REST API.
package restapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/softdelete"
)

// ContentTypeAppJSON represents MIME media type for JSON.
const ContentTypeAppJSON = "application/json"

// Does JSON marshaling with disabled HTML escaping
func jsonMarshal(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(v)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes()[:buffer.Len()-1], nil
}

// RespondJSON sends response with 200 HTTP status code, does JSON marshaling of data and writes result in response's body.
func RespondJSON(rw http.ResponseWriter, respData interface{}, logger log.FieldLogger) {
	RespondCodeAndJSON(rw, http.StatusOK, respData, logger)
}

// RespondCodeAndJSON sends a response with the passed status code and sets the "Content-Type"
// to "application/json" if it's not already set. It performs JSON marshaling of the data and
// writes the result to the response's body.
func RespondCodeAndJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if respData == nil {
		rw.WriteHeader(statusCode)
		return
	}

	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", ContentTypeAppJSON)
	}

	respJSON, err := jsonMarshal(respData)
	if err != nil {
		if logger != nil {
			logger.Error("error while marshaling json for response body", log.Error(err))
		}
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(statusCode)
	if _, err = rw.Write(respJSON); err != nil {
		if logger != nil {
			logger.Error("error while writing response body", log.Error(err))
		}
	}
}

// DetailResponseData is the body of successful action responses.
type DetailResponseData struct {
	Detail string `json:"detail"`
}

// RespondDetail sends response with 200 HTTP status code and {"detail": "..."} body.
func RespondDetail(rw http.ResponseWriter, detail string, logger log.FieldLogger) {
	RespondJSON(rw, DetailResponseData{Detail: detail}, logger)
}

// ErrorResponseData is used for answer on requests with error
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

func (e *ErrorResponseData) Error() string {
	return fmt.Sprintf("HTTP error occurs: %v", e.Err)
}

// RespondError sets HTTP status code in response and writes error in body in JSON format
// ({"error": {"domain": "{domain}", "code": "{code}", ...}}).
// Also, it logs info (code and message) about error.
func RespondError(rw http.ResponseWriter, httpStatusCode int, err *Error, logger log.FieldLogger) {
	logAndCollectMetricsForErrorIfNeeded(httpStatusCode, err, logger)
	RespondCodeAndJSON(rw, httpStatusCode, ErrorResponseData{err}, logger)
}

// RespondInternalError sends response with 500 HTTP status code and internal error in body in JSON format.
func RespondInternalError(rw http.ResponseWriter, domain string, logger log.FieldLogger) {
	RespondError(rw, http.StatusInternalServerError, NewInternalError(domain), logger)
}

// RespondDomainError maps err to an HTTP status and writes it:
// *HTTPError keeps its own status, not found is 404, a locked object is 409,
// duplicates and an empty trash are 400. Anything else is logged and answered with 500.
func RespondDomainError(rw http.ResponseWriter, domain string, err error, logger log.FieldLogger) {
	status, apiErr := DomainErrorToError(domain, err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("unexpected error", log.Error(err))
	}
	RespondError(rw, status, apiErr, logger)
}

// DomainErrorToError is the mapping used by RespondDomainError.
func DomainErrorToError(domain string, err error) (int, *Error) {
	var httpErr *HTTPError
	var dupErr *softdelete.DuplicateValueError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status, httpErr.ToError(domain)
	case errors.Is(err, softdelete.ErrNotFound):
		return http.StatusNotFound, NewError(domain, ErrCodeNotFound, ErrMessageNotFound).WithTitle("Not Found")
	case errors.Is(err, softdelete.ErrLocked):
		return http.StatusConflict, NewError(domain, ErrCodeLocked, ErrMessageLocked).WithTitle("Object Locked")
	case errors.As(err, &dupErr):
		apiErr := NewError(domain, ErrCodeDuplicate, dupErr.Error()).WithTitle("Duplicate Value")
		if dupErr.InTrash {
			apiErr = NewError(domain, ErrCodeDuplicateInTrash, dupErr.Error()).WithTitle("Duplicate Value In Trash")
		}
		return http.StatusBadRequest, apiErr.AddContext("field", dupErr.Field)
	case errors.Is(err, softdelete.ErrNothingToRestore):
		return http.StatusBadRequest,
			NewError(domain, ErrCodeNothingToRestore, ErrMessageNothingToRestore).WithTitle("No Deleted Objects")
	default:
		return http.StatusInternalServerError, NewInternalError(domain)
	}
}

func logAndCollectMetricsForErrorIfNeeded(httpStatusCode int, err *Error, logger log.FieldLogger) {
	if logger != nil {
		flds := []log.Field{log.String("error_code", err.Code), log.String("error_message", err.Message)}
		if err.Context != nil {
			ctxLines := make([]string, 0, len(err.Context))
			for k, v := range err.Context {
				ctxLines = append(ctxLines, fmt.Sprintf("%s: %v", k, v))
			}
			flds = append(flds, log.Strings("error_context", ctxLines))
		}
		if httpStatusCode >= http.StatusInternalServerError {
			logger.Error("error in response", flds...)
		} else {
			logger.Warn("error in response", flds...)
		}
	}
	countResponseError(httpStatusCode, err)
}
