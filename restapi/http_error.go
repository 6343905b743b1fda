/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package restapi

import (
	"fmt"
	"math"
	"net/http"
	"time"
)

// HTTPError is an error raised by a handler that carries its own HTTP status.
// RespondDomainError writes it as is.
type HTTPError struct {
	Status int
	Code   string
	Title  string
	Detail string
}

func (e *HTTPError) Error() string {
	return e.Detail
}

// NewHTTPError creates a new HTTPError. The code is derived from the status ("badRequest", "notFound", ...).
func NewHTTPError(status int, title, detail string) *HTTPError {
	return &HTTPError{Status: status, Code: httpCode2ErrorCode(status), Title: title, Detail: detail}
}

// NewBadRequestError creates a new HTTPError with 400 status.
func NewBadRequestError(title, detail string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, title, detail)
}

// NewUnauthorizedError creates a new HTTPError with 401 status.
func NewUnauthorizedError(title, detail string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, title, detail)
}

// NewForbiddenError creates a new HTTPError with 403 status.
func NewForbiddenError(title, detail string) *HTTPError {
	return NewHTTPError(http.StatusForbidden, title, detail)
}

// NewNotFoundError creates a new HTTPError with 404 status.
func NewNotFoundError(title, detail string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, title, detail)
}

// ToError converts the error into the response error of the domain.
func (e *HTTPError) ToError(domain string) *Error {
	return NewError(domain, e.Code, e.Detail).WithTitle(e.Title)
}

// ThrottledMessage returns the message for a throttled request, with the wait rounded up to whole seconds.
func ThrottledMessage(wait time.Duration) string {
	secs := int64(math.Ceil(wait.Seconds()))
	if secs == 1 {
		return "Too many attempts. Please try again after 1 second."
	}
	return fmt.Sprintf("Too many attempts. Please try again after %d seconds.", secs)
}

// NewThrottledError creates the error answered with 429 status.
func NewThrottledError(domain string, wait time.Duration) *Error {
	return NewError(domain, ErrCodeTooManyRequests, ThrottledMessage(wait)).WithTitle("Request Throttled")
}
