/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

type errorRespData struct {
	Domain  string `json:"domain"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wrappedErrorRespData struct {
	Error errorRespData `json:"error"`
}

// The recorder helpers read a copy of the recorded body, so the body may be inspected again after them.
func recordedBody(resp *httptest.ResponseRecorder) io.Reader {
	return bytes.NewReader(resp.Body.Bytes())
}

// RequireErrorInRecorder asserts that passing httptest.ResponseRecorder contains the error
// ({"error": {"domain": "{domain}", "code": "{code}", ...}}).
func RequireErrorInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireErrorInResponse(t, resp.Code, resp.Header(), recordedBody(resp), wantHTTPCode, wantErrDomain, wantErrCode)
}

// RequireErrorInResponse asserts that passing http.Response contains the error.
func RequireErrorInResponse(t require.TestingT, resp *http.Response, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireErrorInResponse(t, resp.StatusCode, resp.Header, resp.Body, wantHTTPCode, wantErrDomain, wantErrCode)
}

func requireErrorInResponse(
	t require.TestingT, code int, header http.Header, body io.Reader, wantHTTPCode int, wantErrDomain, wantErrCode string,
) errorRespData {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, wantHTTPCode, code)
	require.Equal(t, contentTypeAppJSON, header.Get("Content-Type"))
	var errResp wrappedErrorRespData
	require.NoError(t, json.NewDecoder(body).Decode(&errResp))
	require.Equal(t, wantErrDomain, errResp.Error.Domain)
	require.Equal(t, wantErrCode, errResp.Error.Code)
	return errResp.Error
}

// RequireThrottledInRecorder asserts that passing httptest.ResponseRecorder contains
// the "tooManyRequests" error of 429 status, the Retry-After header and the message telling when to try again.
func RequireThrottledInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantErrDomain string, wantRetryAfter int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireThrottledInResponse(t, resp.Code, resp.Header(), recordedBody(resp), wantErrDomain, wantRetryAfter)
}

// RequireThrottledInResponse asserts that passing http.Response contains the "tooManyRequests" error.
func RequireThrottledInResponse(t require.TestingT, resp *http.Response, wantErrDomain string, wantRetryAfter int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireThrottledInResponse(t, resp.StatusCode, resp.Header, resp.Body, wantErrDomain, wantRetryAfter)
}

func requireThrottledInResponse(
	t require.TestingT, code int, header http.Header, body io.Reader, wantErrDomain string, wantRetryAfter int,
) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	errResp := requireErrorInResponse(t, code, header, body, http.StatusTooManyRequests, wantErrDomain, "tooManyRequests")
	require.Equal(t, strconv.Itoa(wantRetryAfter), header.Get("Retry-After"))
	wantUnit := "seconds"
	if wantRetryAfter == 1 {
		wantUnit = "second"
	}
	require.Equal(t, "Too many attempts. Please try again after "+strconv.Itoa(wantRetryAfter)+" "+wantUnit+".", errResp.Message)
}

// RequireEmptyBodyInRecorder asserts that passing httptest.ResponseRecorder contains empty body.
func RequireEmptyBodyInRecorder(t require.TestingT, resp *httptest.ResponseRecorder) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireEmptyBodyInResponse(t, recordedBody(resp))
}

// RequireEmptyBodyInResponse asserts that passing http.Response contains empty body.
func RequireEmptyBodyInResponse(t require.TestingT, resp *http.Response) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireEmptyBodyInResponse(t, resp.Body)
}

func requireEmptyBodyInResponse(t require.TestingT, body io.Reader) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	bodyBytes, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Empty(t, bodyBytes)
}

// RequireJSONInRecorder asserts that passing httptest.ResponseRecorder contains the data in json format.
// The body is decoded into dest, which is compared with want.
func RequireJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireJSONInResponse(t, resp.Header(), recordedBody(resp), want, dest)
}

// RequireJSONInResponse asserts that passing http.Response contains the data in json format.
func RequireJSONInResponse(t require.TestingT, resp *http.Response, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireJSONInResponse(t, resp.Header, resp.Body, want, dest)
}

func requireJSONInResponse(t require.TestingT, header http.Header, body io.Reader, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, contentTypeAppJSON, header.Get("Content-Type"))
	bodyBytes, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(bodyBytes, dest))
	require.Equal(t, want, dest)
}

// RequireStringJSONInRecorder asserts that passing httptest.ResponseRecorder contains exactly the json string.
func RequireStringJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, want string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireStringJSONInResponse(t, resp.Header(), recordedBody(resp), want)
}

// RequireStringJSONInResponse asserts that passing http.Response contains exactly the json string.
func RequireStringJSONInResponse(t require.TestingT, resp *http.Response, want string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireStringJSONInResponse(t, resp.Header, resp.Body, want)
}

func requireStringJSONInResponse(t require.TestingT, header http.Header, body io.Reader, want string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, contentTypeAppJSON, header.Get("Content-Type"))
	bodyBytes, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, want, string(bodyBytes))
}
