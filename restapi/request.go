/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"code.cloudfoundry.org/bytefmt"
)

// NewRequestTooLargeError creates the HTTPError of 413 status for a body larger than maxSizeBytes.
func NewRequestTooLargeError(maxSizeBytes uint64) *HTTPError {
	return NewHTTPError(http.StatusRequestEntityTooLarge, "Request Too Large",
		fmt.Sprintf("Request body must not be larger than %s.", bytefmt.ByteSize(maxSizeBytes)))
}

func newMalformedRequestError(detail string) *HTTPError {
	return NewBadRequestError("Malformed Request", detail)
}

// DecodeRequestJSONStrict reads the request body and decodes it as a single JSON value into dst.
// Failures are returned as *HTTPError (400, 413 or 415), ready for RespondDomainError.
func DecodeRequestJSONStrict(r *http.Request, dst interface{}, disallowUnknownFields bool) error {
	if reqContentType := r.Header.Get("Content-Type"); reqContentType != "" {
		contentType, _, err := mime.ParseMediaType(reqContentType)
		if err != nil {
			return NewHTTPError(http.StatusUnsupportedMediaType, "Unsupported Media Type",
				fmt.Sprintf("Failed to parse Content-Type header: %s.", err))
		}
		if contentType != ContentTypeAppJSON {
			return NewHTTPError(http.StatusUnsupportedMediaType, "Unsupported Media Type",
				fmt.Sprintf("Content-Type %q is not supported.", contentType))
		}
	}

	decoder := json.NewDecoder(r.Body)
	if disallowUnknownFields {
		decoder.DisallowUnknownFields()
	}
	return decodeRequest(decoder, dst)
}

// DecodeRequestJSON is DecodeRequestJSONStrict that accepts unknown fields.
func DecodeRequestJSON(r *http.Request, dst interface{}) error {
	return DecodeRequestJSONStrict(r, dst, false)
}

func decodeRequest(decoder *json.Decoder, dst interface{}) error {
	if err := decoder.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var unmarshalTypeErr *json.UnmarshalTypeError
		var maxBytesErr *http.MaxBytesError

		switch {
		case errors.Is(err, io.EOF):
			return newMalformedRequestError("Request body must not be empty.")
		case errors.Is(err, io.ErrUnexpectedEOF):
			return newMalformedRequestError("Request body contains badly-formed JSON.")
		case errors.As(err, &syntaxErr):
			return newMalformedRequestError(
				fmt.Sprintf("Request body contains badly-formed JSON (at position %d).", syntaxErr.Offset))
		case errors.As(err, &unmarshalTypeErr):
			if unmarshalTypeErr.Field != "" {
				return newMalformedRequestError(fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d).",
					unmarshalTypeErr.Field, unmarshalTypeErr.Offset))
			}
			return newMalformedRequestError(fmt.Sprintf("Request body contains an invalid value of type %q for the field of type %s.",
				unmarshalTypeErr.Value, unmarshalTypeErr.Type.String()))
		case errors.As(err, &maxBytesErr):
			return NewRequestTooLargeError(uint64(maxBytesErr.Limit))
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			return newMalformedRequestError("Payload does not match the scheme.")
		default:
			return err
		}
	}

	// Decoder is designed to decode streams of JSON objects, but only one is expected.
	if decoder.More() {
		return newMalformedRequestError("Request body must only contain a single JSON object.")
	}
	return nil
}
