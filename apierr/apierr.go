package apierr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Code is the closed set of machine-readable error codes the service emits.
// The calling UI branches on these, so they are part of the wire contract.
type Code string

const (
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeMissingURL         Code = "MISSING_URL"
	CodeDownloadFailed     Code = "DOWNLOAD_FAILED"
	CodeEmptyAudio         Code = "EMPTY_AUDIO"
	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeFileTooLarge       Code = "FILE_TOO_LARGE"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeDecodeError        Code = "DECODE_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeServiceError       Code = "SERVICE_ERROR"
	CodeTimeout            Code = "TIMEOUT"
	CodeUnexpected         Code = "UNEXPECTED"
)

// HTTPStatus maps an error code to the response status class.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeMissingURL, CodeDownloadFailed, CodeEmptyAudio, CodeInvalidFormat,
		CodeFileTooLarge, CodeDecodeError:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeServiceError:
		return http.StatusBadGateway
	case CodeUnexpected:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a user-facing message plus the stable code the UI keys on.
// Details holds structured context (e.g. supported_formats); Suggestion is a
// human hint about what to do next.
type Error struct {
	Code       Code
	Message    string
	Details    map[string]any
	Suggestion string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// From extracts the taxonomy error from err, falling back to UNEXPECTED so
// the HTTP layer always has a code and status to work with.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Wrap(err, CodeUnexpected, "unexpected error")
}

// CodeOf is a convenience for branching on a possibly-wrapped error.
func CodeOf(err error) Code {
	return From(err).Code
}
