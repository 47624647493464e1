package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, machine-readable error code returned to clients
type Code string

const (
	CodeUnauthorizedOrigin  Code = "UNAUTHORIZED_ORIGIN"
	CodeAuthRequired        Code = "AUTH_REQUIRED"
	CodeInvalidAPIKey       Code = "INVALID_API_KEY"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeURLRequired         Code = "URL_REQUIRED"
	CodeInvalidInstagramURL Code = "INVALID_INSTAGRAM_URL"
	CodeNoMediaFound        Code = "NO_MEDIA_FOUND"
	CodeFetchFailed         Code = "FETCH_FAILED"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeMethodNotAllowed    Code = "METHOD_NOT_ALLOWED"
)

// Error represents a request failure with the code and HTTP status it maps to
type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (status %d): %s: %v", e.Code, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error whose status is derived from the code
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  StatusFor(code),
	}
}

// Wrap creates an Error that keeps the underlying cause for logging
func Wrap(code Code, message string, err error) *Error {
	e := New(code, message)
	e.Err = err
	return e
}

// StatusFor returns the HTTP status code for an error code
func StatusFor(code Code) int {
	switch code {
	case CodeUnauthorizedOrigin:
		return http.StatusForbidden
	case CodeAuthRequired, CodeInvalidAPIKey:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeURLRequired, CodeInvalidInstagramURL:
		return http.StatusBadRequest
	case CodeNoMediaFound, CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		// FETCH_FAILED, INTERNAL_ERROR and anything unknown
		return http.StatusInternalServerError
	}
}

// From converts any error into an *Error. Errors that are not already
// classified become INTERNAL_ERROR.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Wrap(CodeInternal, "An unexpected error occurred", err)
}

// CodeOf returns the code carried by err, or "" if err is not classified
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
