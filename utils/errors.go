package utils

import (
	"fmt"
	"net/http"
)

// APIError carries the HTTP status and client-facing message for a failed
// request. Err keeps the underlying cause for logging.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

func NewError(status int, msg string) *APIError {
	return &APIError{Status: status, Message: msg}
}

func BadRequest(msg string) *APIError   { return NewError(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *APIError { return NewError(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *APIError    { return NewError(http.StatusForbidden, msg) }
func NotFound(msg string) *APIError     { return NewError(http.StatusNotFound, msg) }
func Conflict(msg string) *APIError     { return NewError(http.StatusConflict, msg) }

// Internal wraps an unexpected failure; the cause is logged, never sent.
func Internal(msg string, err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: msg, Err: err}
}
