// Package errorx carries business error codes through the service layer.
package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

// CodeError is an error with a business code.
// It supports %w style wrapping and works with errors.Is/errors.As.
type CodeError struct {
	Code  int    // business code
	Msg   string // message shown to the caller
	cause error  // wrapped error, never shown to the caller
}

// Error returns "msg: cause" when a cause is present, otherwise msg
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap exposes the wrapped error to errors.Is/errors.As
func (e *CodeError) Unwrap() error {
	return e.cause
}

// New creates a CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

// Newf creates a CodeError with a formatted message
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a business code and message to err.
// Usage: errorx.Wrap(err, CodeDBError, "failed to load donation")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg, cause: err}
}

// Wrapf is Wrap with a formatted message
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...), cause: err}
}

// GetCode extracts the business code, defaulting to CodeServerBusy
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// Is reports whether err carries the given business code
func Is(err error, code int) bool {
	var codeErr *CodeError
	return errors.As(err, &codeErr) && codeErr.Code == code
}

// Message returns the caller-facing message of err.
// Errors without a code are reported as ErrServerBusy so internals do not leak.
func Message(err error) string {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Msg
	}
	return ErrServerBusy.Msg
}

// HTTPStatus maps the business code of err to an HTTP status
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeInvalidParam, CodeInvalidOperation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Business codes
const (
	CodeSuccess          = 1000
	CodeInvalidParam     = 1001 // malformed input
	CodeServerBusy       = 1005
	CodeUnauthorized     = 1006 // missing or bad credentials
	CodeForbidden        = 1007 // caller lacks authority over the target
	CodeNotFound         = 1008
	CodeInvalidOperation = 1009 // business rule violation
	CodeDBError          = 1010
)

var (
	ErrInvalidParam = New(CodeInvalidParam, "invalid request parameters")
	ErrServerBusy   = New(CodeServerBusy, "server busy, please try again later")
)
