package tool

import (
	"errors"
	"fmt"
)

// ErrorCode classifies registration and invocation failures so callers
// can react to the class of failure instead of parsing messages.
type ErrorCode string

const (
	ErrUnknownTool          ErrorCode = "UNKNOWN_TOOL"
	ErrDuplicateToolID      ErrorCode = "DUPLICATE_TOOL_ID"
	ErrInvalidDefinition    ErrorCode = "INVALID_DEFINITION"
	ErrMissingRequiredParam ErrorCode = "MISSING_REQUIRED_PARAMETER"
	ErrTypeMismatch         ErrorCode = "TYPE_MISMATCH"
	ErrUnknownParameter     ErrorCode = "UNKNOWN_PARAMETER"
	ErrAudienceMismatch     ErrorCode = "AUDIENCE_MISMATCH"
	ErrPermissionDenied     ErrorCode = "PERMISSION_DENIED"
	ErrConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED"
	ErrHandlerError         ErrorCode = "HANDLER_ERROR"
	ErrInvocationTimeout    ErrorCode = "INVOCATION_TIMEOUT"
)

// Error is a classified tool error. Detail carries structured context
// such as the offending parameter or the permission that was missing.
type Error struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
	cause   error
}

// NewError builds a classified error.
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetail attaches one structured detail field.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Detail == nil {
		e.Detail = make(map[string]interface{})
	}
	e.Detail[key] = value
	return e
}

// WithCause records the underlying error for errors.Is/As chains.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// CodeOf extracts the ErrorCode carried by err, or "" when err is nil
// or unclassified.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsCode checks if err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// toError coerces any error into a classified one. Unclassified errors
// are treated as handler failures.
func toError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return NewError(ErrHandlerError, "%v", err).WithCause(err)
}
