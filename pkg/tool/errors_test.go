package tool

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := NewError(ErrUnknownTool, "tool %q is not registered", "web.fetch")

	assert.Equal(t, `UNKNOWN_TOOL: tool "web.fetch" is not registered`, err.Error())
	assert.Equal(t, "UNKNOWN_TOOL", string(CodeOf(err)))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ErrHandlerError, "tool failed").WithCause(cause)

	assert.True(t, errors.Is(err, cause))
}

func TestError_WithDetail(t *testing.T) {
	err := NewError(ErrMissingRequiredParam, "missing").
		WithDetail("parameter", "url").
		WithDetail("tool", "web.fetch")

	assert.Equal(t, "url", err.Detail["parameter"])
	assert.Equal(t, "web.fetch", err.Detail["tool"])
}

func TestCodeOf_WrappedError(t *testing.T) {
	inner := NewError(ErrPermissionDenied, "no grant")
	wrapped := fmt.Errorf("invoking: %w", inner)

	assert.Equal(t, ErrPermissionDenied, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ErrPermissionDenied))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestToError_Classification(t *testing.T) {
	classified := NewError(ErrTypeMismatch, "bad type")
	assert.Same(t, classified, toError(classified))

	plain := errors.New("some failure")
	coerced := toError(plain)
	assert.Equal(t, ErrHandlerError, coerced.Code)
	assert.True(t, errors.Is(coerced, plain))
}
