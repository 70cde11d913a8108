package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndIsType(t *testing.T) {
	err := New(ErrorTypeParse, "unterminated quote")
	assert.Equal(t, "parse: unterminated quote", err.Error())
	assert.True(t, IsType(err, ErrorTypeParse))
	assert.False(t, IsType(err, ErrorTypeConfig))
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("read failed")
	err := Wrap(cause, ErrorTypeFile, "cannot load input")

	assert.True(t, IsType(err, ErrorTypeFile))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "read failed")

	assert.Nil(t, Wrap(nil, ErrorTypeFile, "no-op"))
}

func TestIsTypeThroughWrapping(t *testing.T) {
	inner := New(ErrorTypeRange, "value out of range")
	outer := fmt.Errorf("column amount: %w", inner)
	assert.True(t, IsType(outer, ErrorTypeRange))

	rewrapped := Wrap(inner, ErrorTypeParse, "row rejected")
	assert.True(t, IsType(rewrapped, ErrorTypeParse))
	var e *Error
	require.True(t, stderrors.As(rewrapped.Unwrap(), &e))
	assert.Equal(t, ErrorTypeRange, e.Type)
}

func TestWithFieldDetails(t *testing.T) {
	err := New(ErrorTypeParse, "bad field").WithField(12, 3, "x\"y")
	assert.Equal(t, 12, err.Details["row"])
	assert.Equal(t, 3, err.Details["column"])
	assert.Equal(t, "x\"y", err.Details["raw"])
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrorTypeParse, "x")))
	assert.True(t, IsFatal(New(ErrorTypeConfig, "x")))
	assert.True(t, IsFatal(New(ErrorTypeInternal, "x")))
	assert.False(t, IsFatal(New(ErrorTypeData, "x")))
	assert.False(t, IsFatal(New(ErrorTypeRange, "x")))
	assert.True(t, IsFatal(stderrors.New("plain")))
	assert.False(t, IsFatal(nil))
}
