package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CapturesStack(t *testing.T) {
	err := New(ErrorTypeInternal, "boom")

	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNew_CapturesStack")
	assert.Nil(t, err.Unwrap())
}

func TestWrap(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrorTypeInternal, "nothing"))
	})

	t.Run("standard error", func(t *testing.T) {
		err := Wrap(io.EOF, ErrorTypeFile, "read config")
		assert.True(t, stderrors.Is(err, io.EOF))
		assert.Equal(t, "file: read config: EOF", err.Error())
		assert.NotEmpty(t, err.Stack)
	})

	t.Run("preserves stack", func(t *testing.T) {
		inner := New(ErrorTypeValidation, "bad size")
		outer := Wrap(inner, ErrorTypeConfig, "load")
		assert.Equal(t, inner.Stack, outer.Stack)
		assert.True(t, IsType(outer, ErrorTypeConfig))
		assert.False(t, IsType(outer, ErrorTypeValidation))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrorTypeTimeout, "slow")))
	assert.True(t, IsRetryable(New(ErrorTypeExhausted, "busy")))
	assert.False(t, IsRetryable(New(ErrorTypeCompression, "corrupt")))
	assert.False(t, IsRetryable(io.EOF))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeConfig, "invalid").WithDetail("field", "size").WithDetail("value", -1)
	assert.Equal(t, map[string]interface{}{"field": "size", "value": -1}, err.Details)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeValidation, "size %d out of range", -1)

	assert.Equal(t, "validation: size -1 out of range", err.Error())
	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNewf")
}

func TestIsRetryable_Wrapped(t *testing.T) {
	exhausted := Wrap(io.ErrShortBuffer, ErrorTypeExhausted, "no free compressor")
	assert.True(t, IsRetryable(Wrap(exhausted, ErrorTypeExhausted, "compress")))
	assert.False(t, IsRetryable(Wrap(exhausted, ErrorTypeInternal, "batch")),
		"the outermost type decides")

	var e *Error
	require.True(t, As(exhausted, &e))
	assert.True(t, Is(exhausted, io.ErrShortBuffer))
}
