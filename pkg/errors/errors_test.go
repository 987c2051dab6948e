package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrorTypeResource, "allocation failed")
	assert.Equal(t, ErrorTypeResource, err.Type)
	assert.Equal(t, "resource: allocation failed", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeValidation, "got %d buffers, want %d", 1, 2)
	assert.Equal(t, "validation: got 1 buffers, want 2", err.Error())
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("queue closed")
	err := Wrap(cause, ErrorTypeSync, "failed to enqueue")
	require.NotNil(t, err)
	assert.Equal(t, ErrorTypeSync, err.Type)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, "sync: failed to enqueue: queue closed", err.Error())

	assert.Nil(t, Wrap(nil, ErrorTypeSync, "nothing"))
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeResource, "oom")
	outer := Wrap(inner, ErrorTypeInternal, "export failed")
	assert.Equal(t, inner.Stack, outer.Stack)
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeTypeIncompatible, "no interchange form")
	assert.True(t, IsType(err, ErrorTypeTypeIncompatible))
	assert.False(t, IsType(err, ErrorTypeResource))

	wrapped := fmt.Errorf("context: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeTypeIncompatible))

	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeInternal))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeData, TypeOf(New(ErrorTypeData, "bad offsets")))
	assert.Equal(t, ErrorTypeInternal, TypeOf(fmt.Errorf("plain")))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeValidation, "bad tree").
		WithDetail("length", int64(5)).
		WithDetail("slot", 1)
	assert.Equal(t, int64(5), err.Details["length"])
	assert.Equal(t, 1, err.Details["slot"])
}
