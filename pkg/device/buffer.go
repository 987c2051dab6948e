package device

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

// Buffer is an exclusively-owned device allocation. Unlike reference-counted
// host buffers, a Buffer has exactly one owner at any time; ownership moves
// by handing the *Buffer over, and only the final owner frees it.
type Buffer struct {
	data  []byte
	mr    memory.Allocator
	freed atomic.Bool
}

// NewBuffer allocates size bytes from the allocator. A zero-size request
// yields a valid empty buffer without touching the allocator. Allocation
// failure is a resource error; it is never retried.
func NewBuffer(size int64, mr memory.Allocator) (*Buffer, error) {
	if mr == nil {
		mr = memory.DefaultAllocator
	}
	if size == 0 {
		return &Buffer{mr: mr}, nil
	}
	data := mr.Allocate(int(size))
	if data == nil {
		return nil, errors.Newf(errors.ErrorTypeResource, "device allocation of %d bytes failed", size)
	}
	return &Buffer{data: data, mr: mr}, nil
}

// NewBufferFromBytes allocates a buffer and copies src into it.
func NewBufferFromBytes(src []byte, mr memory.Allocator) (*Buffer, error) {
	b, err := NewBuffer(int64(len(src)), mr)
	if err != nil {
		return nil, err
	}
	copy(b.data, src)
	return b, nil
}

// Bytes returns the buffer contents. The slice is invalidated by Free.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the buffer size in bytes.
func (b *Buffer) Len() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.data))
}

// Free returns the allocation to the allocator. Safe to call on nil and
// idempotent; only the first call frees.
func (b *Buffer) Free() {
	if b == nil || !b.freed.CompareAndSwap(false, true) {
		return
	}
	if b.data != nil {
		b.mr.Free(b.data)
		b.data = nil
	}
}
