package device

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/pool"
)

// PooledAllocator is a memory.Allocator served from size-bucketed slice
// pools. It recycles backing arrays across exports, which matters for the
// small transient allocations the export path makes (bitmask packing,
// placeholder offsets).
type PooledAllocator struct {
	buckets   *pool.BytePool
	allocated atomic.Int64
}

var _ memory.Allocator = (*PooledAllocator)(nil)

// NewPooledAllocator creates a pooled allocator with empty buckets.
func NewPooledAllocator() *PooledAllocator {
	return &PooledAllocator{buckets: pool.NewBytePool()}
}

// Allocate returns a zeroed slice of exactly size bytes.
func (a *PooledAllocator) Allocate(size int) []byte {
	if size == 0 {
		return nil
	}
	a.allocated.Add(int64(size))
	return a.buckets.Get(size)
}

// Reallocate grows or shrinks b to size, preserving contents.
func (a *PooledAllocator) Reallocate(size int, b []byte) []byte {
	if size == len(b) {
		return b
	}
	nb := a.Allocate(size)
	copy(nb, b)
	a.Free(b)
	return nb
}

// Free returns b to its bucket.
func (a *PooledAllocator) Free(b []byte) {
	if b == nil {
		return
	}
	a.allocated.Add(int64(-len(b)))
	a.buckets.Put(b)
}

// AllocatedBytes returns the net outstanding allocation size.
func (a *PooledAllocator) AllocatedBytes() int64 {
	return a.allocated.Load()
}
