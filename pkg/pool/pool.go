// Package pool provides unified high-performance object pooling for Quasar.
// It offers zero-allocation memory management with automatic object recycling,
// reducing garbage collection pressure on hot export paths.
//
// The package provides:
//   - Generic type-safe object pooling with Pool[T]
//   - Byte-slice pooling with size-based buckets (BytePool), used by the
//     pooled device allocator
//   - Statistics for monitoring pool efficiency
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and automatic reset
// functionality. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty and a new object is
// needed. The reset function, if non-nil, is called before returning an
// object to the pool.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse, resetting it first if a
// reset function was configured.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits)
}

// minBucketBits is the smallest bucket size class (1<<minBucketBits bytes).
const minBucketBits = 6

// numBuckets covers size classes from 64B up to 1GB.
const numBuckets = 25

// BytePool pools byte slices in power-of-two size buckets. Slices are
// returned at their requested length but retain bucket-sized capacity, so
// repeated allocations of similar sizes recycle the same backing arrays.
type BytePool struct {
	buckets [numBuckets]*Pool[*[]byte]
}

// NewBytePool creates a byte pool with empty buckets.
func NewBytePool() *BytePool {
	bp := &BytePool{}
	for i := range bp.buckets {
		size := 1 << (minBucketBits + i)
		bp.buckets[i] = New(
			func() *[]byte {
				b := make([]byte, 0, size)
				return &b
			},
			func(b *[]byte) { *b = (*b)[:0] },
		)
	}
	return bp
}

// bucketFor returns the bucket index for a requested size, or -1 when the
// size is out of the pooled range.
func bucketFor(size int) int {
	if size <= 0 {
		return -1
	}
	for i := 0; i < numBuckets; i++ {
		if size <= 1<<(minBucketBits+i) {
			return i
		}
	}
	return -1
}

// Get returns a zeroed byte slice of exactly the requested length.
func (bp *BytePool) Get(size int) []byte {
	idx := bucketFor(size)
	if idx < 0 {
		return make([]byte, size)
	}
	b := bp.buckets[idx].Get()
	buf := (*b)[:size]
	for i := range buf {
		buf[i] = 0
	}
	// the pointer wrapper is recreated on Put; drop it here
	return buf
}

// Put returns a slice obtained from Get to its bucket. Slices whose
// capacity does not match a bucket are dropped for the GC to collect.
func (bp *BytePool) Put(buf []byte) {
	idx := bucketFor(cap(buf))
	if idx < 0 || cap(buf) != 1<<(minBucketBits+idx) {
		return
	}
	b := buf[:0]
	bp.buckets[idx].Put(&b)
}
