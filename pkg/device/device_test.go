package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

func TestStreamRunsInSubmissionOrder(t *testing.T) {
	st := NewStream(TypeCUDA, 0)
	defer st.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, st.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	require.NoError(t, st.Synchronize())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 100)
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestNilStreamIsSynchronous(t *testing.T) {
	var st *Stream
	ran := false
	require.NoError(t, st.Submit(func() { ran = true }))
	assert.True(t, ran)
	assert.Equal(t, TypeCPU, st.DeviceType())
	assert.Equal(t, ID(0), st.DeviceID())
	require.NoError(t, st.Synchronize())
	st.Close()
}

func TestSubmitOnClosedStream(t *testing.T) {
	st := NewStream(TypeCUDA, 1)
	st.Close()
	st.Close()

	err := st.Submit(func() {})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSync))
}

func TestEventSignaledAfterPriorWork(t *testing.T) {
	st := NewStream(TypeCUDA, 0)
	defer st.Close()

	release := make(chan struct{})
	done := false
	require.NoError(t, st.Submit(func() {
		<-release
		done = true
	}))

	e, err := Record(st)
	require.NoError(t, err)
	assert.False(t, e.Signaled())

	close(release)
	require.NoError(t, e.Wait(context.Background()))
	assert.True(t, e.Signaled())
	assert.True(t, done)
}

func TestEventOnNilStreamBornSignaled(t *testing.T) {
	e, err := Record(nil)
	require.NoError(t, err)
	assert.True(t, e.Signaled())
	require.NoError(t, e.Wait(context.Background()))
}

func TestEventWaitHonorsContext(t *testing.T) {
	st := NewStream(TypeCUDA, 0)
	defer st.Close()

	release := make(chan struct{})
	require.NoError(t, st.Submit(func() { <-release }))
	e, err := Record(st)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = e.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSync))

	close(release)
}

func TestEventDestroyIdempotent(t *testing.T) {
	e, err := Record(nil)
	require.NoError(t, err)
	assert.True(t, e.Destroy())
	assert.False(t, e.Destroy())

	err = e.Wait(context.Background())
	require.Error(t, err)
}

func TestBufferFreeIdempotent(t *testing.T) {
	mr := NewPooledAllocator()
	b, err := NewBuffer(128, mr)
	require.NoError(t, err)
	assert.Equal(t, int64(128), b.Len())
	assert.Equal(t, int64(128), mr.AllocatedBytes())

	b.Free()
	assert.Equal(t, int64(0), mr.AllocatedBytes())
	b.Free()
	assert.Equal(t, int64(0), mr.AllocatedBytes())

	var nilBuf *Buffer
	nilBuf.Free()
	assert.Nil(t, nilBuf.Bytes())
	assert.Equal(t, int64(0), nilBuf.Len())
}

func TestZeroSizeBufferSkipsAllocator(t *testing.T) {
	mr := NewPooledAllocator()
	b, err := NewBuffer(0, mr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Len())
	assert.Equal(t, int64(0), mr.AllocatedBytes())
	b.Free()
}

func TestBufferFromBytes(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	b, err := NewBufferFromBytes(src, nil)
	require.NoError(t, err)
	assert.Equal(t, src, b.Bytes())

	src[0] = 99
	assert.Equal(t, byte(1), b.Bytes()[0])
	b.Free()
}

func TestPooledAllocatorRecycles(t *testing.T) {
	mr := NewPooledAllocator()

	a := mr.Allocate(100)
	require.Len(t, a, 100)
	a[0] = 0xff
	mr.Free(a)

	// the recycled slice comes back zeroed at the requested size
	b := mr.Allocate(100)
	require.Len(t, b, 100)
	assert.Equal(t, byte(0), b[0])
	mr.Free(b)

	assert.Nil(t, mr.Allocate(0))
	assert.Equal(t, int64(0), mr.AllocatedBytes())
}

func TestPooledAllocatorReallocate(t *testing.T) {
	mr := NewPooledAllocator()
	a := mr.Allocate(8)
	copy(a, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	b := mr.Reallocate(16, a)
	require.Len(t, b, 16)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b[:8])
	mr.Free(b)
	assert.Equal(t, int64(0), mr.AllocatedBytes())
}
