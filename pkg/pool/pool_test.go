package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObject struct {
	data []byte
	used bool
}

func TestPoolGetPut(t *testing.T) {
	p := New(
		func() *testObject { return &testObject{data: make([]byte, 0, 64)} },
		func(o *testObject) {
			o.data = o.data[:0]
			o.used = false
		},
	)

	obj := p.Get()
	require.NotNil(t, obj)
	obj.used = true
	obj.data = append(obj.data, 1, 2, 3)
	p.Put(obj)

	// the reset ran before the object went back
	again := p.Get()
	assert.False(t, again.used)
	assert.Empty(t, again.data)
	p.Put(again)
}

func TestPoolStats(t *testing.T) {
	p := New(func() int { return 0 }, nil)

	a := p.Get()
	b := p.Get()
	allocated, inUse, hits := p.Stats()
	assert.GreaterOrEqual(t, allocated, int64(1))
	assert.Equal(t, int64(2), inUse)
	assert.Equal(t, int64(2), hits)

	p.Put(a)
	p.Put(b)
	_, inUse, _ = p.Stats()
	assert.Equal(t, int64(0), inUse)
}

func TestPoolConcurrent(t *testing.T) {
	p := New(func() []int { return make([]int, 0, 8) }, func(s []int) {})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s := p.Get()
				p.Put(s)
			}
		}()
	}
	wg.Wait()
}

func TestBytePoolSizes(t *testing.T) {
	bp := NewBytePool()

	for _, size := range []int{1, 63, 64, 65, 100, 4096, 1 << 20} {
		buf := bp.Get(size)
		require.Len(t, buf, size)
		for _, b := range buf {
			require.Equal(t, byte(0), b)
		}
		bp.Put(buf)
	}
}

func TestBytePoolRecyclesZeroed(t *testing.T) {
	bp := NewBytePool()

	buf := bp.Get(128)
	for i := range buf {
		buf[i] = 0xab
	}
	bp.Put(buf)

	again := bp.Get(128)
	require.Len(t, again, 128)
	for _, b := range again {
		assert.Equal(t, byte(0), b)
	}
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, -1, bucketFor(0))
	assert.Equal(t, -1, bucketFor(-5))
	assert.Equal(t, 0, bucketFor(1))
	assert.Equal(t, 0, bucketFor(64))
	assert.Equal(t, 1, bucketFor(65))
	assert.Equal(t, -1, bucketFor(1<<30+1))
}
