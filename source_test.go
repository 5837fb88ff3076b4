package bump

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapSourceLimit(t *testing.T) {
	h := &HeapSource{Limit: 1000}

	b1, err := h.Acquire(600)
	require.NoError(t, err)
	assert.Len(t, b1, 600)

	_, err = h.Acquire(600)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 600, h.InUse(), "a refused request is not accounted")

	require.NoError(t, h.Release(b1))
	b2, err := h.Acquire(600)
	require.NoError(t, err)
	assert.Len(t, b2, 600)
}

func TestHeapSourceUnrepresentableSize(t *testing.T) {
	h := &HeapSource{}
	_, err := h.Acquire(math.MaxInt)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Zero(t, h.InUse())

	_, err = h.Acquire(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestHeapSourceSharedBetweenArenas(t *testing.T) {
	h := &HeapSource{Limit: 8 << 10}

	var wg sync.WaitGroup
	arenas := make([]*Arena, 4)
	errs := make([]error, len(arenas))
	for i := range arenas {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			arenas[i], errs[i] = New(Config{InitialChunkSize: 1024, Source: h})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 4<<10, h.InUse())

	// arenas[0] grows by a 2 KiB chunk; a 3000-byte chunk for arenas[1]
	// would exceed the shared budget.
	_, err := arenas[0].Allocate(1024, 1)
	require.NoError(t, err)
	_, err = arenas[0].Allocate(1024, 1)
	require.NoError(t, err)
	_, err = arenas[1].Allocate(1024, 1)
	require.NoError(t, err)
	_, err = arenas[1].Allocate(3000, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)

	for _, a := range arenas {
		require.NoError(t, a.Release())
	}
	assert.Zero(t, h.InUse())
}

func TestFixedSource(t *testing.T) {
	f := NewFixedSource(make([]byte, 1000))

	b1, err := f.Acquire(300)
	require.NoError(t, err)
	b2, err := f.Acquire(300)
	require.NoError(t, err)
	assert.Equal(t, addr(b1)+300, addr(b2))
	assert.Equal(t, 300, cap(b1), "chunks cannot reach their neighbours")

	_, err = f.Acquire(500)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 400, f.Available())

	// Out of order: b1 comes back only once b2 does.
	require.NoError(t, f.Release(b1))
	assert.Equal(t, 400, f.Available())
	require.NoError(t, f.Release(b2))
	assert.Equal(t, 1000, f.Available())

	assert.ErrorIs(t, f.Release(b2), ErrAddressNotOwned, "double release")
	assert.ErrorIs(t, f.Release(make([]byte, 10)), ErrAddressNotOwned)
	assert.ErrorIs(t, f.Release(nil), ErrAddressNotOwned)
}

func TestFixedSourceBacksArena(t *testing.T) {
	f := NewFixedSource(make([]byte, 1024))
	a := newTestArena(t, Config{InitialChunkSize: 128, Source: f})

	_, err := a.Allocate(128, 1)
	require.NoError(t, err)
	_, err = a.Allocate(200, 1) // 256-byte chunk
	require.NoError(t, err)
	_, err = a.Allocate(500, 1) // 512-byte chunk
	require.NoError(t, err)
	assert.Equal(t, 128, f.Available())

	_, err = a.Allocate(300, 1)
	require.ErrorIs(t, err, ErrOutOfMemory, "the fixed buffer is exhausted")

	require.NoError(t, a.ResetAndRelease())
	assert.Equal(t, 1024-128, f.Available())

	require.NoError(t, a.Release())
	assert.Equal(t, 1024, f.Available())
	assert.Equal(t, "FixedSource{size: 1024, carved: 0, chunks: 0}", f.String())
}
