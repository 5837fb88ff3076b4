//go:build unix

package bump

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMmapSource(t *testing.T) {
	var src MmapSource
	buf, err := src.Acquire(10000)
	require.NoError(t, err)
	require.Len(t, buf, 10000)
	assert.Zero(t, padding(addr(buf), os.Getpagesize()), "mappings are page aligned")
	assert.Equal(t, make([]byte, 10000), buf, "anonymous mappings start zeroed")

	buf[0], buf[len(buf)-1] = 1, 2
	require.NoError(t, src.Release(buf))

	_, err = src.Acquire(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMmapSourceBacksArena(t *testing.T) {
	a, err := New(Config{
		InitialChunkSize: 4096,
		Source:           MmapSource{},
		Logger:           zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	page, err := a.Allocate(4096, 4096)
	require.NoError(t, err, "a page-aligned chunk fits a full page")
	assert.Equal(t, 1, a.NumChunks())
	page[4095] = 0xff

	more, err := a.Allocate(10000, 64)
	require.NoError(t, err)
	more[len(more)-1] = 0xff
	assert.Equal(t, 2, a.NumChunks())

	require.NoError(t, a.ResetAndRelease())
	require.NoError(t, a.Release())
}
