//go:build unix

package bump

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MmapSource maps every chunk as anonymous private memory outside the Go
// heap and unmaps it on release. Memory from an MmapSource must not hold Go
// pointers, and no slice into a chunk may be used after the owning arena
// releases it. MmapSource is safe for concurrent use.
type MmapSource struct{}

// Acquire implements Source.
func (MmapSource) Acquire(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "acquire %d bytes", size)
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", size)
	}
	return buf, nil
}

// Release implements Source.
func (MmapSource) Release(buf []byte) error {
	return errors.Wrapf(unix.Munmap(buf), "munmap %d bytes", len(buf))
}
