package bump

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// Source supplies raw memory chunks to an Arena.
//
// Acquire returns a slice of at least size bytes or an error; any error is
// reported to the arena's caller as ErrOutOfMemory. Release receives exactly
// a slice previously returned by Acquire, once.
type Source interface {
	Acquire(size int) ([]byte, error)
	Release(buf []byte) error
}

// Heap is the process-wide heap source with no limit.
var Heap Source = &HeapSource{}

// HeapSource allocates chunks from the Go heap. If Limit > 0, the bytes held
// by outstanding chunks never exceed it. HeapSource is safe for concurrent
// use, so several arenas can share one budget. The zero value is unlimited.
type HeapSource struct {
	Limit int

	inUse atomic.Int64
}

// Acquire implements Source.
func (h *HeapSource) Acquire(size int) (buf []byte, err error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "acquire %d bytes", size)
	}
	if n := h.inUse.Add(int64(size)); h.Limit > 0 && n > int64(h.Limit) {
		h.inUse.Add(-int64(size))
		return nil, errors.Wrapf(ErrOutOfMemory, "heap limit %d reached", h.Limit)
	}
	defer func() {
		// makeslice panics on sizes the runtime cannot represent.
		if r := recover(); r != nil {
			h.inUse.Add(-int64(size))
			buf, err = nil, errors.Wrapf(ErrOutOfMemory, "%v", r)
		}
	}()
	return make([]byte, size), nil
}

// Release implements Source. The memory itself is left to the garbage
// collector once no allocation refers to it.
func (h *HeapSource) Release(buf []byte) error {
	h.inUse.Add(-int64(len(buf)))
	return nil
}

// InUse returns the bytes held by outstanding chunks.
func (h *HeapSource) InUse() int {
	return int(h.inUse.Load())
}

// span is one chunk carved out of a FixedSource.
type span struct {
	off, size int
	freed     bool
}

// FixedSource carves chunks out of a single caller-provided buffer, in
// order. A released chunk is reclaimed once every chunk carved after it has
// been released too, which is the order in which an Arena releases.
// FixedSource is safe for concurrent use.
type FixedSource struct {
	mu    sync.Mutex
	buf   []byte
	base  uintptr
	off   int
	spans []span
}

// NewFixedSource returns a source serving chunks from buf.
func NewFixedSource(buf []byte) *FixedSource {
	return &FixedSource{
		buf:  buf,
		base: uintptr(unsafe.Pointer(unsafe.SliceData(buf))),
	}
}

// Acquire implements Source.
func (f *FixedSource) Acquire(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "acquire %d bytes", size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if size > len(f.buf)-f.off {
		return nil, errors.Wrapf(ErrOutOfMemory, "fixed buffer has %d of %d bytes left",
			len(f.buf)-f.off, size)
	}
	off := f.off
	f.off += size
	f.spans = append(f.spans, span{off: off, size: size})
	return f.buf[off : off+size : off+size], nil
}

// Release implements Source.
func (f *FixedSource) Release(buf []byte) error {
	if cap(buf) == 0 {
		return errors.Wrap(ErrAddressNotOwned, "release empty chunk")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	i := f.spanAt(p, len(buf))
	if i < 0 {
		return errors.Wrapf(ErrAddressNotOwned, "release %d-byte chunk at %#x", len(buf), p)
	}
	f.spans[i].freed = true
	for n := len(f.spans); n > 0 && f.spans[n-1].freed; n = len(f.spans) {
		f.off = f.spans[n-1].off
		f.spans = f.spans[:n-1]
	}
	return nil
}

func (f *FixedSource) spanAt(p uintptr, n int) int {
	if p < f.base {
		return -1
	}
	off := int(p - f.base)
	for i := len(f.spans) - 1; i >= 0; i-- {
		s := f.spans[i]
		if s.off == off && s.size == n && !s.freed {
			return i
		}
	}
	return -1
}

// Available returns the bytes not yet carved out.
func (f *FixedSource) Available() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buf) - f.off
}

func (f *FixedSource) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("FixedSource{size: %d, carved: %d, chunks: %d}", len(f.buf), f.off, len(f.spans))
}
