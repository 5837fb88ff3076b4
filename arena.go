package bump

import (
	"math"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// WordAlign is the alignment used by AllocBytes: the size of a pointer.
const WordAlign = int(unsafe.Sizeof(uintptr(0)))

// noTop marks a chunk without a reclaimable top allocation.
const noTop = -1

// chunk is one contiguous region obtained from the Source.
type chunk struct {
	buf    []byte  // backing memory, exactly as returned by Source.Acquire
	base   uintptr // address of buf[0]
	offset int     // cursor: next free byte within buf
	top    int     // start offset of the most recent allocation, or noTop
}

func newChunk(buf []byte) *chunk {
	return &chunk{
		buf:  buf,
		base: uintptr(unsafe.Pointer(unsafe.SliceData(buf))),
		top:  noTop,
	}
}

// fit reports the offset at which size bytes aligned to align would be
// placed, and whether they fit in the remaining space.
func (c *chunk) fit(size, align int) (int, bool) {
	free := len(c.buf) - c.offset
	pad := padding(c.base+uintptr(c.offset), align)
	if pad > free || size > free-pad {
		return 0, false
	}
	return c.offset + pad, true
}

// bump reserves [off, off+size) and makes it the top allocation.
func (c *chunk) bump(off, size int) []byte {
	c.top = off
	c.offset = off + size
	return c.slice(off, size)
}

// slice returns buf[off:off+n] with its capacity clamped to n. n must be > 0.
func (c *chunk) slice(off, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&c.buf[off])), n)
}

func (c *chunk) contains(p uintptr, n int) bool {
	if p < c.base {
		return false
	}
	off := p - c.base
	return off < uintptr(len(c.buf)) && uintptr(n) <= uintptr(len(c.buf))-off
}

// isTop reports whether [off, off+n) is exactly the top allocation.
func (c *chunk) isTop(off, n int) bool {
	return c.top != noTop && c.top == off && off+n == c.offset
}

// padding returns the number of bytes needed to round addr up to align.
func padding(addr uintptr, align int) int {
	return int(-addr & uintptr(align-1))
}

// Arena is a chunked bump allocator. The cursor of the active chunk moves
// toward higher addresses; the most recent allocation in the active chunk
// (the top) can be grown, shrunk or deallocated in place.
//
// Arena is not safe for concurrent use. Use SafeArena, or one Arena per
// goroutine.
type Arena struct {
	chunks   []*chunk // acquisition order; nil after Release
	cur      int      // index of the active chunk
	current  *chunk   // chunks[cur]
	lastSize int      // size of the most recently acquired chunk
	cfg      Config
	log      *zap.Logger
	stats    counters
}

// New creates an Arena and eagerly acquires its first chunk.
func New(cfg Config) (*Arena, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	a := &Arena{cfg: cfg, log: cfg.Logger}
	c, err := a.newChunk(cfg.InitialChunkSize)
	if err != nil {
		return nil, err
	}
	a.adopt(c)
	return a, nil
}

// NewArena creates a heap-backed Arena with the specified initial chunk size.
// If chunkSize <= 0, DefaultChunkSize is used. It panics if the heap cannot
// supply the first chunk.
func NewArena(chunkSize int) *Arena {
	a, err := New(Config{InitialChunkSize: chunkSize})
	if err != nil {
		panic(err)
	}
	return a
}

// Allocate reserves size bytes whose address is a multiple of align and
// returns them as a slice with len and cap equal to size. The memory is not
// zeroed. A size of 0 returns nil without consuming space.
func (a *Arena) Allocate(size, align int) ([]byte, error) {
	c := a.current
	if c == nil {
		return nil, ErrReleased
	}
	if err := checkAlign(align); err != nil {
		return nil, err
	}
	if size <= 0 {
		if size < 0 {
			return nil, errors.Wrapf(ErrInvalidSize, "allocate %d bytes", size)
		}
		return nil, nil
	}

	// Fast path: the active chunk has room.
	off, ok := c.fit(size, align)
	if !ok {
		var err error
		if c, off, err = a.advance(size, align); err != nil {
			return nil, err
		}
	}
	a.stats.allocations++
	return c.bump(off, size), nil
}

// AllocBytes allocates n bytes aligned to WordAlign.
func (a *Arena) AllocBytes(n int) ([]byte, error) {
	return a.Allocate(n, WordAlign)
}

// EnsureCapacity makes sure the active chunk can serve n bytes without
// acquiring another chunk, acquiring one now if needed.
func (a *Arena) EnsureCapacity(n int) error {
	if a.current == nil {
		return ErrReleased
	}
	if n < 0 {
		return errors.Wrapf(ErrInvalidSize, "ensure capacity %d", n)
	}
	if _, ok := a.current.fit(n, 1); ok {
		return nil
	}
	_, _, err := a.advance(n, 1)
	return err
}

// advance makes a chunk able to serve the request active: first a retained
// chunk past the active one (populated again only after Reset), then a new
// chunk from the source. On failure nothing is changed.
func (a *Arena) advance(size, align int) (*chunk, int, error) {
	for i := a.cur + 1; i < len(a.chunks); i++ {
		if off, ok := a.chunks[i].fit(size, align); ok {
			a.activate(i)
			return a.chunks[i], off, nil
		}
	}

	need, ok := a.chunkNeed(size, align)
	if !ok {
		a.stats.failures++
		return nil, 0, errors.Wrapf(ErrOutOfMemory, "%d bytes exceed max chunk size %d",
			size, a.cfg.MaxChunkSize)
	}
	c, err := a.newChunk(a.nextChunkSize(need))
	if err != nil {
		a.stats.failures++
		return nil, 0, err
	}
	off, ok := c.fit(size, align)
	if !ok {
		// Only possible when MaxChunkSize clipped the alignment slack.
		a.stats.failures++
		a.releaseOne(c)
		return nil, 0, errors.Wrapf(ErrOutOfMemory, "%d bytes aligned to %d do not fit a %d-byte chunk",
			size, align, len(c.buf))
	}
	a.adopt(c)
	return c, off, nil
}

// chunkNeed returns the chunk size that can hold size bytes at any base
// alignment, clipped to MaxChunkSize. ok is false if size alone exceeds it.
func (a *Arena) chunkNeed(size, align int) (need int, ok bool) {
	limit := a.cfg.MaxChunkSize
	if limit > 0 && size > limit {
		return 0, false
	}
	need = size
	if slack := align - 1; slack > 0 {
		if size > math.MaxInt-slack {
			need = math.MaxInt
		} else {
			need = size + slack
		}
	}
	if limit > 0 && need > limit {
		need = limit
	}
	return need, true
}

// nextChunkSize applies the growth factor to the last chunk size.
func (a *Arena) nextChunkSize(need int) int {
	size := math.MaxInt
	if next := float64(a.lastSize) * a.cfg.GrowthFactor; next < math.MaxInt {
		size = int(next)
	}
	if limit := a.cfg.MaxChunkSize; limit > 0 && size > limit {
		size = limit
	}
	if size < need {
		size = need
	}
	return size
}

func (a *Arena) newChunk(n int) (*chunk, error) {
	buf, err := a.cfg.Source.Acquire(n)
	if err != nil {
		return nil, &SourceError{Size: n, Err: err}
	}
	if len(buf) < n {
		if len(buf) > 0 {
			_ = a.cfg.Source.Release(buf)
		}
		return nil, &SourceError{Size: n, Err: errors.Errorf("source returned %d bytes", len(buf))}
	}
	return newChunk(buf), nil
}

// adopt appends c and makes it the active chunk.
func (a *Arena) adopt(c *chunk) {
	a.chunks = append(a.chunks, c)
	a.activate(len(a.chunks) - 1)
	a.lastSize = len(c.buf)
	a.stats.chunkAcquisitions++
	a.log.Debug("acquired chunk",
		zap.Int("size", len(c.buf)),
		zap.Int("chunks", len(a.chunks)))
}

func (a *Arena) activate(i int) {
	a.cur = i
	a.current = a.chunks[i]
}

// find returns the retained chunk holding all of b and b's offset in it.
func (a *Arena) find(b []byte) (*chunk, int, bool) {
	if cap(b) == 0 {
		return nil, 0, false
	}
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	if c := a.current; c != nil && c.contains(p, len(b)) {
		return c, int(p - c.base), true
	}
	for _, c := range a.chunks {
		if c.contains(p, len(b)) {
			return c, int(p - c.base), true
		}
	}
	return nil, 0, false
}

// Owns reports whether b lies entirely within a chunk retained by the arena.
func (a *Arena) Owns(b []byte) bool {
	_, _, ok := a.find(b)
	return ok
}

// Reset invalidates every allocation and rewinds all chunks for reuse.
// Chunks are kept; retained chunks are reused in acquisition order.
// Reset panics after Release.
func (a *Arena) Reset() {
	a.panicIfReleased()
	for _, c := range a.chunks {
		c.offset = 0
		c.top = noTop
	}
	a.activate(0)
	a.stats.resets++
}

// ResetAndRelease returns every chunk but the first to the source and then
// resets. Afterwards the arena behaves like a freshly constructed one.
func (a *Arena) ResetAndRelease() error {
	if a.chunks == nil {
		return ErrReleased
	}
	extra := a.chunks[1:]
	err := a.releaseChunks(extra)
	if len(extra) > 0 {
		a.log.Debug("released chunks on reset", zap.Int("count", len(extra)))
	}
	clear(extra)
	a.chunks = a.chunks[:1]
	a.lastSize = len(a.chunks[0].buf)
	a.Reset()
	return err
}

// Release returns all chunks to the source and makes the arena unusable.
// Releasing twice is a no-op.
func (a *Arena) Release() error {
	if a.chunks == nil {
		return nil
	}
	err := a.releaseChunks(a.chunks)
	a.chunks = nil
	a.current = nil
	a.cur = 0
	return err
}

// releaseChunks hands cs back to the source, newest first.
func (a *Arena) releaseChunks(cs []*chunk) error {
	var err error
	for i := len(cs) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.releaseOne(cs[i]))
	}
	return err
}

func (a *Arena) releaseOne(c *chunk) error {
	err := a.cfg.Source.Release(c.buf)
	if err != nil {
		a.log.Warn("release chunk", zap.Int("size", len(c.buf)), zap.Error(err))
	}
	return err
}

func (a *Arena) panicIfReleased() {
	if a.chunks == nil {
		panic("bump: use after Release()")
	}
}
