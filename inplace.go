package bump

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Only the top allocation of the active chunk can change size or be
// reclaimed without moving. Any other block keeps its space until Reset.

// Grow extends b to newSize bytes. If b is the top allocation of the active
// chunk, its address satisfies align and the chunk has room, the cursor
// advances and the returned slice starts at the same address (inPlace is
// true). Otherwise a fresh block is allocated, b is abandoned and inPlace is
// false; copying the contents is up to the caller (see Realloc).
//
// A nil b behaves like Allocate.
func (a *Arena) Grow(b []byte, newSize, align int) (nb []byte, inPlace bool, err error) {
	if a.chunks == nil {
		return nil, false, ErrReleased
	}
	if err := checkAlign(align); err != nil {
		return nil, false, err
	}
	if newSize < len(b) {
		return nil, false, errors.Wrapf(ErrInvalidSize, "grow %d-byte block to %d", len(b), newSize)
	}
	if cap(b) == 0 {
		nb, err := a.Allocate(newSize, align)
		return nb, false, err
	}
	c, off, ok := a.find(b)
	if !ok {
		return nil, false, errors.Wrapf(ErrAddressNotOwned, "grow %d-byte block", len(b))
	}
	if c == a.current && c.isTop(off, len(b)) &&
		padding(c.base+uintptr(off), align) == 0 &&
		newSize-len(b) <= len(c.buf)-c.offset {
		c.offset = off + newSize
		a.stats.inPlaceGrows++
		return c.slice(off, newSize), true, nil
	}

	nb, err = a.Allocate(newSize, align)
	if err != nil {
		return nil, false, err
	}
	a.stats.movedGrows++
	return nb, false, nil
}

// Shrink reduces b to newSize bytes without moving it. If b is the top
// allocation of the active chunk the freed tail goes back to the arena and
// reclaimed is true; otherwise the tail stays unusable until Reset.
// The result is b[:newSize:newSize], or nil for a newSize of 0.
//
// align is validated for symmetry with Grow; a shrunk block keeps its
// address and therefore its original alignment.
func (a *Arena) Shrink(b []byte, newSize, align int) (nb []byte, reclaimed bool, err error) {
	if a.chunks == nil {
		return nil, false, ErrReleased
	}
	if err := checkAlign(align); err != nil {
		return nil, false, err
	}
	if newSize < 0 || newSize > len(b) {
		return nil, false, errors.Wrapf(ErrInvalidSize, "shrink %d-byte block to %d", len(b), newSize)
	}
	if cap(b) == 0 {
		return nil, false, nil
	}
	c, off, ok := a.find(b)
	if !ok {
		return nil, false, errors.Wrapf(ErrAddressNotOwned, "shrink %d-byte block", len(b))
	}
	if c == a.current && c.isTop(off, len(b)) {
		c.offset = off + newSize
		if newSize == 0 {
			c.top = noTop
		}
		reclaimed = newSize < len(b)
		a.stats.reclaimedBytes += uint64(len(b) - newSize)
	}
	if newSize == 0 {
		return nil, reclaimed, nil
	}
	return b[:newSize:newSize], reclaimed, nil
}

// Deallocate gives b back to the arena if it is the top allocation of the
// active chunk, rewinding the cursor to its start. Any other block is left
// in place until Reset and Deallocate reports false. Only one level is
// reclaimable: after a successful Deallocate there is no top until the
// next allocation.
func (a *Arena) Deallocate(b []byte) (bool, error) {
	if a.chunks == nil {
		return false, ErrReleased
	}
	if cap(b) == 0 {
		return false, nil
	}
	c, off, ok := a.find(b)
	if !ok {
		return false, errors.Wrapf(ErrAddressNotOwned, "deallocate %d-byte block", len(b))
	}
	if c != a.current || !c.isTop(off, len(b)) {
		return false, nil
	}
	a.stats.reclaimedBytes += uint64(c.offset - off)
	c.offset = off
	c.top = noTop
	return true, nil
}

// Realloc resizes b to newSize bytes aligned to align, preserving the
// leading min(len(b), newSize) bytes. It grows or shrinks in place when
// possible and copies otherwise.
func (a *Arena) Realloc(b []byte, newSize, align int) ([]byte, error) {
	if err := checkAlign(align); err != nil {
		return nil, err
	}
	if newSize < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "realloc to %d bytes", newSize)
	}
	if newSize > len(b) {
		nb, inPlace, err := a.Grow(b, newSize, align)
		if err != nil {
			return nil, err
		}
		if !inPlace {
			copy(nb, b)
		}
		return nb, nil
	}
	if cap(b) == 0 || isAligned(b, align) {
		nb, _, err := a.Shrink(b, newSize, align)
		return nb, err
	}
	// Smaller but misaligned for the new alignment: move.
	if !a.Owns(b) {
		return nil, errors.Wrapf(ErrAddressNotOwned, "realloc %d-byte block", len(b))
	}
	nb, err := a.Allocate(newSize, align)
	if err != nil {
		return nil, err
	}
	copy(nb, b)
	return nb, nil
}

func isAligned(b []byte, align int) bool {
	return padding(uintptr(unsafe.Pointer(unsafe.SliceData(b))), align) == 0
}
