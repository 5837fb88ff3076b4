package bump

import (
	"math"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
)

// The typed helpers place values of T in arena memory. Chunks are plain byte
// memory that the garbage collector does not scan, so T must not contain Go
// pointers (no pointers, slices, strings, maps, interfaces, channels or funcs)
// unless what they point to is kept alive elsewhere.

// Alloc returns a pointer to a zeroed T stored inside the arena, aligned for T.
// The returned pointer is valid until the arena is reset or released.
func Alloc[T any](a *Arena) (*T, error) {
	p, err := AllocUninitialized[T](a)
	if err != nil {
		return nil, err
	}
	var zero T
	*p = zero
	return p, nil
}

// AllocUninitialized returns a *T located in the arena without zeroing memory.
// This is faster than Alloc but the memory contents are undefined.
func AllocUninitialized[T any](a *Arena) (*T, error) {
	var zero T
	size, align := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))
	if size == 0 {
		return new(T), nil
	}
	b, err := a.Allocate(size, align)
	if err != nil {
		return nil, err
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), nil
}

// AllocSlice allocates a slice of n elements of type T inside the arena.
// The elements are not initialized. Returns nil if n == 0.
func AllocSlice[T any](a *Arena, n int) ([]T, error) {
	b, err := allocElems[T](a, n)
	if err != nil || b == nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), nil
}

// AllocSliceZeroed allocates a slice of n zeroed elements of type T.
func AllocSliceZeroed[T any](a *Arena, n int) ([]T, error) {
	b, err := allocElems[T](a, n)
	if err != nil || b == nil {
		return nil, err
	}
	clear(b)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), nil
}

func allocElems[T any](a *Arena, n int) ([]byte, error) {
	var zero T
	size, align := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "allocate %d elements", n)
	}
	if n == 0 || size == 0 {
		return nil, nil
	}
	if n > math.MaxInt/size {
		return nil, errors.Wrapf(ErrOutOfMemory, "%d elements of %d bytes", n, size)
	}
	return a.Allocate(n*size, align)
}

// Append appends elems to s, which must be nil or a slice allocated from a.
// While s is the arena's top allocation its backing block grows in place;
// otherwise the elements are copied to a new block twice the old capacity.
func Append[T any](a *Arena, s []T, elems ...T) ([]T, error) {
	need := len(s) + len(elems)
	var zero T
	size, align := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))
	if need <= cap(s) || size == 0 {
		return append(s, elems...), nil
	}
	newCap := max(need, 2*cap(s))
	if newCap > math.MaxInt/size {
		return nil, errors.Wrapf(ErrOutOfMemory, "%d elements of %d bytes", newCap, size)
	}
	old := sliceBytes(s)
	b, inPlace, err := a.Grow(old, newCap*size, align)
	if err != nil {
		return nil, err
	}
	if !inPlace {
		copy(b, old[:len(s)*size])
	}
	out := unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), newCap)[:len(s)]
	return append(out, elems...), nil
}

// sliceBytes views the full capacity of s as bytes.
func sliceBytes[T any](s []T) []byte {
	if cap(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), cap(s)*int(unsafe.Sizeof(zero)))
}

// CopyBytes copies src into the arena.
func CopyBytes(a *Arena, src []byte) ([]byte, error) {
	b, err := a.Allocate(len(src), 1)
	if err != nil {
		return nil, err
	}
	copy(b, src)
	return b, nil
}

// CopyString copies s into the arena and returns a string backed by it.
// The string must not be used after the arena is reset or released.
func CopyString(a *Arena, s string) (string, error) {
	b, err := a.Allocate(len(s), 1)
	if err != nil || len(b) == 0 {
		return "", err
	}
	copy(b, s)
	return unsafe.String(unsafe.SliceData(b), len(b)), nil
}

// PtrAndKeepAlive returns t and calls runtime.KeepAlive on the arena.
// This is useful to prevent the arena from being garbage collected
// while the pointer is still in use in unsafe code.
func PtrAndKeepAlive[T any](a *Arena, t *T) *T {
	runtime.KeepAlive(a)
	return t
}
