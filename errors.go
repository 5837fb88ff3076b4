package bump

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfMemory is returned when the backing source cannot supply a chunk
	// large enough for a request, or when a request exceeds MaxChunkSize.
	ErrOutOfMemory = errors.New("bump: out of memory")

	// ErrInvalidAlignment is returned when an alignment is not a power of two.
	ErrInvalidAlignment = errors.New("bump: alignment is not a power of two")

	// ErrAddressNotOwned is returned when Grow, Shrink or Deallocate is called
	// with a region that does not lie in any chunk retained by the arena.
	ErrAddressNotOwned = errors.New("bump: address not owned by arena")

	// ErrInvalidSize is returned for negative sizes, a Grow to a smaller size,
	// or a Shrink to a larger one.
	ErrInvalidSize = errors.New("bump: invalid size")

	// ErrReleased is returned by operations on an arena after Release.
	ErrReleased = errors.New("bump: use after Release")

	// ErrInvalidConfig is returned by New for an unusable Config.
	ErrInvalidConfig = errors.New("bump: invalid config")
)

// SourceError reports that a Source refused a chunk request.
// It matches ErrOutOfMemory with errors.Is and unwraps to the source's error.
type SourceError struct {
	Size int   // requested chunk size in bytes
	Err  error // error returned by the source
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("bump: source refused %d-byte chunk: %v", e.Size, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrOutOfMemory }

func checkAlign(align int) error {
	if align <= 0 || align&(align-1) != 0 {
		return errors.Wrapf(ErrInvalidAlignment, "alignment %d", align)
	}
	return nil
}
