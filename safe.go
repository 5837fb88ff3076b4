package bump

import (
	"sync"
)

// SafeArena is a mutex-protected wrapper around Arena for concurrent access.
// All operations are thread-safe but come with the overhead of mutex locking.
// Top-of-chunk grow, shrink and deallocate still refer to the most recent
// allocation made by any goroutine.
type SafeArena struct {
	mu sync.Mutex
	a  *Arena
}

// NewSafeArena creates a thread-safe arena from cfg.
func NewSafeArena(cfg Config) (*SafeArena, error) {
	a, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &SafeArena{a: a}, nil
}

// Allocate thread-safely reserves size bytes aligned to align.
func (s *SafeArena) Allocate(size, align int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Allocate(size, align)
}

// AllocBytes thread-safely allocates n word-aligned bytes.
func (s *SafeArena) AllocBytes(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.AllocBytes(n)
}

// Grow thread-safely extends b; see Arena.Grow.
func (s *SafeArena) Grow(b []byte, newSize, align int) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Grow(b, newSize, align)
}

// Shrink thread-safely reduces b; see Arena.Shrink.
func (s *SafeArena) Shrink(b []byte, newSize, align int) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Shrink(b, newSize, align)
}

// Deallocate thread-safely returns b if it is the top allocation.
func (s *SafeArena) Deallocate(b []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Deallocate(b)
}

// Realloc thread-safely resizes b; see Arena.Realloc.
func (s *SafeArena) Realloc(b []byte, newSize, align int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Realloc(b, newSize, align)
}

// EnsureCapacity thread-safely ensures the active chunk has at least n free bytes.
func (s *SafeArena) EnsureCapacity(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.EnsureCapacity(n)
}

// Reset thread-safely rewinds the arena for reuse.
func (s *SafeArena) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Reset()
}

// ResetAndRelease thread-safely resets and returns all but the first chunk.
func (s *SafeArena) ResetAndRelease() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.ResetAndRelease()
}

// Release thread-safely drops all chunks and makes the arena unusable.
func (s *SafeArena) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Release()
}

// Metrics thread-safely returns a snapshot of arena statistics.
func (s *SafeArena) Metrics() ArenaMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Metrics()
}

// Do runs fn with exclusive access to the underlying arena, for using the
// typed helpers or several operations atomically.
func (s *SafeArena) Do(fn func(a *Arena) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.a)
}

// SafeAlloc thread-safely returns a pointer to a zeroed T stored inside the arena.
func SafeAlloc[T any](s *SafeArena) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Alloc[T](s.a)
}

// SafeAllocSlice thread-safely allocates a slice of n elements of type T.
func SafeAllocSlice[T any](s *SafeArena, n int) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AllocSlice[T](s.a, n)
}

// SafeAllocSliceZeroed thread-safely allocates a slice of n zeroed elements.
func SafeAllocSliceZeroed[T any](s *SafeArena, n int) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AllocSliceZeroed[T](s.a, n)
}
