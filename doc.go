// Package bump implements a chunked bump allocator (memory arena) for Go.
//
// # Overview
//
// An Arena hands out regions of memory from large chunks by advancing a
// cursor, and reclaims memory in bulk with Reset rather than per object.
// Allocation costs a few arithmetic operations; the price is that an
// individual region can only be given back if it is the most recent one.
//
// # Basic Usage
//
//	a, err := bump.New(bump.Config{InitialChunkSize: 64 << 10})
//	if err != nil {
//		return err
//	}
//	defer a.Release()
//
//	buf, err := a.Allocate(1024, 16) // 1 KiB aligned to 16
//	p, err := bump.Alloc[Point](a)   // zeroed, aligned for Point
//
//	a.Reset() // every allocation above is now invalid
//
// # Memory Layout
//
// Chunks come from a Source: the Go heap (HeapSource, the default), a
// caller-provided buffer (FixedSource) or anonymous mappings (MmapSource).
// The cursor moves toward higher addresses. When the active chunk cannot
// serve a request, the arena acquires a new chunk of
// max(request + alignment slack, GrowthFactor × last chunk size), capped at
// MaxChunkSize. Older chunks are retained because they may hold live
// allocations; after Reset they are reused in order.
//
// # Top Allocation
//
// The most recent allocation in the active chunk is the top. Grow extends it
// in place, Shrink and Deallocate move the cursor back. For any other region
// Grow allocates anew, Shrink reports a smaller size without reclaiming, and
// Deallocate does nothing. Only one level is tracked: once the top is
// deallocated, the region before it stays allocated until Reset.
//
// # Thread Safety
//
// Arena is not safe for concurrent use. SafeArena wraps it in a mutex.
// The provided sources are safe to share between arenas.
//
// # Important Notes
//
//   - Allocated memory is only valid until Reset, ResetAndRelease or Release
//   - Memory is not zeroed unless using Alloc or AllocSliceZeroed
//   - The garbage collector does not scan arena memory; never store Go
//     pointers in it
//   - Failed operations leave the arena unchanged and can be retried by the
//     caller
package bump
