package bump

// counters are cumulative operation counts. They survive Reset.
type counters struct {
	allocations       uint64
	inPlaceGrows      uint64
	movedGrows        uint64
	reclaimedBytes    uint64
	chunkAcquisitions uint64
	failures          uint64
	resets            uint64
}

// SizeInUse returns the total number of bytes consumed in the arena's chunks.
// This includes alignment padding and space abandoned by moved grows.
func (a *Arena) SizeInUse() int {
	sum := 0
	for _, c := range a.chunks {
		sum += c.offset
	}
	return sum
}

// NumChunks returns the number of chunks currently retained by the arena.
func (a *Arena) NumChunks() int {
	return len(a.chunks)
}

// Capacity returns the total capacity (in bytes) of all chunks in the arena.
func (a *Arena) Capacity() int {
	sum := 0
	for _, c := range a.chunks {
		sum += len(c.buf)
	}
	return sum
}

// Utilization returns the ratio of bytes in use to total capacity (0.0 to 1.0).
// Returns 0.0 if the arena has no capacity.
func (a *Arena) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.SizeInUse()) / float64(capacity)
}

// ChunkSize returns the initial chunk size used by this arena.
func (a *Arena) ChunkSize() int {
	return a.cfg.InitialChunkSize
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() ArenaMetrics {
	return ArenaMetrics{
		SizeInUse:         a.SizeInUse(),
		Capacity:          a.Capacity(),
		NumChunks:         a.NumChunks(),
		ChunkSize:         a.ChunkSize(),
		Utilization:       a.Utilization(),
		Allocations:       a.stats.allocations,
		InPlaceGrows:      a.stats.inPlaceGrows,
		MovedGrows:        a.stats.movedGrows,
		ReclaimedBytes:    a.stats.reclaimedBytes,
		ChunkAcquisitions: a.stats.chunkAcquisitions,
		Failures:          a.stats.failures,
		Resets:            a.stats.resets,
	}
}

// ArenaMetrics contains statistical information about an arena.
type ArenaMetrics struct {
	SizeInUse   int     // Bytes currently consumed
	Capacity    int     // Total capacity in bytes
	NumChunks   int     // Number of chunks
	ChunkSize   int     // Initial chunk size
	Utilization float64 // Ratio of used to total capacity (0.0-1.0)

	Allocations       uint64 // Successful Allocate calls, including moved grows
	InPlaceGrows      uint64 // Grow calls served without moving
	MovedGrows        uint64 // Grow calls that fell back to a new allocation
	ReclaimedBytes    uint64 // Bytes returned by Shrink and Deallocate
	ChunkAcquisitions uint64 // Chunks obtained from the source
	Failures          uint64 // Requests that failed with ErrOutOfMemory
	Resets            uint64 // Reset and ResetAndRelease calls
}
