package main

import (
	"math/rand/v2"
	"unsafe"

	"github.com/pavanmanishd/bump"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// block is a live allocation filled with a single byte value.
type block struct {
	b    []byte
	fill byte
}

type phaseStats struct {
	allocs, inPlace, moved, shrinks, reclaimed, oom int
}

type workload struct {
	arena        *bump.SafeArena
	ops          int
	maxAlloc     int
	releaseEvery int
	log          *zap.Logger

	rng  *rand.Rand
	live []block
}

func (w *workload) seed(s int64) {
	w.rng = rand.New(rand.NewPCG(uint64(s), 0))
}

func (w *workload) runPhase(phase int) error {
	w.live = w.live[:0]
	var st phaseStats
	for range w.ops {
		if err := w.step(&st); err != nil {
			if !errors.Is(err, bump.ErrOutOfMemory) {
				return err
			}
			st.oom++
		}
	}
	if err := w.verify(); err != nil {
		return err
	}
	used := w.arena.Metrics().SizeInUse

	if w.releaseEvery > 0 && phase%w.releaseEvery == 0 {
		if err := w.arena.ResetAndRelease(); err != nil {
			return errors.Wrap(err, "reset and release")
		}
	} else {
		w.arena.Reset()
	}
	w.log.Debug("phase done",
		zap.Int("phase", phase),
		zap.Int("allocs", st.allocs),
		zap.Int("grown_in_place", st.inPlace),
		zap.Int("moved", st.moved),
		zap.Int("shrinks", st.shrinks),
		zap.Int("reclaimed", st.reclaimed),
		zap.Int("oom", st.oom),
		zap.Int("bytes_used", used))
	return nil
}

func (w *workload) step(st *phaseStats) error {
	op := w.rng.IntN(10)
	switch {
	case op < 6 || len(w.live) == 0:
		return w.allocate(st)
	case op < 8:
		return w.grow(st)
	case op < 9:
		return w.shrink(st)
	default:
		return w.deallocate(st)
	}
}

func (w *workload) allocate(st *phaseStats) error {
	size := 1 + w.rng.IntN(w.maxAlloc)
	align := 1 << w.rng.IntN(7)
	b, err := w.arena.Allocate(size, align)
	if err != nil {
		return err
	}
	if p := uintptr(unsafe.Pointer(&b[0])); p%uintptr(align) != 0 {
		return errors.Errorf("block at %#x not aligned to %d", p, align)
	}
	blk := block{b: b, fill: byte(1 + w.rng.IntN(255))}
	fill(blk.b, blk.fill)
	w.live = append(w.live, blk)
	st.allocs++
	return nil
}

func (w *workload) grow(st *phaseStats) error {
	last := &w.live[len(w.live)-1]
	newSize := len(last.b) + 1 + w.rng.IntN(w.maxAlloc)
	nb, inPlace, err := w.arena.Grow(last.b, newSize, 1)
	if err != nil {
		return err
	}
	if inPlace {
		st.inPlace++
	} else {
		copy(nb, last.b)
		st.moved++
	}
	fill(nb[len(last.b):], last.fill)
	last.b = nb
	return nil
}

func (w *workload) shrink(st *phaseStats) error {
	last := &w.live[len(w.live)-1]
	nb, reclaimed, err := w.arena.Shrink(last.b, w.rng.IntN(len(last.b)+1), 1)
	if err != nil {
		return err
	}
	st.shrinks++
	if reclaimed {
		st.reclaimed++
	}
	if len(nb) == 0 {
		w.live = w.live[:len(w.live)-1]
		return nil
	}
	last.b = nb
	return nil
}

func (w *workload) deallocate(st *phaseStats) error {
	last := w.live[len(w.live)-1]
	w.live = w.live[:len(w.live)-1]
	ok, err := w.arena.Deallocate(last.b)
	if err != nil {
		return err
	}
	if ok {
		st.reclaimed++
	}
	return nil
}

// verify checks that no live block was overwritten by another.
func (w *workload) verify() error {
	for i, blk := range w.live {
		for j, c := range blk.b {
			if c != blk.fill {
				return errors.Errorf("block %d byte %d: got %#x, want %#x", i, j, c, blk.fill)
			}
		}
	}
	return nil
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
