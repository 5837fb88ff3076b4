package bump_test

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/pavanmanishd/bump"
)

// BenchmarkRealisticUsage covers scenarios where a bump arena should excel.
func BenchmarkRealisticUsage(b *testing.B) {
	b.Run("ManySmallAllocs/Arena", func(b *testing.B) {
		a := bump.NewArena(64 * 1024)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < 100; j++ {
				_, _ = a.AllocBytes(64)
			}
			// Simulates request cleanup.
			a.Reset()
		}
	})

	b.Run("ManySmallAllocs/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			objects := make([][]byte, 100)
			for j := 0; j < 100; j++ {
				objects[j] = make([]byte, 64)
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	type record struct {
		ID   int64
		Data [56]byte
	}

	b.Run("StructAllocs/Arena", func(b *testing.B) {
		a := bump.NewArena(64 * 1024)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < 50; j++ {
				s, _ := bump.Alloc[record](a)
				s.ID = int64(j)
			}
			a.Reset()
		}
	})

	b.Run("StructAllocs/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			structs := make([]*record, 50)
			for j := 0; j < 50; j++ {
				structs[j] = &record{ID: int64(j)}
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	b.Run("BufferReuse/Arena", func(b *testing.B) {
		a := bump.NewArena(1024 * 1024)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < 10; j++ {
				buf1, _ := a.AllocBytes(1024)
				buf2, _ := a.AllocBytes(2048)
				buf3, _ := a.AllocBytes(512)
				buf1[0] = byte(j)
				buf2[0] = byte(j)
				buf3[0] = byte(j)
			}
			a.Reset()
		}
	})

	b.Run("BufferReuse/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			buffers := make([][]byte, 30)
			for j := 0; j < 10; j++ {
				buffers[j*3] = make([]byte, 1024)
				buffers[j*3+1] = make([]byte, 2048)
				buffers[j*3+2] = make([]byte, 512)
				buffers[j*3][0] = byte(j)
				buffers[j*3+1][0] = byte(j)
				buffers[j*3+2][0] = byte(j)
			}
			if i%5 == 0 {
				runtime.GC()
			}
		}
	})
}

// BenchmarkGrowableBuffer compares a buffer grown at the top of the arena
// with append on the Go heap.
func BenchmarkGrowableBuffer(b *testing.B) {
	chunk := []byte("0123456789abcdef0123456789abcdef")

	b.Run("Arena/Grow", func(b *testing.B) {
		a := bump.NewArena(1024 * 1024)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			var buf []byte
			for j := 0; j < 64; j++ {
				n := len(buf)
				nb, inPlace, err := a.Grow(buf, n+len(chunk), 1)
				if err != nil {
					b.Fatal(err)
				}
				if !inPlace {
					copy(nb, buf)
				}
				copy(nb[n:], chunk)
				buf = nb
			}
			a.Reset()
		}
	})

	b.Run("Arena/Append", func(b *testing.B) {
		a := bump.NewArena(1024 * 1024)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			var buf []byte
			for j := 0; j < 64; j++ {
				buf, _ = bump.Append(a, buf, chunk...)
			}
			a.Reset()
		}
	})

	b.Run("Builtin/Append", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var buf []byte
			for j := 0; j < 64; j++ {
				buf = append(buf, chunk...)
			}
			_ = buf
		}
	})
}

// BenchmarkScratchStack measures LIFO scratch usage: allocate, use,
// deallocate, which never advances the cursor.
func BenchmarkScratchStack(b *testing.B) {
	a := bump.NewArena(64 * 1024)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		scratch, _ := a.Allocate(512, 16)
		scratch[0] = byte(i)
		_, _ = a.Deallocate(scratch)
	}
}

// BenchmarkWorstCaseScenarios covers patterns where arena allocation is a
// poor fit.
func BenchmarkWorstCaseScenarios(b *testing.B) {
	for _, size := range []int{1, 2} {
		b.Run(fmt.Sprintf("TinyAllocations/Arena_%dB", size), func(b *testing.B) {
			a := bump.NewArena(64 * 1024)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = a.AllocBytes(size)
				if i%10000 == 9999 {
					a.Reset()
				}
			}
		})

		b.Run(fmt.Sprintf("TinyAllocations/Builtin_%dB", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = make([]byte, size)
			}
		})
	}

	// Large requests alternating with small ones leave most of each chunk
	// unused.
	b.Run("AlternatingLargeSmall", func(b *testing.B) {
		a := bump.NewArena(4096)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			_, _ = a.AllocBytes(3000)
			_, _ = a.AllocBytes(16)
			if i%100 == 99 {
				if err := a.ResetAndRelease(); err != nil {
					b.Fatal(err)
				}
			}
		}
	})

	b.Run("LongLivedNeverReset", func(b *testing.B) {
		a := bump.NewArena(64 * 1024)
		defer a.Release()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			_, _ = a.AllocBytes(64)
		}
		b.ReportMetric(float64(a.NumChunks()), "chunks")
	})
}

// BenchmarkWebServerScenarios simulates per-request arenas.
func BenchmarkWebServerScenarios(b *testing.B) {
	b.Run("HTTPRequestHandler/Arena", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			a := bump.NewArena(8192)
			requestBody, _ := a.AllocBytes(1024)
			responseBody, _ := a.AllocBytes(2048)
			tempObjects, _ := bump.AllocSlice[int64](a, 50)
			requestBody[0] = 1
			responseBody[0] = 2
			tempObjects[0] = 3
			_ = a.Release()
		}
	})

	b.Run("HTTPRequestHandler/Builtin", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			requestBody := make([]byte, 1024)
			responseBody := make([]byte, 2048)
			tempObjects := make([]int64, 50)
			requestBody[0] = 1
			responseBody[0] = 2
			tempObjects[0] = 3
		}
	})

	b.Run("ConnectionPool/Arena_PerConnection", func(b *testing.B) {
		const numConnections = 100
		arenas := make([]*bump.Arena, numConnections)
		for i := range arenas {
			arenas[i] = bump.NewArena(4096)
		}
		defer func() {
			for _, a := range arenas {
				_ = a.Release()
			}
		}()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			a := arenas[i%numConnections]
			buffer, _ := a.AllocBytes(256)
			metadata, _ := bump.Alloc[int64](a)
			buffer[0] = byte(i)
			*metadata = int64(i)
			if i%1000 == 999 {
				a.Reset()
			}
		}
	})
}

// BenchmarkSources compares chunk acquisition from each source.
func BenchmarkSources(b *testing.B) {
	sources := map[string]func() bump.Source{
		"heap":  func() bump.Source { return &bump.HeapSource{} },
		"fixed": func() bump.Source { return bump.NewFixedSource(make([]byte, 64<<20)) },
	}
	for name, newSource := range sources {
		b.Run(name, func(b *testing.B) {
			src := newSource()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				a, err := bump.New(bump.Config{InitialChunkSize: 4096, Source: src})
				if err != nil {
					b.Fatal(err)
				}
				for j := 0; j < 16; j++ {
					_, _ = a.AllocBytes(1024)
				}
				if err := a.Release(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkConcurrencyPatterns compares a shared SafeArena with one Arena
// per goroutine.
func BenchmarkConcurrencyPatterns(b *testing.B) {
	b.Run("SharedSafeArena", func(b *testing.B) {
		s, err := bump.NewSafeArena(bump.Config{InitialChunkSize: 1024 * 1024})
		if err != nil {
			b.Fatal(err)
		}
		defer s.Release()

		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			i := 0
			for pb.Next() {
				_, _ = s.AllocBytes(64)
				i++
				if i%1000 == 0 {
					s.Reset()
				}
			}
		})
	})

	b.Run("ArenaPerGoroutine", func(b *testing.B) {
		var mu sync.Mutex
		var arenas []*bump.Arena
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			a := bump.NewArena(64 * 1024)
			mu.Lock()
			arenas = append(arenas, a)
			mu.Unlock()

			i := 0
			for pb.Next() {
				_, _ = a.AllocBytes(64)
				i++
				if i%1000 == 0 {
					a.Reset()
				}
			}
		})
		for _, a := range arenas {
			_ = a.Release()
		}
	})
}
