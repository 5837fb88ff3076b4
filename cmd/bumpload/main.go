// Command bumpload drives phase-structured allocation workloads against a
// bump arena and reports what the arena did.
//
// Each phase performs random allocate, grow, shrink and deallocate
// operations, checks that every live block kept its contents, then resets the
// arena. Flags may also be set from BUMPLOAD_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pavanmanishd/bump"
	"github.com/pavanmanishd/bump/bumpprom"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type options struct {
	chunkSize    int
	growth       float64
	maxChunk     int
	source       string
	fixedSize    int
	heapLimit    int
	phases       int
	ops          int
	maxAlloc     int
	releaseEvery int
	seed         int64
	metricsAddr  string
	linger       time.Duration
	verbose      bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("bumpload", flag.ContinueOnError)
	o := &options{
		chunkSize: 64 << 10,
		fixedSize: 64 << 20,
		maxAlloc:  4 << 10,
	}
	sizeVar(fs, &o.chunkSize, "chunk-size", "initial chunk size (e.g. 64k, 1m)")
	sizeVar(fs, &o.maxChunk, "max-chunk", "maximum chunk size; 0 means unbounded")
	sizeVar(fs, &o.fixedSize, "fixed-size", "buffer size for -source=fixed")
	sizeVar(fs, &o.heapLimit, "heap-limit", "byte budget for -source=heap; 0 means unlimited")
	sizeVar(fs, &o.maxAlloc, "max-alloc", "largest single allocation")
	fs.Float64Var(&o.growth, "growth", bump.DefaultGrowthFactor, "chunk growth factor")
	fs.StringVar(&o.source, "source", "heap", "backing source: heap, fixed or mmap")
	fs.IntVar(&o.phases, "phases", 100, "number of allocate-then-reset phases")
	fs.IntVar(&o.ops, "ops", 1000, "operations per phase")
	fs.IntVar(&o.releaseEvery, "release-every", 0, "release extra chunks every N phases; 0 never")
	fs.Int64Var(&o.seed, "seed", 1, "random seed")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.DurationVar(&o.linger, "linger", 0, "keep serving metrics this long after the workload")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("BUMPLOAD")); err != nil {
		return nil, err
	}
	if o.phases < 0 || o.ops < 0 || o.maxAlloc <= 0 {
		return nil, errors.New("phases and ops must be >= 0 and max-alloc > 0")
	}
	return o, nil
}

func sizeVar(fs *flag.FlagSet, p *int, name, usage string) {
	fs.Func(name, fmt.Sprintf("%s (default %d)", usage, *p), func(s string) error {
		n, err := parseSize(s)
		if err != nil {
			return err
		}
		*p = n
		return nil
	})
}

// parseSize parses a byte count with an optional k, m or g suffix.
func parseSize(s string) (int, error) {
	if s = strings.TrimSpace(s); s == "" {
		return 0, errors.New("empty size")
	}
	multiplier := 1
	switch s[len(s)-1] {
	case 'k', 'K':
		multiplier = 1 << 10
		s = s[:len(s)-1]
	case 'm', 'M':
		multiplier = 1 << 20
		s = s[:len(s)-1]
	case 'g', 'G':
		multiplier = 1 << 30
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	return int(n) * multiplier, nil
}

func newSource(o *options) (bump.Source, error) {
	switch o.source {
	case "heap":
		return &bump.HeapSource{Limit: o.heapLimit}, nil
	case "fixed":
		return bump.NewFixedSource(make([]byte, o.fixedSize)), nil
	case "mmap":
		return mmapSource()
	}
	return nil, errors.Errorf("unknown source %q", o.source)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "bumpload: %v\n", err)
		os.Exit(2)
	}
	logger, err := newLogger(o.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bumpload: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, logger); err != nil {
		logger.Error("workload failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, o *options, logger *zap.Logger) error {
	src, err := newSource(o)
	if err != nil {
		return err
	}
	arena, err := bump.NewSafeArena(bump.Config{
		InitialChunkSize: o.chunkSize,
		GrowthFactor:     o.growth,
		MaxChunkSize:     o.maxChunk,
		Source:           src,
		Logger:           logger.Named("arena"),
	})
	if err != nil {
		return errors.Wrap(err, "create arena")
	}
	defer func() {
		if err := arena.Release(); err != nil {
			logger.Warn("release arena", zap.Error(err))
		}
	}()

	if o.metricsAddr != "" {
		srv := serveMetrics(o.metricsAddr, arena, logger)
		defer srv.Shutdown(context.Background())
	}

	w := &workload{
		arena:        arena,
		ops:          o.ops,
		maxAlloc:     o.maxAlloc,
		releaseEvery: o.releaseEvery,
		log:          logger,
	}
	w.seed(o.seed)
	for phase := 1; phase <= o.phases; phase++ {
		if err := ctx.Err(); err != nil {
			logger.Info("interrupted", zap.Int("phase", phase))
			break
		}
		if err := w.runPhase(phase); err != nil {
			return errors.Wrapf(err, "phase %d", phase)
		}
	}

	m := arena.Metrics()
	logger.Info("done",
		zap.Uint64("allocations", m.Allocations),
		zap.Uint64("in_place_grows", m.InPlaceGrows),
		zap.Uint64("moved_grows", m.MovedGrows),
		zap.Uint64("reclaimed_bytes", m.ReclaimedBytes),
		zap.Uint64("chunk_acquisitions", m.ChunkAcquisitions),
		zap.Uint64("failures", m.Failures),
		zap.Int("chunks", m.NumChunks),
		zap.Int("capacity", m.Capacity))

	if o.metricsAddr != "" && o.linger > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(o.linger):
		}
	}
	return nil
}

func serveMetrics(addr string, arena *bump.SafeArena, logger *zap.Logger) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(bumpprom.NewCollector(arena, prometheus.Labels{"arena": "bumpload"}))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
