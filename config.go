package bump

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultChunkSize is the default size of the first chunk (64 KiB).
	DefaultChunkSize = 1 << 16

	// DefaultGrowthFactor is the default ratio between consecutive chunk sizes.
	DefaultGrowthFactor = 2.0
)

// Config configures an Arena. The zero value is usable and yields a
// heap-backed arena with 64 KiB initial chunks doubling without bound.
type Config struct {
	// InitialChunkSize is the size of the first chunk. If <= 0,
	// DefaultChunkSize (or MaxChunkSize, if smaller) is used.
	InitialChunkSize int

	// GrowthFactor multiplies the size of the last acquired chunk to size
	// the next one. Zero means DefaultGrowthFactor; otherwise it must be >= 1.
	GrowthFactor float64

	// MaxChunkSize caps every chunk. Requests larger than it fail with
	// ErrOutOfMemory. Zero means no cap.
	MaxChunkSize int

	// Source supplies chunks. Nil means Heap.
	Source Source

	// Logger receives chunk lifecycle events. Nil means no logging.
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.GrowthFactor == 0 {
		c.GrowthFactor = DefaultGrowthFactor
	}
	if c.InitialChunkSize <= 0 {
		c.InitialChunkSize = DefaultChunkSize
		if c.MaxChunkSize > 0 && c.MaxChunkSize < c.InitialChunkSize {
			c.InitialChunkSize = c.MaxChunkSize
		}
	}
	if c.Source == nil {
		c.Source = Heap
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func (c Config) validate() error {
	switch {
	case !(c.GrowthFactor >= 1):
		return errors.Wrapf(ErrInvalidConfig, "growth factor %v < 1", c.GrowthFactor)
	case c.MaxChunkSize < 0:
		return errors.Wrapf(ErrInvalidConfig, "negative max chunk size %d", c.MaxChunkSize)
	case c.MaxChunkSize > 0 && c.InitialChunkSize > c.MaxChunkSize:
		return errors.Wrapf(ErrInvalidConfig, "initial chunk size %d exceeds max %d",
			c.InitialChunkSize, c.MaxChunkSize)
	}
	return nil
}
