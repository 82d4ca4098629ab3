package hierarchy

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim"
)

// A Builder can build hierarchy controllers.
type Builder struct {
	levels []*cache.Level
	logger *logrus.Logger
}

// MakeBuilder creates a builder with no levels and a silent logger.
func MakeBuilder() Builder {
	return Builder{}
}

// WithLevel appends a cache level. Levels must be added from the processor
// outward.
func (b Builder) WithLevel(l *cache.Level) Builder {
	levels := make([]*cache.Level, len(b.levels), len(b.levels)+1)
	copy(levels, b.levels)
	b.levels = append(levels, l)

	return b
}

// WithLogger sets the logger that receives access and event details.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a controller. A level's block may not be smaller than the
// block of the level in front of it, so that a write-back always lands in a
// single block.
func (b Builder) Build() (*Controller, error) {
	if len(b.levels) == 0 {
		return nil, errors.New("hierarchy: at least one cache level is required")
	}

	if len(b.levels) > MaxCacheLevels {
		return nil, errors.Errorf(
			"hierarchy: at most %d cache levels are supported, got %d",
			MaxCacheLevels, len(b.levels))
	}

	for i := 1; i < len(b.levels); i++ {
		inner := b.levels[i-1]
		outer := b.levels[i]

		if outer.Geometry().BlockSize < inner.Geometry().BlockSize {
			return nil, &cache.ConfigurationError{
				Level: outer.Name(),
				Field: "block size",
				Reason: "must not be smaller than the block size of " +
					inner.Name(),
			}
		}
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	c := &Controller{
		HookableBase: sim.NewHookableBase(),
		levels:       make([]*cache.Level, len(b.levels)),
		logger:       logger,
	}
	copy(c.levels, b.levels)

	return c, nil
}
