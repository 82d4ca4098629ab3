// Package config describes the cache hierarchy to simulate and loads it from
// INI files or from the legacy trace.config format.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/hierarchy"
)

// LevelConfig is the configuration of one cache level.
type LevelConfig struct {
	NumSets           uint64
	Ways              int
	BlockSize         uint64
	WritePolicy       cache.WritePolicy
	AllocatePolicy    cache.AllocatePolicy
	ReplacementPolicy cache.ReplacementPolicy
}

// Config is the configuration of a hierarchy.
type Config struct {
	DC        LevelConfig
	L2        LevelConfig
	L2Enabled bool
}

// Default returns a small hierarchy: a direct-mapped data cache of 4 sets
// backed by a 4-way L2 of 16 sets, both with 16-byte lines, write-back and
// write-allocate.
func Default() Config {
	return Config{
		DC: LevelConfig{
			NumSets:   4,
			Ways:      1,
			BlockSize: 16,
		},
		L2: LevelConfig{
			NumSets:   16,
			Ways:      4,
			BlockSize: 16,
		},
		L2Enabled: true,
	}
}

func (c LevelConfig) builder() cache.Builder {
	return cache.MakeBuilder().
		WithNumSets(c.NumSets).
		WithWayAssociativity(c.Ways).
		WithBlockSize(c.BlockSize).
		WithWritePolicy(c.WritePolicy).
		WithAllocatePolicy(c.AllocatePolicy).
		WithReplacementPolicy(c.ReplacementPolicy)
}

// Size returns the capacity of the level in bytes.
func (c LevelConfig) Size() uint64 {
	return c.NumSets * uint64(c.Ways) * c.BlockSize
}

func (c LevelConfig) String() string {
	return fmt.Sprintf("%d sets x %d ways x %d B, %s, %s, %s",
		c.NumSets, c.Ways, c.BlockSize,
		c.WritePolicy, c.AllocatePolicy, c.ReplacementPolicy)
}

func (c Config) levels() []*LevelConfig {
	levels := []*LevelConfig{&c.DC}
	if c.L2Enabled {
		levels = append(levels, &c.L2)
	}

	return levels
}

// Validate reports the first parameter that cannot be simulated as a
// *cache.ConfigurationError.
func (c Config) Validate() error {
	names := []string{"DC", "L2"}

	for i, l := range c.levels() {
		if _, err := l.builder().Build(names[i]); err != nil {
			return err
		}
	}

	if c.L2Enabled && c.L2.BlockSize < c.DC.BlockSize {
		return &cache.ConfigurationError{
			Level: "L2",
			Field: "block size",
			Reason: fmt.Sprintf(
				"%d bytes is smaller than the DC block size of %d bytes",
				c.L2.BlockSize, c.DC.BlockSize),
		}
	}

	return nil
}

// BuildController builds the hierarchy described by the configuration.
func (c Config) BuildController(
	logger *logrus.Logger,
) (*hierarchy.Controller, error) {
	names := []string{"DC", "L2"}
	b := hierarchy.MakeBuilder()

	if logger != nil {
		b = b.WithLogger(logger)
	}

	for i, l := range c.levels() {
		level, err := l.builder().Build(names[i])
		if err != nil {
			return nil, err
		}

		b = b.WithLevel(level)
	}

	ctrl, err := b.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building hierarchy")
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"dc": c.DC.String(),
			"l2": c.l2Summary(),
		}).Info("hierarchy configured")
	}

	return ctrl, nil
}

func (c Config) l2Summary() string {
	if !c.L2Enabled {
		return "disabled"
	}

	return c.L2.String()
}

// Properties returns the configuration as name and value pairs, in a stable
// order.
func (c Config) Properties() [][2]string {
	return [][2]string{
		{"DC", c.DC.String()},
		{"L2", c.l2Summary()},
	}
}
