package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// Builder can build cache levels.
type Builder struct {
	byteSize       uint64
	numSets        uint64
	blockSize      uint64
	ways           int
	writePolicy    WritePolicy
	allocatePolicy AllocatePolicy
	replacement    ReplacementPolicy
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		byteSize:       16 * KB,
		blockSize:      64,
		ways:           4,
		writePolicy:    WriteBack,
		allocatePolicy: WriteAllocate,
		replacement:    LRU,
	}
}

// WithByteSize sets the total capacity of the level. It overrides an earlier
// WithNumSets.
func (b Builder) WithByteSize(byteSize uint64) Builder {
	b.byteSize = byteSize
	b.numSets = 0

	return b
}

// WithNumSets sizes the level by its set count. It overrides an earlier
// WithByteSize.
func (b Builder) WithNumSets(numSets uint64) Builder {
	b.numSets = numSets
	b.byteSize = 0

	return b
}

// WithBlockSize sets the line size in bytes.
func (b Builder) WithBlockSize(blockSize uint64) Builder {
	b.blockSize = blockSize
	return b
}

// WithWayAssociativity sets the number of ways per set.
func (b Builder) WithWayAssociativity(ways int) Builder {
	b.ways = ways
	return b
}

// WithWritePolicy sets the write policy.
func (b Builder) WithWritePolicy(p WritePolicy) Builder {
	b.writePolicy = p
	return b
}

// WithAllocatePolicy sets the allocate policy.
func (b Builder) WithAllocatePolicy(p AllocatePolicy) Builder {
	b.allocatePolicy = p
	return b
}

// WithReplacementPolicy sets the replacement policy.
func (b Builder) WithReplacementPolicy(p ReplacementPolicy) Builder {
	b.replacement = p
	return b
}

// Build builds a level. A geometry or policy that cannot be simulated is
// reported as a *ConfigurationError.
func (b Builder) Build(name string) (*Level, error) {
	geometry, err := b.geometry()
	if err != nil {
		if cerr, ok := err.(*ConfigurationError); ok {
			cerr.Level = name
		}

		return nil, err
	}

	if err := b.checkPolicies(name); err != nil {
		return nil, err
	}

	l := &Level{
		name:           name,
		geometry:       geometry,
		writePolicy:    b.writePolicy,
		allocatePolicy: b.allocatePolicy,
		replacement:    b.replacement,
		tags:           tagging.NewTagArray(int(geometry.NumSets), geometry.Ways),
		victimFinder:   tagging.NewLRUVictimFinder(),
	}

	return l, nil
}

func (b Builder) geometry() (Geometry, error) {
	if b.numSets != 0 {
		return NewGeometryFromSets(b.numSets, b.ways, b.blockSize)
	}

	return NewGeometry(b.byteSize, b.blockSize, b.ways)
}

func (b Builder) checkPolicies(name string) error {
	if b.writePolicy != WriteBack && b.writePolicy != WriteThrough {
		return &ConfigurationError{
			Level:  name,
			Field:  "write policy",
			Reason: b.writePolicy.String() + " is not supported",
		}
	}

	if b.allocatePolicy != WriteAllocate &&
		b.allocatePolicy != NoWriteAllocate {
		return &ConfigurationError{
			Level:  name,
			Field:  "allocate policy",
			Reason: b.allocatePolicy.String() + " is not supported",
		}
	}

	if b.replacement != LRU && b.replacement != FIFO {
		return &ConfigurationError{
			Level:  name,
			Field:  "replacement policy",
			Reason: b.replacement.String() + " is not supported",
		}
	}

	return nil
}
