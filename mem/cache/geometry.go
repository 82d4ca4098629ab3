package cache

import (
	"fmt"
	"math/bits"
)

// Byte size units.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
)

// MaxBlocks is the largest number of lines a level may hold.
const MaxBlocks uint64 = 1 << 26

// Geometry describes how a cache level is organized and how an address is
// split into tag, set index and block offset.
type Geometry struct {
	Size       uint64
	BlockSize  uint64
	Ways       int
	NumSets    uint64
	OffsetBits uint
	IndexBits  uint
}

// Address is an address decomposed for a particular geometry.
type Address struct {
	Tag    uint64
	Index  uint64
	Offset uint64
}

func (a Address) String() string {
	return fmt.Sprintf("tag=0x%x index=0x%x offset=0x%x",
		a.Tag, a.Index, a.Offset)
}

// NewGeometry derives the set count and bit widths from a total byte size,
// a block size and a way count.
func NewGeometry(size, blockSize uint64, ways int) (Geometry, error) {
	if err := checkPowerOfTwo("block size", blockSize); err != nil {
		return Geometry{}, err
	}

	if ways <= 0 {
		return Geometry{}, &ConfigurationError{
			Field:  "ways",
			Reason: fmt.Sprintf("%d ways, must be at least 1", ways),
		}
	}

	if err := checkPowerOfTwo("ways", uint64(ways)); err != nil {
		return Geometry{}, err
	}

	if err := checkPowerOfTwo("size", size); err != nil {
		return Geometry{}, err
	}

	setSize := blockSize * uint64(ways)
	if size < setSize {
		return Geometry{}, &ConfigurationError{
			Field: "ways",
			Reason: fmt.Sprintf(
				"%d ways of %d bytes exceed the total size of %d bytes",
				ways, blockSize, size),
		}
	}

	numSets := size / setSize
	if numSets*uint64(ways) > MaxBlocks {
		return Geometry{}, &ConfigurationError{
			Field: "size",
			Reason: fmt.Sprintf("%d lines exceed the limit of %d",
				numSets*uint64(ways), MaxBlocks),
		}
	}

	return Geometry{
		Size:       size,
		BlockSize:  blockSize,
		Ways:       ways,
		NumSets:    numSets,
		OffsetBits: uint(bits.TrailingZeros64(blockSize)),
		IndexBits:  uint(bits.TrailingZeros64(numSets)),
	}, nil
}

// NewGeometryFromSets derives the geometry from a set count instead of a
// total size.
func NewGeometryFromSets(
	numSets uint64,
	ways int,
	blockSize uint64,
) (Geometry, error) {
	if err := checkPowerOfTwo("number of sets", numSets); err != nil {
		return Geometry{}, err
	}

	if ways <= 0 {
		return Geometry{}, &ConfigurationError{
			Field:  "ways",
			Reason: fmt.Sprintf("%d ways, must be at least 1", ways),
		}
	}

	if err := checkPowerOfTwo("block size", blockSize); err != nil {
		return Geometry{}, err
	}

	hi, numBlocks := bits.Mul64(numSets, uint64(ways))
	if hi == 0 {
		hi, _ = bits.Mul64(numBlocks, blockSize)
	}

	if hi != 0 {
		return Geometry{}, &ConfigurationError{
			Field: "number of sets",
			Reason: fmt.Sprintf(
				"%d sets of %d ways of %d bytes overflow the address space",
				numSets, ways, blockSize),
		}
	}

	return NewGeometry(numSets*uint64(ways)*blockSize, blockSize, ways)
}

func checkPowerOfTwo(field string, v uint64) error {
	if v == 0 || v&(v-1) != 0 {
		return &ConfigurationError{
			Field:  field,
			Reason: fmt.Sprintf("%d is not a power of two", v),
		}
	}

	return nil
}

// NumBlocks returns the number of lines the level can hold.
func (g Geometry) NumBlocks() uint64 {
	return g.NumSets * uint64(g.Ways)
}

// TagBits returns the number of address bits left for the tag in a 64-bit
// address.
func (g Geometry) TagBits() uint {
	return 64 - g.OffsetBits - g.IndexBits
}

// Decode splits an address into tag, index and offset. Every uint64 is
// accepted.
func (g Geometry) Decode(addr uint64) Address {
	return Address{
		Tag:    addr >> (g.OffsetBits + g.IndexBits),
		Index:  (addr >> g.OffsetBits) & (g.NumSets - 1),
		Offset: addr & (g.BlockSize - 1),
	}
}

// Compose is the inverse of Decode. Bits that do not fit into 64 bits are
// dropped.
func (g Geometry) Compose(a Address) uint64 {
	return a.Tag<<(g.OffsetBits+g.IndexBits) |
		(a.Index&(g.NumSets-1))<<g.OffsetBits |
		a.Offset&(g.BlockSize-1)
}

// BlockAddress returns the address of the first byte of the block that
// contains addr.
func (g Geometry) BlockAddress(addr uint64) uint64 {
	return addr &^ (g.BlockSize - 1)
}
