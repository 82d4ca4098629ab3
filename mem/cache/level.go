// Package cache models a single level of a set-associative data cache.
package cache

import (
	"fmt"

	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// Block is the tag state of one cache line.
type Block = tagging.Block

// A Victim is the line selected to receive a new block. It stays untouched
// in the level until Install is called with it.
type Victim struct {
	SetID        int
	WayID        int
	Valid        bool
	Dirty        bool
	Tag          uint64
	BlockAddress uint64
}

// NeedsWriteBack tells whether the data held by the victim must reach the
// next level before the line is reused.
func (v Victim) NeedsWriteBack() bool {
	return v.Valid && v.Dirty
}

// Level is one level of the hierarchy. It only tracks tags, validity, dirty
// bits and replacement order; no data is stored.
type Level struct {
	name           string
	geometry       Geometry
	writePolicy    WritePolicy
	allocatePolicy AllocatePolicy
	replacement    ReplacementPolicy
	tags           tagging.TagArray
	victimFinder   tagging.VictimFinder
}

// Name returns the name of the level.
func (l *Level) Name() string {
	return l.name
}

// Geometry returns how the level splits addresses.
func (l *Level) Geometry() Geometry {
	return l.geometry
}

// WritePolicy returns the write policy of the level.
func (l *Level) WritePolicy() WritePolicy {
	return l.writePolicy
}

// AllocatePolicy returns the allocate policy of the level.
func (l *Level) AllocatePolicy() AllocatePolicy {
	return l.allocatePolicy
}

// ReplacementPolicy returns the replacement policy of the level.
func (l *Level) ReplacementPolicy() ReplacementPolicy {
	return l.replacement
}

// Decode splits the address with the level's geometry.
func (l *Level) Decode(addr uint64) Address {
	return l.geometry.Decode(addr)
}

func (l *Level) lookup(addr uint64) (Block, bool) {
	a := l.geometry.Decode(addr)
	return l.tags.Lookup(int(a.Index), a.Tag)
}

// Contains tells whether the block holding addr is present. Recency is not
// updated.
func (l *Level) Contains(addr uint64) bool {
	_, ok := l.lookup(addr)
	return ok
}

// IsDirty tells whether the block holding addr is present and dirty.
func (l *Level) IsDirty(addr uint64) bool {
	block, ok := l.lookup(addr)
	return ok && block.IsDirty
}

// Read looks up addr. A hit makes the line the most recently used one.
func (l *Level) Read(addr uint64) bool {
	block, ok := l.lookup(addr)
	if !ok {
		return false
	}

	l.touch(block)

	return true
}

// Write looks up addr. A hit makes the line the most recently used one and,
// under write-back, marks it dirty. Forwarding a write-through hit is up to
// the caller.
func (l *Level) Write(addr uint64) bool {
	block, ok := l.lookup(addr)
	if !ok {
		return false
	}

	if l.writePolicy == WriteBack && !block.IsDirty {
		block.IsDirty = true
		l.tags.Update(block)
	}

	l.touch(block)

	return true
}

func (l *Level) touch(block Block) {
	if l.replacement == LRU {
		l.tags.Visit(block)
	}
}

// Reserve selects the line that will receive the block holding addr. The
// level is not modified.
func (l *Level) Reserve(addr uint64) Victim {
	a := l.geometry.Decode(addr)
	setID := int(a.Index)

	block, ok := l.victimFinder.FindVictim(l.tags, setID)
	if !ok {
		panic(fmt.Sprintf("%s: no victim in set %d", l.name, setID))
	}

	v := Victim{
		SetID: block.SetID,
		WayID: block.WayID,
		Valid: block.IsValid,
		Dirty: block.IsDirty,
		Tag:   block.Tag,
	}

	if block.IsValid {
		v.BlockAddress = l.geometry.Compose(Address{
			Tag:   block.Tag,
			Index: uint64(block.SetID),
		})
	}

	return v
}

// Install replaces the victim with the block holding addr. The victim's old
// content is dropped here, so any write-back must already have been handled.
func (l *Level) Install(v Victim, addr uint64, dirty bool) {
	a := l.geometry.Decode(addr)
	if int(a.Index) != v.SetID {
		panic(fmt.Sprintf("%s: installing 0x%x into set %d, expected set %d",
			l.name, addr, v.SetID, a.Index))
	}

	block := Block{
		Tag:     a.Tag,
		SetID:   v.SetID,
		WayID:   v.WayID,
		IsValid: true,
		IsDirty: dirty,
	}

	l.tags.Update(block)
	l.tags.Visit(block)
}

// Flush cleans all dirty lines and returns their block addresses in set and
// way order.
func (l *Level) Flush() []uint64 {
	var addrs []uint64

	for setID := 0; setID < l.tags.NumSets(); setID++ {
		set := l.tags.GetSet(setID)
		for _, block := range set.Blocks {
			if !block.IsValid || !block.IsDirty {
				continue
			}

			addrs = append(addrs, l.geometry.Compose(Address{
				Tag:   block.Tag,
				Index: uint64(setID),
			}))

			block.IsDirty = false
			l.tags.Update(block)
		}
	}

	return addrs
}

// Lines returns a copy of every line in set and way order.
func (l *Level) Lines() []Block {
	lines := make([]Block, 0, l.geometry.NumBlocks())

	for setID := 0; setID < l.tags.NumSets(); setID++ {
		lines = append(lines, l.tags.GetSet(setID).Blocks...)
	}

	return lines
}

// RecencyOrder returns the way IDs of a set from the least to the most
// recently used (or inserted, under FIFO).
func (l *Level) RecencyOrder(setID int) []int {
	queue := l.tags.GetSet(setID).LRUQueue
	order := make([]int, len(queue))
	copy(order, queue)

	return order
}

// Reset invalidates every line.
func (l *Level) Reset() {
	l.tags.Reset()
}

func (l *Level) String() string {
	return fmt.Sprintf(
		"%s: %d sets x %d ways x %d B, %s, %s, %s",
		l.name,
		l.geometry.NumSets,
		l.geometry.Ways,
		l.geometry.BlockSize,
		l.writePolicy,
		l.allocatePolicy,
		l.replacement,
	)
}
