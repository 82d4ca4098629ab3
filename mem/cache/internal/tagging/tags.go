// Package tagging keeps the tag state of a set-associative cache.
package tagging

import "fmt"

// TagArray holds the blocks of every set and the recency order inside each
// set.
type TagArray interface {
	Lookup(setID int, tag uint64) (Block, bool)
	Update(block Block)
	Visit(block Block)
	GetSet(setID int) *Set
	NumSets() int
	NumWays() int
	Reset()
}

// NewTagArray creates a tag array with all blocks invalid.
func NewTagArray(numSets int, numWays int) TagArray {
	t := &tagArrayImpl{
		numSets: numSets,
		numWays: numWays,
	}

	t.Reset()

	return t
}

// A Block of a cache is the information that is associated with a cache line
type Block struct {
	Tag     uint64
	SetID   int
	WayID   int
	IsValid bool
	IsDirty bool
}

// A Set is a list of blocks where a certain piece memory can be stored at.
// LRUQueue lists way IDs from the least recently used to the most recently
// used.
type Set struct {
	Blocks   []Block
	LRUQueue []int
}

type tagArrayImpl struct {
	numSets int
	numWays int
	Sets    []Set
}

func (t *tagArrayImpl) NumSets() int {
	return t.numSets
}

func (t *tagArrayImpl) NumWays() int {
	return t.numWays
}

// GetSet returns the set with the given index.
func (t *tagArrayImpl) GetSet(setID int) *Set {
	return &t.Sets[setID]
}

// Lookup finds the valid block that holds the tag in the given set.
func (t *tagArrayImpl) Lookup(setID int, tag uint64) (Block, bool) {
	set := &t.Sets[setID]
	for _, block := range set.Blocks {
		if block.IsValid && block.Tag == tag {
			return block, true
		}
	}

	return Block{}, false
}

// Update updates the block information
func (t *tagArrayImpl) Update(block Block) {
	t.Sets[block.SetID].Blocks[block.WayID] = block
}

// Visit moves the block to the end of the LRUQueue. The queue is shifted in
// place.
func (t *tagArrayImpl) Visit(block Block) {
	queue := t.Sets[block.SetID].LRUQueue

	pos := -1
	for i, wayID := range queue {
		if wayID == block.WayID {
			pos = i
			break
		}
	}

	if pos < 0 {
		panic(fmt.Sprintf("way %d is not in the LRU queue of set %d",
			block.WayID, block.SetID))
	}

	copy(queue[pos:], queue[pos+1:])
	queue[len(queue)-1] = block.WayID
}

// Reset will mark all the blocks in the directory invalid
func (t *tagArrayImpl) Reset() {
	t.Sets = make([]Set, t.numSets)
	for i := 0; i < t.numSets; i++ {
		t.Sets[i].Blocks = make([]Block, t.numWays)
		t.Sets[i].LRUQueue = make([]int, t.numWays)

		for j := 0; j < t.numWays; j++ {
			t.Sets[i].Blocks[j] = Block{
				SetID: i,
				WayID: j,
			}
			t.Sets[i].LRUQueue[j] = j
		}
	}
}
