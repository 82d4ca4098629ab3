package tagging

// A VictimFinder decides with block should be evicted
type VictimFinder interface {
	FindVictim(tags TagArray, setID int) (Block, bool)
}

// LRUVictimFinder evicts the least recently used block to evict
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the least recently used block in a set. Invalid blocks
// are preferred. Since a fresh LRU queue is in way order, ties go to the
// lowest way.
func (e *LRUVictimFinder) FindVictim(tags TagArray, setID int) (Block, bool) {
	set := tags.GetSet(setID)

	for _, wayID := range set.LRUQueue {
		block := set.Blocks[wayID]
		if !block.IsValid {
			return block, true
		}
	}

	if len(set.LRUQueue) == 0 {
		return Block{}, false
	}

	return set.Blocks[set.LRUQueue[0]], true
}
