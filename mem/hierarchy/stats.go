package hierarchy

import "fmt"

// LevelID identifies a position in the hierarchy. Cache levels are numbered
// from the one closest to the processor; Memory is always the last position,
// whatever the number of cache levels.
type LevelID int

// The positions of the hierarchy.
const (
	DC LevelID = iota
	L2
	Memory
	numLevelIDs
)

// MaxCacheLevels is the number of cache levels a Controller supports.
const MaxCacheLevels = int(Memory)

func (id LevelID) String() string {
	switch id {
	case DC:
		return "DC"
	case L2:
		return "L2"
	case Memory:
		return "Memory"
	default:
		return fmt.Sprintf("LevelID(%d)", int(id))
	}
}

// Kind is the type of a sub-event.
type Kind int

// The kinds of sub-events. WriteBack covers both a dirty line leaving a level
// and that line arriving at the next position.
const (
	Read Kind = iota
	Write
	WriteBack
	numKinds
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	case WriteBack:
		return "write-back"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is the classification of a sub-event.
type Result int

// The results. Hit and Miss classify cache lookups, Reference marks a
// transfer at memory and Eviction marks a dirty line leaving a cache level.
const (
	Hit Result = iota
	Miss
	Reference
	Eviction
	numResults
)

func (r Result) String() string {
	switch r {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case Reference:
		return "reference"
	case Eviction:
		return "eviction"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Statistics holds the counters of a run. The zero value is ready to use.
type Statistics struct {
	counts [numLevelIDs][numKinds][numResults]uint64
	reads  uint64
	writes uint64
}

// Increment counts one sub-event.
func (s *Statistics) Increment(level LevelID, kind Kind, result Result) {
	s.counts[level][kind][result]++
}

// Count returns the number of sub-events of one type.
func (s Statistics) Count(level LevelID, kind Kind, result Result) uint64 {
	return s.counts[level][kind][result]
}

// Hits returns the number of demand reads and writes that hit the level.
func (s Statistics) Hits(level LevelID) uint64 {
	return s.counts[level][Read][Hit] + s.counts[level][Write][Hit]
}

// Misses returns the number of demand reads and writes that missed the
// level.
func (s Statistics) Misses(level LevelID) uint64 {
	return s.counts[level][Read][Miss] + s.counts[level][Write][Miss]
}

// Accesses returns the number of demand reads and writes that reached the
// level.
func (s Statistics) Accesses(level LevelID) uint64 {
	return s.Hits(level) + s.Misses(level)
}

// HitRatio returns hits over accesses, or 0 when the level was never
// accessed.
func (s Statistics) HitRatio(level LevelID) float64 {
	accesses := s.Accesses(level)
	if accesses == 0 {
		return 0
	}

	return float64(s.Hits(level)) / float64(accesses)
}

// WriteBacks returns the number of dirty lines that left the level.
func (s Statistics) WriteBacks(level LevelID) uint64 {
	return s.counts[level][WriteBack][Eviction]
}

// MemoryReads returns the number of blocks fetched from memory.
func (s Statistics) MemoryReads() uint64 {
	return s.counts[Memory][Read][Reference]
}

// MemoryWrites returns the number of writes that reached memory, either
// forwarded demand writes or write-backs.
func (s Statistics) MemoryWrites() uint64 {
	return s.counts[Memory][Write][Reference] +
		s.counts[Memory][WriteBack][Reference]
}

// MemoryReferences returns the number of transfers to or from memory.
func (s Statistics) MemoryReferences() uint64 {
	return s.MemoryReads() + s.MemoryWrites()
}

// Reads returns the number of read records processed.
func (s Statistics) Reads() uint64 {
	return s.reads
}

// Writes returns the number of write records processed.
func (s Statistics) Writes() uint64 {
	return s.writes
}

// Records returns the number of records processed.
func (s Statistics) Records() uint64 {
	return s.reads + s.writes
}

// ReadRatio returns reads over records, or 0 before the first record.
func (s Statistics) ReadRatio() float64 {
	total := s.Records()
	if total == 0 {
		return 0
	}

	return float64(s.reads) / float64(total)
}

// Reset clears every counter.
func (s *Statistics) Reset() {
	*s = Statistics{}
}

func (s Statistics) String() string {
	return fmt.Sprintf("records=%d reads=%d writes=%d mem_refs=%d",
		s.Records(), s.reads, s.writes, s.MemoryReferences())
}
