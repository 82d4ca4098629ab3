package hierarchy

import (
	"fmt"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/mem"
)

// Event is one step of the path an access takes through the hierarchy.
type Event struct {
	Level   LevelID
	Kind    Kind
	Result  Result
	Address uint64
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s %s 0x%x", e.Level, e.Kind, e.Result, e.Address)
}

// LevelOutcome summarizes what an access did at one cache level. Address is
// always decoded with the level's geometry. Queried and Hit describe the
// first demand read or write that reached the level; write-backs arriving at
// the level are only visible in the events.
type LevelOutcome struct {
	Name    string
	Address cache.Address
	Queried bool
	Hit     bool
}

// Outcome is the result of one access.
type Outcome struct {
	Seq    uint64
	Access mem.AccessReq
	Levels []LevelOutcome
	Events []Event

	MemoryReads  int
	MemoryWrites int
	WriteBacks   int
}

// Level returns the outcome at a cache level. The second return value is
// false if the hierarchy has no such level.
func (o Outcome) Level(id LevelID) (LevelOutcome, bool) {
	if int(id) < 0 || int(id) >= len(o.Levels) {
		return LevelOutcome{}, false
	}

	return o.Levels[id], true
}

// MemoryReferences returns the number of transfers to or from memory caused
// by the access.
func (o Outcome) MemoryReferences() int {
	return o.MemoryReads + o.MemoryWrites
}

func (o Outcome) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "#%d %s", o.Seq, o.Access)

	for _, lo := range o.Levels {
		switch {
		case !lo.Queried:
			fmt.Fprintf(&b, " %s -", lo.Name)
		case lo.Hit:
			fmt.Fprintf(&b, " %s hit", lo.Name)
		default:
			fmt.Fprintf(&b, " %s miss", lo.Name)
		}
	}

	fmt.Fprintf(&b, " mem %d", o.MemoryReferences())

	return b.String()
}
