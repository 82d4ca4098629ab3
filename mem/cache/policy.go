package cache

import (
	"fmt"
	"strings"
)

// WritePolicy decides when a write reaches the next level.
type WritePolicy int

// The write policies.
const (
	WriteBack WritePolicy = iota
	WriteThrough
)

func (p WritePolicy) String() string {
	switch p {
	case WriteBack:
		return "write-back"
	case WriteThrough:
		return "write-through"
	default:
		return fmt.Sprintf("WritePolicy(%d)", int(p))
	}
}

// ParseWritePolicy accepts names such as "writeback", "write-back", "wb",
// "writethrough" and "wt".
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch normalizePolicyName(s) {
	case "writeback", "wb", "back":
		return WriteBack, nil
	case "writethrough", "wt", "through":
		return WriteThrough, nil
	}

	return 0, &ConfigurationError{
		Field:  "write policy",
		Reason: fmt.Sprintf("unknown write policy %q", s),
	}
}

// AllocatePolicy decides whether a write miss brings the block into the
// level.
type AllocatePolicy int

// The allocate policies.
const (
	WriteAllocate AllocatePolicy = iota
	NoWriteAllocate
)

func (p AllocatePolicy) String() string {
	switch p {
	case WriteAllocate:
		return "write-allocate"
	case NoWriteAllocate:
		return "no-write-allocate"
	default:
		return fmt.Sprintf("AllocatePolicy(%d)", int(p))
	}
}

// ParseAllocatePolicy accepts names such as "writeallocate", "wa",
// "nowriteallocate" and "nwa".
func ParseAllocatePolicy(s string) (AllocatePolicy, error) {
	switch normalizePolicyName(s) {
	case "writeallocate", "wa", "allocate":
		return WriteAllocate, nil
	case "nowriteallocate", "nwa", "noallocate", "writearound":
		return NoWriteAllocate, nil
	}

	return 0, &ConfigurationError{
		Field:  "allocate policy",
		Reason: fmt.Sprintf("unknown allocate policy %q", s),
	}
}

// ReplacementPolicy decides which line leaves a full set.
type ReplacementPolicy int

// The replacement policies.
const (
	LRU ReplacementPolicy = iota
	FIFO
)

func (p ReplacementPolicy) String() string {
	switch p {
	case LRU:
		return "lru"
	case FIFO:
		return "fifo"
	default:
		return fmt.Sprintf("ReplacementPolicy(%d)", int(p))
	}
}

// ParseReplacementPolicy accepts "lru" and "fifo".
func ParseReplacementPolicy(s string) (ReplacementPolicy, error) {
	switch normalizePolicyName(s) {
	case "lru":
		return LRU, nil
	case "fifo":
		return FIFO, nil
	}

	return 0, &ConfigurationError{
		Field:  "replacement policy",
		Reason: fmt.Sprintf("unknown replacement policy %q", s),
	}
}

func normalizePolicyName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, " ", "")

	return s
}
