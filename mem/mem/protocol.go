// Package mem defines the memory accesses that drive the cache hierarchy.
package mem

import "fmt"

// Op is the type of a memory access.
type Op int

// The memory operations.
const (
	Read Op = iota
	Write
)

func (o Op) String() string {
	switch o {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Letter returns the one-letter form used in traces, R or W.
func (o Op) Letter() string {
	if o == Write {
		return "W"
	}

	return "R"
}

// AccessReq is one access of a trace. ByteSize is zero when the trace does
// not carry it.
type AccessReq struct {
	Op       Op
	Address  uint64
	ByteSize uint64
}

// ReadReq creates a read access.
func ReadReq(address uint64) AccessReq {
	return AccessReq{Op: Read, Address: address}
}

// WriteReq creates a write access.
func WriteReq(address uint64) AccessReq {
	return AccessReq{Op: Write, Address: address}
}

// IsRead tells whether the access is a read.
func (r AccessReq) IsRead() bool {
	return r.Op == Read
}

// IsWrite tells whether the access is a write.
func (r AccessReq) IsWrite() bool {
	return r.Op == Write
}

func (r AccessReq) String() string {
	if r.ByteSize == 0 {
		return fmt.Sprintf("%s:%03x", r.Op.Letter(), r.Address)
	}

	return fmt.Sprintf("%s:%03x:%d", r.Op.Letter(), r.Address, r.ByteSize)
}
