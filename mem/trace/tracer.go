// Package trace reads memory access traces and provides tracers that record
// how the cache hierarchy handled each access.
package trace

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/hierarchy"
	"github.com/sarchlab/cachesim/sim"
)

// The tables written by the DB tracer.
const (
	AccessTable = "cache_accesses"
	EventTable  = "cache_events"
)

// AccessEntry is the row written for each access.
type AccessEntry struct {
	Seq          uint64
	Op           string
	Address      string
	ByteSize     uint64
	DCTag        string
	DCIndex      uint64
	DCHit        bool
	L2Queried    bool
	L2Hit        bool
	MemoryReads  int
	MemoryWrites int
	WriteBacks   int
}

// EventEntry is the row written for each step of an access. Steps of the
// final drain carry Drain and the Seq of the last access.
type EventEntry struct {
	Seq     uint64
	Step    int
	Drain   bool
	Level   string
	Kind    string
	Result  string
	Address string
}

// A tracer is a hook that writes every access into a log.
type tracer struct {
	logger *logrus.Logger
}

// NewTracer creates a new Tracer.
func NewTracer(logger *logrus.Logger) sim.Hook {
	t := new(tracer)
	t.logger = logger

	return t
}

// Func logs the outcome carried by the hook context.
func (t *tracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != hierarchy.HookPosAccess {
		return
	}

	o, ok := ctx.Item.(hierarchy.Outcome)
	if !ok {
		return
	}

	fields := logrus.Fields{
		"seq":      o.Seq,
		"op":       o.Access.Op.Letter(),
		"address":  fmt.Sprintf("0x%x", o.Access.Address),
		"mem_refs": o.MemoryReferences(),
		"wbs":      o.WriteBacks,
	}

	for _, lo := range o.Levels {
		fields[lo.Name] = levelResult(lo)
	}

	t.logger.WithFields(fields).Info("access")
}

func levelResult(lo hierarchy.LevelOutcome) string {
	switch {
	case !lo.Queried:
		return "-"
	case lo.Hit:
		return "hit"
	default:
		return "miss"
	}
}

// A dbTracer is a hook that can record the accesses handled by the hierarchy
// into a database using the data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
}

// NewDBTracer creates a new database-based Tracer.
func NewDBTracer(dataRecorder datarecording.DataRecorder) sim.Hook {
	t := &dbTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(AccessTable, AccessEntry{})
	t.dataRecorder.CreateTable(EventTable, EventEntry{})

	return t
}

// Func records the outcome carried by the hook context.
func (t *dbTracer) Func(ctx sim.HookCtx) {
	o, ok := ctx.Item.(hierarchy.Outcome)
	if !ok {
		return
	}

	switch ctx.Pos {
	case hierarchy.HookPosAccess:
		t.recordAccess(o)
		t.recordEvents(o, false)
	case hierarchy.HookPosDrain:
		t.recordEvents(o, true)
	}
}

func (t *dbTracer) recordAccess(o hierarchy.Outcome) {
	entry := AccessEntry{
		Seq:          o.Seq,
		Op:           o.Access.Op.Letter(),
		Address:      fmt.Sprintf("0x%x", o.Access.Address),
		ByteSize:     o.Access.ByteSize,
		MemoryReads:  o.MemoryReads,
		MemoryWrites: o.MemoryWrites,
		WriteBacks:   o.WriteBacks,
	}

	if dc, ok := o.Level(hierarchy.DC); ok {
		entry.DCTag = fmt.Sprintf("0x%x", dc.Address.Tag)
		entry.DCIndex = dc.Address.Index
		entry.DCHit = dc.Hit
	}

	if l2, ok := o.Level(hierarchy.L2); ok {
		entry.L2Queried = l2.Queried
		entry.L2Hit = l2.Hit
	}

	t.dataRecorder.InsertData(AccessTable, entry)
}

func (t *dbTracer) recordEvents(o hierarchy.Outcome, drain bool) {
	for i, e := range o.Events {
		t.dataRecorder.InsertData(EventTable, EventEntry{
			Seq:     o.Seq,
			Step:    i,
			Drain:   drain,
			Level:   e.Level.String(),
			Kind:    e.Kind.String(),
			Result:  e.Result.String(),
			Address: fmt.Sprintf("0x%x", e.Address),
		})
	}
}
