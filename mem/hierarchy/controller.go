// Package hierarchy connects cache levels into a hierarchy backed by main
// memory and classifies every access that goes through it.
package hierarchy

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/mem"
	"github.com/sarchlab/cachesim/sim"
)

// HookPosAccess marks that an access has been handled. The hook item is the
// Outcome and the detail is a copy of the Statistics after the access.
var HookPosAccess = &sim.HookPos{Name: "Access"}

// HookPosDrain marks that dirty lines have been drained. The hook item is
// the Outcome of the drain.
var HookPosDrain = &sim.HookPos{Name: "Drain"}

// Controller owns the cache levels of a hierarchy and the statistics of the
// accesses it has handled. Levels are ordered from the processor outward and
// the position after the last level is main memory.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	*sim.HookableBase

	levels []*cache.Level
	stats  Statistics
	seq    uint64
	logger *logrus.Logger

	cur *Outcome
}

// Levels returns the cache levels, closest to the processor first.
func (c *Controller) Levels() []*cache.Level {
	levels := make([]*cache.Level, len(c.levels))
	copy(levels, c.levels)

	return levels
}

// Level returns a cache level by position.
func (c *Controller) Level(id LevelID) (*cache.Level, bool) {
	if int(id) < 0 || int(id) >= len(c.levels) {
		return nil, false
	}

	return c.levels[id], true
}

// Stats returns a copy of the statistics collected so far.
func (c *Controller) Stats() Statistics {
	return c.stats
}

// Access handles one read or write and returns how each level classified it.
func (c *Controller) Access(req mem.AccessReq) Outcome {
	c.seq++

	o := Outcome{
		Seq:    c.seq,
		Access: req,
		Levels: make([]LevelOutcome, len(c.levels)),
	}

	for i, l := range c.levels {
		o.Levels[i] = LevelOutcome{
			Name:    l.Name(),
			Address: l.Decode(req.Address),
		}
	}

	c.cur = &o

	if req.IsWrite() {
		c.stats.writes++
		c.write(0, req.Address)
	} else {
		c.stats.reads++
		c.read(0, req.Address)
	}

	c.cur = nil

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosAccess,
			Item:   o,
			Detail: c.stats,
		})
	}

	if c.logger.IsLevelEnabled(logrus.DebugLevel) {
		c.logger.WithFields(logrus.Fields{
			"seq":      o.Seq,
			"access":   req.String(),
			"mem_refs": o.MemoryReferences(),
			"wbs":      o.WriteBacks,
		}).Debug("access")
	}

	return o
}

// Drain writes every dirty line back, level by level starting from the
// closest one. The write-backs are counted like those caused by evictions.
func (c *Controller) Drain() Outcome {
	o := Outcome{Seq: c.seq}
	c.cur = &o

	for i, l := range c.levels {
		for _, addr := range l.Flush() {
			c.evict(i, addr)
		}
	}

	c.cur = nil

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosDrain,
		Item:   o,
		Detail: c.stats,
	})

	c.logger.WithFields(logrus.Fields{
		"wbs":      o.WriteBacks,
		"mem_refs": o.MemoryReferences(),
	}).Info("drained dirty lines")

	return o
}

// Reset invalidates every level and clears the statistics.
func (c *Controller) Reset() {
	for _, l := range c.levels {
		l.Reset()
	}

	c.stats.Reset()
	c.seq = 0
}

func (c *Controller) idOf(i int) LevelID {
	if i >= len(c.levels) {
		return Memory
	}

	return LevelID(i)
}

func (c *Controller) isMemory(i int) bool {
	return i >= len(c.levels)
}

func (c *Controller) read(i int, addr uint64) {
	if c.isMemory(i) {
		c.reference(Read, addr)
		return
	}

	l := c.levels[i]
	hit := l.Read(addr)
	c.lookup(i, Read, hit, addr)

	if hit {
		return
	}

	c.read(i+1, addr)
	c.fill(i, addr, false)
}

func (c *Controller) write(i int, addr uint64) {
	if c.isMemory(i) {
		c.reference(Write, addr)
		return
	}

	l := c.levels[i]
	hit := l.Write(addr)
	c.lookup(i, Write, hit, addr)

	switch {
	case hit:
		if l.WritePolicy() == cache.WriteThrough {
			c.write(i+1, addr)
		}
	case l.AllocatePolicy() == cache.NoWriteAllocate:
		c.write(i+1, addr)
	case l.WritePolicy() == cache.WriteBack:
		c.read(i+1, addr)
		c.fill(i, addr, true)
	default:
		c.read(i+1, addr)
		c.fill(i, addr, false)
		c.write(i+1, addr)
	}
}

// writeBack delivers a whole dirty block to position i. A cache level that
// allocates takes the block without fetching it.
func (c *Controller) writeBack(i int, addr uint64) {
	if c.isMemory(i) {
		c.reference(WriteBack, addr)
		return
	}

	l := c.levels[i]
	hit := l.Write(addr)
	c.lookup(i, WriteBack, hit, addr)

	switch {
	case hit:
		if l.WritePolicy() == cache.WriteThrough {
			c.writeBack(i+1, addr)
		}
	case l.AllocatePolicy() == cache.NoWriteAllocate:
		c.writeBack(i+1, addr)
	case l.WritePolicy() == cache.WriteBack:
		c.fill(i, addr, true)
	default:
		c.fill(i, addr, false)
		c.writeBack(i+1, addr)
	}
}

// fill installs the block holding addr at level i, writing the victim back
// first if it is dirty.
func (c *Controller) fill(i int, addr uint64, dirty bool) {
	l := c.levels[i]

	victim := l.Reserve(addr)
	if victim.NeedsWriteBack() {
		c.evict(i, victim.BlockAddress)
	}

	if c.logger.IsLevelEnabled(logrus.TraceLevel) {
		c.logger.WithFields(logrus.Fields{
			"level":  l.Name(),
			"set":    victim.SetID,
			"way":    victim.WayID,
			"victim": victim.Valid,
			"dirty":  dirty,
		}).Tracef("install 0x%x", l.Geometry().BlockAddress(addr))
	}

	l.Install(victim, addr, dirty)
}

func (c *Controller) evict(i int, blockAddr uint64) {
	c.stats.Increment(c.idOf(i), WriteBack, Eviction)
	c.event(i, WriteBack, Eviction, blockAddr)
	c.cur.WriteBacks++

	c.writeBack(i+1, blockAddr)
}

func (c *Controller) lookup(i int, kind Kind, hit bool, addr uint64) {
	result := Miss
	if hit {
		result = Hit
	}

	c.stats.Increment(c.idOf(i), kind, result)
	c.event(i, kind, result, addr)

	if kind == WriteBack {
		return
	}

	lo := &c.cur.Levels[i]
	if !lo.Queried {
		lo.Queried = true
		lo.Hit = hit
	}
}

func (c *Controller) reference(kind Kind, addr uint64) {
	c.stats.Increment(Memory, kind, Reference)
	c.event(len(c.levels), kind, Reference, addr)

	if kind == Read {
		c.cur.MemoryReads++
	} else {
		c.cur.MemoryWrites++
	}
}

func (c *Controller) event(i int, kind Kind, result Result, addr uint64) {
	e := Event{
		Level:   c.idOf(i),
		Kind:    kind,
		Result:  result,
		Address: addr,
	}

	c.cur.Events = append(c.cur.Events, e)

	if c.logger.IsLevelEnabled(logrus.TraceLevel) {
		c.logger.WithField("seq", c.cur.Seq).Trace(e.String())
	}
}
