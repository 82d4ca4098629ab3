package simulation

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/mem/hierarchy"
	"github.com/sarchlab/cachesim/mem/mem"
	"github.com/sarchlab/cachesim/sim"
)

// HookPosRunEnd marks the end of a run. The hook item is the final
// Statistics.
var HookPosRunEnd = &sim.HookPos{Name: "RunEnd"}

// A Source provides the accesses of a run. Next returns io.EOF after the
// last access.
type Source interface {
	Next() (mem.AccessReq, error)
}

// A Sink receives the outcome of every access and the final statistics.
type Sink interface {
	Record(o hierarchy.Outcome) error
	Summarize(stats hierarchy.Statistics) error
}

// RecordSlice is a Source that serves accesses held in memory.
type RecordSlice struct {
	reqs []mem.AccessReq
	next int
}

// NewRecordSlice creates a RecordSlice.
func NewRecordSlice(reqs ...mem.AccessReq) *RecordSlice {
	return &RecordSlice{reqs: reqs}
}

// Next returns the next access.
func (s *RecordSlice) Next() (mem.AccessReq, error) {
	if s.next >= len(s.reqs) {
		return mem.AccessReq{}, io.EOF
	}

	req := s.reqs[s.next]
	s.next++

	return req, nil
}

// Len returns the number of accesses in the slice.
func (s *RecordSlice) Len() int {
	return len(s.reqs)
}

// A Runner feeds the accesses of a source through a hierarchy.
type Runner struct {
	*sim.HookableBase

	controller *hierarchy.Controller
	logger     *logrus.Logger
	drain      bool
}

// NewRunner creates a Runner. A nil logger discards the log.
func NewRunner(
	controller *hierarchy.Controller,
	logger *logrus.Logger,
) *Runner {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Runner{
		HookableBase: sim.NewHookableBase(),
		controller:   controller,
		logger:       logger,
	}
}

// WithDrain makes the runner write dirty lines back after the last access.
func (r *Runner) WithDrain(drain bool) *Runner {
	r.drain = drain
	return r
}

// Controller returns the hierarchy the runner drives.
func (r *Runner) Controller() *hierarchy.Controller {
	return r.controller
}

// Run processes every access of the source in order. The sink may be nil.
// A source error stops the run; the statistics gathered so far are returned
// with it.
func (r *Runner) Run(source Source, sink Sink) (hierarchy.Statistics, error) {
	start := time.Now()

	for n := 1; ; n++ {
		req, err := source.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return r.controller.Stats(),
				errors.Wrapf(err, "reading record %d", n)
		}

		o := r.controller.Access(req)

		if sink != nil {
			if err := sink.Record(o); err != nil {
				return r.controller.Stats(),
					errors.Wrapf(err, "reporting record %d", n)
			}
		}
	}

	if r.drain {
		r.controller.Drain()
	}

	stats := r.controller.Stats()

	if sink != nil {
		if err := sink.Summarize(stats); err != nil {
			return stats, errors.Wrap(err, "reporting statistics")
		}
	}

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Pos:    HookPosRunEnd,
		Item:   stats,
	})

	r.logger.WithFields(logrus.Fields{
		"records":  stats.Records(),
		"mem_refs": stats.MemoryReferences(),
		"elapsed":  time.Since(start).String(),
	}).Info("run finished")

	return stats, nil
}
