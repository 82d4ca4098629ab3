// Package simulation runs access traces through a cache hierarchy and wires
// the services around a run: data recording, tracing and monitoring.
package simulation

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/hierarchy"
	"github.com/sarchlab/cachesim/monitoring"
)

// A Simulation owns a hierarchy and the services attached to it.
type Simulation struct {
	id string

	controller *hierarchy.Controller
	runner     *Runner

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	monitor      *monitoring.Monitor
	monitorURL   string
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Controller returns the hierarchy being simulated.
func (s *Simulation) Controller() *hierarchy.Controller {
	return s.controller
}

// Runner returns the runner that drives the hierarchy.
func (s *Simulation) Runner() *Runner {
	return s.runner
}

// GetDataRecorder returns the data recorder used in the simulation. It is
// nil when recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil when
// monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server, if any.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// RecordExecInfo adds a property to the execution information stored with
// the recorded data. It does nothing when recording is off.
func (s *Simulation) RecordExecInfo(property, value string) {
	if s.execRecorder == nil {
		return
	}

	s.execRecorder.Set(property, value)
}

// Run feeds every access of the source through the hierarchy.
func (s *Simulation) Run(
	source Source,
	sink Sink,
) (hierarchy.Statistics, error) {
	return s.runner.Run(source, sink)
}

// Terminate terminates the simulation. Recorded data is flushed and the
// monitoring server is stopped.
func (s *Simulation) Terminate() error {
	if s.execRecorder != nil {
		s.execRecorder.End()
	}

	if s.dataRecorder != nil {
		if err := s.dataRecorder.Close(); err != nil {
			return errors.Wrap(err, "closing data recorder")
		}
	}

	if s.monitor != nil {
		if err := s.monitor.StopServer(); err != nil {
			return errors.Wrap(err, "stopping monitor")
		}
	}

	return nil
}
