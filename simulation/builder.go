package simulation

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/hierarchy"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	controller     *hierarchy.Controller
	logger         *logrus.Logger
	accessLogger   *logrus.Logger
	recordingOn    bool
	outputFileName string
	monitorOn      bool
	monitorPort    int
	totalAccesses  uint64
	drain          bool
}

// MakeBuilder creates a new builder. Recording and monitoring are off by
// default.
func MakeBuilder() Builder {
	return Builder{}
}

// WithController sets the hierarchy to simulate.
func (b Builder) WithController(c *hierarchy.Controller) Builder {
	b.controller = c
	return b
}

// WithLogger sets the logger of the run.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// WithAccessLog writes one line per access into the given logger.
func (b Builder) WithAccessLog(logger *logrus.Logger) Builder {
	b.accessLogger = logger
	return b
}

// WithDataRecording records every access into an SQLite database.
func (b Builder) WithDataRecording() Builder {
	b.recordingOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithMonitoring starts a monitoring server with the simulation.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithTotalAccesses sets the expected number of accesses shown by the
// monitor. Zero means unknown.
func (b Builder) WithTotalAccesses(n uint64) Builder {
	b.totalAccesses = n
	return b
}

// WithDrain writes dirty lines back after the last access.
func (b Builder) WithDrain(drain bool) Builder {
	b.drain = drain
	return b
}

func (b Builder) parametersMustBeValid() error {
	if b.controller == nil {
		return errors.New("simulation: a hierarchy controller is required")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		return errors.New(
			"simulation: monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		return errors.New(
			"simulation: output file cannot be set when recording is disabled")
	}

	return nil
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	s := &Simulation{
		id:         xid.New().String(),
		controller: b.controller,
	}

	s.runner = NewRunner(b.controller, logger).WithDrain(b.drain)
	s.runner.AcceptHook(sim.NewLogHook(logger))

	if b.accessLogger != nil {
		b.controller.AcceptHook(trace.NewTracer(b.accessLogger))
	}

	if b.recordingOn {
		if err := b.buildRecording(s); err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		if err := b.buildMonitor(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) buildRecording(s *Simulation) error {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "cachesim_" + s.id
	}

	recorder, err := datarecording.Open(outputPath)
	if err != nil {
		return errors.Wrap(err, "simulation: creating data recorder")
	}

	s.dataRecorder = recorder
	s.execRecorder = datarecording.NewExecRecorder(recorder)
	s.execRecorder.Start()

	s.controller.AcceptHook(trace.NewDBTracer(recorder))

	return nil
}

func (b Builder) buildMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterController(s.controller, b.totalAccesses)

	url, err := s.monitor.StartServer()
	if err != nil {
		return errors.Wrap(err, "simulation: starting monitor")
	}

	s.monitorURL = url

	return nil
}
