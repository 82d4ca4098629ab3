// Package cmd provides the command-line interface of cachesim.
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/config"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/simulation"
)

// autoRecordName asks the recorder to pick a unique database name.
const autoRecordName = "auto"

type runOptions struct {
	configPath  string
	logLevel    string
	record      string
	monitor     bool
	monitorPort int
	openBrowser bool
	drain       bool
	quiet       bool
	accessLog   bool
}

// NewRootCommand creates the cachesim command and its subcommands.
func NewRootCommand() *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "cachesim [trace-file]",
		Short: "cachesim simulates a data cache and an L2 cache on a trace.",
		Long: `cachesim reads memory accesses, one "R:<hex address>" or ` +
			`"W:<hex address>" per line, from a file or from standard ` +
			`input. It prints how the data cache and the L2 cache served ` +
			`each access, followed by hit ratios and memory traffic.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, args, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.configPath, "config", "",
		"Configuration file, INI or trace.config format. "+
			"Defaults to $"+config.EnvConfig+".")
	flags.StringVar(&opts.logLevel, "log-level", "",
		"Log level (panic, fatal, error, warn, info, debug, trace). "+
			"Defaults to $"+config.EnvLogLevel+" or info.")
	flags.StringVar(&opts.record, "record", "",
		"Record every access into <name>.sqlite3. "+
			"\""+autoRecordName+"\" picks a unique name.")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"Serve progress and statistics over HTTP while running.")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"Port of the monitoring server. A random port is used by default.")
	flags.BoolVar(&opts.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser.")
	flags.BoolVar(&opts.drain, "drain", false,
		"Write dirty lines back to memory after the last access.")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false,
		"Only print the statistics summary.")
	flags.BoolVar(&opts.accessLog, "access-log", false,
		"Log one line per access to standard error.")

	rootCmd.AddCommand(newInspectCommand())

	return rootCmd
}

// Execute runs the command line and exits with status 1 on any error.
func Execute() {
	rootCmd := NewRootCommand()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func newLogger(level string, out io.Writer) (*logrus.Logger, error) {
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}

	if level == "" {
		level = "info"
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	return logger, nil
}

func loadConfig(path string, logger *logrus.Logger) (config.Config, error) {
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}

	if path == "" {
		logger.Info("no configuration given, using the default hierarchy")
		return config.Default(), nil
	}

	logger.WithField("path", path).Info("loading configuration")

	return config.Load(path)
}

func openTrace(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(args[0])
	if err != nil {
		return nil, errors.Wrap(err, "opening trace")
	}

	return f, nil
}

func runSimulation(cmd *cobra.Command, args []string, opts *runOptions) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	logger, err := newLogger(opts.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.configPath, logger)
	if err != nil {
		return err
	}

	ctrl, err := cfg.BuildController(logger)
	if err != nil {
		return err
	}

	input, err := openTrace(args)
	if err != nil {
		return err
	}
	defer input.Close()

	b, err := buildSimulation(cmd, opts, logger)
	if err != nil {
		return err
	}

	s, err := b.WithController(ctrl).Build()
	if err != nil {
		return err
	}

	for _, p := range cfg.Properties() {
		s.RecordExecInfo(p[0], p[1])
	}

	if opts.openBrowser && s.GetMonitor() != nil {
		if err := s.GetMonitor().OpenInBrowser(s.MonitorURL()); err != nil {
			logger.WithError(err).Warn("cannot open the browser")
		}
	}

	writer := report.NewTableWriter(cmd.OutOrStdout(), ctrl).
		WithQuiet(opts.quiet)

	_, runErr := s.Run(trace.NewReader(input), writer)
	if runErr != nil {
		if err := writer.Flush(); err != nil {
			logger.WithError(err).Error("flushing report")
		}
	}

	if s.GetMonitor() != nil {
		waitForInterrupt(cmd, s.MonitorURL())
	}

	if err := s.Terminate(); err != nil && runErr == nil {
		return err
	}

	return runErr
}

func waitForInterrupt(cmd *cobra.Command, url string) {
	fmt.Fprintf(cmd.ErrOrStderr(),
		"Simulation finished. Results stay available at %s. "+
			"Press Ctrl+C to exit.\n", url)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	signal.Stop(sig)
}

func buildSimulation(
	cmd *cobra.Command,
	opts *runOptions,
	logger *logrus.Logger,
) (simulation.Builder, error) {
	b := simulation.MakeBuilder().
		WithLogger(logger).
		WithDrain(opts.drain)

	if opts.record != "" {
		b = b.WithDataRecording()

		if !strings.EqualFold(opts.record, autoRecordName) {
			b = b.WithOutputFileName(opts.record)
		}
	}

	if opts.monitor {
		b = b.WithMonitoring().WithMonitorPort(opts.monitorPort)
	}

	if opts.accessLog {
		accessLogger, err := newLogger("info", cmd.ErrOrStderr())
		if err != nil {
			return b, err
		}

		b = b.WithAccessLog(accessLogger)
	}

	return b, nil
}
