package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecInfoTable is the table that holds the execution information.
const ExecInfoTable = "exec_info"

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records when and how the program ran, next to the data of the
// run.
type ExecRecorder struct {
	tablename string
	recorder  DataRecorder
	entries   []ExecInfo
}

// NewExecRecorder creates an ExecRecorder that writes into the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{
		tablename: ExecInfoTable,
		recorder:  recorder,
	}

	e.recorder.CreateTable(e.tablename, ExecInfo{})

	return e
}

// Start logs the current execution.
func (e *ExecRecorder) Start() {
	currentTime := time.Now()
	startTime := currentTime.Format("2006-01-02 15:04:05.000000000")
	e.Set("Start Time", startTime)

	e.Set("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		ex, _ := os.Executable()
		cwd = filepath.Dir(ex)
	}

	e.Set("Working Directory", cwd)
}

// Set adds a property, such as a configuration value, to the execution
// information.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes the execution information along with the program exit time.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tablename, entry)
	}

	endTime := time.Now()
	endValue := endTime.Format("2006-01-02 15:04:05.000000000")
	e.recorder.InsertData(e.tablename, ExecInfo{"End Time", endValue})

	e.entries = nil

	e.recorder.Flush()
}
