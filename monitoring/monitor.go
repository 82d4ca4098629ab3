// Package monitoring serves the progress and statistics of a running
// simulation over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/cachesim/mem/hierarchy"
	"github.com/sarchlab/cachesim/monitoring/web"
	"github.com/sarchlab/cachesim/sim"
)

// levelInfo is the configuration of a cache level. It does not change while
// the simulation runs.
type levelInfo struct {
	ID                hierarchy.LevelID
	Name              string
	Size              uint64
	NumSets           uint64
	Ways              int
	BlockSize         uint64
	WritePolicy       string
	AllocatePolicy    string
	ReplacementPolicy string
}

// levelStatus is what the monitor reports about a level.
type levelStatus struct {
	levelInfo

	Hits       uint64
	Misses     uint64
	HitRatio   float64
	WriteBacks uint64
}

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation. It is a hook of the hierarchy controller: the
// simulation goroutine publishes statistics into the monitor and the HTTP
// handlers only read what has been published.
type Monitor struct {
	portNumber int
	server     *http.Server

	lock   sync.Mutex
	levels []levelInfo
	stats  hierarchy.Statistics

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	accessBar        *ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterController records the configuration of the hierarchy's levels and
// starts listening to its accesses. totalAccesses is zero when the length of
// the trace is not known in advance.
func (m *Monitor) RegisterController(
	c *hierarchy.Controller,
	totalAccesses uint64,
) {
	levels := make([]levelInfo, 0, len(c.Levels()))

	for i, l := range c.Levels() {
		g := l.Geometry()
		levels = append(levels, levelInfo{
			ID:                hierarchy.LevelID(i),
			Name:              l.Name(),
			Size:              g.Size,
			NumSets:           g.NumSets,
			Ways:              g.Ways,
			BlockSize:         g.BlockSize,
			WritePolicy:       l.WritePolicy().String(),
			AllocatePolicy:    l.AllocatePolicy().String(),
			ReplacementPolicy: l.ReplacementPolicy().String(),
		})
	}

	m.lock.Lock()
	m.levels = levels
	m.stats = c.Stats()
	m.lock.Unlock()

	m.accessBar = m.CreateProgressBar("Accesses", totalAccesses)

	c.AcceptHook(m)
}

// Func publishes the statistics carried by the hook context.
func (m *Monitor) Func(ctx sim.HookCtx) {
	if ctx.Pos != hierarchy.HookPosAccess && ctx.Pos != hierarchy.HookPosDrain {
		return
	}

	stats, ok := ctx.Detail.(hierarchy.Statistics)
	if !ok {
		return
	}

	m.lock.Lock()
	m.stats = stats
	m.lock.Unlock()

	if ctx.Pos == hierarchy.HookPosAccess && m.accessBar != nil {
		m.accessBar.IncrementFinished(1)
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves the monitoring API and pages.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	fs := web.GetAssets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/stats", m.reportStats)
	r.HandleFunc("/api/list_levels", m.listLevels)
	r.HandleFunc("/api/level/{name}", m.levelDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server and returns its URL. A
// random port is used unless a port number has been set.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != http.ErrServerClosed {
			dieOnErr(err)
		}
	}()

	return url, nil
}

// OpenInBrowser opens the monitoring page in the default browser.
func (m *Monitor) OpenInBrowser(url string) error {
	return browser.OpenURL(url)
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return m.server.Shutdown(ctx)
}

func (m *Monitor) snapshot() ([]levelInfo, hierarchy.Statistics) {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.levels, m.stats
}

func (m *Monitor) listLevels(w http.ResponseWriter, _ *http.Request) {
	levels, _ := m.snapshot()

	names := make([]string, 0, len(levels))
	for _, l := range levels {
		names = append(names, l.Name)
	}

	bytes, err := json.Marshal(names)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) levelDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	status := m.findLevelOr404(w, name)
	if status == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(status)
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findLevelOr404(
	w http.ResponseWriter,
	name string,
) *levelStatus {
	levels, stats := m.snapshot()

	for _, l := range levels {
		if l.Name != name {
			continue
		}

		return &levelStatus{
			levelInfo:  l,
			Hits:       stats.Hits(l.ID),
			Misses:     stats.Misses(l.ID),
			HitRatio:   stats.HitRatio(l.ID),
			WriteBacks: stats.WriteBacks(l.ID),
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Level not found"))
	dieOnErr(err)

	return nil
}

type levelStatsRsp struct {
	Name       string  `json:"name"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	HitRatio   float64 `json:"hit_ratio"`
	WriteBacks uint64  `json:"write_backs"`
}

type statsRsp struct {
	Records          uint64          `json:"records"`
	Reads            uint64          `json:"reads"`
	Writes           uint64          `json:"writes"`
	ReadRatio        float64         `json:"read_ratio"`
	MemoryReads      uint64          `json:"memory_reads"`
	MemoryWrites     uint64          `json:"memory_writes"`
	MemoryReferences uint64          `json:"memory_references"`
	Levels           []levelStatsRsp `json:"levels"`
}

func (m *Monitor) reportStats(w http.ResponseWriter, _ *http.Request) {
	levels, stats := m.snapshot()

	rsp := statsRsp{
		Records:          stats.Records(),
		Reads:            stats.Reads(),
		Writes:           stats.Writes(),
		ReadRatio:        stats.ReadRatio(),
		MemoryReads:      stats.MemoryReads(),
		MemoryWrites:     stats.MemoryWrites(),
		MemoryReferences: stats.MemoryReferences(),
		Levels:           make([]levelStatsRsp, 0, len(levels)),
	}

	for _, l := range levels {
		rsp.Levels = append(rsp.Levels, levelStatsRsp{
			Name:       l.Name,
			Hits:       stats.Hits(l.ID),
			Misses:     stats.Misses(l.ID),
			HitRatio:   stats.HitRatio(l.ID),
			WriteBacks: stats.WriteBacks(l.ID),
		})
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	bytes, err := json.Marshal(bars)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
