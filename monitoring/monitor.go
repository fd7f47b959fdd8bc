// Package monitoring turns a running simulation into a small HTTP server
// so that the run can be observed and controlled from outside.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"

	"github.com/arenasim/arena/sim"
)

// Monitor exposes the engine lifecycle and the bus statistics over HTTP.
type Monitor struct {
	engine     *sim.SimulationEngine
	portNumber int
	url        string
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e *sim.SimulationEngine) {
	m.engine = e
}

// URL returns the address the server listens on. It is empty before
// StartServer.
func (m *Monitor) URL() string {
	return m.url
}

// StartServer starts the monitor as a web server on a background
// goroutine and returns the listening URL.
func (m *Monitor) StartServer() string {
	r := mux.NewRouter()

	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/resume", m.resumeEngine)
	r.HandleFunc("/api/stop", m.stopEngine)
	r.HandleFunc("/api/step", m.stepEngine)
	r.HandleFunc("/api/bus", m.busStatistics)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	m.url = fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.url)

	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()

	return m.url
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	s := m.engine.Status()

	lastError := ""
	if s.LastError != nil {
		lastError = s.LastError.Error()
	}

	writeJSON(w, map[string]any{
		"state":              s.State.String(),
		"running":            s.Running,
		"paused":             s.Paused,
		"simulation_time":    float64(s.SimulationTime),
		"iteration_count":    s.IterationCount,
		"active_agents":      s.ActiveAgents,
		"consecutive_errors": s.ConsecutiveErrors,
		"last_error":         lastError,
		"metrics":            s.Metrics,
	})
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) resumeEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Resume()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) stopEngine(w http.ResponseWriter, _ *http.Request) {
	// Stop joins with a bounded timeout, so serving it inline is safe.
	m.engine.Stop()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) stepEngine(w http.ResponseWriter, _ *http.Request) {
	ok := m.engine.Step()

	writeJSON(w, map[string]any{"stepped": ok})
}

func (m *Monitor) busStatistics(w http.ResponseWriter, _ *http.Request) {
	stats := m.engine.Bus().Statistics()

	writeJSON(w, map[string]any{
		"events_published":  stats.EventsPublished,
		"events_processed":  stats.EventsProcessed,
		"events_dropped":    stats.EventsDropped,
		"queue_depth":       stats.QueueDepth,
		"handlers":          stats.HandlerCount,
		"filters":           stats.FilterCount,
		"avg_processing_ms": float64(stats.AvgProcessingTime.Microseconds()) / 1000,
	})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memInfo.RSS,
	})
}

// collectProfile samples the CPU for one second and returns the parsed
// profile as JSON.
func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	bytes, err := json.Marshal(v)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		panic(err)
	}
}
