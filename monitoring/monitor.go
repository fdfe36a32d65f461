// Package monitoring serves the state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
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
	"github.com/sarchlab/ptsim/mem/vm"
	"github.com/sarchlab/ptsim/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// TLBStats reports the hit and miss counts of a translation cache.
type TLBStats interface {
	Stats() (hits, misses uint64)
}

// Monitor turns a simulation into a server that allows external inspection
// of the virtual memory manager.
type Monitor struct {
	manager    *vm.Manager
	tlb        TLBStats
	portNumber int
	server     *http.Server
	port       int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
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
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterManager sets the manager to inspect.
func (m *Monitor) RegisterManager(manager *vm.Manager) {
	m.manager = manager
}

// RegisterTLB sets the translation cache whose statistics are reported.
func (m *Monitor) RegisterTLB(tlb TLBStats) {
	m.tlb = tlb
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

// Handler returns the router that serves the monitoring API and pages.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/freemap", m.freeMap)
	r.HandleFunc("/api/processes", m.listProcesses)
	r.HandleFunc("/api/pagetable/{pid}", m.pageTable)
	r.HandleFunc("/api/translate/{pid}/{vaddr}", m.translate)
	r.HandleFunc("/api/tlb", m.tlbStats)
	r.HandleFunc("/api/manager", m.managerDetails)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server with a custom port if wanted.
func (m *Monitor) StartServer() {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.port = listener.Addr().(*net.TCPAddr).Port
	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.URL())

	go func() {
		err := m.server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()
}

// URL returns the address of the running server.
func (m *Monitor) URL() string {
	return fmt.Sprintf("http://localhost:%d", m.port)
}

// OpenInBrowser shows the monitoring page in the default browser.
func (m *Monitor) OpenInBrowser() error {
	return browser.OpenURL(m.URL())
}

// StopServer shuts the server down if it is running.
func (m *Monitor) StopServer() {
	if m.server == nil {
		return
	}

	err := m.server.Close()
	if err != nil {
		log.Printf("closing monitoring server: %v", err)
	}

	m.server = nil
}

type freeMapRsp struct {
	Pages     []bool `json:"pages"`
	Allocated int    `json:"allocated"`
}

func (m *Monitor) freeMap(w http.ResponseWriter, _ *http.Request) {
	pages := m.manager.FreeMap()

	rsp := freeMapRsp{Pages: pages}
	for _, used := range pages {
		if used {
			rsp.Allocated++
		}
	}

	writeJSON(w, rsp)
}

type processRsp struct {
	PID       vm.PID     `json:"pid"`
	PageTable vm.PageNum `json:"page_table"`
	Pages     int        `json:"pages"`
}

func (m *Monitor) listProcesses(w http.ResponseWriter, _ *http.Request) {
	rsp := []processRsp{}

	for _, pid := range m.manager.Processes() {
		pageTable, err := m.manager.GetPageTable(pid)
		if err != nil || pageTable == 0 {
			continue
		}

		entries, err := m.manager.PageTableEntries(pid)
		if err != nil {
			continue
		}

		rsp = append(rsp, processRsp{
			PID:       pid,
			PageTable: pageTable,
			Pages:     len(entries),
		})
	}

	writeJSON(w, rsp)
}

type entryRsp struct {
	Index uint8      `json:"index"`
	Page  vm.PageNum `json:"page"`
}

func (m *Monitor) pageTable(w http.ResponseWriter, r *http.Request) {
	pid, ok := parseVar(w, r, "pid", 32)
	if !ok {
		return
	}

	entries, err := m.manager.PageTableEntries(vm.PID(pid))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	rsp := make([]entryRsp, 0, len(entries))
	for _, e := range entries {
		rsp = append(rsp, entryRsp{Index: e.Index, Page: e.Page})
	}

	writeJSON(w, rsp)
}

type translateRsp struct {
	PID   vm.PID   `json:"pid"`
	VAddr vm.VAddr `json:"vaddr"`
	PAddr vm.PAddr `json:"paddr"`
	Page  uint8    `json:"page"`
}

func (m *Monitor) translate(w http.ResponseWriter, r *http.Request) {
	pid, ok := parseVar(w, r, "pid", 32)
	if !ok {
		return
	}

	vAddr, ok := parseVar(w, r, "vaddr", 16)
	if !ok {
		return
	}

	pAddr, err := m.manager.Translate(vm.PID(pid), vm.VAddr(vAddr))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeJSON(w, translateRsp{
		PID:   vm.PID(pid),
		VAddr: vm.VAddr(vAddr),
		PAddr: pAddr,
		Page:  uint8(pAddr.Page()),
	})
}

type tlbRsp struct {
	Enabled bool   `json:"enabled"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

func (m *Monitor) tlbStats(w http.ResponseWriter, _ *http.Request) {
	rsp := tlbRsp{}

	if m.tlb != nil {
		rsp.Enabled = true
		rsp.Hits, rsp.Misses = m.tlb.Stats()
	}

	writeJSON(w, rsp)
}

func (m *Monitor) managerDetails(w http.ResponseWriter, _ *http.Request) {
	m.manager.Lock()
	defer m.manager.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.manager)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	rsp := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		b.Lock()
		rsp = append(rsp, progressRsp{
			ID:        b.ID,
			Name:      b.Name,
			StartTime: b.StartTime,
			Total:     b.Total,
			Finished:  b.Finished,
		})
		b.Unlock()
	}

	writeJSON(w, rsp)
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

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func parseVar(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	bitSize int,
) (uint64, bool) {
	s := mux.Vars(r)[name]

	v, err := strconv.ParseUint(s, 0, bitSize)
	if err != nil {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("invalid %s %q", name, s))
		return 0, false
	}

	return v, true
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	_, werr := w.Write([]byte(err.Error()))
	dieOnErr(werr)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
