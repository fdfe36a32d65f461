package simulation

import (
	"io"
	"log"
	"os"

	"github.com/rs/xid"
	"github.com/sarchlab/ptsim/command"
	"github.com/sarchlab/ptsim/config"
	"github.com/sarchlab/ptsim/datarecording"
	"github.com/sarchlab/ptsim/mem/trace"
	"github.com/sarchlab/ptsim/mem/vm"
	"github.com/sarchlab/ptsim/mem/vm/tlb"
	"github.com/sarchlab/ptsim/monitoring"
)

// Builder can be used to build a simulation.
type Builder struct {
	tlbSize        int
	traceDBOn      bool
	outputFileName string
	traceLogger    *log.Logger
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	output         io.Writer
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		tlbSize: config.DefaultTLBSize,
		output:  os.Stdout,
	}
}

// WithConfig applies the settings of a run.
func (b Builder) WithConfig(c config.Config) Builder {
	b.tlbSize = c.TLBSize
	b.traceDBOn = c.TraceDB != ""
	b.outputFileName = c.TraceDB
	b.monitorOn = c.Monitor
	b.monitorPort = c.MonitorPort
	b.openBrowser = c.OpenBrowser

	b.traceLogger = nil
	if c.TraceLog {
		b.traceLogger = log.New(os.Stderr, "", 0)
	}

	return b
}

// WithTLBSize sets the number of cached translations. 0 disables the cache.
func (b Builder) WithTLBSize(n int) Builder {
	b.tlbSize = n
	return b
}

// WithDBTracing records every event of the manager into a SQLite database.
func (b Builder) WithDBTracing() Builder {
	b.traceDBOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithTraceLogger writes every event of the manager into the logger.
func (b Builder) WithTraceLogger(logger *log.Logger) Builder {
	b.traceLogger = logger
	return b
}

// WithMonitoring serves the state of the simulation over HTTP.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOpenBrowser opens the monitoring page once the server is up.
func (b Builder) WithOpenBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithOutput sets where the command results are printed.
func (b Builder) WithOutput(w io.Writer) Builder {
	b.output = w
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.tlbSize < 0 {
		panic("TLB size cannot be negative")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.monitorOn && b.openBrowser {
		panic("browser cannot be opened when monitoring is disabled")
	}

	if !b.traceDBOn && b.outputFileName != "" {
		panic("output file cannot be set when database tracing is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{}
	s.id = xid.New().String()

	vmBuilder := vm.MakeBuilder()

	if b.tlbSize > 0 {
		t, err := tlb.New(b.tlbSize)
		if err != nil {
			panic(err)
		}

		s.tlb = t
		vmBuilder = vmBuilder.WithTranslationCache(t)
	}

	if b.traceDBOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "ptsim_sim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		vmBuilder = vmBuilder.WithHook(trace.NewDBTracer(s.dataRecorder))
	}

	if b.traceLogger != nil {
		vmBuilder = vmBuilder.WithHook(trace.NewTracer(b.traceLogger))
	}

	s.manager = vmBuilder.Build()
	s.executor = command.NewExecutor(s.manager, b.output)

	if b.monitorOn {
		b.startMonitor(s)
	}

	return s
}

func (b Builder) startMonitor(s *Simulation) {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterManager(s.manager)
	if s.tlb != nil {
		s.monitor.RegisterTLB(s.tlb)
	}

	s.monitor.StartServer()

	if b.openBrowser {
		err := s.monitor.OpenInBrowser()
		if err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}
}
