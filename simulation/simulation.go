// Package simulation puts together the pieces of a simulation run.
package simulation

import (
	"strings"

	"github.com/sarchlab/ptsim/command"
	"github.com/sarchlab/ptsim/datarecording"
	"github.com/sarchlab/ptsim/mem/vm"
	"github.com/sarchlab/ptsim/mem/vm/tlb"
	"github.com/sarchlab/ptsim/monitoring"
)

// A Simulation owns a virtual memory manager and everything that observes
// it.
type Simulation struct {
	id string

	manager      *vm.Manager
	tlb          *tlb.TLB
	executor     *command.Executor
	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetManager returns the virtual memory manager.
func (s *Simulation) GetManager() *vm.Manager {
	return s.manager
}

// GetTLB returns the translation cache, or nil if caching is off.
func (s *Simulation) GetTLB() *tlb.TLB {
	return s.tlb
}

// GetDataRecorder returns the data recorder, or nil if database tracing is
// off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// Run executes a command line. It stops at the first word that is not a
// valid command.
func (s *Simulation) Run(args []string) error {
	var bar *monitoring.ProgressBar
	if s.monitor != nil {
		bar = s.monitor.CreateProgressBar("commands", uint64(len(args)))
		defer s.monitor.CompleteProgressBar(bar)
	}

	for len(args) > 0 {
		cmd, rest, err := command.Next(args)
		if err != nil {
			return err
		}

		err = s.executor.Execute(cmd)
		if err != nil {
			return err
		}

		if bar != nil {
			bar.IncrementFinished(uint64(len(args) - len(rest)))
		}

		args = rest
	}

	return nil
}

// RunLine executes the commands written on one line of text.
func (s *Simulation) RunLine(line string) error {
	return s.Run(strings.Fields(line))
}

// Terminate flushes the recorded data and releases the resources of the
// simulation.
func (s *Simulation) Terminate() {
	if s.monitor != nil {
		s.monitor.StopServer()
	}

	if s.dataRecorder != nil {
		err := s.dataRecorder.Close()
		if err != nil {
			panic(err)
		}
	}

	if s.tlb != nil {
		s.tlb.Close()
	}
}
