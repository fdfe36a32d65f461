package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/ptsim/mem/vm"
	"github.com/sarchlab/ptsim/report"
)

// Manager is the part of a virtual memory manager that the commands drive.
type Manager interface {
	NewProcess(pid vm.PID, pageCount int) (vm.Process, error)
	KillProcess(pid vm.PID) error
	StoreByte(pid vm.PID, vAddr vm.VAddr, value byte) (vm.Access, error)
	LoadByte(pid vm.PID, vAddr vm.VAddr) (vm.Access, error)
	FreeMap() []bool
	PageTableEntries(pid vm.PID) ([]vm.PageTableEntry, error)
}

// An Executor runs commands against a manager and prints their results.
type Executor struct {
	manager Manager
	out     io.Writer
}

// NewExecutor creates an executor that prints to out.
func NewExecutor(manager Manager, out io.Writer) *Executor {
	return &Executor{manager: manager, out: out}
}

// Run parses and executes the commands of a command line in order. It stops
// at the first word that cannot be parsed, after the commands before it have
// run.
func (e *Executor) Run(args []string) error {
	for len(args) > 0 {
		cmd, rest, err := Next(args)
		if err != nil {
			return err
		}

		err = e.Execute(cmd)
		if err != nil {
			return err
		}

		args = rest
	}

	return nil
}

// Execute runs a single command. A failure of the manager is printed and
// does not make Execute fail. Only errors writing the output are returned.
func (e *Executor) Execute(cmd Command) error {
	switch cmd.Name {
	case NewProcess:
		_, err := e.manager.NewProcess(cmd.PID, cmd.PageCount)
		return e.report(err)
	case KillProcess:
		return e.report(e.manager.KillProcess(cmd.PID))
	case StoreByte:
		access, err := e.manager.StoreByte(cmd.PID, cmd.VAddr, cmd.Value)
		if err != nil {
			return e.report(err)
		}

		return e.printAccess("Store", access)
	case LoadByte:
		access, err := e.manager.LoadByte(cmd.PID, cmd.VAddr)
		if err != nil {
			return e.report(err)
		}

		return e.printAccess("Load", access)
	case PrintFreeMap:
		return report.WriteFreeMap(e.out, e.manager.FreeMap())
	case PrintPageTable:
		entries, err := e.manager.PageTableEntries(cmd.PID)
		if err != nil {
			return e.report(err)
		}

		return report.WritePageTable(e.out, cmd.PID, entries)
	default:
		return fmt.Errorf("'%s' %w", cmd.Name, ErrUnknownCommand)
	}
}

func (e *Executor) printAccess(what string, a vm.Access) error {
	_, err := fmt.Fprintf(e.out, "%s proc %d: %d => %d, value=%d\n",
		what, a.PID, uint16(a.VAddr), uint32(a.PAddr), a.Value)

	return err
}

// report prints a manager failure. An OOM is printed once per page that
// could not be allocated.
func (e *Executor) report(err error) error {
	if err == nil {
		return nil
	}

	var oom *vm.OOMError
	if errors.As(err, &oom) {
		for i := 0; i < oom.Count; i++ {
			_, werr := fmt.Fprintf(e.out, "OOM: proc %d: %s\n", oom.PID, oom.Kind)
			if werr != nil {
				return werr
			}
		}

		return nil
	}

	_, werr := fmt.Fprintln(e.out, err)

	return werr
}
