// Package trace provides hooks that trace the activity of a virtual memory
// manager.
package trace

import (
	"log"

	"github.com/rs/xid"
	"github.com/sarchlab/ptsim/datarecording"
	"github.com/sarchlab/ptsim/mem/vm"
)

// AccessTable and PageEventTable are the tables that a DB tracer fills.
const (
	AccessTable    = "memory_access"
	PageEventTable = "page_event"
)

// AccessEntry represents a byte access in the database.
type AccessEntry struct {
	ID    string `ptsim_data:"index"`
	Step  uint64 `ptsim_data:"index"`
	Kind  string
	PID   uint32 `ptsim_data:"index"`
	VAddr uint16
	PAddr uint32
	Page  uint8 `ptsim_data:"index"`
	Value uint8
}

// PageEventEntry represents a page or process event in the database.
type PageEventEntry struct {
	ID    string `ptsim_data:"index"`
	Step  uint64 `ptsim_data:"index"`
	What  string `ptsim_data:"index"`
	PID   int64
	Page  int64
	Count int
}

// A tracer is a hook that logs the activity of a manager.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a hook that writes one line per event into the logger.
func NewTracer(logger *log.Logger) vm.Hook {
	return &tracer{logger: logger}
}

func (t *tracer) Func(ctx vm.HookCtx) {
	switch item := ctx.Item.(type) {
	case vm.Access:
		t.logger.Printf("%s, %d, 0x%04x, %s, %d\n",
			item.Kind, item.PID, uint16(item.VAddr), item.PAddr, item.Value)
	case vm.PageNum:
		t.logger.Printf("%s, %d\n", ctx.Pos.Name, item)
	case vm.Process:
		t.logger.Printf("%s, %d, %d, %v\n",
			ctx.Pos.Name, item.PID, item.PageTable, item.Pages)
	case *vm.OOMError:
		t.logger.Printf("%s, %d, %s\n", ctx.Pos.Name, item.PID, item.Kind)
	}
}

// A dbTracer is a hook that records the activity of a manager into a
// database using the data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
	step         uint64
}

// NewDBTracer creates a database-based tracer. It creates its tables in the
// data recorder.
func NewDBTracer(dataRecorder datarecording.DataRecorder) vm.Hook {
	t := &dbTracer{dataRecorder: dataRecorder}

	t.dataRecorder.CreateTable(AccessTable, AccessEntry{})
	t.dataRecorder.CreateTable(PageEventTable, PageEventEntry{})

	return t
}

func (t *dbTracer) Func(ctx vm.HookCtx) {
	t.step++

	switch item := ctx.Item.(type) {
	case vm.Access:
		t.dataRecorder.InsertData(AccessTable, AccessEntry{
			ID:    xid.New().String(),
			Step:  t.step,
			Kind:  string(item.Kind),
			PID:   uint32(item.PID),
			VAddr: uint16(item.VAddr),
			PAddr: uint32(item.PAddr),
			Page:  uint8(item.PAddr.Page()),
			Value: item.Value,
		})
	case vm.PageNum:
		t.insertEvent(ctx.Pos, -1, int64(item), 1)
	case vm.Process:
		t.insertEvent(ctx.Pos, int64(item.PID), int64(item.PageTable),
			len(item.Pages))
	case *vm.OOMError:
		t.insertEvent(ctx.Pos, int64(item.PID), -1, item.Count)
	}
}

func (t *dbTracer) insertEvent(pos *vm.HookPos, pid, page int64, count int) {
	t.dataRecorder.InsertData(PageEventTable, PageEventEntry{
		ID:    xid.New().String(),
		Step:  t.step,
		What:  pos.Name,
		PID:   pid,
		Page:  page,
		Count: count,
	})
}
