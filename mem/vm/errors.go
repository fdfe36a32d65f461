package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory means that no free physical page is left.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInvalidProcess is returned for a PID outside of [0, PageCount).
	ErrInvalidProcess = errors.New("invalid process number")

	// ErrNoSuchProcess is returned for a valid PID that has no page table.
	ErrNoSuchProcess = errors.New("no such process")

	// ErrProcessExists is returned when creating a process whose slot is
	// already taken.
	ErrProcessExists = errors.New("process already exists")

	// ErrInvalidPageCount is returned when a process asks for more pages than
	// a page table can map.
	ErrInvalidPageCount = errors.New("invalid page count")

	// ErrUnmappedPage is returned when translating an address whose virtual
	// page has no physical page.
	ErrUnmappedPage = errors.New("unmapped page")

	// ErrAddressOutOfRange is returned when the virtual page index of an
	// address is beyond the span of a page table.
	ErrAddressOutOfRange = errors.New("virtual address out of range")
)

// OOMKind tells which allocation of a process creation ran out of memory.
type OOMKind string

// The allocations that can fail during process creation.
const (
	OOMPageTable OOMKind = "page table"
	OOMDataPage  OOMKind = "data page"
)

// An OOMError reports the allocations that failed while creating a process.
// It matches ErrOutOfMemory with errors.Is.
type OOMError struct {
	PID   PID
	Kind  OOMKind
	Count int
}

func (e *OOMError) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("OOM: proc %d: %s (x%d)", e.PID, e.Kind, e.Count)
	}

	return fmt.Sprintf("OOM: proc %d: %s", e.PID, e.Kind)
}

// Unwrap makes OOMError match ErrOutOfMemory.
func (e *OOMError) Unwrap() error {
	return ErrOutOfMemory
}
