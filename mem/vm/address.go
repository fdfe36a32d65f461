// Package vm implements a paged virtual memory manager over a small fixed
// physical memory.
//
// Physical page 0 is reserved by the manager. Its first PageCount bytes form
// the allocation bitmap, and the PageCount bytes that follow hold, for each
// process slot, the physical page number of the process's page table. Each
// page table is a single physical page whose first PageCount bytes map a
// virtual page index to a physical page number, with 0 meaning unmapped.
package vm

import "fmt"

const (
	// Log2PageSize is the number of offset bits in an address.
	Log2PageSize = 8

	// PageSize is the number of bytes in a page.
	PageSize = 1 << Log2PageSize

	// PageCount is the number of physical pages. It also bounds the number of
	// process slots and the number of entries in a page table.
	PageCount = 64

	// MemSize is the size of the physical memory in bytes.
	MemSize = PageSize * PageCount

	// PTPOffset is where, inside page 0, the page table pointer table starts.
	PTPOffset = 64
)

// PID stands for Process ID.
type PID uint32

// Valid tells if the PID can name a process slot.
func (p PID) Valid() bool {
	return p < PageCount
}

// PageNum is the number of a physical page.
type PageNum uint8

// Addr returns the physical address of the first byte of the page.
func (p PageNum) Addr() PAddr {
	return MakePAddr(p, 0)
}

// VAddr is a virtual address, as seen by a process.
type VAddr uint16

// Page returns the virtual page index of the address.
func (a VAddr) Page() uint8 {
	return uint8(a >> Log2PageSize)
}

// Offset returns the in-page offset of the address.
func (a VAddr) Offset() uint8 {
	return uint8(a & (PageSize - 1))
}

// PAddr is an address in the physical memory.
type PAddr uint32

// MakePAddr composes a physical address from a page number and an offset.
func MakePAddr(page PageNum, offset uint8) PAddr {
	return PAddr(page)<<Log2PageSize | PAddr(offset)
}

// Page returns the physical page number that holds the address.
func (a PAddr) Page() PageNum {
	return PageNum(a >> Log2PageSize)
}

// Offset returns the in-page offset of the address.
func (a PAddr) Offset() uint8 {
	return uint8(a & (PageSize - 1))
}

func (a PAddr) String() string {
	return fmt.Sprintf("0x%04x", uint32(a))
}
