package vm

import "github.com/sarchlab/ptsim/memory"

// A Process describes the pages held by a process.
type Process struct {
	PID PID

	// PageTable is the physical page holding the page table.
	PageTable PageNum

	// Pages lists the data pages by page table entry. A 0 marks an entry
	// that could not be mapped.
	Pages []PageNum
}

// A PageTableEntry is a mapped entry of a page table.
type PageTableEntry struct {
	Index uint8
	Page  PageNum
}

// processTable is the page table pointer table, stored in page 0 starting at
// PTPOffset, one byte per process slot. Slot value 0 means that the process
// has no page table, since page 0 is never handed out.
type processTable struct {
	storage memory.Controller
}

func (t processTable) pageTableOf(pid PID) PageNum {
	return PageNum(mustReadByte(t.storage, PTPOffset+uint64(pid)))
}

func (t processTable) setPageTable(pid PID, page PageNum) {
	mustWriteByte(t.storage, PTPOffset+uint64(pid), byte(page))
}

func (t processTable) entry(pageTable PageNum, index uint8) PageNum {
	addr := MakePAddr(pageTable, index)
	return PageNum(mustReadByte(t.storage, uint64(addr)))
}

func (t processTable) setEntry(pageTable PageNum, index uint8, page PageNum) {
	addr := MakePAddr(pageTable, index)
	mustWriteByte(t.storage, uint64(addr), byte(page))
}

func (t processTable) entries(pageTable PageNum) []PageTableEntry {
	var list []PageTableEntry

	for i := 0; i < PageCount; i++ {
		page := t.entry(pageTable, uint8(i))
		if page != 0 {
			list = append(list, PageTableEntry{Index: uint8(i), Page: page})
		}
	}

	return list
}

func (t processTable) processes() []PID {
	var pids []PID

	for pid := PID(0); pid < PageCount; pid++ {
		if t.pageTableOf(pid) != 0 {
			pids = append(pids, pid)
		}
	}

	return pids
}
