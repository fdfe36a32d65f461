package vm

import (
	"fmt"
	"sync"

	"github.com/sarchlab/ptsim/memory"
)

// A TranslationCache remembers recent virtual to physical page translations.
type TranslationCache interface {
	Lookup(pid PID, vPage uint8) (PageNum, bool)
	Insert(pid PID, vPage uint8, page PageNum)
	InvalidateProcess(pid PID)
}

// Manager owns a physical memory and manages the pages and page tables of
// the processes that live in it.
//
// All operations are serialized by a single lock, which covers the
// allocation bitmap, the page tables, the data pages and the translation
// cache.
type Manager struct {
	sync.Mutex
	HookableBase

	storage memory.Controller
	alloc   allocator
	procs   processTable
	cache   TranslationCache
}

// AllocatePage takes the lowest free physical page. It returns
// ErrOutOfMemory if all pages are in use.
func (m *Manager) AllocatePage() (PageNum, error) {
	m.Lock()
	defer m.Unlock()

	return m.allocatePage()
}

// DeallocatePage releases a physical page. Page numbers outside of the
// memory and the reserved page 0 are ignored.
func (m *Manager) DeallocatePage(page PageNum) {
	m.Lock()
	defer m.Unlock()

	m.deallocatePage(page)
}

func (m *Manager) allocatePage() (PageNum, error) {
	page, err := m.alloc.allocate()
	if err != nil {
		return 0, err
	}

	m.InvokeHook(HookCtx{Domain: m, Pos: HookPosPageAlloc, Item: page})

	return page, nil
}

func (m *Manager) deallocatePage(page PageNum) {
	if m.alloc.deallocate(page) {
		m.InvokeHook(HookCtx{Domain: m, Pos: HookPosPageFree, Item: page})
	}
}

// releasePage clears the content of a page and gives it back.
func (m *Manager) releasePage(page PageNum) {
	if page == 0 || int(page) >= PageCount {
		return
	}

	m.clearPage(page)
	m.deallocatePage(page)
}

func (m *Manager) clearPage(page PageNum) {
	err := m.storage.Fill(uint64(page.Addr()), PageSize, 0)
	if err != nil {
		panic(err)
	}
}

// NewProcess creates the page table of a process and maps pageCount data
// pages to its virtual pages 0 to pageCount-1.
//
// If the page table cannot be allocated, nothing is changed and an *OOMError
// is returned. If some data pages cannot be allocated, the entries that could
// not be mapped stay unmapped, the others are kept, and an *OOMError that
// counts the failed pages is returned together with the process.
func (m *Manager) NewProcess(pid PID, pageCount int) (Process, error) {
	m.Lock()
	defer m.Unlock()

	if !pid.Valid() {
		return Process{}, fmt.Errorf("%w: %d", ErrInvalidProcess, pid)
	}

	if pageCount < 0 || pageCount > PageCount {
		return Process{}, fmt.Errorf("%w: %d", ErrInvalidPageCount, pageCount)
	}

	if m.procs.pageTableOf(pid) != 0 {
		return Process{}, fmt.Errorf("%w: %d", ErrProcessExists, pid)
	}

	pageTable, err := m.allocatePage()
	if err != nil {
		return Process{PID: pid}, m.reportOOM(pid, OOMPageTable, -1)
	}

	m.clearPage(pageTable)
	m.procs.setPageTable(pid, pageTable)

	proc := Process{
		PID:       pid,
		PageTable: pageTable,
		Pages:     make([]PageNum, pageCount),
	}

	failed := 0
	for i := 0; i < pageCount; i++ {
		page, err := m.allocatePage()
		if err != nil {
			m.reportOOM(pid, OOMDataPage, i)
			failed++

			continue
		}

		m.procs.setEntry(pageTable, uint8(i), page)
		proc.Pages[i] = page
	}

	m.InvokeHook(HookCtx{Domain: m, Pos: HookPosProcessCreate, Item: proc})

	if failed > 0 {
		return proc, &OOMError{PID: pid, Kind: OOMDataPage, Count: failed}
	}

	return proc, nil
}

func (m *Manager) reportOOM(pid PID, kind OOMKind, entry int) *OOMError {
	oom := &OOMError{PID: pid, Kind: kind, Count: 1}

	m.InvokeHook(HookCtx{Domain: m, Pos: HookPosOOM, Item: oom, Detail: entry})

	return oom
}

// KillProcess releases every page that the page table of the process maps,
// whether or not it was mapped at creation, and then the page table itself.
func (m *Manager) KillProcess(pid PID) error {
	m.Lock()
	defer m.Unlock()

	pageTable, err := m.pageTableOf(pid)
	if err != nil {
		return err
	}

	proc := Process{PID: pid, PageTable: pageTable}

	for i := 0; i < PageCount; i++ {
		page := m.procs.entry(pageTable, uint8(i))
		if page == 0 {
			continue
		}

		proc.Pages = append(proc.Pages, page)
		m.releasePage(page)
	}

	m.releasePage(pageTable)
	m.procs.setPageTable(pid, 0)

	if m.cache != nil {
		m.cache.InvalidateProcess(pid)
	}

	m.InvokeHook(HookCtx{Domain: m, Pos: HookPosProcessKill, Item: proc})

	return nil
}

// GetPageTable returns the physical page that holds the page table of the
// process, or 0 if the process does not exist.
func (m *Manager) GetPageTable(pid PID) (PageNum, error) {
	m.Lock()
	defer m.Unlock()

	if !pid.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidProcess, pid)
	}

	return m.procs.pageTableOf(pid), nil
}

// pageTableOf returns the page table of a live process.
func (m *Manager) pageTableOf(pid PID) (PageNum, error) {
	if !pid.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidProcess, pid)
	}

	pageTable := m.procs.pageTableOf(pid)
	if pageTable == 0 {
		return 0, fmt.Errorf("%w: %d", ErrNoSuchProcess, pid)
	}

	return pageTable, nil
}

// PageTableEntries returns the mapped entries of the page table of a process
// in index order.
func (m *Manager) PageTableEntries(pid PID) ([]PageTableEntry, error) {
	m.Lock()
	defer m.Unlock()

	pageTable, err := m.pageTableOf(pid)
	if err != nil {
		return nil, err
	}

	return m.procs.entries(pageTable), nil
}

// Processes returns the PIDs of the live processes in ascending order.
func (m *Manager) Processes() []PID {
	m.Lock()
	defer m.Unlock()

	return m.procs.processes()
}

// FreeMap returns, for each physical page, whether it is allocated.
func (m *Manager) FreeMap() []bool {
	m.Lock()
	defer m.Unlock()

	return m.alloc.freeMap()
}

// IsAllocated tells if a physical page is in use.
func (m *Manager) IsAllocated(page PageNum) bool {
	m.Lock()
	defer m.Unlock()

	return m.alloc.isAllocated(page)
}

// NumAllocatedPages returns the number of physical pages in use, including
// the reserved page 0.
func (m *Manager) NumAllocatedPages() int {
	m.Lock()
	defer m.Unlock()

	return m.alloc.numAllocated()
}
