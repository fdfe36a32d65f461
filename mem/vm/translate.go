package vm

import "fmt"

// Translate converts a virtual address of a process to a physical address.
// It fails for an unmapped virtual page instead of falling back to page 0.
func (m *Manager) Translate(pid PID, vAddr VAddr) (PAddr, error) {
	m.Lock()
	defer m.Unlock()

	return m.translate(pid, vAddr)
}

func (m *Manager) translate(pid PID, vAddr VAddr) (PAddr, error) {
	pageTable, err := m.pageTableOf(pid)
	if err != nil {
		return 0, err
	}

	vPage := vAddr.Page()
	if int(vPage) >= PageCount {
		return 0, fmt.Errorf("%w: proc %d: 0x%04x",
			ErrAddressOutOfRange, pid, uint16(vAddr))
	}

	if m.cache != nil {
		page, found := m.cache.Lookup(pid, vPage)
		if found {
			return MakePAddr(page, vAddr.Offset()), nil
		}
	}

	page := m.procs.entry(pageTable, vPage)
	if page == 0 {
		return 0, fmt.Errorf("%w: proc %d: virtual page %d",
			ErrUnmappedPage, pid, vPage)
	}

	if m.cache != nil {
		m.cache.Insert(pid, vPage, page)
	}

	return MakePAddr(page, vAddr.Offset()), nil
}
