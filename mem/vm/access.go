package vm

// AccessKind tells if an access reads or writes.
type AccessKind string

// Access kinds.
const (
	AccessLoad  AccessKind = "load"
	AccessStore AccessKind = "store"
)

// An Access records a completed byte access and the translation it used.
type Access struct {
	Kind  AccessKind
	PID   PID
	VAddr VAddr
	PAddr PAddr
	Value byte
}

// StoreByte writes value at a virtual address of a process.
func (m *Manager) StoreByte(pid PID, vAddr VAddr, value byte) (Access, error) {
	m.Lock()
	defer m.Unlock()

	pAddr, err := m.translate(pid, vAddr)
	if err != nil {
		return Access{}, err
	}

	mustWriteByte(m.storage, uint64(pAddr), value)

	access := Access{
		Kind:  AccessStore,
		PID:   pid,
		VAddr: vAddr,
		PAddr: pAddr,
		Value: value,
	}
	m.InvokeHook(HookCtx{Domain: m, Pos: HookPosStore, Item: access})

	return access, nil
}

// LoadByte reads the byte at a virtual address of a process.
func (m *Manager) LoadByte(pid PID, vAddr VAddr) (Access, error) {
	m.Lock()
	defer m.Unlock()

	pAddr, err := m.translate(pid, vAddr)
	if err != nil {
		return Access{}, err
	}

	access := Access{
		Kind:  AccessLoad,
		PID:   pid,
		VAddr: vAddr,
		PAddr: pAddr,
		Value: mustReadByte(m.storage, uint64(pAddr)),
	}
	m.InvokeHook(HookCtx{Domain: m, Pos: HookPosLoad, Item: access})

	return access, nil
}
