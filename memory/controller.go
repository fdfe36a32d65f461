package memory

// A Controller is what the virtual memory manager needs from a physical
// memory. Storage is the default implementation.
type Controller interface {
	Capacity() uint64
	ReadByteAt(address uint64) (byte, error)
	WriteByteAt(address uint64, value byte) error
	Read(address uint64, length uint64) ([]byte, error)
	Fill(address uint64, length uint64, value byte) error
}

var _ Controller = (*Storage)(nil)
