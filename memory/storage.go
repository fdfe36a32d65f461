// Package memory provides the physical memory store of the simulator.
package memory

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when an access falls outside of the storage.
var ErrOutOfRange = errors.New("accessing physical address beyond the storage capacity")

// A Storage keeps the bytes of the simulated physical memory.
//
// Unlike a sparse backing store, the whole capacity is allocated up front and
// zero-filled, so that every address in [0, Capacity()) is always readable.
// The storage itself knows nothing about pages. Callers partition it.
type Storage struct {
	capacity uint64
	data     []byte
}

// NewStorage creates a zero-filled storage object with the specified
// capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.capacity = capacity
	storage.data = make([]byte, capacity)

	return storage
}

// Capacity returns the number of bytes that the storage holds.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) mustBeInRange(address, length uint64) error {
	if address >= s.capacity || length > s.capacity-address {
		return fmt.Errorf("%w: 0x%x (+%d)", ErrOutOfRange, address, length)
	}

	return nil
}

// ReadByteAt returns the byte at the given address.
func (s *Storage) ReadByteAt(address uint64) (byte, error) {
	err := s.mustBeInRange(address, 1)
	if err != nil {
		return 0, err
	}

	return s.data[address], nil
}

// WriteByteAt sets the byte at the given address.
func (s *Storage) WriteByteAt(address uint64, value byte) error {
	err := s.mustBeInRange(address, 1)
	if err != nil {
		return err
	}

	s.data[address] = value

	return nil
}

// Read returns a copy of length bytes starting at address.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	err := s.mustBeInRange(address, length)
	if err != nil {
		return nil, err
	}

	res := make([]byte, length)
	copy(res, s.data[address:address+length])

	return res, nil
}

// Write copies data into the storage starting at address. Nothing is written
// if any part of the data would fall outside the storage.
func (s *Storage) Write(address uint64, data []byte) error {
	err := s.mustBeInRange(address, uint64(len(data)))
	if err != nil {
		return err
	}

	copy(s.data[address:], data)

	return nil
}

// Fill sets length bytes starting at address to value.
func (s *Storage) Fill(address uint64, length uint64, value byte) error {
	err := s.mustBeInRange(address, length)
	if err != nil {
		return err
	}

	region := s.data[address : address+length]
	for i := range region {
		region[i] = value
	}

	return nil
}
