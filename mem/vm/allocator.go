package vm

import (
	"fmt"

	"github.com/sarchlab/ptsim/memory"
)

// allocator keeps the allocation bitmap in the first PageCount bytes of
// page 0, one byte per physical page.
type allocator struct {
	storage memory.Controller
}

func (a allocator) init() {
	a.mark(0, true)
}

func (a allocator) isAllocated(page PageNum) bool {
	if int(page) >= PageCount {
		return false
	}

	return mustReadByte(a.storage, uint64(page)) != 0
}

func (a allocator) mark(page PageNum, allocated bool) {
	var v byte
	if allocated {
		v = 1
	}

	mustWriteByte(a.storage, uint64(page), v)
}

// allocate returns the lowest free page and marks it allocated.
func (a allocator) allocate() (PageNum, error) {
	for i := 1; i < PageCount; i++ {
		page := PageNum(i)
		if !a.isAllocated(page) {
			a.mark(page, true)
			return page, nil
		}
	}

	return 0, ErrOutOfMemory
}

// deallocate releases the page. It reports if anything was released. Pages
// outside of the memory are ignored, and so is the reserved page 0.
func (a allocator) deallocate(page PageNum) bool {
	if page == 0 || int(page) >= PageCount {
		return false
	}

	wasAllocated := a.isAllocated(page)
	a.mark(page, false)

	return wasAllocated
}

func (a allocator) freeMap() []bool {
	bitmap, err := a.storage.Read(0, PageCount)
	if err != nil {
		panic(err)
	}

	used := make([]bool, PageCount)
	for i, b := range bitmap {
		used[i] = b != 0
	}

	return used
}

func (a allocator) numAllocated() int {
	n := 0
	for _, used := range a.freeMap() {
		if used {
			n++
		}
	}

	return n
}

func mustReadByte(storage memory.Controller, addr uint64) byte {
	v, err := storage.ReadByteAt(addr)
	if err != nil {
		panic(fmt.Sprintf("physical memory is smaller than expected: %v", err))
	}

	return v
}

func mustWriteByte(storage memory.Controller, addr uint64, v byte) {
	err := storage.WriteByteAt(addr, v)
	if err != nil {
		panic(fmt.Sprintf("physical memory is smaller than expected: %v", err))
	}
}
