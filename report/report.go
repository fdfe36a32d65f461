// Package report renders the state of a virtual memory manager as text.
package report

import (
	"fmt"
	"io"

	"github.com/sarchlab/ptsim/mem/vm"
)

const cellsPerLine = 16

// WriteFreeMap prints the allocation state of every physical page, with `.`
// for a free page and `#` for a used one.
func WriteFreeMap(w io.Writer, freeMap []bool) error {
	_, err := fmt.Fprintln(w, "--- PAGE FREE MAP ---")
	if err != nil {
		return err
	}

	line := make([]byte, 0, cellsPerLine+1)

	for i, used := range freeMap {
		if used {
			line = append(line, '#')
		} else {
			line = append(line, '.')
		}

		if (i+1)%cellsPerLine == 0 || i == len(freeMap)-1 {
			line = append(line, '\n')

			if _, err := w.Write(line); err != nil {
				return err
			}

			line = line[:0]
		}
	}

	return nil
}

// WritePageTable prints the mapped entries of the page table of a process
// as hexadecimal `index -> page` pairs.
func WritePageTable(w io.Writer, pid vm.PID, entries []vm.PageTableEntry) error {
	_, err := fmt.Fprintf(w, "--- PROCESS %d PAGE TABLE ---\n", pid)
	if err != nil {
		return err
	}

	for _, e := range entries {
		_, err = fmt.Fprintf(w, "%02x -> %02x\n", e.Index, uint8(e.Page))
		if err != nil {
			return err
		}
	}

	return nil
}
