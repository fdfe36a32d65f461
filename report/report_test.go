package report_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ptsim/mem/vm"
	"github.com/sarchlab/ptsim/report"
)

var _ = Describe("WriteFreeMap", func() {
	var (
		manager *vm.Manager
		buf     *bytes.Buffer
	)

	BeforeEach(func() {
		manager = vm.NewManager()
		buf = new(bytes.Buffer)
	})

	It("should show only page 0 used on a fresh manager", func() {
		Expect(report.WriteFreeMap(buf, manager.FreeMap())).To(Succeed())

		Expect(buf.String()).To(Equal(
			"--- PAGE FREE MAP ---\n" +
				"#...............\n" +
				"................\n" +
				"................\n" +
				"................\n"))
	})

	It("should count one cell per allocated page", func() {
		_, err := manager.NewProcess(3, 20)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.WriteFreeMap(buf, manager.FreeMap())).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(5))
		Expect(lines[1]).To(Equal("################"))
		Expect(lines[2]).To(Equal("######.........."))
		Expect(strings.Count(buf.String(), "#")).
			To(Equal(manager.NumAllocatedPages()))
	})
})

var _ = Describe("WritePageTable", func() {
	It("should list mapped entries in hex", func() {
		manager := vm.NewManager()
		_, err := manager.NewProcess(1, 18)
		Expect(err).NotTo(HaveOccurred())

		entries, err := manager.PageTableEntries(1)
		Expect(err).NotTo(HaveOccurred())

		buf := new(bytes.Buffer)
		Expect(report.WritePageTable(buf, 1, entries)).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(19))
		Expect(lines[0]).To(Equal("--- PROCESS 1 PAGE TABLE ---"))
		Expect(lines[1]).To(Equal("00 -> 02"))
		Expect(lines[18]).To(Equal("11 -> 13"))
	})

	It("should skip unmapped entries", func() {
		buf := new(bytes.Buffer)
		entries := []vm.PageTableEntry{{Index: 0x0a, Page: 0x3f}}

		Expect(report.WritePageTable(buf, 7, entries)).To(Succeed())

		Expect(buf.String()).To(Equal(
			"--- PROCESS 7 PAGE TABLE ---\n0a -> 3f\n"))
	})
})
