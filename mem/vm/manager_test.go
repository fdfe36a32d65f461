package vm

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Manager", func() {
	var (
		m *Manager
	)

	BeforeEach(func() {
		m = NewManager()
	})

	allocatedPages := func() []PageNum {
		var pages []PageNum
		for i, used := range m.FreeMap() {
			if used {
				pages = append(pages, PageNum(i))
			}
		}
		return pages
	}

	Context("new process", func() {
		It("should allocate the page table before the data pages", func() {
			proc, err := m.NewProcess(0, 2)

			Expect(err).ToNot(HaveOccurred())
			Expect(proc.PID).To(Equal(PID(0)))
			Expect(proc.PageTable).To(Equal(PageNum(1)))
			Expect(proc.Pages).To(Equal([]PageNum{2, 3}))

			pageTable, err := m.GetPageTable(0)
			Expect(err).ToNot(HaveOccurred())
			Expect(pageTable).To(Equal(PageNum(1)))

			entries, err := m.PageTableEntries(0)
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(Equal([]PageTableEntry{
				{Index: 0, Page: 2},
				{Index: 1, Page: 3},
			}))
		})

		It("should keep the layout of page 0", func() {
			_, _ = m.NewProcess(3, 1)

			bitmap, _ := m.storage.Read(0, 4)
			Expect(bitmap).To(Equal([]byte{1, 1, 1, 0}))

			slot, _ := m.storage.ReadByteAt(PTPOffset + 3)
			Expect(slot).To(Equal(byte(1)))

			entry, _ := m.storage.ReadByteAt(uint64(MakePAddr(1, 0)))
			Expect(entry).To(Equal(byte(2)))
		})

		It("should create a process without data pages", func() {
			proc, err := m.NewProcess(5, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(proc.Pages).To(BeEmpty())
			Expect(m.Processes()).To(Equal([]PID{5}))
		})

		It("should reject invalid process ids", func() {
			_, err := m.NewProcess(PageCount, 1)

			Expect(err).To(MatchError(ErrInvalidProcess))
			Expect(m.NumAllocatedPages()).To(Equal(1))
		})

		It("should reject invalid page counts", func() {
			_, err := m.NewProcess(0, PageCount+1)
			Expect(err).To(MatchError(ErrInvalidPageCount))

			_, err = m.NewProcess(0, -1)
			Expect(err).To(MatchError(ErrInvalidPageCount))

			Expect(m.NumAllocatedPages()).To(Equal(1))
		})

		It("should reject a process that already exists", func() {
			_, _ = m.NewProcess(0, 1)

			_, err := m.NewProcess(0, 1)

			Expect(err).To(MatchError(ErrProcessExists))
			Expect(allocatedPages()).To(Equal([]PageNum{0, 1, 2}))
		})

		It("should keep the pages it could allocate", func() {
			proc, err := m.NewProcess(0, PageCount)

			var oom *OOMError
			Expect(errors.As(err, &oom)).To(BeTrue())
			Expect(oom.Kind).To(Equal(OOMDataPage))
			Expect(oom.Count).To(Equal(2))
			Expect(err).To(MatchError(ErrOutOfMemory))

			Expect(proc.Pages[0]).To(Equal(PageNum(2)))
			Expect(proc.Pages[PageCount-3]).To(Equal(PageNum(PageCount - 1)))
			Expect(proc.Pages[PageCount-2]).To(Equal(PageNum(0)))
			Expect(proc.Pages[PageCount-1]).To(Equal(PageNum(0)))

			entries, _ := m.PageTableEntries(0)
			Expect(entries).To(HaveLen(PageCount - 2))
			Expect(m.NumAllocatedPages()).To(Equal(PageCount))
		})

		It("should not create anything if the page table cannot fit", func() {
			_, err := m.NewProcess(0, PageCount-2)
			Expect(err).ToNot(HaveOccurred())
			before := m.FreeMap()

			proc, err := m.NewProcess(1, 1)

			Expect(err).To(MatchError(ErrOutOfMemory))
			Expect(err.Error()).To(Equal("OOM: proc 1: page table"))
			Expect(proc.PageTable).To(Equal(PageNum(0)))
			Expect(m.FreeMap()).To(Equal(before))
			pageTable, _ := m.GetPageTable(1)
			Expect(pageTable).To(Equal(PageNum(0)))
		})

		It("should report each failed data page", func() {
			var failedEntries []int
			m.AcceptHook(HookFunc(func(ctx HookCtx) {
				if ctx.Pos == HookPosOOM {
					failedEntries = append(failedEntries, ctx.Detail.(int))
				}
			}))

			_, _ = m.NewProcess(7, PageCount)

			Expect(failedEntries).To(Equal([]int{PageCount - 2, PageCount - 1}))
		})
	})

	Context("kill process", func() {
		It("should release every page of the process", func() {
			_, _ = m.NewProcess(0, 2)

			err := m.KillProcess(0)

			Expect(err).ToNot(HaveOccurred())
			Expect(allocatedPages()).To(Equal([]PageNum{0}))
			Expect(m.Processes()).To(BeEmpty())
			pageTable, _ := m.GetPageTable(0)
			Expect(pageTable).To(Equal(PageNum(0)))
		})

		It("should not touch other processes", func() {
			_, _ = m.NewProcess(0, 2)
			_, _ = m.NewProcess(1, 3)
			_, _ = m.StoreByte(1, 0x0210, 42)

			_ = m.KillProcess(0)

			Expect(allocatedPages()).To(Equal([]PageNum{0, 4, 5, 6, 7}))
			access, err := m.LoadByte(1, 0x0210)
			Expect(err).ToNot(HaveOccurred())
			Expect(access.Value).To(Equal(byte(42)))
		})

		It("should release entries that were mapped later", func() {
			_, _ = m.NewProcess(0, 1)
			extra, _ := m.AllocatePage()
			m.procs.setEntry(1, PageCount-1, extra)

			_ = m.KillProcess(0)

			Expect(allocatedPages()).To(Equal([]PageNum{0}))
		})

		It("should clear released pages", func() {
			_, _ = m.NewProcess(0, 2)
			_, _ = m.StoreByte(0, 0x0005, 99)
			_ = m.KillProcess(0)

			_, _ = m.NewProcess(1, 2)

			access, _ := m.LoadByte(1, 0x0005)
			Expect(access.Value).To(Equal(byte(0)))
			entries, _ := m.PageTableEntries(1)
			Expect(entries).To(HaveLen(2))
		})

		It("should report the released pages", func() {
			var killed Process
			m.AcceptHook(HookFunc(func(ctx HookCtx) {
				if ctx.Pos == HookPosProcessKill {
					killed = ctx.Item.(Process)
				}
			}))
			_, _ = m.NewProcess(2, 3)

			_ = m.KillProcess(2)

			Expect(killed.PID).To(Equal(PID(2)))
			Expect(killed.PageTable).To(Equal(PageNum(1)))
			Expect(killed.Pages).To(Equal([]PageNum{2, 3, 4}))
		})

		It("should reject invalid process ids", func() {
			_, _ = m.NewProcess(0, 2)
			before := m.FreeMap()

			err := m.KillProcess(99)

			Expect(err).To(MatchError(ErrInvalidProcess))
			Expect(err.Error()).To(ContainSubstring("invalid process number"))
			Expect(m.FreeMap()).To(Equal(before))
		})

		It("should reject processes that do not exist", func() {
			err := m.KillProcess(3)

			Expect(err).To(MatchError(ErrNoSuchProcess))
		})
	})

	Context("get page table", func() {
		It("should return 0 for a free slot", func() {
			pageTable, err := m.GetPageTable(12)

			Expect(err).ToNot(HaveOccurred())
			Expect(pageTable).To(Equal(PageNum(0)))
		})

		It("should reject invalid process ids", func() {
			_, err := m.GetPageTable(PageCount)
			Expect(err).To(MatchError(ErrInvalidProcess))

			_, err = m.PageTableEntries(PageCount)
			Expect(err).To(MatchError(ErrInvalidProcess))
		})
	})

	Context("builder", func() {
		It("should refuse a memory that is too small", func() {
			small := newTestStorage(MemSize - 1)

			Expect(func() { MakeBuilder().WithStorage(small).Build() }).To(Panic())
		})

		It("should clear the memory it is given", func() {
			storage := newTestStorage(MemSize)
			_ = storage.Fill(0, MemSize, 0xee)

			m := MakeBuilder().WithStorage(storage).Build()

			Expect(m.NumAllocatedPages()).To(Equal(1))
			b, _ := storage.ReadByteAt(MemSize - 1)
			Expect(b).To(Equal(byte(0)))
		})

		It("should register hooks", func() {
			m := MakeBuilder().
				WithHook(HookFunc(func(HookCtx) {})).
				Build()

			Expect(m.NumHooks()).To(Equal(1))
		})
	})
})
