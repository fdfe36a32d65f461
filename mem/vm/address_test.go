package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Addresses", func() {
	It("should split a virtual address", func() {
		vAddr := VAddr(0x1234)

		Expect(vAddr.Page()).To(Equal(uint8(0x12)))
		Expect(vAddr.Offset()).To(Equal(uint8(0x34)))
	})

	It("should compose a physical address", func() {
		pAddr := MakePAddr(5, 0x2a)

		Expect(pAddr).To(Equal(PAddr(0x052a)))
		Expect(pAddr.Page()).To(Equal(PageNum(5)))
		Expect(pAddr.Offset()).To(Equal(uint8(0x2a)))
		Expect(pAddr.String()).To(Equal("0x052a"))
	})

	It("should keep physical addresses inside the memory", func() {
		Expect(uint32(MakePAddr(PageCount-1, 0xff))).To(BeNumerically("<", MemSize))
	})

	It("should tell valid process ids", func() {
		Expect(PID(0).Valid()).To(BeTrue())
		Expect(PID(PageCount - 1).Valid()).To(BeTrue())
		Expect(PID(PageCount).Valid()).To(BeFalse())
	})
})
