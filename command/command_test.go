package command_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ptsim/command"
	"github.com/sarchlab/ptsim/mem/vm"
)

var _ = Describe("Parse", func() {
	It("should parse every command", func() {
		cmds, err := command.Parse([]string{
			"np", "1", "2",
			"kp", "1",
			"sb", "1", "0x105", "0xff",
			"lb", "1", "261",
			"pfm",
			"ppt", "0x3f",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(cmds).To(Equal([]command.Command{
			{Name: command.NewProcess, PID: 1, PageCount: 2},
			{Name: command.KillProcess, PID: 1},
			{Name: command.StoreByte, PID: 1, VAddr: 0x105, Value: 0xff},
			{Name: command.LoadByte, PID: 1, VAddr: 261},
			{Name: command.PrintFreeMap},
			{Name: command.PrintPageTable, PID: 63},
		}))
	})

	It("should keep out of range process ids for the manager to reject", func() {
		cmds, err := command.Parse([]string{"kp", "99"})

		Expect(err).NotTo(HaveOccurred())
		Expect(cmds[0].PID).To(Equal(vm.PID(99)))
	})

	It("should accept a negative page count", func() {
		cmds, err := command.Parse([]string{"np", "0", "-3"})

		Expect(err).NotTo(HaveOccurred())
		Expect(cmds[0].PageCount).To(Equal(-3))
	})

	It("should reject unknown commands", func() {
		_, err := command.Parse([]string{"pfm", "xyz"})

		Expect(err).To(MatchError(command.ErrUnknownCommand))
		Expect(err.Error()).To(Equal("'xyz' not recognized"))
	})

	It("should reject missing arguments", func() {
		_, err := command.Parse([]string{"np", "1"})

		Expect(err).To(MatchError(command.ErrMissingArgument))
	})

	DescribeTable("malformed arguments",
		func(args []string) {
			_, err := command.Parse(args)

			Expect(err).To(MatchError(command.ErrMalformedArgument))
		},
		Entry("word as process id", []string{"kp", "one"}),
		Entry("bad hex digit", []string{"kp", "0xg"}),
		Entry("negative process id", []string{"kp", "-1"}),
		Entry("value above a byte", []string{"sb", "0", "0", "256"}),
		Entry("address above 16 bits", []string{"lb", "0", "65536"}),
		Entry("bare minus", []string{"np", "0", "-"}),
	)

	It("should print commands back", func() {
		cmds, _ := command.Parse([]string{"sb", "2", "0x10", "7", "pfm"})

		Expect(cmds[0].String()).To(Equal("sb 2 16 7"))
		Expect(cmds[1].String()).To(Equal("pfm"))
	})
})
