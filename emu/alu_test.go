package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gemi/emu"
	"github.com/sarchlab/gemi/insts"
)

var _ = Describe("ALU", func() {
	var (
		regFile *emu.RegFile
		alu     *emu.ALU
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		alu = emu.NewALU(regFile)
	})

	Describe("Add", func() {
		It("should wrap at 64 bits", func() {
			Expect(alu.Add(^uint64(0), 2, true, false)).To(Equal(uint64(1)))
		})

		It("should wrap at 32 bits", func() {
			Expect(alu.Add(0xFFFFFFFF, 2, false, true)).To(Equal(uint64(1)))
			Expect(regFile.PSTATE.C).To(BeTrue())
		})

		It("should not touch flags unless asked", func() {
			regFile.PSTATE.Z = true
			alu.Add(1, 1, true, false)
			Expect(regFile.PSTATE.Z).To(BeTrue())
		})
	})

	Describe("Sub", func() {
		It("should set carry when no borrow occurs", func() {
			Expect(alu.Sub(10, 3, true, true)).To(Equal(uint64(7)))
			Expect(regFile.PSTATE.C).To(BeTrue())
			Expect(regFile.PSTATE.N).To(BeFalse())
		})

		It("should flag signed overflow", func() {
			alu.Sub(0x80000000, 1, false, true)
			Expect(regFile.PSTATE.V).To(BeTrue())
		})
	})

	Describe("Logic", func() {
		It("should clear C and V", func() {
			regFile.PSTATE.C = true
			regFile.PSTATE.V = true
			Expect(alu.Logic(0x1_0000_0000, false, true)).To(BeZero())
			Expect(regFile.PSTATE.Z).To(BeTrue())
			Expect(regFile.PSTATE.C).To(BeFalse())
			Expect(regFile.PSTATE.V).To(BeFalse())
		})
	})

	DescribeTable("Shift",
		func(v uint64, t insts.ShiftType, amount uint, is64 bool, want uint64) {
			Expect(alu.Shift(v, t, amount, is64)).To(Equal(want))
		},
		Entry(nil, uint64(1), insts.ShiftLSL, uint(4), true, uint64(0x10)),
		Entry(nil, uint64(1), insts.ShiftLSL, uint(68), true, uint64(0x10)),
		Entry(nil, uint64(0x80000000), insts.ShiftASR, uint(4), false, uint64(0xF8000000)),
		Entry(nil, uint64(0x80000000), insts.ShiftLSR, uint(4), false, uint64(0x08000000)),
		Entry(nil, uint64(1), insts.ShiftROR, uint(1), false, uint64(0x80000000)),
		Entry(nil, uint64(1), insts.ShiftROR, uint(1), true, uint64(0x8000000000000000)),
	)

	Describe("division", func() {
		It("should return zero for division by zero", func() {
			Expect(alu.UDiv(5, 0, true)).To(BeZero())
			Expect(alu.SDiv(5, 0, false)).To(BeZero())
		})

		It("should wrap the most negative value divided by -1", func() {
			Expect(alu.SDiv(0x80000000, 0xFFFFFFFF, false)).To(Equal(uint64(0x80000000)))
			Expect(alu.SDiv(1<<63, ^uint64(0), true)).To(Equal(uint64(1 << 63)))
		})

		It("should divide 32-bit values ignoring upper bits", func() {
			Expect(alu.UDiv(0x1_0000_0008, 2, false)).To(Equal(uint64(4)))
		})
	})

	It("should multiply and accumulate at the register width", func() {
		Expect(alu.MulAdd(0x10000, 0x10000, 1, false, false)).To(Equal(uint64(1)))
		Expect(alu.MulAdd(2, 3, 1, true, true)).To(Equal(^uint64(4)))
	})
})
