package emu_test

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/gemi/emu"
	"github.com/sarchlab/gemi/insts"
)

var _ = Describe("Emulator", func() {
	var e *emu.Emulator

	quiet := func() logrus.FieldLogger {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}

	set := func(name string, v uint64) {
		Expect(e.SetReg(name, v)).To(Succeed())
	}

	get := func(name string) uint64 {
		v, err := e.GetReg(name)
		Expect(err).NotTo(HaveOccurred())
		return v
	}

	run := func(line string) string {
		_, trace, err := e.ExecuteLine(line)
		Expect(err).NotTo(HaveOccurred(), line)
		return trace
	}

	BeforeEach(func() {
		e = emu.NewEmulator(emu.WithLogger(quiet()))
	})

	Describe("NewEmulator", func() {
		It("should start with cleared registers", func() {
			Expect(e.RegFile()).NotTo(BeNil())
			Expect(get("X0")).To(BeZero())
			Expect(e.RegFile().PSTATE.String()).To(Equal("NZCV=0000"))
		})

		It("should apply options", func() {
			e = emu.NewEmulator(emu.WithLogger(quiet()), emu.WithStackPointer(0x8000), emu.WithPC(0x400000))
			Expect(get("SP")).To(Equal(uint64(0x8000)))
			Expect(get("pc")).To(Equal(uint64(0x400000)))
		})
	})

	Describe("registers by name", func() {
		It("should zero-extend W writes", func() {
			set("X3", 0xFFFFFFFFFFFFFFFF)
			set("W3", 0x1_0000_0005)
			Expect(get("X3")).To(Equal(uint64(5)))
		})

		It("should read the low half through W names", func() {
			set("X4", 0x1234_5678_9ABC_DEF0)
			Expect(get("w4")).To(Equal(uint64(0x9ABCDEF0)))
		})

		It("should discard writes to the zero register", func() {
			set("XZR", 7)
			Expect(get("XZR")).To(BeZero())
		})

		It("should accept LR and FP", func() {
			set("LR", 0x40)
			Expect(get("X30")).To(Equal(uint64(0x40)))
			set("X29", 9)
			Expect(get("FP")).To(Equal(uint64(9)))
		})

		It("should reject unknown names", func() {
			_, err := e.GetReg("Q0")
			Expect(err).To(MatchError(emu.ErrUnknownRegister))
			Expect(e.SetReg("X31", 1)).To(MatchError(emu.ErrUnknownRegister))
		})
	})

	Describe("ExecuteLine", func() {
		It("should add registers and trace the values", func() {
			set("X1", 5)
			set("X2", 6)
			Expect(run("ADD X0, X1, X2")).To(Equal("; X0 = X1 + X2 = 0x5 + 0x6 = 0xb"))
			Expect(get("X0")).To(Equal(uint64(0xB)))
			Expect(get("PC")).To(Equal(uint64(4)))
			Expect(e.InstructionCount()).To(Equal(uint64(1)))
		})

		It("should add immediates", func() {
			set("X1", 0x10)
			Expect(run("ADD X0, X1, #0x20")).To(Equal("; X0 = X1 + #0x20 = 0x10 + 0x20 = 0x30"))
		})

		It("should apply the implicit LSL #12", func() {
			Expect(run("ADD X0, X1, #0x1000")).To(Equal("; X0 = X1 + #0x1, LSL #12 = 0x0 + 0x1000 = 0x1000"))
			Expect(get("X0")).To(Equal(uint64(0x1000)))
		})

		It("should use SP for register 31 in ADD (immediate)", func() {
			set("SP", 0x100)
			run("SUB SP, SP, #0x10")
			Expect(get("SP")).To(Equal(uint64(0xF0)))
		})

		It("should wrap 64-bit overflow", func() {
			set("X1", 0xFFFFFFFFFFFFFFFF)
			run("ADD X0, X1, #1")
			Expect(get("X0")).To(BeZero())
		})

		It("should wrap 32-bit results and clear the upper half", func() {
			set("X1", 0xFFFFFFFF_FFFFFFFF)
			run("ADD W0, W1, #2")
			Expect(get("X0")).To(Equal(uint64(1)))
		})

		It("should subtract shifted registers", func() {
			set("X1", 100)
			set("X2", 3)
			Expect(run("SUB X0, X1, X2, LSL #2")).To(Equal("; X0 = X1 - (X2 LSL #2) = 0x64 - 0xc = 0x58"))
		})

		DescribeTable("flags",
			func(line string, a, b uint64, flags string) {
				set("X1", a)
				set("X2", b)
				Expect(run(line)).To(HaveSuffix(flags))
				Expect(e.RegFile().PSTATE.String()).To(Equal(flags))
			},
			Entry("equal", "CMP X1, X2", uint64(5), uint64(5), "NZCV=0110"),
			Entry("less", "CMP X1, X2", uint64(5), uint64(6), "NZCV=1000"),
			Entry("greater", "SUBS X0, X1, X2", uint64(6), uint64(5), "NZCV=0010"),
			Entry("signed overflow", "ADDS X0, X1, X2", uint64(0x7FFFFFFFFFFFFFFF), uint64(1), "NZCV=1001"),
			Entry("carry out", "CMN X1, X2", uint64(0xFFFFFFFFFFFFFFFF), uint64(1), "NZCV=0110"),
			Entry("32-bit carry", "ADDS W0, W1, W2", uint64(0xFFFFFFFF), uint64(1), "NZCV=0110"),
			Entry("test bits", "TST X1, X2", uint64(0xF0), uint64(0x0F), "NZCV=0100"),
			Entry("negative and", "ANDS X0, X1, X2", uint64(1<<63), uint64(1<<63), "NZCV=1000"),
		)

		It("should leave flags alone without S", func() {
			set("X1", 5)
			run("CMP X1, #5")
			run("SUB X0, X1, #6")
			Expect(e.RegFile().PSTATE.Z).To(BeTrue())
		})

		DescribeTable("logic",
			func(line string, want uint64) {
				set("X1", 0xFF00)
				set("X2", 0x0FF0)
				run(line)
				Expect(get("X0")).To(Equal(want))
			},
			Entry(nil, "AND X0, X1, X2", uint64(0x0F00)),
			Entry(nil, "ORR X0, X1, X2", uint64(0xFFF0)),
			Entry(nil, "EOR X0, X1, X2", uint64(0xF0F0)),
			Entry(nil, "BIC X0, X1, X2", uint64(0xF000)),
			Entry(nil, "ORN W0, W1, W2", uint64(0xFFFFFF0F)),
			Entry(nil, "EON X0, X1, X2", ^uint64(0xF0F0)),
			Entry(nil, "AND X0, X1, #0xFF", uint64(0)),
			Entry(nil, "EOR X0, X1, #0xFFFF", uint64(0x00FF)),
			Entry(nil, "ORR X0, X1, X2, ROR #4", uint64(0xFFFF)),
			Entry(nil, "MVN X0, X1", ^uint64(0xFF00)),
		)

		It("should move registers and immediates", func() {
			set("X1", 0x42)
			Expect(run("MOV X0, X1")).To(Equal("; X0 = X1 = 0x42"))
			Expect(run("MOV X2, #0x10")).To(Equal("; X2 = 0x10"))
			Expect(get("X2")).To(Equal(uint64(0x10)))
		})

		It("should build constants with MOVZ and MOVK", func() {
			run("MOVZ X0, #0x1234, LSL #16")
			Expect(run("MOVK X0, #0x5678")).To(Equal("; X0 = 0x12345678"))
			run("MOVK X0, #0xBEEF, LSL #48")
			Expect(get("X0")).To(Equal(uint64(0xBEEF000012345678)))
		})

		It("should invert with MOVN", func() {
			run("MOVN X0, #0")
			Expect(get("X0")).To(Equal(^uint64(0)))
			run("MOVN W1, #1")
			Expect(get("X1")).To(Equal(uint64(0xFFFFFFFE)))
		})

		It("should negate", func() {
			set("X1", 5)
			Expect(run("NEG X0, X1")).To(Equal("; X0 = -X1 = -0x5 = 0xfffffffffffffffb"))
		})

		It("should multiply and accumulate", func() {
			set("X1", 2)
			set("X2", 3)
			set("X3", 1)
			Expect(run("MUL X0, X1, X2")).To(Equal("; X0 = X1 * X2 = 0x2 * 0x3 = 0x6"))
			Expect(run("MADD X0, X1, X2, X3")).To(Equal("; X0 = X1 * X2 + X3 = 0x2 * 0x3 + 0x1 = 0x7"))
			run("MSUB X0, X1, X2, X3")
			Expect(get("X0")).To(Equal(uint64(0xFFFFFFFFFFFFFFFB)))
			run("MNEG W0, W1, W2")
			Expect(get("X0")).To(Equal(uint64(0xFFFFFFFA)))
		})

		It("should divide", func() {
			set("X1", 7)
			set("X2", 2)
			run("UDIV X0, X1, X2")
			Expect(get("X0")).To(Equal(uint64(3)))

			set("X1", uint64(0xFFFFFFFFFFFFFFF9)) // -7
			run("SDIV X0, X1, X2")
			Expect(get("X0")).To(Equal(uint64(0xFFFFFFFFFFFFFFFD))) // -3

			set("X2", 0)
			run("UDIV X0, X1, X2")
			Expect(get("X0")).To(BeZero())
		})

		It("should shift by registers and immediates", func() {
			set("X1", 0x80)
			set("X2", 3)
			Expect(run("LSL X0, X1, X2")).To(Equal("; X0 = X1 LSL X2 = 0x80 LSL 0x3 = 0x400"))
			run("LSR X0, X1, #4")
			Expect(get("X0")).To(Equal(uint64(0x8)))

			set("X1", 0x8000000000000000)
			run("ASR X0, X1, #63")
			Expect(get("X0")).To(Equal(^uint64(0)))
			set("X2", 1)
			run("ROR X0, X1, X2")
			Expect(get("X0")).To(Equal(uint64(0x4000000000000000)))
		})

		It("should compute PC-relative addresses", func() {
			e = emu.NewEmulator(emu.WithLogger(quiet()), emu.WithPC(0x401234))
			run("ADR X0, #0x10")
			Expect(get("X0")).To(Equal(uint64(0x401244)))
			run("ADRP X1, #0x2000")
			Expect(get("X1")).To(Equal(uint64(0x403000)))
		})

		It("should reject instructions it cannot execute", func() {
			_, _, err := e.ExecuteLine("B #8")
			Expect(err).To(MatchError(emu.ErrUnsupported))
			Expect(get("PC")).To(BeZero())
		})

		It("should pass assembler errors through", func() {
			_, _, err := e.ExecuteLine("ADD X0, X1, #0x1001")
			Expect(err).To(MatchError(insts.ErrOperandRange))
		})
	})

	Describe("Execute", func() {
		It("should run decoded words without moving the PC", func() {
			inst, err := insts.NewDecoder(nil).Decode(0x8B020020)
			Expect(err).NotTo(HaveOccurred())

			set("X1", 1)
			set("X2", 2)
			trace, err := e.Execute(inst)
			Expect(err).NotTo(HaveOccurred())
			Expect(trace).To(Equal("; X0 = X1 + X2 = 0x1 + 0x2 = 0x3"))
			Expect(get("PC")).To(BeZero())
		})

		It("should reject malformed operand lists", func() {
			_, err := e.Execute(&insts.Instruction{Mnemonic: "ADD", Operands: []insts.Operand{insts.X(0)}})
			Expect(err).To(MatchError(emu.ErrBadOperands))

			_, err = e.Execute(nil)
			Expect(err).To(MatchError(emu.ErrBadOperands))
		})

		It("should log each executed instruction", func() {
			logger, hook := test.NewNullLogger()
			logger.SetLevel(logrus.DebugLevel)
			e = emu.NewEmulator(emu.WithLogger(logger))

			run("MOV X0, #0x1")
			Expect(hook.Entries).To(HaveLen(1))
			Expect(hook.LastEntry().Data).To(HaveKeyWithValue("inst", "MOV X0, #0x1"))
			Expect(hook.LastEntry().Message).To(Equal("; X0 = 0x1"))
		})
	})

	Describe("Reset", func() {
		It("should clear state", func() {
			set("X5", 1)
			run("CMP X5, #1")
			e.Reset()
			Expect(get("X5")).To(BeZero())
			Expect(e.RegFile().PSTATE.Z).To(BeFalse())
			Expect(e.InstructionCount()).To(BeZero())
		})
	})

	It("should list the mnemonics it executes", func() {
		Expect(emu.Mnemonics()).To(ContainElements("ADD", "CMP", "MOVK", "SDIV", "ROR"))
	})
})
