package explore_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gemi/emu"
	"github.com/sarchlab/gemi/explore"
	"github.com/sarchlab/gemi/insts"
)

var _ = Describe("Explorer", func() {
	var (
		buf bytes.Buffer
		x   *explore.Explorer
	)

	BeforeEach(func() {
		buf.Reset()
		x = explore.New(&buf)
	})

	Describe("Explore", func() {
		It("should print the header and one line per variation", func() {
			Expect(x.Explore("svc", explore.Options{Limit: 2, Step: 4})).To(Succeed())
			out := buf.String()

			Expect(out).To(ContainSubstring("Group:   System"))
			Expect(out).To(ContainSubstring("Desc:    Supervisor call"))
			Expect(out).To(ContainSubstring("Form:    SVC #<imm>"))
			Expect(out).To(ContainSubstring("Base:    0xD4000001"))
			Expect(out).To(ContainSubstring("Mask:    0xFFE0001F"))
			Expect(out).To(ContainSubstring("Pattern: 1101 0100 000x xxxx xxxx xxxx xxx0 0001"))
			Expect(out).To(ContainSubstring("Variations: 2 of 16384"))
			Expect(out).To(ContainSubstring("0xD4000001  11010100000000000000000000000001  SVC #0x0"))
			Expect(out).To(MatchRegexp(`0xD4000081  \d{32}  SVC #0x4 +\[imm=0x4\]`))
			Expect(out).NotTo(ContainSubstring("Legend"))
			Expect(out).NotTo(ContainSubstring("\033["))
		})

		It("should show a legend when colour is on", func() {
			x = explore.New(&buf, explore.WithColor(true))
			Expect(x.Explore("SVC", explore.Options{Limit: 1})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("Legend"))
		})

		It("should note aliases", func() {
			Expect(x.Explore("MOV", explore.Options{Limit: 1})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("note: MOV is an alias of MOVZ"))
		})

		It("should note ignored fields and applied locks", func() {
			Expect(x.Explore("SVC", explore.Options{
				Vary:  []string{"bogus"},
				Locks: map[string]uint32{"imm": 0x10},
			})).To(Succeed())
			out := buf.String()
			Expect(out).To(ContainSubstring(`ignoring unknown field "bogus"`))
			Expect(out).To(ContainSubstring("Locks:   imm=0x10"))
			Expect(out).To(ContainSubstring("Variations: 1 of 1"))
			Expect(out).To(ContainSubstring("SVC #0x10"))
		})

		It("should reject unknown mnemonics", func() {
			Expect(x.Explore("FROB", explore.Options{})).To(MatchError(insts.ErrUnknownMnemonic))
		})

		It("should mark words that do not decode", func() {
			sbfmW := format("SBFM", 1)
			Expect(x.ExploreFormat(sbfmW, explore.Options{Vary: []string{"immr"}, Step: 32})).To(Succeed())
			out := buf.String()
			Expect(out).To(ContainSubstring("SBFM W0, W0, #0x0, #0x0"))
			Expect(out).To(ContainSubstring(explore.Undefined))
		})
	})

	Describe("Variations", func() {
		It("should attach emulator traces without changing registers", func() {
			e := emu.NewEmulator()
			Expect(e.SetReg("X1", 5)).To(Succeed())
			x = explore.New(&buf, explore.WithEmulator(e))

			s, err := explore.NewSweep(format("ADD", 0), explore.Options{
				Vary:  []string{"imm"},
				Locks: map[string]uint32{"rn": 1},
				Limit: 2,
				Step:  4,
			})
			Expect(err).NotTo(HaveOccurred())

			vs := x.Variations(s)
			Expect(vs).To(HaveLen(2))
			Expect(vs[1].Word).To(Equal(insts.Word(0x91001020)))
			Expect(vs[1].Text()).To(Equal("ADD X0, X1, #0x4"))
			Expect(vs[1].Trace).To(Equal("; X0 = X1 + #0x4 = 0x5 + 0x4 = 0x9"))
			Expect(vs[1].Changed).To(ContainElement(explore.FieldValue{Name: "imm", Value: 4}))

			x0, err := e.GetReg("X0")
			Expect(err).NotTo(HaveOccurred())
			Expect(x0).To(BeZero())
		})

		It("should leave traces empty for instructions the emulator lacks", func() {
			x = explore.New(&buf, explore.WithEmulator(emu.NewEmulator()))
			s, err := explore.NewSweep(format("SVC", 0), explore.Options{Limit: 1})
			Expect(err).NotTo(HaveOccurred())

			vs := x.Variations(s)
			Expect(vs[0].Err).NotTo(HaveOccurred())
			Expect(vs[0].Trace).To(BeEmpty())
		})

		It("should render undecodable variations as undefined", func() {
			Expect(explore.Variation{Err: insts.ErrUnknownEncoding}.Text()).To(Equal("<UNDEFINED>"))
		})
	})

	Describe("Describe", func() {
		It("should print every form of a mnemonic", func() {
			Expect(x.Describe("mov", nil)).To(Succeed())
			out := buf.String()
			Expect(out).To(ContainSubstring("Move (wide immediate)"))
			Expect(out).To(ContainSubstring("Move (register)"))
			Expect(out).NotTo(ContainSubstring("Word:"))
		})

		It("should show the locked word", func() {
			Expect(x.Describe("SVC", map[string]uint32{"imm": 0x10})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("Word:    0xD4000201  SVC #0x10"))
		})

		It("should reject unknown mnemonics", func() {
			Expect(x.Describe("FROB", nil)).To(MatchError(insts.ErrUnknownMnemonic))
		})
	})

	It("should summarise every group", func() {
		x.Summary()
		out := buf.String()
		for _, g := range insts.DefaultRegistry().Groups() {
			Expect(out).To(ContainSubstring(g))
		}
		Expect(out).To(ContainSubstring("Add (immediate)"))
		Expect(out).To(ContainSubstring("0xD503201F"))
	})

	Describe("Group", func() {
		It("should match group names case-insensitively", func() {
			Expect(x.Group("system", explore.Options{Limit: 1})).To(Succeed())
			out := buf.String()
			Expect(out).To(ContainSubstring("NOP"))
			Expect(out).To(ContainSubstring("MRS"))
		})

		It("should list the available groups on error", func() {
			err := x.Group("vector", explore.Options{})
			Expect(err).To(MatchError(explore.ErrUnknownGroup))
			Expect(err.Error()).To(ContainSubstring("DataProcImm, DataProcReg, Branch, System, LoadStore"))
		})
	})
})
