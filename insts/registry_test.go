package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gemi/insts"
)

func svcLike(mnemonic string, pattern, mask uint32) *insts.Format {
	return &insts.Format{
		Mnemonic: mnemonic,
		Mask:     mask,
		Pattern:  pattern,
		Fields: []insts.FieldSpec{
			{Name: "imm", Ranges: []insts.BitRange{{Offset: 5, Width: 16}}, Codec: sampleCodec()},
		},
	}
}

// sampleCodec borrows a codec from the default catalogue so tests can
// build formats without reaching into unexported types.
func sampleCodec() insts.FieldCodec {
	f := insts.DefaultRegistry().Candidates("SVC")[0]
	return f.Fields[0].Codec
}

var _ = Describe("Registry", func() {
	Describe("the default catalogue", func() {
		var registry *insts.Registry

		BeforeEach(func() {
			registry = insts.DefaultRegistry()
		})

		It("should build once", func() {
			Expect(insts.DefaultRegistry()).To(BeIdenticalTo(registry))
		})

		It("should hold every catalogue format", func() {
			Expect(registry.Formats()).To(HaveLen(len(insts.Catalog())))
			Expect(len(registry.Formats())).To(BeNumerically(">", 150))
		})

		It("should list groups in registration order", func() {
			Expect(registry.Groups()).To(Equal([]string{
				insts.GroupDataProcImm,
				insts.GroupDataProcReg,
				insts.GroupBranch,
				insts.GroupSystem,
				insts.GroupLoadStore,
			}))
		})

		It("should find groups case-insensitively", func() {
			Expect(registry.Group("system")).NotTo(BeEmpty())
			Expect(registry.Group("nope")).To(BeEmpty())
		})

		It("should find candidates case-insensitively", func() {
			Expect(registry.Candidates("mov")).To(HaveLen(4))
			Expect(registry.Candidates("MOV")[0].AliasOf).To(Equal("MOVZ"))
		})

		It("should sort mnemonics", func() {
			m := registry.Mnemonics()
			Expect(m).To(ContainElements("ADD", "EOR", "RET", "LDP"))
			for i := 1; i < len(m); i++ {
				Expect(m[i-1] < m[i]).To(BeTrue())
			}
		})

		It("should partition every format's bits", func() {
			for _, f := range registry.Formats() {
				covered := f.Mask
				for _, fs := range f.Fields {
					Expect(covered & fs.Mask()).To(BeZero(), "%s field %s", f.Mnemonic, fs.Name)
					covered |= fs.Mask()
				}
				Expect(covered).To(Equal(^uint32(0)), f.Syntax())
			}
		})

		It("should render bit patterns", func() {
			f, err := registry.Lookup(0xD503201F)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.BitPattern()).To(Equal("11010101000000110010000000011111"))

			svc := registry.Candidates("SVC")[0]
			Expect(svc.BitPattern()).To(Equal("11010100000xxxxxxxxxxxxxxxx00001"))
			Expect(svc.Syntax()).To(Equal("SVC #<imm>"))
		})
	})

	Describe("NewRegistry", func() {
		It("should prefer the more specific format regardless of order", func() {
			general := svcLike("GEN", 0xD4000000, 0xFFE0001F)
			specific := &insts.Format{Mnemonic: "EXACT", Mask: 0xFFFFFFFF, Pattern: 0xD4000000}

			for _, order := range [][]*insts.Format{{general, specific}, {specific, general}} {
				r, err := insts.NewRegistry(order)
				Expect(err).NotTo(HaveOccurred())

				f, err := r.Lookup(0xD4000000)
				Expect(err).NotTo(HaveOccurred())
				Expect(f.Mnemonic).To(Equal("EXACT"))

				f, err = r.Lookup(0xD4000020)
				Expect(err).NotTo(HaveOccurred())
				Expect(f.Mnemonic).To(Equal("GEN"))
			}
		})

		It("should reject an empty table", func() {
			_, err := insts.NewRegistry(nil)
			Expect(err).To(MatchError(insts.ErrConfig))
		})

		It("should reject equally specific overlapping formats", func() {
			_, err := insts.NewRegistry([]*insts.Format{
				svcLike("ONE", 0xD4000001, 0xFFE0001F),
				svcLike("TWO", 0xD4000001, 0xFFE0001F),
			})
			Expect(err).To(MatchError(insts.ErrConfig))
		})

		It("should accept equally specific disjoint formats", func() {
			_, err := insts.NewRegistry([]*insts.Format{
				svcLike("ONE", 0xD4000001, 0xFFE0001F),
				svcLike("TWO", 0xD4000002, 0xFFE0001F),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject a pattern outside its mask", func() {
			_, err := insts.NewRegistry([]*insts.Format{svcLike("BAD", 0xD4000021, 0xFFE0001F)})
			Expect(err).To(MatchError(insts.ErrConfig))
		})

		It("should reject bits that are neither fixed nor in a field", func() {
			_, err := insts.NewRegistry([]*insts.Format{svcLike("GAP", 0xD4000001, 0xFFE0000F)})
			Expect(err).To(MatchError(insts.ErrConfig))
		})

		It("should reject a field overlapping fixed bits", func() {
			_, err := insts.NewRegistry([]*insts.Format{svcLike("HIT", 0xD4000001, 0xFFE0003F)})
			Expect(err).To(MatchError(insts.ErrConfig))
		})

		It("should reject lower-case mnemonics", func() {
			_, err := insts.NewRegistry([]*insts.Format{svcLike("svc", 0xD4000001, 0xFFE0001F)})
			Expect(err).To(MatchError(insts.ErrConfig))
		})

		It("should report words no format matches", func() {
			r, err := insts.NewRegistry([]*insts.Format{svcLike("ONE", 0xD4000001, 0xFFE0001F)})
			Expect(err).NotTo(HaveOccurred())
			_, err = r.Lookup(0)
			Expect(err).To(MatchError(insts.ErrUnknownEncoding))
		})
	})
})
