package explore_test

import (
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gemi/explore"
	"github.com/sarchlab/gemi/insts"
)

func words(s *explore.Sweep) []insts.Word {
	return slices.Collect(s.Words())
}

var _ = Describe("Sweep", func() {
	Describe("ParseLocks", func() {
		It("should parse decimal, hex and binary values", func() {
			locks, err := explore.ParseLocks([]string{"rd=0x1F", "Imm=10", " rn = 0b11 "})
			Expect(err).NotTo(HaveOccurred())
			Expect(locks).To(Equal(map[string]uint32{"rd": 31, "imm": 10, "rn": 3}))
		})

		DescribeTable("should reject malformed locks",
			func(spec string) {
				_, err := explore.ParseLocks([]string{spec})
				Expect(err).To(MatchError(explore.ErrBadLock))
			},
			Entry("no value", "rd"),
			Entry("no name", "=1"),
			Entry("not a number", "rd=zz"),
			Entry("too wide", "rd=0x100000000"),
		)
	})

	It("should step every field by default", func() {
		s, err := explore.NewSweep(format("SVC", 0), explore.Options{Step: 4, Limit: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Total()).To(Equal(uint64(16384)))
		Expect(words(s)).To(Equal([]insts.Word{0xD4000001, 0xD4000081, 0xD4000101}))
	})

	It("should yield the base word once for formats without fields", func() {
		s, err := explore.NewSweep(format("NOP", 0), explore.Options{Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(words(s)).To(Equal([]insts.Word{0xD503201F}))
	})

	It("should change the last varied field fastest", func() {
		s, err := explore.NewSweep(format("ADD", 0), explore.Options{
			Vary: []string{"rd", "rn"},
			Step: 16,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(words(s)).To(Equal([]insts.Word{0x91000000, 0x91000200, 0x91000010, 0x91000210}))
	})

	It("should apply locks to fields that are not varied", func() {
		s, err := explore.NewSweep(format("ADD", 0), explore.Options{
			Vary:  []string{"rd"},
			Locks: map[string]uint32{"Rn": 1},
			Step:  4,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Base()).To(Equal(insts.Word(0x91000020)))
		ws := words(s)
		Expect(ws).To(HaveLen(8))
		Expect(ws[0]).To(Equal(insts.Word(0x91000020)))
		Expect(ws[1]).To(Equal(insts.Word(0x91000024)))
	})

	It("should pin a locked varied field and mask it to its width", func() {
		s, err := explore.NewSweep(format("ADD", 0), explore.Options{
			Vary:  []string{"rd"},
			Locks: map[string]uint32{"rd": 0x3F},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Clamped).To(Equal([]string{"Rd"}))
		Expect(words(s)).To(Equal([]insts.Word{0x9100001F}))
	})

	It("should report unknown vary names", func() {
		s, err := explore.NewSweep(format("ADD", 0), explore.Options{
			Vary: []string{"rd", "bogus"},
			Step: 8,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Ignored).To(Equal([]string{"bogus"}))
		Expect(s.Total()).To(Equal(uint64(4)))
	})

	It("should step narrow fields by one", func() {
		svc := format("SVC", 0)
		narrow := &insts.Format{
			Mnemonic: "TWO",
			Mask:     0xFFFFFFFC,
			Pattern:  0xD4000000,
			Fields: []insts.FieldSpec{{
				Name:   "b",
				Ranges: []insts.BitRange{{Offset: 0, Width: 2}},
				Codec:  svc.Fields[0].Codec,
			}},
		}
		s, err := explore.NewSweep(narrow, explore.Options{Step: 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(words(s)).To(Equal([]insts.Word{0xD4000000, 0xD4000001, 0xD4000002, 0xD4000003}))
	})

	It("should stop early when the consumer does", func() {
		s, err := explore.NewSweep(format("SVC", 0), explore.Options{Step: 1})
		Expect(err).NotTo(HaveOccurred())
		n := 0
		for range s.Words() {
			n++
			if n == 5 {
				break
			}
		}
		Expect(n).To(Equal(5))
	})

	It("should apply locks to the pattern", func() {
		Expect(explore.ApplyLocks(format("SVC", 0), map[string]uint32{"imm": 0x10, "bogus": 1})).
			To(Equal(insts.Word(0xD4000201)))
	})
})
