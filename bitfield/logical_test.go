package bitfield_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gemi/bitfield"
)

// referencePatterns builds every logical immediate for a register size by
// laying out runs of ones bit by bit.
func referencePatterns(size uint) map[uint64]bool {
	out := make(map[uint64]bool)
	for e := uint(2); e <= size; e <<= 1 {
		for k := uint(1); k < e; k++ {
			for r := uint(0); r < e; r++ {
				var p uint64
				for i := uint(0); i < size; i++ {
					j := i % e
					if (j+r)%e < k {
						p |= 1 << i
					}
				}
				out[p] = true
			}
		}
	}
	return out
}

var _ = Describe("Logical immediates", func() {
	DescribeTable("decoding known fields",
		func(n, imms, immr uint32, size uint, want uint64) {
			got, err := bitfield.DecodeLogicalImmediate(n, imms, immr, size)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("EOR X10, X13 pattern", uint32(0), uint32(0), uint32(4), uint(64), uint64(0x1000000010000000)),
		Entry("single bit", uint32(1), uint32(0), uint32(0), uint(64), uint64(1)),
		Entry("63 ones", uint32(1), uint32(62), uint32(0), uint(64), uint64(0x7FFFFFFFFFFFFFFF)),
		Entry("alternating bits", uint32(0), uint32(60), uint32(0), uint(64), uint64(0x5555555555555555)),
		Entry("low byte, 32-bit", uint32(0), uint32(7), uint32(0), uint(32), uint64(0xFF)),
		Entry("high word", uint32(1), uint32(31), uint32(32), uint(64), uint64(0xFFFFFFFF00000000)),
	)

	DescribeTable("rejecting reserved fields",
		func(n, imms, immr uint32, size uint) {
			_, err := bitfield.DecodeLogicalImmediate(n, imms, immr, size)
			Expect(err).To(MatchError(bitfield.ErrReserved))
		},
		Entry("no element size", uint32(0), uint32(63), uint32(0), uint(64)),
		Entry("all-ones 2-bit element", uint32(0), uint32(61), uint32(0), uint(64)),
		Entry("all-ones 64-bit element", uint32(1), uint32(63), uint32(0), uint(64)),
		Entry("N set on a 32-bit register", uint32(1), uint32(0), uint32(0), uint(32)),
	)

	It("should reject out-of-range fields", func() {
		_, err := bitfield.DecodeLogicalImmediate(2, 0, 0, 64)
		Expect(err).To(MatchError(bitfield.ErrRange))
		_, err = bitfield.DecodeLogicalImmediate(0, 0, 0, 16)
		Expect(err).To(MatchError(bitfield.ErrRange))
	})

	DescribeTable("encoding known patterns",
		func(pattern uint64, size uint, n, immr, imms uint32) {
			gn, gr, gs, err := bitfield.EncodeLogicalImmediate(pattern, size)
			Expect(err).NotTo(HaveOccurred())
			Expect([]uint32{gn, gr, gs}).To(Equal([]uint32{n, immr, imms}))
		},
		Entry("EOR X10, X13 pattern", uint64(0x1000000010000000), uint(64), uint32(0), uint32(4), uint32(0)),
		Entry("bytes in halfwords", uint64(0x00FF00FF00FF00FF), uint(64), uint32(0), uint32(0), uint32(39)),
		Entry("high word", uint64(0xFFFFFFFF00000000), uint(64), uint32(1), uint32(32), uint32(31)),
		Entry("32-bit low byte", uint64(0xFF), uint(32), uint32(0), uint32(0), uint32(7)),
	)

	DescribeTable("rejecting unrepresentable patterns",
		func(pattern uint64, size uint) {
			_, _, _, err := bitfield.EncodeLogicalImmediate(pattern, size)
			Expect(err).To(MatchError(bitfield.ErrUnrepresentable))
		},
		Entry("zero", uint64(0), uint(64)),
		Entry("all ones", ^uint64(0), uint(64)),
		Entry("32-bit all ones", uint64(0xFFFFFFFF), uint(32)),
		Entry("two runs", uint64(0x5), uint(64)),
		Entry("too wide for 32 bits", uint64(0x100000000), uint(32)),
	)

	for _, size := range []uint{32, 64} {
		size := size

		It(fmt.Sprintf("should agree with the reference set for %d-bit registers", size), func() {
			ref := referencePatterns(size)
			seen := make(map[uint64]bool)

			maxN := uint32(1)
			if size == 32 {
				maxN = 0
			}
			for n := uint32(0); n <= maxN; n++ {
				for imms := uint32(0); imms < 64; imms++ {
					for immr := uint32(0); immr < 64; immr++ {
						p, err := bitfield.DecodeLogicalImmediate(n, imms, immr, size)
						if err != nil {
							continue
						}
						Expect(ref).To(HaveKey(p))
						seen[p] = true

						en, er, es, err := bitfield.EncodeLogicalImmediate(p, size)
						Expect(err).NotTo(HaveOccurred())
						esize := bitfield.ElementSize(n, imms)
						Expect(en).To(Equal(n))
						Expect(es).To(Equal(imms))
						Expect(er).To(Equal(immr & uint32(esize-1)))
					}
				}
			}
			Expect(seen).To(HaveLen(len(ref)))
		})
	}

	It("should count 5334 distinct 64-bit patterns", func() {
		Expect(referencePatterns(64)).To(HaveLen(5334))
		Expect(referencePatterns(32)).To(HaveLen(1302))
	})
})
