package bitfield

import (
	"math/bits"

	"github.com/pkg/errors"
)

// DecodeLogicalImmediate expands the N:immr:imms fields of a logical
// immediate into the bit pattern it denotes, for a 32- or 64-bit register.
//
// The element size is 2^len where len is the highest set bit of
// N:NOT(imms). The element holds imms+1 low ones (within the element)
// rotated right by immr, and is replicated across the register.
func DecodeLogicalImmediate(n, imms, immr uint32, size uint) (uint64, error) {
	if size != 32 && size != 64 {
		return 0, errors.Wrapf(ErrRange, "register size %d", size)
	}
	if n > 1 || imms > 63 || immr > 63 {
		return 0, errors.Wrapf(ErrRange, "N=%d immr=%d imms=%d", n, immr, imms)
	}
	if size == 32 && n == 1 {
		return 0, errors.Wrap(ErrReserved, "N=1 with a 32-bit register")
	}

	combined := n<<6 | (^imms & 0x3F)
	length := bits.Len32(combined) - 1
	if length < 1 {
		return 0, errors.Wrapf(ErrReserved, "element size for N=%d imms=%d", n, imms)
	}

	levels := uint32(1)<<uint(length) - 1
	s := imms & levels
	r := immr & levels
	if s == levels {
		return 0, errors.Wrapf(ErrReserved, "all-ones element for imms=%d", imms)
	}

	esize := uint(1) << uint(length)
	elem := RotateRight(Ones(uint(s)+1), uint(r), esize)
	return Replicate(elem, esize, size), nil
}

// ElementSize returns the element size selected by N and imms, or 0 when
// the combination is reserved.
func ElementSize(n, imms uint32) uint {
	length := bits.Len32(n<<6|(^imms&0x3F)) - 1
	if length < 1 {
		return 0
	}
	return uint(1) << uint(length)
}

// EncodeLogicalImmediate finds the N, immr and imms fields that denote
// pattern for a register of the given size. The encoding is unique: immr
// is always smaller than the element size.
func EncodeLogicalImmediate(pattern uint64, size uint) (n, immr, imms uint32, err error) {
	switch size {
	case 32:
		if pattern>>32 != 0 {
			return 0, 0, 0, errors.Wrapf(ErrUnrepresentable, "0x%X exceeds 32 bits", pattern)
		}
		pattern |= pattern << 32
	case 64:
	default:
		return 0, 0, 0, errors.Wrapf(ErrRange, "register size %d", size)
	}

	if pattern == 0 || pattern == ^uint64(0) {
		return 0, 0, 0, errors.Wrapf(ErrUnrepresentable, "0x%X", pattern)
	}

	esize := uint(64)
	for e := uint(2); e < 64; e <<= 1 {
		if Replicate(pattern, e, 64) == pattern {
			esize = e
			break
		}
	}

	elem := pattern & Ones(esize)
	for r := uint(0); r < esize; r++ {
		// Rotating left by r undoes a right rotation by r.
		v := RotateRight(elem, (esize-r)%esize, esize)
		if v&(v+1) != 0 {
			continue
		}

		ones := uint32(bits.OnesCount64(v))
		prefix := ^(uint32(esize)<<1 - 1) & 0x3F
		imms = prefix | (ones - 1)
		immr = uint32(r)
		if esize == 64 {
			n = 1
		}
		return n, immr, imms, nil
	}

	return 0, 0, 0, errors.Wrapf(ErrUnrepresentable, "0x%X", pattern)
}
