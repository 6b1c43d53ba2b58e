// Package bitfield provides the bit-level primitives shared by the
// instruction codec: field extraction and insertion within a 32-bit word,
// sign extension, rotation, replication, and the ARMv8 logical (bitmask)
// immediate transform.
package bitfield

import (
	"github.com/pkg/errors"
)

// WordBits is the width of an instruction word.
const WordBits = 32

// Errors returned by the bit-level primitives.
var (
	// ErrRange is returned when a bit range does not fit in a word or a
	// value does not fit in its field.
	ErrRange = errors.New("bit range out of bounds")

	// ErrReserved is returned when a logical immediate encoding is reserved.
	ErrReserved = errors.New("reserved logical immediate encoding")

	// ErrUnrepresentable is returned when a value has no logical immediate
	// encoding.
	ErrUnrepresentable = errors.New("value is not a logical immediate")
)

// Mask returns a mask with the low width bits set.
func Mask(width uint) uint32 {
	if width >= WordBits {
		return ^uint32(0)
	}
	return uint32(1)<<width - 1
}

func checkRange(offset, width uint) error {
	if width == 0 || width > WordBits || offset >= WordBits || offset+width > WordBits {
		return errors.Wrapf(ErrRange, "offset %d width %d", offset, width)
	}
	return nil
}

// Extract returns the width bits of word starting at bit offset.
func Extract(word uint32, offset, width uint) (uint32, error) {
	if err := checkRange(offset, width); err != nil {
		return 0, err
	}
	return (word >> offset) & Mask(width), nil
}

// Insert returns word with the width bits at offset replaced by value.
// Bits outside the range are left unchanged.
func Insert(word uint32, offset, width uint, value uint32) (uint32, error) {
	if err := checkRange(offset, width); err != nil {
		return 0, err
	}
	if value&^Mask(width) != 0 {
		return 0, errors.Wrapf(ErrRange, "value 0x%X does not fit in %d bits", value, width)
	}
	m := Mask(width) << offset
	return word&^m | value<<offset, nil
}

// SignExtend interprets the low width bits of value as a two's complement
// number. Widths of 0 or above 64 are clamped.
func SignExtend(value uint64, width uint) int64 {
	if width == 0 {
		return 0
	}
	if width >= 64 {
		return int64(value)
	}
	shift := 64 - width
	return int64(value<<shift) >> shift
}

// FitsSigned reports whether v can be represented as a width-bit two's
// complement number.
func FitsSigned(v int64, width uint) bool {
	if width >= 64 {
		return true
	}
	if width == 0 {
		return false
	}
	limit := int64(1) << (width - 1)
	return v >= -limit && v < limit
}

// FitsUnsigned reports whether v fits in width bits.
func FitsUnsigned(v uint64, width uint) bool {
	if width >= 64 {
		return true
	}
	return v>>width == 0
}

// Ones returns a value with the low n bits set.
func Ones(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<n - 1
}

// RotateRight rotates the low size bits of x right by r.
func RotateRight(x uint64, r, size uint) uint64 {
	if size == 0 {
		return 0
	}
	x &= Ones(size)
	r %= size
	if r == 0 {
		return x
	}
	return (x>>r | x<<(size-r)) & Ones(size)
}

// Replicate repeats the low esize bits of x to fill size bits.
func Replicate(x uint64, esize, size uint) uint64 {
	if esize == 0 {
		return 0
	}
	x &= Ones(esize)
	var out uint64
	for i := uint(0); i < size; i += esize {
		out |= x << i
	}
	return out & Ones(size)
}
