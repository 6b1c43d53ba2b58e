package insts

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/gemi/bitfield"
)

// BitRange is a contiguous run of bits inside an instruction word.
type BitRange struct {
	Offset uint // lowest bit
	Width  uint
}

func (r BitRange) mask() uint32 {
	return bitfield.Mask(r.Width) << r.Offset
}

func (r BitRange) String() string {
	if r.Width == 1 {
		return fmt.Sprintf("%d", r.Offset)
	}
	return fmt.Sprintf("%d:%d", r.Offset+r.Width-1, r.Offset)
}

// FieldSpec names one operand field of a format. A field may be split
// over several ranges; their contents are concatenated most significant
// range first.
type FieldSpec struct {
	Name     string
	Ranges   []BitRange
	Codec    FieldCodec
	Optional bool // may be omitted from the operand list when trailing
}

// Width returns the total number of bits in the field.
func (f FieldSpec) Width() uint {
	var w uint
	for _, r := range f.Ranges {
		w += r.Width
	}
	return w
}

// Mask returns the word bits covered by the field.
func (f FieldSpec) Mask() uint32 {
	var m uint32
	for _, r := range f.Ranges {
		m |= r.mask()
	}
	return m
}

// Extract returns the raw field value from a word.
func (f FieldSpec) Extract(word uint32) (uint32, error) {
	var raw uint32
	for _, r := range f.Ranges {
		part, err := bitfield.Extract(word, r.Offset, r.Width)
		if err != nil {
			return 0, errors.Wrapf(err, "field %s", f.Name)
		}
		raw = raw<<r.Width | part
	}
	return raw, nil
}

// Insert places a raw field value into a word.
func (f FieldSpec) Insert(word, raw uint32) (uint32, error) {
	if !bitfield.FitsUnsigned(uint64(raw), f.Width()) {
		return 0, errors.Wrapf(bitfield.ErrRange, "field %s: 0x%X does not fit in %d bits",
			f.Name, raw, f.Width())
	}
	rest := f.Width()
	for _, r := range f.Ranges {
		rest -= r.Width
		part := (raw >> rest) & bitfield.Mask(r.Width)
		var err error
		word, err = bitfield.Insert(word, r.Offset, r.Width, part)
		if err != nil {
			return 0, errors.Wrapf(err, "field %s", f.Name)
		}
	}
	return word, nil
}

// Location renders the bit ranges, e.g. "23:22,15:10".
func (f FieldSpec) Location() string {
	parts := make([]string, len(f.Ranges))
	for i, r := range f.Ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// FieldCodec converts between a raw field value and a typed operand.
type FieldCodec interface {
	// Decode turns a raw value into an operand. A nil operand means the
	// field is at its default and is omitted from the operand list.
	Decode(raw uint32, width uint) (Operand, error)

	// Encode turns an operand into a raw value. A nil operand selects the
	// default of an optional field.
	Encode(op Operand, width uint) (uint32, error)

	// Accepts reports whether the operand has the right shape for the
	// field. A nil operand is never accepted here.
	Accepts(op Operand) bool

	// Syntax describes the operand for help output.
	Syntax() string
}

func rangeErr(format string, args ...any) error {
	return errors.Wrapf(ErrOperandRange, format, args...)
}

func unallocated(format string, args ...any) error {
	return errors.Wrapf(ErrUnallocatedField, format, args...)
}

func missing() error {
	return errors.Wrap(ErrNoMatchingForm, "missing operand")
}

// regCodec is a general register field. Register number 31 is either the
// zero register or the stack pointer, depending on the form.
type regCodec struct {
	is64 bool
	r31  RegClass
}

func (c regCodec) Decode(raw uint32, _ uint) (Operand, error) {
	if raw == 31 {
		return Register{Class: c.r31, Num: 31, Is64: c.is64}, nil
	}
	return Register{Class: RegGeneral, Num: uint8(raw), Is64: c.is64}, nil
}

func (c regCodec) Encode(op Operand, _ uint) (uint32, error) {
	r, ok := op.(Register)
	if !ok {
		return 0, missing()
	}
	if !c.Accepts(r) {
		return 0, rangeErr("register %s not allowed here", r)
	}
	if r.Class == RegGeneral && r.Num > 30 {
		return 0, rangeErr("register number %d", r.Num)
	}
	return uint32(r.Num), nil
}

func (c regCodec) Accepts(op Operand) bool {
	r, ok := op.(Register)
	if !ok || r.Is64 != c.is64 {
		return false
	}
	return r.Class == RegGeneral || r.Class == c.r31
}

func (c regCodec) Syntax() string {
	p := "W"
	if c.is64 {
		p = "X"
	}
	if c.r31 == RegSP {
		if c.is64 {
			return "<Xn|SP>"
		}
		return "<Wn|WSP>"
	}
	return "<" + p + "n>"
}

// immCodec is an integer field: value = base + raw<<scale, with raw read
// as two's complement when signed. limit, when non-zero, caps the raw
// value below the field width.
type immCodec struct {
	signed bool
	scale  uint
	base   int64
	limit  uint32
	name   string
}

func (c immCodec) Decode(raw uint32, width uint) (Operand, error) {
	if c.limit != 0 && raw > c.limit {
		return nil, unallocated("%s value %d exceeds %d", c.label(), raw, c.limit)
	}
	if c.signed {
		return Imm(bitfield.SignExtend(uint64(raw), width) << c.scale), nil
	}
	return Imm(c.base + int64(uint64(raw)<<c.scale)), nil
}

func (c immCodec) Encode(op Operand, width uint) (uint32, error) {
	imm, ok := op.(Immediate)
	if !ok {
		return 0, missing()
	}
	v := imm.Value
	if imm.Unsigned {
		return 0, rangeErr("%s 0x%X", c.label(), imm.Uint())
	}
	if v&(1<<c.scale-1) != 0 {
		return 0, rangeErr("%s %d is not a multiple of %d", c.label(), v, int64(1)<<c.scale)
	}

	if c.signed {
		scaled := v >> c.scale
		if !bitfield.FitsSigned(scaled, width) {
			return 0, rangeErr("%s %d does not fit in %d signed bits", c.label(), v, width+c.scale)
		}
		return uint32(scaled) & bitfield.Mask(width), nil
	}

	v -= c.base
	if v < 0 {
		return 0, rangeErr("%s %d below %d", c.label(), imm.Value, c.base)
	}
	scaled := uint64(v) >> c.scale
	if !bitfield.FitsUnsigned(scaled, width) || (c.limit != 0 && scaled > uint64(c.limit)) {
		return 0, rangeErr("%s %d too large", c.label(), imm.Value)
	}
	return uint32(scaled), nil
}

func (c immCodec) Accepts(op Operand) bool {
	_, ok := op.(Immediate)
	return ok
}

func (c immCodec) label() string {
	if c.name != "" {
		return c.name
	}
	return "immediate"
}

func (c immCodec) Syntax() string {
	return "#<" + c.label() + ">"
}

// addSubImmCodec is the 13-bit sh:imm12 field of ADD/SUB (immediate).
// Plain immediates that are multiples of 4096 up to 0xFFF000 select the
// shifted form automatically.
type addSubImmCodec struct{}

func (addSubImmCodec) Decode(raw uint32, _ uint) (Operand, error) {
	imm := uint64(raw & 0xFFF)
	if raw>>12 == 1 {
		return ShiftedImmediate{Value: imm, Shift: ShiftLSL, Amount: 12}, nil
	}
	return Imm(int64(imm)), nil
}

func (addSubImmCodec) Encode(op Operand, _ uint) (uint32, error) {
	switch v := op.(type) {
	case Immediate:
		if v.Unsigned || v.Value < 0 {
			return 0, rangeErr("immediate %s must be 0 to 0xFFF", v)
		}
		u := uint64(v.Value)
		if u <= 0xFFF {
			return uint32(u), nil
		}
		if u&0xFFF == 0 && u <= 0xFFF000 {
			return 1<<12 | uint32(u>>12), nil
		}
		return 0, rangeErr("immediate %s is neither 12 bits nor 12 bits shifted by 12", v)
	case ShiftedImmediate:
		if v.Shift != ShiftLSL || (v.Amount != 0 && v.Amount != 12) {
			return 0, rangeErr("shift must be LSL #0 or LSL #12")
		}
		if v.Value > 0xFFF {
			return 0, rangeErr("immediate 0x%X exceeds 0xFFF", v.Value)
		}
		if v.Amount == 12 {
			return 1<<12 | uint32(v.Value), nil
		}
		return uint32(v.Value), nil
	}
	return 0, missing()
}

func (addSubImmCodec) Accepts(op Operand) bool {
	switch op.(type) {
	case Immediate, ShiftedImmediate:
		return true
	}
	return false
}

func (addSubImmCodec) Syntax() string { return "#<imm12>{, LSL #12}" }

// logicalImmCodec is the N:immr:imms bitmask immediate. N must be 0 for
// 32-bit registers.
type logicalImmCodec struct {
	size uint
}

func (c logicalImmCodec) split(raw uint32) (n, immr, imms uint32) {
	imms = raw & 0x3F
	immr = (raw >> 6) & 0x3F
	n = (raw >> 12) & 1
	return n, immr, imms
}

func (c logicalImmCodec) Decode(raw uint32, _ uint) (Operand, error) {
	n, immr, imms := c.split(raw)
	pattern, err := bitfield.DecodeLogicalImmediate(n, imms, immr, c.size)
	if err != nil {
		return nil, errors.Wrap(ErrUnallocatedField, err.Error())
	}
	// Rotations at or above the element size alias smaller ones; only the
	// canonical encoding is accepted so that every word round-trips.
	if esize := bitfield.ElementSize(n, imms); immr >= uint32(esize) {
		return nil, unallocated("rotation %d exceeds element size %d", immr, esize)
	}
	return Bitmask(pattern), nil
}

func (c logicalImmCodec) Encode(op Operand, _ uint) (uint32, error) {
	imm, ok := op.(Immediate)
	if !ok {
		return 0, missing()
	}
	pattern := imm.Uint()
	if c.size == 32 && !imm.Unsigned && imm.Value < 0 && imm.Value >= -(1<<31) {
		pattern &= 0xFFFFFFFF
	}
	n, immr, imms, err := bitfield.EncodeLogicalImmediate(pattern, c.size)
	if err != nil {
		return 0, errors.Wrap(ErrUnrepresentableImmediate, err.Error())
	}
	return n<<12 | immr<<6 | imms, nil
}

func (c logicalImmCodec) Accepts(op Operand) bool {
	_, ok := op.(Immediate)
	return ok
}

func (c logicalImmCodec) Syntax() string { return "#<bitmask>" }

// wideImmCodec is the hw:imm16 field of the move-wide instructions.
type wideImmCodec struct {
	is64 bool
}

func (c wideImmCodec) Decode(raw uint32, _ uint) (Operand, error) {
	hw := raw >> 16
	imm := uint64(raw & 0xFFFF)
	if !c.is64 && hw > 1 {
		return nil, unallocated("hw=%d with a 32-bit register", hw)
	}
	if hw == 0 {
		return Imm(int64(imm)), nil
	}
	return ShiftedImmediate{Value: imm, Shift: ShiftLSL, Amount: uint8(hw * 16)}, nil
}

func (c wideImmCodec) Encode(op Operand, _ uint) (uint32, error) {
	maxHW := uint64(3)
	if !c.is64 {
		maxHW = 1
	}
	switch v := op.(type) {
	case Immediate:
		u := v.Uint()
		if !v.Unsigned && v.Value < 0 {
			return 0, rangeErr("immediate %s is negative", v)
		}
		for hw := uint64(0); hw <= maxHW; hw++ {
			if u&^(0xFFFF<<(hw*16)) == 0 {
				return uint32(hw<<16 | (u>>(hw*16))&0xFFFF), nil
			}
		}
		return 0, rangeErr("immediate %s is not a shifted 16-bit value", v)
	case ShiftedImmediate:
		if v.Shift != ShiftLSL || v.Amount%16 != 0 || uint64(v.Amount/16) > maxHW {
			return 0, rangeErr("shift must be LSL by a multiple of 16 up to %d", maxHW*16)
		}
		if v.Value > 0xFFFF {
			return 0, rangeErr("immediate 0x%X exceeds 0xFFFF", v.Value)
		}
		return uint32(v.Amount/16)<<16 | uint32(v.Value), nil
	}
	return 0, missing()
}

func (c wideImmCodec) Accepts(op Operand) bool {
	switch op.(type) {
	case Immediate, ShiftedImmediate:
		return true
	}
	return false
}

func (c wideImmCodec) Syntax() string { return "#<imm16>{, LSL #<shift>}" }

// shiftCodec is the shift:imm6 pair of shifted-register forms. LSL #0 is
// the default and is omitted.
type shiftCodec struct {
	is64     bool
	allowROR bool
}

func (c shiftCodec) Decode(raw uint32, _ uint) (Operand, error) {
	t := ShiftType(raw >> 6)
	amount := uint8(raw & 0x3F)
	if t == ShiftROR && !c.allowROR {
		return nil, unallocated("ROR shift")
	}
	if !c.is64 && amount >= 32 {
		return nil, unallocated("shift amount %d with a 32-bit register", amount)
	}
	if t == ShiftLSL && amount == 0 {
		return nil, nil
	}
	return Shift{Type: t, Amount: amount}, nil
}

func (c shiftCodec) Encode(op Operand, _ uint) (uint32, error) {
	if op == nil {
		return 0, nil
	}
	s, ok := op.(Shift)
	if !ok {
		return 0, missing()
	}
	if s.Type == ShiftROR && !c.allowROR {
		return 0, rangeErr("ROR is not allowed here")
	}
	if s.Type > ShiftROR {
		return 0, rangeErr("shift type %d", s.Type)
	}
	limit := uint8(63)
	if !c.is64 {
		limit = 31
	}
	if s.Amount > limit {
		return 0, rangeErr("shift amount %d exceeds %d", s.Amount, limit)
	}
	return uint32(s.Type)<<6 | uint32(s.Amount), nil
}

func (c shiftCodec) Accepts(op Operand) bool {
	_, ok := op.(Shift)
	return ok
}

func (c shiftCodec) Syntax() string {
	if c.allowROR {
		return "{, LSL|LSR|ASR|ROR #<amount>}"
	}
	return "{, LSL|LSR|ASR #<amount>}"
}

// condCodec is a 4-bit condition field.
type condCodec struct{}

func (condCodec) Decode(raw uint32, _ uint) (Operand, error) {
	return NewCondition(int(raw))
}

func (condCodec) Encode(op Operand, _ uint) (uint32, error) {
	c, ok := op.(Cond)
	if !ok {
		return 0, missing()
	}
	if _, err := NewCondition(int(c)); err != nil {
		return 0, err
	}
	return uint32(c), nil
}

func (condCodec) Accepts(op Operand) bool {
	_, ok := op.(Cond)
	return ok
}

func (condCodec) Syntax() string { return "<cond>" }

// sysRegCodec is the o0:op1:CRn:CRm:op2 field of MRS and MSR. op0 is
// 2 + o0.
type sysRegCodec struct{}

func (sysRegCodec) Decode(raw uint32, _ uint) (Operand, error) {
	return NewSysReg(
		int(2+(raw>>14)&1),
		int((raw>>11)&7),
		int((raw>>7)&0xF),
		int((raw>>3)&0xF),
		int(raw&7),
	)
}

func (sysRegCodec) Encode(op Operand, _ uint) (uint32, error) {
	r, ok := op.(SysReg)
	if !ok {
		return 0, missing()
	}
	if _, err := NewSysReg(int(r.Op0), int(r.Op1), int(r.CRn), int(r.CRm), int(r.Op2)); err != nil {
		return 0, err
	}
	return uint32(r.Op0-2)<<14 | uint32(r.Op1)<<11 | uint32(r.CRn)<<7 |
		uint32(r.CRm)<<3 | uint32(r.Op2), nil
}

func (sysRegCodec) Accepts(op Operand) bool {
	_, ok := op.(SysReg)
	return ok
}

func (sysRegCodec) Syntax() string { return "<sysreg>" }

// memCodec is an imm:Rn memory field. The base is always a 64-bit
// register or SP.
type memCodec struct {
	mode   AddrMode
	signed bool
	scale  uint
}

func (c memCodec) Decode(raw uint32, width uint) (Operand, error) {
	base, _ := regCodec{is64: true, r31: RegSP}.Decode(raw&0x1F, 5)
	offRaw := raw >> 5
	var off int64
	if c.signed {
		off = bitfield.SignExtend(uint64(offRaw), width-5) << c.scale
	} else {
		off = int64(uint64(offRaw) << c.scale)
	}
	return Memory{Base: base.(Register), Offset: off, Mode: c.mode}, nil
}

func (c memCodec) Encode(op Operand, width uint) (uint32, error) {
	m, ok := op.(Memory)
	if !ok {
		return 0, missing()
	}
	rn, err := regCodec{is64: true, r31: RegSP}.Encode(m.Base, 5)
	if err != nil {
		return 0, err
	}
	off, err := immCodec{signed: c.signed, scale: c.scale, name: "offset"}.Encode(Imm(m.Offset), width-5)
	if err != nil {
		return 0, err
	}
	return off<<5 | rn, nil
}

func (c memCodec) Accepts(op Operand) bool {
	m, ok := op.(Memory)
	if !ok || m.Mode != c.mode {
		return false
	}
	return regCodec{is64: true, r31: RegSP}.Accepts(m.Base)
}

func (c memCodec) Syntax() string {
	switch c.mode {
	case AddrPreIndex:
		return "[<Xn|SP>, #<simm>]!"
	case AddrPostIndex:
		return "[<Xn|SP>], #<simm>"
	}
	if c.signed {
		return "[<Xn|SP>{, #<simm>}]"
	}
	return "[<Xn|SP>{, #<pimm>}]"
}
