package insts

import (
	"fmt"

	"github.com/pkg/errors"
)

// OperandKind classifies operands for shape matching.
type OperandKind uint8

// Operand kinds.
const (
	KindRegister OperandKind = iota
	KindImmediate
	KindShiftedImmediate
	KindShift
	KindCondition
	KindSysReg
	KindMemory
)

var kindNames = [...]string{
	KindRegister:         "register",
	KindImmediate:        "immediate",
	KindShiftedImmediate: "shifted immediate",
	KindShift:            "shift",
	KindCondition:        "condition",
	KindSysReg:           "system register",
	KindMemory:           "memory",
}

func (k OperandKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Operand is one typed instruction operand. All implementations are
// comparable values.
type Operand interface {
	Kind() OperandKind
	String() string
}

// RegClass tells a general register apart from the two meanings of
// register number 31.
type RegClass uint8

// Register classes.
const (
	RegGeneral RegClass = iota // X0-X30 / W0-W30
	RegZero                    // XZR / WZR
	RegSP                      // SP / WSP
)

// Register is a general-purpose register operand.
type Register struct {
	Class RegClass
	Num   uint8 // 0-30, or 31 for RegZero and RegSP
	Is64  bool
}

// Common special registers.
var (
	XZR = Register{Class: RegZero, Num: 31, Is64: true}
	WZR = Register{Class: RegZero, Num: 31}
	SP  = Register{Class: RegSP, Num: 31, Is64: true}
	WSP = Register{Class: RegSP, Num: 31}
)

// X returns the 64-bit general register Xn. X(31) is XZR.
func X(n int) Register {
	return mustRegister(n, true)
}

// W returns the 32-bit general register Wn. W(31) is WZR.
func W(n int) Register {
	return mustRegister(n, false)
}

func mustRegister(n int, is64 bool) Register {
	r, err := NewRegister(n, is64)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegister returns register n, where 31 denotes the zero register.
// Numbers outside 0-31 fail with ErrOperandRange.
func NewRegister(n int, is64 bool) (Register, error) {
	switch {
	case n < 0 || n > 31:
		return Register{}, errors.Wrapf(ErrOperandRange, "register number %d", n)
	case n == 31:
		return Register{Class: RegZero, Num: 31, Is64: is64}, nil
	default:
		return Register{Class: RegGeneral, Num: uint8(n), Is64: is64}, nil
	}
}

// Kind implements Operand.
func (r Register) Kind() OperandKind { return KindRegister }

func (r Register) String() string {
	switch r.Class {
	case RegZero:
		if r.Is64 {
			return "XZR"
		}
		return "WZR"
	case RegSP:
		if r.Is64 {
			return "SP"
		}
		return "WSP"
	}
	if r.Is64 {
		return fmt.Sprintf("X%d", r.Num)
	}
	return fmt.Sprintf("W%d", r.Num)
}

// Immediate is a plain integer operand.
type Immediate struct {
	Value int64
	// Unsigned marks a value whose bit pattern should be read as uint64,
	// such as a 64-bit bitmask with bit 63 set.
	Unsigned bool
}

// Imm returns a signed immediate.
func Imm(v int64) Immediate { return Immediate{Value: v} }

// Bitmask returns an immediate for a 64-bit pattern.
func Bitmask(pattern uint64) Immediate {
	return Immediate{Value: int64(pattern), Unsigned: int64(pattern) < 0}
}

// Uint returns the immediate as a bit pattern.
func (i Immediate) Uint() uint64 { return uint64(i.Value) }

// Kind implements Operand.
func (i Immediate) Kind() OperandKind { return KindImmediate }

func (i Immediate) String() string {
	if !i.Unsigned && i.Value < 0 {
		return fmt.Sprintf("#-0x%X", uint64(-i.Value))
	}
	return fmt.Sprintf("#0x%X", uint64(i.Value))
}

// ShiftedImmediate is an immediate with an explicit shift, as in
// "#0x1, LSL #12".
type ShiftedImmediate struct {
	Value  uint64
	Shift  ShiftType
	Amount uint8
}

// Kind implements Operand.
func (s ShiftedImmediate) Kind() OperandKind { return KindShiftedImmediate }

func (s ShiftedImmediate) String() string {
	return fmt.Sprintf("#0x%X, %s #%d", s.Value, s.Shift, s.Amount)
}

// ShiftType represents a shift type for register operands.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right
)

var shiftNames = [...]string{"LSL", "LSR", "ASR", "ROR"}

func (t ShiftType) String() string {
	if int(t) < len(shiftNames) {
		return shiftNames[t]
	}
	return fmt.Sprintf("SHIFT%d", uint8(t))
}

// Shift is a register shift such as "LSL #3".
type Shift struct {
	Type   ShiftType
	Amount uint8
}

// NewShift returns a shift of 0-63 bits.
func NewShift(t ShiftType, amount int) (Shift, error) {
	if t > ShiftROR {
		return Shift{}, errors.Wrapf(ErrOperandRange, "shift type %d", uint8(t))
	}
	if amount < 0 || amount > 63 {
		return Shift{}, errors.Wrapf(ErrOperandRange, "shift amount %d", amount)
	}
	return Shift{Type: t, Amount: uint8(amount)}, nil
}

// Kind implements Operand.
func (s Shift) Kind() OperandKind { return KindShift }

func (s Shift) String() string {
	return fmt.Sprintf("%s #%d", s.Type, s.Amount)
}

// Cond represents an ARM64 condition code.
type Cond uint8

// ARM64 condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Always (unconditional, reserved)
)

var condNames = [...]string{
	"EQ", "NE", "CS", "CC", "MI", "PL", "VS", "VC",
	"HI", "LS", "GE", "LT", "GT", "LE", "AL", "NV",
}

// NewCondition returns condition code n, which must be 0-15.
func NewCondition(n int) (Cond, error) {
	if n < 0 || n > int(CondNV) {
		return 0, errors.Wrapf(ErrOperandRange, "condition code %d", n)
	}
	return Cond(n), nil
}

// Kind implements Operand.
func (c Cond) Kind() OperandKind { return KindCondition }

func (c Cond) String() string {
	if int(c) < len(condNames) {
		return condNames[c]
	}
	return fmt.Sprintf("COND%d", uint8(c))
}

// Invert returns the opposite condition. AL and NV invert to each other.
func (c Cond) Invert() Cond { return c ^ 1 }

// AddrMode selects how a memory operand updates its base register.
type AddrMode uint8

// Addressing modes.
const (
	AddrOffset    AddrMode = iota // [Xn, #imm]
	AddrPreIndex                  // [Xn, #imm]!
	AddrPostIndex                 // [Xn], #imm
)

func (m AddrMode) String() string {
	switch m {
	case AddrPreIndex:
		return "pre-index"
	case AddrPostIndex:
		return "post-index"
	default:
		return "offset"
	}
}

// Memory is a base register plus immediate offset operand.
type Memory struct {
	Base   Register
	Offset int64
	Mode   AddrMode
}

// Kind implements Operand.
func (m Memory) Kind() OperandKind { return KindMemory }

func (m Memory) String() string {
	off := Imm(m.Offset).String()
	switch m.Mode {
	case AddrPreIndex:
		return fmt.Sprintf("[%s, %s]!", m.Base, off)
	case AddrPostIndex:
		return fmt.Sprintf("[%s], %s", m.Base, off)
	}
	if m.Offset == 0 {
		return fmt.Sprintf("[%s]", m.Base)
	}
	return fmt.Sprintf("[%s, %s]", m.Base, off)
}
