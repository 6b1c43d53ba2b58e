package emu

import (
	"math/bits"

	"github.com/sarchlab/gemi/insts"
)

// ALU implements ARM64 arithmetic and logic operations. Operands are
// register-width values; 32-bit results are zero-extended.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

func widthMask(is64 bool) uint64 {
	if is64 {
		return ^uint64(0)
	}
	return 0xFFFFFFFF
}

// Add returns op1 + op2, wrapping at the register width.
func (a *ALU) Add(op1, op2 uint64, is64, setFlags bool) uint64 {
	if !is64 {
		result := uint32(op1) + uint32(op2)
		if setFlags {
			a.setAddFlags32(uint32(op1), uint32(op2), result)
		}
		return uint64(result)
	}

	result := op1 + op2
	if setFlags {
		a.setAddFlags64(op1, op2, result)
	}
	return result
}

// Sub returns op1 - op2, wrapping at the register width.
func (a *ALU) Sub(op1, op2 uint64, is64, setFlags bool) uint64 {
	if !is64 {
		result := uint32(op1) - uint32(op2)
		if setFlags {
			a.setSubFlags32(uint32(op1), uint32(op2), result)
		}
		return uint64(result)
	}

	result := op1 - op2
	if setFlags {
		a.setSubFlags64(op1, op2, result)
	}
	return result
}

// Logic truncates the result of a bitwise operation and optionally sets
// N and Z, clearing C and V.
func (a *ALU) Logic(result uint64, is64, setFlags bool) uint64 {
	if !is64 {
		r := uint32(result)
		if setFlags {
			a.setLogicFlags32(r)
		}
		return uint64(r)
	}
	if setFlags {
		a.setLogicFlags64(result)
	}
	return result
}

// Shift applies a shift or rotate. The amount is taken modulo the width.
func (a *ALU) Shift(value uint64, t insts.ShiftType, amount uint, is64 bool) uint64 {
	if !is64 {
		v := uint32(value)
		amount %= 32
		switch t {
		case insts.ShiftLSR:
			return uint64(v >> amount)
		case insts.ShiftASR:
			return uint64(uint32(int32(v) >> amount))
		case insts.ShiftROR:
			return uint64(bits.RotateLeft32(v, -int(amount)))
		default:
			return uint64(v << amount)
		}
	}

	amount %= 64
	switch t {
	case insts.ShiftLSR:
		return value >> amount
	case insts.ShiftASR:
		return uint64(int64(value) >> amount)
	case insts.ShiftROR:
		return bits.RotateLeft64(value, -int(amount))
	default:
		return value << amount
	}
}

// MulAdd returns addend + op1*op2, or addend - op1*op2 when sub is set.
func (a *ALU) MulAdd(op1, op2, addend uint64, sub, is64 bool) uint64 {
	product := op1 * op2
	if sub {
		return (addend - product) & widthMask(is64)
	}
	return (addend + product) & widthMask(is64)
}

// UDiv performs unsigned division. Division by zero yields zero.
func (a *ALU) UDiv(op1, op2 uint64, is64 bool) uint64 {
	m := widthMask(is64)
	op1, op2 = op1&m, op2&m
	if op2 == 0 {
		return 0
	}
	return op1 / op2
}

// SDiv performs signed division rounding toward zero. Division by zero
// yields zero and the most negative value divided by -1 wraps.
func (a *ALU) SDiv(op1, op2 uint64, is64 bool) uint64 {
	if !is64 {
		n, d := int32(op1), int32(op2)
		if d == 0 {
			return 0
		}
		if d == -1 {
			return uint64(uint32(-n))
		}
		return uint64(uint32(n / d))
	}

	n, d := int64(op1), int64(op2)
	if d == 0 {
		return 0
	}
	if d == -1 {
		return uint64(-n)
	}
	return uint64(n / d)
}

// setAddFlags64 sets NZCV flags for 64-bit addition.
func (a *ALU) setAddFlags64(op1, op2, result uint64) {
	a.regFile.PSTATE.N = (result >> 63) == 1
	a.regFile.PSTATE.Z = result == 0

	// C: unsigned carry out
	a.regFile.PSTATE.C = result < op1

	// V: operands share a sign the result does not
	op1Sign := op1 >> 63
	op2Sign := op2 >> 63
	resultSign := result >> 63
	a.regFile.PSTATE.V = (op1Sign == op2Sign) && (op1Sign != resultSign)
}

// setAddFlags32 sets NZCV flags for 32-bit addition.
func (a *ALU) setAddFlags32(op1, op2, result uint32) {
	a.regFile.PSTATE.N = (result >> 31) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = result < op1
	op1Sign := op1 >> 31
	op2Sign := op2 >> 31
	resultSign := result >> 31
	a.regFile.PSTATE.V = (op1Sign == op2Sign) && (op1Sign != resultSign)
}

// setSubFlags64 sets NZCV flags for 64-bit subtraction.
func (a *ALU) setSubFlags64(op1, op2, result uint64) {
	a.regFile.PSTATE.N = (result >> 63) == 1
	a.regFile.PSTATE.Z = result == 0

	// C: no borrow
	a.regFile.PSTATE.C = op1 >= op2

	// V: operand signs differ and the result takes the subtrahend's sign
	op1Sign := op1 >> 63
	op2Sign := op2 >> 63
	resultSign := result >> 63
	a.regFile.PSTATE.V = (op1Sign != op2Sign) && (op2Sign == resultSign)
}

// setSubFlags32 sets NZCV flags for 32-bit subtraction.
func (a *ALU) setSubFlags32(op1, op2, result uint32) {
	a.regFile.PSTATE.N = (result >> 31) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = op1 >= op2
	op1Sign := op1 >> 31
	op2Sign := op2 >> 31
	resultSign := result >> 31
	a.regFile.PSTATE.V = (op1Sign != op2Sign) && (op2Sign == resultSign)
}

// setLogicFlags64 sets NZ flags for 64-bit logic operations (C and V are cleared).
func (a *ALU) setLogicFlags64(result uint64) {
	a.regFile.PSTATE.N = (result >> 63) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = false
	a.regFile.PSTATE.V = false
}

// setLogicFlags32 sets NZ flags for 32-bit logic operations (C and V are cleared).
func (a *ALU) setLogicFlags32(result uint32) {
	a.regFile.PSTATE.N = (result >> 31) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = false
	a.regFile.PSTATE.V = false
}
