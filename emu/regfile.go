// Package emu executes decoded data-processing instructions against a
// register file and reports what each one did.
package emu

import (
	"fmt"

	"github.com/sarchlab/gemi/insts"
)

// RegFile represents the ARM64 register file.
// It contains 31 general-purpose registers (X0-X30),
// the stack pointer (SP), and the program counter (PC).
type RegFile struct {
	// X holds general-purpose registers X0-X30.
	// X[31] is never written; register 31 reads as XZR or SP.
	X [32]uint64

	// SP is the stack pointer.
	SP uint64

	// PC is the address of the next instruction.
	PC uint64

	// PSTATE holds the processor state flags.
	PSTATE PSTATE
}

// PSTATE represents the processor state flags.
type PSTATE struct {
	// N is the negative flag.
	N bool
	// Z is the zero flag.
	Z bool
	// C is the carry flag.
	C bool
	// V is the overflow flag.
	V bool
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// String renders the flags as NZCV=<four bits>.
func (p PSTATE) String() string {
	return fmt.Sprintf("NZCV=%d%d%d%d", bit(p.N), bit(p.Z), bit(p.C), bit(p.V))
}

// ReadReg reads a register value. Register 31 returns 0 (XZR).
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg >= 31 {
		return 0
	}
	return r.X[reg]
}

// ReadRegOrSP reads a register value, treating register 31 as SP (not XZR).
func (r *RegFile) ReadRegOrSP(reg uint8) uint64 {
	if reg == 31 {
		return r.SP
	}
	return r.X[reg]
}

// WriteRegOrSP writes a register value, treating register 31 as SP (not XZR).
func (r *RegFile) WriteRegOrSP(reg uint8, value uint64) {
	if reg == 31 {
		r.SP = value
		return
	}
	r.X[reg] = value
}

// WriteReg writes a value to a register. Writes to register 31+ are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg >= 31 {
		return
	}
	r.X[reg] = value
}

// Read returns the value of a register operand. W registers read the low
// 32 bits.
func (r *RegFile) Read(reg insts.Register) uint64 {
	var v uint64
	switch reg.Class {
	case insts.RegZero:
		return 0
	case insts.RegSP:
		v = r.ReadRegOrSP(31)
	default:
		v = r.ReadReg(reg.Num)
	}
	if !reg.Is64 {
		v &= 0xFFFFFFFF
	}
	return v
}

// Write stores a value into a register operand. W registers zero the
// upper 32 bits; writes to XZR and WZR are discarded.
func (r *RegFile) Write(reg insts.Register, value uint64) {
	if !reg.Is64 {
		value &= 0xFFFFFFFF
	}
	switch reg.Class {
	case insts.RegZero:
	case insts.RegSP:
		r.WriteRegOrSP(31, value)
	default:
		r.WriteReg(reg.Num, value)
	}
}
