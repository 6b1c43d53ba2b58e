package insts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SysReg is a system register named by its op0:op1:CRn:CRm:op2 tuple.
type SysReg struct {
	Op0, Op1, CRn, CRm, Op2 uint8
}

var sysRegNames = map[SysReg]string{
	{3, 3, 4, 2, 0}:  "NZCV",
	{3, 3, 4, 2, 1}:  "DAIF",
	{3, 3, 4, 4, 0}:  "FPCR",
	{3, 3, 4, 4, 1}:  "FPSR",
	{3, 3, 13, 0, 2}: "TPIDR_EL0",
	{3, 3, 13, 0, 3}: "TPIDRRO_EL0",
	{3, 3, 14, 0, 0}: "CNTFRQ_EL0",
	{3, 3, 14, 0, 2}: "CNTVCT_EL0",
	{3, 3, 0, 0, 1}:  "CTR_EL0",
	{3, 3, 0, 0, 7}:  "DCZID_EL0",
	{3, 0, 0, 0, 0}:  "MIDR_EL1",
	{3, 0, 0, 0, 5}:  "MPIDR_EL1",
	{3, 0, 4, 2, 2}:  "CurrentEL",
	{3, 0, 4, 0, 0}:  "SPSR_EL1",
	{3, 0, 4, 0, 1}:  "ELR_EL1",
	{3, 0, 4, 1, 0}:  "SP_EL0",
	{3, 0, 12, 0, 0}: "VBAR_EL1",
	{3, 0, 1, 0, 0}:  "SCTLR_EL1",
	{3, 0, 13, 0, 4}: "TPIDR_EL1",
}

var sysRegsByName = func() map[string]SysReg {
	m := make(map[string]SysReg, len(sysRegNames))
	for r, name := range sysRegNames {
		m[strings.ToUpper(name)] = r
	}
	return m
}()

// NewSysReg returns the system register op0:op1:CRn:CRm:op2. op0 must be
// 2 or 3, op1 and op2 0-7, and CRn and CRm 0-15.
func NewSysReg(op0, op1, crn, crm, op2 int) (SysReg, error) {
	fields := [5]struct {
		name     string
		v, lo, hi int
	}{
		{"op0", op0, 2, 3},
		{"op1", op1, 0, 7},
		{"CRn", crn, 0, 15},
		{"CRm", crm, 0, 15},
		{"op2", op2, 0, 7},
	}
	for _, f := range fields {
		if f.v < f.lo || f.v > f.hi {
			return SysReg{}, errors.Wrapf(ErrOperandRange, "system register %s %d not in %d-%d",
				f.name, f.v, f.lo, f.hi)
		}
	}
	return SysReg{Op0: uint8(op0), Op1: uint8(op1), CRn: uint8(crn), CRm: uint8(crm), Op2: uint8(op2)}, nil
}

// Kind implements Operand.
func (r SysReg) Kind() OperandKind { return KindSysReg }

// String returns the architectural name, or the generic S<op0>_<op1>_C<n>_C<m>_<op2>
// form for registers without one.
func (r SysReg) String() string {
	if name, ok := sysRegNames[r]; ok {
		return name
	}
	return fmt.Sprintf("S%d_%d_C%d_C%d_%d", r.Op0, r.Op1, r.CRn, r.CRm, r.Op2)
}

// ParseSysReg parses a system register name in either form.
func ParseSysReg(s string) (SysReg, bool) {
	up := strings.ToUpper(strings.TrimSpace(s))
	if r, ok := sysRegsByName[up]; ok {
		return r, true
	}

	parts := strings.Split(up, "_")
	if len(parts) != 5 || !strings.HasPrefix(parts[0], "S") ||
		!strings.HasPrefix(parts[2], "C") || !strings.HasPrefix(parts[3], "C") {
		return SysReg{}, false
	}

	var vals [5]int
	for i, f := range []string{parts[0][1:], parts[1], parts[2][1:], parts[3][1:], parts[4]} {
		v, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return SysReg{}, false
		}
		vals[i] = int(v)
	}
	r, err := NewSysReg(vals[0], vals[1], vals[2], vals[3], vals[4])
	return r, err == nil
}
