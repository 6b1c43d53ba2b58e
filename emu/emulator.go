package emu

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gemi/insts"
)

// Errors reported by the emulator.
var (
	ErrUnsupported     = errors.New("instruction not supported by the emulator")
	ErrBadOperands     = errors.New("unexpected operands")
	ErrUnknownRegister = errors.New("unknown register")
)

// Emulator executes decoded data-processing instructions on a register
// file. It is not safe for concurrent use.
type Emulator struct {
	regFile *RegFile
	alu     *ALU
	decoder *insts.Decoder
	encoder *insts.Encoder
	log     logrus.FieldLogger

	instructionCount uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithRegistry makes the emulator assemble and decode with a custom
// registry.
func WithRegistry(r *insts.Registry) EmulatorOption {
	return func(e *Emulator) {
		e.decoder = insts.NewDecoder(r)
		e.encoder = insts.NewEncoder(r)
	}
}

// WithLogger sets the logger executed instructions are reported to.
func WithLogger(l logrus.FieldLogger) EmulatorOption {
	return func(e *Emulator) {
		e.log = l
	}
}

// WithStackPointer sets the initial stack pointer value.
func WithStackPointer(sp uint64) EmulatorOption {
	return func(e *Emulator) {
		e.regFile.SP = sp
	}
}

// WithPC sets the initial program counter.
func WithPC(pc uint64) EmulatorOption {
	return func(e *Emulator) {
		e.regFile.PC = pc
	}
}

// NewEmulator creates a new emulator with all registers cleared.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	regFile := &RegFile{}
	e := &Emulator{
		regFile: regFile,
		alu:     NewALU(regFile),
		decoder: insts.NewDecoder(nil),
		encoder: insts.NewEncoder(nil),
		log:     logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Reset clears every register and the flags.
func (e *Emulator) Reset() {
	*e.regFile = RegFile{}
	e.instructionCount = 0
}

// GetReg reads a register by name: X0-X30, W0-W30, XZR, WZR, SP, WSP,
// LR, FP or PC.
func (e *Emulator) GetReg(name string) (uint64, error) {
	if strings.EqualFold(strings.TrimSpace(name), "PC") {
		return e.regFile.PC, nil
	}
	r, ok := insts.ParseRegister(name)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownRegister, "%q", name)
	}
	return e.regFile.Read(r), nil
}

// SetReg writes a register by name. Writing a W register zeroes the upper
// half of its X register.
func (e *Emulator) SetReg(name string, value uint64) error {
	if strings.EqualFold(strings.TrimSpace(name), "PC") {
		e.regFile.PC = value
		return nil
	}
	r, ok := insts.ParseRegister(name)
	if !ok {
		return errors.Wrapf(ErrUnknownRegister, "%q", name)
	}
	e.regFile.Write(r, value)
	return nil
}

// ExecuteLine assembles a line, decodes the resulting word and executes
// it, so aliases resolve the same way as for machine code. The PC
// advances by four on success.
func (e *Emulator) ExecuteLine(line string) (*insts.Instruction, string, error) {
	word, err := e.encoder.Assemble(line)
	if err != nil {
		return nil, "", err
	}
	return e.ExecuteWord(word)
}

// ExecuteWord decodes and executes one instruction word. The PC advances
// by four on success.
func (e *Emulator) ExecuteWord(word insts.Word) (*insts.Instruction, string, error) {
	inst, err := e.decoder.Decode(word)
	if err != nil {
		return nil, "", err
	}
	trace, err := e.Execute(inst)
	if err != nil {
		return inst, "", err
	}
	e.regFile.PC += 4
	return inst, trace, nil
}

// Execute runs a decoded instruction and returns a trace of the form
// "; X0 = X1 + X2 = 0x5 + 0x6 = 0xb". The PC is read but not advanced.
func (e *Emulator) Execute(inst *insts.Instruction) (string, error) {
	if inst == nil {
		return "", errors.Wrap(ErrBadOperands, "nil instruction")
	}

	h, ok := handlers[inst.Mnemonic]
	if !ok {
		return "", errors.Wrapf(ErrUnsupported, "%s", inst.Mnemonic)
	}

	trace, err := h(e, inst.Operands)
	if err != nil {
		return "", errors.Wrapf(err, "executing %s", inst)
	}

	e.instructionCount++
	e.log.WithFields(logrus.Fields{
		"word": inst.Word.String(),
		"inst": inst.String(),
	}).Debug(trace)

	return trace, nil
}

type handler func(e *Emulator, ops []insts.Operand) (string, error)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"ADD":  arith(false, false, true),
		"ADDS": arith(false, true, true),
		"SUB":  arith(true, false, true),
		"SUBS": arith(true, true, true),
		"CMN":  arith(false, true, false),
		"CMP":  arith(true, true, false),
		"NEG":  (*Emulator).neg,

		"AND":  logic("&", false, false, true),
		"ANDS": logic("&", false, true, true),
		"ORR":  logic("|", false, false, true),
		"EOR":  logic("^", false, false, true),
		"BIC":  logic("&", true, false, true),
		"BICS": logic("&", true, true, true),
		"ORN":  logic("|", true, false, true),
		"EON":  logic("^", true, false, true),
		"TST":  logic("&", false, true, false),
		"MVN":  (*Emulator).mvn,
		"MOV":  (*Emulator).mov,

		"MOVZ": moveWide(false, false),
		"MOVN": moveWide(true, false),
		"MOVK": moveWide(false, true),

		"MUL":  multiply(false, false),
		"MNEG": multiply(true, false),
		"MADD": multiply(false, true),
		"MSUB": multiply(true, true),
		"UDIV": divide(false),
		"SDIV": divide(true),

		"LSL": shift(insts.ShiftLSL),
		"LSR": shift(insts.ShiftLSR),
		"ASR": shift(insts.ShiftASR),
		"ROR": shift(insts.ShiftROR),

		"ADR":  (*Emulator).adr,
		"ADRP": (*Emulator).adrp,
	}
}

// Mnemonics returns the mnemonics the emulator can execute, sorted.
func Mnemonics() []string {
	out := make([]string, 0, len(handlers))
	for m := range handlers {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func hex(v uint64) string {
	return fmt.Sprintf("%#x", v)
}

func regAt(ops []insts.Operand, i int) (insts.Register, error) {
	if i >= len(ops) {
		return insts.Register{}, errors.Wrapf(ErrBadOperands, "missing operand %d", i+1)
	}
	r, ok := ops[i].(insts.Register)
	if !ok {
		return insts.Register{}, errors.Wrapf(ErrBadOperands, "operand %d is %s, want a register", i+1, ops[i].Kind())
	}
	return r, nil
}

// operand2 evaluates the flexible second operand: a register with an
// optional shift, or an immediate.
func (e *Emulator) operand2(ops []insts.Operand, is64 bool) (uint64, string, error) {
	if len(ops) == 0 {
		return 0, "", errors.Wrap(ErrBadOperands, "missing second operand")
	}

	switch op := ops[0].(type) {
	case insts.Register:
		v := e.regFile.Read(op)
		if len(ops) == 1 {
			return v, op.String(), nil
		}
		sh, ok := ops[1].(insts.Shift)
		if !ok || len(ops) > 2 {
			return 0, "", errors.Wrap(ErrBadOperands, "trailing operands after register")
		}
		v = e.alu.Shift(v, sh.Type, uint(sh.Amount), is64)
		return v, fmt.Sprintf("(%s %s)", op, sh), nil

	case insts.Immediate:
		return op.Uint() & widthMask(is64), op.String(), nil

	case insts.ShiftedImmediate:
		return (op.Value << op.Amount) & widthMask(is64), op.String(), nil
	}

	return 0, "", errors.Wrapf(ErrBadOperands, "%s operand", ops[0].Kind())
}

func withFlags(trace string, setFlags bool, p PSTATE) string {
	if !setFlags {
		return trace
	}
	return trace + ", " + p.String()
}

func arith(sub, setFlags, hasDest bool) handler {
	sym := "+"
	if sub {
		sym = "-"
	}

	return func(e *Emulator, ops []insts.Operand) (string, error) {
		first := 0
		var rd insts.Register
		if hasDest {
			var err error
			if rd, err = regAt(ops, 0); err != nil {
				return "", err
			}
			first = 1
		}
		rn, err := regAt(ops, first)
		if err != nil {
			return "", err
		}

		op1 := e.regFile.Read(rn)
		op2, text, err := e.operand2(ops[first+1:], rn.Is64)
		if err != nil {
			return "", err
		}

		var result uint64
		if sub {
			result = e.alu.Sub(op1, op2, rn.Is64, setFlags)
		} else {
			result = e.alu.Add(op1, op2, rn.Is64, setFlags)
		}

		expr := fmt.Sprintf("%s %s %s = %s %s %s = %s", rn, sym, text, hex(op1), sym, hex(op2), hex(result))
		if !hasDest {
			return withFlags("; "+expr, true, e.regFile.PSTATE), nil
		}
		e.regFile.Write(rd, result)
		return withFlags(fmt.Sprintf("; %s = %s", rd, expr), setFlags, e.regFile.PSTATE), nil
	}
}

func (e *Emulator) neg(ops []insts.Operand) (string, error) {
	rd, err := regAt(ops, 0)
	if err != nil {
		return "", err
	}
	v, text, err := e.operand2(ops[1:], rd.Is64)
	if err != nil {
		return "", err
	}
	result := e.alu.Sub(0, v, rd.Is64, false)
	e.regFile.Write(rd, result)
	return fmt.Sprintf("; %s = -%s = -%s = %s", rd, text, hex(v), hex(result)), nil
}

func logic(sym string, invert, setFlags, hasDest bool) handler {
	return func(e *Emulator, ops []insts.Operand) (string, error) {
		first := 0
		var rd insts.Register
		if hasDest {
			var err error
			if rd, err = regAt(ops, 0); err != nil {
				return "", err
			}
			first = 1
		}
		rn, err := regAt(ops, first)
		if err != nil {
			return "", err
		}

		op1 := e.regFile.Read(rn)
		op2, text, err := e.operand2(ops[first+1:], rn.Is64)
		if err != nil {
			return "", err
		}
		if invert {
			op2 = ^op2 & widthMask(rn.Is64)
			text = "~" + text
		}

		var raw uint64
		switch sym {
		case "&":
			raw = op1 & op2
		case "|":
			raw = op1 | op2
		default:
			raw = op1 ^ op2
		}
		result := e.alu.Logic(raw, rn.Is64, setFlags)

		expr := fmt.Sprintf("%s %s %s = %s %s %s = %s", rn, sym, text, hex(op1), sym, hex(op2), hex(result))
		if !hasDest {
			return withFlags("; "+expr, true, e.regFile.PSTATE), nil
		}
		e.regFile.Write(rd, result)
		return withFlags(fmt.Sprintf("; %s = %s", rd, expr), setFlags, e.regFile.PSTATE), nil
	}
}

func (e *Emulator) mov(ops []insts.Operand) (string, error) {
	rd, err := regAt(ops, 0)
	if err != nil {
		return "", err
	}
	if len(ops) != 2 {
		return "", errors.Wrapf(ErrBadOperands, "MOV takes 2 operands, got %d", len(ops))
	}

	v, text, err := e.operand2(ops[1:], rd.Is64)
	if err != nil {
		return "", err
	}
	e.regFile.Write(rd, v)
	if _, isReg := ops[1].(insts.Register); isReg {
		return fmt.Sprintf("; %s = %s = %s", rd, text, hex(v)), nil
	}
	return fmt.Sprintf("; %s = %s", rd, hex(v)), nil
}

func (e *Emulator) mvn(ops []insts.Operand) (string, error) {
	rd, err := regAt(ops, 0)
	if err != nil {
		return "", err
	}
	v, text, err := e.operand2(ops[1:], rd.Is64)
	if err != nil {
		return "", err
	}
	result := ^v & widthMask(rd.Is64)
	e.regFile.Write(rd, result)
	return fmt.Sprintf("; %s = ~%s = ~%s = %s", rd, text, hex(v), hex(result)), nil
}

func moveWide(not, keep bool) handler {
	return func(e *Emulator, ops []insts.Operand) (string, error) {
		rd, err := regAt(ops, 0)
		if err != nil {
			return "", err
		}
		if len(ops) != 2 {
			return "", errors.Wrapf(ErrBadOperands, "move wide takes 2 operands, got %d", len(ops))
		}

		var imm, shift uint64
		switch op := ops[1].(type) {
		case insts.Immediate:
			imm = op.Uint()
		case insts.ShiftedImmediate:
			imm, shift = op.Value, uint64(op.Amount)
		default:
			return "", errors.Wrapf(ErrBadOperands, "%s operand", ops[1].Kind())
		}

		value := imm << shift
		switch {
		case keep:
			old := e.regFile.Read(rd)
			value = old&^(0xFFFF<<shift) | value
		case not:
			value = ^value
		}
		value &= widthMask(rd.Is64)

		e.regFile.Write(rd, value)
		return fmt.Sprintf("; %s = %s", rd, hex(value)), nil
	}
}

func multiply(negate, accumulate bool) handler {
	return func(e *Emulator, ops []insts.Operand) (string, error) {
		regs := make([]insts.Register, 3, 4)
		n := 3
		if accumulate {
			n = 4
			regs = regs[:4]
		}
		if len(ops) != n {
			return "", errors.Wrapf(ErrBadOperands, "want %d registers, got %d operands", n, len(ops))
		}
		for i := range regs {
			r, err := regAt(ops, i)
			if err != nil {
				return "", err
			}
			regs[i] = r
		}

		rd, rn, rm := regs[0], regs[1], regs[2]
		a, b := e.regFile.Read(rn), e.regFile.Read(rm)
		var addend uint64
		if accumulate {
			addend = e.regFile.Read(regs[3])
		}
		result := e.alu.MulAdd(a, b, addend, negate, rd.Is64)
		e.regFile.Write(rd, result)

		product := fmt.Sprintf("%s * %s", rn, rm)
		values := fmt.Sprintf("%s * %s", hex(a), hex(b))
		switch {
		case accumulate && negate:
			product = fmt.Sprintf("%s - %s", regs[3], product)
			values = fmt.Sprintf("%s - %s", hex(addend), values)
		case accumulate:
			product = fmt.Sprintf("%s + %s", product, regs[3])
			values = fmt.Sprintf("%s + %s", values, hex(addend))
		case negate:
			product = "-(" + product + ")"
			values = "-(" + values + ")"
		}
		return fmt.Sprintf("; %s = %s = %s = %s", rd, product, values, hex(result)), nil
	}
}

func divide(signed bool) handler {
	return func(e *Emulator, ops []insts.Operand) (string, error) {
		if len(ops) != 3 {
			return "", errors.Wrapf(ErrBadOperands, "want 3 registers, got %d operands", len(ops))
		}
		rd, err := regAt(ops, 0)
		if err != nil {
			return "", err
		}
		rn, err := regAt(ops, 1)
		if err != nil {
			return "", err
		}
		rm, err := regAt(ops, 2)
		if err != nil {
			return "", err
		}

		a, b := e.regFile.Read(rn), e.regFile.Read(rm)
		var result uint64
		if signed {
			result = e.alu.SDiv(a, b, rd.Is64)
		} else {
			result = e.alu.UDiv(a, b, rd.Is64)
		}
		e.regFile.Write(rd, result)
		return fmt.Sprintf("; %s = %s / %s = %s / %s = %s", rd, rn, rm, hex(a), hex(b), hex(result)), nil
	}
}

func shift(t insts.ShiftType) handler {
	return func(e *Emulator, ops []insts.Operand) (string, error) {
		if len(ops) != 3 {
			return "", errors.Wrapf(ErrBadOperands, "want 3 operands, got %d", len(ops))
		}
		rd, err := regAt(ops, 0)
		if err != nil {
			return "", err
		}
		rn, err := regAt(ops, 1)
		if err != nil {
			return "", err
		}

		amount, text, err := e.operand2(ops[2:], rd.Is64)
		if err != nil {
			return "", err
		}
		v := e.regFile.Read(rn)
		result := e.alu.Shift(v, t, uint(amount), rd.Is64)
		e.regFile.Write(rd, result)
		return fmt.Sprintf("; %s = %s %s %s = %s %s %s = %s",
			rd, rn, t, text, hex(v), t, hex(amount), hex(result)), nil
	}
}

func (e *Emulator) adr(ops []insts.Operand) (string, error) {
	return e.pcRelative(ops, e.regFile.PC, "PC")
}

func (e *Emulator) adrp(ops []insts.Operand) (string, error) {
	return e.pcRelative(ops, e.regFile.PC&^0xFFF, "PAGE(PC)")
}

func (e *Emulator) pcRelative(ops []insts.Operand, base uint64, name string) (string, error) {
	rd, err := regAt(ops, 0)
	if err != nil {
		return "", err
	}
	if len(ops) != 2 {
		return "", errors.Wrapf(ErrBadOperands, "want 2 operands, got %d", len(ops))
	}
	off, ok := ops[1].(insts.Immediate)
	if !ok {
		return "", errors.Wrapf(ErrBadOperands, "%s operand", ops[1].Kind())
	}

	result := base + uint64(off.Value)
	e.regFile.Write(rd, result)
	return fmt.Sprintf("; %s = %s + %s = %s", rd, name, off, hex(result)), nil
}
