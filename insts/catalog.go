package insts

// Group names used by the catalogue.
const (
	GroupDataProcImm = "DataProcImm"
	GroupDataProcReg = "DataProcReg"
	GroupBranch      = "Branch"
	GroupSystem      = "System"
	GroupLoadStore   = "LoadStore"
)

const sfBit = 0x80000000

func bitsAt(offset, width uint) []BitRange {
	return []BitRange{{Offset: offset, Width: width}}
}

func reg(name string, offset uint, is64 bool, r31 RegClass) FieldSpec {
	return FieldSpec{Name: name, Ranges: bitsAt(offset, 5), Codec: regCodec{is64: is64, r31: r31}}
}

func rd(is64 bool) FieldSpec   { return reg("Rd", 0, is64, RegZero) }
func rdSP(is64 bool) FieldSpec { return reg("Rd", 0, is64, RegSP) }
func rn(is64 bool) FieldSpec   { return reg("Rn", 5, is64, RegZero) }
func rnSP(is64 bool) FieldSpec { return reg("Rn", 5, is64, RegSP) }
func rm(is64 bool) FieldSpec   { return reg("Rm", 16, is64, RegZero) }
func ra(is64 bool) FieldSpec   { return reg("Ra", 10, is64, RegZero) }
func rt(is64 bool) FieldSpec   { return reg("Rt", 0, is64, RegZero) }
func rt2(is64 bool) FieldSpec  { return reg("Rt2", 10, is64, RegZero) }

func uimm(name string, offset, width uint) FieldSpec {
	return FieldSpec{Name: name, Ranges: bitsAt(offset, width), Codec: immCodec{name: name}}
}

func limitedImm(name string, offset, width uint, limit uint32) FieldSpec {
	return FieldSpec{Name: name, Ranges: bitsAt(offset, width), Codec: immCodec{name: name, limit: limit}}
}

func branchOffset(offset, width uint) FieldSpec {
	return FieldSpec{
		Name:   "offset",
		Ranges: bitsAt(offset, width),
		Codec:  immCodec{signed: true, scale: 2, name: "offset"},
	}
}

func shiftField(is64, allowROR bool) FieldSpec {
	return FieldSpec{
		Name:     "shift",
		Ranges:   []BitRange{{Offset: 22, Width: 2}, {Offset: 10, Width: 6}},
		Codec:    shiftCodec{is64: is64, allowROR: allowROR},
		Optional: true,
	}
}

func addSubImm() FieldSpec {
	return FieldSpec{Name: "imm", Ranges: bitsAt(10, 13), Codec: addSubImmCodec{}}
}

// bitmask is N:immr:imms in both sizes so that N=1 in a 32-bit form
// decodes as an unallocated bitmask rather than an unknown word.
func bitmask(is64 bool) FieldSpec {
	if is64 {
		return FieldSpec{Name: "bitmask", Ranges: bitsAt(10, 13), Codec: logicalImmCodec{size: 64}}
	}
	return FieldSpec{Name: "bitmask", Ranges: bitsAt(10, 13), Codec: logicalImmCodec{size: 32}}
}

func regLimit(is64 bool) uint32 {
	if is64 {
		return 63
	}
	return 31
}

func sizeBit(is64 bool) uint32 {
	if is64 {
		return sfBit
	}
	return 0
}

func formatWith(group, mnemonic, desc string, pattern, mask uint32, fields ...FieldSpec) *Format {
	return &Format{
		Mnemonic:    mnemonic,
		Group:       group,
		Description: desc,
		Mask:        mask,
		Pattern:     pattern,
		Fields:      fields,
	}
}

func alias(of string, f *Format) *Format {
	f.AliasOf = of
	return f
}

// Catalog returns a fresh copy of the built-in instruction table in
// registration order.
func Catalog() []*Format {
	var out []*Format
	for _, is64 := range []bool{true, false} {
		out = append(out, dataProcImm(is64)...)
		out = append(out, dataProcReg(is64)...)
		out = append(out, compareBranches(is64)...)
	}
	out = append(out, branches()...)
	out = append(out, system()...)
	out = append(out, loadStore()...)
	return out
}

func dataProcImm(is64 bool) []*Format {
	g := GroupDataProcImm
	s := sizeBit(is64)
	var out []*Format

	addSub := []struct {
		name, desc string
		base       uint32
		setsFlags  bool
	}{
		{"ADD", "Add (immediate)", 0x11000000, false},
		{"ADDS", "Add (immediate), setting flags", 0x31000000, true},
		{"SUB", "Subtract (immediate)", 0x51000000, false},
		{"SUBS", "Subtract (immediate), setting flags", 0x71000000, true},
	}
	for _, op := range addSub {
		dst := rdSP(is64)
		if op.setsFlags {
			dst = rd(is64)
		}
		out = append(out, formatWith(g, op.name, op.desc, op.base|s, 0xFF800000,
			dst, rnSP(is64), addSubImm()))
	}
	out = append(out,
		alias("SUBS", formatWith(g, "CMP", "Compare (immediate)", 0x7100001F|s, 0xFF80001F,
			rnSP(is64), addSubImm())),
		alias("ADDS", formatWith(g, "CMN", "Compare negative (immediate)", 0x3100001F|s, 0xFF80001F,
			rnSP(is64), addSubImm())),
	)

	logicalMask := uint32(0xFF800000)
	logical := []struct {
		name, desc string
		base       uint32
		setsFlags  bool
	}{
		{"AND", "Bitwise AND (immediate)", 0x12000000, false},
		{"ORR", "Bitwise OR (immediate)", 0x32000000, false},
		{"EOR", "Bitwise exclusive OR (immediate)", 0x52000000, false},
		{"ANDS", "Bitwise AND (immediate), setting flags", 0x72000000, true},
	}
	for _, op := range logical {
		dst := rdSP(is64)
		if op.setsFlags {
			dst = rd(is64)
		}
		out = append(out, formatWith(g, op.name, op.desc, op.base|s, logicalMask,
			dst, rn(is64), bitmask(is64)))
	}
	out = append(out, alias("ANDS", formatWith(g, "TST", "Test bits (immediate)",
		0x7200001F|s, logicalMask|0x1F, rn(is64), bitmask(is64))))

	wide := FieldSpec{Name: "imm", Ranges: bitsAt(5, 18), Codec: wideImmCodec{is64: is64}}
	for _, op := range []struct {
		name, desc string
		base       uint32
	}{
		{"MOVN", "Move wide with NOT", 0x12800000},
		{"MOVZ", "Move wide with zero", 0x52800000},
		{"MOVK", "Move wide with keep", 0x72800000},
	} {
		out = append(out, formatWith(g, op.name, op.desc, op.base|s, 0xFF800000, rd(is64), wide))
	}
	out = append(out, alias("MOVZ", formatWith(g, "MOV", "Move (wide immediate)",
		0x52800000|s, 0xFFE00000, rd(is64), uimm("imm16", 5, 16))))

	if is64 {
		adrOffset := []BitRange{{Offset: 5, Width: 19}, {Offset: 29, Width: 2}}
		out = append(out,
			formatWith(g, "ADR", "Form PC-relative address", 0x10000000, 0x9F000000,
				rd(true), FieldSpec{Name: "offset", Ranges: adrOffset,
					Codec: immCodec{signed: true, name: "offset"}}),
			formatWith(g, "ADRP", "Form PC-relative address to 4KB page", 0x90000000, 0x9F000000,
				rd(true), FieldSpec{Name: "offset", Ranges: adrOffset,
					Codec: immCodec{signed: true, scale: 12, name: "offset"}}),
		)
	}

	bfBase := map[string]uint32{"SBFM": 0x13000000, "BFM": 0x33000000, "UBFM": 0x53000000}
	if is64 {
		bfBase = map[string]uint32{"SBFM": 0x93400000, "BFM": 0xB3400000, "UBFM": 0xD3400000}
	}
	limit := regLimit(is64)
	for _, name := range []string{"SBFM", "BFM", "UBFM"} {
		out = append(out, formatWith(g, name, bitfieldDesc[name], bfBase[name], 0xFFC00000,
			rd(is64), rn(is64), limitedImm("immr", 16, 6, limit), limitedImm("imms", 10, 6, limit)))
	}

	asr, lsr := uint32(0x13007C00), uint32(0x53007C00)
	if is64 {
		asr, lsr = 0x9340FC00, 0xD340FC00
	}
	out = append(out,
		alias("SBFM", formatWith(g, "ASR", "Arithmetic shift right (immediate)", asr, 0xFFC0FC00,
			rd(is64), rn(is64), limitedImm("shift", 16, 6, limit))),
		alias("UBFM", formatWith(g, "LSR", "Logical shift right (immediate)", lsr, 0xFFC0FC00,
			rd(is64), rn(is64), limitedImm("shift", 16, 6, limit))),
	)

	return out
}

var bitfieldDesc = map[string]string{
	"SBFM": "Signed bitfield move",
	"BFM":  "Bitfield move",
	"UBFM": "Unsigned bitfield move",
}

func dataProcReg(is64 bool) []*Format {
	g := GroupDataProcReg
	s := sizeBit(is64)
	var out []*Format

	for _, op := range []struct {
		name, desc string
		base       uint32
	}{
		{"ADD", "Add (shifted register)", 0x0B000000},
		{"ADDS", "Add (shifted register), setting flags", 0x2B000000},
		{"SUB", "Subtract (shifted register)", 0x4B000000},
		{"SUBS", "Subtract (shifted register), setting flags", 0x6B000000},
	} {
		out = append(out, formatWith(g, op.name, op.desc, op.base|s, 0xFF200000,
			rd(is64), rn(is64), rm(is64), shiftField(is64, false)))
	}
	out = append(out,
		alias("SUBS", formatWith(g, "CMP", "Compare (shifted register)", 0x6B00001F|s, 0xFF20001F,
			rn(is64), rm(is64), shiftField(is64, false))),
		alias("ADDS", formatWith(g, "CMN", "Compare negative (shifted register)", 0x2B00001F|s, 0xFF20001F,
			rn(is64), rm(is64), shiftField(is64, false))),
		alias("SUB", formatWith(g, "NEG", "Negate (shifted register)", 0x4B0003E0|s, 0xFF2003E0,
			rd(is64), rm(is64), shiftField(is64, false))),
	)

	for _, op := range []struct {
		name, desc string
		base       uint32
	}{
		{"AND", "Bitwise AND (shifted register)", 0x0A000000},
		{"BIC", "Bitwise bit clear (shifted register)", 0x0A200000},
		{"ORR", "Bitwise OR (shifted register)", 0x2A000000},
		{"ORN", "Bitwise OR NOT (shifted register)", 0x2A200000},
		{"EOR", "Bitwise exclusive OR (shifted register)", 0x4A000000},
		{"EON", "Bitwise exclusive OR NOT (shifted register)", 0x4A200000},
		{"ANDS", "Bitwise AND (shifted register), setting flags", 0x6A000000},
		{"BICS", "Bitwise bit clear (shifted register), setting flags", 0x6A200000},
	} {
		out = append(out, formatWith(g, op.name, op.desc, op.base|s, 0xFF200000,
			rd(is64), rn(is64), rm(is64), shiftField(is64, true)))
	}
	out = append(out,
		alias("ORR", formatWith(g, "MOV", "Move (register)", 0x2A0003E0|s, 0xFFE0FFE0,
			rd(is64), rm(is64))),
		alias("ORN", formatWith(g, "MVN", "Bitwise NOT", 0x2A2003E0|s, 0xFF2003E0,
			rd(is64), rm(is64), shiftField(is64, true))),
		alias("ANDS", formatWith(g, "TST", "Test bits (shifted register)", 0x6A00001F|s, 0xFF20001F,
			rn(is64), rm(is64), shiftField(is64, true))),
	)

	for _, op := range []struct {
		name, desc string
		opcode     uint32
	}{
		{"UDIV", "Unsigned divide", 0b000010},
		{"SDIV", "Signed divide", 0b000011},
		{"LSL", "Logical shift left (register)", 0b001000},
		{"LSR", "Logical shift right (register)", 0b001001},
		{"ASR", "Arithmetic shift right (register)", 0b001010},
		{"ROR", "Rotate right (register)", 0b001011},
	} {
		out = append(out, formatWith(g, op.name, op.desc, 0x1AC00000|s|op.opcode<<10, 0xFFE0FC00,
			rd(is64), rn(is64), rm(is64)))
	}

	out = append(out,
		formatWith(g, "MADD", "Multiply-add", 0x1B000000|s, 0xFFE08000,
			rd(is64), rn(is64), rm(is64), ra(is64)),
		formatWith(g, "MSUB", "Multiply-subtract", 0x1B008000|s, 0xFFE08000,
			rd(is64), rn(is64), rm(is64), ra(is64)),
		alias("MADD", formatWith(g, "MUL", "Multiply", 0x1B007C00|s, 0xFFE0FC00,
			rd(is64), rn(is64), rm(is64))),
		alias("MSUB", formatWith(g, "MNEG", "Multiply-negate", 0x1B00FC00|s, 0xFFE0FC00,
			rd(is64), rn(is64), rm(is64))),
	)

	cond := FieldSpec{Name: "cond", Ranges: bitsAt(12, 4), Codec: condCodec{}}
	for _, op := range []struct {
		name, desc string
		base       uint32
	}{
		{"CSEL", "Conditional select", 0x1A800000},
		{"CSINC", "Conditional select increment", 0x1A800400},
		{"CSINV", "Conditional select invert", 0x5A800000},
		{"CSNEG", "Conditional select negation", 0x5A800400},
	} {
		out = append(out, formatWith(g, op.name, op.desc, op.base|s, 0xFFE00C00,
			rd(is64), rn(is64), rm(is64), cond))
	}

	rev := uint32(0x5AC00800)
	if is64 {
		rev = 0xDAC00C00
	}
	out = append(out,
		formatWith(g, "RBIT", "Reverse bits", 0x5AC00000|s, 0xFFFFFC00, rd(is64), rn(is64)),
		formatWith(g, "CLZ", "Count leading zeros", 0x5AC01000|s, 0xFFFFFC00, rd(is64), rn(is64)),
		formatWith(g, "REV", "Reverse bytes", rev, 0xFFFFFC00, rd(is64), rn(is64)),
	)

	return out
}

func compareBranches(is64 bool) []*Format {
	g := GroupBranch
	s := sizeBit(is64)

	bit := limitedImm("bit", 19, 5, 0)
	if is64 {
		bit.Codec = immCodec{name: "bit", base: 32}
	}

	return []*Format{
		formatWith(g, "CBZ", "Compare and branch on zero", 0x34000000|s, 0xFF000000,
			rt(is64), branchOffset(5, 19)),
		formatWith(g, "CBNZ", "Compare and branch on nonzero", 0x35000000|s, 0xFF000000,
			rt(is64), branchOffset(5, 19)),
		formatWith(g, "TBZ", "Test bit and branch if zero", 0x36000000|s, 0xFF000000,
			rt(is64), bit, branchOffset(5, 14)),
		formatWith(g, "TBNZ", "Test bit and branch if nonzero", 0x37000000|s, 0xFF000000,
			rt(is64), bit, branchOffset(5, 14)),
	}
}

func branches() []*Format {
	g := GroupBranch
	out := []*Format{
		formatWith(g, "B", "Branch", 0x14000000, 0xFC000000, branchOffset(0, 26)),
		formatWith(g, "BL", "Branch with link", 0x94000000, 0xFC000000, branchOffset(0, 26)),
		formatWith(g, "B", "Branch conditionally", 0x54000000, 0xFF000010,
			FieldSpec{Name: "cond", Ranges: bitsAt(0, 4), Codec: condCodec{}}, branchOffset(5, 19)),
	}
	for _, op := range []struct {
		name, desc string
		base       uint32
	}{
		{"BR", "Branch to register", 0xD61F0000},
		{"BLR", "Branch with link to register", 0xD63F0000},
		{"RET", "Return from subroutine", 0xD65F0000},
	} {
		out = append(out, formatWith(g, op.name, op.desc, op.base, 0xFFFFFC1F, rn(true)))
	}
	out = append(out, alias("RET", formatWith(g, "RET", "Return to X30", 0xD65F03C0, 0xFFFFFFFF)))
	return out
}

func system() []*Format {
	g := GroupSystem
	var out []*Format
	for _, op := range []struct {
		name, desc string
		word       uint32
	}{
		{"NOP", "No operation", 0xD503201F},
		{"YIELD", "Yield hint", 0xD503203F},
		{"WFE", "Wait for event", 0xD503205F},
		{"WFI", "Wait for interrupt", 0xD503207F},
		{"SEV", "Send event", 0xD503209F},
		{"SEVL", "Send event local", 0xD50320BF},
	} {
		out = append(out, formatWith(g, op.name, op.desc, op.word, 0xFFFFFFFF))
	}
	out = append(out, formatWith(g, "HINT", "Hint instruction", 0xD503201F, 0xFFFFF01F,
		uimm("imm", 5, 7)))

	for _, op := range []struct {
		name, desc string
		base       uint32
	}{
		{"SVC", "Supervisor call", 0xD4000001},
		{"HVC", "Hypervisor call", 0xD4000002},
		{"SMC", "Secure monitor call", 0xD4000003},
		{"BRK", "Breakpoint", 0xD4200000},
		{"HLT", "Halt", 0xD4400000},
	} {
		out = append(out, formatWith(g, op.name, op.desc, op.base, 0xFFE0001F, uimm("imm", 5, 16)))
	}

	sysreg := FieldSpec{Name: "sysreg", Ranges: bitsAt(5, 15), Codec: sysRegCodec{}}
	out = append(out,
		formatWith(g, "MRS", "Move system register to general register", 0xD5300000, 0xFFF00000,
			rt(true), sysreg),
		formatWith(g, "MSR", "Move general register to system register", 0xD5100000, 0xFFF00000,
			sysreg, rt(true)),
	)
	return out
}

func memField(mode AddrMode, signed bool, scale, offWidth uint) FieldSpec {
	offOffset := uint(10)
	switch offWidth {
	case 9:
		offOffset = 12
	case 7:
		offOffset = 15
	}
	return FieldSpec{
		Name:   "mem",
		Ranges: []BitRange{{Offset: offOffset, Width: offWidth}, {Offset: 5, Width: 5}},
		Codec:  memCodec{mode: mode, signed: signed, scale: scale},
	}
}

func loadStore() []*Format {
	g := GroupLoadStore
	var out []*Format

	for _, op := range []struct {
		name, desc string
		base       uint32
		is64       bool
		scale      uint
	}{
		{"LDR", "Load register (unsigned offset)", 0xF9400000, true, 3},
		{"STR", "Store register (unsigned offset)", 0xF9000000, true, 3},
		{"LDR", "Load register (unsigned offset)", 0xB9400000, false, 2},
		{"STR", "Store register (unsigned offset)", 0xB9000000, false, 2},
		{"LDRB", "Load register byte (unsigned offset)", 0x39400000, false, 0},
		{"STRB", "Store register byte (unsigned offset)", 0x39000000, false, 0},
		{"LDRH", "Load register halfword (unsigned offset)", 0x79400000, false, 1},
		{"STRH", "Store register halfword (unsigned offset)", 0x79000000, false, 1},
	} {
		out = append(out, formatWith(g, op.name, op.desc, op.base, 0xFFC00000,
			rt(op.is64), memField(AddrOffset, false, op.scale, 12)))
	}

	for _, op := range []struct {
		name, desc string
		base       uint32
		is64       bool
		mode       AddrMode
	}{
		{"LDUR", "Load register (unscaled offset)", 0xF8400000, true, AddrOffset},
		{"STUR", "Store register (unscaled offset)", 0xF8000000, true, AddrOffset},
		{"LDUR", "Load register (unscaled offset)", 0xB8400000, false, AddrOffset},
		{"STUR", "Store register (unscaled offset)", 0xB8000000, false, AddrOffset},
		{"LDR", "Load register (post-index)", 0xF8400400, true, AddrPostIndex},
		{"LDR", "Load register (pre-index)", 0xF8400C00, true, AddrPreIndex},
		{"STR", "Store register (post-index)", 0xF8000400, true, AddrPostIndex},
		{"STR", "Store register (pre-index)", 0xF8000C00, true, AddrPreIndex},
		{"LDR", "Load register (post-index)", 0xB8400400, false, AddrPostIndex},
		{"LDR", "Load register (pre-index)", 0xB8400C00, false, AddrPreIndex},
		{"STR", "Store register (post-index)", 0xB8000400, false, AddrPostIndex},
		{"STR", "Store register (pre-index)", 0xB8000C00, false, AddrPreIndex},
	} {
		out = append(out, formatWith(g, op.name, op.desc, op.base, 0xFFE00C00,
			rt(op.is64), memField(op.mode, true, 0, 9)))
	}

	for _, op := range []struct {
		base uint32
		mode AddrMode
	}{
		{0x29000000, AddrOffset},
		{0x28800000, AddrPostIndex},
		{0x29800000, AddrPreIndex},
	} {
		for _, is64 := range []bool{true, false} {
			base := op.base
			scale := uint(2)
			if is64 {
				base |= 0x80000000
				scale = 3
			}
			out = append(out,
				formatWith(g, "STP", "Store pair of registers ("+op.mode.String()+")", base, 0xFFC00000,
					rt(is64), rt2(is64), memField(op.mode, true, scale, 7)),
				formatWith(g, "LDP", "Load pair of registers ("+op.mode.String()+")", base|0x00400000, 0xFFC00000,
					rt(is64), rt2(is64), memField(op.mode, true, scale, 7)),
			)
		}
	}

	return out
}
