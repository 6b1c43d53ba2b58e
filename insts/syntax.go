package insts

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Render formats a mnemonic and operands in canonical upper-case
// assembly. A leading condition operand becomes a ".cond" suffix.
func Render(mnemonic string, ops []Operand) string {
	var b strings.Builder
	b.WriteString(mnemonic)
	if len(ops) > 0 {
		if c, ok := ops[0].(Cond); ok {
			b.WriteString("." + c.String())
			ops = ops[1:]
		}
	}
	for i, op := range ops {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(op.String())
	}
	return b.String()
}

var condAliases = map[string]Cond{
	"HS": CondCS,
	"LO": CondCC,
}

// ParseCond parses a condition name, including the HS and LO aliases.
func ParseCond(s string) (Cond, bool) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range condNames {
		if name == up {
			c, err := NewCondition(i)
			return c, err == nil
		}
	}
	c, ok := condAliases[up]
	return c, ok
}

// ParseShiftType parses LSL, LSR, ASR or ROR.
func ParseShiftType(s string) (ShiftType, bool) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range shiftNames {
		if name == up {
			return ShiftType(i), true
		}
	}
	return 0, false
}

// ParseRegister parses X0-X30, W0-W30, XZR, WZR, SP, WSP, and the LR
// (X30) and FP (X29) aliases.
func ParseRegister(s string) (Register, bool) {
	up := strings.ToUpper(strings.TrimSpace(s))
	switch up {
	case "XZR":
		return XZR, true
	case "WZR":
		return WZR, true
	case "SP":
		return SP, true
	case "WSP":
		return WSP, true
	case "LR":
		return X(30), true
	case "FP":
		return X(29), true
	}
	if len(up) < 2 || (up[0] != 'X' && up[0] != 'W') {
		return Register{}, false
	}
	digits := up[1:]
	if len(digits) > 1 && digits[0] == '0' {
		return Register{}, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n == 31 {
		return Register{}, false
	}
	r, err := NewRegister(n, up[0] == 'X')
	return r, err == nil
}

// ParseImmediate parses "#0x1F", "#-8", "42" and similar. Hex digits
// follow 0x; otherwise the number is decimal.
func ParseImmediate(s string) (Immediate, bool) {
	t := strings.TrimSpace(s)
	t = strings.TrimSpace(strings.TrimPrefix(t, "#"))
	neg := false
	switch {
	case strings.HasPrefix(t, "-"):
		neg = true
		t = t[1:]
	case strings.HasPrefix(t, "+"):
		t = t[1:]
	}
	if t == "" {
		return Immediate{}, false
	}

	var u uint64
	var err error
	if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
		u, err = strconv.ParseUint(t[2:], 16, 64)
	} else {
		u, err = strconv.ParseUint(t, 10, 64)
	}
	if err != nil {
		return Immediate{}, false
	}

	if neg {
		if u > 1<<63 {
			return Immediate{}, false
		}
		return Imm(-int64(u)), true
	}
	return Immediate{Value: int64(u), Unsigned: u > math.MaxInt64}, true
}

// ParseOperand parses a single operand token. Memory operands and shifts
// are handled by ParseInstruction, which needs neighbouring tokens.
func ParseOperand(s string) (Operand, error) {
	t := strings.TrimSpace(s)
	if r, ok := ParseRegister(t); ok {
		return r, nil
	}
	if imm, ok := ParseImmediate(t); ok {
		return imm, nil
	}
	if c, ok := ParseCond(t); ok {
		return c, nil
	}
	if r, ok := ParseSysReg(t); ok {
		return r, nil
	}
	return nil, &SyntaxError{Input: s, Msg: "unrecognised operand"}
}

// ParseInstruction splits one line of assembly into a mnemonic and typed
// operands. Text after ';' or "//" is ignored. A ".cond" suffix on the
// mnemonic becomes a leading condition operand.
func ParseInstruction(line string) (string, []Operand, error) {
	text := line
	if i := strings.Index(text, "//"); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, ";"); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, &SyntaxError{Input: line, Msg: "empty instruction"}
	}

	mnemonic, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		mnemonic, rest = text[:i], text[i+1:]
	}
	mnemonic = strings.ToUpper(mnemonic)

	var ops []Operand
	base, suffix, dotted := strings.Cut(mnemonic, ".")
	if dotted {
		c, ok := ParseCond(suffix)
		if !ok || base == "" {
			return "", nil, &SyntaxError{Input: line, Msg: "unknown condition suffix " + suffix}
		}
		mnemonic = base
		ops = append(ops, c)
	}

	tokens, err := splitOperands(rest)
	if err != nil {
		return "", nil, &SyntaxError{Input: line, Msg: err.Error()}
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case strings.HasPrefix(tok, "["):
			mem, hasOffset, err := parseMemory(tok)
			if err != nil {
				return "", nil, &SyntaxError{Input: line, Msg: err.Error()}
			}
			if mem.Mode == AddrOffset && !hasOffset && i+1 < len(tokens) {
				if imm, ok := ParseImmediate(tokens[i+1]); ok && !imm.Unsigned {
					mem.Mode = AddrPostIndex
					mem.Offset = imm.Value
					i++
				}
			}
			ops = append(ops, mem)

		case isShiftToken(tok):
			sh, err := parseShift(tok)
			if err != nil {
				return "", nil, &SyntaxError{Input: line, Msg: err.Error()}
			}
			if n := len(ops); n > 0 {
				if imm, ok := ops[n-1].(Immediate); ok {
					if imm.Value < 0 && !imm.Unsigned {
						return "", nil, &SyntaxError{Input: line, Msg: "negative shifted immediate"}
					}
					ops[n-1] = ShiftedImmediate{Value: imm.Uint(), Shift: sh.Type, Amount: sh.Amount}
					continue
				}
			}
			ops = append(ops, sh)

		default:
			op, err := ParseOperand(tok)
			if err != nil {
				return "", nil, &SyntaxError{Input: line, Msg: "unrecognised operand " + strconv.Quote(tok)}
			}
			ops = append(ops, op)
		}
	}

	return mnemonic, ops, nil
}

// splitOperands splits at commas outside brackets.
func splitOperands(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, errUnbalanced
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, errUnbalanced
	}
	out = append(out, strings.TrimSpace(s[start:]))

	for _, tok := range out {
		if tok == "" {
			return nil, errEmptyOperand
		}
	}
	return out, nil
}

var (
	errUnbalanced   = errors.New("unbalanced brackets")
	errEmptyOperand = errors.New("empty operand")
)

// splitShift splits "LSL #3" or "LSL#3" into its type and amount.
func splitShift(tok string) (ShiftType, string, bool) {
	parts := strings.Fields(tok)
	if len(parts) == 1 {
		name, amount, found := strings.Cut(parts[0], "#")
		if !found {
			return 0, "", false
		}
		parts = []string{name, "#" + amount}
	}
	if len(parts) != 2 {
		return 0, "", false
	}
	t, ok := ParseShiftType(parts[0])
	return t, parts[1], ok
}

func isShiftToken(tok string) bool {
	_, _, ok := splitShift(tok)
	return ok
}

func parseShift(tok string) (Shift, error) {
	t, amount, _ := splitShift(tok)
	imm, ok := ParseImmediate(amount)
	if !ok || imm.Unsigned || imm.Value < math.MinInt32 || imm.Value > math.MaxInt32 {
		return Shift{}, errors.Errorf("bad shift amount %q", amount)
	}
	sh, err := NewShift(t, int(imm.Value))
	if err != nil {
		return Shift{}, errors.Wrapf(err, "bad shift amount %q", amount)
	}
	return sh, nil
}

// parseMemory parses "[Xn]", "[Xn, #imm]" and "[Xn, #imm]!".
func parseMemory(tok string) (Memory, bool, error) {
	t := strings.TrimSpace(tok)
	mode := AddrOffset
	if strings.HasSuffix(t, "!") {
		mode = AddrPreIndex
		t = strings.TrimSpace(strings.TrimSuffix(t, "!"))
	}
	if !strings.HasPrefix(t, "[") || !strings.HasSuffix(t, "]") {
		return Memory{}, false, errors.Errorf("malformed memory operand %q", tok)
	}
	inner := t[1 : len(t)-1]

	baseText, offText, hasOffset := strings.Cut(inner, ",")
	base, ok := ParseRegister(baseText)
	if !ok {
		return Memory{}, false, errors.Errorf("bad base register %q", strings.TrimSpace(baseText))
	}

	mem := Memory{Base: base, Mode: mode}
	if hasOffset {
		imm, ok := ParseImmediate(offText)
		if !ok || imm.Unsigned {
			return Memory{}, false, errors.Errorf("bad offset %q", strings.TrimSpace(offText))
		}
		mem.Offset = imm.Value
	}
	return mem, hasOffset, nil
}
