package insts

import (
	"strings"

	"github.com/pkg/errors"
)

// Encoder assembles instructions into machine words using a Registry.
type Encoder struct {
	registry *Registry
}

// NewEncoder creates an encoder over the given registry. A nil registry
// selects DefaultRegistry.
func NewEncoder(registry *Registry) *Encoder {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Encoder{registry: registry}
}

// Registry returns the registry the encoder uses.
func (e *Encoder) Registry() *Registry {
	return e.registry
}

// Encode packs a mnemonic and its operands into a word. The formats of the
// mnemonic are tried in registration order; the first whose operand shapes
// fit and whose fields accept the values wins. When shapes fit but values
// do not, the first such error is returned.
func (e *Encoder) Encode(mnemonic string, operands ...Operand) (Word, error) {
	name, ops, err := splitCondSuffix(strings.ToUpper(strings.TrimSpace(mnemonic)), operands)
	if err != nil {
		return 0, err
	}

	candidates := e.registry.Candidates(name)
	if len(candidates) == 0 {
		return 0, &EncodeError{Mnemonic: name, Operand: -1, Err: ErrUnknownMnemonic}
	}

	var firstErr error
	for _, f := range candidates {
		if !f.Accepts(ops) {
			continue
		}
		w, err := EncodeWith(f, ops)
		if err == nil {
			return w, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		if retry, ok := encodeRetries[name]; ok {
			if alt, altOps, ok := retry(name, ops); ok {
				if w, err := e.Encode(alt, altOps...); err == nil {
					return w, nil
				}
			}
		}
		return 0, firstErr
	}
	return 0, &EncodeError{
		Mnemonic: name,
		Operand:  -1,
		Err:      errors.Wrapf(ErrNoMatchingForm, "operands (%s)", shapeOf(ops)),
	}
}

// encodeRetries rewrites operands that no form of a mnemonic accepts into
// an equivalent instruction. The rewrite is tried only after every form
// failed.
var encodeRetries = map[string]func(string, []Operand) (string, []Operand, bool){
	// MOV Xd, #imm with imm beyond 16 bits is MOVZ with a shift.
	"MOV": func(_ string, ops []Operand) (string, []Operand, bool) {
		if len(ops) != 2 {
			return "", nil, false
		}
		if _, ok := ops[1].(Immediate); !ok {
			return "", nil, false
		}
		return "MOVZ", ops, true
	},
	"TBZ":  testBitLow,
	"TBNZ": testBitLow,
}

// testBitLow retargets TBZ/TBNZ Xt, #bit with bit below 32 to Wt, which
// selects the same encoding.
func testBitLow(name string, ops []Operand) (string, []Operand, bool) {
	if len(ops) != 3 {
		return "", nil, false
	}
	r, ok := ops[0].(Register)
	if !ok || !r.Is64 || r.Class == RegSP {
		return "", nil, false
	}
	bit, ok := ops[1].(Immediate)
	if !ok || bit.Unsigned || bit.Value < 0 || bit.Value > 31 {
		return "", nil, false
	}
	r.Is64 = false
	return name, append([]Operand{r}, ops[1:]...), true
}

// EncodeWith packs operands into a specific format, skipping shape
// matching against other forms.
func EncodeWith(f *Format, ops []Operand) (Word, error) {
	if len(ops) > len(f.Fields) {
		return 0, &EncodeError{Mnemonic: f.Mnemonic, Operand: len(f.Fields),
			Err: errors.Wrap(ErrNoMatchingForm, "too many operands")}
	}

	word := f.Pattern
	for i, fs := range f.Fields {
		var op Operand
		if i < len(ops) {
			op = ops[i]
		}
		raw, err := fs.Codec.Encode(op, fs.Width())
		if err != nil {
			return 0, &EncodeError{Mnemonic: f.Mnemonic, Operand: i, Err: err}
		}
		word, err = fs.Insert(word, raw)
		if err != nil {
			return 0, &EncodeError{Mnemonic: f.Mnemonic, Operand: i, Err: err}
		}
	}
	return Word(word), nil
}

// EncodeInstruction encodes a parsed or decoded instruction.
func (e *Encoder) EncodeInstruction(inst *Instruction) (Word, error) {
	return e.Encode(inst.Mnemonic, inst.Operands...)
}

// Assemble parses one line of assembly and encodes it.
func (e *Encoder) Assemble(line string) (Word, error) {
	mnemonic, ops, err := ParseInstruction(line)
	if err != nil {
		return 0, err
	}
	return e.Encode(mnemonic, ops...)
}

// splitCondSuffix turns "B.EQ" into "B" with the condition prepended to
// the operands.
func splitCondSuffix(mnemonic string, ops []Operand) (string, []Operand, error) {
	base, suffix, ok := strings.Cut(mnemonic, ".")
	if !ok {
		return mnemonic, ops, nil
	}
	c, ok := ParseCond(suffix)
	if !ok || base == "" {
		return "", nil, &SyntaxError{Input: mnemonic, Msg: "unknown condition suffix"}
	}
	return base, append([]Operand{c}, ops...), nil
}

func shapeOf(ops []Operand) string {
	kinds := make([]string, len(ops))
	for i, op := range ops {
		if op == nil {
			kinds[i] = "nil"
			continue
		}
		kinds[i] = op.Kind().String()
	}
	return strings.Join(kinds, ", ")
}
