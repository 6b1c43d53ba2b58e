package insts

import (
	"math/bits"
	"strings"
)

// Format describes one instruction form: the fixed bits under Mask must
// equal Pattern, and every other bit belongs to exactly one field.
type Format struct {
	Mnemonic    string
	Group       string
	Description string
	Mask        uint32
	Pattern     uint32
	// Fields are listed in operand order.
	Fields []FieldSpec
	// AliasOf names the underlying instruction for alias forms.
	AliasOf string
}

// Specificity is the number of fixed bits. Decoding tries more specific
// formats first.
func (f *Format) Specificity() int {
	return bits.OnesCount32(f.Mask)
}

// Matches reports whether the fixed bits of word agree with the format.
func (f *Format) Matches(word Word) bool {
	return uint32(word)&f.Mask == f.Pattern
}

// Field looks up a field by name.
func (f *Format) Field(name string) (FieldSpec, bool) {
	for _, fs := range f.Fields {
		if strings.EqualFold(fs.Name, name) {
			return fs, true
		}
	}
	return FieldSpec{}, false
}

// IsAlias reports whether the format is an alias of another instruction.
func (f *Format) IsAlias() bool {
	return f.AliasOf != ""
}

// Accepts reports whether the operand list has a shape the format can
// encode: one operand per field, with trailing optional fields omittable.
func (f *Format) Accepts(ops []Operand) bool {
	if len(ops) > len(f.Fields) {
		return false
	}
	for i, fs := range f.Fields {
		if i >= len(ops) {
			if !fs.Optional {
				return false
			}
			continue
		}
		if ops[i] == nil || !fs.Codec.Accepts(ops[i]) {
			return false
		}
	}
	return true
}

// Syntax renders the operand template, e.g. "ADD <Xd|SP>, <Xn|SP>, #<imm12>{, LSL #12}".
func (f *Format) Syntax() string {
	var b strings.Builder
	b.WriteString(f.Mnemonic)
	for i, fs := range f.Fields {
		s := fs.Codec.Syntax()
		switch {
		case fs.Optional:
			b.WriteString(" " + s)
			continue
		case i == 0:
			b.WriteString(" ")
		default:
			b.WriteString(", ")
		}
		b.WriteString(s)
	}
	return b.String()
}

// BitPattern renders the format as 32 characters, most significant bit
// first: fixed bits as 0 or 1 and field bits as x.
func (f *Format) BitPattern() string {
	var b strings.Builder
	for i := 31; i >= 0; i-- {
		bit := uint32(1) << uint(i)
		switch {
		case f.Mask&bit == 0:
			b.WriteByte('x')
		case f.Pattern&bit != 0:
			b.WriteByte('1')
		default:
			b.WriteByte('0')
		}
	}
	return b.String()
}
