package insts

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// Instruction is a decoded or parsed instruction. Operands are listed in
// assembly order; a condition in first position renders as a mnemonic
// suffix, as in B.EQ.
type Instruction struct {
	Mnemonic string
	Operands []Operand
	Word     Word
}

// String renders the instruction as assembly text.
func (i *Instruction) String() string {
	return Render(i.Mnemonic, i.Operands)
}

// Decoder decodes AArch64 machine words using a Registry.
type Decoder struct {
	registry *Registry
}

// NewDecoder creates a decoder over the given registry. A nil registry
// selects DefaultRegistry.
func NewDecoder(registry *Registry) *Decoder {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Decoder{registry: registry}
}

// Registry returns the registry the decoder uses.
func (d *Decoder) Registry() *Registry {
	return d.registry
}

// Lookup returns the format a word decodes with, without decoding fields.
func (d *Decoder) Lookup(word Word) (*Format, error) {
	return d.registry.Lookup(word)
}

// Decode decodes a single instruction word.
func (d *Decoder) Decode(word Word) (*Instruction, error) {
	f, err := d.registry.Lookup(word)
	if err != nil {
		return nil, err
	}

	ops, err := decodeFields(f, word)
	if err != nil {
		return nil, err
	}
	return &Instruction{Mnemonic: f.Mnemonic, Operands: ops, Word: word}, nil
}

func decodeFields(f *Format, word Word) ([]Operand, error) {
	ops := make([]Operand, 0, len(f.Fields))
	for _, fs := range f.Fields {
		raw, err := fs.Extract(uint32(word))
		if err != nil {
			return nil, &DecodeError{Word: word, Mnemonic: f.Mnemonic, Field: fs.Name, Err: err}
		}
		op, err := fs.Codec.Decode(raw, fs.Width())
		if err != nil {
			return nil, &DecodeError{Word: word, Mnemonic: f.Mnemonic, Field: fs.Name, Err: err}
		}
		if op == nil {
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// DecodeWith decodes word with a specific format, bypassing lookup. The
// word must match the format's fixed bits.
func DecodeWith(f *Format, word Word) (*Instruction, error) {
	if !f.Matches(word) {
		return nil, &DecodeError{Word: word, Mnemonic: f.Mnemonic,
			Err: errors.Wrap(ErrUnknownEncoding, "fixed bits do not match")}
	}
	ops, err := decodeFields(f, word)
	if err != nil {
		return nil, err
	}
	return &Instruction{Mnemonic: f.Mnemonic, Operands: ops, Word: word}, nil
}

// DecodeHex parses a hex word and decodes it.
func (d *Decoder) DecodeHex(s string) (*Instruction, error) {
	w, err := ParseWord(s)
	if err != nil {
		return nil, err
	}
	return d.Decode(w)
}

// DecodeBytes decodes a little-endian code buffer. It stops at the first
// word that fails to decode and returns the instructions decoded so far.
func (d *Decoder) DecodeBytes(code []byte) ([]*Instruction, error) {
	if len(code)%4 != 0 {
		return nil, errors.Errorf("code length %d is not a multiple of 4", len(code))
	}
	out := make([]*Instruction, 0, len(code)/4)
	for off := 0; off < len(code); off += 4 {
		inst, err := d.Decode(Word(binary.LittleEndian.Uint32(code[off:])))
		if err != nil {
			return out, errors.Wrapf(err, "at offset 0x%X", off)
		}
		out = append(out, inst)
	}
	return out, nil
}

// Disassemble renders a word as text, or as a ".word" directive when it
// does not decode.
func (d *Decoder) Disassemble(word Word) string {
	inst, err := d.Decode(word)
	if err != nil {
		return ".word " + strings.ToLower(word.String())
	}
	return inst.String()
}
