package explore

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/gemi/emu"
	"github.com/sarchlab/gemi/insts"
)

// ErrUnknownGroup is returned for a group name the registry lacks.
var ErrUnknownGroup = errors.New("unknown instruction group")

// Undefined is shown for words that do not decode.
const Undefined = "<UNDEFINED>"

// Explorer prints format descriptions and field sweeps to a writer.
type Explorer struct {
	out      io.Writer
	registry *insts.Registry
	decoder  *insts.Decoder
	emulator *emu.Emulator
	color    bool
}

// Option is a functional option for configuring the Explorer.
type Option func(*Explorer)

// WithRegistry explores a custom registry instead of the default one.
func WithRegistry(r *insts.Registry) Option {
	return func(x *Explorer) {
		x.registry = r
	}
}

// WithColor turns ANSI highlighting on or off.
func WithColor(color bool) Option {
	return func(x *Explorer) {
		x.color = color
	}
}

// WithEmulator runs every variation on e and shows its trace. The
// emulator's registers are restored after each variation.
func WithEmulator(e *emu.Emulator) Option {
	return func(x *Explorer) {
		x.emulator = e
	}
}

// New creates an explorer writing to out. Colour is off by default.
func New(out io.Writer, opts ...Option) *Explorer {
	x := &Explorer{out: out}
	for _, opt := range opts {
		opt(x)
	}
	if x.registry == nil {
		x.registry = insts.DefaultRegistry()
	}
	x.decoder = insts.NewDecoder(x.registry)
	return x
}

// Registry returns the registry being explored.
func (x *Explorer) Registry() *insts.Registry {
	return x.registry
}

// Variation is one word produced by a sweep.
type Variation struct {
	Word    insts.Word
	Inst    *insts.Instruction
	Err     error
	Changed []FieldValue
	Trace   string
}

// Text returns the disassembly, or Undefined when the word did not decode.
func (v Variation) Text() string {
	if v.Err != nil || v.Inst == nil {
		return Undefined
	}
	return v.Inst.String()
}

// Variations decodes, and if an emulator is attached executes, every word
// of the sweep.
func (x *Explorer) Variations(s *Sweep) []Variation {
	var out []Variation
	for word := range s.Words() {
		v := Variation{Word: word, Changed: ChangedFields(s.Format(), word)}
		v.Inst, v.Err = x.decoder.Decode(word)
		if v.Err == nil {
			v.Trace = x.trace(v.Inst)
		}
		out = append(out, v)
	}
	return out
}

func (x *Explorer) trace(inst *insts.Instruction) string {
	if x.emulator == nil {
		return ""
	}
	saved := *x.emulator.RegFile()
	defer func() { *x.emulator.RegFile() = saved }()

	trace, err := x.emulator.Execute(inst)
	if err != nil {
		return ""
	}
	return trace
}

// Explore sweeps every format of a mnemonic and prints the results.
func (x *Explorer) Explore(mnemonic string, opts Options) error {
	formats := x.registry.Candidates(mnemonic)
	if len(formats) == 0 {
		return errors.Wrapf(insts.ErrUnknownMnemonic, "%q", mnemonic)
	}
	for i, f := range formats {
		if i > 0 {
			fmt.Fprintln(x.out)
		}
		if err := x.ExploreFormat(f, opts); err != nil {
			return err
		}
	}
	return nil
}

// ExploreFormat prints the header and field map of f followed by one line
// per swept word.
func (x *Explorer) ExploreFormat(f *insts.Format, opts Options) error {
	s, err := NewSweep(f, opts)
	if err != nil {
		return err
	}

	x.header(f, opts.Locks)
	for _, name := range s.Ignored {
		x.note("ignoring unknown field %q", name)
	}
	for _, name := range s.Clamped {
		x.note("lock on %s masked to field width", name)
	}
	FieldMap(x.out, f)

	if x.color {
		fmt.Fprintf(x.out, "Legend: %s fixed-bit violation, %s variable-field change\n",
			paint("red", styleViolation, true), paint("yellow", styleChange, true))
	}
	total, shown := s.Total(), s.Total()
	if opts.Limit > 0 {
		shown = min(total, uint64(opts.Limit))
	}
	fmt.Fprintf(x.out, "Variations: %d of %d\n", shown, total)

	for _, v := range x.Variations(s) {
		x.line(f, v)
	}
	return nil
}

func (x *Explorer) line(f *insts.Format, v Variation) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %-32s", v.Word, Colorize(f.Pattern, f.Mask, uint32(v.Word), x.color), v.Text())
	if len(v.Changed) > 0 {
		fmt.Fprintf(&b, "  [%s]", joinFields(v.Changed))
	}
	if v.Trace != "" {
		b.WriteString("  " + v.Trace)
	}
	fmt.Fprintln(x.out, strings.TrimRight(b.String(), " "))
}

func (x *Explorer) note(format string, args ...any) {
	fmt.Fprintln(x.out, paint("note: "+fmt.Sprintf(format, args...), styleNote, x.color))
}

func (x *Explorer) header(f *insts.Format, locks map[string]uint32) {
	if f.IsAlias() {
		x.note("%s is an alias of %s", f.Mnemonic, f.AliasOf)
	}
	fmt.Fprintf(x.out, "Group:   %s\n", f.Group)
	fmt.Fprintf(x.out, "Desc:    %s\n", f.Description)
	fmt.Fprintf(x.out, "Form:    %s\n", f.Syntax())
	fmt.Fprintf(x.out, "Base:    0x%08X\n", f.Pattern)
	fmt.Fprintf(x.out, "Mask:    0x%08X\n", f.Mask)
	fmt.Fprintf(x.out, "Pattern: %s\n", BinaryPattern(f))

	var applied []FieldValue
	for _, fs := range f.Fields {
		for name, v := range locks {
			if strings.EqualFold(name, fs.Name) {
				applied = append(applied, FieldValue{Name: fs.Name, Value: v})
			}
		}
	}
	if len(applied) > 0 {
		fmt.Fprintf(x.out, "Locks:   %s\n", joinFields(applied))
	}
}

// Describe prints the header and field map of every format of a
// mnemonic. With locks, the locked word and its disassembly follow.
func (x *Explorer) Describe(mnemonic string, locks map[string]uint32) error {
	formats := x.registry.Candidates(mnemonic)
	if len(formats) == 0 {
		return errors.Wrapf(insts.ErrUnknownMnemonic, "%q", mnemonic)
	}
	for i, f := range formats {
		if i > 0 {
			fmt.Fprintln(x.out)
		}
		x.header(f, locks)
		FieldMap(x.out, f)
		if len(locks) == 0 {
			continue
		}

		word := ApplyLocks(f, locks)
		v := Variation{Word: word}
		v.Inst, v.Err = x.decoder.Decode(word)
		fmt.Fprintf(x.out, "Word:    %s  %s\n", v.Word, v.Text())
	}
	return nil
}

// Summary prints every format, one table per group.
func (x *Explorer) Summary() {
	for i, g := range x.registry.Groups() {
		if i > 0 {
			fmt.Fprintln(x.out)
		}
		fmt.Fprintf(x.out, "%s\n", g)
		x.groupTable(x.registry.Group(g))
	}
}

func (x *Explorer) groupTable(formats []*insts.Format) {
	table := newTable(x.out)
	table.SetHeader([]string{"Mnemonic", "Desc", "Base", "Mask", "Pattern"})
	for _, f := range formats {
		table.Append([]string{
			f.Mnemonic,
			f.Description,
			fmt.Sprintf("0x%08X", f.Pattern),
			fmt.Sprintf("0x%08X", f.Mask),
			BinaryPattern(f),
		})
	}
	table.Render()
}

// Group sweeps every format of a group. Group names match
// case-insensitively.
func (x *Explorer) Group(name string, opts Options) error {
	formats := x.registry.Group(name)
	if len(formats) == 0 {
		return errors.Wrapf(ErrUnknownGroup, "%q (available: %s)",
			name, strings.Join(x.registry.Groups(), ", "))
	}
	for i, f := range formats {
		if i > 0 {
			fmt.Fprintln(x.out)
		}
		if err := x.ExploreFormat(f, opts); err != nil {
			return err
		}
	}
	return nil
}
