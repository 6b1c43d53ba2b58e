package explore

import (
	"iter"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/gemi/bitfield"
	"github.com/sarchlab/gemi/insts"
)

// ErrBadLock reports a malformed name=value lock.
var ErrBadLock = errors.New("invalid lock")

// Options control a sweep over field values.
type Options struct {
	// Vary names the fields to sweep. Empty sweeps every field.
	Vary []string
	// Locks pins fields to raw values. Locked fields are never swept.
	Locks map[string]uint32
	// Limit caps the number of words produced. Zero means no cap.
	Limit int
	// Step is the stride for fields wider than two bits. Values below one
	// count as one.
	Step int
}

// ParseLocks parses name=value pairs. Values may be decimal, 0x hex, 0o
// octal or 0b binary.
func ParseLocks(specs []string) (map[string]uint32, error) {
	locks := make(map[string]uint32, len(specs))
	for _, spec := range specs {
		name, value, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Wrapf(ErrBadLock, "%q: want name=value", spec)
		}
		v, err := strconv.ParseUint(strings.TrimSpace(value), 0, 32)
		if err != nil {
			return nil, errors.Wrapf(ErrBadLock, "%q: %v", spec, err)
		}
		locks[strings.ToLower(name)] = uint32(v)
	}
	return locks, nil
}

type domain struct {
	field  insts.FieldSpec
	values []uint32
}

// Sweep enumerates words of one format by walking the cartesian product
// of the varied fields' values. The last varied field changes fastest.
type Sweep struct {
	format  *insts.Format
	base    uint32
	domains []domain
	limit   int

	// Ignored lists requested fields the format does not have.
	Ignored []string
	// Clamped lists locked fields whose value was masked to the field width.
	Clamped []string
}

// NewSweep prepares a sweep over f.
func NewSweep(f *insts.Format, opts Options) (*Sweep, error) {
	s := &Sweep{format: f, base: f.Pattern, limit: opts.Limit}
	step := uint32(max(opts.Step, 1))

	locks := make(map[string]uint32, len(opts.Locks))
	for k, v := range opts.Locks {
		locks[strings.ToLower(k)] = v
	}

	lockValue := func(fs insts.FieldSpec) (uint32, bool) {
		v, ok := locks[strings.ToLower(fs.Name)]
		if !ok {
			return 0, false
		}
		if m := bitfield.Mask(fs.Width()); v&^m != 0 {
			s.Clamped = append(s.Clamped, fs.Name)
			v &= m
		}
		return v, true
	}

	vary := f.Fields
	if len(opts.Vary) > 0 {
		vary = nil
		for _, name := range opts.Vary {
			fs, ok := f.Field(name)
			if !ok {
				s.Ignored = append(s.Ignored, name)
				continue
			}
			vary = append(vary, fs)
		}
	}

	varied := make(map[string]bool, len(vary))
	for _, fs := range vary {
		varied[fs.Name] = true
		if v, ok := lockValue(fs); ok {
			s.domains = append(s.domains, domain{field: fs, values: []uint32{v}})
			continue
		}

		stride := step
		if fs.Width() <= 2 {
			stride = 1
		}
		size := uint64(1) << fs.Width()
		values := make([]uint32, 0, (size+uint64(stride)-1)/uint64(stride))
		for v := uint64(0); v < size; v += uint64(stride) {
			values = append(values, uint32(v))
		}
		s.domains = append(s.domains, domain{field: fs, values: values})
	}

	for _, fs := range f.Fields {
		if varied[fs.Name] {
			continue
		}
		if v, ok := lockValue(fs); ok {
			word, err := fs.Insert(s.base, v)
			if err != nil {
				return nil, err
			}
			s.base = word
		}
	}

	return s, nil
}

// Format returns the swept format.
func (s *Sweep) Format() *insts.Format {
	return s.format
}

// Base returns the format pattern with non-varied locks applied.
func (s *Sweep) Base() insts.Word {
	return insts.Word(s.base)
}

// Total returns the number of words in the full product, ignoring the
// limit.
func (s *Sweep) Total() uint64 {
	total := uint64(1)
	for _, d := range s.domains {
		total *= uint64(len(d.values))
	}
	return total
}

// Words yields the words of the sweep, at most Limit of them.
func (s *Sweep) Words() iter.Seq[insts.Word] {
	return func(yield func(insts.Word) bool) {
		idx := make([]int, len(s.domains))
		for n := 0; s.limit <= 0 || n < s.limit; n++ {
			word := s.base
			for i, d := range s.domains {
				word, _ = d.field.Insert(word, d.values[idx[i]])
			}
			if !yield(insts.Word(word)) {
				return
			}

			// Odometer increment, last domain fastest.
			i := len(idx) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < len(s.domains[i].values) {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// ApplyLocks returns the format pattern with every locked field set.
// Values wider than their field are masked.
func ApplyLocks(f *insts.Format, locks map[string]uint32) insts.Word {
	word := f.Pattern
	for name, v := range locks {
		fs, ok := f.Field(name)
		if !ok {
			continue
		}
		word, _ = fs.Insert(word, v&bitfield.Mask(fs.Width()))
	}
	return insts.Word(word)
}
