package insts

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Registry is a validated, immutable set of formats indexed for decoding
// and encoding. It is safe for concurrent use.
type Registry struct {
	formats    []*Format
	keyMask    uint32
	buckets    map[uint32][]*Format
	byMnemonic map[string][]*Format
	groups     []string
}

// NewRegistry validates the formats and builds the lookup indexes.
//
// Every format must partition the 32 bits between its mask and its
// fields, and no two formats with the same number of fixed bits may both
// match a word. Formats registered earlier win among candidates for the
// same mnemonic.
func NewRegistry(formats []*Format) (*Registry, error) {
	if len(formats) == 0 {
		return nil, errors.Wrap(ErrConfig, "no formats")
	}

	for _, f := range formats {
		if err := validateFormat(f); err != nil {
			return nil, err
		}
	}

	if err := checkOverlaps(formats); err != nil {
		return nil, err
	}

	r := &Registry{
		formats:    append([]*Format(nil), formats...),
		keyMask:    ^uint32(0),
		buckets:    make(map[uint32][]*Format),
		byMnemonic: make(map[string][]*Format),
	}

	for _, f := range formats {
		r.keyMask &= f.Mask
	}

	ordered := append([]*Format(nil), formats...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Specificity() > ordered[j].Specificity()
	})
	for _, f := range ordered {
		key := f.Pattern & r.keyMask
		r.buckets[key] = append(r.buckets[key], f)
	}

	seenGroup := make(map[string]bool)
	for _, f := range formats {
		r.byMnemonic[f.Mnemonic] = append(r.byMnemonic[f.Mnemonic], f)
		if f.Group != "" && !seenGroup[f.Group] {
			seenGroup[f.Group] = true
			r.groups = append(r.groups, f.Group)
		}
	}

	return r, nil
}

func validateFormat(f *Format) error {
	if f == nil {
		return errors.Wrap(ErrConfig, "nil format")
	}
	if f.Mnemonic == "" || f.Mnemonic != strings.ToUpper(f.Mnemonic) {
		return errors.Wrapf(ErrConfig, "format %q: mnemonic must be non-empty upper case", f.Mnemonic)
	}
	if f.Pattern&^f.Mask != 0 {
		return errors.Wrapf(ErrConfig, "%s: pattern 0x%08X has bits outside mask 0x%08X",
			f.Mnemonic, f.Pattern, f.Mask)
	}

	covered := f.Mask
	sawOptional := false
	for _, fs := range f.Fields {
		if fs.Codec == nil {
			return errors.Wrapf(ErrConfig, "%s: field %s has no codec", f.Mnemonic, fs.Name)
		}
		if len(fs.Ranges) == 0 {
			return errors.Wrapf(ErrConfig, "%s: field %s has no bits", f.Mnemonic, fs.Name)
		}
		if fs.Optional {
			sawOptional = true
		} else if sawOptional {
			return errors.Wrapf(ErrConfig, "%s: required field %s follows an optional one",
				f.Mnemonic, fs.Name)
		}
		for _, br := range fs.Ranges {
			if br.Width == 0 || br.Offset+br.Width > 32 {
				return errors.Wrapf(ErrConfig, "%s: field %s range %s out of word",
					f.Mnemonic, fs.Name, br)
			}
			m := br.mask()
			if covered&m != 0 {
				return errors.Wrapf(ErrConfig, "%s: field %s overlaps fixed bits or another field",
					f.Mnemonic, fs.Name)
			}
			covered |= m
		}
	}
	if covered != ^uint32(0) {
		return errors.Wrapf(ErrConfig, "%s: bits 0x%08X are neither fixed nor in a field",
			f.Mnemonic, ^covered)
	}
	return nil
}

// checkOverlaps rejects pairs of equally specific formats that can both
// match one word, since neither would be preferred.
func checkOverlaps(formats []*Format) error {
	for i, a := range formats {
		for _, b := range formats[i+1:] {
			if a.Specificity() != b.Specificity() {
				continue
			}
			if (a.Pattern^b.Pattern)&a.Mask&b.Mask == 0 {
				return errors.Wrapf(ErrConfig, "%s (0x%08X/0x%08X) and %s (0x%08X/0x%08X) overlap",
					a.Mnemonic, a.Pattern, a.Mask, b.Mnemonic, b.Pattern, b.Mask)
			}
		}
	}
	return nil
}

// Lookup returns the most specific format matching word.
func (r *Registry) Lookup(word Word) (*Format, error) {
	for _, f := range r.buckets[uint32(word)&r.keyMask] {
		if f.Matches(word) {
			return f, nil
		}
	}
	return nil, &DecodeError{Word: word, Err: ErrUnknownEncoding}
}

// Candidates returns the formats of a mnemonic in registration order.
func (r *Registry) Candidates(mnemonic string) []*Format {
	return r.byMnemonic[strings.ToUpper(mnemonic)]
}

// Formats returns every format in registration order.
func (r *Registry) Formats() []*Format {
	return append([]*Format(nil), r.formats...)
}

// Mnemonics returns the distinct mnemonics in sorted order.
func (r *Registry) Mnemonics() []string {
	out := make([]string, 0, len(r.byMnemonic))
	for m := range r.byMnemonic {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Groups returns the group names in registration order.
func (r *Registry) Groups() []string {
	return append([]string(nil), r.groups...)
}

// Group returns the formats of a group, matched case-insensitively.
func (r *Registry) Group(name string) []*Format {
	var out []*Format
	for _, f := range r.formats {
		if strings.EqualFold(f.Group, name) {
			out = append(out, f)
		}
	}
	return out
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(Catalog())
	if err != nil {
		panic(err)
	}
	return r
})

// DefaultRegistry returns the registry built from Catalog. It is built
// once on first use.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}
