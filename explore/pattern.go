// Package explore inspects instruction formats: bit patterns, field maps,
// and sweeps over field values with decoding and emulation of every
// variation.
package explore

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/sarchlab/gemi/insts"
)

// ANSI styles used when colour is enabled.
const (
	styleViolation = "\033[1;31m"
	styleChange    = "\033[1;33m"
	styleNote      = "\033[92m"
	styleReset     = "\033[0m"
)

func paint(s, style string, color bool) string {
	if !color || s == "" {
		return s
	}
	return style + s + styleReset
}

// BinaryPattern renders a format's fixed bits as 0 and 1 and its field
// bits as x, in groups of four from bit 31 down.
func BinaryPattern(f *insts.Format) string {
	return nibbles(f.BitPattern())
}

func nibbles(bits string) string {
	groups := make([]string, 0, len(bits)/4)
	for i := 0; i < len(bits); i += 4 {
		groups = append(groups, bits[i:min(i+4, len(bits))])
	}
	return strings.Join(groups, " ")
}

// Colorize renders val as 32 bits. With colour on, bits that differ from
// base are highlighted: inside the fixed mask as violations, elsewhere as
// legal field changes.
func Colorize(base, mask, val uint32, color bool) string {
	var b strings.Builder
	for i := 31; i >= 0; i-- {
		bit := uint32(1) << uint(i)
		c := "0"
		if val&bit != 0 {
			c = "1"
		}
		switch {
		case (val^base)&bit == 0:
			b.WriteString(c)
		case mask&bit != 0:
			b.WriteString(paint(c, styleViolation, color))
		default:
			b.WriteString(paint(c, styleChange, color))
		}
	}
	return b.String()
}

// FieldValue is the raw value of one field in a word.
type FieldValue struct {
	Name  string
	Value uint32
}

func (v FieldValue) String() string {
	return fmt.Sprintf("%s=0x%X", v.Name, v.Value)
}

// ChangedFields lists the fields of word whose raw value differs from the
// format's base pattern, in field order.
func ChangedFields(f *insts.Format, word insts.Word) []FieldValue {
	var out []FieldValue
	for _, fs := range f.Fields {
		got, err := fs.Extract(uint32(word))
		if err != nil {
			continue
		}
		base, _ := fs.Extract(f.Pattern)
		if got != base {
			out = append(out, FieldValue{Name: fs.Name, Value: got})
		}
	}
	return out
}

func joinFields(vals []FieldValue) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func topBit(fs insts.FieldSpec) uint {
	var top uint
	for _, r := range fs.Ranges {
		top = max(top, r.Offset+r.Width)
	}
	return top
}

// FieldMap writes a table of a format's fields, most significant first.
func FieldMap(w io.Writer, f *insts.Format) {
	fields := append([]insts.FieldSpec(nil), f.Fields...)
	sort.SliceStable(fields, func(i, j int) bool {
		return topBit(fields[i]) > topBit(fields[j])
	})

	table := newTable(w)
	table.SetHeader([]string{"Field", "Bits", "Width", "Operand"})
	for _, fs := range fields {
		table.Append([]string{
			fs.Name,
			"[" + fs.Location() + "]",
			fmt.Sprintf("%d", fs.Width()),
			fs.Codec.Syntax(),
		})
	}
	table.Render()
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return table
}
