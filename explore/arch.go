package explore

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownArch is returned when no architecture version matches.
var ErrUnknownArch = errors.New("unknown architecture version")

// Arch is one Arm A-profile architecture version.
type Arch struct {
	Name     string
	Year     int
	Features []string
}

var architectures = []Arch{
	{"ARMv8.0-A", 2011, []string{"A64", "A32/T32", "NEON", "Cryptography", "Virtualization"}},
	{"ARMv8.1-A", 2016, []string{"Atomic", "PAN", "Virtualization Host Extensions"}},
	{"ARMv8.2-A", 2017, []string{"FP16", "RAS", "Statistical Profiling"}},
	{"ARMv8.3-A", 2017, []string{"Pointer Authentication", "Nested Virtualization"}},
	{"ARMv8.4-A", 2018, []string{"SHA3", "SM4", "RDM"}},
	{"ARMv8.5-A", 2019, []string{"MTE", "BTI", "Random Number"}},
	{"ARMv9.0-A", 2021, []string{"SVE2", "TRF", "B16B16", "MTE3", "Realms"}},
	{"ARMv9.2-A", 2022, []string{"Enhanced SVE", "Pointer Authentication Enhanced"}},
}

// Architectures returns the known versions, oldest first.
func Architectures() []Arch {
	return append([]Arch(nil), architectures...)
}

// LookupArch returns the versions whose name starts with prefix,
// ignoring case. "armv9" matches every ARMv9 version.
func LookupArch(prefix string) ([]Arch, error) {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	var out []Arch
	for _, a := range architectures {
		if strings.HasPrefix(strings.ToUpper(a.Name), p) {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(ErrUnknownArch, "%q", prefix)
	}
	return out, nil
}

// WriteArch prints the versions matching prefix as a table. An empty
// prefix prints all of them.
func WriteArch(w io.Writer, prefix string) error {
	archs, err := LookupArch(prefix)
	if err != nil {
		return err
	}

	table := newTable(w)
	table.SetHeader([]string{"Version", "Year", "Features"})
	for _, a := range archs {
		table.Append([]string{a.Name, fmt.Sprintf("%d", a.Year), strings.Join(a.Features, ", ")})
	}
	table.Render()
	return nil
}
