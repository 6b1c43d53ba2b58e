package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/gemi/explore"
	"github.com/sarchlab/gemi/insts"
)

const shellHelp = `Commands:
  hex WORD          decode an instruction word
  asm INSTRUCTION   encode one line of assembly
  run INSTRUCTION   execute an instruction and show the result
  regs              show non-zero registers and flags
  reset             clear every register
  explore MNEMONIC  sweep the fields of an instruction
  arch [VERSION]    show architecture versions
  help              show this text
  quit              leave (also exit, q)
A bare word or instruction is decoded or encoded as appropriate.
`

func newInteractiveCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"shell"},
		Short:   "Start an interactive converter",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShell()
		},
	}
}

func (c *cli) runShell() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.cfg.Prompt,
		HistoryFile:     c.cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           c.in,
		Stdout:          c.out,
		Stderr:          c.errOut,
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintln(c.out, "GEMi interactive converter. Type 'help' for commands.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if c.execShell(line) {
			return nil
		}
	}
}

// execShell runs one shell line and reports whether the shell should
// exit. Command errors are printed, not returned.
func (c *cli) execShell(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch strings.ToLower(cmd) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprint(c.out, shellHelp)
	case "hex":
		err = c.convertHex(c.out, rest)
	case "asm":
		err = c.convertAsm(c.out, rest)
	case "run":
		err = c.run(rest)
	case "regs":
		c.writeRegs(c.out)
	case "reset":
		c.emulator.Reset()
	case "explore":
		err = c.explorer().Explore(rest, explore.Options{Limit: c.cfg.Limit, Step: c.cfg.Step})
	case "arch":
		err = explore.WriteArch(c.out, rest)
	default:
		if looksLikeWord(line) {
			err = c.convertHex(c.out, line)
		} else {
			err = c.convertAsm(c.out, line)
		}
	}

	if err != nil {
		c.log.WithError(err).WithField("line", line).Debug("shell command failed")
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

func (c *cli) run(line string) error {
	inst, trace, err := c.emulator.ExecuteLine(line)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s  %s\n", inst, trace)
	return nil
}

func (c *cli) writeRegs(w io.Writer) {
	rf := c.emulator.RegFile()

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Register", "Value"})
	for i := 0; i < 31; i++ {
		if rf.X[i] != 0 {
			table.Append([]string{fmt.Sprintf("X%d", i), fmt.Sprintf("0x%016X", rf.X[i])})
		}
	}
	table.Append([]string{"SP", fmt.Sprintf("0x%016X", rf.SP)})
	table.Append([]string{"PC", fmt.Sprintf("0x%016X", rf.PC)})
	table.Append([]string{"PSTATE", rf.PSTATE.String()})
	table.Render()
}

// looksLikeWord reports whether bare shell input is a hex word rather than
// assembly. A mnemonic such as ADD is valid hex, so a 0x prefix or all
// eight digits are required.
func looksLikeWord(s string) bool {
	if _, err := insts.ParseWord(s); err != nil {
		return false
	}
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "0x") || len(strings.Join(strings.Fields(s), "")) == 8
}
