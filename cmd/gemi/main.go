// Package main provides the gemi command, which converts AArch64
// instruction words to assembly and back, explores instruction encodings,
// and runs simple data-processing instructions.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/moby/term"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/gemi/config"
	"github.com/sarchlab/gemi/emu"
	"github.com/sarchlab/gemi/insts"
)

// cli holds the state shared by every subcommand.
type cli struct {
	in     io.ReadCloser
	out    io.Writer
	errOut io.Writer
	log    *logrus.Logger

	configPath string
	verbose    bool
	noColor    bool

	cfg      *config.Config
	decoder  *insts.Decoder
	encoder  *insts.Encoder
	emulator *emu.Emulator
}

func newCLI(in io.ReadCloser, out, errOut io.Writer) *cli {
	log := logrus.New()
	log.SetOutput(errOut)

	return &cli{
		in:      in,
		out:     out,
		errOut:  errOut,
		log:     log,
		cfg:     config.DefaultConfig(),
		decoder: insts.NewDecoder(nil),
		encoder: insts.NewEncoder(nil),
	}
}

// setup loads the configuration and prepares the emulator. It runs before
// every subcommand.
func (c *cli) setup() error {
	if c.verbose {
		c.log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.DefaultConfig()
	if c.configPath != "" {
		loaded, err := config.LoadConfig(c.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		c.log.WithField("path", c.configPath).Debug("loaded config")
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.cfg = cfg

	c.emulator = emu.NewEmulator(emu.WithLogger(c.log))
	return nil
}

// color reports whether output should carry ANSI colour.
func (c *cli) color() bool {
	if c.noColor || !c.cfg.Color {
		return false
	}
	_, isTerminal := term.GetFdInfo(c.out)
	return isTerminal
}

func newRootCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gemi [OPTIONS] COMMAND [ARG...]",
		Short:         "AArch64 instruction encoder, decoder and explorer",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "Path to a JSON configuration file")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&c.noColor, "no-color", false, "Disable ANSI colour")

	cmd.SetIn(c.in)
	cmd.SetOut(c.out)
	cmd.SetErr(c.errOut)

	cmd.AddCommand(
		newHexCommand(c),
		newAsmCommand(c),
		newExploreCommand(c),
		newDescribeCommand(c),
		newSummaryCommand(c),
		newGroupCommand(c),
		newArchCommand(c),
		newInteractiveCommand(c),
		newDisasmCommand(c),
	)

	return cmd
}

func main() {
	stdin, stdout, stderr := term.StdStreams()

	c := newCLI(stdin, stdout, stderr)
	if err := newRootCommand(c).Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
