package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/gemi/explore"
)

// sweepFlags are the options shared by explore and group.
type sweepFlags struct {
	vary  []string
	locks []string
	limit int
	step  int
}

func (f *sweepFlags) install(flags *pflag.FlagSet) {
	flags.StringSliceVar(&f.vary, "vary", nil, "Fields to sweep (default all)")
	flags.StringArrayVar(&f.locks, "lock", nil, "Pin a field, as name=value")
	flags.IntVar(&f.limit, "limit", 0, "Maximum number of variations (default from config)")
	flags.IntVar(&f.step, "step", 0, "Stride for fields wider than two bits (default from config)")
}

func (c *cli) sweepOptions(f *sweepFlags) (explore.Options, error) {
	locks, err := explore.ParseLocks(f.locks)
	if err != nil {
		return explore.Options{}, err
	}
	opts := explore.Options{
		Vary:  f.vary,
		Locks: locks,
		Limit: c.cfg.Limit,
		Step:  c.cfg.Step,
	}
	if f.limit > 0 {
		opts.Limit = f.limit
	}
	if f.step > 0 {
		opts.Step = f.step
	}
	return opts, nil
}

func (c *cli) explorer() *explore.Explorer {
	return explore.New(c.out,
		explore.WithColor(c.color()),
		explore.WithEmulator(c.emulator),
	)
}

func newExploreCommand(c *cli) *cobra.Command {
	var flags sweepFlags
	cmd := &cobra.Command{
		Use:   "explore MNEMONIC",
		Short: "Sweep the fields of an instruction and decode every variation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.sweepOptions(&flags)
			if err != nil {
				return err
			}
			return c.explorer().Explore(args[0], opts)
		},
	}
	flags.install(cmd.Flags())
	return cmd
}

func newDescribeCommand(c *cli) *cobra.Command {
	var locks []string
	cmd := &cobra.Command{
		Use:   "describe MNEMONIC",
		Short: "Show the encoding and fields of an instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := explore.ParseLocks(locks)
			if err != nil {
				return err
			}
			return c.explorer().Describe(args[0], parsed)
		},
	}
	cmd.Flags().StringArrayVar(&locks, "lock", nil, "Pin a field, as name=value")
	return cmd
}

func newSummaryCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "List every supported instruction by group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.explorer().Summary()
			return nil
		},
	}
}

func newGroupCommand(c *cli) *cobra.Command {
	var flags sweepFlags
	cmd := &cobra.Command{
		Use:   "group NAME",
		Short: "Explore every instruction of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.sweepOptions(&flags)
			if err != nil {
				return err
			}
			return c.explorer().Group(args[0], opts)
		},
	}
	flags.install(cmd.Flags())
	return cmd
}

func newArchCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "arch [VERSION]",
		Short: "Show Arm architecture versions and their features",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return explore.WriteArch(c.out, prefix)
		},
	}
}
