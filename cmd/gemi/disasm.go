package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/gemi/loader"
)

func newDisasmCommand(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "disasm FILE",
		Short: "Disassemble the executable segments of an AArch64 ELF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.disasm(args[0], limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many words (0 for all)")
	return cmd
}

func (c *cli) disasm(path string, limit int) error {
	prog, err := loader.Load(path)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{
		"entry":    fmt.Sprintf("0x%X", prog.EntryPoint),
		"segments": len(prog.Segments),
		"symbols":  len(prog.Symbols),
	}).Debug("loaded program")

	words := prog.Words()
	if limit > 0 && limit < len(words) {
		words = words[:limit]
	}

	for _, cw := range words {
		if name, ok := prog.SymbolAt(cw.Addr); ok {
			fmt.Fprintf(c.out, "\n%016x <%s>:\n", cw.Addr, name)
		}
		marker := "  "
		if cw.Addr == prog.EntryPoint {
			marker = "=>"
		}
		fmt.Fprintf(c.out, "%s %8x:  %08x  %s\n", marker, cw.Addr, uint32(cw.Word), c.decoder.Disassemble(cw.Word))
	}
	return nil
}
