package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/gemi/insts"
)

func newHexCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "hex WORD [WORD...]",
		Short: "Decode instruction words to assembly",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, arg := range args {
				if i > 0 {
					fmt.Fprintln(c.out)
				}
				if err := c.convertHex(c.out, arg); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newAsmCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "asm INSTRUCTION",
		Short: "Encode one line of assembly",
		Long: "Encode one line of assembly. The arguments are joined with spaces, " +
			"so the instruction may be given quoted or unquoted.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.convertAsm(c.out, strings.Join(args, " "))
		},
	}
}

func (c *cli) convertHex(w io.Writer, text string) error {
	inst, err := c.decoder.DecodeHex(text)
	if err != nil {
		return err
	}
	c.log.WithField("word", inst.Word).Debug("decoded")
	writeConversion(w, inst)
	return nil
}

func (c *cli) convertAsm(w io.Writer, line string) error {
	word, err := c.encoder.Assemble(line)
	if err != nil {
		return err
	}
	inst, err := c.decoder.Decode(word)
	if err != nil {
		return err
	}
	c.log.WithField("word", word).Debug("encoded")
	writeConversion(w, inst)
	return nil
}

// writeConversion prints an instruction with its word in both byte
// orders.
func writeConversion(w io.Writer, inst *insts.Instruction) {
	fmt.Fprintf(w, "Assembly:   %s\n", inst)
	fmt.Fprintf(w, "Hex:        %s\n", inst.Word)
	fmt.Fprintf(w, "Bytes (LE): %s\n", inst.Word.HexBytes(binary.LittleEndian))
	fmt.Fprintf(w, "Bytes (BE): %s\n", inst.Word.HexBytes(binary.BigEndian))
}
