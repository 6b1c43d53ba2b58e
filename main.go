// Package main provides the entry point for GEMi.
// GEMi converts AArch64 instruction words to assembly text and back.
//
// For the full CLI, use: go run ./cmd/gemi
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("GEMi - AArch64 instruction encoder and decoder")
	fmt.Println("")
	fmt.Println("Usage: gemi [OPTIONS] COMMAND [ARG...]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  hex WORD          Decode an instruction word")
	fmt.Println("  asm INSTRUCTION   Encode one line of assembly")
	fmt.Println("  explore MNEMONIC  Sweep the fields of an instruction")
	fmt.Println("  interactive       Start an interactive converter")
	fmt.Println("  disasm FILE       Disassemble an ELF executable")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/gemi --help' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/gemi' instead.")
	}
}
