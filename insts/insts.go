// Package insts provides a table-driven AArch64 instruction codec.
//
// Every supported instruction form is described by a Format: a fixed bit
// pattern under a mask plus a list of operand fields. The same table drives
// both directions:
//   - Decoding: a 32-bit word is matched against the formats, most specific
//     first, and each field is turned into a typed Operand.
//   - Encoding: a mnemonic and operands are matched against the formats of
//     that mnemonic by operand shape, and each operand is packed into its
//     field.
//
// Aliases such as CMP, TST and MOV are ordinary formats with more fixed
// bits than the instruction they alias, so decoding prefers them.
//
// Usage:
//
//	decoder := insts.NewDecoder(insts.DefaultRegistry())
//	inst, err := decoder.Decode(0xD20401AA)
//	fmt.Println(inst) // EOR X10, X13, #0x1000000010000000
//
//	encoder := insts.NewEncoder(insts.DefaultRegistry())
//	word, err := encoder.Assemble("ADD X0, X1, #0x123")
//	fmt.Println(word) // 0x91048C20
package insts
