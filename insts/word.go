package insts

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Word is a 32-bit AArch64 instruction word.
type Word uint32

// String renders the word as 0x followed by eight upper-case hex digits.
func (w Word) String() string {
	return fmt.Sprintf("0x%08X", uint32(w))
}

// Bytes returns the word in the given byte order.
func (w Word) Bytes(order binary.ByteOrder) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, uint32(w))
	return b
}

// HexBytes renders the word's bytes in the given order as upper-case hex.
func (w Word) HexBytes(order binary.ByteOrder) string {
	return fmt.Sprintf("%X", w.Bytes(order))
}

// ParseWord parses a hexadecimal instruction word. An optional 0x prefix
// and embedded spaces are accepted; at most eight hex digits may remain.
func ParseWord(s string) (Word, error) {
	clean := strings.Join(strings.Fields(s), "")
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	if clean == "" || len(clean) > 8 {
		return 0, &SyntaxError{Input: s, Msg: "expected up to 8 hex digits"}
	}
	v, err := strconv.ParseUint(clean, 16, 32)
	if err != nil {
		return 0, &SyntaxError{Input: s, Msg: "invalid hex word", Err: errors.WithStack(err)}
	}
	return Word(v), nil
}

// WordFromBytes reads a word stored in the given byte order.
func WordFromBytes(b []byte, order binary.ByteOrder) (Word, error) {
	if len(b) != 4 {
		return 0, errors.Errorf("instruction words are 4 bytes, got %d", len(b))
	}
	return Word(order.Uint32(b)), nil
}
