package insts

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors. Use errors.Is to test for them; the concrete error
// types below carry the context.
var (
	// ErrUnknownEncoding means no format matches a word.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrUnallocatedField means a format matched but a field value is
	// unallocated or reserved for that form.
	ErrUnallocatedField = errors.New("unallocated field value")

	// ErrUnknownMnemonic means no format carries the mnemonic.
	ErrUnknownMnemonic = errors.New("unknown mnemonic")

	// ErrNoMatchingForm means no format of the mnemonic accepts the
	// operand shapes.
	ErrNoMatchingForm = errors.New("no form matches the operands")

	// ErrOperandRange means an operand value does not fit its field.
	ErrOperandRange = errors.New("operand out of range")

	// ErrUnrepresentableImmediate means a logical immediate is not a
	// replicated rotated run of ones.
	ErrUnrepresentableImmediate = errors.New("unrepresentable immediate")

	// ErrSyntax means assembly text could not be parsed.
	ErrSyntax = errors.New("syntax error")

	// ErrConfig means a format table is inconsistent.
	ErrConfig = errors.New("invalid format table")
)

// DecodeError reports a failure to decode a word.
type DecodeError struct {
	Word     Word
	Mnemonic string // empty when no format matched
	Field    string // empty when no format matched
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Mnemonic == "" {
		return fmt.Sprintf("decode %s: %v", e.Word, e.Err)
	}
	return fmt.Sprintf("decode %s as %s: field %s: %v", e.Word, e.Mnemonic, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure to encode an instruction.
type EncodeError struct {
	Mnemonic string
	Operand  int // index of the offending operand, or -1
	Err      error
}

func (e *EncodeError) Error() string {
	if e.Operand < 0 {
		return fmt.Sprintf("encode %s: %v", e.Mnemonic, e.Err)
	}
	return fmt.Sprintf("encode %s: operand %d: %v", e.Mnemonic, e.Operand+1, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// SyntaxError reports unparseable assembly or hex text.
type SyntaxError struct {
	Input string
	Msg   string
	Err   error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("syntax error in %q: %s: %v", e.Input, e.Msg, e.Err)
	}
	return fmt.Sprintf("syntax error in %q: %s", e.Input, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Is makes every SyntaxError match ErrSyntax.
func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }
