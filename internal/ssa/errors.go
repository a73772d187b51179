package ssa

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/types"
)

// UnsupportedOperandError reports an operation requested on operand
// types outside the supported combinations.
type UnsupportedOperandError struct {
	Op    string
	Left  types.Type
	Right types.Type // nil for unary operations
}

// Error implements the error interface.
func (e *UnsupportedOperandError) Error() string {
	if e.Right == nil {
		return fmt.Sprintf("%s not supported for operand type %s", e.Op, e.Left)
	}
	return fmt.Sprintf("%s not supported for operand types %s and %s", e.Op, e.Left, e.Right)
}
