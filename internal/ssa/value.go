package ssa

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/types"
)

// ID is a unique identifier for Values and Blocks within a Func.
type ID int32

// Value represents a single SSA computation.
// Each Value has exactly one definition and may be used by other Values.
type Value struct {
	// ID indexes the value in its Func's arena.
	ID ID

	// Op is the operation this value computes.
	Op Op

	// Type is the result type of this value.
	// Void for terminators.
	Type types.Type

	// Args are the input values to this operation.
	Args []*Value

	// Block is the basic block that contains this value.
	// Nil once the value has been removed.
	Block *Block

	// AuxInt holds an auxiliary integer (constant value, field index,
	// compare kind, conversion flags).
	AuxInt int64

	// AuxFloat holds the value of a float constant.
	AuxFloat float64

	// Aux holds arbitrary auxiliary data (e.g., a parameter name).
	Aux interface{}

	// Uses counts the references to this value from other values.
	Uses int32

	// Pos is the offset of the instruction this value was built from.
	Pos int
}

// String returns a short string representation of the value (e.g., "v5").
func (v *Value) String() string {
	return fmt.Sprintf("v%d", v.ID)
}

// LongString returns a detailed string representation including op, type, and args.
func (v *Value) LongString() string {
	return formatValue(v)
}

// BasicValueType returns the machine-level category of the value's type.
func (v *Value) BasicValueType() types.BasicValueType {
	return types.BasicValueTypeOf(v.Type)
}

// AddArg appends a value to the argument list and increments the arg's use count.
func (v *Value) AddArg(arg *Value) {
	v.Args = append(v.Args, arg)
	arg.Uses++
}

// SetArgs replaces the argument list, adjusting use counts.
func (v *Value) SetArgs(args []*Value) {
	for _, old := range v.Args {
		old.Uses--
	}
	v.Args = args
	for _, arg := range args {
		arg.Uses++
	}
}

// ReplaceArg replaces the argument at index i, adjusting use counts.
func (v *Value) ReplaceArg(i int, new *Value) {
	old := v.Args[i]
	old.Uses--
	v.Args[i] = new
	new.Uses++
}

// IsPure returns true if this value's op has no side effects.
func (v *Value) IsPure() bool {
	return v.Op.IsPure()
}

// IsTerminator returns true if the value ends its block.
func (v *Value) IsTerminator() bool {
	return v.Op.IsTerminator()
}
