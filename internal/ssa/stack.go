package ssa

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/types"
)

// ConvertFlags modify how stack operands are converted.
type ConvertFlags uint8

const (
	ConvertNone ConvertFlags = 0

	// ConvertUnsigned treats integer sources as unsigned.
	ConvertUnsigned ConvertFlags = 1 << iota

	// ConvertFloatBits allows floats to be reinterpreted as integers of
	// the same width.
	ConvertFloatBits

	// ConvertPointerToInt turns pointer operands into native integers.
	ConvertPointerToInt
)

// Push pushes v onto the evaluation stack of b.
func (bd *Builder) Push(b *Block, v *Value) {
	ref := StackRef(b.stackCounter)
	b.stackCounter++
	b.defs[ref] = v
}

// Pop removes and returns the top of the evaluation stack of b.
func (bd *Builder) Pop(b *Block) *Value {
	if b.stackCounter == 0 {
		panic(fmt.Sprintf("ssa.Pop: evaluation stack of %s is empty", b))
	}
	b.stackCounter--
	ref := StackRef(b.stackCounter)
	v := bd.GetValue(b, ref)
	delete(b.defs, ref)
	return v
}

// Peek returns the top of the evaluation stack of b without removing it.
func (bd *Builder) Peek(b *Block) *Value {
	if b.stackCounter == 0 {
		panic(fmt.Sprintf("ssa.Peek: evaluation stack of %s is empty", b))
	}
	return bd.GetValue(b, StackRef(b.stackCounter-1))
}

// Dup pushes a second copy of the top of the evaluation stack.
func (bd *Builder) Dup(b *Block) {
	bd.Push(b, bd.Peek(b))
}

// StackHeight returns the evaluation stack height of b.
func (bd *Builder) StackHeight(b *Block) int { return b.stackCounter }

// SetStackHeight sets the height of b's evaluation stack on entry. Slots
// below the height resolve through the predecessors.
func (bd *Builder) SetStackHeight(b *Block, n int) { b.stackCounter = n }

// widenInt32 returns the 32-bit type sub-word integers widen to.
func widenInt32(flags ConvertFlags) types.Type {
	if flags&ConvertUnsigned != 0 {
		return types.Typ[types.UInt32]
	}
	return types.Typ[types.Int32]
}

// PopInt pops a value for an integer context. Sub-word integers widen to
// 32 bits and pointers convert to the native integer. Floats are
// reinterpreted only with ConvertFloatBits.
func (bd *Builder) PopInt(b *Block, flags ConvertFlags) (*Value, error) {
	v := bd.Pop(b)
	if types.IsPointer(v.Type) {
		return bd.Convert(b, v, bd.cfg.NativeInt, ConvertNone), nil
	}
	switch v.BasicValueType() {
	case types.BasicInt1, types.BasicInt8, types.BasicInt16:
		return bd.Convert(b, v, widenInt32(flags), flags&ConvertUnsigned), nil
	case types.BasicInt32, types.BasicInt64:
		return v, nil
	case types.BasicFloat32:
		if flags&ConvertFloatBits != 0 {
			return bd.Convert(b, v, types.Typ[types.Int32], ConvertFloatBits), nil
		}
	case types.BasicFloat64:
		if flags&ConvertFloatBits != 0 {
			return bd.Convert(b, v, types.Typ[types.Int64], ConvertFloatBits), nil
		}
	}
	return nil, &UnsupportedOperandError{Op: "integer operation", Left: v.Type}
}

// PopCompareOrArithmeticValue pops an operand of a comparison or
// arithmetic operation. Sub-word integers widen to 32 bits, floats are
// kept, and pointers convert to the native integer only with
// ConvertPointerToInt.
func (bd *Builder) PopCompareOrArithmeticValue(b *Block, flags ConvertFlags) (*Value, error) {
	return bd.widenOperand(b, bd.Pop(b), flags)
}

func (bd *Builder) widenOperand(b *Block, v *Value, flags ConvertFlags) (*Value, error) {
	if types.IsPointer(v.Type) {
		if flags&ConvertPointerToInt != 0 {
			return bd.Convert(b, v, bd.cfg.NativeInt, ConvertNone), nil
		}
		return v, nil
	}
	switch v.BasicValueType() {
	case types.BasicInt1, types.BasicInt8, types.BasicInt16:
		return bd.Convert(b, v, widenInt32(flags), flags&ConvertUnsigned), nil
	case types.BasicInt32, types.BasicInt64, types.BasicFloat32, types.BasicFloat64:
		return v, nil
	}
	return nil, &UnsupportedOperandError{Op: "arithmetic", Left: v.Type}
}

// PopArithmeticArgs pops the right and then the left operand of a binary
// operation named op. The operand with the larger basic value type is
// returned first and the other is converted to its type; swapped reports
// whether first is the right operand. A pointer combined with an integer
// is always first and the integer converts to the native integer.
func (bd *Builder) PopArithmeticArgs(b *Block, op string, flags ConvertFlags) (first, second *Value, swapped bool, err error) {
	right := bd.Pop(b)
	left := bd.Pop(b)
	unsupported := &UnsupportedOperandError{Op: op, Left: left.Type, Right: right.Type}

	lb, rb := left.BasicValueType(), right.BasicValueType()
	if (lb == types.BasicInt1 && rb.IsFloat()) || (rb == types.BasicInt1 && lb.IsFloat()) {
		return nil, nil, false, unsupported
	}

	lp, rp := types.IsPointer(left.Type), types.IsPointer(right.Type)
	switch {
	case lp && rp:
		ls := left.Type.(*types.Pointer).AddressSpace()
		rs := right.Type.(*types.Pointer).AddressSpace()
		if ls != rs {
			return nil, nil, false, unsupported
		}
		return left, right, false, nil
	case lp || rp:
		ptr, other := left, right
		if rp {
			ptr, other, swapped = right, left, true
		}
		if !other.BasicValueType().IsInt() {
			return nil, nil, false, unsupported
		}
		return ptr, bd.Convert(b, other, bd.cfg.NativeInt, flags&ConvertUnsigned), swapped, nil
	}

	if left, err = bd.widenOperand(b, left, flags); err != nil {
		return nil, nil, false, unsupported
	}
	if right, err = bd.widenOperand(b, right, flags); err != nil {
		return nil, nil, false, unsupported
	}

	first, second = left, right
	if right.BasicValueType() > left.BasicValueType() {
		first, second, swapped = right, left, true
	}
	second = bd.Convert(b, second, first.Type, flags&ConvertUnsigned)
	return first, second, swapped, nil
}
