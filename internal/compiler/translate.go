package compiler

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/cfg"
	"github.com/you-not-fish/kestrel/internal/ssa"
	"github.com/you-not-fish/kestrel/internal/types"
)

// Error is a translation failure at one instruction.
type Error struct {
	Method string
	Offset int
	Line   int
	Op     cfg.Opcode
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: offset %d: %s: %v", e.Method, e.Offset, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	i1  = types.Typ[types.Int1]
	i32 = types.Typ[types.Int32]
	i64 = types.Typ[types.Int64]
	f32 = types.Typ[types.Float32]
	f64 = types.Typ[types.Float64]
	mem = types.Typ[types.Memory]
)

// translator builds the SSA form of one method.
type translator struct {
	tc *types.Context
	m  *cfg.Method
	f  *ssa.Func
	g  *cfg.Graph
	bd *ssa.Builder
}

// run translates the blocks in reverse post-order. A block is sealed as
// soon as all of its predecessors have been translated.
func (t *translator) run() error {
	t.entry()

	pending := make(map[*cfg.Block]int, len(t.g.Blocks))
	for _, b := range t.g.Blocks {
		pending[b] = len(b.Preds)
	}
	t.bd.Seal(t.g.Entry.SSA)

	for _, b := range t.g.RPO {
		if b != t.g.Entry {
			if err := t.block(b); err != nil {
				return err
			}
		}
		for _, s := range b.Succs {
			pending[s]--
			if pending[s] == 0 {
				t.bd.Seal(s.SSA)
			}
		}
	}
	t.bd.SealAll()
	return nil
}

// entry binds the arguments, zero-initialized locals and the initial
// memory token in the synthetic entry block.
func (t *translator) entry() {
	e := t.g.Entry.SSA
	for i, p := range t.m.Params {
		v := t.f.NewValue(e, ssa.OpArg, p)
		v.AuxInt = int64(i)
		t.bd.SetValue(e, ssa.ArgumentRef(i), v)
	}
	for i, l := range t.m.Locals {
		t.bd.SetValue(e, ssa.LocalRef(i), t.zero(e, l))
	}
	t.bd.SetValue(e, ssa.MemoryRef, t.f.NewValue(e, ssa.OpInitMem, mem))
}

func (t *translator) zero(b *ssa.Block, T types.Type) *ssa.Value {
	switch {
	case types.IsIntegerType(T):
		return t.f.ConstInt(b, T, 0)
	case types.IsFloatType(T):
		return t.f.ConstFloat(b, T, 0)
	case types.IsPointer(T):
		return t.f.NewValue(b, ssa.OpNull, T)
	}
	return t.f.NewValue(b, ssa.OpUndef, T)
}

func (t *translator) block(b *cfg.Block) error {
	sb := b.SSA
	t.bd.SetStackHeight(sb, b.StackIn)
	for i := range b.Instrs {
		in := &b.Instrs[i]
		start := t.f.NumValueIDs()
		if err := t.instr(sb, in); err != nil {
			return &Error{Method: t.m.Name, Offset: in.Offset, Line: in.Line, Op: in.Op, Err: err}
		}
		for id := start; id < t.f.NumValueIDs(); id++ {
			if v := t.f.Value(ssa.ID(id)); v != nil {
				v.Pos = in.Offset
			}
		}
	}
	if sb.Term == nil {
		t.f.SetTerm(sb, ssa.OpJump)
	}
	return nil
}

var binaryOps = map[cfg.Opcode]ssa.Op{
	cfg.OpAdd:   ssa.OpAdd,
	cfg.OpSub:   ssa.OpSub,
	cfg.OpMul:   ssa.OpMul,
	cfg.OpDiv:   ssa.OpDiv,
	cfg.OpDivUn: ssa.OpDiv,
	cfg.OpRem:   ssa.OpRem,
	cfg.OpRemUn: ssa.OpRem,
	cfg.OpAnd:   ssa.OpAnd,
	cfg.OpOr:    ssa.OpOr,
	cfg.OpXor:   ssa.OpXor,
}

var compareOps = map[cfg.Opcode]ssa.CompareKind{
	cfg.OpCeq:   ssa.CmpEq,
	cfg.OpCgt:   ssa.CmpGt,
	cfg.OpCgtUn: ssa.CmpGt,
	cfg.OpClt:   ssa.CmpLt,
	cfg.OpCltUn: ssa.CmpLt,
}

var convTypes = map[cfg.Opcode]types.Type{
	cfg.OpConvI1: types.Typ[types.Int8],
	cfg.OpConvI2: types.Typ[types.Int16],
	cfg.OpConvI4: i32,
	cfg.OpConvI8: i64,
	cfg.OpConvU1: types.Typ[types.UInt8],
	cfg.OpConvU2: types.Typ[types.UInt16],
	cfg.OpConvU4: types.Typ[types.UInt32],
	cfg.OpConvU8: types.Typ[types.UInt64],
	cfg.OpConvR4: f32,
	cfg.OpConvR8: f64,
}

var memTypes = map[cfg.Opcode]types.Type{
	cfg.OpLdindI4: i32,
	cfg.OpLdindI8: i64,
	cfg.OpLdindR4: f32,
	cfg.OpLdindR8: f64,
	cfg.OpStindI4: i32,
	cfg.OpStindI8: i64,
	cfg.OpStindR4: f32,
	cfg.OpStindR8: f64,
}

func isUnsigned(op cfg.Opcode) bool {
	switch op {
	case cfg.OpDivUn, cfg.OpRemUn, cfg.OpShrUn, cfg.OpCgtUn, cfg.OpCltUn:
		return true
	}
	return false
}

func (t *translator) instr(b *ssa.Block, in *cfg.Instruction) error {
	f, bd := t.f, t.bd
	var flags ssa.ConvertFlags
	if isUnsigned(in.Op) {
		flags = ssa.ConvertUnsigned
	}

	switch in.Op {
	case cfg.OpNop:

	case cfg.OpLdarg, cfg.OpStarg:
		n := int(in.IntOperand())
		if n < 0 || n >= len(t.m.Params) {
			return fmt.Errorf("argument %d out of range", n)
		}
		if in.Op == cfg.OpLdarg {
			bd.Push(b, bd.GetValue(b, ssa.ArgumentRef(n)))
			return nil
		}
		v, err := t.convertTo(b, bd.Pop(b), t.m.Params[n])
		if err != nil {
			return err
		}
		bd.SetValue(b, ssa.ArgumentRef(n), v)

	case cfg.OpLdloc, cfg.OpStloc:
		n := int(in.IntOperand())
		if n < 0 || n >= len(t.m.Locals) {
			return fmt.Errorf("local %d out of range", n)
		}
		if in.Op == cfg.OpLdloc {
			bd.Push(b, bd.GetValue(b, ssa.LocalRef(n)))
			return nil
		}
		v, err := t.convertTo(b, bd.Pop(b), t.m.Locals[n])
		if err != nil {
			return err
		}
		bd.SetValue(b, ssa.LocalRef(n), v)

	case cfg.OpLdcI4:
		bd.Push(b, f.ConstInt(b, i32, int64(int32(in.IntOperand()))))
	case cfg.OpLdcI8:
		bd.Push(b, f.ConstInt(b, i64, in.IntOperand()))
	case cfg.OpLdcR4:
		bd.Push(b, f.ConstFloat(b, f32, float64(float32(in.FloatOperand()))))
	case cfg.OpLdcR8:
		bd.Push(b, f.ConstFloat(b, f64, in.FloatOperand()))

	case cfg.OpDup:
		bd.Dup(b)
	case cfg.OpPop:
		bd.Pop(b)

	case cfg.OpAdd, cfg.OpSub, cfg.OpMul, cfg.OpDiv, cfg.OpDivUn,
		cfg.OpRem, cfg.OpRemUn, cfg.OpAnd, cfg.OpOr, cfg.OpXor:
		return t.binary(b, in.Op, flags)

	case cfg.OpShl, cfg.OpShr, cfg.OpShrUn:
		amount, err := bd.PopInt(b, ssa.ConvertNone)
		if err != nil {
			return err
		}
		value, err := bd.PopInt(b, flags)
		if err != nil {
			return err
		}
		op := ssa.OpShl
		if in.Op != cfg.OpShl {
			op = ssa.OpShr
		}
		v := f.NewValue(b, op, value.Type, value, bd.Convert(b, amount, value.Type, ssa.ConvertNone))
		if in.Op == cfg.OpShrUn {
			v.AuxInt = ssa.AuxUnsigned
		}
		bd.Push(b, v)

	case cfg.OpNeg:
		v, err := bd.PopCompareOrArithmeticValue(b, ssa.ConvertNone)
		if err != nil {
			return err
		}
		if types.IsPointer(v.Type) {
			return &ssa.UnsupportedOperandError{Op: in.Op.String(), Left: v.Type}
		}
		bd.Push(b, f.NewValue(b, ssa.OpNeg, v.Type, v))
	case cfg.OpNot:
		v, err := bd.PopInt(b, ssa.ConvertNone)
		if err != nil {
			return err
		}
		bd.Push(b, f.NewValue(b, ssa.OpNot, v.Type, v))

	case cfg.OpCeq, cfg.OpCgt, cfg.OpCgtUn, cfg.OpClt, cfg.OpCltUn:
		first, second, swapped, err := bd.PopArithmeticArgs(b, in.Op.String(), flags)
		if err != nil {
			return err
		}
		kind := compareOps[in.Op]
		if swapped {
			kind = mirror(kind)
		}
		v := f.NewValue(b, ssa.OpCmp, i1, first, second)
		v.AuxInt = int64(kind)
		if flags&ssa.ConvertUnsigned != 0 && first.BasicValueType().IsInt() {
			v.Aux = ssa.UnsignedCompare
		}
		bd.Push(b, v)

	case cfg.OpConvI1, cfg.OpConvI2, cfg.OpConvI4, cfg.OpConvI8,
		cfg.OpConvU1, cfg.OpConvU2, cfg.OpConvU4, cfg.OpConvU8,
		cfg.OpConvR4, cfg.OpConvR8:
		v := bd.Pop(b)
		T := convTypes[in.Op]
		switch {
		case types.IsPointer(v.Type) && types.IsIntegerType(T):
			bd.Push(b, bd.Convert(b, v, T, ssa.ConvertPointerToInt))
		case types.IsIntegerType(v.Type) || types.IsFloatType(v.Type):
			var cf ssa.ConvertFlags
			if types.IsUnsignedInteger(v.Type) {
				cf = ssa.ConvertUnsigned
			}
			bd.Push(b, bd.Convert(b, v, T, cf))
		default:
			return &ssa.UnsupportedOperandError{Op: in.Op.String(), Left: v.Type, Right: T}
		}

	case cfg.OpLdindI4, cfg.OpLdindI8, cfg.OpLdindR4, cfg.OpLdindR8:
		ptr, err := popPointer(bd, b, in.Op)
		if err != nil {
			return err
		}
		bd.Push(b, t.load(b, memTypes[in.Op], ptr))

	case cfg.OpStindI4, cfg.OpStindI8, cfg.OpStindR4, cfg.OpStindR8:
		val := bd.Pop(b)
		ptr, err := popPointer(bd, b, in.Op)
		if err != nil {
			return err
		}
		if val, err = t.convertTo(b, val, memTypes[in.Op]); err != nil {
			return err
		}
		t.store(b, ptr, val)

	case cfg.OpLdfld:
		v := bd.Pop(b)
		st, ok := v.Type.(*types.Struct)
		if !ok {
			return fmt.Errorf("ldfld expects a structure, got %s", v.Type)
		}
		n := int(in.IntOperand())
		if n < 0 || n >= st.NumFields() {
			return fmt.Errorf("field %d out of range for %s", n, st)
		}
		g := f.NewValue(b, ssa.OpGetField, st.Field(n).Type(), v)
		g.AuxInt = int64(n)
		bd.Push(b, g)

	case cfg.OpLdflda:
		ptr, err := popPointer(bd, b, in.Op)
		if err != nil {
			return err
		}
		pt := ptr.Type.(*types.Pointer)
		st, ok := pt.Elem().(*types.Struct)
		if !ok {
			return fmt.Errorf("ldflda expects a pointer to a structure, got %s", ptr.Type)
		}
		n := int(in.IntOperand())
		if n < 0 || n >= st.NumFields() {
			return fmt.Errorf("field %d out of range for %s", n, st)
		}
		addr := f.NewValue(b, ssa.OpFieldAddress, t.tc.Pointer(st.Field(n).Type(), pt.AddressSpace()), ptr)
		addr.AuxInt = int64(n)
		bd.Push(b, addr)

	case cfg.OpLdobj:
		ptr, err := popPointer(bd, b, in.Op)
		if err != nil {
			return err
		}
		bd.Push(b, t.load(b, in.Operand.(types.Type), ptr))

	case cfg.OpStobj:
		val := bd.Pop(b)
		ptr, err := popPointer(bd, b, in.Op)
		if err != nil {
			return err
		}
		T := in.Operand.(types.Type)
		if !types.Identical(val.Type, T) {
			return &ssa.UnsupportedOperandError{Op: in.Op.String(), Left: val.Type, Right: T}
		}
		t.store(b, ptr, val)

	case cfg.OpLdlen:
		v := bd.Pop(b)
		if !types.IsView(v.Type) {
			return fmt.Errorf("ldlen expects a view, got %s", v.Type)
		}
		bd.Push(b, f.NewValue(b, ssa.OpViewLength, i32, v))

	case cfg.OpLdelema:
		idx, err := bd.PopInt(b, ssa.ConvertNone)
		if err != nil {
			return err
		}
		v := bd.Pop(b)
		view, ok := v.Type.(*types.View)
		if !ok {
			return fmt.Errorf("ldelema expects a view, got %s", v.Type)
		}
		p := f.NewValue(b, ssa.OpViewPointer, t.tc.Pointer(view.Elem(), view.AddressSpace()), v)
		bd.Push(b, f.NewValue(b, ssa.OpElementAddress, p.Type, p, idx))

	case cfg.OpBr:
		f.SetTerm(b, ssa.OpJump)

	case cfg.OpBrtrue, cfg.OpBrfalse:
		cond, err := t.condition(b, in.Op == cfg.OpBrtrue)
		if err != nil {
			return err
		}
		f.SetTerm(b, ssa.OpIf, cond)

	case cfg.OpRet:
		if in.Pops == 0 {
			f.Return(b, nil)
			return nil
		}
		v, err := t.convertTo(b, bd.Pop(b), t.f.Result)
		if err != nil {
			return err
		}
		f.Return(b, v)

	default:
		panic(fmt.Sprintf("compiler.instr: unhandled opcode %s", in.Op))
	}
	return nil
}

func (t *translator) binary(b *ssa.Block, op cfg.Opcode, flags ssa.ConvertFlags) error {
	first, second, swapped, err := t.bd.PopArithmeticArgs(b, op.String(), flags)
	if err != nil {
		return err
	}
	switch {
	case types.IsPointer(first.Type) && op != cfg.OpAdd && op != cfg.OpSub,
		first.BasicValueType().IsFloat() && (op == cfg.OpAnd || op == cfg.OpOr || op == cfg.OpXor):
		return &ssa.UnsupportedOperandError{Op: op.String(), Left: first.Type, Right: second.Type}
	}
	left, right := first, second
	if swapped {
		left, right = second, first
	}
	v := t.f.NewValue(b, binaryOps[op], first.Type, left, right)
	if flags&ssa.ConvertUnsigned != 0 {
		v.AuxInt = ssa.AuxUnsigned
	}
	t.bd.Push(b, v)
	return nil
}

// condition pops a branch operand and returns the i1 that selects the
// taken successor.
func (t *translator) condition(b *ssa.Block, onTrue bool) (*ssa.Value, error) {
	if top := t.bd.Peek(b); top.BasicValueType() == types.BasicInt1 {
		t.bd.Pop(b)
		if onTrue {
			return top, nil
		}
		return t.compare(b, ssa.CmpEq, top, t.f.ConstInt(b, i1, 0)), nil
	}
	v, err := t.bd.PopCompareOrArithmeticValue(b, ssa.ConvertNone)
	if err != nil {
		return nil, err
	}
	kind := ssa.CmpNe
	if !onTrue {
		kind = ssa.CmpEq
	}
	return t.compare(b, kind, v, t.zero(b, v.Type)), nil
}

func (t *translator) compare(b *ssa.Block, kind ssa.CompareKind, x, y *ssa.Value) *ssa.Value {
	v := t.f.NewValue(b, ssa.OpCmp, i1, x, y)
	v.AuxInt = int64(kind)
	return v
}

func (t *translator) load(b *ssa.Block, T types.Type, ptr *ssa.Value) *ssa.Value {
	return t.f.NewValue(b, ssa.OpLoad, T, t.bd.GetValue(b, ssa.MemoryRef), ptr)
}

func (t *translator) store(b *ssa.Block, ptr, val *ssa.Value) {
	m := t.f.NewValue(b, ssa.OpStore, mem, t.bd.GetValue(b, ssa.MemoryRef), ptr, val)
	t.bd.SetValue(b, ssa.MemoryRef, m)
}

// convertTo converts v for storage in a slot of type T.
func (t *translator) convertTo(b *ssa.Block, v *ssa.Value, T types.Type) (*ssa.Value, error) {
	switch {
	case types.Identical(v.Type, T):
		return v, nil
	case (types.IsIntegerType(v.Type) || types.IsFloatType(v.Type)) && (types.IsIntegerType(T) || types.IsFloatType(T)):
		var flags ssa.ConvertFlags
		if types.IsUnsignedInteger(v.Type) {
			flags = ssa.ConvertUnsigned
		}
		return t.bd.Convert(b, v, T, flags), nil
	case types.IsPointer(v.Type) && types.IsIntegerType(T):
		return t.bd.Convert(b, v, T, ssa.ConvertPointerToInt), nil
	case types.IsPointer(v.Type) && types.IsPointer(T):
		if v.Type.(*types.Pointer).AddressSpace() == T.(*types.Pointer).AddressSpace() {
			return t.f.NewValue(b, ssa.OpBitcast, T, v), nil
		}
	}
	return nil, &ssa.UnsupportedOperandError{Op: "store", Left: v.Type, Right: T}
}

func popPointer(bd *ssa.Builder, b *ssa.Block, op cfg.Opcode) (*ssa.Value, error) {
	v := bd.Pop(b)
	if !types.IsPointer(v.Type) {
		return nil, fmt.Errorf("%s expects a pointer, got %s", op, v.Type)
	}
	return v, nil
}

// mirror returns the comparison with its operands exchanged.
func mirror(k ssa.CompareKind) ssa.CompareKind {
	switch k {
	case ssa.CmpLt:
		return ssa.CmpGt
	case ssa.CmpLe:
		return ssa.CmpGe
	case ssa.CmpGt:
		return ssa.CmpLt
	case ssa.CmpGe:
		return ssa.CmpLe
	}
	return k
}
