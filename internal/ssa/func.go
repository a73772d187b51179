package ssa

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/types"
)

// Func represents an SSA function.
// It contains a control flow graph of Blocks, each containing Values.
type Func struct {
	// Name is the function name.
	Name string

	// Params are the parameter types.
	Params []types.Type

	// Result is the result type, Void if the function returns nothing.
	Result types.Type

	// Blocks is the list of basic blocks. Blocks[0] is always the entry block.
	Blocks []*Block

	// Entry is the entry block (same as Blocks[0]).
	Entry *Block

	// values is the value arena indexed by ID. Removed values leave nil.
	values []*Value

	// blocks is the block arena indexed by ID.
	blocks []*Block
}

// NewFunc creates a new SSA function with the given name and signature.
// An entry block is automatically created.
func NewFunc(name string, params []types.Type, result types.Type) *Func {
	if result == nil {
		result = types.Typ[types.Void]
	}
	f := &Func{
		Name:   name,
		Params: params,
		Result: result,
	}
	f.Entry = f.NewBlock()
	return f
}

// NewBlock creates a new basic block and appends it to the function.
func (f *Func) NewBlock() *Block {
	b := &Block{
		ID:   ID(len(f.blocks)),
		Func: f,
		defs: make(map[VariableRef]*Value),
	}
	f.blocks = append(f.blocks, b)
	f.Blocks = append(f.Blocks, b)
	return b
}

// Block returns the block with the given ID.
func (f *Func) Block(id ID) *Block {
	if id < 0 || int(id) >= len(f.blocks) {
		return nil
	}
	return f.blocks[id]
}

// Value returns the live value with the given ID, or nil.
func (f *Func) Value(id ID) *Value {
	if id < 0 || int(id) >= len(f.values) {
		return nil
	}
	return f.values[id]
}

// NumValueIDs returns an upper bound on value IDs, for ID-indexed tables.
func (f *Func) NumValueIDs() int { return len(f.values) }

// newValue allocates a value in the arena without placing it.
func (f *Func) newValue(b *Block, op Op, typ types.Type, args []*Value) *Value {
	v := &Value{
		ID:    ID(len(f.values)),
		Op:    op,
		Type:  typ,
		Block: b,
	}
	f.values = append(f.values, v)
	for _, arg := range args {
		v.AddArg(arg)
	}
	return v
}

// NewValue creates a new Value at the end of block b.
func (f *Func) NewValue(b *Block, op Op, typ types.Type, args ...*Value) *Value {
	if op.IsTerminator() {
		panic(fmt.Sprintf("ssa.NewValue: %s is a terminator, use SetTerm", op))
	}
	v := f.newValue(b, op, typ, args)
	b.Values = append(b.Values, v)
	return v
}

// NewValueAtFront creates a new Value at the start of block b.
func (f *Func) NewValueAtFront(b *Block, op Op, typ types.Type, args ...*Value) *Value {
	return f.InsertValue(b, 0, op, typ, args...)
}

// InsertValue creates a new Value at position i of b.Values.
func (f *Func) InsertValue(b *Block, i int, op Op, typ types.Type, args ...*Value) *Value {
	if op.IsTerminator() {
		panic(fmt.Sprintf("ssa.InsertValue: %s is a terminator, use SetTerm", op))
	}
	v := f.newValue(b, op, typ, args)
	b.Values = append(b.Values, nil)
	copy(b.Values[i+1:], b.Values[i:])
	b.Values[i] = v
	return v
}

// SetTerm installs a terminator on b, replacing any previous one.
func (f *Func) SetTerm(b *Block, op Op, args ...*Value) *Value {
	if !op.IsTerminator() {
		panic(fmt.Sprintf("ssa.SetTerm: %s is not a terminator", op))
	}
	if b.Term != nil {
		f.RemoveValue(b.Term)
	}
	b.Term = f.newValue(b, op, types.Typ[types.Void], args)
	return b.Term
}

// Jump ends b with an unconditional branch to succ.
func (f *Func) Jump(b, succ *Block) *Value {
	t := f.SetTerm(b, OpJump)
	b.AddSucc(succ)
	return t
}

// If ends b with a conditional branch.
func (f *Func) If(b *Block, cond *Value, then, els *Block) *Value {
	t := f.SetTerm(b, OpIf, cond)
	b.AddSucc(then)
	b.AddSucc(els)
	return t
}

// Return ends b with a return of v, or a void return if v is nil.
func (f *Func) Return(b *Block, v *Value) *Value {
	if v == nil {
		return f.SetTerm(b, OpReturn)
	}
	return f.SetTerm(b, OpReturn, v)
}

// ConstInt creates an integer constant of type T in b.
func (f *Func) ConstInt(b *Block, T types.Type, c int64) *Value {
	v := f.NewValue(b, OpConst, T)
	v.AuxInt = c
	return v
}

// ConstFloat creates a float constant of type T in b.
func (f *Func) ConstFloat(b *Block, T types.Type, c float64) *Value {
	v := f.NewValue(b, OpConst, T)
	v.AuxFloat = c
	return v
}

// RemoveValue detaches v from its block and the arena. Its arguments lose
// one use each.
func (f *Func) RemoveValue(v *Value) {
	b := v.Block
	if b == nil {
		return
	}
	if b.Term == v {
		b.Term = nil
	} else {
		for i, x := range b.Values {
			if x == v {
				b.Values = append(b.Values[:i], b.Values[i+1:]...)
				break
			}
		}
	}
	for _, arg := range v.Args {
		arg.Uses--
	}
	v.Args = nil
	v.Block = nil
	f.values[v.ID] = nil
}

// ReplaceUses redirects every use of old to new, including block-local
// variable bindings still held by the builder.
func (f *Func) ReplaceUses(old, new *Value) {
	if old == new {
		return
	}
	for _, v := range f.values {
		if v == nil {
			continue
		}
		for i, arg := range v.Args {
			if arg == old {
				v.ReplaceArg(i, new)
			}
		}
	}
	for _, b := range f.blocks {
		for ref, d := range b.defs {
			if d == old {
				b.defs[ref] = new
			}
		}
	}
}

// ReplaceAll applies a set of replacements. Chains are followed, so a
// value replaced by a value that is itself replaced ends at the last one.
func (f *Func) ReplaceAll(repl map[*Value]*Value) {
	if len(repl) == 0 {
		return
	}
	resolve := func(v *Value) *Value {
		for n := 0; n <= len(repl); n++ {
			r, ok := repl[v]
			if !ok {
				return v
			}
			v = r
		}
		panic("ssa.ReplaceAll: replacement cycle")
	}
	for _, v := range f.values {
		if v == nil {
			continue
		}
		for i, arg := range v.Args {
			if r := resolve(arg); r != arg {
				v.ReplaceArg(i, r)
			}
		}
	}
}

// Users returns the live values with v as an argument.
func (f *Func) Users(v *Value) []*Value {
	var users []*Value
	for _, u := range f.values {
		if u == nil {
			continue
		}
		for _, arg := range u.Args {
			if arg == v {
				users = append(users, u)
				break
			}
		}
	}
	return users
}

// NumBlocks returns the number of blocks in the function.
func (f *Func) NumBlocks() int { return len(f.Blocks) }

// NumValues returns the total number of values across all blocks,
// terminators included.
func (f *Func) NumValues() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Values)
		if b.Term != nil {
			n++
		}
	}
	return n
}
