package ssa

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/types"
)

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	// NativeInt is the integer type pointers convert to. Defaults to i64.
	NativeInt *types.Basic
}

// Builder resolves variable references to SSA values while a function is
// constructed. Lookups across blocks insert phis where control flow
// merges; phis in unsealed blocks stay incomplete until Seal.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	f        *Func
	cfg      BuilderConfig
	declared map[VariableRef]types.Type
}

// NewBuilder creates a Builder for f.
func NewBuilder(f *Func, cfg BuilderConfig) *Builder {
	if cfg.NativeInt == nil {
		cfg.NativeInt = types.Typ[types.Int64]
	}
	return &Builder{
		f:        f,
		cfg:      cfg,
		declared: make(map[VariableRef]types.Type),
	}
}

// Func returns the function under construction.
func (bd *Builder) Func() *Func { return bd.f }

// NativeInt returns the integer type pointers convert to.
func (bd *Builder) NativeInt() *types.Basic { return bd.cfg.NativeInt }

// DeclareType records the static type of ref. It is used for phis whose
// type cannot be found in any predecessor.
func (bd *Builder) DeclareType(ref VariableRef, T types.Type) {
	bd.declared[ref] = T
}

// SetValue binds ref to v in block b.
func (bd *Builder) SetValue(b *Block, ref VariableRef, v *Value) {
	b.defs[ref] = v
	if _, ok := bd.declared[ref]; !ok && ref.Kind != RefStack {
		bd.declared[ref] = v.Type
	}
}

// GetValue returns the value ref holds on entry to, or after the latest
// binding in, block b.
func (bd *Builder) GetValue(b *Block, ref VariableRef) *Value {
	if v, ok := b.defs[ref]; ok {
		return v
	}
	if b.sealed && len(b.Preds) == 1 {
		v := bd.GetValue(b.Preds[0], ref)
		b.defs[ref] = v
		return v
	}
	if len(b.Preds) == 0 {
		panic(fmt.Sprintf("ssa.GetValue: %s has no binding in %s, which has no predecessors", ref, b))
	}

	T := bd.peekType(b, ref)
	phi := bd.f.NewValueAtFront(b, OpPhi, T)
	// Bind before wiring so that lookups through back edges find the phi.
	b.defs[ref] = phi
	if !b.sealed {
		if b.incompletePhis == nil {
			b.incompletePhis = make(map[VariableRef]*IncompletePhi)
		}
		b.incompletePhis[ref] = &IncompletePhi{Ref: ref, Phi: phi, Type: T}
		b.incomplete = append(b.incomplete, ref)
		return phi
	}
	return bd.addPhiOperands(b, phi, ref)
}

// peekType finds the static type of ref by searching predecessors without
// creating phis, falling back to the declared type.
func (bd *Builder) peekType(b *Block, ref VariableRef) types.Type {
	visited := map[*Block]bool{b: true}
	var peek func(*Block) types.Type
	peek = func(p *Block) types.Type {
		if visited[p] {
			return nil
		}
		visited[p] = true
		if v, ok := p.defs[ref]; ok {
			return v.Type
		}
		for _, pp := range p.Preds {
			if T := peek(pp); T != nil {
				return T
			}
		}
		return nil
	}
	for _, p := range b.Preds {
		if T := peek(p); T != nil {
			return T
		}
	}
	if T, ok := bd.declared[ref]; ok {
		return T
	}
	panic(fmt.Sprintf("ssa.GetValue: cannot determine type of %s in %s", ref, b))
}

// addPhiOperands wires one operand per predecessor of b, in predecessor
// order, and returns phi or the value it collapsed to.
func (bd *Builder) addPhiOperands(b *Block, phi *Value, ref VariableRef) *Value {
	for _, p := range b.Preds {
		v := bd.GetValue(p, ref)
		phi.AddArg(bd.Convert(p, v, phi.Type, ConvertNone))
	}
	return bd.tryRemoveTrivialPhi(phi)
}

// tryRemoveTrivialPhi replaces phi by its single distinct operand, if it
// has one. Phis using phi are re-examined since they may become trivial
// in turn.
func (bd *Builder) tryRemoveTrivialPhi(phi *Value) *Value {
	var same *Value
	for _, arg := range phi.Args {
		if arg == same || arg == phi {
			continue
		}
		if same != nil {
			return phi
		}
		same = arg
	}
	if same == nil {
		// Unreachable or self-referential only.
		same = bd.f.NewValueAtFront(bd.f.Entry, OpUndef, phi.Type)
	}

	var users []*Value
	for _, u := range bd.f.Users(phi) {
		if u != phi {
			users = append(users, u)
		}
	}
	bd.f.RemoveValue(phi)
	bd.f.ReplaceUses(phi, same)

	for _, u := range users {
		if u.Op == OpPhi && u.Block != nil {
			bd.tryRemoveTrivialPhi(u)
		}
	}
	return same
}

// Seal declares that the predecessor set of b is complete and wires the
// operands of its incomplete phis. Conversions an operand needs are
// placed at the end of the corresponding predecessor.
func (bd *Builder) Seal(b *Block) {
	if b.sealed {
		panic(fmt.Sprintf("ssa.Seal: %s sealed twice", b))
	}
	// Wiring may register further incomplete phis in b.
	for i := 0; i < len(b.incomplete); i++ {
		ip := b.incompletePhis[b.incomplete[i]]
		bd.addPhiOperands(b, ip.Phi, ip.Ref)
	}
	b.incompletePhis = nil
	b.incomplete = nil
	b.sealed = true
}

// IsSealed reports whether b has been sealed.
func (bd *Builder) IsSealed(b *Block) bool { return b.sealed }

// SealAll seals every block not sealed yet.
func (bd *Builder) SealAll() {
	for _, b := range bd.f.Blocks {
		if !b.sealed {
			bd.Seal(b)
		}
	}
}

// IncompletePhis returns the pending phis of b in creation order.
func (bd *Builder) IncompletePhis(b *Block) []*IncompletePhi {
	out := make([]*IncompletePhi, len(b.incomplete))
	for i, ref := range b.incomplete {
		out[i] = b.incompletePhis[ref]
	}
	return out
}

// Convert returns v converted to T, appending the conversion to b.
// Values whose type is already T are returned unchanged.
func (bd *Builder) Convert(b *Block, v *Value, T types.Type, flags ConvertFlags) *Value {
	if types.Identical(v.Type, T) {
		return v
	}
	op := OpConvert
	if flags&ConvertFloatBits != 0 {
		op = OpBitcast
	}
	c := bd.f.NewValue(b, op, T, v)
	c.AuxInt = int64(flags)
	return c
}
