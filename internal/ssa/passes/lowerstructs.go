package passes

import (
	"github.com/you-not-fish/kestrel/internal/ssa"
	"github.com/you-not-fish/kestrel/internal/types"
)

// LowerStructures returns a pass that splits loads and stores of
// structures into per-field memory operations.
func LowerStructures(tc *types.Context) Pass {
	return Pass{Name: "lowerstructs", Fn: func(f *ssa.Func) {
		newStructRewriter(tc).Apply(f, f.Blocks, struct{}{}, Dynamic)
	}}
}

func newStructRewriter(tc *types.Context) *Rewriter[struct{}] {
	r := NewRewriter[struct{}](tc)
	r.Add(ssa.OpLoad, func(_ *RewriterContext, _ struct{}, v *ssa.Value) bool {
		return types.IsStruct(v.Type)
	}, func(ctx *RewriterContext, _ struct{}, v *ssa.Value) {
		s := loadStructure(ctx, v.Type.(*types.Struct), v.Args[0], v.Args[1])
		ctx.ReplaceAndRemove(v, s)
	})
	r.Add(ssa.OpStore, func(_ *RewriterContext, _ struct{}, v *ssa.Value) bool {
		return types.IsStruct(v.Args[2].Type)
	}, func(ctx *RewriterContext, _ struct{}, v *ssa.Value) {
		mem := v.Args[0]
		s := LowerValue(ctx, v.Args[2], v.Args[1], func(ctx *RewriterContext, field, addr *ssa.Value) *ssa.Value {
			mem = ctx.Insert(ssa.OpStore, mem.Type, mem, addr, field)
			ctx.MarkConverted(mem)
			return field
		})
		removeStructure(ctx, s)
		ctx.ReplaceAndRemove(v, mem)
	})
	return r
}

// loadStructure loads every field of the structure at ptr.
func loadStructure(ctx *RewriterContext, st *types.Struct, mem, ptr *ssa.Value) *ssa.Value {
	return AssembleStructure(ctx, st, ptr, func(ctx *RewriterContext, ptr *ssa.Value, i int) *ssa.Value {
		addr := FieldAddress(ctx, ptr, i)
		if fst, ok := st.Field(i).Type().(*types.Struct); ok {
			return loadStructure(ctx, fst, mem, addr)
		}
		l := ctx.Insert(ssa.OpLoad, st.Field(i).Type(), mem, addr)
		ctx.MarkConverted(l)
		return l
	})
}

// removeStructure removes an unused assembled structure together with the
// nested structures it was built from.
func removeStructure(ctx *RewriterContext, s *ssa.Value) {
	for _, arg := range s.Args {
		if arg.Op == ssa.OpStructure {
			removeStructure(ctx, arg)
		}
	}
	ctx.Remove(s)
}
