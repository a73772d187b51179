package passes

import (
	"github.com/you-not-fish/kestrel/internal/ssa"
	"github.com/you-not-fish/kestrel/internal/types"
)

// LowerViews returns a pass that replaces views by their {ptr, length}
// structures. Values, parameters and the result are retyped in place and
// the view operations become field accesses.
func LowerViews(tc *types.Context) Pass {
	return Pass{Name: "lowerviews", Fn: func(f *ssa.Func) { lowerViews(tc, f) }}
}

func newViewRewriter(tc *types.Context) *Rewriter[struct{}] {
	r := NewRewriter[struct{}](tc)
	r.AddConverter(ssa.OpNewView, func(ctx *RewriterContext, _ struct{}, v *ssa.Value) {
		s := ctx.Insert(ssa.OpStructure, v.Type, v.Args...)
		ctx.ReplaceAndRemove(v, s)
	})
	r.AddConverter(ssa.OpViewPointer, func(ctx *RewriterContext, _ struct{}, v *ssa.Value) {
		ctx.ReplaceAndRemove(v, getField(ctx, v.Args[0], 0))
	})
	r.AddConverter(ssa.OpViewLength, func(ctx *RewriterContext, _ struct{}, v *ssa.Value) {
		ctx.ReplaceAndRemove(v, getField(ctx, v.Args[0], 1))
	})
	r.AddConverter(ssa.OpSubView, func(ctx *RewriterContext, _ struct{}, v *ssa.Value) {
		ptr := getField(ctx, v.Args[0], 0)
		elem := ctx.Insert(ssa.OpElementAddress, ptr.Type, ptr, v.Args[1])
		s := ctx.Insert(ssa.OpStructure, v.Type, elem, v.Args[2])
		ctx.ReplaceAndRemove(v, s)
	})
	return r
}

func lowerViews(tc *types.Context, f *ssa.Func) {
	for i, p := range f.Params {
		f.Params[i] = tc.Lower(p)
	}
	f.Result = tc.Lower(f.Result)
	// Retyping keeps identity, so existing uses need no redirect.
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			v.Type = tc.Lower(v.Type)
		}
	}
	newViewRewriter(tc).Apply(f, f.Blocks, struct{}{}, Static)
}

// getField inserts field i of the structure v.
func getField(ctx *RewriterContext, v *ssa.Value, i int) *ssa.Value {
	st := v.Type.(*types.Struct)
	g := ctx.Insert(ssa.OpGetField, st.Field(i).Type(), v)
	g.AuxInt = int64(i)
	ctx.MarkConverted(g)
	return g
}
