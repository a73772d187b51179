package passes

import (
	"testing"

	"github.com/you-not-fish/kestrel/internal/ssa"
	"github.com/you-not-fish/kestrel/internal/types"
)

func TestLowerViews(t *testing.T) {
	tc := types.NewContext()
	view := tc.View(f32, types.Global)
	elemPtr := tc.Pointer(f32, types.Global)
	pair := tc.Struct([]*types.Field{types.NewField("v", view), types.NewField("n", i32)})

	// f(v view<global f32>, off i32, p pair) f32 {
	//   s := v[off : len(v)]
	//   w := view(ptr(s), off)
	//   return *ptr(w) + load(ptr(p.v))
	// }
	f := ssa.NewFunc("views", []types.Type{view, i32, pair}, f32)
	v := arg(f, view, 0)
	off := arg(f, i32, 1)
	p := arg(f, pair, 2)
	m := f.NewValue(f.Entry, ssa.OpInitMem, mem)
	n := f.NewValue(f.Entry, ssa.OpViewLength, i32, v)
	s := f.NewValue(f.Entry, ssa.OpSubView, view, v, off, n)
	sp := f.NewValue(f.Entry, ssa.OpViewPointer, elemPtr, s)
	w := f.NewValue(f.Entry, ssa.OpNewView, view, sp, off)
	wp := f.NewValue(f.Entry, ssa.OpViewPointer, elemPtr, w)
	x := f.NewValue(f.Entry, ssa.OpLoad, f32, m, wp)
	pv := f.NewValue(f.Entry, ssa.OpGetField, view, p)
	pvp := f.NewValue(f.Entry, ssa.OpViewPointer, elemPtr, pv)
	y := f.NewValue(f.Entry, ssa.OpLoad, f32, m, pvp)
	sum := f.NewValue(f.Entry, ssa.OpAdd, f32, x, y)
	f.Return(f.Entry, sum)

	if err := Run(f, []Pass{LowerViews(tc), DeadCode}, Config{Verify: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lowered := tc.ViewStruct(view)
	if f.Params[0] != lowered {
		t.Errorf("param 0 = %s, want %s", f.Params[0], lowered)
	}
	if pt, ok := f.Params[2].(*types.Struct); !ok || pt.Field(0).Type() != lowered {
		t.Errorf("param 2 = %s, want the view field lowered", f.Params[2])
	}
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			switch v.Op {
			case ssa.OpNewView, ssa.OpViewPointer, ssa.OpViewLength, ssa.OpSubView:
				t.Errorf("view operation survived: %s", v.LongString())
			}
			if types.ContainsView(v.Type) {
				t.Errorf("%s still has a view type", v.LongString())
			}
		}
	}
	if n := countOps(f, ssa.OpElementAddress); n != 1 {
		t.Errorf("%d element addresses, want 1\n%s", n, ssa.Sprint(f))
	}
	if x.Args[1].Op != ssa.OpGetField || x.Args[1].Args[0].Op != ssa.OpStructure {
		t.Errorf("load address = %s, want a field of the new view\n%s", x.Args[1].LongString(), ssa.Sprint(f))
	}
	if x.Args[1].Type != elemPtr {
		t.Errorf("load address type = %s, want %s", x.Args[1].Type, elemPtr)
	}
}

func TestLowerViewsRetypesInPlace(t *testing.T) {
	tc := types.NewContext()
	view := tc.View(i32, types.Generic)

	f := ssa.NewFunc("ident", []types.Type{view}, view)
	v := arg(f, view, 0)
	id := v.ID
	ret := f.Return(f.Entry, v)

	if err := Run(f, []Pass{LowerViews(tc)}, Config{Verify: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lowered := tc.ViewStruct(view)
	if v.Type != lowered {
		t.Errorf("arg type = %s, want %s", v.Type, lowered)
	}
	if v.ID != id || v.Block != f.Entry {
		t.Errorf("arg replaced: %s", v.LongString())
	}
	if ret.Args[0] != v {
		t.Errorf("return operand = %s, want the retyped arg", ret.Args[0].LongString())
	}
	if f.Result != lowered {
		t.Errorf("result = %s, want %s", f.Result, lowered)
	}
}

func TestLowerViewsWithoutViews(t *testing.T) {
	tc := types.NewContext()
	f, _, _ := addChain()
	before := ssa.Sprint(f)

	if err := Run(f, []Pass{LowerViews(tc)}, Config{Verify: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if after := ssa.Sprint(f); after != before {
		t.Errorf("function changed:\n%s\nwant:\n%s", after, before)
	}
}
