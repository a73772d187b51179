package passes

import (
	"testing"

	"github.com/you-not-fish/kestrel/internal/ssa"
	"github.com/you-not-fish/kestrel/internal/types"
)

// returnStruct builds f(s st) st { return s } and rewrites its return
// operand through conv.
func returnStruct(t *testing.T, tc *types.Context, st *types.Struct, conv func(ctx *RewriterContext, v *ssa.Value) *ssa.Value) *ssa.Func {
	t.Helper()
	f := ssa.NewFunc("f", []types.Type{st}, st)
	s := arg(f, st, 0)
	f.Return(f.Entry, s)

	r := NewRewriter[struct{}](tc)
	r.AddConverter(ssa.OpReturn, func(ctx *RewriterContext, _ struct{}, v *ssa.Value) {
		v.ReplaceArg(0, conv(ctx, v.Args[0]))
	})
	r.Apply(f, f.Blocks, struct{}{}, Static)
	return f
}

func TestDisassembleStructure(t *testing.T) {
	tc := types.NewContext()
	st := tc.Struct([]*types.Field{types.NewField("x", i32), types.NewField("y", f32)})

	var fields []*ssa.Value
	returnStruct(t, tc, st, func(ctx *RewriterContext, v *ssa.Value) *ssa.Value {
		DisassembleStructure(ctx, st, v, func(ctx *RewriterContext, field *ssa.Value, i int) {
			if !ctx.IsConverted(field) {
				t.Errorf("field %d not marked converted", i)
			}
			fields = append(fields, field)
		})
		return v
	})

	if len(fields) != 2 {
		t.Fatalf("visited %d fields, want 2", len(fields))
	}
	for i, g := range fields {
		if g.Op != ssa.OpGetField || g.AuxInt != int64(i) || g.Type != st.Field(i).Type() {
			t.Errorf("field %d = %s", i, g.LongString())
		}
	}
}

func TestAssembleStructureOrder(t *testing.T) {
	tc := types.NewContext()
	st := tc.Struct([]*types.Field{
		types.NewField("a", i32),
		types.NewField("b", i32),
		types.NewField("c", i32),
	})

	var order []int
	f := returnStruct(t, tc, st, func(ctx *RewriterContext, v *ssa.Value) *ssa.Value {
		return AssembleStructure(ctx, st, v, func(ctx *RewriterContext, source *ssa.Value, i int) *ssa.Value {
			order = append(order, i)
			c := ctx.Insert(ssa.OpConst, i32)
			c.AuxInt = int64(i)
			return c
		})
	})

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("fields lowered in order %v, want [0 1 2]", order)
	}
	s := f.Entry.Term.Args[0]
	if s.Op != ssa.OpStructure || s.Type != st || len(s.Args) != 3 {
		t.Fatalf("assembled value = %s", s.LongString())
	}
	last := f.Entry.Values[len(f.Entry.Values)-1]
	if last != s {
		t.Errorf("structure emitted at %s, want after every field", last.LongString())
	}
}

func TestLowerValue(t *testing.T) {
	tc := types.NewContext()
	inner := tc.Struct([]*types.Field{types.NewField("lo", i8), types.NewField("hi", i32)})
	st := tc.Struct([]*types.Field{types.NewField("n", i32), types.NewField("in", inner)})

	tests := []struct {
		name  string
		leaf  LeafLowering
		want  []types.Type // lowered field types of st, innermost flattened
		same  bool
		leafs int
	}{
		{
			name:  "identity",
			leaf:  func(_ *RewriterContext, v, _ *ssa.Value) *ssa.Value { return v },
			want:  []types.Type{i32, i8, i32},
			same:  true,
			leafs: 3,
		},
		{
			name: "widen i32",
			leaf: func(ctx *RewriterContext, v, _ *ssa.Value) *ssa.Value {
				if v.Type != i32 {
					return v
				}
				return ctx.Insert(ssa.OpConvert, i64, v)
			},
			want:  []types.Type{i64, i8, i64},
			leafs: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leafs := 0
			f := returnStruct(t, tc, st, func(ctx *RewriterContext, v *ssa.Value) *ssa.Value {
				return LowerValue(ctx, v, nil, func(ctx *RewriterContext, v, shadow *ssa.Value) *ssa.Value {
					leafs++
					if shadow != nil {
						t.Errorf("shadow = %s, want nil", shadow)
					}
					return tt.leaf(ctx, v, shadow)
				})
			})

			if leafs != tt.leafs {
				t.Errorf("leaf lowering ran %d times, want %d", leafs, tt.leafs)
			}
			s := f.Entry.Term.Args[0]
			got, ok := s.Type.(*types.Struct)
			if !ok {
				t.Fatalf("lowered value has type %s", s.Type)
			}
			if tt.same && got != st {
				t.Errorf("type = %s, want the original structure", got)
			}
			lowInner := got.Field(1).Type().(*types.Struct)
			flat := []types.Type{got.Field(0).Type(), lowInner.Field(0).Type(), lowInner.Field(1).Type()}
			for i := range tt.want {
				if !types.Identical(flat[i], tt.want[i]) {
					t.Errorf("field %d type = %s, want %s", i, flat[i], tt.want[i])
				}
			}
			if got.Field(1).Name() != "in" || lowInner.Field(1).Name() != "hi" {
				t.Error("field names not preserved")
			}
			if err := ssa.Verify(f); err != nil {
				t.Errorf("Verify: %v", err)
			}
		})
	}
}

func TestLowerStructuresLoad(t *testing.T) {
	tc := types.NewContext()
	inner := tc.Struct([]*types.Field{types.NewField("b", i64), types.NewField("c", i8)})
	st := tc.Struct([]*types.Field{types.NewField("a", i32), types.NewField("in", inner)})
	ptr := tc.Pointer(st, types.Global)

	f := ssa.NewFunc("load", []types.Type{ptr}, st)
	p := arg(f, ptr, 0)
	m := f.NewValue(f.Entry, ssa.OpInitMem, mem)
	l := f.NewValue(f.Entry, ssa.OpLoad, st, m, p)
	f.Return(f.Entry, l)

	if err := Run(f, []Pass{LowerStructures(tc)}, Config{Verify: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, v := range f.Entry.Values {
		if v.Op == ssa.OpLoad && types.IsStruct(v.Type) {
			t.Errorf("structure load survived: %s", v.LongString())
		}
		if v.Op == ssa.OpFieldAddress {
			if pt := v.Type.(*types.Pointer); pt.AddressSpace() != types.Global {
				t.Errorf("%s lost the address space", v.LongString())
			}
		}
	}
	if n := countOps(f, ssa.OpLoad); n != 3 {
		t.Errorf("%d loads, want 3\n%s", n, ssa.Sprint(f))
	}
	if n := countOps(f, ssa.OpFieldAddress); n != 4 {
		t.Errorf("%d field addresses, want 4", n)
	}
	if ret := f.Entry.Term.Args[0]; ret.Op != ssa.OpStructure || ret.Type != st {
		t.Errorf("return operand = %s, want the assembled structure", ret.LongString())
	}
}

func TestLowerStructuresStore(t *testing.T) {
	tc := types.NewContext()
	inner := tc.Struct([]*types.Field{types.NewField("b", i64), types.NewField("c", i8)})
	st := tc.Struct([]*types.Field{types.NewField("a", i32), types.NewField("in", inner)})
	ptr := tc.Pointer(st, types.Generic)

	f := ssa.NewFunc("store", []types.Type{ptr, st}, nil)
	p := arg(f, ptr, 0)
	s := arg(f, st, 1)
	m := f.NewValue(f.Entry, ssa.OpInitMem, mem)
	store := f.NewValue(f.Entry, ssa.OpStore, mem, m, p, s)
	after := f.NewValue(f.Entry, ssa.OpLoad, i32, store, p)
	f.Return(f.Entry, nil)
	_ = after

	if err := Run(f, []Pass{LowerStructures(tc)}, Config{Verify: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := countOps(f, ssa.OpStore); n != 3 {
		t.Fatalf("%d stores, want 3\n%s", n, ssa.Sprint(f))
	}
	if n := countOps(f, ssa.OpStructure); n != 0 {
		t.Errorf("%d leftover structures\n%s", n, ssa.Sprint(f))
	}

	// The stores form one chain from the initial memory to the load.
	cur := after.Args[0]
	for i := 0; i < 3; i++ {
		if cur.Op != ssa.OpStore {
			t.Fatalf("memory chain link %d = %s, want a store", i, cur.LongString())
		}
		if types.IsStruct(cur.Args[2].Type) {
			t.Errorf("%s stores a structure", cur.LongString())
		}
		cur = cur.Args[0]
	}
	if cur != m {
		t.Errorf("memory chain ends at %s, want %s", cur, m)
	}
}
