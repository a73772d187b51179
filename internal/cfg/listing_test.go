package cfg

import (
	"errors"
	"strings"
	"testing"

	"github.com/you-not-fish/kestrel/internal/types"
)

const sampleListing = `
// two methods and a structure
.struct Pair size 16
  x i32
  y f64 @8
.end

.method sum(*global Pair, view<shared f32>) f64
.locals f64, i32
  0: ldarg 0
  1: ldobj Pair     // whole structure
  2: ldfld 1
  3: ret
.end

.method loop(i32)
  0: ldarg 0
  1: brtrue 0
  2: ldc.r8 1.5
  3: pop
  4: ret
.end
`

func TestParseListing(t *testing.T) {
	tc := types.NewContext()
	l, err := ParseListing(strings.NewReader(sampleListing), tc)
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}

	if len(l.Structs) != 1 || l.Structs[0].Name != "Pair" {
		t.Fatalf("structs = %v", l.Structs)
	}
	pair := l.Structs[0].Type
	if pair.ExplicitSize() != 16 || pair.NumFields() != 2 || pair.Field(1).Offset() != 8 {
		t.Errorf("Pair = %s", pair)
	}

	if len(l.Methods) != 2 {
		t.Fatalf("%d methods, want 2", len(l.Methods))
	}
	sum := l.Methods[0]
	if sum.Name != "sum" || sum.Line != 8 {
		t.Errorf("method %s at line %d", sum.Name, sum.Line)
	}
	wantParams := []types.Type{tc.Pointer(pair, types.Global), tc.View(types.Typ[types.Float32], types.Shared)}
	for i, want := range wantParams {
		if sum.Params[i] != want {
			t.Errorf("param %d = %s, want %s", i, sum.Params[i], want)
		}
	}
	if sum.Result != types.Typ[types.Float64] || len(sum.Locals) != 2 {
		t.Errorf("result %s, locals %v", sum.Result, sum.Locals)
	}
	if in := sum.Instrs[1]; in.Op != OpLdobj || in.Operand != types.Type(pair) || in.Line != 11 {
		t.Errorf("instruction 1 = %s at line %d", in, in.Line)
	}
	if ret := sum.Instrs[3]; ret.Pops != 1 {
		t.Errorf("ret of a non-void method pops %d", ret.Pops)
	}

	loop := l.Methods[1]
	if loop.Result != types.Typ[types.Void] {
		t.Errorf("loop result = %s, want void", loop.Result)
	}
	if br := loop.Instrs[1]; len(br.Targets) != 1 || br.Targets[0] != 0 || br.Flow != FlowCond {
		t.Errorf("brtrue = %+v", br)
	}
	if c := loop.Instrs[2]; c.FloatOperand() != 1.5 {
		t.Errorf("ldc.r8 operand = %v", c.Operand)
	}
	if ret := loop.Instrs[4]; ret.Pops != 0 {
		t.Errorf("ret of a void method pops %d", ret.Pops)
	}
}

func TestParseListingErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		want string
	}{
		{"unknown opcode", ".method m()\n0: frob\n.end", 2, `unknown opcode "frob"`},
		{"missing operand", ".method m()\n0: ldarg\n.end", 2, "ldarg needs an operand"},
		{"extra operand", ".method m()\n0: nop 3\n.end", 2, "nop takes no operand"},
		{"bad type", ".method m(q32)\n.end", 1, `unknown type "q32"`},
		{"bad offset", ".method m()\nx: nop\n.end", 2, "invalid offset"},
		{"missing end", ".method m()\n0: ret", 2, "missing .end"},
		{"stray end", ".end", 1, ".end without a declaration"},
		{"outside", "0: nop", 1, "outside a declaration"},
		{"nested", ".method m()\n.struct S\n", 2, "inside another declaration"},
		{"struct attribute", ".struct S align 4\n.end", 1, "unknown struct attribute"},
		{"field offset", ".struct S\nx i32 @-1\n.end", 2, "invalid field offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseListing(strings.NewReader(tt.src), types.NewContext())
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("error = %v, want *cfg.Error", err)
			}
			if cerr.Line != tt.line {
				t.Errorf("error line = %d, want %d", cerr.Line, tt.line)
			}
			if !strings.Contains(cerr.Message, tt.want) {
				t.Errorf("error = %q, want it to contain %q", cerr.Message, tt.want)
			}
		})
	}
}

func TestLookupOpcode(t *testing.T) {
	for op := Opcode(0); op < numOpcodes; op++ {
		got, ok := LookupOpcode(op.String())
		if !ok || got != op {
			t.Errorf("LookupOpcode(%q) = %v, %v", op, got, ok)
		}
	}
	if _, ok := LookupOpcode("call"); ok {
		t.Error("LookupOpcode accepted an unknown mnemonic")
	}
}
