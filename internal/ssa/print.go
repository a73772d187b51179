package ssa

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/you-not-fish/kestrel/internal/types"
)

// Fprint writes the SSA representation of a function to w.
//
// Format:
//
//	func name(i32, i32) i32:
//	  b0: (entry)
//	    v0 = Arg <i32> [0]
//	    v1 = Const <i32> [42]
//	    v2 = Add <i32> v0 v1
//	    Return v2
func Fprint(w io.Writer, f *Func) {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	fmt.Fprintf(w, "func %s(%s)", f.Name, strings.Join(params, ", "))
	if f.Result != nil && f.Result != types.Typ[types.Void] {
		fmt.Fprintf(w, " %s", f.Result)
	}
	fmt.Fprintf(w, ":\n")

	for _, b := range f.Blocks {
		fprintBlock(w, b, f)
	}
}

// fprintBlock writes a single block to w.
func fprintBlock(w io.Writer, b *Block, f *Func) {
	label := ""
	if b == f.Entry {
		label = " (entry)"
	}

	predsStr := ""
	if len(b.Preds) > 0 {
		preds := make([]string, len(b.Preds))
		for i, p := range b.Preds {
			preds[i] = p.String()
		}
		predsStr = " <- " + strings.Join(preds, " ")
	}

	fmt.Fprintf(w, "  %s:%s%s\n", b, label, predsStr)

	for _, v := range b.Values {
		fmt.Fprintf(w, "    %s\n", formatValue(v))
	}
	if b.Term != nil {
		fmt.Fprintf(w, "    %s\n", formatValue(b.Term))
	} else {
		fmt.Fprintf(w, "    ???\n")
	}
}

// formatValue formats a value as a string.
func formatValue(v *Value) string {
	var sb strings.Builder

	if v.IsTerminator() {
		sb.WriteString(v.Op.String())
	} else {
		fmt.Fprintf(&sb, "v%d = %s", v.ID, v.Op)
		if v.Type != nil {
			fmt.Fprintf(&sb, " <%s>", v.Type)
		}
	}

	switch v.Op {
	case OpConst:
		if types.IsFloatType(v.Type) {
			fmt.Fprintf(&sb, " [%g]", v.AuxFloat)
		} else {
			fmt.Fprintf(&sb, " [%d]", v.AuxInt)
		}
	case OpCmp:
		fmt.Fprintf(&sb, " [%s]", CompareKind(v.AuxInt))
	case OpArg, OpFieldAddress, OpGetField, OpSetField:
		fmt.Fprintf(&sb, " [%d]", v.AuxInt)
	default:
		if v.AuxInt != 0 {
			fmt.Fprintf(&sb, " [%d]", v.AuxInt)
		}
	}

	if v.Aux != nil {
		fmt.Fprintf(&sb, " {%s}", formatAux(v.Aux))
	}

	for _, arg := range v.Args {
		fmt.Fprintf(&sb, " v%d", arg.ID)
	}

	if v.IsTerminator() && v.Block != nil && len(v.Block.Succs) > 0 {
		succs := make([]string, len(v.Block.Succs))
		for i, s := range v.Block.Succs {
			succs[i] = s.String()
		}
		fmt.Fprintf(&sb, " -> %s", strings.Join(succs, " "))
	}

	return sb.String()
}

// Sprint returns the SSA representation of a function as a string.
func Sprint(f *Func) string {
	var sb strings.Builder
	Fprint(&sb, f)
	return sb.String()
}

// formatAux formats an Aux value for display.
func formatAux(aux interface{}) string {
	switch a := aux.(type) {
	case types.Type:
		return a.String()
	case string:
		return a
	default:
		return fmt.Sprintf("%v", aux)
	}
}

// Print writes the SSA representation of a function to stdout.
func Print(f *Func) {
	Fprint(os.Stdout, f)
}
