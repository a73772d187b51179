package ssa

import (
	"fmt"
	"strings"

	"github.com/you-not-fish/kestrel/internal/types"
)

// Verify checks the structural integrity of an SSA function.
// It returns an error describing all violations found, or nil if valid.
func Verify(f *Func) error {
	var errs []string

	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if f.Entry == nil {
		add("func %s: entry block is nil", f.Name)
		return combineErrors(errs)
	}

	if len(f.Blocks) == 0 {
		add("func %s: no blocks", f.Name)
		return combineErrors(errs)
	}

	if f.Blocks[0] != f.Entry {
		add("func %s: Blocks[0] is not the entry block", f.Name)
	}

	if len(f.Entry.Preds) != 0 {
		add("func %s: entry block %s has %d predecessors, want 0",
			f.Name, f.Entry, len(f.Entry.Preds))
	}

	blockSet := make(map[*Block]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		blockSet[b] = true
	}

	checkArgs := func(b *Block, v *Value) {
		for i, arg := range v.Args {
			switch {
			case arg == nil:
				add("func %s, %s, %s: arg[%d] is nil", f.Name, b, v, i)
			case f.Value(arg.ID) != arg:
				add("func %s, %s, %s: arg[%d] (%s) not found in function", f.Name, b, v, i, arg)
			case !blockSet[arg.Block]:
				add("func %s, %s, %s: arg[%d] (%s) lives in a block outside the function", f.Name, b, v, i, arg)
			}
		}
	}

	for _, b := range f.Blocks {
		if b.Func != f {
			add("func %s, %s: block Func pointer mismatch", f.Name, b)
		}

		inPhis := true
		for _, v := range b.Values {
			if v.Block != b {
				add("func %s, %s, %s: value Block pointer is %s, want %s",
					f.Name, b, v, v.Block, b)
			}
			if v.IsTerminator() {
				add("func %s, %s, %s: terminator %s in value list", f.Name, b, v, v.Op)
			}
			if v.Type == nil {
				add("func %s, %s, %s (%s): value has nil Type", f.Name, b, v, v.Op)
			}
			checkArgs(b, v)

			if v.Op != OpPhi {
				inPhis = false
				continue
			}
			if !inPhis {
				add("func %s, %s, %s: phi after non-phi value", f.Name, b, v)
			}
			if len(v.Args) != len(b.Preds) {
				add("func %s, %s, %s: phi has %d args but block has %d preds",
					f.Name, b, v, len(v.Args), len(b.Preds))
			}
			for i, arg := range v.Args {
				if arg != nil && v.Type != nil && !types.Identical(arg.Type, v.Type) {
					add("func %s, %s, %s: phi arg[%d] has type %s, want %s",
						f.Name, b, v, i, arg.Type, v.Type)
				}
			}
		}

		t := b.Term
		if t == nil {
			add("func %s, %s: block has no terminator", f.Name, b)
		} else {
			if t.Block != b {
				add("func %s, %s: terminator Block pointer is %s", f.Name, b, t.Block)
			}
			checkArgs(b, t)
			switch t.Op {
			case OpJump:
				if len(b.Succs) != 1 {
					add("func %s, %s: plain block has %d succs, want 1", f.Name, b, len(b.Succs))
				}
			case OpIf:
				if len(t.Args) != 1 {
					add("func %s, %s: if block has %d controls, want 1", f.Name, b, len(t.Args))
				} else if t.Args[0] != nil && t.Args[0].BasicValueType() != types.BasicInt1 {
					add("func %s, %s: if condition %s has type %s, want i1", f.Name, b, t.Args[0], t.Args[0].Type)
				}
				if len(b.Succs) != 2 {
					add("func %s, %s: if block has %d succs, want 2", f.Name, b, len(b.Succs))
				}
			case OpReturn:
				if len(b.Succs) != 0 {
					add("func %s, %s: return block has %d succs, want 0", f.Name, b, len(b.Succs))
				}
				if len(t.Args) > 1 {
					add("func %s, %s: return has %d values", f.Name, b, len(t.Args))
				}
			default:
				add("func %s, %s: %s is not a terminator", f.Name, b, t.Op)
			}
		}

		for _, succ := range b.Succs {
			if !blockSet[succ] {
				add("func %s, %s: successor %s not in function", f.Name, b, succ)
				continue
			}
			if !containsBlock(succ.Preds, b) {
				add("func %s, %s: successor %s does not have %s as predecessor",
					f.Name, b, succ, b)
			}
		}
		for _, pred := range b.Preds {
			if !blockSet[pred] {
				add("func %s, %s: predecessor %s not in function", f.Name, b, pred)
				continue
			}
			if !containsBlock(pred.Succs, b) {
				add("func %s, %s: predecessor %s does not have %s as successor",
					f.Name, b, pred, b)
			}
		}
	}

	return combineErrors(errs)
}

// containsBlock checks whether bs contains b.
func containsBlock(bs []*Block, b *Block) bool {
	for _, x := range bs {
		if x == b {
			return true
		}
	}
	return false
}

// VerifyDom checks dominance properties of an SSA function.
// ComputeDom must have been called before this.
// It calls Verify first, then checks dominance invariants.
func VerifyDom(f *Func) error {
	if err := Verify(f); err != nil {
		return err
	}

	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	reachable := Reachable(f)

	if f.Entry.Idom != nil {
		add("func %s: entry %s has non-nil Idom %s", f.Name, f.Entry, f.Entry.Idom)
	}

	for _, b := range f.Blocks {
		if !reachable.Has(int(b.ID)) || b == f.Entry {
			continue
		}
		if b.Idom == nil {
			add("func %s, %s: reachable block has nil Idom", f.Name, b)
		} else if b.Idom == b {
			add("func %s, %s: block is its own Idom", f.Name, b)
		}
	}

	// Position of each value within its block; terminators come last.
	valIdx := make(map[*Value]int)
	for _, b := range f.Blocks {
		for i, v := range b.Values {
			valIdx[v] = i
		}
		if b.Term != nil {
			valIdx[b.Term] = len(b.Values)
		}
	}

	checkUse := func(b *Block, v *Value) {
		for i, arg := range v.Args {
			if arg == nil {
				continue
			}
			defBlock := arg.Block
			if defBlock == b {
				if valIdx[arg] >= valIdx[v] {
					add("func %s, %s, %s: arg[%d] %s defined at index %d, used at index %d (same block)",
						f.Name, b, v, i, arg, valIdx[arg], valIdx[v])
				}
			} else if !Dominates(defBlock, b) {
				add("func %s, %s, %s: arg[%d] %s defined in %s which does not dominate %s",
					f.Name, b, v, i, arg, defBlock, b)
			}
		}
	}

	for _, b := range f.Blocks {
		if !reachable.Has(int(b.ID)) {
			continue
		}
		for _, v := range b.Values {
			if v.Op != OpPhi {
				checkUse(b, v)
				continue
			}
			// Each phi arg must dominate the end of its predecessor.
			for i, arg := range v.Args {
				if arg == nil || i >= len(b.Preds) {
					continue
				}
				pred := b.Preds[i]
				if !Dominates(arg.Block, pred) {
					add("func %s, %s, %s: phi arg[%d] %s defined in %s which does not dominate pred %s",
						f.Name, b, v, i, arg, arg.Block, pred)
				}
			}
		}
		if b.Term != nil {
			checkUse(b, b.Term)
		}
	}

	return combineErrors(errs)
}

// combineErrors creates an error from a list of error strings, or returns nil.
func combineErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("SSA verification failed:\n  %s", strings.Join(errs, "\n  "))
}
