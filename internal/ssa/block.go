package ssa

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/types"
)

// BlockKind describes how a basic block terminates.
type BlockKind int

const (
	BlockInvalid BlockKind = iota // no terminator yet
	BlockPlain                    // Jump to Succs[0]
	BlockIf                       // If Term.Args[0] then Succs[0] else Succs[1]
	BlockReturn                   // Return; Term.Args[0] = optional result
)

var blockKindNames = [...]string{
	BlockInvalid: "invalid",
	BlockPlain:   "plain",
	BlockIf:      "if",
	BlockReturn:  "ret",
}

// String returns the string representation of the block kind.
func (k BlockKind) String() string {
	if int(k) < len(blockKindNames) {
		return blockKindNames[k]
	}
	return "unknown"
}

// IncompletePhi is a phi created in an unsealed block whose operands are
// wired when the block is sealed.
type IncompletePhi struct {
	Ref  VariableRef
	Phi  *Value
	Type types.Type
}

// Block represents a basic block in the control flow graph.
// A block contains a sequence of non-branching Values followed by its
// terminator Term.
type Block struct {
	// ID is a unique identifier within the containing Func.
	ID ID

	// Values holds the non-terminator values in program order.
	Values []*Value

	// Term is the terminator, or nil while the block is open.
	Term *Value

	// Succs lists the successor blocks in the CFG.
	// For BlockIf: Succs[0] = then, Succs[1] = else.
	Succs []*Block

	// Preds lists the predecessor blocks in the CFG.
	Preds []*Block

	// Func is the function containing this block.
	Func *Func

	// Dominance tree fields, populated by ComputeDom.
	Idom     *Block
	Dominees []*Block

	// Construction state, owned by the Builder.
	defs           map[VariableRef]*Value
	incompletePhis map[VariableRef]*IncompletePhi
	incomplete     []VariableRef // creation order of incompletePhis
	sealed         bool
	stackCounter   int
}

// String returns a short string representation (e.g., "b3").
func (b *Block) String() string {
	return fmt.Sprintf("b%d", b.ID)
}

// Kind derives the block kind from its terminator.
func (b *Block) Kind() BlockKind {
	if b.Term == nil {
		return BlockInvalid
	}
	switch b.Term.Op {
	case OpJump:
		return BlockPlain
	case OpIf:
		return BlockIf
	case OpReturn:
		return BlockReturn
	}
	return BlockInvalid
}

// AddSucc adds a successor block, updating both Succs and the successor's Preds.
func (b *Block) AddSucc(succ *Block) {
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}

// PredIndex returns the position of p in b.Preds, or -1.
func (b *Block) PredIndex(p *Block) int {
	for i, x := range b.Preds {
		if x == p {
			return i
		}
	}
	return -1
}

// IsSealed reports whether the predecessor set of b is final.
func (b *Block) IsSealed() bool { return b.sealed }

// NumSuccs returns the number of successor blocks.
func (b *Block) NumSuccs() int { return len(b.Succs) }

// NumPreds returns the number of predecessor blocks.
func (b *Block) NumPreds() int { return len(b.Preds) }

// NumValues returns the number of non-terminator values in this block.
func (b *Block) NumValues() int { return len(b.Values) }

// Phis returns the phi values at the front of the block.
func (b *Block) Phis() []*Value {
	n := 0
	for n < len(b.Values) && b.Values[n].Op == OpPhi {
		n++
	}
	return b.Values[:n]
}
