package cfg

import (
	"golang.org/x/tools/container/intsets"

	"github.com/you-not-fish/kestrel/internal/ssa"
)

// Block is a basic block of instructions and the SSA block it becomes.
type Block struct {
	SSA     *ssa.Block
	Instrs  []Instruction
	StackIn int // evaluation stack height on entry
	Succs   []*Block
	Preds   []*Block

	index int // position among the leaders; -1 for the entry block
}

// Offset returns the offset of the first instruction, or -1 for the
// synthetic entry block.
func (b *Block) Offset() int {
	if len(b.Instrs) == 0 {
		return -1
	}
	return b.Instrs[0].Offset
}

// Last returns the final instruction of b, or nil for the entry block.
func (b *Block) Last() *Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	return &b.Instrs[len(b.Instrs)-1]
}

// Graph is the control flow graph of one method body.
type Graph struct {
	Func *ssa.Func

	// Entry is the synthetic entry block. It holds no instructions and
	// jumps to the block at the first instruction.
	Entry *Block

	// Blocks lists Entry followed by the reachable blocks in instruction
	// order.
	Blocks []*Block

	// RPO lists the blocks in reverse post-order.
	RPO []*Block

	bySSA    map[*ssa.Block]*Block
	byOffset map[int]*Block
}

// Block returns the block that owns the SSA block b.
func (g *Graph) Block(b *ssa.Block) *Block {
	return g.bySSA[b]
}

// BlockAt returns the block starting at offset, or nil.
func (g *Graph) BlockAt(offset int) *Block {
	return g.byOffset[offset]
}

// Build splits instrs into basic blocks and adds them to f, which must
// contain only its entry block. A block starts at the first instruction,
// at every branch target and after every branch or return. Blocks that
// cannot be reached from the first instruction are dropped.
func Build(f *ssa.Func, instrs []Instruction) (*Graph, error) {
	if len(f.Blocks) != 1 || f.Entry.Term != nil {
		panic("cfg.Build: function already has a body")
	}
	if len(instrs) == 0 {
		return nil, &Error{Offset: -1, Message: "empty method body"}
	}

	index := make(map[int]int, len(instrs))
	for i := range instrs {
		in := &instrs[i]
		if i > 0 && in.Offset <= instrs[i-1].Offset {
			return nil, errorf(in, "offset does not follow %d", instrs[i-1].Offset)
		}
		index[in.Offset] = i
	}

	var leaders intsets.Sparse
	leaders.Insert(0)
	for i := range instrs {
		in := &instrs[i]
		if in.IsBranch() {
			if len(in.Targets) == 0 {
				return nil, errorf(in, "%s has no target", in.Op)
			}
			for _, t := range in.Targets {
				j, ok := index[t]
				if !ok {
					return nil, errorf(in, "unknown branch target %d", t)
				}
				leaders.Insert(j)
			}
		}
		if in.EndsBlock() && i+1 < len(instrs) {
			leaders.Insert(i + 1)
		}
	}
	if last := &instrs[len(instrs)-1]; last.Flow == FlowNext || last.Flow == FlowCond {
		return nil, errorf(last, "control falls off the end of the method")
	}

	starts := leaders.AppendTo(nil)
	blocks := make([]*Block, len(starts))
	blockAt := make(map[int]*Block, len(starts))
	for k, s := range starts {
		end := len(instrs)
		if k+1 < len(starts) {
			end = starts[k+1]
		}
		blocks[k] = &Block{Instrs: instrs[s:end], index: k}
		blockAt[s] = blocks[k]
	}
	for k, b := range blocks {
		last := b.Last()
		if last.IsBranch() {
			for _, t := range last.Targets {
				b.Succs = append(b.Succs, blockAt[index[t]])
			}
		}
		if last.Flow == FlowNext || last.Flow == FlowCond {
			b.Succs = append(b.Succs, blocks[k+1])
		}
	}

	if err := propagateHeights(blocks); err != nil {
		return nil, err
	}
	reached := reachable(blocks)

	g := &Graph{
		Func:     f,
		Entry:    &Block{SSA: f.Entry, index: -1},
		bySSA:    make(map[*ssa.Block]*Block),
		byOffset: make(map[int]*Block),
	}
	g.add(g.Entry)
	for _, b := range blocks {
		if reached.Has(b.index) {
			b.SSA = f.NewBlock()
			g.add(b)
		}
	}

	first := blocks[0]
	f.Jump(f.Entry, first.SSA)
	g.Entry.Succs = []*Block{first}
	first.Preds = append(first.Preds, g.Entry)
	for _, b := range g.Blocks[1:] {
		for _, s := range b.Succs {
			b.SSA.AddSucc(s.SSA)
			s.Preds = append(s.Preds, b)
		}
	}

	for _, sb := range ssa.ReversePostOrder(f) {
		g.RPO = append(g.RPO, g.bySSA[sb])
	}
	return g, nil
}

func (g *Graph) add(b *Block) {
	g.Blocks = append(g.Blocks, b)
	g.bySSA[b.SSA] = b
	if off := b.Offset(); off >= 0 {
		g.byOffset[off] = b
	}
}

// propagateHeights computes the entry stack height of every block reachable
// from blocks[0]. Unreached blocks keep a height of -1.
func propagateHeights(blocks []*Block) error {
	for _, b := range blocks {
		b.StackIn = -1
	}
	blocks[0].StackIn = 0
	work := []*Block{blocks[0]}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]

		h := b.StackIn
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if h < in.Pops {
				return errorf(in, "stack underflow: %s pops %d with height %d", in.Op, in.Pops, h)
			}
			h += in.Pushes - in.Pops
		}
		for _, s := range b.Succs {
			switch s.StackIn {
			case -1:
				s.StackIn = h
				work = append(work, s)
			case h:
			default:
				return errorf(&s.Instrs[0], "stack height mismatch: %d from offset %d, %d from another predecessor",
					h, b.Last().Offset, s.StackIn)
			}
		}
	}
	return nil
}

// reachable returns the indices of the blocks reachable from blocks[0].
func reachable(blocks []*Block) *intsets.Sparse {
	var seen intsets.Sparse
	seen.Insert(0)
	work := []*Block{blocks[0]}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, s := range b.Succs {
			if seen.Insert(s.index) {
				work = append(work, s)
			}
		}
	}
	return &seen
}
