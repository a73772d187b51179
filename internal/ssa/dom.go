package ssa

import "golang.org/x/tools/container/intsets"

// ReversePostOrder returns the blocks of f in reverse post-order,
// starting from f.Entry. Unreachable blocks are excluded.
func ReversePostOrder(f *Func) []*Block {
	var visited intsets.Sparse
	var order []*Block

	var dfs func(b *Block)
	dfs = func(b *Block) {
		if !visited.Insert(int(b.ID)) {
			return
		}
		for _, s := range b.Succs {
			dfs(s)
		}
		order = append(order, b)
	}
	dfs(f.Entry)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// Reachable returns the IDs of the blocks reachable from f.Entry.
func Reachable(f *Func) *intsets.Sparse {
	var set intsets.Sparse
	for _, b := range ReversePostOrder(f) {
		set.Insert(int(b.ID))
	}
	return &set
}

// ComputeDom computes the immediate dominator tree for f using
// Cooper, Harvey, and Kennedy's "A Simple, Fast Dominance Algorithm".
// It populates Block.Idom and Block.Dominees for all reachable blocks.
func ComputeDom(f *Func) {
	rpo := ReversePostOrder(f)
	if len(rpo) == 0 {
		return
	}

	// RPO numbers indexed by block ID; -1 marks unreachable blocks.
	rpoNum := make([]int, len(f.blocks))
	for i := range rpoNum {
		rpoNum[i] = -1
	}
	for i, b := range rpo {
		rpoNum[b.ID] = i
	}

	intersect := func(b1, b2 *Block) *Block {
		for b1 != b2 {
			for rpoNum[b1.ID] > rpoNum[b2.ID] {
				b1 = b1.Idom
			}
			for rpoNum[b2.ID] > rpoNum[b1.ID] {
				b2 = b2.Idom
			}
		}
		return b1
	}

	// The entry is its own dominator while iterating.
	entry := rpo[0]
	for _, b := range f.blocks {
		b.Idom = nil
		b.Dominees = nil
	}
	entry.Idom = entry

	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom *Block
			for _, p := range b.Preds {
				if rpoNum[p.ID] < 0 || p.Idom == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom)
				}
			}
			if newIdom != nil && b.Idom != newIdom {
				b.Idom = newIdom
				changed = true
			}
		}
	}

	entry.Idom = nil
	for _, b := range rpo {
		if b.Idom != nil {
			b.Idom.Dominees = append(b.Idom.Dominees, b)
		}
	}
}

// Dominates reports whether a dominates b. ComputeDom must have been
// called first.
func Dominates(a, b *Block) bool {
	for b != nil {
		if b == a {
			return true
		}
		b = b.Idom
	}
	return false
}
