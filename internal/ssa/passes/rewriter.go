package passes

import (
	"fmt"

	"golang.org/x/tools/container/intsets"

	"github.com/you-not-fish/kestrel/internal/ssa"
	"github.com/you-not-fish/kestrel/internal/types"
)

// Mode selects how a Rewriter decides which values to convert.
type Mode uint8

const (
	// Static collects the eligible values before converting any of them.
	Static Mode = iota

	// Dynamic evaluates predicates during the walk, so conversions can
	// influence which later values match.
	Dynamic
)

func (m Mode) String() string {
	if m == Static {
		return "static"
	}
	return "dynamic"
}

// Predicate reports whether v should be converted.
type Predicate[T any] func(ctx *RewriterContext, data T, v *ssa.Value) bool

// Converter rewrites v. It inserts replacement values through ctx.
type Converter[T any] func(ctx *RewriterContext, data T, v *ssa.Value)

type rule[T any] struct {
	pred Predicate[T]
	conv Converter[T]
}

// Rewriter applies registered conversions to the values of a function.
// Rules are indexed by op; the first rule whose predicate matches wins.
type Rewriter[T any] struct {
	types *types.Context
	rules [ssa.NumOps][]rule[T]
}

// NewRewriter creates a Rewriter whose converters build types in tc.
func NewRewriter[T any](tc *types.Context) *Rewriter[T] {
	return &Rewriter[T]{types: tc}
}

// Add registers a predicate and its converter for op. A nil predicate
// always matches.
func (r *Rewriter[T]) Add(op ssa.Op, pred Predicate[T], conv Converter[T]) {
	if conv == nil {
		panic(fmt.Sprintf("passes.Rewriter.Add: nil converter for %s", op))
	}
	r.rules[op] = append(r.rules[op], rule[T]{pred: pred, conv: conv})
}

// AddConverter registers conv for every value of op.
func (r *Rewriter[T]) AddConverter(op ssa.Op, conv Converter[T]) {
	r.Add(op, nil, conv)
}

func (r *Rewriter[T]) match(ctx *RewriterContext, data T, v *ssa.Value) Converter[T] {
	for _, rl := range r.rules[v.Op] {
		if rl.pred == nil || rl.pred(ctx, data, v) {
			if rl.conv == nil {
				panic(fmt.Sprintf("passes.Rewriter: %s matched without a converter", v.LongString()))
			}
			return rl.conv
		}
	}
	return nil
}

// blockValues returns the values of b with the terminator last.
func blockValues(b *ssa.Block) []*ssa.Value {
	vals := make([]*ssa.Value, 0, len(b.Values)+1)
	vals = append(vals, b.Values...)
	if b.Term != nil {
		vals = append(vals, b.Term)
	}
	return vals
}

// Apply converts the matching values of blocks and reports whether any
// value was converted. Each value is converted at most once and values
// created during the call are not visited. Replacements recorded by the
// converters are applied to all uses once the walk is complete.
func (r *Rewriter[T]) Apply(f *ssa.Func, blocks []*ssa.Block, data T, mode Mode) bool {
	ctx := &RewriterContext{
		f:     f,
		types: r.types,
		repl:  make(map[*ssa.Value]*ssa.Value),
	}
	limit := ssa.ID(f.NumValueIDs())

	var eligible intsets.Sparse
	convs := make(map[ssa.ID]Converter[T])
	if mode == Static {
		for _, b := range blocks {
			ctx.block = b
			for _, v := range blockValues(b) {
				if conv := r.match(ctx, data, v); conv != nil {
					eligible.Insert(int(v.ID))
					convs[v.ID] = conv
				}
			}
		}
	}

	changed := false
	for _, b := range blocks {
		ctx.block = b
		for _, v := range blockValues(b) {
			if v.Block == nil || v.ID >= limit || ctx.converted.Has(int(v.ID)) {
				continue
			}
			var conv Converter[T]
			if mode == Static {
				if !eligible.Has(int(v.ID)) {
					continue
				}
				conv = convs[v.ID]
			} else if conv = r.match(ctx, data, v); conv == nil {
				continue
			}
			ctx.cur = v
			ctx.converted.Insert(int(v.ID))
			conv(ctx, data, v)
			changed = true
		}
	}
	ctx.cur = nil

	f.ReplaceAll(ctx.repl)
	for _, v := range ctx.removed {
		f.RemoveValue(v)
	}
	return changed
}

// RewriterContext is passed to converters. New values are inserted
// immediately before the value being converted, which keeps operands
// defined before their uses.
type RewriterContext struct {
	f         *ssa.Func
	types     *types.Context
	block     *ssa.Block
	cur       *ssa.Value
	converted intsets.Sparse
	repl      map[*ssa.Value]*ssa.Value
	removed   []*ssa.Value
}

// Func returns the function being rewritten.
func (c *RewriterContext) Func() *ssa.Func { return c.f }

// Types returns the type context converters build types in.
func (c *RewriterContext) Types() *types.Context { return c.types }

// Block returns the block being walked.
func (c *RewriterContext) Block() *ssa.Block { return c.block }

// Current returns the value being converted.
func (c *RewriterContext) Current() *ssa.Value { return c.cur }

// Insert creates a value before the value being converted.
func (c *RewriterContext) Insert(op ssa.Op, typ types.Type, args ...*ssa.Value) *ssa.Value {
	if c.cur == nil {
		panic("passes.RewriterContext.Insert: no value is being converted")
	}
	b := c.cur.Block
	pos := len(b.Values)
	for i, v := range b.Values {
		if v == c.cur {
			pos = i
			break
		}
	}
	v := c.f.InsertValue(b, pos, op, typ, args...)
	v.Pos = c.cur.Pos
	return v
}

// Replace records that every use of old is to become a use of new.
func (c *RewriterContext) Replace(old, new *ssa.Value) {
	if old == new {
		return
	}
	c.repl[old] = new
}

// Remove schedules v for removal once replacements are applied.
func (c *RewriterContext) Remove(v *ssa.Value) {
	c.removed = append(c.removed, v)
}

// ReplaceAndRemove replaces old by new and removes old.
func (c *RewriterContext) ReplaceAndRemove(old, new *ssa.Value) {
	c.Replace(old, new)
	c.Remove(old)
}

// MarkConverted excludes v from conversion for the rest of the walk.
func (c *RewriterContext) MarkConverted(v *ssa.Value) {
	c.converted.Insert(int(v.ID))
}

// IsConverted reports whether v has been converted or marked.
func (c *RewriterContext) IsConverted(v *ssa.Value) bool {
	return c.converted.Has(int(v.ID))
}

// Resolve follows recorded replacements starting at v.
func (c *RewriterContext) Resolve(v *ssa.Value) *ssa.Value {
	for n := 0; n <= len(c.repl); n++ {
		r, ok := c.repl[v]
		if !ok {
			return v
		}
		v = r
	}
	panic("passes.RewriterContext.Resolve: replacement cycle")
}
