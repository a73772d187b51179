package passes

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/ssa"
	"github.com/you-not-fish/kestrel/internal/types"
)

// FieldLowering produces the value of field i of a structure being
// assembled from source.
type FieldLowering func(ctx *RewriterContext, source *ssa.Value, i int) *ssa.Value

// FieldVisitor receives field i of a disassembled structure.
type FieldVisitor func(ctx *RewriterContext, field *ssa.Value, i int)

// LeafLowering lowers a non-structure value. shadow is the value threaded
// alongside v, such as the address v is stored to, and may be nil.
type LeafLowering func(ctx *RewriterContext, v, shadow *ssa.Value) *ssa.Value

// AssembleStructure builds a structure of type st whose fields are
// produced by lower, in ascending field order. A single Structure value
// is inserted once every field exists. When the lowered field types
// differ from the declared ones, the result has the matching structure
// type.
func AssembleStructure(ctx *RewriterContext, st *types.Struct, source *ssa.Value, lower FieldLowering) *ssa.Value {
	n := st.NumFields()
	fields := make([]*ssa.Value, n)
	fieldTypes := make([]types.Type, n)
	changed := false
	for i := 0; i < n; i++ {
		fields[i] = lower(ctx, source, i)
		fieldTypes[i] = fields[i].Type
		if !types.Identical(fieldTypes[i], st.Field(i).Type()) {
			changed = true
		}
	}
	var T types.Type = st
	if changed {
		T = ctx.Types().StructLike(st, fieldTypes)
	}
	v := ctx.Insert(ssa.OpStructure, T, fields...)
	ctx.MarkConverted(v)
	return v
}

// DisassembleStructure extracts every field of v, which has type st, and
// passes each to visit. The extracted values are marked converted.
func DisassembleStructure(ctx *RewriterContext, st *types.Struct, v *ssa.Value, visit FieldVisitor) {
	for i := 0; i < st.NumFields(); i++ {
		field := ctx.Insert(ssa.OpGetField, st.Field(i).Type(), v)
		field.AuxInt = int64(i)
		ctx.MarkConverted(field)
		visit(ctx, field, i)
	}
}

// LowerValue lowers v through lower. Structures are taken apart, each field
// lowered recursively and the results reassembled. A non-nil shadow must be
// a pointer to v's type; it is narrowed to the field address on the way
// down.
func LowerValue(ctx *RewriterContext, v, shadow *ssa.Value, lower LeafLowering) *ssa.Value {
	st, ok := v.Type.(*types.Struct)
	if !ok {
		return lower(ctx, v, shadow)
	}

	fields := make([]*ssa.Value, st.NumFields())
	DisassembleStructure(ctx, st, v, func(ctx *RewriterContext, field *ssa.Value, i int) {
		fields[i] = field
	})
	return AssembleStructure(ctx, st, shadow, func(ctx *RewriterContext, shadow *ssa.Value, i int) *ssa.Value {
		var fieldShadow *ssa.Value
		if shadow != nil {
			fieldShadow = FieldAddress(ctx, shadow, i)
		}
		return LowerValue(ctx, fields[i], fieldShadow, lower)
	})
}

// FieldAddress inserts the address of field i of the structure ptr points
// to.
func FieldAddress(ctx *RewriterContext, ptr *ssa.Value, i int) *ssa.Value {
	p, ok := ptr.Type.(*types.Pointer)
	if !ok {
		panic(fmt.Sprintf("passes.FieldAddress: %s is not a pointer", ptr.LongString()))
	}
	st, ok := p.Elem().(*types.Struct)
	if !ok {
		panic(fmt.Sprintf("passes.FieldAddress: %s does not point to a structure", ptr.LongString()))
	}
	T := ctx.Types().Pointer(st.Field(i).Type(), p.AddressSpace())
	addr := ctx.Insert(ssa.OpFieldAddress, T, ptr)
	addr.AuxInt = int64(i)
	ctx.MarkConverted(addr)
	return addr
}
