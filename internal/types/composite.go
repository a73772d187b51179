package types

import (
	"fmt"
	"strings"
)

// AddressSpace identifies the memory space a pointer or view refers to.
type AddressSpace int

const (
	Generic AddressSpace = iota
	Global
	Shared
	Local
)

var addressSpaceNames = [...]string{
	Generic: "generic",
	Global:  "global",
	Shared:  "shared",
	Local:   "local",
}

// String returns the name of the address space.
func (s AddressSpace) String() string {
	if s >= 0 && int(s) < len(addressSpaceNames) {
		return addressSpaceNames[s]
	}
	return fmt.Sprintf("addrspace(%d)", int(s))
}

// Pointer represents a pointer type *T in an address space.
type Pointer struct {
	typ
	elem  Type
	space AddressSpace
}

// NewPointer creates a new pointer type. Prefer Context.Pointer, which
// returns a canonical instance.
func NewPointer(elem Type, space AddressSpace) *Pointer {
	return &Pointer{elem: elem, space: space}
}

// Elem returns the pointee type.
func (p *Pointer) Elem() Type {
	return p.elem
}

// AddressSpace returns the address space of the pointer.
func (p *Pointer) AddressSpace() AddressSpace {
	return p.space
}

// String implements Type.
func (p *Pointer) String() string {
	if p.space == Generic {
		return "*" + p.elem.String()
	}
	return fmt.Sprintf("*%s %s", p.space, p.elem)
}

// View represents a bounded view of elements: a pointer plus a length.
// Views are lowered into {pointer, i32} structures before code generation.
type View struct {
	typ
	elem  Type
	space AddressSpace
}

// NewView creates a new view type. Prefer Context.View.
func NewView(elem Type, space AddressSpace) *View {
	return &View{elem: elem, space: space}
}

// Elem returns the element type.
func (v *View) Elem() Type {
	return v.elem
}

// AddressSpace returns the address space of the viewed memory.
func (v *View) AddressSpace() AddressSpace {
	return v.space
}

// String implements Type.
func (v *View) String() string {
	if v.space == Generic {
		return "view<" + v.elem.String() + ">"
	}
	return fmt.Sprintf("view<%s %s>", v.space, v.elem)
}

// NoOffset marks a field without an explicit byte offset.
const NoOffset int64 = -1

// Field is a structure member.
type Field struct {
	name   string
	typ    Type
	offset int64
}

// NewField creates a field laid out automatically.
func NewField(name string, typ Type) *Field {
	return &Field{name: name, typ: typ, offset: NoOffset}
}

// NewFieldAt creates a field carrying an explicit byte offset annotation.
func NewFieldAt(name string, typ Type, offset int64) *Field {
	return &Field{name: name, typ: typ, offset: offset}
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Type returns the field type.
func (f *Field) Type() Type { return f.typ }

// Offset returns the explicit offset, or NoOffset.
func (f *Field) Offset() int64 { return f.offset }

// HasExplicitOffset reports whether the field carries an offset annotation.
func (f *Field) HasExplicitOffset() bool { return f.offset != NoOffset }

// Struct represents a structure type.
type Struct struct {
	typ
	fields []*Field
	size   int64 // explicit managed size; 0 = automatic
	pack   int64 // explicit packing; 0 = default
}

// StructOption configures a Struct at construction.
type StructOption func(*Struct)

// WithSize requests an explicit managed size in bytes.
func WithSize(size int64) StructOption {
	return func(s *Struct) { s.size = size }
}

// WithPack requests non-default packing.
func WithPack(pack int64) StructOption {
	return func(s *Struct) { s.pack = pack }
}

// NewStruct creates a new struct type with the given fields. Prefer
// Context.Struct.
func NewStruct(fields []*Field, opts ...StructOption) *Struct {
	s := &Struct{fields: fields}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NumFields returns the number of fields.
func (s *Struct) NumFields() int {
	return len(s.fields)
}

// Field returns the field at the given index.
func (s *Struct) Field(i int) *Field {
	return s.fields[i]
}

// Fields returns all fields.
func (s *Struct) Fields() []*Field {
	return s.fields
}

// ExplicitSize returns the requested managed size, or 0.
func (s *Struct) ExplicitSize() int64 {
	return s.size
}

// Pack returns the requested packing, or 0 for the default.
func (s *Struct) Pack() int64 {
	return s.pack
}

// String implements Type.
func (s *Struct) String() string {
	var buf strings.Builder
	buf.WriteString("struct{")
	for i, f := range s.fields {
		if i > 0 {
			buf.WriteString("; ")
		}
		if f.name != "" {
			buf.WriteString(f.name)
			buf.WriteString(" ")
		}
		buf.WriteString(f.typ.String())
		if f.offset != NoOffset {
			fmt.Fprintf(&buf, " @%d", f.offset)
		}
	}
	buf.WriteString("}")
	if s.size != 0 {
		fmt.Fprintf(&buf, " size(%d)", s.size)
	}
	if s.pack != 0 {
		fmt.Fprintf(&buf, " pack(%d)", s.pack)
	}
	return buf.String()
}
