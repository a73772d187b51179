package types

import "sync"

// Context interns composite types so that structurally identical types
// share one instance. A Context is safe for concurrent use: lookups take
// the read lock and only a miss escalates to the write lock.
type Context struct {
	mu       sync.RWMutex
	pointers map[derivedKey]*Pointer
	views    map[derivedKey]*View
	structs  map[string]*Struct
}

type derivedKey struct {
	elem  Type
	space AddressSpace
}

// NewContext creates an empty type context.
func NewContext() *Context {
	return &Context{
		pointers: make(map[derivedKey]*Pointer),
		views:    make(map[derivedKey]*View),
		structs:  make(map[string]*Struct),
	}
}

// Pointer returns the canonical pointer type to elem in space.
func (c *Context) Pointer(elem Type, space AddressSpace) *Pointer {
	key := derivedKey{elem, space}

	c.mu.RLock()
	p, ok := c.pointers[key]
	c.mu.RUnlock()
	if ok {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pointers[key]; ok {
		return p
	}
	p = NewPointer(elem, space)
	c.pointers[key] = p
	return p
}

// View returns the canonical view type over elem in space.
func (c *Context) View(elem Type, space AddressSpace) *View {
	key := derivedKey{elem, space}

	c.mu.RLock()
	v, ok := c.views[key]
	c.mu.RUnlock()
	if ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.views[key]; ok {
		return v
	}
	v = NewView(elem, space)
	c.views[key] = v
	return v
}

// Struct returns the canonical structure type with the given fields and
// options. Field types are expected to be canonical already.
func (c *Context) Struct(fields []*Field, opts ...StructOption) *Struct {
	candidate := NewStruct(fields, opts...)
	key := candidate.String()

	c.mu.RLock()
	s, ok := c.structs[key]
	c.mu.RUnlock()
	if ok {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.structs[key]; ok {
		return s
	}
	c.structs[key] = candidate
	return candidate
}

// ViewStruct returns the {ptr, length} structure a view lowers to.
func (c *Context) ViewStruct(v *View) *Struct {
	return c.Struct([]*Field{
		NewField("ptr", c.Pointer(v.elem, v.space)),
		NewField("length", Typ[Int32]),
	})
}

// Lower returns T with every view replaced by its lowered structure.
func (c *Context) Lower(T Type) Type {
	switch t := T.(type) {
	case *View:
		return c.ViewStruct(c.View(c.Lower(t.elem), t.space))
	case *Pointer:
		if ContainsView(t.elem) {
			return c.Pointer(c.Lower(t.elem), t.space)
		}
	case *Struct:
		if !ContainsView(t) {
			return t
		}
		fieldTypes := make([]Type, len(t.fields))
		for i, f := range t.fields {
			fieldTypes[i] = c.Lower(f.typ)
		}
		return c.StructLike(t, fieldTypes)
	}
	return T
}

// StructLike returns the canonical structure with the field names, explicit
// offsets, size and packing of st and the given field types.
func (c *Context) StructLike(st *Struct, fieldTypes []Type) *Struct {
	fields := make([]*Field, len(st.fields))
	for i, f := range st.fields {
		fields[i] = &Field{name: f.name, typ: fieldTypes[i], offset: f.offset}
	}
	var opts []StructOption
	if st.size != 0 {
		opts = append(opts, WithSize(st.size))
	}
	if st.pack != 0 {
		opts = append(opts, WithPack(st.pack))
	}
	return c.Struct(fields, opts...)
}
