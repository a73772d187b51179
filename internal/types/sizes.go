package types

import "sync"

// Layout is the managed layout of a structure.
type Layout struct {
	Size    int64
	Align   int64
	Offsets []int64
}

// Sizes computes managed (source-language) sizes and alignments. Managed
// layout is platform independent except for the pointer size, which the
// owning ABI supplies. Struct layouts are cached; Sizes is safe for
// concurrent use.
type Sizes struct {
	ptrSize int64

	mu      sync.RWMutex
	layouts map[*Struct]*Layout
}

// NewSizes creates a Sizes for a platform with the given pointer size.
func NewSizes(ptrSize int64) *Sizes {
	return &Sizes{ptrSize: ptrSize, layouts: make(map[*Struct]*Layout)}
}

// PtrSize returns the pointer size in bytes.
func (s *Sizes) PtrSize() int64 {
	return s.ptrSize
}

// Sizeof returns the managed size of type T in bytes.
func (s *Sizes) Sizeof(T Type) int64 {
	switch t := T.(type) {
	case *Basic:
		return basicSize(t.kind)
	case *Pointer:
		return s.ptrSize
	case *View:
		return align(s.ptrSize+4, s.ptrSize)
	case *Struct:
		return s.Layout(t).Size
	}
	return 0
}

// Alignof returns the managed alignment of type T in bytes.
func (s *Sizes) Alignof(T Type) int64 {
	switch t := T.(type) {
	case *Basic:
		if a := ManagedAlignment(t.kind); a != 0 {
			return a
		}
		return 1
	case *Pointer, *View:
		return s.ptrSize
	case *Struct:
		return s.Layout(t).Align
	}
	return 1
}

// FieldAlign returns the managed alignment of field i of st, taking the
// struct's packing into account.
func (s *Sizes) FieldAlign(st *Struct, i int) int64 {
	a := s.Alignof(st.fields[i].typ)
	if st.pack != 0 && st.pack < a {
		a = st.pack
	}
	return a
}

// Offsetof returns the offset of field i in struct type T.
func (s *Sizes) Offsetof(T *Struct, i int) int64 {
	return s.Layout(T).Offsets[i]
}

// Layout returns the managed layout of st, computing it on first use.
func (s *Sizes) Layout(st *Struct) *Layout {
	s.mu.RLock()
	l, ok := s.layouts[st]
	s.mu.RUnlock()
	if ok {
		return l
	}

	l = s.computeLayout(st)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.layouts[st]; ok {
		return prev
	}
	s.layouts[st] = l
	return l
}

// computeLayout lays fields out sequentially, honoring explicit offsets,
// packing and an explicit size. An empty structure occupies one byte.
func (s *Sizes) computeLayout(st *Struct) *Layout {
	var offset, end int64
	var maxAlign int64 = 1
	offsets := make([]int64, len(st.fields))

	for i, f := range st.fields {
		fieldSize := s.Sizeof(f.typ)
		fieldAlign := s.FieldAlign(st, i)

		if f.offset != NoOffset {
			offset = f.offset
		} else {
			offset = align(offset, fieldAlign)
		}
		offsets[i] = offset
		offset += fieldSize
		if offset > end {
			end = offset
		}

		if fieldAlign > maxAlign {
			maxAlign = fieldAlign
		}
	}

	size := align(end, maxAlign)
	if st.size > size {
		size = st.size
	}
	if size == 0 {
		size = 1
	}
	return &Layout{Size: size, Align: maxAlign, Offsets: offsets}
}

// basicSize returns the size of a basic type in bytes.
func basicSize(kind BasicKind) int64 {
	switch kind {
	case Int1, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	default:
		// Void and Memory occupy no storage.
		return 0
	}
}

// Align returns x rounded up to a multiple of a.
func Align(x, a int64) int64 {
	return align(x, a)
}

// align returns x rounded up to a multiple of a.
func align(x, a int64) int64 {
	if a <= 1 {
		return x
	}
	return (x + a - 1) / a * a
}
