package types

// Identical reports whether x and y are identical types.
func Identical(x, y Type) bool {
	if x == y {
		return true
	}
	if x == nil || y == nil {
		return false
	}
	return identical(x, y)
}

func identical(x, y Type) bool {
	switch x := x.(type) {
	case *Basic:
		if y, ok := y.(*Basic); ok {
			return x.kind == y.kind
		}
	case *Pointer:
		if y, ok := y.(*Pointer); ok {
			return x.space == y.space && Identical(x.elem, y.elem)
		}
	case *View:
		if y, ok := y.(*View); ok {
			return x.space == y.space && Identical(x.elem, y.elem)
		}
	case *Struct:
		if y, ok := y.(*Struct); ok {
			return identicalStructs(x, y)
		}
	}
	return false
}

func identicalStructs(x, y *Struct) bool {
	if len(x.fields) != len(y.fields) || x.size != y.size || x.pack != y.pack {
		return false
	}
	for i := range x.fields {
		fx, fy := x.fields[i], y.fields[i]
		if fx.name != fy.name || fx.offset != fy.offset {
			return false
		}
		if !Identical(fx.typ, fy.typ) {
			return false
		}
	}
	return true
}

// IsIntegerType reports whether T is an integer type (including i1).
func IsIntegerType(T Type) bool {
	b, ok := T.(*Basic)
	return ok && b.info&(IsInteger|IsBoolean) != 0
}

// IsUnsignedInteger reports whether T is an unsigned integer type.
func IsUnsignedInteger(T Type) bool {
	b, ok := T.(*Basic)
	return ok && b.info&IsUnsigned != 0
}

// IsFloatType reports whether T is a floating-point type.
func IsFloatType(T Type) bool {
	b, ok := T.(*Basic)
	return ok && b.info&IsFloat != 0
}

// IsPointer reports whether T is a pointer type.
func IsPointer(T Type) bool {
	_, ok := T.(*Pointer)
	return ok
}

// IsView reports whether T is a view type.
func IsView(T Type) bool {
	_, ok := T.(*View)
	return ok
}

// IsStruct reports whether T is a structure type.
func IsStruct(T Type) bool {
	_, ok := T.(*Struct)
	return ok
}

// IsMemory reports whether T is the memory token type.
func IsMemory(T Type) bool {
	b, ok := T.(*Basic)
	return ok && b.kind == Memory
}

// ContainsView reports whether T is a view or a structure that
// (transitively) contains one.
func ContainsView(T Type) bool {
	switch t := T.(type) {
	case *View:
		return true
	case *Struct:
		for _, f := range t.fields {
			if ContainsView(f.typ) {
				return true
			}
		}
	}
	return false
}
