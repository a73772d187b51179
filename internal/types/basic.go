package types

// BasicKind describes the kind of basic type.
type BasicKind int

const (
	Invalid BasicKind = iota // invalid type

	Void
	Int1
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64

	// Memory is the type of the abstract memory token threaded through
	// loads and stores.
	Memory
)

// BasicInfo describes properties of a basic type.
type BasicInfo int

const (
	IsBoolean BasicInfo = 1 << iota
	IsInteger
	IsUnsigned
	IsFloat
	IsNumeric = IsInteger | IsFloat
)

// Basic represents a scalar type.
type Basic struct {
	typ
	kind BasicKind
	info BasicInfo
	bits int
	name string
}

// Kind returns the kind of the basic type.
func (b *Basic) Kind() BasicKind {
	return b.kind
}

// Info returns information about the basic type.
func (b *Basic) Info() BasicInfo {
	return b.info
}

// Bits returns the width of the type in bits (0 for Void and Memory).
func (b *Basic) Bits() int {
	return b.bits
}

// Name returns the name of the basic type.
func (b *Basic) Name() string {
	return b.name
}

// String implements Type.
func (b *Basic) String() string {
	return b.name
}

// Typ holds the predeclared basic types, indexed by BasicKind.
// Typ[Invalid] is nil, representing an invalid type.
var Typ = []*Basic{
	Invalid: nil,
	Void:    {kind: Void, name: "void"},
	Int1:    {kind: Int1, info: IsBoolean, bits: 1, name: "i1"},
	Int8:    {kind: Int8, info: IsInteger, bits: 8, name: "i8"},
	Int16:   {kind: Int16, info: IsInteger, bits: 16, name: "i16"},
	Int32:   {kind: Int32, info: IsInteger, bits: 32, name: "i32"},
	Int64:   {kind: Int64, info: IsInteger, bits: 64, name: "i64"},
	UInt8:   {kind: UInt8, info: IsInteger | IsUnsigned, bits: 8, name: "u8"},
	UInt16:  {kind: UInt16, info: IsInteger | IsUnsigned, bits: 16, name: "u16"},
	UInt32:  {kind: UInt32, info: IsInteger | IsUnsigned, bits: 32, name: "u32"},
	UInt64:  {kind: UInt64, info: IsInteger | IsUnsigned, bits: 64, name: "u64"},
	Float32: {kind: Float32, info: IsFloat, bits: 32, name: "f32"},
	Float64: {kind: Float64, info: IsFloat, bits: 64, name: "f64"},
	Memory:  {kind: Memory, name: "mem"},
}

// Primitives lists the numeric kinds whose alignment is fixed by the
// managed layout table.
var Primitives = []BasicKind{
	Int8, Int16, Int32, Int64,
	UInt8, UInt16, UInt32, UInt64,
	Float32, Float64,
}

// ManagedAlignment returns the platform-independent alignment of a
// primitive kind. It returns 0 for kinds outside the table.
func ManagedAlignment(kind BasicKind) int64 {
	switch kind {
	case Int1, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	}
	return 0
}

// IntType returns the signed or unsigned integer type with the given width.
func IntType(bits int, unsigned bool) *Basic {
	switch bits {
	case 1:
		return Typ[Int1]
	case 8:
		if unsigned {
			return Typ[UInt8]
		}
		return Typ[Int8]
	case 16:
		if unsigned {
			return Typ[UInt16]
		}
		return Typ[Int16]
	case 32:
		if unsigned {
			return Typ[UInt32]
		}
		return Typ[Int32]
	case 64:
		if unsigned {
			return Typ[UInt64]
		}
		return Typ[Int64]
	}
	return nil
}
