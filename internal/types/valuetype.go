package types

// BasicValueType is the machine-level numeric category of a value.
// The constants are ordered by width so that the "larger" category of two
// operands compares greater.
type BasicValueType uint8

const (
	BasicNone BasicValueType = iota
	BasicInt1
	BasicInt8
	BasicInt16
	BasicInt32
	BasicInt64
	BasicFloat32
	BasicFloat64
)

var basicValueTypeNames = [...]string{
	BasicNone:    "none",
	BasicInt1:    "int1",
	BasicInt8:    "int8",
	BasicInt16:   "int16",
	BasicInt32:   "int32",
	BasicInt64:   "int64",
	BasicFloat32: "float32",
	BasicFloat64: "float64",
}

// String returns the name of the category.
func (t BasicValueType) String() string {
	if int(t) < len(basicValueTypeNames) {
		return basicValueTypeNames[t]
	}
	return "unknown"
}

// IsInt reports whether t is an integer category (including Int1).
func (t BasicValueType) IsInt() bool {
	return t >= BasicInt1 && t <= BasicInt64
}

// IsFloat reports whether t is a floating-point category.
func (t BasicValueType) IsFloat() bool {
	return t == BasicFloat32 || t == BasicFloat64
}

// BasicValueTypeOf returns the category of T. Pointers, views, structures
// and the non-numeric basic kinds report BasicNone.
func BasicValueTypeOf(T Type) BasicValueType {
	b, ok := T.(*Basic)
	if !ok {
		return BasicNone
	}
	switch b.kind {
	case Int1:
		return BasicInt1
	case Int8, UInt8:
		return BasicInt8
	case Int16, UInt16:
		return BasicInt16
	case Int32, UInt32:
		return BasicInt32
	case Int64, UInt64:
		return BasicInt64
	case Float32:
		return BasicFloat32
	case Float64:
		return BasicFloat64
	}
	return BasicNone
}
