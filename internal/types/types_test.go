package types

import "testing"

func TestTypeString(t *testing.T) {
	st := NewStruct([]*Field{
		NewField("x", Typ[Int32]),
		NewFieldAt("y", Typ[Float64], 8),
	}, WithSize(24), WithPack(8))

	tests := []struct {
		typ  Type
		want string
	}{
		{Typ[Int1], "i1"},
		{Typ[UInt64], "u64"},
		{Typ[Float32], "f32"},
		{Typ[Memory], "mem"},
		{NewPointer(Typ[Int8], Generic), "*i8"},
		{NewPointer(Typ[Int8], Shared), "*shared i8"},
		{NewView(Typ[Float32], Generic), "view<f32>"},
		{NewView(Typ[Float32], Global), "view<global f32>"},
		{NewStruct(nil), "struct{}"},
		{st, "struct{x i32; y f64 @8} size(24) pack(8)"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestAddressSpaceString(t *testing.T) {
	if got := Local.String(); got != "local" {
		t.Errorf("Local = %q", got)
	}
	if got := AddressSpace(9).String(); got != "addrspace(9)" {
		t.Errorf("AddressSpace(9) = %q", got)
	}
}

func TestIdentical(t *testing.T) {
	i32 := Typ[Int32]
	mk := func(name string, T Type) *Struct {
		return NewStruct([]*Field{NewField(name, T)})
	}

	tests := []struct {
		name string
		x, y Type
		want bool
	}{
		{"same basic", i32, Typ[Int32], true},
		{"signedness", i32, Typ[UInt32], false},
		{"pointers", NewPointer(i32, Global), NewPointer(i32, Global), true},
		{"pointer spaces", NewPointer(i32, Global), NewPointer(i32, Local), false},
		{"views", NewView(i32, Generic), NewView(i32, Generic), true},
		{"view vs pointer", NewView(i32, Generic), NewPointer(i32, Generic), false},
		{"structs", mk("a", i32), mk("a", i32), true},
		{"field names", mk("a", i32), mk("b", i32), false},
		{"field types", mk("a", i32), mk("a", Typ[Int64]), false},
		{"nil", i32, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identical(tt.x, tt.y); got != tt.want {
				t.Errorf("Identical(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	view := NewView(Typ[Int8], Generic)
	withView := NewStruct([]*Field{NewField("v", view)})
	nested := NewStruct([]*Field{NewField("s", withView)})

	tests := []struct {
		name string
		fn   func(Type) bool
		typ  Type
		want bool
	}{
		{"IsIntegerType i1", IsIntegerType, Typ[Int1], true},
		{"IsIntegerType u16", IsIntegerType, Typ[UInt16], true},
		{"IsIntegerType f32", IsIntegerType, Typ[Float32], false},
		{"IsUnsignedInteger u8", IsUnsignedInteger, Typ[UInt8], true},
		{"IsUnsignedInteger i8", IsUnsignedInteger, Typ[Int8], false},
		{"IsFloatType f64", IsFloatType, Typ[Float64], true},
		{"IsPointer", IsPointer, NewPointer(Typ[Int8], Generic), true},
		{"IsView", IsView, view, true},
		{"IsStruct", IsStruct, withView, true},
		{"IsMemory", IsMemory, Typ[Memory], true},
		{"IsMemory void", IsMemory, Typ[Void], false},
		{"ContainsView view", ContainsView, view, true},
		{"ContainsView nested", ContainsView, nested, true},
		{"ContainsView plain", ContainsView, NewStruct([]*Field{NewField("a", Typ[Int8])}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.typ); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBasicValueTypeOf(t *testing.T) {
	tests := []struct {
		typ  Type
		want BasicValueType
	}{
		{Typ[Int1], BasicInt1},
		{Typ[Int8], BasicInt8},
		{Typ[UInt8], BasicInt8},
		{Typ[UInt16], BasicInt16},
		{Typ[Int32], BasicInt32},
		{Typ[UInt64], BasicInt64},
		{Typ[Float32], BasicFloat32},
		{Typ[Float64], BasicFloat64},
		{Typ[Void], BasicNone},
		{NewPointer(Typ[Int32], Generic), BasicNone},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			if got := BasicValueTypeOf(tt.typ); got != tt.want {
				t.Errorf("BasicValueTypeOf(%s) = %s, want %s", tt.typ, got, tt.want)
			}
		})
	}

	if !(BasicInt1 < BasicInt32 && BasicInt64 < BasicFloat32 && BasicFloat32 < BasicFloat64) {
		t.Error("categories are not ordered by width")
	}
	if !BasicInt1.IsInt() || BasicFloat32.IsInt() || !BasicFloat64.IsFloat() || BasicNone.IsFloat() {
		t.Error("IsInt/IsFloat misclassify")
	}
}

func TestIntType(t *testing.T) {
	tests := []struct {
		bits     int
		unsigned bool
		want     *Basic
	}{
		{1, false, Typ[Int1]},
		{8, true, Typ[UInt8]},
		{16, false, Typ[Int16]},
		{32, true, Typ[UInt32]},
		{64, false, Typ[Int64]},
	}
	for _, tt := range tests {
		if got := IntType(tt.bits, tt.unsigned); got != tt.want {
			t.Errorf("IntType(%d, %v) = %v, want %v", tt.bits, tt.unsigned, got, tt.want)
		}
	}
}
