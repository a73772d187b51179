package types

import (
	"sync"
	"testing"
)

func TestSizeof(t *testing.T) {
	sizes := NewSizes(8)

	tests := []struct {
		typ  Type
		want int64
	}{
		{Typ[Int1], 1},
		{Typ[Int8], 1},
		{Typ[UInt16], 2},
		{Typ[Int32], 4},
		{Typ[Float32], 4},
		{Typ[Int64], 8},
		{Typ[Float64], 8},
		{Typ[Void], 0},
		{Typ[Memory], 0},
		{NewPointer(Typ[Int8], Generic), 8},
		{NewView(Typ[Float32], Global), 16},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			got := sizes.Sizeof(tt.typ)
			if got != tt.want {
				t.Errorf("Sizeof(%s) = %d, want %d", tt.typ, got, tt.want)
			}
		})
	}
}

func TestAlignof(t *testing.T) {
	sizes := NewSizes(4)

	tests := []struct {
		typ  Type
		want int64
	}{
		{Typ[Int1], 1},
		{Typ[UInt8], 1},
		{Typ[Int16], 2},
		{Typ[UInt32], 4},
		{Typ[Int64], 8},
		{Typ[Float64], 8},
		{Typ[Void], 1},
		{NewPointer(Typ[Int64], Shared), 4},
		{NewView(Typ[Int64], Generic), 4},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			got := sizes.Alignof(tt.typ)
			if got != tt.want {
				t.Errorf("Alignof(%s) = %d, want %d", tt.typ, got, tt.want)
			}
		})
	}
}

func TestStructLayout(t *testing.T) {
	inner := NewStruct([]*Field{
		NewField("b", Typ[Int16]),
		NewField("c", Typ[Int8]),
	})

	tests := []struct {
		name    string
		st      *Struct
		size    int64
		align   int64
		offsets []int64
	}{
		{
			name:    "padded",
			st:      NewStruct([]*Field{NewField("a", Typ[Int8]), NewField("b", Typ[Int32])}),
			size:    8,
			align:   4,
			offsets: []int64{0, 4},
		},
		{
			name:    "tail padding",
			st:      NewStruct([]*Field{NewField("a", Typ[Int64]), NewField("b", Typ[Int8])}),
			size:    16,
			align:   8,
			offsets: []int64{0, 8},
		},
		{
			name:    "packed",
			st:      NewStruct([]*Field{NewField("a", Typ[Int8]), NewField("b", Typ[Int64])}, WithPack(4)),
			size:    12,
			align:   4,
			offsets: []int64{0, 4},
		},
		{
			name:    "explicit size",
			st:      NewStruct([]*Field{NewField("a", Typ[Int32])}, WithSize(32)),
			size:    32,
			align:   4,
			offsets: []int64{0},
		},
		{
			name:    "explicit offsets",
			st:      NewStruct([]*Field{NewFieldAt("a", Typ[Int32], 0), NewFieldAt("b", Typ[Float32], 0)}),
			size:    4,
			align:   4,
			offsets: []int64{0, 0},
		},
		{
			name:  "empty",
			st:    NewStruct(nil),
			size:  1,
			align: 1,
		},
		{
			name:    "nested",
			st:      NewStruct([]*Field{NewField("a", Typ[Int8]), NewField("in", inner)}),
			size:    6,
			align:   2,
			offsets: []int64{0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sizes := NewSizes(8)
			l := sizes.Layout(tt.st)
			if l.Size != tt.size || l.Align != tt.align {
				t.Errorf("layout of %s = size %d align %d, want size %d align %d",
					tt.st, l.Size, l.Align, tt.size, tt.align)
			}
			for i, want := range tt.offsets {
				if got := sizes.Offsetof(tt.st, i); got != want {
					t.Errorf("Offsetof(%d) = %d, want %d", i, got, want)
				}
			}
			if got := sizes.Sizeof(tt.st); got != tt.size {
				t.Errorf("Sizeof = %d, want %d", got, tt.size)
			}
		})
	}
}

func TestLayoutCached(t *testing.T) {
	sizes := NewSizes(8)
	st := NewStruct([]*Field{NewField("a", Typ[Int32])})

	var wg sync.WaitGroup
	layouts := make([]*Layout, 8)
	for i := range layouts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			layouts[i] = sizes.Layout(st)
		}(i)
	}
	wg.Wait()

	for i, l := range layouts {
		if l != layouts[0] {
			t.Errorf("layout %d is a different instance", i)
		}
	}
}

func TestAlign(t *testing.T) {
	tests := []struct {
		x, a, want int64
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 4, 12},
		{5, 1, 5},
		{5, 0, 5},
	}
	for _, tt := range tests {
		if got := Align(tt.x, tt.a); got != tt.want {
			t.Errorf("Align(%d, %d) = %d, want %d", tt.x, tt.a, got, tt.want)
		}
	}
}
