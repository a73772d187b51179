package abi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AlignSpec holds an ABI and a preferred alignment in bytes.
type AlignSpec struct {
	ABI  int64
	Pref int64
}

// PointerSpec describes pointers of one address space.
type PointerSpec struct {
	Size  int64
	Align AlignSpec
}

// DataLayout is a parsed LLVM-style data layout string. It answers the
// native size and alignment questions a target's code generator would.
type DataLayout struct {
	Source         string
	BigEndian      bool
	Mangling       string
	StackAlign     int64
	NativeInts     []int
	AggregateAlign AlignSpec

	ints     map[int]AlignSpec
	floats   map[int]AlignSpec
	vectors  map[int]AlignSpec
	pointers map[int]PointerSpec
}

// newDefaultDataLayout returns the layout implied by an empty string.
func newDefaultDataLayout() *DataLayout {
	return &DataLayout{
		AggregateAlign: AlignSpec{ABI: 0, Pref: 8},
		ints: map[int]AlignSpec{
			1:  {1, 1},
			8:  {1, 1},
			16: {2, 2},
			32: {4, 4},
			64: {4, 8},
		},
		floats: map[int]AlignSpec{
			16:  {2, 2},
			32:  {4, 4},
			64:  {8, 8},
			128: {16, 16},
		},
		vectors: map[int]AlignSpec{
			64:  {8, 8},
			128: {16, 16},
		},
		pointers: map[int]PointerSpec{
			0: {Size: 8, Align: AlignSpec{8, 8}},
		},
	}
}

// ParseDataLayout parses a data layout string such as
// "e-p:64:64:64-i64:64:64-f64:64:64-n16:32:64".
func ParseDataLayout(s string) (*DataLayout, error) {
	dl := newDefaultDataLayout()
	dl.Source = s
	if s == "" {
		return dl, nil
	}

	for _, spec := range strings.Split(s, "-") {
		if spec == "" {
			return nil, fmt.Errorf("datalayout %q: empty specification", s)
		}
		if err := dl.parseSpec(spec); err != nil {
			return nil, fmt.Errorf("datalayout %q: %w", s, err)
		}
	}
	return dl, nil
}

func (dl *DataLayout) parseSpec(spec string) error {
	switch spec[0] {
	case 'e':
		dl.BigEndian = false
		return nil
	case 'E':
		dl.BigEndian = true
		return nil
	case 'm':
		if !strings.HasPrefix(spec, "m:") || len(spec) != 3 {
			return fmt.Errorf("malformed mangling %q", spec)
		}
		dl.Mangling = spec[2:]
		return nil
	case 'S':
		bits, err := parseBits(spec[1:])
		if err != nil {
			return fmt.Errorf("stack alignment %q: %w", spec, err)
		}
		dl.StackAlign = bits / 8
		return nil
	case 'n':
		if strings.HasPrefix(spec, "ni:") {
			// Non-integral address spaces do not affect layout.
			return nil
		}
		dl.NativeInts = dl.NativeInts[:0]
		for _, part := range strings.Split(spec[1:], ":") {
			bits, err := parseBits(part)
			if err != nil {
				return fmt.Errorf("native integer %q: %w", spec, err)
			}
			dl.NativeInts = append(dl.NativeInts, int(bits))
		}
		return nil
	case 'F', 'A', 'P', 'G':
		// Function pointer alignment and default address spaces do not
		// influence data layout.
		return nil
	case 'p':
		return dl.parsePointer(spec)
	case 'i', 'f', 'v':
		return dl.parseScalar(spec)
	case 'a':
		parts := strings.Split(spec, ":")
		if parts[0] != "a" && parts[0] != "a0" {
			return fmt.Errorf("malformed aggregate spec %q", spec)
		}
		a, err := parseAlign(parts[1:], true)
		if err != nil {
			return fmt.Errorf("aggregate %q: %w", spec, err)
		}
		dl.AggregateAlign = a
		return nil
	}
	return fmt.Errorf("unknown specification %q", spec)
}

func (dl *DataLayout) parsePointer(spec string) error {
	parts := strings.Split(spec, ":")
	space := 0
	if len(parts[0]) > 1 {
		n, err := strconv.Atoi(parts[0][1:])
		if err != nil {
			return fmt.Errorf("pointer address space %q: %w", spec, err)
		}
		space = n
	}
	if len(parts) < 3 {
		return fmt.Errorf("pointer %q: missing size or alignment", spec)
	}
	size, err := parseBits(parts[1])
	if err != nil {
		return fmt.Errorf("pointer size %q: %w", spec, err)
	}
	a, err := parseAlign(parts[2:], false)
	if err != nil {
		return fmt.Errorf("pointer %q: %w", spec, err)
	}
	dl.pointers[space] = PointerSpec{Size: size / 8, Align: a}
	return nil
}

func (dl *DataLayout) parseScalar(spec string) error {
	parts := strings.Split(spec, ":")
	width, err := strconv.Atoi(parts[0][1:])
	if err != nil || width <= 0 {
		return fmt.Errorf("malformed width in %q", spec)
	}
	if len(parts) < 2 {
		return fmt.Errorf("%q: missing alignment", spec)
	}
	a, err := parseAlign(parts[1:], false)
	if err != nil {
		return fmt.Errorf("%q: %w", spec, err)
	}
	switch spec[0] {
	case 'i':
		if width == 8 && a.ABI != 1 {
			return fmt.Errorf("%q: i8 must be byte aligned", spec)
		}
		dl.ints[width] = a
	case 'f':
		dl.floats[width] = a
	case 'v':
		dl.vectors[width] = a
	}
	return nil
}

// parseAlign parses "abi[:pref]" given in bits.
func parseAlign(parts []string, allowZero bool) (AlignSpec, error) {
	if len(parts) == 0 || parts[0] == "" {
		return AlignSpec{}, fmt.Errorf("missing alignment")
	}
	abiBits, err := parseBits(parts[0])
	if err != nil {
		return AlignSpec{}, err
	}
	if abiBits == 0 && !allowZero {
		return AlignSpec{}, fmt.Errorf("ABI alignment must be non-zero")
	}
	if abiBits%8 != 0 {
		return AlignSpec{}, fmt.Errorf("alignment %d is not a whole number of bytes", abiBits)
	}
	a := AlignSpec{ABI: abiBits / 8, Pref: abiBits / 8}
	if len(parts) > 1 && parts[1] != "" {
		prefBits, err := parseBits(parts[1])
		if err != nil {
			return AlignSpec{}, err
		}
		if prefBits < abiBits {
			return AlignSpec{}, fmt.Errorf("preferred alignment %d below ABI alignment %d", prefBits, abiBits)
		}
		a.Pref = prefBits / 8
	}
	return a, nil
}

func parseBits(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size %d", n)
	}
	return n, nil
}

// IntAlign returns the ABI alignment of an integer of the given width.
// Widths without an exact entry use the next larger specified width, or
// the largest one if none is larger.
func (dl *DataLayout) IntAlign(bits int) int64 {
	return lookupAlign(dl.ints, bits).ABI
}

// FloatAlign returns the ABI alignment of a float of the given width.
func (dl *DataLayout) FloatAlign(bits int) int64 {
	if a, ok := dl.floats[bits]; ok {
		return a.ABI
	}
	return int64(bits / 8)
}

// PointerSize returns the pointer size of an address space in bytes.
func (dl *DataLayout) PointerSize(space int) int64 {
	return dl.pointer(space).Size
}

// PointerAlign returns the pointer ABI alignment of an address space.
func (dl *DataLayout) PointerAlign(space int) int64 {
	return dl.pointer(space).Align.ABI
}

// pointer returns the spec for an address space, falling back to the
// default address space as LLVM does.
func (dl *DataLayout) pointer(space int) PointerSpec {
	if p, ok := dl.pointers[space]; ok {
		return p
	}
	return dl.pointers[0]
}

func lookupAlign(table map[int]AlignSpec, bits int) AlignSpec {
	if a, ok := table[bits]; ok {
		return a
	}
	widths := make([]int, 0, len(table))
	for w := range table {
		widths = append(widths, w)
	}
	sort.Ints(widths)
	for _, w := range widths {
		if w > bits {
			return table[w]
		}
	}
	return table[widths[len(widths)-1]]
}
