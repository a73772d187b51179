package abi

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/types"
)

// Target triples and data layouts of the supported backends.
const (
	TriplePTX64 = "nvptx64-nvidia-cuda"
	TriplePTX32 = "nvptx-nvidia-cuda"
	TripleX8664 = "x86_64-unknown-linux-gnu"
	TripleARM64 = "arm64-apple-macosx26.0.0"
	TripleI386  = "i386-unknown-linux-gnu"

	DataLayoutPTX64 = "e-p:64:64:64-i1:8:8-i8:8:8-i16:16:16-i32:32:32-i64:64:64-f32:32:32-f64:64:64-v16:16:16-v32:32:32-v64:64:64-v128:128:128-n16:32:64"
	DataLayoutPTX32 = "e-p:32:32:32-i1:8:8-i8:8:8-i16:16:16-i32:32:32-i64:64:64-f32:32:32-f64:64:64-v16:16:16-v32:32:32-v64:64:64-v128:128:128-n16:32:64"
	DataLayoutX8664 = "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128"
	DataLayoutARM64 = "e-m:o-i64:64-i128:128-n32:64-S128-Fn32"
	DataLayoutI386  = "e-m:e-p:32:32-p270:32:32-p271:32:32-p272:64:64-i128:128-f80:32-n8:16:32-S128"
)

// Element is one member of a native structure layout.
type Element struct {
	// Type is the element type.
	Type types.Type

	// Padding marks synthetic bytes inserted to match the managed size.
	Padding bool
}

// PaddingByte returns a single synthetic padding byte.
func PaddingByte() Element {
	return Element{Type: types.Typ[types.Int8], Padding: true}
}

// Target describes a backend's native layout rules.
type Target interface {
	// Name returns a short target name.
	Name() string

	// Triple returns the target triple.
	Triple() string

	// DataLayout returns the parsed native data layout.
	DataLayout() *DataLayout

	// AddressSpace maps an IR address space to the target's numbering.
	AddressSpace(types.AddressSpace) int

	// PadSmallType extends elems so that the native layout covers the
	// managed size. pad is the number of bytes between the end of the last
	// element and the managed size.
	PadSmallType(st *types.Struct, elems []Element, pad int64) []Element
}

// baseTarget implements Target for CPU backends.
type baseTarget struct {
	name   string
	triple string
	layout *DataLayout
}

func newBaseTarget(name, triple, layout string) baseTarget {
	dl, err := ParseDataLayout(layout)
	if err != nil {
		panic(fmt.Sprintf("abi: built-in target %s: %v", name, err))
	}
	return baseTarget{name: name, triple: triple, layout: dl}
}

func (t *baseTarget) Name() string                        { return t.name }
func (t *baseTarget) Triple() string                      { return t.triple }
func (t *baseTarget) DataLayout() *DataLayout             { return t.layout }
func (t *baseTarget) AddressSpace(types.AddressSpace) int { return 0 }

// PadSmallType appends one padding byte per missing byte.
func (t *baseTarget) PadSmallType(st *types.Struct, elems []Element, pad int64) []Element {
	return appendPadding(elems, pad)
}

func appendPadding(elems []Element, pad int64) []Element {
	for i := int64(0); i < pad; i++ {
		elems = append(elems, PaddingByte())
	}
	return elems
}

// NewX8664 returns the x86-64 CPU target.
func NewX8664() Target {
	t := newBaseTarget("x86-64", TripleX8664, DataLayoutX8664)
	return &t
}

// NewARM64 returns the arm64 CPU target.
func NewARM64() Target {
	t := newBaseTarget("arm64", TripleARM64, DataLayoutARM64)
	return &t
}

// NewI386 returns the 32-bit x86 target. Its data layout aligns i64 to four
// bytes, so constructing an ABI for it fails.
func NewI386() Target {
	t := newBaseTarget("i386", TripleI386, DataLayoutI386)
	return &t
}

// PTXTarget is the NVIDIA PTX backend.
type PTXTarget struct {
	baseTarget

	// StrictEmptyStructPadding limits padding to the single byte an empty
	// structure needs. Any other deficit is left unpadded and reported as
	// a padding mismatch.
	StrictEmptyStructPadding bool
}

// NewPTX64 returns the 64-bit PTX target.
func NewPTX64() *PTXTarget {
	return &PTXTarget{baseTarget: newBaseTarget("ptx64", TriplePTX64, DataLayoutPTX64)}
}

// NewPTX32 returns the 32-bit PTX target.
func NewPTX32() *PTXTarget {
	return &PTXTarget{baseTarget: newBaseTarget("ptx32", TriplePTX32, DataLayoutPTX32)}
}

// AddressSpace maps IR address spaces to NVPTX address space numbers.
func (t *PTXTarget) AddressSpace(space types.AddressSpace) int {
	switch space {
	case types.Global:
		return 1
	case types.Shared:
		return 3
	case types.Local:
		return 5
	}
	return 0
}

// PadSmallType implements Target.
func (t *PTXTarget) PadSmallType(st *types.Struct, elems []Element, pad int64) []Element {
	if t.StrictEmptyStructPadding && (len(elems) != 0 || pad != 1) {
		return elems
	}
	return appendPadding(elems, pad)
}

// LookupTarget returns the built-in target with the given name.
func LookupTarget(name string) (Target, error) {
	switch name {
	case "ptx64", "ptx":
		return NewPTX64(), nil
	case "ptx32":
		return NewPTX32(), nil
	case "x86-64", "x86_64", "amd64":
		return NewX8664(), nil
	case "arm64", "aarch64":
		return NewARM64(), nil
	case "i386", "x86":
		return NewI386(), nil
	}
	return nil, fmt.Errorf("unknown target %q", name)
}

// TargetNames lists the names accepted by LookupTarget.
func TargetNames() []string {
	return []string{"ptx64", "ptx32", "x86-64", "arm64", "i386"}
}
