// Package abi reconciles the managed (source-language) layout of types
// with the native layout a target backend produces. An ABI refuses types
// whose native layout would disagree with the managed one, and pads small
// structures through the target's PadSmallType hook.
package abi

import (
	"fmt"
	"sync"

	"github.com/you-not-fish/kestrel/internal/types"
)

// PackBase is the granularity structure packing must be a multiple of.
const PackBase = 4

// State is the lifecycle state of an ABI.
type State uint8

const (
	Uninitialized State = iota
	Constructed
	Validated
	Disposed
)

var stateNames = [...]string{
	Uninitialized: "uninitialized",
	Constructed:   "constructed",
	Validated:     "validated",
	Disposed:      "disposed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Entry is the cached layout of one type.
type Entry struct {
	Type  types.Type
	Align int64
	Size  int64
}

// ABI computes and caches layouts for one target. Methods are safe for
// concurrent use.
type ABI struct {
	target Target
	dl     *DataLayout
	tc     *types.Context
	sizes  *types.Sizes

	mu       sync.RWMutex
	state    State
	entries  map[types.Type]Entry
	elements map[*types.Struct][]Element
}

// New creates an ABI for target. It fails with a LayoutError when the
// target's native alignment of any primitive differs from the managed
// alignment table.
func New(tc *types.Context, target Target) (*ABI, error) {
	dl := target.DataLayout()
	a := &ABI{
		target:   target,
		dl:       dl,
		tc:       tc,
		sizes:    types.NewSizes(dl.PointerSize(0)),
		entries:  make(map[types.Type]Entry),
		elements: make(map[*types.Struct][]Element),
	}

	for _, kind := range types.Primitives {
		T := types.Typ[kind]
		managed := types.ManagedAlignment(kind)
		native := a.basicAlign(T)
		if native != managed {
			return nil, layoutErrorf(ErrPrimitiveAlignment, T, -1,
				"target %s aligns to %d, managed alignment is %d", target.Name(), native, managed)
		}
		a.entries[T] = Entry{Type: T, Align: managed, Size: a.sizes.Sizeof(T)}
	}
	a.state = Constructed
	return a, nil
}

// State returns the lifecycle state.
func (a *ABI) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Target returns the target this ABI lays out for.
func (a *ABI) Target() Target { return a.target }

// Types returns the type context used to lower views.
func (a *ABI) Types() *types.Context { return a.tc }

// Sizes returns the managed layout calculator.
func (a *ABI) Sizes() *types.Sizes { return a.sizes }

// PointerSize returns the size of a generic pointer in bytes.
func (a *ABI) PointerSize() int64 { return a.sizes.PtrSize() }

// NativeInt returns the integer type matching the pointer width.
func (a *ABI) NativeInt() *types.Basic {
	if a.PointerSize() == 4 {
		return types.Typ[types.Int32]
	}
	return types.Typ[types.Int64]
}

// Layout returns the alignment and size of T. Structures are validated
// against the target on first use.
func (a *ABI) Layout(T types.Type) (Entry, error) {
	a.mu.RLock()
	state := a.state
	e, ok := a.entries[T]
	a.mu.RUnlock()
	if state == Disposed {
		panic("abi.Layout: use after Dispose")
	}
	if ok {
		return e, nil
	}

	switch t := T.(type) {
	case *types.Struct:
		elems, err := a.AlignType(t)
		if err != nil {
			return Entry{}, err
		}
		_, align := a.nativeLayout(elems)
		e = Entry{Type: t, Align: align, Size: a.sizes.Sizeof(t)}
	default:
		align, err := a.nativeAlign(T)
		if err != nil {
			return Entry{}, err
		}
		e = Entry{Type: T, Align: align, Size: a.sizes.Sizeof(T)}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if prev, ok := a.entries[T]; ok {
		return prev, nil
	}
	a.entries[T] = e
	return e, nil
}

// AlignmentOf returns the alignment of T in bytes.
func (a *ABI) AlignmentOf(T types.Type) (int64, error) {
	e, err := a.Layout(T)
	return e.Align, err
}

// SizeOf returns the size of T in bytes.
func (a *ABI) SizeOf(T types.Type) (int64, error) {
	e, err := a.Layout(T)
	return e.Size, err
}

// AlignField appends the native element for field i of st to elems. Fields
// with explicit offsets and fields whose managed alignment differs from
// the native alignment of their type are rejected.
func (a *ABI) AlignField(st *types.Struct, i int, elems []Element) ([]Element, error) {
	f := st.Field(i)
	if f.HasExplicitOffset() {
		return elems, layoutErrorf(ErrExplicitOffset, st, i,
			"explicit offset %d is not supported", f.Offset())
	}
	native, err := a.nativeAlign(f.Type())
	if err != nil {
		return elems, err
	}
	if managed := a.sizes.FieldAlign(st, i); managed != native {
		return elems, layoutErrorf(ErrFieldAlignment, st, i,
			"managed alignment %d, native alignment %d", managed, native)
	}
	return append(elems, Element{Type: f.Type()}), nil
}

// AlignType returns the native element list of st. A native layout
// smaller than the managed size is extended by the target's PadSmallType
// hook. The returned slice is shared and must not be modified.
func (a *ABI) AlignType(st *types.Struct) ([]Element, error) {
	a.mu.RLock()
	state := a.state
	elems, ok := a.elements[st]
	a.mu.RUnlock()
	if state == Disposed {
		panic("abi.AlignType: use after Dispose")
	}
	if ok {
		return elems, nil
	}

	if p := st.Pack(); p != 0 && p%PackBase != 0 {
		return nil, layoutErrorf(ErrPackAlignment, st, -1,
			"packing %d is not a multiple of %d", p, PackBase)
	}

	elems = make([]Element, 0, st.NumFields())
	for i := 0; i < st.NumFields(); i++ {
		var err error
		elems, err = a.AlignField(st, i, elems)
		if err != nil {
			return nil, err
		}
	}

	managed := a.sizes.Sizeof(st)
	native, _ := a.nativeLayout(elems)
	if native > managed {
		return nil, layoutErrorf(ErrNativeSizeExceeded, st, -1,
			"native size %d exceeds managed size %d", native, managed)
	}
	if native < managed {
		elems = a.target.PadSmallType(st, elems, managed-a.nativeEnd(elems))
		if native, _ = a.nativeLayout(elems); native != managed {
			return nil, layoutErrorf(ErrPaddingMismatch, st, -1,
				"padded native size %d, managed size %d", native, managed)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if prev, ok := a.elements[st]; ok {
		return prev, nil
	}
	a.elements[st] = elems
	if a.state == Constructed {
		a.state = Validated
	}
	return elems, nil
}

// Dispose releases the caches. Every later query panics.
func (a *ABI) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
	a.elements = nil
	a.state = Disposed
}

// nativeAlign returns the target's ABI alignment of T.
func (a *ABI) nativeAlign(T types.Type) (int64, error) {
	switch t := T.(type) {
	case *types.Basic:
		return a.basicAlign(t), nil
	case *types.Pointer:
		return a.dl.PointerAlign(a.target.AddressSpace(t.AddressSpace())), nil
	case *types.View:
		return a.nativeAlign(a.tc.ViewStruct(t))
	case *types.Struct:
		elems, err := a.AlignType(t)
		if err != nil {
			return 0, err
		}
		_, align := a.nativeLayout(elems)
		return align, nil
	}
	panic(fmt.Sprintf("abi.nativeAlign: unexpected type %T", T))
}

// nativeSize returns the target's allocation size of T.
func (a *ABI) nativeSize(T types.Type) int64 {
	switch t := T.(type) {
	case *types.Basic:
		return a.sizes.Sizeof(t)
	case *types.Pointer:
		return a.dl.PointerSize(a.target.AddressSpace(t.AddressSpace()))
	case *types.View:
		return a.nativeSize(a.tc.ViewStruct(t))
	case *types.Struct:
		elems, err := a.AlignType(t)
		if err != nil {
			// Only reached after nativeAlign succeeded for t.
			panic(fmt.Sprintf("abi.nativeSize: %v", err))
		}
		size, _ := a.nativeLayout(elems)
		return size
	}
	panic(fmt.Sprintf("abi.nativeSize: unexpected type %T", T))
}

func (a *ABI) basicAlign(t *types.Basic) int64 {
	switch {
	case t.Info()&types.IsFloat != 0:
		return a.dl.FloatAlign(t.Bits())
	case t.Info()&(types.IsInteger|types.IsBoolean) != 0:
		return a.dl.IntAlign(t.Bits())
	}
	return 1
}

// nativeLayout returns the size and alignment of a native structure with
// the given elements.
func (a *ABI) nativeLayout(elems []Element) (size, align int64) {
	align = 1
	for _, e := range elems {
		ea, _ := a.nativeAlign(e.Type)
		if ea > align {
			align = ea
		}
	}
	return types.Align(a.nativeEnd(elems), align), align
}

// nativeEnd returns the byte offset just past the last element.
func (a *ABI) nativeEnd(elems []Element) int64 {
	var off int64
	for _, e := range elems {
		ea, _ := a.nativeAlign(e.Type)
		off = types.Align(off, ea) + a.nativeSize(e.Type)
	}
	return off
}
