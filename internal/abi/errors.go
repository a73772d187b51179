package abi

import (
	"fmt"

	"github.com/you-not-fish/kestrel/internal/types"
)

// ErrorKind categorizes layout failures. Every kind is fatal for the type
// being lowered: the target cannot host the layout without a custom ABI.
type ErrorKind uint8

const (
	// ErrPrimitiveAlignment indicates the target's native alignment of a
	// primitive differs from the managed alignment table.
	ErrPrimitiveAlignment ErrorKind = iota

	// ErrFieldAlignment indicates a field whose managed alignment differs
	// from the native alignment of its type.
	ErrFieldAlignment

	// ErrExplicitOffset indicates a field carrying an explicit offset.
	ErrExplicitOffset

	// ErrPackAlignment indicates packing that is not a multiple of PackBase.
	ErrPackAlignment

	// ErrNativeSizeExceeded indicates a native layout larger than the
	// managed one.
	ErrNativeSizeExceeded

	// ErrPaddingMismatch indicates that padding could not make the native
	// size match the managed size.
	ErrPaddingMismatch
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrPrimitiveAlignment:
		return "PrimitiveAlignment"
	case ErrFieldAlignment:
		return "FieldAlignment"
	case ErrExplicitOffset:
		return "ExplicitOffset"
	case ErrPackAlignment:
		return "PackAlignment"
	case ErrNativeSizeExceeded:
		return "NativeSizeExceeded"
	case ErrPaddingMismatch:
		return "PaddingMismatch"
	default:
		return "Unknown"
	}
}

// LayoutError reports a type whose layout cannot be reconciled with the
// target.
type LayoutError struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Type is the offending type.
	Type types.Type

	// Field is the offending field index, or -1.
	Field int

	// Message provides details about the error.
	Message string
}

// Error implements the error interface.
func (e *LayoutError) Error() string {
	if e.Field >= 0 {
		return fmt.Sprintf("abi %s: %s field %d: %s", e.Kind, e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("abi %s: %s: %s", e.Kind, e.Type, e.Message)
}

func layoutErrorf(kind ErrorKind, t types.Type, field int, format string, args ...interface{}) *LayoutError {
	return &LayoutError{Kind: kind, Type: t, Field: field, Message: fmt.Sprintf(format, args...)}
}
