package ssa

import "fmt"

// RefKind is the storage class of a VariableRef.
type RefKind uint8

const (
	RefArgument RefKind = iota
	RefLocal
	RefStack
	RefMemory
)

var refKindNames = [...]string{
	RefArgument: "arg",
	RefLocal:    "loc",
	RefStack:    "stack",
	RefMemory:   "mem",
}

func (k RefKind) String() string {
	if int(k) < len(refKindNames) {
		return refKindNames[k]
	}
	return fmt.Sprintf("RefKind(%d)", int(k))
}

// VariableRef names a storage slot independently of its SSA versions.
// Stack slots are recycled as the evaluation stack grows and shrinks and
// have no meaning outside block construction.
type VariableRef struct {
	Index int
	Kind  RefKind
}

// MemoryRef is the slot holding the current memory token.
var MemoryRef = VariableRef{Kind: RefMemory}

// ArgumentRef returns the slot of parameter i.
func ArgumentRef(i int) VariableRef { return VariableRef{Index: i, Kind: RefArgument} }

// LocalRef returns the slot of local variable i.
func LocalRef(i int) VariableRef { return VariableRef{Index: i, Kind: RefLocal} }

// StackRef returns the evaluation stack slot at depth i from the bottom.
func StackRef(i int) VariableRef { return VariableRef{Index: i, Kind: RefStack} }

func (r VariableRef) String() string {
	if r.Kind == RefMemory {
		return "mem"
	}
	return fmt.Sprintf("%s%d", r.Kind, r.Index)
}
