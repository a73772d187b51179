// Package ssa implements the SSA intermediate representation of the
// kestrel compiler and the builder that constructs it from stack-machine
// method bodies.
package ssa

// Op represents an SSA operation code.
type Op int

const (
	OpInvalid Op = iota

	// Constants and inputs
	OpConst // constant; AuxInt or AuxFloat = value
	OpNull  // null pointer of Type
	OpUndef // undefined value
	OpArg   // function argument; AuxInt = param index

	// SSA-specific
	OpPhi // φ function; Args = one per predecessor

	// Conversion
	OpConvert // numeric or pointer/int conversion to Type; AuxInt = ConvertFlags
	OpBitcast // reinterpret bits as Type

	// Arithmetic; AuxInt = AuxUnsigned for unsigned Div, Rem and Shr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpNeg
	OpNot
	OpCmp // comparison; AuxInt = CompareKind; Aux = UnsignedCompare if unsigned; Type = i1

	// Memory. Loads and stores thread the memory token held in MemoryRef.
	OpInitMem        // initial memory token
	OpLoad           // Args[0] = mem, Args[1] = ptr
	OpStore          // Args[0] = mem, Args[1] = ptr, Args[2] = val; returns new mem
	OpAlloca         // stack allocation; Type = *T
	OpFieldAddress   // &p.field; Args[0] = struct ptr; AuxInt = field index
	OpElementAddress // &p[i]; Args[0] = ptr, Args[1] = index

	// Aggregates
	OpStructure // aggregate of Args in field order
	OpGetField  // Args[0] = aggregate; AuxInt = field index
	OpSetField  // Args[0] = aggregate, Args[1] = field value; AuxInt = field index

	// Views
	OpNewView     // Args[0] = ptr, Args[1] = length
	OpViewPointer // Args[0] = view
	OpViewLength  // Args[0] = view
	OpSubView     // Args[0] = view, Args[1] = offset, Args[2] = length

	// Terminators
	OpJump   // unconditional branch to Succs[0]
	OpIf     // Args[0] = condition; Succs[0] if true, Succs[1] if false
	OpReturn // Args[0] = optional result

	opCount // sentinel; must be last
)

// AuxUnsigned marks unsigned Div, Rem and Shr.
const AuxUnsigned = 1

// UnsignedCompare is the Aux of an OpCmp comparing unsigned integers.
const UnsignedCompare = "unsigned"

// CompareKind is the predicate of an OpCmp value.
type CompareKind int64

const (
	CmpEq CompareKind = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

var compareNames = [...]string{"eq", "ne", "lt", "le", "gt", "ge"}

func (k CompareKind) String() string {
	if k >= 0 && int(k) < len(compareNames) {
		return compareNames[k]
	}
	return "cmp?"
}

// OpInfo holds metadata about an SSA operation.
type OpInfo struct {
	Name         string // human-readable name
	IsPure       bool   // no side effects; removable when unused
	IsTerminator bool   // ends a block; lives in Block.Term
}

var opInfoTable = [opCount]OpInfo{
	OpInvalid: {Name: "Invalid"},

	OpConst: {Name: "Const", IsPure: true},
	OpNull:  {Name: "Null", IsPure: true},
	OpUndef: {Name: "Undef", IsPure: true},
	OpArg:   {Name: "Arg", IsPure: true},

	OpPhi: {Name: "Phi", IsPure: true},

	OpConvert: {Name: "Convert", IsPure: true},
	OpBitcast: {Name: "Bitcast", IsPure: true},

	OpAdd: {Name: "Add", IsPure: true},
	OpSub: {Name: "Sub", IsPure: true},
	OpMul: {Name: "Mul", IsPure: true},
	OpDiv: {Name: "Div", IsPure: true},
	OpRem: {Name: "Rem", IsPure: true},
	OpAnd: {Name: "And", IsPure: true},
	OpOr:  {Name: "Or", IsPure: true},
	OpXor: {Name: "Xor", IsPure: true},
	OpShl: {Name: "Shl", IsPure: true},
	OpShr: {Name: "Shr", IsPure: true},
	OpNeg: {Name: "Neg", IsPure: true},
	OpNot: {Name: "Not", IsPure: true},
	OpCmp: {Name: "Cmp", IsPure: true},

	// Memory ops are ordered by the memory token, not by purity.
	OpInitMem:        {Name: "InitMem"},
	OpLoad:           {Name: "Load"},
	OpStore:          {Name: "Store"},
	OpAlloca:         {Name: "Alloca"},
	OpFieldAddress:   {Name: "FieldAddress", IsPure: true},
	OpElementAddress: {Name: "ElementAddress", IsPure: true},

	OpStructure: {Name: "Structure", IsPure: true},
	OpGetField:  {Name: "GetField", IsPure: true},
	OpSetField:  {Name: "SetField", IsPure: true},

	OpNewView:     {Name: "NewView", IsPure: true},
	OpViewPointer: {Name: "ViewPointer", IsPure: true},
	OpViewLength:  {Name: "ViewLength", IsPure: true},
	OpSubView:     {Name: "SubView", IsPure: true},

	OpJump:   {Name: "Jump", IsTerminator: true},
	OpIf:     {Name: "If", IsTerminator: true},
	OpReturn: {Name: "Return", IsTerminator: true},
}

// NumOps is the number of defined ops, for tables indexed by Op.
const NumOps = int(opCount)

// String returns the human-readable name of the op.
func (o Op) String() string {
	if o >= 0 && int(o) < len(opInfoTable) {
		return opInfoTable[o].Name
	}
	return "unknown"
}

// Info returns the OpInfo for this op.
func (o Op) Info() OpInfo {
	if o >= 0 && int(o) < len(opInfoTable) {
		return opInfoTable[o]
	}
	return OpInfo{Name: "unknown"}
}

// IsPure returns true if this op has no side effects.
func (o Op) IsPure() bool {
	return o.Info().IsPure
}

// IsTerminator returns true if this op ends a block.
func (o Op) IsTerminator() bool {
	return o.Info().IsTerminator
}
