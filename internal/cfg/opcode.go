// Package cfg splits a method body of stack-machine instructions into basic
// blocks, wires them into an SSA function and computes the evaluation
// stack height on entry to every block.
package cfg

import "fmt"

// Opcode is a stack-machine instruction code.
type Opcode uint8

const (
	OpNop Opcode = iota

	// Arguments and locals; Operand = index
	OpLdarg
	OpStarg
	OpLdloc
	OpStloc

	// Constants; Operand = int64 or float64
	OpLdcI4
	OpLdcI8
	OpLdcR4
	OpLdcR8

	OpDup
	OpPop

	// Arithmetic and logic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpDivUn
	OpRem
	OpRemUn
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpShrUn
	OpNeg
	OpNot

	// Comparisons push an i1
	OpCeq
	OpCgt
	OpCgtUn
	OpClt
	OpCltUn

	// Conversions
	OpConvI1
	OpConvI2
	OpConvI4
	OpConvI8
	OpConvU1
	OpConvU2
	OpConvU4
	OpConvU8
	OpConvR4
	OpConvR8

	// Indirect memory access through a pointer
	OpLdindI4
	OpLdindI8
	OpLdindR4
	OpLdindR8
	OpStindI4
	OpStindI8
	OpStindR4
	OpStindR8

	// Structures; Operand = field index or structure type
	OpLdfld
	OpLdflda
	OpLdobj
	OpStobj

	// Views
	OpLdlen
	OpLdelema

	// Control flow; Targets = branch destinations
	OpBr
	OpBrtrue
	OpBrfalse
	OpRet

	numOpcodes
)

// Flow describes how control leaves an instruction.
type Flow uint8

const (
	FlowNext   Flow = iota // continues with the next instruction
	FlowBranch             // jumps to Targets[0]
	FlowCond               // jumps to Targets[0] or continues
	FlowReturn             // leaves the method
)

func (f Flow) String() string {
	switch f {
	case FlowNext:
		return "next"
	case FlowBranch:
		return "branch"
	case FlowCond:
		return "cond"
	case FlowReturn:
		return "return"
	}
	return fmt.Sprintf("Flow(%d)", int(f))
}

// OperandKind is the kind of operand an opcode takes.
type OperandKind uint8

const (
	OperandNone   OperandKind = iota
	OperandInt                // int64
	OperandFloat              // float64
	OperandTarget             // branch target offset
	OperandType               // types.Type
)

// OpInfo holds the static properties of an opcode.
type OpInfo struct {
	Name    string
	Pops    int
	Pushes  int
	Flow    Flow
	Operand OperandKind
}

var opInfoTable = [numOpcodes]OpInfo{
	OpNop: {Name: "nop"},

	OpLdarg: {Name: "ldarg", Pushes: 1, Operand: OperandInt},
	OpStarg: {Name: "starg", Pops: 1, Operand: OperandInt},
	OpLdloc: {Name: "ldloc", Pushes: 1, Operand: OperandInt},
	OpStloc: {Name: "stloc", Pops: 1, Operand: OperandInt},

	OpLdcI4: {Name: "ldc.i4", Pushes: 1, Operand: OperandInt},
	OpLdcI8: {Name: "ldc.i8", Pushes: 1, Operand: OperandInt},
	OpLdcR4: {Name: "ldc.r4", Pushes: 1, Operand: OperandFloat},
	OpLdcR8: {Name: "ldc.r8", Pushes: 1, Operand: OperandFloat},

	OpDup: {Name: "dup", Pops: 1, Pushes: 2},
	OpPop: {Name: "pop", Pops: 1},

	OpAdd:   {Name: "add", Pops: 2, Pushes: 1},
	OpSub:   {Name: "sub", Pops: 2, Pushes: 1},
	OpMul:   {Name: "mul", Pops: 2, Pushes: 1},
	OpDiv:   {Name: "div", Pops: 2, Pushes: 1},
	OpDivUn: {Name: "div.un", Pops: 2, Pushes: 1},
	OpRem:   {Name: "rem", Pops: 2, Pushes: 1},
	OpRemUn: {Name: "rem.un", Pops: 2, Pushes: 1},
	OpAnd:   {Name: "and", Pops: 2, Pushes: 1},
	OpOr:    {Name: "or", Pops: 2, Pushes: 1},
	OpXor:   {Name: "xor", Pops: 2, Pushes: 1},
	OpShl:   {Name: "shl", Pops: 2, Pushes: 1},
	OpShr:   {Name: "shr", Pops: 2, Pushes: 1},
	OpShrUn: {Name: "shr.un", Pops: 2, Pushes: 1},
	OpNeg:   {Name: "neg", Pops: 1, Pushes: 1},
	OpNot:   {Name: "not", Pops: 1, Pushes: 1},

	OpCeq:   {Name: "ceq", Pops: 2, Pushes: 1},
	OpCgt:   {Name: "cgt", Pops: 2, Pushes: 1},
	OpCgtUn: {Name: "cgt.un", Pops: 2, Pushes: 1},
	OpClt:   {Name: "clt", Pops: 2, Pushes: 1},
	OpCltUn: {Name: "clt.un", Pops: 2, Pushes: 1},

	OpConvI1: {Name: "conv.i1", Pops: 1, Pushes: 1},
	OpConvI2: {Name: "conv.i2", Pops: 1, Pushes: 1},
	OpConvI4: {Name: "conv.i4", Pops: 1, Pushes: 1},
	OpConvI8: {Name: "conv.i8", Pops: 1, Pushes: 1},
	OpConvU1: {Name: "conv.u1", Pops: 1, Pushes: 1},
	OpConvU2: {Name: "conv.u2", Pops: 1, Pushes: 1},
	OpConvU4: {Name: "conv.u4", Pops: 1, Pushes: 1},
	OpConvU8: {Name: "conv.u8", Pops: 1, Pushes: 1},
	OpConvR4: {Name: "conv.r4", Pops: 1, Pushes: 1},
	OpConvR8: {Name: "conv.r8", Pops: 1, Pushes: 1},

	OpLdindI4: {Name: "ldind.i4", Pops: 1, Pushes: 1},
	OpLdindI8: {Name: "ldind.i8", Pops: 1, Pushes: 1},
	OpLdindR4: {Name: "ldind.r4", Pops: 1, Pushes: 1},
	OpLdindR8: {Name: "ldind.r8", Pops: 1, Pushes: 1},
	OpStindI4: {Name: "stind.i4", Pops: 2},
	OpStindI8: {Name: "stind.i8", Pops: 2},
	OpStindR4: {Name: "stind.r4", Pops: 2},
	OpStindR8: {Name: "stind.r8", Pops: 2},

	OpLdfld:  {Name: "ldfld", Pops: 1, Pushes: 1, Operand: OperandInt},
	OpLdflda: {Name: "ldflda", Pops: 1, Pushes: 1, Operand: OperandInt},
	OpLdobj:  {Name: "ldobj", Pops: 1, Pushes: 1, Operand: OperandType},
	OpStobj:  {Name: "stobj", Pops: 2, Operand: OperandType},

	OpLdlen:   {Name: "ldlen", Pops: 1, Pushes: 1},
	OpLdelema: {Name: "ldelema", Pops: 2, Pushes: 1},

	OpBr:      {Name: "br", Flow: FlowBranch, Operand: OperandTarget},
	OpBrtrue:  {Name: "brtrue", Pops: 1, Flow: FlowCond, Operand: OperandTarget},
	OpBrfalse: {Name: "brfalse", Pops: 1, Flow: FlowCond, Operand: OperandTarget},
	OpRet:     {Name: "ret", Flow: FlowReturn},
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for op := Opcode(0); op < numOpcodes; op++ {
		m[opInfoTable[op].Name] = op
	}
	return m
}()

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// Info returns the static properties of op.
func (op Opcode) Info() OpInfo {
	if op < numOpcodes {
		return opInfoTable[op]
	}
	return OpInfo{Name: fmt.Sprintf("Opcode(%d)", int(op))}
}

// String returns the mnemonic of op.
func (op Opcode) String() string {
	return op.Info().Name
}
