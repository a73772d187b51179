package cfg

import (
	"fmt"
	"strings"
)

// Instruction is one decoded stack-machine instruction.
type Instruction struct {
	Offset  int    // position in the method body; unique and increasing
	Op      Opcode // decoded operation
	Operand any    // int64, float64 or types.Type, per Op.Info().Operand
	Pops    int    // evaluation stack slots consumed
	Pushes  int    // evaluation stack slots produced
	Targets []int  // branch target offsets
	Flow    Flow   // control-flow kind of Op
	Line    int    // source line, 0 if unknown
}

// NewInstruction returns an instruction with the stack effect and flow of
// op. A branch operand becomes the single target.
func NewInstruction(offset int, op Opcode, operand any) Instruction {
	info := op.Info()
	in := Instruction{
		Offset:  offset,
		Op:      op,
		Operand: operand,
		Pops:    info.Pops,
		Pushes:  info.Pushes,
		Flow:    info.Flow,
	}
	if info.Operand == OperandTarget {
		if t, ok := operand.(int64); ok {
			in.Targets = []int{int(t)}
		}
	}
	return in
}

// IntOperand returns the integer operand of in.
func (in *Instruction) IntOperand() int64 {
	n, _ := in.Operand.(int64)
	return n
}

// FloatOperand returns the float operand of in.
func (in *Instruction) FloatOperand() float64 {
	x, _ := in.Operand.(float64)
	return x
}

// IsBranch reports whether in transfers control to its targets.
func (in *Instruction) IsBranch() bool {
	return in.Flow == FlowBranch || in.Flow == FlowCond
}

// EndsBlock reports whether the instruction after in starts a new block.
func (in *Instruction) EndsBlock() bool {
	return in.Flow != FlowNext
}

func (in Instruction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d: %s", in.Offset, in.Op)
	if in.IsBranch() {
		for _, t := range in.Targets {
			fmt.Fprintf(&sb, " %d", t)
		}
	} else if in.Operand != nil {
		fmt.Fprintf(&sb, " %v", in.Operand)
	}
	return sb.String()
}

// Error reports a malformed instruction stream.
type Error struct {
	Line    int // source line, 0 if unknown
	Offset  int // instruction offset, -1 if not tied to an instruction
	Message string
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, "offset %d: ", e.Offset)
	}
	sb.WriteString(e.Message)
	return sb.String()
}

func errorf(in *Instruction, format string, args ...any) *Error {
	e := &Error{Offset: -1, Message: fmt.Sprintf(format, args...)}
	if in != nil {
		e.Line, e.Offset = in.Line, in.Offset
	}
	return e
}
