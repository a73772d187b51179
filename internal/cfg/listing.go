package cfg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/you-not-fish/kestrel/internal/types"
)

// Method is a method body read from a listing.
type Method struct {
	Name   string
	Params []types.Type
	Result types.Type
	Locals []types.Type
	Instrs []Instruction
	Line   int
}

// NamedStruct is a structure type declared in a listing.
type NamedStruct struct {
	Name string
	Type *types.Struct
}

// Listing is the parsed content of a listing file.
type Listing struct {
	Structs []NamedStruct
	Methods []*Method
}

// ParseListing reads a textual method listing:
//
//	.struct Pair size 16 pack 4
//	  x i32
//	  y f64 @8
//	.end
//
//	.method sum(*global Pair) f64
//	.locals f64
//	  0: ldarg 0
//	  1: ldobj Pair
//	  ...
//	.end
//
// Text after "//" is ignored. Types are interned in tc.
func ParseListing(r io.Reader, tc *types.Context) (*Listing, error) {
	p := &listingParser{
		tc:      tc,
		structs: make(map[string]*types.Struct),
		out:     &Listing{},
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.line++
		text := sc.Text()
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if err := p.parseLine(text); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	switch {
	case p.method != nil:
		return nil, p.errorf("method %s is missing .end", p.method.Name)
	case p.st != nil:
		return nil, p.errorf("struct %s is missing .end", p.st.name)
	}
	return p.out, nil
}

type pendingStruct struct {
	name   string
	fields []*types.Field
	opts   []types.StructOption
}

type listingParser struct {
	tc      *types.Context
	line    int
	structs map[string]*types.Struct
	out     *Listing

	method *Method
	st     *pendingStruct
}

func (p *listingParser) errorf(format string, args ...any) *Error {
	return &Error{Line: p.line, Offset: -1, Message: fmt.Sprintf(format, args...)}
}

func (p *listingParser) parseLine(text string) error {
	word, rest := splitWord(text)
	switch word {
	case ".struct":
		if p.method != nil || p.st != nil {
			return p.errorf(".struct inside another declaration")
		}
		return p.parseStructHeader(rest)
	case ".method":
		if p.method != nil || p.st != nil {
			return p.errorf(".method inside another declaration")
		}
		return p.parseMethodHeader(rest)
	case ".locals":
		if p.method == nil {
			return p.errorf(".locals outside a method")
		}
		locals, err := p.parseTypeList(rest)
		if err != nil {
			return err
		}
		p.method.Locals = append(p.method.Locals, locals...)
		return nil
	case ".end":
		return p.parseEnd()
	}

	switch {
	case p.st != nil:
		return p.parseField(text)
	case p.method != nil:
		return p.parseInstruction(text)
	}
	return p.errorf("unexpected %q outside a declaration", word)
}

func (p *listingParser) parseStructHeader(rest string) error {
	name, rest := splitWord(rest)
	if name == "" {
		return p.errorf(".struct needs a name")
	}
	if _, dup := p.structs[name]; dup {
		return p.errorf("struct %s redeclared", name)
	}
	st := &pendingStruct{name: name}
	attrs := strings.Fields(rest)
	if len(attrs)%2 != 0 {
		return p.errorf("malformed struct attributes %q", rest)
	}
	for i := 0; i < len(attrs); i += 2 {
		n, err := strconv.ParseInt(attrs[i+1], 0, 64)
		if err != nil || n <= 0 {
			return p.errorf("invalid %s %q", attrs[i], attrs[i+1])
		}
		switch attrs[i] {
		case "size":
			st.opts = append(st.opts, types.WithSize(n))
		case "pack":
			st.opts = append(st.opts, types.WithPack(n))
		default:
			return p.errorf("unknown struct attribute %q", attrs[i])
		}
	}
	p.st = st
	return nil
}

// parseField parses "name type [@offset]".
func (p *listingParser) parseField(text string) error {
	name, rest := splitWord(text)
	offset := types.NoOffset
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		n, err := strconv.ParseInt(strings.TrimSpace(rest[i+1:]), 0, 64)
		if err != nil || n < 0 {
			return p.errorf("invalid field offset %q", rest[i:])
		}
		offset, rest = n, rest[:i]
	}
	T, err := p.parseType(rest)
	if err != nil {
		return err
	}
	p.st.fields = append(p.st.fields, types.NewFieldAt(name, T, offset))
	return nil
}

func (p *listingParser) parseMethodHeader(rest string) error {
	open := strings.Index(rest, "(")
	end := strings.LastIndex(rest, ")")
	if open <= 0 || end < open {
		return p.errorf("malformed method header %q", rest)
	}
	m := &Method{Name: strings.TrimSpace(rest[:open]), Line: p.line}
	params, err := p.parseTypeList(rest[open+1 : end])
	if err != nil {
		return err
	}
	m.Params = params
	m.Result = types.Typ[types.Void]
	if res := strings.TrimSpace(rest[end+1:]); res != "" {
		if m.Result, err = p.parseType(res); err != nil {
			return err
		}
	}
	p.method = m
	return nil
}

func (p *listingParser) parseEnd() error {
	switch {
	case p.st != nil:
		st := p.tc.Struct(p.st.fields, p.st.opts...)
		p.structs[p.st.name] = st
		p.out.Structs = append(p.out.Structs, NamedStruct{Name: p.st.name, Type: st})
		p.st = nil
	case p.method != nil:
		p.out.Methods = append(p.out.Methods, p.method)
		p.method = nil
	default:
		return p.errorf(".end without a declaration")
	}
	return nil
}

// parseInstruction parses "offset: mnemonic [operand]".
func (p *listingParser) parseInstruction(text string) error {
	colon := strings.Index(text, ":")
	if colon < 0 {
		return p.errorf("instruction %q has no offset", text)
	}
	offset, err := strconv.Atoi(strings.TrimSpace(text[:colon]))
	if err != nil || offset < 0 {
		return p.errorf("invalid offset %q", text[:colon])
	}
	mnemonic, operand := splitWord(strings.TrimSpace(text[colon+1:]))
	op, ok := LookupOpcode(mnemonic)
	if !ok {
		return p.errorf("unknown opcode %q", mnemonic)
	}

	var value any
	kind := op.Info().Operand
	switch {
	case kind == OperandNone && operand != "":
		return p.errorf("%s takes no operand", op)
	case kind != OperandNone && operand == "":
		return p.errorf("%s needs an operand", op)
	}
	switch kind {
	case OperandInt, OperandTarget:
		n, err := strconv.ParseInt(operand, 0, 64)
		if err != nil {
			return p.errorf("invalid operand %q for %s", operand, op)
		}
		value = n
	case OperandFloat:
		x, err := strconv.ParseFloat(operand, 64)
		if err != nil {
			return p.errorf("invalid operand %q for %s", operand, op)
		}
		value = x
	case OperandType:
		if value, err = p.parseType(operand); err != nil {
			return err
		}
	}

	in := NewInstruction(offset, op, value)
	in.Line = p.line
	if op == OpRet && p.method.Result != types.Typ[types.Void] {
		in.Pops = 1
	}
	p.method.Instrs = append(p.method.Instrs, in)
	return nil
}

func (p *listingParser) parseTypeList(s string) ([]types.Type, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var list []types.Type
	for _, part := range strings.Split(s, ",") {
		T, err := p.parseType(part)
		if err != nil {
			return nil, err
		}
		list = append(list, T)
	}
	return list, nil
}

var basicNames = map[string]*types.Basic{
	"void": types.Typ[types.Void],
	"i1":   types.Typ[types.Int1],
	"i8":   types.Typ[types.Int8],
	"i16":  types.Typ[types.Int16],
	"i32":  types.Typ[types.Int32],
	"i64":  types.Typ[types.Int64],
	"u8":   types.Typ[types.UInt8],
	"u16":  types.Typ[types.UInt16],
	"u32":  types.Typ[types.UInt32],
	"u64":  types.Typ[types.UInt64],
	"f32":  types.Typ[types.Float32],
	"f64":  types.Typ[types.Float64],
}

var spaceNames = map[string]types.AddressSpace{
	"generic": types.Generic,
	"global":  types.Global,
	"shared":  types.Shared,
	"local":   types.Local,
}

// parseType parses a basic type name, a declared structure name,
// "*[space] T" or "view<[space] T>".
func (p *listingParser) parseType(s string) (types.Type, error) {
	s = strings.TrimSpace(s)
	if b, ok := basicNames[s]; ok {
		return b, nil
	}
	if st, ok := p.structs[s]; ok {
		return st, nil
	}
	if strings.HasPrefix(s, "*") {
		space, elem, err := p.parseSpaced(s[1:])
		if err != nil {
			return nil, err
		}
		return p.tc.Pointer(elem, space), nil
	}
	if strings.HasPrefix(s, "view<") && strings.HasSuffix(s, ">") {
		space, elem, err := p.parseSpaced(s[len("view<") : len(s)-1])
		if err != nil {
			return nil, err
		}
		return p.tc.View(elem, space), nil
	}
	return nil, p.errorf("unknown type %q", s)
}

func (p *listingParser) parseSpaced(s string) (types.AddressSpace, types.Type, error) {
	word, rest := splitWord(strings.TrimSpace(s))
	space, ok := spaceNames[word]
	if !ok || rest == "" {
		space, rest = types.Generic, s
	}
	elem, err := p.parseType(rest)
	return space, elem, err
}

// splitWord splits s at the first run of white space.
func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}
