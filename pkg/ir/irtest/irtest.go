// Package irtest provides an in-memory program model for tests.
package irtest

import (
	"fmt"
	"strings"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
)

// Type is a mutable ir.Type. Struct fields can be set after construction so
// recursive types can be built.
type Type struct {
	kind   ir.TypeKind
	elem   *Type
	name   string
	fields []*Type
	length uint64
	bits   uint64
}

func Scalar(bits uint64) *Type { return &Type{kind: ir.TypeScalar, bits: bits} }
func Vector(bits uint64) *Type { return &Type{kind: ir.TypeVector, bits: bits} }
func Opaque() *Type            { return &Type{kind: ir.TypeOpaque} }
func Pointer(elem *Type) *Type { return &Type{kind: ir.TypePointer, elem: elem} }

func Array(elem *Type, n uint64) *Type {
	return &Type{kind: ir.TypeArray, elem: elem, length: n}
}

func Struct(name string, fields ...*Type) *Type {
	return &Type{kind: ir.TypeStruct, name: name, fields: fields}
}

// SetFields replaces the fields of a struct type.
func (t *Type) SetFields(fields ...*Type) { t.fields = fields }

func (t *Type) Kind() ir.TypeKind { return t.kind }

func (t *Type) Elem() ir.Type {
	if t.elem == nil {
		return nil
	}
	return t.elem
}

func (t *Type) StructName() string { return t.name }

func (t *Type) Fields() []ir.Type {
	out := make([]ir.Type, len(t.fields))
	for i, f := range t.fields {
		out[i] = f
	}
	return out
}

func (t *Type) Len() uint64  { return t.length }
func (t *Type) Bits() uint64 { return t.bits }

func (t *Type) String() string {
	switch t.kind {
	case ir.TypeScalar:
		return fmt.Sprintf("i%d", t.bits)
	case ir.TypeVector:
		return fmt.Sprintf("<v%d>", t.bits)
	case ir.TypePointer:
		return t.elem.String() + "*"
	case ir.TypeArray:
		return fmt.Sprintf("[%d x %s]", t.length, t.elem)
	case ir.TypeStruct:
		return "%" + t.name
	default:
		return "opaque"
	}
}

// Param is a named parameter.
type Param struct {
	PName string
	PType ir.Type
}

func (p Param) Name() string  { return p.PName }
func (p Param) Type() ir.Type { return p.PType }

// Instr is an in-memory instruction.
type Instr struct {
	kind       ir.InstrKind
	callee     *Func
	calleeName string
	access     ir.Type
}

// Other returns a plain non-memory, non-call instruction.
func Other() *Instr { return &Instr{kind: ir.KindOther} }

func Load(ptr ir.Type) *Instr  { return &Instr{kind: ir.KindLoad, access: ptr} }
func Store(ptr ir.Type) *Instr { return &Instr{kind: ir.KindStore, access: ptr} }

// Call is a direct call to callee.
func Call(callee *Func) *Instr {
	return &Instr{kind: ir.KindCall, callee: callee, calleeName: callee.FName}
}

// CallNamed is a call to a declaration the model has no function for,
// such as an intrinsic.
func CallNamed(name string) *Instr {
	return &Instr{kind: ir.KindCall, calleeName: name}
}

func (i *Instr) Kind() ir.InstrKind { return i.kind }

func (i *Instr) Callee() (ir.Function, bool) {
	if i.callee == nil {
		return nil, false
	}
	return i.callee, true
}

func (i *Instr) CalleeName() string  { return i.calleeName }
func (i *Instr) AccessType() ir.Type { return i.access }

func (i *Instr) String() string {
	switch i.kind {
	case ir.KindCall:
		return "call " + i.calleeName
	case ir.KindLoad, ir.KindStore:
		return i.kind.String() + " " + i.access.String()
	default:
		return "op"
	}
}

// Block is an in-memory basic block.
type Block struct {
	BName  string
	Instrs []*Instr
}

func (b *Block) Name() string { return b.BName }

func (b *Block) Instructions() []ir.Instruction {
	out := make([]ir.Instruction, len(b.Instrs))
	for i, in := range b.Instrs {
		out[i] = in
	}
	return out
}

// Func is an in-memory function.
type Func struct {
	FName      string
	Body       []*Block
	Parameters []Param
	Loc        *ir.Location
	External   bool
}

// NewFunc returns an empty function with a body.
func NewFunc(name string, params ...Param) *Func {
	return &Func{FName: name, Parameters: params}
}

// NewExternal returns a function declaration without a body.
func NewExternal(name string) *Func {
	return &Func{FName: name, External: true}
}

// AddBlock appends a block holding instrs.
func (f *Func) AddBlock(name string, instrs ...*Instr) *Block {
	b := &Block{BName: name, Instrs: instrs}
	f.Body = append(f.Body, b)
	return b
}

// Others returns n plain instructions.
func Others(n int) []*Instr {
	out := make([]*Instr, n)
	for i := range out {
		out[i] = Other()
	}
	return out
}

func (f *Func) Name() string  { return f.FName }
func (f *Func) HasBody() bool { return !f.External }

func (f *Func) Blocks() []ir.Block {
	out := make([]ir.Block, len(f.Body))
	for i, b := range f.Body {
		out[i] = b
	}
	return out
}

func (f *Func) Params() []ir.Param {
	out := make([]ir.Param, len(f.Parameters))
	for i, p := range f.Parameters {
		out[i] = p
	}
	return out
}

func (f *Func) Location() (ir.Location, bool) {
	if f.Loc == nil {
		return ir.Location{}, false
	}
	return *f.Loc, true
}

// Loop is an in-memory loop with fixed analysis answers.
type Loop struct {
	HeaderBlock *Block
	LoopDepth   int
	BackEdges   int
	TripCount   uint64
	HasTrip     bool
	Backedge    ir.Range
}

func (l *Loop) Header() ir.Block {
	if l.HeaderBlock == nil {
		return nil
	}
	return l.HeaderBlock
}

func (l *Loop) Depth() int        { return l.LoopDepth }
func (l *Loop) NumBackEdges() int { return l.BackEdges }

// LoopNest maps blocks to their innermost loop and answers scalar
// evolution queries from the loops' fixed fields.
type LoopNest struct {
	byBlock map[*Block]*Loop
}

// NewLoopNest returns an empty loop nest.
func NewLoopNest() *LoopNest {
	return &LoopNest{byBlock: make(map[*Block]*Loop)}
}

// Assign makes l the innermost loop of every block in blocks.
func (n *LoopNest) Assign(l *Loop, blocks ...*Block) {
	for _, b := range blocks {
		n.byBlock[b] = l
	}
}

func (n *LoopNest) LoopFor(b ir.Block) (ir.Loop, bool) {
	blk, ok := b.(*Block)
	if !ok {
		return nil, false
	}
	l, ok := n.byBlock[blk]
	if !ok {
		return nil, false
	}
	return l, true
}

type backedgeExpr struct{ loop *Loop }

func (e backedgeExpr) String() string { return "backedge(" + e.loop.Backedge.String() + ")" }

func (n *LoopNest) SmallConstantTripCount(l ir.Loop) (uint64, bool) {
	lp, ok := l.(*Loop)
	if !ok || !lp.HasTrip {
		return 0, false
	}
	return lp.TripCount, true
}

func (n *LoopNest) BackedgeTakenCount(l ir.Loop) ir.Expr {
	lp, ok := l.(*Loop)
	if !ok {
		return nil
	}
	return backedgeExpr{loop: lp}
}

func (n *LoopNest) SignedRange(e ir.Expr) ir.Range {
	be, ok := e.(backedgeExpr)
	if !ok {
		return ir.FullRange()
	}
	return be.loop.Backedge
}

// Analyses returns the nest as both the loop view and the scalar evolution view.
func (n *LoopNest) Analyses() ir.Analyses {
	return ir.Analyses{Loops: n, SCEV: n}
}

// Names joins function names, for failure messages.
func Names(fns ...*Func) string {
	names := make([]string, len(fns))
	for i, f := range fns {
		names[i] = f.FName
	}
	return strings.Join(names, ",")
}
