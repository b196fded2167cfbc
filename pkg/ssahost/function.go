package ssahost

import (
	"fmt"
	"go/ast"
	"go/token"
	"path/filepath"
	"sync"

	"golang.org/x/tools/go/ssa"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
)

// Function adapts an *ssa.Function. Program hands out one Function per
// *ssa.Function so adapters compare equal exactly when the functions do.
type Function struct {
	prog *Program
	fn   *ssa.Function

	once   sync.Once
	blocks []ir.Block
	bySSA  map[*ssa.BasicBlock]*Block
}

func (f *Function) init() {
	f.once.Do(func() {
		f.bySSA = make(map[*ssa.BasicBlock]*Block, len(f.fn.Blocks))
		f.blocks = make([]ir.Block, len(f.fn.Blocks))
		for i, b := range f.fn.Blocks {
			blk := &Block{fn: f, b: b}
			f.bySSA[b] = blk
			f.blocks[i] = blk
		}
	})
}

func (f *Function) block(b *ssa.BasicBlock) *Block {
	f.init()
	return f.bySSA[b]
}

// SSA returns the underlying function.
func (f *Function) SSA() *ssa.Function { return f.fn }

// Name is the package-qualified function name, e.g. "example.com/m.(*T).Run".
func (f *Function) Name() string { return f.fn.String() }

// Package returns the import path of the declaring package, if any.
func (f *Function) Package() string {
	if f.fn.Pkg != nil && f.fn.Pkg.Pkg != nil {
		return f.fn.Pkg.Pkg.Path()
	}
	if origin := f.fn.Origin(); origin != nil && origin.Pkg != nil {
		return origin.Pkg.Pkg.Path()
	}
	return ""
}

func (f *Function) HasBody() bool { return len(f.fn.Blocks) > 0 }

func (f *Function) Blocks() []ir.Block {
	f.init()
	return f.blocks
}

// Params lists the formal parameters, receiver first. Free variables of
// closures are not parameters.
func (f *Function) Params() []ir.Param {
	if len(f.fn.Params) > 0 || f.HasBody() {
		out := make([]ir.Param, len(f.fn.Params))
		for i, p := range f.fn.Params {
			out[i] = &Param{name: p.Name(), typ: f.prog.types.adapt(p.Type())}
		}
		return out
	}

	sig := f.fn.Signature
	var out []ir.Param
	if recv := sig.Recv(); recv != nil {
		out = append(out, &Param{name: recv.Name(), typ: f.prog.types.adapt(recv.Type())})
	}
	for i := 0; i < sig.Params().Len(); i++ {
		v := sig.Params().At(i)
		out = append(out, &Param{name: v.Name(), typ: f.prog.types.adapt(v.Type())})
	}
	return out
}

// Location reports the declaration position. The scope line is the line of
// the body's opening brace.
func (f *Function) Location() (ir.Location, bool) {
	pos := f.fn.Pos()
	if !pos.IsValid() || f.prog.Fset == nil {
		return ir.Location{}, false
	}
	p := f.prog.Fset.Position(pos)
	loc := ir.Location{
		File:      filepath.Base(p.Filename),
		Dir:       filepath.Dir(p.Filename),
		Line:      p.Line,
		ScopeLine: p.Line,
	}
	if lbrace := bodyStart(f.fn.Syntax()); lbrace.IsValid() {
		loc.ScopeLine = f.prog.Fset.Position(lbrace).Line
	}
	return loc, true
}

func bodyStart(n ast.Node) token.Pos {
	switch n := n.(type) {
	case *ast.FuncDecl:
		if n.Body != nil {
			return n.Body.Lbrace
		}
	case *ast.FuncLit:
		if n.Body != nil {
			return n.Body.Lbrace
		}
	}
	return token.NoPos
}

// Block adapts an *ssa.BasicBlock.
type Block struct {
	fn *Function
	b  *ssa.BasicBlock

	once   sync.Once
	instrs []ir.Instruction
}

// Name combines the block index with the builder's comment, e.g. "3.for.loop".
func (b *Block) Name() string {
	if b.b.Comment == "" {
		return fmt.Sprintf("%d", b.b.Index)
	}
	return fmt.Sprintf("%d.%s", b.b.Index, b.b.Comment)
}

func (b *Block) Instructions() []ir.Instruction {
	b.once.Do(func() {
		b.instrs = make([]ir.Instruction, len(b.b.Instrs))
		for i, in := range b.b.Instrs {
			b.instrs[i] = &Instruction{prog: b.fn.prog, in: in}
		}
	})
	return b.instrs
}

// Instruction adapts an ssa.Instruction. A load is a pointer dereference,
// a store is *ssa.Store, and calls include go and defer statements. Calls
// to builtins such as len or append are ordinary instructions.
type Instruction struct {
	prog *Program
	in   ssa.Instruction
}

func (i *Instruction) Kind() ir.InstrKind {
	switch in := i.in.(type) {
	case *ssa.UnOp:
		if in.Op == token.MUL {
			return ir.KindLoad
		}
	case *ssa.Store:
		return ir.KindStore
	case ssa.CallInstruction:
		if _, builtin := in.Common().Value.(*ssa.Builtin); !builtin {
			return ir.KindCall
		}
	}
	return ir.KindOther
}

func (i *Instruction) Callee() (ir.Function, bool) {
	call, ok := i.in.(ssa.CallInstruction)
	if !ok {
		return nil, false
	}
	callee := call.Common().StaticCallee()
	if callee == nil {
		return nil, false
	}
	return i.prog.Function(callee), true
}

// CalleeName names static callees by their qualified name and interface
// method calls by the method. Calls through function values have no name.
func (i *Instruction) CalleeName() string {
	call, ok := i.in.(ssa.CallInstruction)
	if !ok {
		return ""
	}
	common := call.Common()
	if callee := common.StaticCallee(); callee != nil {
		return callee.String()
	}
	if common.IsInvoke() {
		return common.Method.FullName()
	}
	return ""
}

func (i *Instruction) AccessType() ir.Type {
	switch in := i.in.(type) {
	case *ssa.UnOp:
		if in.Op == token.MUL {
			return i.prog.types.adapt(in.X.Type())
		}
	case *ssa.Store:
		return i.prog.types.adapt(in.Addr.Type())
	}
	return nil
}

func (i *Instruction) String() string {
	if v, ok := i.in.(ssa.Value); ok {
		return v.Name() + " = " + v.String()
	}
	return i.in.String()
}

// Param adapts a formal parameter.
type Param struct {
	name string
	typ  ir.Type
}

func (p *Param) Name() string  { return p.name }
func (p *Param) Type() ir.Type { return p.typ }
