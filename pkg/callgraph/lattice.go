package callgraph

import (
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"
	"golang.org/x/tools/go/ssa"

	"github.com/smith-xyz/golang-accel-profiler/pkg/analysis/calls"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
)

// ToLattice builds the profiled call graph of a report. Every profiled
// function is a node; every call edge, resolved or not, is an edge.
func ToLattice(report *models.Report) *lattice.Graph {
	g := &lattice.Graph{}
	if report == nil {
		return g
	}
	for _, fn := range report.Functions {
		g.Nodes = append(g.Nodes, fn.Name)
		for _, e := range fn.Calls {
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: fn.Name,
				Callee: e.Callee,
			})
		}
	}
	g.Dedup()
	return g
}

// DOT renders the report's call graph in Graphviz format.
func DOT(report *models.Report, title string) string {
	if title == "" {
		title = "callgraph"
	}
	return render.DOT(ToLattice(report), title)
}

// FuncCFG converts the control flow graph of fn. Block offsets count
// instructions from the start of the function, and each call site records
// its offset and callee.
func FuncCFG(fn *ssa.Function) *lattice.FuncCFG {
	cfg := &lattice.FuncCFG{Name: fn.String()}

	offset := 0
	for _, b := range fn.Blocks {
		lb := &lattice.BasicBlock{
			ID:    b.Index,
			Start: offset,
			End:   offset + len(b.Instrs),
			Term:  len(b.Succs) == 0,
		}

		_, conditional := lastInstr(b).(*ssa.If)
		for i, s := range b.Succs {
			succ := lattice.Successor{BlockID: s.Index}
			if conditional {
				succ.Cond = "T"
				if i == 1 {
					succ.Cond = "F"
				}
			}
			lb.Succs = append(lb.Succs, succ)
		}

		for i, in := range b.Instrs {
			call, ok := in.(ssa.CallInstruction)
			if !ok {
				continue
			}
			if _, builtin := call.Common().Value.(*ssa.Builtin); builtin {
				continue
			}
			lb.Calls = append(lb.Calls, lattice.CallSite{
				Offset: offset + i,
				Callee: calleeLabel(call.Common()),
			})
		}

		offset += len(b.Instrs)
		cfg.Blocks = append(cfg.Blocks, lb)
	}
	return cfg
}

// CFGDOT renders the control flow graphs of fns in Graphviz format.
func CFGDOT(fns []*ssa.Function, title string) string {
	g := &lattice.CFGGraph{}
	for _, fn := range fns {
		if len(fn.Blocks) > 0 {
			g.Funcs = append(g.Funcs, FuncCFG(fn))
		}
	}
	return render.DOTCFG(g, title)
}

func lastInstr(b *ssa.BasicBlock) ssa.Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	return b.Instrs[len(b.Instrs)-1]
}

func calleeLabel(c *ssa.CallCommon) string {
	if callee := c.StaticCallee(); callee != nil {
		return callee.String()
	}
	if c.IsInvoke() {
		return c.Method.FullName()
	}
	return calls.IndirectCallee
}
