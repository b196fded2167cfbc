package callgraph

import (
	"fmt"
	"sort"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// Visit orders.
const (
	// OrderSource keeps declaration order. Calls to functions declared
	// further down stay unresolved.
	OrderSource = "source"
	// OrderBottomUp visits callees before their callers wherever the call
	// graph has no cycle between them.
	OrderBottomUp = "bottomup"
)

// Ordering is the sequence functions are profiled in.
type Ordering struct {
	Functions  []*ssa.Function
	CyclicSCCs int
}

// VisitOrder arranges fns for profiling. In bottom-up order the strongly
// connected components of the call graph restricted to fns are emitted
// callees first; members of one component keep their relative input order.
func VisitOrder(fns []*ssa.Function, graph *callgraph.Graph, mode string) (Ordering, error) {
	switch mode {
	case "", OrderSource:
		out := make([]*ssa.Function, len(fns))
		copy(out, fns)
		return Ordering{Functions: out, CyclicSCCs: countCycles(fns, graph)}, nil
	case OrderBottomUp:
		sccs := components(fns, graph)
		ord := Ordering{Functions: make([]*ssa.Function, 0, len(fns))}
		for _, scc := range sccs {
			if scc.cyclic {
				ord.CyclicSCCs++
			}
			ord.Functions = append(ord.Functions, scc.members...)
		}
		return ord, nil
	default:
		return Ordering{}, fmt.Errorf("unsupported visit order: %s. Supported orders: %s, %s", mode, OrderSource, OrderBottomUp)
	}
}

func countCycles(fns []*ssa.Function, graph *callgraph.Graph) int {
	n := 0
	for _, scc := range components(fns, graph) {
		if scc.cyclic {
			n++
		}
	}
	return n
}

type component struct {
	members []*ssa.Function
	cyclic  bool
}

// components runs Tarjan's algorithm, which completes a component only
// after every component reachable from it, so callees come out first.
func components(fns []*ssa.Function, graph *callgraph.Graph) []component {
	rank := make(map[*ssa.Function]int, len(fns))
	for i, fn := range fns {
		rank[fn] = i
	}

	succs := func(fn *ssa.Function) []*ssa.Function {
		if graph == nil {
			return nil
		}
		node := graph.Nodes[fn]
		if node == nil {
			return nil
		}
		var out []*ssa.Function
		seen := make(map[*ssa.Function]bool)
		for _, callee := range GetCalleesOf(node) {
			f := callee.Func
			if _, ok := rank[f]; !ok || seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, f)
		}
		sort.Slice(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
		return out
	}

	var (
		index   = make(map[*ssa.Function]int, len(fns))
		lowlink = make(map[*ssa.Function]int, len(fns))
		onStack = make(map[*ssa.Function]bool, len(fns))
		stack   []*ssa.Function
		result  []component
		next    int
	)

	var strongConnect func(fn *ssa.Function)
	strongConnect = func(fn *ssa.Function) {
		index[fn] = next
		lowlink[fn] = next
		next++
		stack = append(stack, fn)
		onStack[fn] = true

		selfLoop := false
		for _, s := range succs(fn) {
			if s == fn {
				selfLoop = true
			}
			if _, visited := index[s]; !visited {
				strongConnect(s)
				lowlink[fn] = min(lowlink[fn], lowlink[s])
			} else if onStack[s] {
				lowlink[fn] = min(lowlink[fn], index[s])
			}
		}

		if lowlink[fn] != index[fn] {
			return
		}
		var scc component
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			scc.members = append(scc.members, top)
			if top == fn {
				break
			}
		}
		sort.Slice(scc.members, func(i, j int) bool { return rank[scc.members[i]] < rank[scc.members[j]] })
		scc.cyclic = len(scc.members) > 1 || selfLoop
		result = append(result, scc)
	}

	for _, fn := range fns {
		if _, visited := index[fn]; !visited {
			strongConnect(fn)
		}
	}
	return result
}
