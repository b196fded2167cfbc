package callgraph

import (
	"strings"
	"testing"

	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
)

func TestToLattice(t *testing.T) {
	five := uint64(5)
	report := &models.Report{
		Functions: []models.FunctionReport{
			{Name: "helper"},
			{
				Name: "kernel",
				Calls: []models.CallEdge{
					{Callee: "helper", Resolved: true, InstructionCount: &five},
					{Callee: "helper", Resolved: true, InstructionCount: &five},
					{Callee: "later"},
				},
			},
		},
	}

	g := ToLattice(report)
	if len(g.Edges) != 2 {
		t.Errorf("Expected 2 edges after dedup, got %d: %v", len(g.Edges), g.Edges)
	}
	for _, e := range g.Edges {
		if e.Caller != "kernel" {
			t.Errorf("Edge caller = %q, want kernel", e.Caller)
		}
	}

	found := false
	for _, n := range g.Nodes {
		if n == "helper" {
			found = true
		}
	}
	if !found {
		t.Errorf("Nodes = %v, want helper", g.Nodes)
	}
}

func TestToLatticeNilReport(t *testing.T) {
	g := ToLattice(nil)
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("ToLattice(nil) = %+v, want empty graph", g)
	}
}

func TestDOT(t *testing.T) {
	report := &models.Report{
		Functions: []models.FunctionReport{
			{Name: "kernel", Calls: []models.CallEdge{{Callee: "helper"}}},
			{Name: "helper"},
		},
	}

	dot := DOT(report, "")
	if !strings.Contains(dot, "digraph") {
		t.Errorf("DOT() = %q, want a digraph", dot)
	}
	if !strings.Contains(dot, "kernel") || !strings.Contains(dot, "helper") {
		t.Errorf("DOT() = %q, want both functions", dot)
	}
}
