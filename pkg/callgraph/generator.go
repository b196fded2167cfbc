package callgraph

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/rta"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/ssa"

	"github.com/smith-xyz/golang-accel-profiler/pkg/config"
)

// Generator builds call graphs over a built SSA program
type Generator struct {
	logger    *slog.Logger
	config    *config.Config
	algorithm string
}

// NewGenerator creates a new call graph generator
func NewGenerator(logger *slog.Logger, cfg *config.Config) *Generator {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Generator{
		logger:    logger,
		config:    cfg,
		algorithm: "static",
	}
}

// SetAlgorithm sets the call graph algorithm to use
func (g *Generator) SetAlgorithm(algorithm string) error {
	if algorithm == "" {
		algorithm = "static"
	}

	validAlgorithms := map[string]bool{
		"rta":    true, // Rapid Type Analysis
		"cha":    true, // Class Hierarchy Analysis
		"static": true, // Static call graph
		"vta":    true, // Variable Type Analysis
	}

	if !validAlgorithms[algorithm] {
		return fmt.Errorf("unsupported call graph algorithm: %s. Supported algorithms: rta, cha, static, vta", algorithm)
	}

	g.algorithm = algorithm
	return nil
}

// GetAlgorithm returns the currently configured call graph algorithm
func (g *Generator) GetAlgorithm() string {
	return g.algorithm
}

// Build creates the call graph of prog. RTA and VTA start from the main and
// init functions of pkgs; packages without a main are libraries, so every
// function they declare is a root instead.
func (g *Generator) Build(prog *ssa.Program, pkgs []*ssa.Package) (*callgraph.Graph, error) {
	roots := entryPoints(pkgs)
	g.logger.Debug("Building call graph", "algorithm", g.algorithm, "roots", len(roots))

	if len(roots) == 0 && (g.algorithm == "rta" || g.algorithm == "vta") {
		g.logger.Debug("No roots found, creating empty call graph")
		return &callgraph.Graph{Nodes: make(map[*ssa.Function]*callgraph.Node)}, nil
	}

	graph, err := g.generateCallGraphWithAlgorithm(prog, roots)
	if err != nil {
		return nil, fmt.Errorf("failed to generate call graph with %s algorithm: %w", g.algorithm, err)
	}

	before := len(graph.Nodes)
	g.deleteOnlyArtificialSyntheticNodes(graph)
	g.logger.Debug("Generated call graph", "nodes_before_cleanup", before, "nodes", len(graph.Nodes))

	return graph, nil
}

func entryPoints(pkgs []*ssa.Package) []*ssa.Function {
	var mains, all []*ssa.Function
	for _, pkg := range pkgs {
		if pkg == nil {
			continue
		}
		if main := pkg.Func("main"); main != nil {
			mains = append(mains, main)
		}
		if init := pkg.Func("init"); init != nil {
			mains = append(mains, init)
		}
		for _, m := range pkg.Members {
			if fn, ok := m.(*ssa.Function); ok && fn.TypeParams().Len() == 0 {
				all = append(all, fn)
			}
		}
	}
	for _, pkg := range pkgs {
		if pkg != nil && pkg.Func("main") != nil {
			return mains
		}
	}
	return all
}

// deleteOnlyArtificialSyntheticNodes removes compiler-generated wrappers
// while preserving synthetic nodes that represent real function calls.
func (g *Generator) deleteOnlyArtificialSyntheticNodes(graph *callgraph.Graph) {
	initialNodeCount := len(graph.Nodes)
	if initialNodeCount == 0 {
		return
	}

	var toDelete []*callgraph.Node

	for fn, node := range graph.Nodes {
		if fn == nil || node == nil || fn.Synthetic == "" {
			continue
		}
		if fn.Pkg != nil && fn.Pkg.Pkg != nil {
			pkgPath := fn.Pkg.Pkg.Path()
			if g.config.IsStandardLibrary(pkgPath) || g.config.IsDependency(pkgPath) {
				continue
			}
		}
		if strings.Contains(fn.Synthetic, "wrapper") ||
			strings.Contains(fn.Synthetic, "bound") ||
			(fn.Name() == "bounds" && strings.Contains(fn.Synthetic, "check")) {
			toDelete = append(toDelete, node)
		}
	}

	if len(toDelete) > initialNodeCount/2 {
		g.logger.Debug("Skipping synthetic node deletion", "would_delete", len(toDelete), "nodes", initialNodeCount)
		return
	}

	for _, node := range toDelete {
		graph.DeleteNode(node)
	}
}

// FindFunctionByName returns the graph nodes whose function has the given
// short or qualified name.
func FindFunctionByName(graph *callgraph.Graph, functionName string) []*callgraph.Node {
	var matches []*callgraph.Node

	for fn, node := range graph.Nodes {
		if fn == nil {
			continue
		}
		if fn.Name() == functionName || fn.String() == functionName {
			matches = append(matches, node)
		}
	}

	return matches
}

// GetCalleesOf returns all functions called by the given function
func GetCalleesOf(node *callgraph.Node) []*callgraph.Node {
	var callees []*callgraph.Node

	for _, edge := range node.Out {
		if edge.Callee != nil {
			callees = append(callees, edge.Callee)
		}
	}

	return callees
}

func (g *Generator) generateCallGraphWithAlgorithm(prog *ssa.Program, roots []*ssa.Function) (*callgraph.Graph, error) {
	switch g.algorithm {
	case "rta":
		result := rta.Analyze(roots, true)
		if result == nil || result.CallGraph == nil {
			return nil, fmt.Errorf("RTA analysis returned nil")
		}
		return result.CallGraph, nil

	case "cha":
		graph := cha.CallGraph(prog)
		if graph == nil {
			return nil, fmt.Errorf("CHA analysis returned nil")
		}
		return graph, nil

	case "static":
		graph := static.CallGraph(prog)
		if graph == nil {
			return nil, fmt.Errorf("static analysis returned nil")
		}
		return graph, nil

	case "vta":
		rootSet := make(map[*ssa.Function]bool, len(roots))
		for _, fn := range roots {
			rootSet[fn] = true
		}
		result := vta.CallGraph(rootSet, cha.CallGraph(prog))
		if result == nil {
			return nil, fmt.Errorf("VTA analysis returned nil")
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", g.algorithm)
	}
}
