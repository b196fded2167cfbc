package main

import (
	"log/slog"
	"path"

	gocallgraph "golang.org/x/tools/go/callgraph"

	"github.com/smith-xyz/golang-accel-profiler/pkg/callgraph"
	"github.com/smith-xyz/golang-accel-profiler/pkg/catalog"
	"github.com/smith-xyz/golang-accel-profiler/pkg/config"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
	"github.com/smith-xyz/golang-accel-profiler/pkg/profiler"
	"github.com/smith-xyz/golang-accel-profiler/pkg/ssahost"
	"github.com/smith-xyz/golang-accel-profiler/pkg/utils"
)

// runOptions are the inputs of one profiling run.
type runOptions struct {
	Analysis models.AnalysisConfig
	Patterns []string
	Dir      string
	Tests    bool
}

// analysisConfig merges the config file settings into an AnalysisConfig.
// Command line overrides are applied to cfg before this is called.
func analysisConfig(cfg *config.Config, includeDeps, verbose bool) models.AnalysisConfig {
	return models.AnalysisConfig{
		IncludeDependencies: includeDeps,
		TargetArch:          cfg.Footprint.TargetArch,
		CallGraphAlgorithm:  cfg.Output.Algorithm,
		VisitOrder:          cfg.Output.Order,
		MaxSmallTripCount:   cfg.Loops.MaxSmallTripCount,
		Verbose:             verbose,
	}
}

// runResult is everything a command may render.
type runResult struct {
	Report   *models.Report
	Program  *ssahost.Program
	Graph    *gocallgraph.Graph
	Ordering callgraph.Ordering
}

// run loads the program, builds its call graph, orders the profiled
// functions and profiles them.
func run(logger *slog.Logger, cfg *config.Config, opts runOptions) (*runResult, error) {
	instr := utils.NewInstrumentation(logger, opts.Analysis.Verbose)
	phases := instr.NewPhaseTracker("profile run")

	rootModule, err := utils.ReadModulePath(opts.Dir)
	if err != nil {
		logger.Warn("Could not determine the root module; profiling every non-dependency package", "error", err)
		rootModule = ""
	}

	phases.StartPhase("load")
	prog, err := utils.Timed(instr, "load packages", func() (*ssahost.Program, error) {
		return ssahost.Load(logger, opts.Patterns, ssahost.Options{
			Dir:                 opts.Dir,
			Arch:                opts.Analysis.TargetArch,
			Classifier:          config.NewClassifier(cfg, rootModule),
			IncludeDependencies: opts.Analysis.IncludeDependencies,
			MaxSmallTripCount:   opts.Analysis.MaxSmallTripCount,
			Tests:               opts.Tests,
		})
	})
	if err != nil {
		return nil, err
	}

	phases.StartPhase("callgraph")
	gen := callgraph.NewGenerator(logger, cfg)
	err = instr.TimedOperation("select call graph algorithm", func() error {
		return gen.SetAlgorithm(opts.Analysis.CallGraphAlgorithm)
	})
	if err != nil {
		return nil, err
	}
	graph, err := utils.Timed(instr, "build call graph", func() (*gocallgraph.Graph, error) {
		return gen.Build(prog.Prog, prog.Packages)
	})
	if err != nil {
		return nil, err
	}

	phases.StartPhase("order")
	var ordering callgraph.Ordering
	err = instr.TimedOperation("order functions", func() error {
		var err error
		ordering, err = callgraph.VisitOrder(prog.SSAFunctions(), graph, opts.Analysis.VisitOrder)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Ordered functions", "order", opts.Analysis.VisitOrder, "functions", len(ordering.Functions), "cyclic_sccs", ordering.CyclicSCCs)

	phases.StartPhase("profile")
	p := profiler.New(logger, catalog.New(), cfg)
	report, err := utils.Timed(instr, "profile functions", func() (*models.Report, error) {
		return p.ProfileAll(prog.Functions(ordering.Functions), prog.Analyses)
	})
	if err != nil {
		return nil, err
	}
	phases.Complete(len(report.Functions))

	report.CreationInfo.VisitOrder = opts.Analysis.VisitOrder
	report.PackageInfo = packageInfo(rootModule, opts.Dir, prog)
	report.CallGraph = models.CallGraphInfo{
		Algorithm:      gen.GetAlgorithm(),
		TotalFunctions: len(graph.Nodes),
		TotalEdges:     countEdges(graph),
		CyclicSCCs:     ordering.CyclicSCCs,
	}

	logger.Info("Profiled program",
		"functions", report.Summary.TotalFunctions,
		"loops", report.Summary.TotalLoops,
		"unresolved_calls", report.Summary.UnresolvedCallEdges)

	return &runResult{Report: report, Program: prog, Graph: graph, Ordering: ordering}, nil
}

func packageInfo(rootModule, dir string, prog *ssahost.Program) models.PackageInfo {
	info := models.PackageInfo{Module: rootModule, Packages: []string{}}
	for _, p := range prog.Packages {
		info.Packages = append(info.Packages, p.Pkg.Path())
	}
	switch {
	case rootModule != "":
		info.Name = path.Base(rootModule)
	case len(info.Packages) == 1:
		info.Name = info.Packages[0]
	default:
		info.Name = dir
	}
	return info
}

func countEdges(graph *gocallgraph.Graph) int {
	total := 0
	for _, node := range graph.Nodes {
		total += len(node.Out)
	}
	return total
}

func formatsOrDefault(formats []string, cfg *config.Config) []string {
	if len(formats) == 0 {
		return []string{cfg.Output.Format}
	}
	return formats
}
