// Package ssahost presents Go programs, compiled to SSA form with
// golang.org/x/tools, through the profiler's ir interfaces.
package ssahost

import (
	"fmt"
	"go/token"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/smith-xyz/golang-accel-profiler/pkg/config"
	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
)

// DefaultMaxSmallTripCount is the largest trip count reported as constant
// when Options leaves the limit unset.
const DefaultMaxSmallTripCount = 1<<32 - 1

// Options controls how a program is loaded and which functions are profiled.
type Options struct {
	// Dir is the directory patterns are resolved from. Empty means the
	// working directory.
	Dir string
	// Arch selects the type sizes, as a GOARCH value.
	Arch string
	// Classifier selects the user-defined packages. Nil profiles every
	// package matched by the patterns.
	Classifier *config.Classifier
	// IncludeDependencies also profiles non-standard-library packages
	// outside the root module.
	IncludeDependencies bool
	// MaxSmallTripCount bounds the trip counts reported as constants.
	MaxSmallTripCount uint64
	// Tests loads the test variants of the packages as well.
	Tests bool
}

// Program is a loaded and built SSA program.
type Program struct {
	Prog *ssa.Program
	Fset *token.FileSet
	// Packages are the packages matched by the load patterns.
	Packages []*ssa.Package

	logger *slog.Logger
	opts   Options
	types  *typeSystem

	mu       sync.Mutex
	funcs    map[*ssa.Function]*Function
	analyses map[*Function]ir.Analyses
}

// Load parses and type-checks the packages matching patterns together with
// their dependencies and builds SSA for all of them.
func Load(logger *slog.Logger, patterns []string, opts Options) (*Program, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	logger.Debug("Loading packages", "patterns", patterns, "dir", opts.Dir)

	cfg := &packages.Config{
		Mode:  packages.LoadAllSyntax | packages.NeedDeps | packages.NeedImports | packages.NeedModule,
		Fset:  token.NewFileSet(),
		Dir:   opts.Dir,
		Tests: opts.Tests,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages matched %v", patterns)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("errors encountered during package loading")
	}

	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	var initial []*ssa.Package
	for _, p := range ssaPkgs {
		if p != nil {
			initial = append(initial, p)
		}
	}
	logger.Debug("Built SSA program", "packages", len(initial))

	return NewProgram(logger, prog, initial, opts), nil
}

// NewProgram wraps an already built SSA program.
func NewProgram(logger *slog.Logger, prog *ssa.Program, pkgs []*ssa.Package, opts Options) *Program {
	if opts.Arch == "" {
		opts.Arch = "amd64"
	}
	if opts.MaxSmallTripCount == 0 {
		opts.MaxSmallTripCount = DefaultMaxSmallTripCount
	}
	return &Program{
		Prog:     prog,
		Fset:     prog.Fset,
		Packages: pkgs,
		logger:   logger,
		opts:     opts,
		types:    newTypeSystem(opts.Arch),
		funcs:    make(map[*ssa.Function]*Function),
		analyses: make(map[*Function]ir.Analyses),
	}
}

// Function returns the canonical adapter for fn.
func (p *Program) Function(fn *ssa.Function) *Function {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.funcs[fn]; ok {
		return f
	}
	f := &Function{prog: p, fn: fn}
	p.funcs[fn] = f
	return f
}

// IsProfiled reports whether functions of pkgPath belong in the report.
func (p *Program) IsProfiled(pkgPath string) bool {
	c := p.opts.Classifier
	if c == nil {
		return true
	}
	if c.IsUserDefined(pkgPath) {
		return true
	}
	return p.opts.IncludeDependencies && !c.IsStandardLibrary(pkgPath)
}

// SSAFunctions returns the profiled functions with bodies, in source order:
// by file, then by position in the file. Compiler-generated wrappers are
// left out; closures and generic instantiations are kept.
func (p *Program) SSAFunctions() []*ssa.Function {
	var out []*ssa.Function
	for fn := range ssautil.AllFunctions(p.Prog) {
		if fn == nil || len(fn.Blocks) == 0 {
			continue
		}
		if fn.Synthetic != "" && fn.Origin() == nil {
			continue
		}
		pkg := fn.Pkg
		if pkg == nil && fn.Origin() != nil {
			pkg = fn.Origin().Pkg
		}
		if pkg == nil || !p.IsProfiled(pkg.Pkg.Path()) {
			continue
		}
		out = append(out, fn)
	}

	sort.Slice(out, func(i, j int) bool {
		pi, pj := p.Fset.Position(out[i].Pos()), p.Fset.Position(out[j].Pos())
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		if pi.Offset != pj.Offset {
			return pi.Offset < pj.Offset
		}
		return out[i].String() < out[j].String()
	})
	return out
}

// Functions adapts fns in order.
func (p *Program) Functions(fns []*ssa.Function) []ir.Function {
	out := make([]ir.Function, len(fns))
	for i, fn := range fns {
		out[i] = p.Function(fn)
	}
	return out
}

// Analyses returns the loop nest and scalar evolution of fn, computing them
// on first use. Functions from other hosts get no analyses.
func (p *Program) Analyses(fn ir.Function) ir.Analyses {
	f, ok := fn.(*Function)
	if !ok || f.prog != p {
		return ir.Analyses{}
	}

	p.mu.Lock()
	a, ok := p.analyses[f]
	p.mu.Unlock()
	if ok {
		return a
	}

	nest := detectLoops(f)
	a = ir.Analyses{Loops: nest, SCEV: newEvolution(nest, p.opts.MaxSmallTripCount)}

	p.mu.Lock()
	p.analyses[f] = a
	p.mu.Unlock()
	return a
}
