// Package profiler drives the per-function analyses and assembles the
// function reports and run summary.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smith-xyz/golang-accel-profiler/pkg/analysis/calls"
	"github.com/smith-xyz/golang-accel-profiler/pkg/analysis/loops"
	"github.com/smith-xyz/golang-accel-profiler/pkg/analysis/memaccess"
	"github.com/smith-xyz/golang-accel-profiler/pkg/catalog"
	"github.com/smith-xyz/golang-accel-profiler/pkg/config"
	"github.com/smith-xyz/golang-accel-profiler/pkg/footprint"
	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
	"github.com/smith-xyz/golang-accel-profiler/pkg/utils"
	"github.com/smith-xyz/golang-accel-profiler/pkg/version"
)

// ReportVersion is the schema version of models.Report.
const ReportVersion = "1.0"

var (
	// ErrNilFunction is returned when asked to profile a nil function.
	ErrNilFunction = errors.New("nil function")
	// ErrNoBody is returned for external declarations.
	ErrNoBody = errors.New("function has no body")
)

// packaged is implemented by hosts that know which package a function
// belongs to.
type packaged interface {
	Package() string
}

// Profiler produces one FunctionReport per function. The catalog it is
// given carries the instruction counts of every function profiled so far,
// which is what lets later callers resolve their call edges.
type Profiler struct {
	logger        *slog.Logger
	catalog       *catalog.Catalog
	calculator    *footprint.Calculator
	characterizer *loops.Characterizer
	resolver      *calls.Resolver
	collector     *memaccess.Collector
	config        *config.Config
	instr         *utils.Instrumentation
}

// New creates a profiler that records into cat.
func New(logger *slog.Logger, cat *catalog.Catalog, cfg *config.Config) *Profiler {
	calc := footprint.NewCalculator(logger, cfg.Footprint.OpaqueStructs)
	return &Profiler{
		logger:        logger,
		catalog:       cat,
		calculator:    calc,
		characterizer: loops.NewCharacterizer(logger),
		resolver:      calls.NewResolver(logger, cfg.Calls.IgnoredCallees, cfg.Calls.IgnoredPrefixes),
		collector:     memaccess.NewCollector(calc),
		config:        cfg,
		instr:         utils.NewInstrumentation(logger, logger.Enabled(context.Background(), slog.LevelDebug)),
	}
}

// Catalog returns the catalog the profiler records into.
func (p *Profiler) Catalog() *catalog.Catalog {
	return p.catalog
}

// ProfileFunction registers fn and analyzes it. Analyses the host cannot
// answer degrade the affected fields; they never fail the function.
func (p *Profiler) ProfileFunction(fn ir.Function, analyses ir.Analyses) (*models.FunctionReport, error) {
	if fn == nil {
		return nil, ErrNilFunction
	}
	if !fn.HasBody() {
		return nil, fmt.Errorf("%s: %w", fn.Name(), ErrNoBody)
	}

	rec := p.catalog.Register(fn)

	params := fn.Params()
	inputBits := p.calculator.InputBits(params)
	loopRes := p.characterizer.Characterize(fn, analyses)
	edges := p.resolver.Resolve(fn, p.catalog)
	mem := p.collector.Collect(fn)

	report := &models.FunctionReport{
		Name:                    rec.Name,
		InstructionCount:        rec.InstructionCount,
		NonLoopInstructionCount: loopRes.NonLoopInstructions,
		InputFootprintBits:      inputBits,
		InputFootprintBytes:     p.calculator.InputBytes(params),
		Parameters:              p.calculator.Parameters(params),
		Loops:                   loopRes.Loops,
		Calls:                   edges,
		MemoryAccesses:          mem.Accesses,
		LoadBits:                mem.LoadBits,
		StoreBits:               mem.StoreBits,
	}
	if pkg, ok := fn.(packaged); ok {
		report.Package = pkg.Package()
	}
	if loc, ok := fn.Location(); ok {
		report.Location = &loc
	}

	p.logger.Debug("Profiled function",
		"function", report.Name,
		"instructions", report.InstructionCount,
		"loops", len(report.Loops),
		"calls", len(report.Calls),
		"input_bytes", report.InputFootprintBytes)

	return report, nil
}

// ProfileAll profiles fns one after another in the given order. Functions
// without a body are skipped. analysesFor supplies the host's analyses for
// each function and may be nil.
func (p *Profiler) ProfileAll(fns []ir.Function, analysesFor func(ir.Function) ir.Analyses) (*models.Report, error) {
	report := &models.Report{
		ReportVersion: ReportVersion,
		CreationInfo: models.CreationInfo{
			Created:     time.Now().UTC().Format(time.RFC3339),
			ToolName:    version.ToolName,
			ToolVersion: version.GetVersion(),
			TargetArch:  p.config.Footprint.TargetArch,
		},
		Functions: []models.FunctionReport{},
	}

	progress := p.instr.NewProgressTracker("profile functions", len(fns))
	for _, fn := range fns {
		progress.Update(1)
		if fn == nil {
			continue
		}

		var analyses ir.Analyses
		if analysesFor != nil {
			analyses = analysesFor(fn)
		}

		fr, err := p.ProfileFunction(fn, analyses)
		if errors.Is(err, ErrNoBody) {
			p.logger.Debug("Skipping external function", "function", fn.Name())
			report.Summary.SkippedFunctions++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to profile %s: %w", fn.Name(), err)
		}
		report.Functions = append(report.Functions, *fr)
	}
	progress.Complete()

	report.Summary = Summarize(report.Functions, report.Summary.SkippedFunctions)
	return report, nil
}

// Summarize aggregates function reports into run totals.
func Summarize(fns []models.FunctionReport, skipped int) models.Summary {
	s := models.Summary{
		TotalFunctions:   len(fns),
		SkippedFunctions: skipped,
	}

	var largestInput uint64
	largestLoops := 0
	for _, fr := range fns {
		s.TotalInstructions += fr.InstructionCount
		s.NonLoopInstructions += fr.NonLoopInstructionCount
		s.TotalInputFootprintBytes += fr.InputFootprintBytes
		s.TotalLoops += len(fr.Loops)

		for _, l := range fr.Loops {
			if l.TripCount != nil {
				s.ConstantTripLoops++
			}
			if l.Depth > s.MaxLoopDepth {
				s.MaxLoopDepth = l.Depth
			}
		}
		for _, e := range fr.Calls {
			if e.Resolved {
				s.ResolvedCallEdges++
			} else {
				s.UnresolvedCallEdges++
			}
		}

		if fr.InputFootprintBytes > largestInput {
			largestInput = fr.InputFootprintBytes
			s.LargestInputFunction = fr.Name
		}
		if len(fr.Loops) > largestLoops {
			largestLoops = len(fr.Loops)
			s.LargestLoopFunction = fr.Name
		}
	}

	return s
}
