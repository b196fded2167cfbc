package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
)

// UseColor resolves a color mode (auto, on, off) for f.
func UseColor(mode string, f *os.File) bool {
	switch mode {
	case "on", "always":
		return true
	case "off", "never":
		return false
	default:
		return f != nil && term.IsTerminal(int(f.Fd()))
	}
}

type palette struct {
	title   *color.Color
	name    *color.Color
	label   *color.Color
	good    *color.Color
	warn    *color.Color
	numeric *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		title:   color.New(color.FgMagenta, color.Bold),
		name:    color.New(color.FgCyan, color.Bold),
		label:   color.New(color.Faint),
		good:    color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		numeric: color.New(color.FgBlue, color.Bold),
	}
	for _, c := range []*color.Color{p.title, p.name, p.label, p.good, p.warn, p.numeric} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func renderText(w io.Writer, report *models.Report, useColor bool) error {
	p := newPalette(useColor)
	out := &textWriter{w: w}

	info := report.CreationInfo
	out.printf("%s %s  %s\n", p.title.Sprint(info.ToolName), info.ToolVersion,
		p.label.Sprintf("arch=%s order=%s", info.TargetArch, info.VisitOrder))
	if report.PackageInfo.Name != "" {
		out.printf("%s %s\n", p.label.Sprint("package:"), report.PackageInfo.Name)
	}
	out.printf("\n")

	for _, fn := range report.Functions {
		writeFunction(out, p, fn)
	}

	s := report.Summary
	out.printf("%s\n", p.title.Sprint("Summary"))
	out.printf("  %s %s profiled, %d skipped\n", p.label.Sprint("functions:"), p.numeric.Sprint(s.TotalFunctions), s.SkippedFunctions)
	out.printf("  %s %s total, %d outside loops\n", p.label.Sprint("instructions:"), p.numeric.Sprint(s.TotalInstructions), s.NonLoopInstructions)
	out.printf("  %s %s, %d with constant trip count, max depth %d\n", p.label.Sprint("loops:"), p.numeric.Sprint(s.TotalLoops), s.ConstantTripLoops, s.MaxLoopDepth)
	out.printf("  %s %s resolved, %s unresolved\n", p.label.Sprint("call edges:"), p.good.Sprint(s.ResolvedCallEdges), p.warn.Sprint(s.UnresolvedCallEdges))
	out.printf("  %s %s bytes\n", p.label.Sprint("input footprint:"), p.numeric.Sprint(s.TotalInputFootprintBytes))
	if s.LargestInputFunction != "" {
		out.printf("  %s %s\n", p.label.Sprint("largest input:"), s.LargestInputFunction)
	}
	if s.LargestLoopFunction != "" {
		out.printf("  %s %s\n", p.label.Sprint("most loops:"), s.LargestLoopFunction)
	}
	if report.CallGraph.Algorithm != "" {
		out.printf("  %s %s, %d nodes, %d edges, %d cyclic components\n", p.label.Sprint("call graph:"),
			report.CallGraph.Algorithm, report.CallGraph.TotalFunctions, report.CallGraph.TotalEdges, report.CallGraph.CyclicSCCs)
	}
	return out.err
}

func writeFunction(out *textWriter, p palette, fn models.FunctionReport) {
	where := ""
	if fn.Location != nil {
		where = p.label.Sprintf("  %s:%d", fn.Location.File, fn.Location.Line)
	}
	out.printf("%s%s\n", p.name.Sprint(fn.Name), where)
	out.printf("  %s %s (%d outside loops)\n", p.label.Sprint("instructions:"), p.numeric.Sprint(fn.InstructionCount), fn.NonLoopInstructionCount)
	out.printf("  %s %s bytes (%d bits)\n", p.label.Sprint("input footprint:"), p.numeric.Sprint(fn.InputFootprintBytes), fn.InputFootprintBits)

	for _, param := range fn.Parameters {
		out.printf("    %s %s  %d bits%s\n", param.Name, param.Type, param.FootprintBits, arraySuffix(param.Arrays))
	}

	if len(fn.Loops) > 0 {
		out.printf("  %s\n", p.label.Sprint("loops:"))
	}
	for _, l := range fn.Loops {
		trip := p.good.Sprint(l.TripCountString())
		if l.TripCount == nil {
			trip = p.warn.Sprint(l.TripCountString())
		}
		out.printf("    %s  depth %d  back edges %d  trip %s  range %s  stride %s\n",
			l.Header, l.Depth, l.BackEdges, trip, rangeString(l.Backedge), l.StrideString())
	}

	if len(fn.Calls) > 0 {
		out.printf("  %s\n", p.label.Sprint("calls:"))
	}
	for _, c := range fn.Calls {
		count := p.good.Sprintf("%s instructions", c.InstructionCountString())
		if !c.Resolved {
			count = p.warn.Sprint(c.InstructionCountString())
		}
		out.printf("    %s  %s\n", c.Callee, count)
	}

	if len(fn.MemoryAccesses) > 0 {
		out.printf("  %s %d composite accesses, %d bits loaded, %d bits stored\n",
			p.label.Sprint("memory:"), len(fn.MemoryAccesses), fn.LoadBits, fn.StoreBits)
	}
	out.printf("\n")
}

func arraySuffix(dims []models.ArrayDim) string {
	if len(dims) == 0 {
		return ""
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprintf("%d x %s", d.Length, d.ElementType)
	}
	return "  A[" + strings.Join(parts, "; ") + "]"
}

func rangeString(r models.BackedgeRange) string {
	lo, hi := "-inf", "+inf"
	if !r.LowerUnbounded {
		lo = fmt.Sprintf("%d", r.Lower)
	}
	if !r.UpperUnbounded {
		hi = fmt.Sprintf("%d", r.Upper)
	}
	return "[" + lo + ", " + hi + ")"
}
