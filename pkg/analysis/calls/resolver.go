// Package calls resolves the call sites of a function against the
// instruction counts memoized in the function catalog.
package calls

import (
	"log/slog"
	"strings"

	"github.com/smith-xyz/golang-accel-profiler/pkg/catalog"
	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
)

// IndirectCallee names call edges whose target the host could not resolve.
const IndirectCallee = "<indirect>"

// Resolver turns call instructions into call edges.
type Resolver struct {
	logger   *slog.Logger
	ignored  map[string]struct{}
	prefixes []string
}

// NewResolver creates a resolver that skips the named callees and every
// callee starting with one of prefixes.
func NewResolver(logger *slog.Logger, ignored []string, prefixes []string) *Resolver {
	set := make(map[string]struct{}, len(ignored))
	for _, name := range ignored {
		set[name] = struct{}{}
	}
	return &Resolver{logger: logger, ignored: set, prefixes: prefixes}
}

// IsIgnored reports whether calls to name are left out of the report.
func (r *Resolver) IsIgnored(name string) bool {
	if _, ok := r.ignored[name]; ok {
		return true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Resolve returns one edge per non-ignored call in fn, in block and
// instruction order. A callee that has not been registered yet yields an
// unresolved edge; nothing here fails.
func (r *Resolver) Resolve(fn ir.Function, cat *catalog.Catalog) []models.CallEdge {
	edges := []models.CallEdge{}

	for _, b := range fn.Blocks() {
		for _, instr := range b.Instructions() {
			if instr.Kind() != ir.KindCall {
				continue
			}

			callee, direct := instr.Callee()
			name := instr.CalleeName()
			if direct && name == "" {
				name = callee.Name()
			}
			if r.IsIgnored(name) {
				continue
			}

			if !direct {
				if name == "" {
					name = IndirectCallee
				}
				edges = append(edges, models.CallEdge{Callee: name, Indirect: true})
				continue
			}

			edge := models.CallEdge{Callee: name}
			if rec, ok := cat.Lookup(callee); ok {
				count := rec.InstructionCount
				edge.Resolved = true
				edge.InstructionCount = &count
			} else {
				r.logger.Debug("Callee not yet visited", "caller", fn.Name(), "callee", name)
			}
			edges = append(edges, edge)
		}
	}

	return edges
}
