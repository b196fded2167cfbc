// Package footprint computes how many bits of data are reachable through a
// type by unfolding pointers, structs, arrays and vectors.
package footprint

import (
	"log/slog"
	"math"
	"math/bits"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
)

// Calculator computes type footprints. It holds no per-call state and can
// be shared by every function of a run.
type Calculator struct {
	logger *slog.Logger
	opaque map[string]struct{}
}

// NewCalculator creates a calculator that never unfolds the named structs.
func NewCalculator(logger *slog.Logger, opaqueStructs []string) *Calculator {
	opaque := make(map[string]struct{}, len(opaqueStructs))
	for _, name := range opaqueStructs {
		opaque[name] = struct{}{}
	}
	return &Calculator{logger: logger, opaque: opaque}
}

// IsOpaque reports whether name is a struct whose fields are never unfolded.
func (c *Calculator) IsOpaque(name string) bool {
	_, ok := c.opaque[name]
	return ok
}

// Bits returns the footprint of t in bits.
func (c *Calculator) Bits(t ir.Type) uint64 {
	return c.newWalk().bits(t)
}

// walk is the state of one unfolding. expanding holds the structs on the
// active recursion path. A struct whose subtree never re-entered the path
// has the same footprint wherever it appears, so it is memoized by name.
type walk struct {
	c         *Calculator
	expanding map[string]struct{}
	reentries int
	bitsMemo  map[string]uint64
	dimsMemo  map[string][]models.ArrayDim
}

func (c *Calculator) newWalk() *walk {
	return &walk{
		c:         c,
		expanding: make(map[string]struct{}),
		bitsMemo:  make(map[string]uint64),
		dimsMemo:  make(map[string][]models.ArrayDim),
	}
}

// enter reports whether the named struct may be unfolded and puts it on
// the recursion path.
func (w *walk) enter(name string) bool {
	if _, ok := w.expanding[name]; ok {
		w.reentries++
		return false
	}
	w.expanding[name] = struct{}{}
	return true
}

func (w *walk) bits(t ir.Type) uint64 {
	if t == nil {
		return 0
	}

	switch t.Kind() {
	case ir.TypePointer:
		// The pointer itself is not data; only what it points to is.
		return w.bits(t.Elem())

	case ir.TypeStruct:
		name := t.StructName()
		if w.c.IsOpaque(name) {
			w.c.logger.Debug("Skipping opaque struct", "struct", name)
			return 0
		}
		if name == "" {
			return w.fieldBits(t)
		}
		if total, ok := w.bitsMemo[name]; ok {
			return total
		}
		if !w.enter(name) {
			w.c.logger.Debug("Struct re-entered on recursion path", "struct", name)
			return 0
		}
		before := w.reentries
		total := w.fieldBits(t)
		delete(w.expanding, name)
		if w.reentries == before {
			w.bitsMemo[name] = total
		}
		return total

	case ir.TypeArray:
		return arrayBits(t)

	case ir.TypeVector, ir.TypeScalar:
		return t.Bits()

	default:
		return 0
	}
}

func (w *walk) fieldBits(t ir.Type) uint64 {
	var total uint64
	for _, field := range t.Fields() {
		total = addSat(total, w.bits(field))
	}
	return total
}

// arrayBits multiplies element counts through nested arrays until it
// reaches an element with a fixed width. Arrays whose innermost element
// has no fixed width (structs, pointers) contribute nothing.
func arrayBits(t ir.Type) uint64 {
	total := uint64(1)
	for t != nil && t.Kind() == ir.TypeArray {
		elem := t.Elem()
		total = mulSat(total, t.Len())
		if w := sizedWidth(elem); w > 0 {
			return mulSat(total, w)
		}
		t = elem
	}
	return 0
}

func sizedWidth(t ir.Type) uint64 {
	if t == nil {
		return 0
	}
	switch t.Kind() {
	case ir.TypeScalar, ir.TypeVector:
		return t.Bits()
	default:
		return 0
	}
}

// InputBits sums the footprints of all parameters.
func (c *Calculator) InputBits(params []ir.Param) uint64 {
	var total uint64
	for _, p := range params {
		total = addSat(total, c.Bits(p.Type()))
	}
	return total
}

// InputBytes is the aggregate parameter footprint in whole bytes. The
// division happens once over the sum, so several sub-byte parameters can
// still add up to a byte.
func (c *Calculator) InputBytes(params []ir.Param) uint64 {
	return c.InputBits(params) / 8
}

// Parameters describes each parameter with its own footprint.
func (c *Calculator) Parameters(params []ir.Param) []models.Parameter {
	out := make([]models.Parameter, 0, len(params))
	for _, p := range params {
		t := p.Type()
		typeName := "<nil>"
		if t != nil {
			typeName = t.String()
		}
		out = append(out, models.Parameter{
			Name:          p.Name(),
			Type:          typeName,
			FootprintBits: c.Bits(t),
			Arrays:        c.Arrays(t),
		})
	}
	return out
}

// Arrays lists the array dimensions reachable from t, outermost first. It
// follows the same unfolding rules as Bits.
func (c *Calculator) Arrays(t ir.Type) []models.ArrayDim {
	var dims []models.ArrayDim
	c.newWalk().arrays(t, &dims)
	return dims
}

func (w *walk) arrays(t ir.Type, dims *[]models.ArrayDim) {
	if t == nil {
		return
	}
	switch t.Kind() {
	case ir.TypePointer:
		w.arrays(t.Elem(), dims)
	case ir.TypeStruct:
		name := t.StructName()
		if w.c.IsOpaque(name) {
			return
		}
		if name == "" {
			w.fieldArrays(t, dims)
			return
		}
		if cached, ok := w.dimsMemo[name]; ok {
			*dims = append(*dims, cached...)
			return
		}
		if !w.enter(name) {
			return
		}
		before, from := w.reentries, len(*dims)
		w.fieldArrays(t, dims)
		delete(w.expanding, name)
		if w.reentries == before {
			w.dimsMemo[name] = append([]models.ArrayDim(nil), (*dims)[from:]...)
		}
	case ir.TypeArray:
		for a := t; a != nil && a.Kind() == ir.TypeArray; a = a.Elem() {
			elem := a.Elem()
			elemName := "<nil>"
			if elem != nil {
				elemName = elem.String()
			}
			width := sizedWidth(elem)
			*dims = append(*dims, models.ArrayDim{
				ElementType: elemName,
				ElementBits: width,
				Length:      a.Len(),
			})
			if width > 0 {
				return
			}
		}
	}
}

func (w *walk) fieldArrays(t ir.Type, dims *[]models.ArrayDim) {
	for _, field := range t.Fields() {
		w.arrays(field, dims)
	}
}

func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
