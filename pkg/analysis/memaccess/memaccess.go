// Package memaccess records loads and stores that move composite values.
package memaccess

import (
	"math"
	"math/bits"

	"github.com/smith-xyz/golang-accel-profiler/pkg/footprint"
	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
)

// Result is the memory traffic of one function.
type Result struct {
	Accesses  []models.MemoryAccess
	LoadBits  uint64
	StoreBits uint64
}

// Collector walks loads and stores.
type Collector struct {
	calc *footprint.Calculator
}

// NewCollector creates a collector that sizes each access with calc.
func NewCollector(calc *footprint.Calculator) *Collector {
	return &Collector{calc: calc}
}

// Collect returns one access per load or store whose pointee is a struct,
// array or vector. Scalar traffic is not recorded.
func (c *Collector) Collect(fn ir.Function) Result {
	res := Result{Accesses: []models.MemoryAccess{}}

	for _, b := range fn.Blocks() {
		for _, instr := range b.Instructions() {
			kind := instr.Kind()
			if kind != ir.KindLoad && kind != ir.KindStore {
				continue
			}

			ptr := instr.AccessType()
			if ptr == nil || ptr.Kind() != ir.TypePointer {
				continue
			}
			pointee := ptr.Elem()
			if !isComposite(pointee) {
				continue
			}

			size := c.calc.Bits(pointee)
			res.Accesses = append(res.Accesses, models.MemoryAccess{
				Kind:          kind.String(),
				Block:         b.Name(),
				Instruction:   instr.String(),
				Type:          pointee.String(),
				FootprintBits: size,
			})
			if kind == ir.KindLoad {
				res.LoadBits = addSat(res.LoadBits, size)
			} else {
				res.StoreBits = addSat(res.StoreBits, size)
			}
		}
	}

	return res
}

func isComposite(t ir.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case ir.TypeStruct, ir.TypeArray, ir.TypeVector:
		return true
	default:
		return false
	}
}

func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
