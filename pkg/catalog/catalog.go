// Package catalog memoizes per-function facts across a profiling run.
package catalog

import (
	"sync"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
)

// Record holds what the run has learned about one function.
type Record struct {
	Name             string
	InstructionCount uint64
}

// Catalog maps each function to exactly one Record. It lives for one
// analysis run and is handed to whoever needs it; there is no package-level
// instance.
type Catalog struct {
	mu      sync.RWMutex
	records map[ir.Function]*Record
	order   []ir.Function
}

// New creates an empty catalog for a fresh run.
func New() *Catalog {
	return &Catalog{records: make(map[ir.Function]*Record)}
}

// Register returns the record for fn, creating it on first sight. The
// instruction count is computed only when the record is created, so
// registering a function again neither recounts nor replaces it.
func (c *Catalog) Register(fn ir.Function) *Record {
	c.mu.RLock()
	rec, ok := c.records[fn]
	c.mu.RUnlock()
	if ok {
		return rec
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.records[fn]; ok {
		return rec
	}
	rec = &Record{
		Name:             fn.Name(),
		InstructionCount: CountInstructions(fn),
	}
	c.records[fn] = rec
	c.order = append(c.order, fn)
	return rec
}

// Lookup returns the record for fn if it has been registered.
func (c *Catalog) Lookup(fn ir.Function) (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[fn]
	return rec, ok
}

// Len returns the number of registered functions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Records returns the records in registration order.
func (c *Catalog) Records() []*Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Record, 0, len(c.order))
	for _, fn := range c.order {
		out = append(out, c.records[fn])
	}
	return out
}

// Reset forgets every record, for starting a new run with the same catalog.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[ir.Function]*Record)
	c.order = nil
}

// CountInstructions counts every instruction in every block of fn once.
func CountInstructions(fn ir.Function) uint64 {
	var n uint64
	for _, b := range fn.Blocks() {
		n += uint64(len(b.Instructions()))
	}
	return n
}
