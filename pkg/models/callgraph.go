package models

import "fmt"

// CallGraphInfo contains call graph statistics
type CallGraphInfo struct {
	Algorithm      string `json:"algorithm" yaml:"algorithm" msgpack:"algorithm"`
	TotalFunctions int    `json:"total_functions" yaml:"total_functions" msgpack:"total_functions"`
	TotalEdges     int    `json:"total_edges" yaml:"total_edges" msgpack:"total_edges"`
	CyclicSCCs     int    `json:"cyclic_sccs" yaml:"cyclic_sccs" msgpack:"cyclic_sccs"` // recursion groups; forward references inside them stay unknown
}

// CallEdge is a call site resolved against the function catalog
type CallEdge struct {
	Callee           string  `json:"callee" yaml:"callee" msgpack:"callee"`
	Resolved         bool    `json:"resolved" yaml:"resolved" msgpack:"resolved"`
	Indirect         bool    `json:"indirect,omitempty" yaml:"indirect,omitempty" msgpack:"indirect,omitempty"`
	InstructionCount *uint64 `json:"instruction_count" yaml:"instruction_count" msgpack:"instruction_count"` // nil: unknown
}

// InstructionCountString renders the callee's instruction count, or "unknown".
func (e CallEdge) InstructionCountString() string {
	if e.InstructionCount == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *e.InstructionCount)
}
