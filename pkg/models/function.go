package models

import "github.com/smith-xyz/golang-accel-profiler/pkg/ir"

// ArrayDim is one dimension of an array reached through a parameter type
type ArrayDim struct {
	ElementType string `json:"element_type" yaml:"element_type" msgpack:"element_type"`
	ElementBits uint64 `json:"element_bits" yaml:"element_bits" msgpack:"element_bits"`
	Length      uint64 `json:"length" yaml:"length" msgpack:"length"`
}

// Parameter represents a function parameter and its data footprint
type Parameter struct {
	Name          string     `json:"name" yaml:"name" msgpack:"name"`
	Type          string     `json:"type" yaml:"type" msgpack:"type"`
	FootprintBits uint64     `json:"footprint_bits" yaml:"footprint_bits" msgpack:"footprint_bits"`
	Arrays        []ArrayDim `json:"arrays,omitempty" yaml:"arrays,omitempty" msgpack:"arrays,omitempty"`
}

// MemoryAccess is a load or store of composite data
type MemoryAccess struct {
	Kind          string `json:"kind" yaml:"kind" msgpack:"kind"` // load, store
	Block         string `json:"block" yaml:"block" msgpack:"block"`
	Instruction   string `json:"instruction" yaml:"instruction" msgpack:"instruction"`
	Type          string `json:"type" yaml:"type" msgpack:"type"`
	FootprintBits uint64 `json:"footprint_bits" yaml:"footprint_bits" msgpack:"footprint_bits"`
}

// FunctionReport is the per-function profile
type FunctionReport struct {
	Name                    string         `json:"name" yaml:"name" msgpack:"name"`
	Package                 string         `json:"package,omitempty" yaml:"package,omitempty" msgpack:"package,omitempty"`
	Location                *ir.Location   `json:"location,omitempty" yaml:"location,omitempty" msgpack:"location,omitempty"`
	InstructionCount        uint64         `json:"instruction_count" yaml:"instruction_count" msgpack:"instruction_count"`
	NonLoopInstructionCount uint64         `json:"non_loop_instruction_count" yaml:"non_loop_instruction_count" msgpack:"non_loop_instruction_count"`
	InputFootprintBits      uint64         `json:"input_footprint_bits" yaml:"input_footprint_bits" msgpack:"input_footprint_bits"`
	InputFootprintBytes     uint64         `json:"input_footprint_bytes" yaml:"input_footprint_bytes" msgpack:"input_footprint_bytes"`
	Parameters              []Parameter    `json:"parameters" yaml:"parameters" msgpack:"parameters"`
	Loops                   []LoopRecord   `json:"loops" yaml:"loops" msgpack:"loops"`
	Calls                   []CallEdge     `json:"calls" yaml:"calls" msgpack:"calls"`
	MemoryAccesses          []MemoryAccess `json:"memory_accesses" yaml:"memory_accesses" msgpack:"memory_accesses"`
	LoadBits                uint64         `json:"load_bits" yaml:"load_bits" msgpack:"load_bits"`
	StoreBits               uint64         `json:"store_bits" yaml:"store_bits" msgpack:"store_bits"`
}
