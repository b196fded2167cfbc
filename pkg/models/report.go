package models

// Report is the complete output of one profiling run
type Report struct {
	ReportVersion string           `json:"report_version" yaml:"report_version" msgpack:"report_version"`
	CreationInfo  CreationInfo     `json:"creation_info" yaml:"creation_info" msgpack:"creation_info"`
	PackageInfo   PackageInfo      `json:"package_info" yaml:"package_info" msgpack:"package_info"`
	Functions     []FunctionReport `json:"functions" yaml:"functions" msgpack:"functions"`
	CallGraph     CallGraphInfo    `json:"call_graph" yaml:"call_graph" msgpack:"call_graph"`
	Summary       Summary          `json:"summary" yaml:"summary" msgpack:"summary"`
}

// CreationInfo contains metadata about report generation
type CreationInfo struct {
	Created     string `json:"created" yaml:"created" msgpack:"created"`
	ToolName    string `json:"tool_name" yaml:"tool_name" msgpack:"tool_name"`
	ToolVersion string `json:"tool_version" yaml:"tool_version" msgpack:"tool_version"`
	VisitOrder  string `json:"visit_order" yaml:"visit_order" msgpack:"visit_order"`
	TargetArch  string `json:"target_arch" yaml:"target_arch" msgpack:"target_arch"`
}

// PackageInfo describes the analyzed program
type PackageInfo struct {
	Name     string   `json:"name" yaml:"name" msgpack:"name"`
	Module   string   `json:"module,omitempty" yaml:"module,omitempty" msgpack:"module,omitempty"`
	Packages []string `json:"packages" yaml:"packages" msgpack:"packages"`
}

// Summary aggregates the per-function reports of a run
type Summary struct {
	TotalFunctions           int    `json:"total_functions" yaml:"total_functions" msgpack:"total_functions"`
	SkippedFunctions         int    `json:"skipped_functions" yaml:"skipped_functions" msgpack:"skipped_functions"`
	TotalInstructions        uint64 `json:"total_instructions" yaml:"total_instructions" msgpack:"total_instructions"`
	NonLoopInstructions      uint64 `json:"non_loop_instructions" yaml:"non_loop_instructions" msgpack:"non_loop_instructions"`
	TotalLoops               int    `json:"total_loops" yaml:"total_loops" msgpack:"total_loops"`
	ConstantTripLoops        int    `json:"constant_trip_loops" yaml:"constant_trip_loops" msgpack:"constant_trip_loops"`
	MaxLoopDepth             int    `json:"max_loop_depth" yaml:"max_loop_depth" msgpack:"max_loop_depth"`
	ResolvedCallEdges        int    `json:"resolved_call_edges" yaml:"resolved_call_edges" msgpack:"resolved_call_edges"`
	UnresolvedCallEdges      int    `json:"unresolved_call_edges" yaml:"unresolved_call_edges" msgpack:"unresolved_call_edges"`
	TotalInputFootprintBytes uint64 `json:"total_input_footprint_bytes" yaml:"total_input_footprint_bytes" msgpack:"total_input_footprint_bytes"`
	LargestInputFunction     string `json:"largest_input_function,omitempty" yaml:"largest_input_function,omitempty" msgpack:"largest_input_function,omitempty"`
	LargestLoopFunction      string `json:"largest_loop_function,omitempty" yaml:"largest_loop_function,omitempty" msgpack:"largest_loop_function,omitempty"`
}
