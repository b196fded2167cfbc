package models

// AnalysisConfig contains the options of one profiling run
type AnalysisConfig struct {
	// Program Loading Configuration
	IncludeDependencies bool   // Profile functions outside the root module too
	TargetArch          string // GOARCH used for type sizes

	// Call Graph Configuration
	CallGraphAlgorithm string // rta, cha, static, vta
	VisitOrder         string // source, bottomup

	// Loop Analysis Configuration
	MaxSmallTripCount uint64 // Largest trip count still reported as a small constant

	// General Configuration
	Verbose bool // Enable verbose logging
}
