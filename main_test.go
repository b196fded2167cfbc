package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smith-xyz/golang-accel-profiler/pkg/callgraph"
	"github.com/smith-xyz/golang-accel-profiler/pkg/config"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
	"github.com/smith-xyz/golang-accel-profiler/pkg/output"
	"github.com/smith-xyz/golang-accel-profiler/pkg/utils"
)

const testModulePath = "test.example/e2e"

func createTestModule(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	goModContent := "module " + testModulePath + "\n\ngo 1.21\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "go.mod"), []byte(goModContent), 0644); err != nil {
		t.Fatalf("Failed to write go.mod: %v", err)
	}

	mainContent := `package main

func main() {
	var v [4]float32
	scale(&v, 2)
}

func scale(v *[4]float32, k float32) {
	for i := 0; i < 4; i++ {
		v[i] *= k
	}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, "main.go"), []byte(mainContent), 0644); err != nil {
		t.Fatalf("Failed to write main.go: %v", err)
	}
	return tmpDir
}

func runTestModule(t *testing.T, order string) *runResult {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping program load in short mode")
	}

	cfg, err := config.DefaultConfig()
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	pf := profileFlags{dir: createTestModule(t), order: order}
	if err := pf.apply(cfg); err != nil {
		t.Fatalf("apply() failed: %v", err)
	}

	result, err := run(utils.DiscardLogger(), cfg, pf.runOptions(cfg, false))
	if err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	return result
}

func findFunction(t *testing.T, report *models.Report, name string) models.FunctionReport {
	t.Helper()
	for _, fn := range report.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("Function %s not in report", name)
	return models.FunctionReport{}
}

func TestRunSourceOrder(t *testing.T) {
	result := runTestModule(t, callgraph.OrderSource)
	report := result.Report

	var names []string
	for _, fn := range report.Functions {
		names = append(names, fn.Name)
	}
	if got := strings.Join(names, ","); got != testModulePath+".main,"+testModulePath+".scale" {
		t.Errorf("Functions = %s, want main then scale", got)
	}

	// scale is declared after main, so main's edge is a forward reference.
	mainFn := findFunction(t, report, testModulePath+".main")
	if len(mainFn.Calls) != 1 || mainFn.Calls[0].Callee != testModulePath+".scale" {
		t.Fatalf("main calls = %+v, want one call to scale", mainFn.Calls)
	}
	if mainFn.Calls[0].InstructionCount != nil {
		t.Errorf("Forward reference resolved to %s, want unknown", mainFn.Calls[0].InstructionCountString())
	}

	scale := findFunction(t, report, testModulePath+".scale")
	if scale.InputFootprintBytes != 20 {
		t.Errorf("scale input footprint = %d bytes, want 20", scale.InputFootprintBytes)
	}
	if len(scale.Loops) != 1 || scale.Loops[0].TripCountString() != "4" {
		t.Errorf("scale loops = %+v, want one loop with trip count 4", scale.Loops)
	}

	if report.CreationInfo.VisitOrder != callgraph.OrderSource {
		t.Errorf("VisitOrder = %q, want %q", report.CreationInfo.VisitOrder, callgraph.OrderSource)
	}
	if report.PackageInfo.Module != testModulePath || report.PackageInfo.Name != "e2e" {
		t.Errorf("PackageInfo = %+v, want module %s named e2e", report.PackageInfo, testModulePath)
	}
	if report.CallGraph.Algorithm != "static" || report.CallGraph.TotalEdges == 0 {
		t.Errorf("CallGraph = %+v, want a non-empty static graph", report.CallGraph)
	}
}

func TestRunBottomUpOrderResolvesCallees(t *testing.T) {
	result := runTestModule(t, callgraph.OrderBottomUp)
	report := result.Report

	if report.Functions[0].Name != testModulePath+".scale" {
		t.Errorf("First profiled function = %s, want scale", report.Functions[0].Name)
	}

	scale := findFunction(t, report, testModulePath+".scale")
	mainFn := findFunction(t, report, testModulePath+".main")
	if len(mainFn.Calls) != 1 || mainFn.Calls[0].InstructionCount == nil {
		t.Fatalf("main calls = %+v, want one resolved call", mainFn.Calls)
	}
	if got := *mainFn.Calls[0].InstructionCount; got != scale.InstructionCount {
		t.Errorf("main -> scale instruction count = %d, want %d", got, scale.InstructionCount)
	}
	if report.Summary.ResolvedCallEdges != 1 || report.Summary.UnresolvedCallEdges != 0 {
		t.Errorf("Summary call edges = %d/%d, want 1/0", report.Summary.ResolvedCallEdges, report.Summary.UnresolvedCallEdges)
	}
}

func TestSelectFunctions(t *testing.T) {
	result := runTestModule(t, callgraph.OrderSource)

	got := selectFunctions(result.Ordering.Functions, []string{"scale", testModulePath + ".main", "missing"})
	if len(got) != 2 {
		t.Fatalf("selectFunctions() returned %d functions, want 2", len(got))
	}
	if got[0].Name() != "main" || got[1].Name() != "scale" {
		t.Errorf("selectFunctions() = %s, %s, want main, scale", got[0].Name(), got[1].Name())
	}
	if dot := callgraph.CFGDOT(got, "e2e"); !strings.Contains(dot, "digraph") {
		t.Errorf("CFGDOT output missing digraph:\n%s", dot)
	}
}

func TestProfileFlagsApply(t *testing.T) {
	tests := []struct {
		name    string
		flags   profileFlags
		wantErr bool
		check   func(*config.Config) bool
	}{
		{
			name:  "no overrides keep the config",
			flags: profileFlags{},
			check: func(c *config.Config) bool { return c.Output.Order == "source" && c.Output.Algorithm == "static" },
		},
		{
			name:  "overrides",
			flags: profileFlags{order: "bottomup", algo: "cha", arch: "arm64"},
			check: func(c *config.Config) bool {
				return c.Output.Order == "bottomup" && c.Output.Algorithm == "cha" && c.Footprint.TargetArch == "arm64"
			},
		},
		{name: "bad order", flags: profileFlags{order: "random"}, wantErr: true},
		{name: "bad algorithm", flags: profileFlags{algo: "pointer"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.DefaultConfig()
			if err != nil {
				t.Fatalf("Failed to load default config: %v", err)
			}
			err = tt.flags.apply(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("apply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("apply() left config %+v", cfg.Output)
			}
		})
	}
}

func TestCheckDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	if err := os.WriteFile(file, []byte("package main\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{"existing directory", dir, false},
		{"missing directory", filepath.Join(dir, "missing"), true},
		{"regular file", file, true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := checkDir(tt.dir); (err != nil) != tt.wantErr {
				t.Errorf("checkDir(%q) error = %v, wantErr %v", tt.dir, err, tt.wantErr)
			}
		})
	}
}

func TestRunRejectsUnknownAlgorithm(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping program load in short mode")
	}
	cfg, err := config.DefaultConfig()
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	pf := profileFlags{dir: createTestModule(t)}
	opts := pf.runOptions(cfg, false)
	opts.Analysis.CallGraphAlgorithm = "pointer"

	if _, err := run(utils.DiscardLogger(), cfg, opts); err == nil {
		t.Errorf("run() with algorithm %q succeeded, want error", opts.Analysis.CallGraphAlgorithm)
	}
}

func TestAnalysisConfig(t *testing.T) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	ac := analysisConfig(cfg, true, true)
	if !ac.IncludeDependencies || !ac.Verbose {
		t.Errorf("analysisConfig() lost flags: %+v", ac)
	}
	if ac.MaxSmallTripCount != 4294967295 || ac.VisitOrder != "source" || ac.TargetArch != "amd64" {
		t.Errorf("analysisConfig() = %+v, want config defaults", ac)
	}
}

func TestOutputTargets(t *testing.T) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}

	targets, err := outputTargets(formatsOrDefault(nil, cfg), ".", false)
	if err != nil {
		t.Fatalf("outputTargets() failed: %v", err)
	}
	if len(targets) != 1 || targets[0].Format != output.FormatJSON || targets[0].Path != "" {
		t.Errorf("Default targets = %+v, want json on stdout", targets)
	}

	dir := createTestModule(t)
	targets, err = outputTargets([]string{output.FormatYAML, output.FormatDOT}, dir, true)
	if err != nil {
		t.Fatalf("outputTargets() failed: %v", err)
	}
	want := []string{"e2e.accelprof.yaml", "e2e.accelprof.dot"}
	for i, target := range targets {
		if target.Path != want[i] {
			t.Errorf("targets[%d].Path = %q, want %q", i, target.Path, want[i])
		}
	}
}

func TestRunExampleKernels(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping program load in short mode")
	}

	cfg, err := config.DefaultConfig()
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	pf := profileFlags{dir: ".", patterns: []string{"./examples/kernels"}, order: callgraph.OrderBottomUp}
	if err := pf.apply(cfg); err != nil {
		t.Fatalf("apply() failed: %v", err)
	}
	result, err := run(utils.DiscardLogger(), cfg, pf.runOptions(cfg, false))
	if err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	const pkg = "github.com/smith-xyz/golang-accel-profiler/examples/kernels."
	matmul := findFunction(t, result.Report, pkg+"matmul")
	if len(matmul.Loops) != 3 {
		t.Fatalf("matmul has %d loops, want 3", len(matmul.Loops))
	}
	for i, l := range matmul.Loops {
		if l.Depth != i+1 {
			t.Errorf("matmul loop %d depth = %d, want %d", i, l.Depth, i+1)
		}
	}
	if matmul.InputFootprintBytes != 3*16*16*4 {
		t.Errorf("matmul input footprint = %d bytes, want %d", matmul.InputFootprintBytes, 3*16*16*4)
	}

	// Vec3 is 96 bits, so dot takes 24 bytes.
	if got := findFunction(t, result.Report, pkg+"dot").InputFootprintBytes; got != 24 {
		t.Errorf("dot input footprint = %d bytes, want 24", got)
	}

	// The particle list re-enters Particle through Next.
	if got := findFunction(t, result.Report, pkg+"step").InputFootprintBits; got != 6*32+32 {
		t.Errorf("step input footprint = %d bits, want %d", got, 6*32+32)
	}

	energy := findFunction(t, result.Report, pkg+"energy")
	for _, c := range energy.Calls {
		if c.Callee == pkg+"dot" && c.InstructionCount == nil {
			t.Errorf("energy -> dot should resolve in bottom-up order")
		}
	}
}
