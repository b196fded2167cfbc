package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v2"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
)

func newTestWriter() *Writer {
	return NewWriter(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func u64(v uint64) *uint64 { return &v }
func i64(v int64) *int64   { return &v }

func sampleReport() *models.Report {
	return &models.Report{
		ReportVersion: "1.0",
		CreationInfo: models.CreationInfo{
			ToolName:    "accelprof",
			ToolVersion: "v0.0.0-test",
			VisitOrder:  "source",
			TargetArch:  "amd64",
		},
		PackageInfo: models.PackageInfo{Name: "kernels", Packages: []string{"test.example/kernels"}},
		Functions: []models.FunctionReport{
			{
				Name:                    "test.example/kernels.saxpy",
				Location:                &ir.Location{File: "kernels.go", Line: 12},
				InstructionCount:        14,
				NonLoopInstructionCount: 6,
				InputFootprintBits:      96,
				InputFootprintBytes:     12,
				Parameters: []models.Parameter{
					{Name: "v", Type: "*[3]int32", FootprintBits: 96, Arrays: []models.ArrayDim{{ElementType: "int32", ElementBits: 32, Length: 3}}},
				},
				Loops: []models.LoopRecord{
					{Header: "1.for.loop", Depth: 1, BackEdges: 1, TripCount: u64(3), Backedge: models.BackedgeRange{Lower: 3, Upper: 4}, Stride: i64(1)},
					{Header: "5.for.loop", Depth: 1, BackEdges: 1, Backedge: models.BackedgeRange{LowerUnbounded: true, UpperUnbounded: true}},
				},
				Calls: []models.CallEdge{
					{Callee: "test.example/kernels.scale", Resolved: true, InstructionCount: u64(4)},
					{Callee: "test.example/kernels.later"},
				},
				MemoryAccesses: []models.MemoryAccess{
					{Kind: "load", Block: "1.for.loop", Instruction: "t4 = *v", Type: "*[3]int32", FootprintBits: 96},
				},
				LoadBits: 96,
			},
			{Name: "test.example/kernels.scale", InstructionCount: 4, NonLoopInstructionCount: 4},
		},
		CallGraph: models.CallGraphInfo{Algorithm: "static", TotalFunctions: 2, TotalEdges: 1},
		Summary:   models.Summary{TotalFunctions: 2, TotalInstructions: 18, TotalLoops: 2, ConstantTripLoops: 1, MaxLoopDepth: 1},
	}
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestWriter().Encode(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatalf("Encode(json) failed: %v", err)
	}

	var decoded models.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(decoded.Functions) != 2 {
		t.Fatalf("Expected 2 functions, got %d", len(decoded.Functions))
	}
	if decoded.Functions[0].Loops[1].TripCount != nil {
		t.Errorf("Non-constant trip count should decode as null")
	}
	if !strings.Contains(buf.String(), `"trip_count": null`) {
		t.Errorf("JSON should carry an explicit null trip count:\n%s", buf.String())
	}
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestWriter().Encode(&buf, sampleReport(), FormatYAML); err != nil {
		t.Fatalf("Encode(yaml) failed: %v", err)
	}

	var decoded models.Report
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid YAML: %v", err)
	}
	if decoded.Summary.TotalInstructions != 18 {
		t.Errorf("TotalInstructions = %d, want 18", decoded.Summary.TotalInstructions)
	}
	if got := decoded.Functions[0].Parameters[0].Arrays[0].Length; got != 3 {
		t.Errorf("Array length = %d, want 3", got)
	}
}

func TestEncodeMsgpack(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestWriter().Encode(&buf, sampleReport(), FormatMsgpack); err != nil {
		t.Fatalf("Encode(msgpack) failed: %v", err)
	}

	var decoded models.Report
	if err := msgpack.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid msgpack: %v", err)
	}
	if decoded.Functions[0].Calls[0].InstructionCount == nil || *decoded.Functions[0].Calls[0].InstructionCount != 4 {
		t.Errorf("Resolved call edge lost its instruction count: %+v", decoded.Functions[0].Calls[0])
	}
}

func TestEncodeText(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestWriter().Encode(&buf, sampleReport(), FormatText); err != nil {
		t.Fatalf("Encode(text) failed: %v", err)
	}
	out := buf.String()

	expected := []string{
		"accelprof v0.0.0-test",
		"test.example/kernels.saxpy  kernels.go:12",
		"input footprint: 12 bytes (96 bits)",
		"A[3 x int32]",
		"trip 3  range [3, 4)  stride 1",
		"trip non-constant  range [-inf, +inf)  stride unavailable",
		"test.example/kernels.scale  4 instructions",
		"test.example/kernels.later  unknown",
		"1 composite accesses",
	}
	for _, want := range expected {
		if !strings.Contains(out, want) {
			t.Errorf("Text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("Text output should not contain escape codes when color is off")
	}
}

func TestEncodeTextWithColor(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(slog.New(slog.NewTextHandler(io.Discard, nil)), true)
	if err := w.Encode(&buf, sampleReport(), FormatText); err != nil {
		t.Fatalf("Encode(text) failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("Text output should contain escape codes when color is on")
	}
}

func TestEncodeDOT(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestWriter().Encode(&buf, sampleReport(), FormatDOT); err != nil {
		t.Fatalf("Encode(dot) failed: %v", err)
	}
	if !strings.Contains(buf.String(), "digraph") {
		t.Errorf("DOT output missing digraph:\n%s", buf.String())
	}
}

func TestEncodeUnsupportedFormat(t *testing.T) {
	err := newTestWriter().Encode(io.Discard, sampleReport(), "xml")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Encode(xml) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		format   string
		expected string
	}{
		{FormatJSON, "json"},
		{FormatYAML, "yaml"},
		{FormatMsgpack, "msgpack"},
		{FormatText, "txt"},
		{FormatDOT, "dot"},
	}

	for _, tt := range tests {
		if got := Extension(tt.format); got != tt.expected {
			t.Errorf("Extension(%q) = %q, want %q", tt.format, got, tt.expected)
		}
	}
}

func TestUseColor(t *testing.T) {
	tests := []struct {
		mode     string
		expected bool
	}{
		{"on", true},
		{"always", true},
		{"off", false},
		{"never", false},
		{"auto", false},
	}

	for _, tt := range tests {
		if got := UseColor(tt.mode, nil); got != tt.expected {
			t.Errorf("UseColor(%q, nil) = %v, want %v", tt.mode, got, tt.expected)
		}
	}
}

func TestWriteAllToFiles(t *testing.T) {
	dir := t.TempDir()
	targets := []Target{
		{Format: FormatJSON, Path: filepath.Join(dir, "report.json")},
		{Format: FormatYAML, Path: filepath.Join(dir, "report.yaml")},
		{Format: FormatDOT, Path: filepath.Join(dir, "out", "report.dot")},
	}

	if err := newTestWriter().WriteAll(context.Background(), sampleReport(), targets); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	for _, target := range targets {
		info, err := os.Stat(target.Path)
		if err != nil {
			t.Errorf("Expected %s to exist: %v", target.Path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("Expected %s to be non-empty", target.Path)
		}
	}
}

func TestWriteAllRejectsBadTargets(t *testing.T) {
	w := newTestWriter()

	err := w.WriteAll(context.Background(), sampleReport(), []Target{{Format: FormatJSON}, {Format: FormatText}})
	if err == nil {
		t.Error("Expected an error when two formats share stdout")
	}

	err = w.WriteAll(context.Background(), sampleReport(), []Target{{Format: "csv", Path: filepath.Join(t.TempDir(), "r.csv")}})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("WriteAll(csv) error = %v, want ErrUnsupportedFormat", err)
	}
}
