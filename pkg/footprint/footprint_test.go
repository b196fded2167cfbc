package footprint

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
	"github.com/smith-xyz/golang-accel-profiler/pkg/ir/irtest"
)

func newTestCalculator() *Calculator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCalculator(logger, []string{"struct._IO_marker", "struct._IO_FILE"})
}

func TestBitsScalarsAndVectors(t *testing.T) {
	c := newTestCalculator()

	for _, w := range []uint64{1, 8, 16, 32, 64, 128} {
		if got := c.Bits(irtest.Scalar(w)); got != w {
			t.Errorf("Bits(i%d) = %d, want %d", w, got, w)
		}
		if got := c.Bits(irtest.Vector(w)); got != w {
			t.Errorf("Bits(<v%d>) = %d, want %d", w, got, w)
		}
	}

	if got := c.Bits(irtest.Scalar(0)); got != 0 {
		t.Errorf("Bits of a width-less scalar = %d, want 0", got)
	}
}

func TestBitsPointerCountsOnlyPointee(t *testing.T) {
	c := newTestCalculator()

	tests := []struct {
		name     string
		typ      ir.Type
		expected uint64
	}{
		{"pointer to i32", irtest.Pointer(irtest.Scalar(32)), 32},
		{"pointer to pointer to i8", irtest.Pointer(irtest.Pointer(irtest.Scalar(8))), 8},
		{"pointer to opaque", irtest.Pointer(irtest.Opaque()), 0},
		{"opaque", irtest.Opaque(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Bits(tt.typ); got != tt.expected {
				t.Errorf("Bits(%s) = %d, want %d", tt.typ, got, tt.expected)
			}
		})
	}
}

func TestBitsArrays(t *testing.T) {
	c := newTestCalculator()

	tests := []struct {
		name     string
		typ      ir.Type
		expected uint64
	}{
		{"flat", irtest.Array(irtest.Scalar(32), 10), 320},
		{"two dimensions", irtest.Array(irtest.Array(irtest.Scalar(16), 4), 3), 4 * 3 * 16},
		{"three dimensions", irtest.Array(irtest.Array(irtest.Array(irtest.Scalar(8), 2), 3), 5), 2 * 3 * 5 * 8},
		{"vector elements", irtest.Array(irtest.Vector(128), 4), 512},
		{"struct elements have no fixed width", irtest.Array(irtest.Struct("s", irtest.Scalar(32)), 4), 0},
		{"pointer elements have no fixed width", irtest.Array(irtest.Pointer(irtest.Scalar(32)), 4), 0},
		{"empty", irtest.Array(irtest.Scalar(32), 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Bits(tt.typ); got != tt.expected {
				t.Errorf("Bits(%s) = %d, want %d", tt.typ, got, tt.expected)
			}
		})
	}
}

func TestBitsStructSumsFields(t *testing.T) {
	c := newTestCalculator()

	point := irtest.Struct("point", irtest.Scalar(32), irtest.Scalar(32), irtest.Scalar(32))
	if got := c.Bits(point); got != 96 {
		t.Errorf("Bits(point) = %d, want 96", got)
	}

	nested := irtest.Struct("outer",
		irtest.Scalar(8),
		point,
		irtest.Array(irtest.Scalar(16), 4),
		irtest.Pointer(point),
	)
	if got, want := c.Bits(nested), uint64(8+96+64+96); got != want {
		t.Errorf("Bits(outer) = %d, want %d", got, want)
	}
}

func TestBitsBlacklistedStructIsNotUnfolded(t *testing.T) {
	c := newTestCalculator()

	marker := irtest.Struct("struct._IO_marker")
	file := irtest.Struct("struct._IO_FILE")
	// The real layouts point at each other and at themselves.
	marker.SetFields(irtest.Pointer(marker), irtest.Pointer(file), irtest.Scalar(32))
	file.SetFields(irtest.Scalar(32), irtest.Pointer(marker), irtest.Pointer(file), irtest.Array(irtest.Scalar(8), 20))

	if got := c.Bits(file); got != 0 {
		t.Errorf("Bits(struct._IO_FILE) = %d, want 0", got)
	}
	if got := c.Bits(irtest.Pointer(marker)); got != 0 {
		t.Errorf("Bits(struct._IO_marker*) = %d, want 0", got)
	}

	wrapper := irtest.Struct("stream", irtest.Scalar(64), irtest.Pointer(file))
	if got := c.Bits(wrapper); got != 64 {
		t.Errorf("Bits(stream) = %d, want 64", got)
	}
}

func TestBitsCyclicStructTerminates(t *testing.T) {
	c := newTestCalculator()

	node := irtest.Struct("node")
	node.SetFields(irtest.Scalar(32), irtest.Pointer(node))
	if got := c.Bits(node); got != 32 {
		t.Errorf("Bits(node) = %d, want 32", got)
	}

	a := irtest.Struct("a")
	b := irtest.Struct("b")
	a.SetFields(irtest.Scalar(16), irtest.Pointer(b))
	b.SetFields(irtest.Scalar(8), irtest.Pointer(a))
	if got := c.Bits(a); got != 24 {
		t.Errorf("Bits(a) = %d, want 24", got)
	}
	if got := c.Bits(b); got != 24 {
		t.Errorf("Bits(b) = %d, want 24", got)
	}
}

func TestBitsRepeatedStructIsCountedEachTime(t *testing.T) {
	c := newTestCalculator()

	pair := irtest.Struct("pair", irtest.Scalar(32), irtest.Scalar(32))
	twice := irtest.Struct("twice", pair, pair)
	if got := c.Bits(twice); got != 128 {
		t.Errorf("Bits(twice) = %d, want 128", got)
	}
}

// linkChain builds depth structs that each hold two pointers to the next,
// ending in a leaf of 32 scalar bits and a [4]i8 array.
func linkChain(depth int) *irtest.Type {
	next := irtest.Struct("leaf", irtest.Scalar(32), irtest.Array(irtest.Scalar(8), 4))
	for i := depth - 1; i >= 0; i-- {
		next = irtest.Struct(fmt.Sprintf("link%d", i), irtest.Pointer(next), irtest.Pointer(next))
	}
	return next
}

func TestBitsSharedStructsAreUnfoldedOnce(t *testing.T) {
	c := newTestCalculator()

	// A naive unfolding visits the leaf 2^depth times.
	const depth = 48
	link0 := linkChain(depth)

	want := uint64(64) << depth
	if got := c.Bits(irtest.Pointer(link0)); got != want {
		t.Errorf("Bits(link0) = %d, want %d", got, want)
	}
	if got := c.Bits(link0); got != want {
		t.Errorf("second Bits(link0) = %d, want %d", got, want)
	}
}

func TestArraysSharedStructsRepeatDimensions(t *testing.T) {
	c := newTestCalculator()

	pair := irtest.Struct("pair", linkChain(3), irtest.Array(irtest.Scalar(16), 2))
	dims := c.Arrays(pair)
	if len(dims) != 9 {
		t.Fatalf("Expected 9 array dimensions, got %d", len(dims))
	}
	for _, d := range dims[:8] {
		if d.Length != 4 || d.ElementBits != 8 {
			t.Errorf("Leaf dimension = %+v, want [4]i8", d)
		}
	}
	if dims[8].Length != 2 || dims[8].ElementBits != 16 {
		t.Errorf("Last dimension = %+v, want [2]i16", dims[8])
	}
}

func TestBitsMemoKeepsCycleResults(t *testing.T) {
	c := newTestCalculator()

	// b is reached first through a, where its pointer back to a is cut.
	// Reached from root directly, b must still unfold a.
	a := irtest.Struct("a")
	b := irtest.Struct("b")
	a.SetFields(irtest.Scalar(16), irtest.Pointer(b))
	b.SetFields(irtest.Scalar(8), irtest.Pointer(a))
	root := irtest.Struct("root", irtest.Pointer(a), irtest.Pointer(b))

	if got := c.Bits(root); got != 48 {
		t.Errorf("Bits(root) = %d, want 48", got)
	}
}

func TestInputBytes(t *testing.T) {
	c := newTestCalculator()

	point := irtest.Struct("point", irtest.Scalar(32), irtest.Scalar(32), irtest.Scalar(32))

	tests := []struct {
		name     string
		params   []ir.Param
		expected uint64
	}{
		{
			name: "two i32",
			params: []ir.Param{
				irtest.Param{PName: "a", PType: irtest.Scalar(32)},
				irtest.Param{PName: "b", PType: irtest.Scalar(32)},
			},
			expected: 8,
		},
		{
			name:     "pointer to struct of three i32",
			params:   []ir.Param{irtest.Param{PName: "p", PType: irtest.Pointer(point)}},
			expected: 12,
		},
		{
			name: "sub-byte parameters are summed before dividing",
			params: []ir.Param{
				irtest.Param{PName: "a", PType: irtest.Scalar(1)},
				irtest.Param{PName: "b", PType: irtest.Scalar(4)},
				irtest.Param{PName: "c", PType: irtest.Scalar(4)},
			},
			expected: 1,
		},
		{
			name:     "single bool rounds down",
			params:   []ir.Param{irtest.Param{PName: "flag", PType: irtest.Scalar(1)}},
			expected: 0,
		},
		{
			name:     "no parameters",
			params:   nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.InputBytes(tt.params); got != tt.expected {
				t.Errorf("InputBytes() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestParameters(t *testing.T) {
	c := newTestCalculator()

	matrix := irtest.Array(irtest.Array(irtest.Scalar(32), 4), 4)
	params := []ir.Param{
		irtest.Param{PName: "m", PType: irtest.Pointer(matrix)},
		irtest.Param{PName: "n", PType: irtest.Scalar(64)},
	}

	got := c.Parameters(params)
	if len(got) != 2 {
		t.Fatalf("Expected 2 parameters, got %d", len(got))
	}

	if got[0].Name != "m" || got[0].FootprintBits != 512 {
		t.Errorf("Parameter m = %+v, want 512 bits", got[0])
	}
	if len(got[0].Arrays) != 2 {
		t.Fatalf("Expected 2 array dimensions for m, got %d", len(got[0].Arrays))
	}
	if got[0].Arrays[0].Length != 4 || got[0].Arrays[0].ElementBits != 0 {
		t.Errorf("Outer dimension = %+v, want length 4 with unsized element", got[0].Arrays[0])
	}
	if got[0].Arrays[1].ElementBits != 32 {
		t.Errorf("Inner dimension = %+v, want 32-bit element", got[0].Arrays[1])
	}

	if got[1].FootprintBits != 64 || len(got[1].Arrays) != 0 {
		t.Errorf("Parameter n = %+v, want 64 bits and no arrays", got[1])
	}
}

func TestArraysStopsAtCycles(t *testing.T) {
	c := newTestCalculator()

	node := irtest.Struct("node")
	node.SetFields(irtest.Array(irtest.Scalar(8), 16), irtest.Pointer(node))

	dims := c.Arrays(irtest.Pointer(node))
	if len(dims) != 1 {
		t.Fatalf("Expected 1 array dimension, got %d", len(dims))
	}
	if dims[0].Length != 16 {
		t.Errorf("Length = %d, want 16", dims[0].Length)
	}
}
