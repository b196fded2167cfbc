// Package ir declares the read-only program model the profiler consumes.
//
// A host compiler (or an adapter over one) implements these interfaces; the
// analysis packages never construct or mutate program entities themselves.
// Implementations must hand out canonical, comparable handles: the same
// function, block or loop must always be represented by the same value so
// it can be used as a map key.
package ir

import "fmt"

// InstrKind discriminates the instructions the profiler cares about.
type InstrKind int

const (
	KindOther InstrKind = iota
	KindLoad
	KindStore
	KindCall
)

func (k InstrKind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindStore:
		return "store"
	case KindCall:
		return "call"
	default:
		return "other"
	}
}

// TypeKind is the closed set of type variants the footprint calculator understands.
type TypeKind int

const (
	TypeOpaque TypeKind = iota
	TypePointer
	TypeStruct
	TypeArray
	TypeVector
	TypeScalar
)

func (k TypeKind) String() string {
	switch k {
	case TypePointer:
		return "pointer"
	case TypeStruct:
		return "struct"
	case TypeArray:
		return "array"
	case TypeVector:
		return "vector"
	case TypeScalar:
		return "scalar"
	default:
		return "opaque"
	}
}

// Type is a transient view of one node of the host's type system.
// Accessors that do not apply to the node's Kind return zero values.
type Type interface {
	Kind() TypeKind
	// Elem is the pointee of a pointer or the element of an array.
	Elem() Type
	StructName() string
	Fields() []Type
	// Len is the element count of an array.
	Len() uint64
	// Bits is the fixed width of a scalar or vector, 0 when unknown.
	Bits() uint64
	String() string
}

// Function is a function of the analyzed program.
type Function interface {
	Name() string
	// HasBody reports whether the function has a body (externals do not).
	HasBody() bool
	Blocks() []Block
	Params() []Param
	// Location returns debug metadata when the host has any.
	Location() (Location, bool)
}

// Block is a basic block: straight-line code with one entry and one exit.
type Block interface {
	Name() string
	Instructions() []Instruction
}

// Instruction is a single IR instruction.
type Instruction interface {
	Kind() InstrKind
	// Callee resolves a direct call target. Indirect calls and
	// non-call instructions return false.
	Callee() (Function, bool)
	// CalleeName names the call target, even when Callee cannot resolve it.
	CalleeName() string
	// AccessType is the type of the pointer operand of a load or store.
	AccessType() Type
	String() string
}

// Param is a formal parameter of a function.
type Param interface {
	Name() string
	Type() Type
}

// Location is the debug metadata attached to a function.
type Location struct {
	File      string `json:"file" yaml:"file" msgpack:"file"`
	Dir       string `json:"dir" yaml:"dir" msgpack:"dir"`
	Line      int    `json:"line" yaml:"line" msgpack:"line"`
	ScopeLine int    `json:"scope_line" yaml:"scope_line" msgpack:"scope_line"`
}

// Loop is a natural loop discovered by the host's loop-nest detector.
type Loop interface {
	Header() Block
	// Depth is 1 for outermost loops.
	Depth() int
	NumBackEdges() int
}

// LoopInfo is the host's loop-nest view of one function.
type LoopInfo interface {
	// LoopFor returns the innermost loop containing b.
	LoopFor(b Block) (Loop, bool)
}

// Expr is a symbolic expression produced by the scalar evolution analysis.
type Expr interface {
	String() string
}

// Range is a signed interval with an exclusive upper bound. Either side may
// be unbounded, in which case its numeric value is meaningless.
type Range struct {
	Lower          int64
	Upper          int64
	LowerUnbounded bool
	UpperUnbounded bool
}

// FullRange is the range that carries no information.
func FullRange() Range {
	return Range{LowerUnbounded: true, UpperUnbounded: true}
}

// ConstantRange is the single-value range [v, v+1).
func ConstantRange(v int64) Range {
	return Range{Lower: v, Upper: v + 1}
}

func (r Range) String() string {
	lo, hi := "-inf", "+inf"
	if !r.LowerUnbounded {
		lo = fmt.Sprintf("%d", r.Lower)
	}
	if !r.UpperUnbounded {
		hi = fmt.Sprintf("%d", r.Upper)
	}
	return "[" + lo + ", " + hi + ")"
}

// ScalarEvolution is the host's symbolic trip-count and range analysis.
type ScalarEvolution interface {
	// SmallConstantTripCount returns the exact number of iterations when it
	// is a small compile-time constant.
	SmallConstantTripCount(l Loop) (uint64, bool)
	BackedgeTakenCount(l Loop) Expr
	SignedRange(e Expr) Range
}

// Analyses bundles the per-function analysis views supplied by the host.
// Either field may be nil when the host has no such analysis.
type Analyses struct {
	Loops LoopInfo
	SCEV  ScalarEvolution
}
