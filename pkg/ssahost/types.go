package ssahost

import (
	"go/types"

	"fortio.org/safecast"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
)

// typeSystem answers layout questions for one target architecture.
type typeSystem struct {
	sizes types.Sizes
}

func newTypeSystem(arch string) *typeSystem {
	sizes := types.SizesFor("gc", arch)
	if sizes == nil {
		sizes = types.SizesFor("gc", "amd64")
	}
	return &typeSystem{sizes: sizes}
}

func (ts *typeSystem) adapt(t types.Type) ir.Type {
	if t == nil {
		return nil
	}
	return &Type{ts: ts, t: t}
}

// Type adapts a go/types type. Slices and strings are presented as the
// runtime header structs they are passed as. Maps, channels, funcs and
// interfaces are pointers to data the profiler cannot see.
type Type struct {
	ts *typeSystem
	t  types.Type
}

var opaque = types.Typ[types.Invalid]

func (ty *Type) Kind() ir.TypeKind {
	switch u := ty.t.Underlying().(type) {
	case *types.Pointer:
		return ir.TypePointer
	case *types.Struct, *types.Slice:
		return ir.TypeStruct
	case *types.Array:
		return ir.TypeArray
	case *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return ir.TypePointer
	case *types.Basic:
		switch {
		case u.Kind() == types.String:
			return ir.TypeStruct
		case u.Kind() == types.UnsafePointer:
			return ir.TypePointer
		case u.Kind() == types.Invalid, u.Info()&types.IsUntyped != 0:
			return ir.TypeOpaque
		default:
			return ir.TypeScalar
		}
	default:
		return ir.TypeOpaque
	}
}

func (ty *Type) Elem() ir.Type {
	switch u := ty.t.Underlying().(type) {
	case *types.Pointer:
		return ty.ts.adapt(u.Elem())
	case *types.Array:
		return ty.ts.adapt(u.Elem())
	case *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return ty.ts.adapt(opaque)
	case *types.Basic:
		if u.Kind() == types.UnsafePointer {
			return ty.ts.adapt(opaque)
		}
	}
	return nil
}

// StructName is the qualified type name, which keeps distinct packages'
// types apart.
func (ty *Type) StructName() string {
	if ty.Kind() != ir.TypeStruct {
		return ""
	}
	return types.TypeString(ty.t, nil)
}

func (ty *Type) Fields() []ir.Type {
	switch u := ty.t.Underlying().(type) {
	case *types.Struct:
		out := make([]ir.Type, u.NumFields())
		for i := range out {
			out[i] = ty.ts.adapt(u.Field(i).Type())
		}
		return out
	case *types.Slice:
		return []ir.Type{
			ty.ts.adapt(types.NewPointer(u.Elem())),
			ty.ts.adapt(types.Typ[types.Int]),
			ty.ts.adapt(types.Typ[types.Int]),
		}
	case *types.Basic:
		if u.Kind() == types.String {
			return []ir.Type{
				ty.ts.adapt(types.NewPointer(types.Typ[types.Byte])),
				ty.ts.adapt(types.Typ[types.Int]),
			}
		}
	}
	return nil
}

func (ty *Type) Len() uint64 {
	arr, ok := ty.t.Underlying().(*types.Array)
	if !ok {
		return 0
	}
	n, err := safecast.Conv[uint64](arr.Len())
	if err != nil {
		return 0
	}
	return n
}

func (ty *Type) Bits() uint64 {
	if ty.Kind() != ir.TypeScalar {
		return 0
	}
	n, err := safecast.Conv[uint64](ty.ts.sizes.Sizeof(ty.t))
	if err != nil {
		return 0
	}
	return n * 8
}

func (ty *Type) String() string {
	if ty.t == opaque {
		return "opaque"
	}
	return types.TypeString(ty.t, relativeName)
}

func relativeName(p *types.Package) string {
	return p.Name()
}
