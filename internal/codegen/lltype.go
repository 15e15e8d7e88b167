package codegen

import (
	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/ast"
	"ksc/internal/types"
)

// Backend scalar types of the language.
var (
	boolType  = lltypes.I1
	intType   = lltypes.I32
	floatType = lltypes.Float
	// extern values are opaque host pointers
	externType = lltypes.NewPointer(lltypes.I8)
)

// LLVMType maps a built-in VarType to its native backend type: bool lanes
// are i1, int lanes i32, float lanes float; vectors become <N x T>.
// Struct has no fixed mapping and yields nil.
func LLVMType(vt types.VarType) lltypes.Type {
	switch vt {
	case types.Void:
		return lltypes.Void
	case types.ExternType:
		return externType
	case types.Struct, types.Invalid:
		return nil
	}
	var elem lltypes.Type
	switch {
	case types.IsBool(vt):
		elem = boolType
	case types.IsInt(vt):
		elem = intType
	default:
		elem = floatType
	}
	n := types.ElementCount(vt)
	if n == 1 {
		return elem
	}
	return lltypes.NewVector(uint64(n), elem) // #nosec G115 -- lane counts are at most 8
}

// typeOf resolves the native type of ti in scope, wrapping fixed arrays.
func (l *lowerer) typeOf(ti types.TypeInfo, e *ast.Expr) lltypes.Type {
	var t lltypes.Type
	if ti.Type == types.Struct {
		if ti.Struct == nil {
			panic(contractf(e, "struct-typed value without a definition"))
		}
		st, ok := l.arena.ResolveStructType(l.scope, ti.Struct)
		if !ok {
			panic(contractf(e, "struct %s used before its definition was lowered", ti.Struct.Name))
		}
		t = st
	} else {
		t = LLVMType(ti.Type)
		if t == nil {
			panic(contractf(e, "no backend type for %s", ti))
		}
	}
	if ti.ArrayCount > 0 {
		t = lltypes.NewArray(uint64(ti.ArrayCount), t) // #nosec G115 -- array counts are positive
	}
	return t
}
