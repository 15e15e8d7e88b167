package codegen

import (
	"ksc/internal/ast"
	"ksc/internal/backend"
	"ksc/internal/types"
)

// swizzle decodes the lane mask of a dot node against its object's width.
func swizzle(e *ast.Expr, d ast.DotData) []int {
	idx, n, ok := types.ConvertSwizzle(d.Field)
	if !ok {
		panic(contractf(e, "bad swizzle %q", d.Field))
	}
	width := types.ElementCount(d.Object.Type.Type)
	for _, lane := range idx[:n] {
		if lane >= width {
			panic(contractf(e, "swizzle %q out of range for %s", d.Field, d.Object.Type))
		}
	}
	return idx[:n]
}

func memberIndex(e *ast.Expr, d ast.DotData) int {
	ti := d.Object.Type
	if ti.ArrayCount > 0 {
		panic(contractf(e, "member %q of an array", d.Field))
	}
	idx := ti.Struct.MemberIndex(d.Field)
	if idx < 0 {
		panic(contractf(e, "%s has no member %q", ti, d.Field))
	}
	return idx
}

func (l *lowerer) dot(e *ast.Expr, d ast.DotData) *backend.Value {
	if d.Object.Type.Type == types.Struct {
		return l.b.Load(l.typeOf(e.Type, e), l.dotAddress(e, d).Addr)
	}
	if !types.IsValueType(d.Object.Type.Type) || d.Object.Type.ArrayCount > 0 {
		panic(contractf(e, "swizzle of %s", d.Object.Type))
	}
	mask := swizzle(e, d)
	v := l.value(d.Object)
	if types.ElementCount(d.Object.Type.Type) == 1 {
		if len(mask) == 1 {
			return v
		}
		out := backend.Undef(LLVMType(e.Type.Type))
		for i := range mask {
			out = l.b.InsertElement(out, v, backend.ConstI32(int64(i)))
		}
		return out
	}
	if len(mask) == 1 {
		return l.b.ExtractElement(v, backend.ConstI32(int64(mask[0])))
	}
	return l.b.ShuffleVector(v, backend.Undef(v.Type()), mask)
}

// dotAddress addresses a struct member through a constant field index, or
// a single swizzle lane through its vector.
func (l *lowerer) dotAddress(e *ast.Expr, d ast.DotData) ValuePtrInfo {
	obj := d.Object
	if obj.Type.Type == types.Struct {
		idx := memberIndex(e, d)
		parent := l.address(obj)
		if parent.BelongsToVector {
			panic(contractf(e, "member access on a vector lane"))
		}
		addr := l.b.GEP(l.typeOf(obj.Type, obj), parent.Addr, backend.ConstI32(0), backend.ConstI32(int64(idx)))
		return ValuePtrInfo{Addr: addr, IsFixedArray: obj.Type.Struct.Member(idx).ArrayCount > 0}
	}
	mask := swizzle(e, d)
	if len(mask) != 1 {
		panic(contractf(e, "swizzle %q is not assignable", d.Field))
	}
	parent := l.address(obj)
	if parent.BelongsToVector || parent.IsFixedArray {
		panic(contractf(e, "swizzle of a non-vector lvalue"))
	}
	if types.ElementCount(obj.Type.Type) == 1 {
		return parent
	}
	return ValuePtrInfo{Addr: parent.Addr, BelongsToVector: true, LaneIndex: mask[0]}
}

// indexAddress steps into a fixed array, or over whole elements of a
// plain address. Vector lanes cannot be indexed.
func (l *lowerer) indexAddress(e *ast.Expr, d ast.IndexData) ValuePtrInfo {
	it := d.Index.Type
	if !types.IsValueType(it.Type) || types.IsBool(it.Type) || types.ElementCount(it.Type) != 1 {
		panic(contractf(d.Index, "index of type %s", it))
	}
	idx := l.value(d.Index)
	idx = l.cast(idx, it, types.Of(types.Int), d.Index)
	parent := l.address(d.Object)
	if parent.BelongsToVector {
		panic(contractf(e, "indexing into a vector lane"))
	}
	if parent.IsFixedArray {
		addr := l.b.GEP(l.typeOf(d.Object.Type, d.Object), parent.Addr, backend.ConstI32(0), idx)
		return ValuePtrInfo{Addr: addr}
	}
	if types.ElementCount(d.Object.Type.Type) > 1 {
		panic(contractf(e, "indexing into a vector lane"))
	}
	return ValuePtrInfo{Addr: l.b.GEP(l.typeOf(e.Type, e), parent.Addr, idx)}
}
