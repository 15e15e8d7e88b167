package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/backend"
)

// ToPackedType maps a native type to its packed host layout: vectors become
// arrays, bool lanes widen to i32, aggregates are packed member by member
// and pointers point at the packed pointee. A type that needs no change is
// returned as is, so identity comparison tells whether packing is needed.
func ToPackedType(t lltypes.Type) lltypes.Type {
	switch tt := t.(type) {
	case *lltypes.PointerType:
		elem := ToPackedType(tt.ElemType)
		if elem == tt.ElemType {
			return t
		}
		return lltypes.NewPointer(elem)
	case *lltypes.VectorType:
		return lltypes.NewArray(tt.Len, packedScalar(tt.ElemType))
	case *lltypes.ArrayType:
		elem := ToPackedType(tt.ElemType)
		if elem == tt.ElemType {
			return t
		}
		return lltypes.NewArray(tt.Len, elem)
	case *lltypes.StructType:
		changed := false
		fields := make([]lltypes.Type, len(tt.Fields))
		for i, f := range tt.Fields {
			fields[i] = ToPackedType(f)
			changed = changed || fields[i] != f
		}
		if !changed {
			return t
		}
		return lltypes.NewStruct(fields...)
	}
	return packedScalar(t)
}

func packedScalar(t lltypes.Type) lltypes.Type {
	if isBool(t) {
		return intType
	}
	return t
}

func isBool(t lltypes.Type) bool {
	it, ok := t.(*lltypes.IntType)
	return ok && it.BitSize == 1
}

// NeedsPacking reports whether t differs from its packed form.
func NeedsPacking(t lltypes.Type) bool {
	return ToPackedType(t) != t
}

func pointee(v *backend.Value) lltypes.Type {
	pt, ok := v.Type().(*lltypes.PointerType)
	if !ok {
		panic(ContractError{Msg: fmt.Sprintf("expected an address, got %s", v.Type())})
	}
	return pt.ElemType
}

// widen turns an i1 lane into the i32 0 or 1.
func widen(b *backend.Builder, v *backend.Value) *backend.Value {
	return b.Select(v, backend.ConstI32(1), backend.ConstI32(0))
}

// PackValue stores a native value into packed memory at dest. A src
// address is loaded first; below the top level pointers are plain values.
func PackValue(b *backend.Builder, src, dest *backend.Value) {
	if src.IsPointer() {
		src = b.Load(pointee(src), src)
	}
	packInto(b, src, dest)
}

func packInto(b *backend.Builder, v, dest *backend.Value) {
	destTy := pointee(dest)
	switch vt := v.Type().(type) {
	case *lltypes.VectorType:
		for i := uint64(0); i < vt.Len; i++ {
			idx := backend.ConstI32(int64(i)) // #nosec G115 -- lane index
			lane := b.ExtractElement(v, idx)
			if isBool(vt.ElemType) {
				lane = widen(b, lane)
			}
			b.Store(lane, b.GEP(destTy, dest, backend.ConstI32(0), idx))
		}
	case *lltypes.ArrayType:
		for i := uint64(0); i < vt.Len; i++ {
			packInto(b, b.ExtractValue(v, i), b.GEP(destTy, dest, backend.ConstI32(0), backend.ConstI32(int64(i)))) // #nosec G115
		}
	case *lltypes.StructType:
		for i := range vt.Fields {
			packInto(b, b.ExtractValue(v, uint64(i)), b.GEP(destTy, dest, backend.ConstI32(0), backend.ConstI32(int64(i))))
		}
	default:
		if isBool(vt) {
			v = widen(b, v)
		}
		b.Store(v, dest)
	}
}

// UnpackValue rebuilds a native value of destType from packed src. For a
// src address the result is the address of a fresh native slot; otherwise
// it is the native value itself. A pointer destType names the slot type.
func UnpackValue(b *backend.Builder, src *backend.Value, destType lltypes.Type) *backend.Value {
	if !src.IsPointer() {
		return unpackFrom(b, src, destType)
	}
	if pt, ok := destType.(*lltypes.PointerType); ok {
		destType = pt.ElemType
	}
	slot := b.Alloca(destType, "")
	b.Store(unpackFrom(b, b.Load(pointee(src), src), destType), slot)
	return slot
}

func unpackFrom(b *backend.Builder, v *backend.Value, t lltypes.Type) *backend.Value {
	mismatch := func() {
		panic(ContractError{Msg: fmt.Sprintf("unpacking %s from %s", t, v.Type())})
	}
	switch tt := t.(type) {
	case *lltypes.VectorType:
		if _, ok := v.Type().(*lltypes.ArrayType); !ok {
			mismatch()
		}
		vec := backend.Undef(tt)
		for i := uint64(0); i < tt.Len; i++ {
			lane := b.ExtractValue(v, i)
			if isBool(tt.ElemType) {
				lane = b.ICmp(enum.IPredNE, lane, backend.ConstI32(0))
			}
			vec = b.InsertElement(vec, lane, backend.ConstI32(int64(i))) // #nosec G115
		}
		return vec
	case *lltypes.ArrayType:
		if _, ok := v.Type().(*lltypes.ArrayType); !ok {
			mismatch()
		}
		out := backend.Undef(tt)
		for i := uint64(0); i < tt.Len; i++ {
			out = b.InsertValue(out, unpackFrom(b, b.ExtractValue(v, i), tt.ElemType), i)
		}
		return out
	case *lltypes.StructType:
		if st, ok := v.Type().(*lltypes.StructType); !ok || len(st.Fields) != len(tt.Fields) {
			mismatch()
		}
		out := backend.Undef(tt)
		for i, f := range tt.Fields {
			out = b.InsertValue(out, unpackFrom(b, b.ExtractValue(v, uint64(i)), f), uint64(i))
		}
		return out
	}
	if isBool(t) {
		return b.ICmp(enum.IPredNE, v, backend.ConstI32(0))
	}
	if !v.Type().Equal(t) {
		mismatch()
	}
	return v
}
