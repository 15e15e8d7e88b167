package types

import (
	"fmt"
	"strings"
)

// VarType is the tag of every value the lowering engine handles.
// Element count and float/int/bool classification are derived from the tag alone.
type VarType uint8

const (
	Invalid VarType = iota
	Void

	Bool
	Bool2
	Bool3
	Bool4
	Bool8

	Int
	Int2
	Int3
	Int4
	Int8

	Float
	Float2
	Float3
	Float4
	Float8

	Struct
	ExternType
)

var varTypeNames = [...]string{
	Invalid:    "<invalid>",
	Void:       "void",
	Bool:       "bool",
	Bool2:      "bool2",
	Bool3:      "bool3",
	Bool4:      "bool4",
	Bool8:      "bool8",
	Int:        "int",
	Int2:       "int2",
	Int3:       "int3",
	Int4:       "int4",
	Int8:       "int8",
	Float:      "float",
	Float2:     "float2",
	Float3:     "float3",
	Float4:     "float4",
	Float8:     "float8",
	Struct:     "struct",
	ExternType: "extern",
}

// String returns the source spelling of the type (float3, int, bool4...).
func (t VarType) String() string {
	if int(t) < len(varTypeNames) {
		return varTypeNames[t]
	}
	return fmt.Sprintf("VarType(%d)", uint8(t))
}

// ParseVarType maps a built-in type spelling back to its tag.
func ParseVarType(s string) (VarType, bool) {
	s = strings.TrimSpace(s)
	for i, name := range varTypeNames {
		if i == int(Invalid) {
			continue
		}
		if name == s {
			return VarType(i), true
		}
	}
	return Invalid, false
}

// widths lists the lane counts in tag order inside one scalar family.
var widths = [...]int{1, 2, 3, 4, 8}

func familyBase(t VarType) (VarType, int, bool) {
	switch {
	case t >= Bool && t <= Bool8:
		return Bool, int(t - Bool), true
	case t >= Int && t <= Int8:
		return Int, int(t - Int), true
	case t >= Float && t <= Float8:
		return Float, int(t - Float), true
	}
	return Invalid, 0, false
}

// ElementCount returns the lane count of a value type: 1, 2, 3, 4 or 8.
// Struct, extern and void values count as a single element.
func ElementCount(t VarType) int {
	if _, idx, ok := familyBase(t); ok {
		return widths[idx]
	}
	switch t {
	case Struct, ExternType:
		return 1
	case Void:
		return 0
	}
	panic(fmt.Sprintf("types: element count of %s", t))
}

// IsFloat reports whether t is float or a float vector.
func IsFloat(t VarType) bool { return t >= Float && t <= Float8 }

// IsInt reports whether t is int or an int vector. Bool is not an int.
func IsInt(t VarType) bool { return t >= Int && t <= Int8 }

// IsBool reports whether t is bool or a bool vector.
func IsBool(t VarType) bool { return t >= Bool && t <= Bool8 }

// IsBuiltIn reports whether t is spelled by a built-in keyword.
func IsBuiltIn(t VarType) bool {
	_, _, ok := familyBase(t)
	return ok || t == Void
}

// IsValueType reports whether t is a scalar or vector of a numeric or bool kind.
func IsValueType(t VarType) bool {
	_, _, ok := familyBase(t)
	return ok
}

// Scalar returns the element kind of a value type (Float3 -> Float).
func Scalar(t VarType) VarType {
	if base, _, ok := familyBase(t); ok {
		return base
	}
	return t
}

// Compose builds the vector type with elemCount lanes over the scalar kind of base.
// Undefined combinations are contract violations and panic.
func Compose(base VarType, elemCount int) VarType {
	scalar, _, ok := familyBase(base)
	if !ok {
		panic(fmt.Sprintf("types: compose over non-value type %s", base))
	}
	for i, w := range widths {
		if w == elemCount {
			return scalar + VarType(i)
		}
	}
	panic(fmt.Sprintf("types: no %s vector with %d elements", scalar, elemCount))
}

// PackedSize returns the size in bytes of t in the packed host layout:
// lanes laid end to end, bool lanes widened to 32-bit ints.
func PackedSize(t VarType) int {
	switch t {
	case Void, Invalid, Struct:
		return 0
	case ExternType:
		return 8
	}
	return 4 * ElementCount(t)
}
