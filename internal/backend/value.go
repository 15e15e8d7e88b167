package backend

import (
	"fmt"
	"math"
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Val is a runtime value held in an engine register.
// Scalars use I (ints, bools as 0/1, addresses) or F (floats).
// Vectors, arrays and structs keep their lanes or fields in Elems.
type Val struct {
	I     int64
	F     float64
	Elems []Val
}

func IntVal(v int64) Val     { return Val{I: v} }
func FloatVal(f float64) Val { return Val{F: float64(float32(f))} }
func AggVal(elems ...Val) Val {
	return Val{Elems: elems}
}

func BoolVal(b bool) Val {
	if b {
		return Val{I: 1}
	}
	return Val{}
}

// Bool reports whether a predicate value is set.
func (v Val) Bool() bool { return v.I != 0 }

// Floats returns the float lanes of a vector or array value.
func (v Val) Floats() []float64 {
	out := make([]float64, len(v.Elems))
	for i, e := range v.Elems {
		out[i] = e.F
	}
	return out
}

// Ints returns the integer lanes of a vector or array value.
func (v Val) Ints() []int64 {
	out := make([]int64, len(v.Elems))
	for i, e := range v.Elems {
		out[i] = e.I
	}
	return out
}

func (v Val) clone() Val {
	if v.Elems == nil {
		return v
	}
	out := Val{Elems: make([]Val, len(v.Elems))}
	for i := range v.Elems {
		out.Elems[i] = v.Elems[i].clone()
	}
	return out
}

func (v Val) String() string {
	if v.Elems == nil {
		if v.F != 0 {
			return fmt.Sprintf("%g", v.F)
		}
		return fmt.Sprintf("%d", v.I)
	}
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Equal compares two values structurally. Floats compare bitwise so NaN lanes match.
func (v Val) Equal(o Val) bool {
	if len(v.Elems) != len(o.Elems) {
		return false
	}
	if v.Elems == nil {
		return v.I == o.I && math.Float64bits(v.F) == math.Float64bits(o.F)
	}
	for i := range v.Elems {
		if !v.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

// zeroVal builds the all-zero value of t with every aggregate level populated.
func zeroVal(t types.Type) Val {
	switch tt := t.(type) {
	case *types.VectorType:
		return repeatVal(zeroVal(tt.ElemType), tt.Len)
	case *types.ArrayType:
		return repeatVal(zeroVal(tt.ElemType), tt.Len)
	case *types.StructType:
		elems := make([]Val, len(tt.Fields))
		for i, f := range tt.Fields {
			elems[i] = zeroVal(f)
		}
		return Val{Elems: elems}
	}
	return Val{}
}

func repeatVal(elem Val, n uint64) Val {
	elems := make([]Val, n)
	for i := range elems {
		elems[i] = elem.clone()
	}
	return Val{Elems: elems}
}

type evalFn func(fr *frame) Val

// Value is an SSA value: the backend IR value plus the closure the engine
// evaluates to obtain it at run time.
type Value struct {
	ir   value.Value
	typ  types.Type
	eval evalFn
}

// IR returns the underlying LLVM IR value.
func (v *Value) IR() value.Value { return v.ir }

// Type returns the backend type of the value.
func (v *Value) Type() types.Type { return v.typ }

func (v *Value) String() string {
	if v == nil || v.ir == nil {
		return "<nil>"
	}
	return v.ir.String()
}

// IsPointer reports whether v is an address.
func (v *Value) IsPointer() bool {
	_, ok := v.typ.(*types.PointerType)
	return ok
}

func constValue(c constant.Constant, v Val) *Value {
	return &Value{ir: c, typ: c.Type(), eval: func(*frame) Val { return v }}
}

// ConstInt returns an integer immediate of type t.
func ConstInt(t *types.IntType, x int64) *Value {
	return constValue(constant.NewInt(t, x), IntVal(wrapInt(t.BitSize)(x)))
}

// ConstI32 is ConstInt over i32.
func ConstI32(x int64) *Value { return ConstInt(types.I32, x) }

// ConstFloat returns a 32-bit float immediate.
func ConstFloat(x float64) *Value {
	return constValue(constant.NewFloat(types.Float, float64(float32(x))), FloatVal(x))
}

// ConstBool returns a one-bit predicate immediate.
func ConstBool(b bool) *Value {
	return constValue(constant.NewBool(b), BoolVal(b))
}

// Undef returns the undefined value of t. The engine reads it as zero.
func Undef(t types.Type) *Value {
	return constValue(constant.NewUndef(t), zeroVal(t))
}

// Null returns the null pointer of t.
func Null(t *types.PointerType) *Value {
	return constValue(constant.NewNull(t), Val{})
}

// Zero returns the zero value of t.
func Zero(t types.Type) *Value {
	if it, ok := t.(*types.IntType); ok {
		return ConstInt(it, 0)
	}
	if t.Equal(types.Float) {
		return ConstFloat(0)
	}
	return constValue(constant.NewZeroInitializer(t), zeroVal(t))
}

// AllOnes returns the value with every bit set, splatted over vectors.
func AllOnes(t types.Type) *Value {
	if vt, ok := t.(*types.VectorType); ok {
		it := vt.ElemType.(*types.IntType)
		elems := make([]constant.Constant, vt.Len)
		for i := range elems {
			elems[i] = constant.NewInt(it, -1)
		}
		lane := IntVal(wrapInt(it.BitSize)(-1))
		return constValue(constant.NewVector(vt, elems...), repeatVal(lane, vt.Len))
	}
	it := t.(*types.IntType)
	return ConstInt(it, -1)
}

func scalarOf(t types.Type) types.Type {
	if vt, ok := t.(*types.VectorType); ok {
		return vt.ElemType
	}
	return t
}

func wrapInt(bits uint64) func(int64) int64 {
	switch bits {
	case 1:
		return func(v int64) int64 { return v & 1 }
	case 8:
		return func(v int64) int64 { return int64(int8(v)) } // #nosec G115 -- wraparound is the semantics
	case 16:
		return func(v int64) int64 { return int64(int16(v)) } // #nosec G115
	case 32:
		return func(v int64) int64 { return int64(int32(v)) } // #nosec G115
	}
	return func(v int64) int64 { return v }
}

func roundFloat(t types.Type) func(float64) float64 {
	if t.Equal(types.Double) {
		return func(f float64) float64 { return f }
	}
	return func(f float64) float64 { return float64(float32(f)) }
}
