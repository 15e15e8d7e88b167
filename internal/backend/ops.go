package backend

import (
	"fmt"
	"math"

	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// lanes applies f to scalars directly and to vectors lane by lane.
func lanes(x, y Val, f func(a, b Val) Val) Val {
	if x.Elems == nil {
		return f(x, y)
	}
	out := Val{Elems: make([]Val, len(x.Elems))}
	for i := range x.Elems {
		out.Elems[i] = f(x.Elems[i], y.Elems[i])
	}
	return out
}

func lanes1(x Val, f func(a Val) Val) Val {
	if x.Elems == nil {
		return f(x)
	}
	out := Val{Elems: make([]Val, len(x.Elems))}
	for i := range x.Elems {
		out.Elems[i] = f(x.Elems[i])
	}
	return out
}

func (b *Builder) binary(inst value.Value, x, y *Value, f func(a, b Val) Val) *Value {
	xv, yv := x.eval, y.eval
	return b.define(b.cur, inst, func(fr *frame) Val { return lanes(xv(fr), yv(fr), f) })
}

func floatOp(t types.Type, op func(a, b float64) float64) func(a, b Val) Val {
	round := roundFloat(scalarOf(t))
	return func(a, b Val) Val { return Val{F: round(op(a.F, b.F))} }
}

func intOp(t types.Type, op func(a, b int64) int64) func(a, b Val) Val {
	wrap := wrapInt(scalarOf(t).(*types.IntType).BitSize)
	return func(a, b Val) Val { return IntVal(wrap(op(a.I, b.I))) }
}

func (b *Builder) FAdd(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewFAdd(x.ir, y.ir), x, y, floatOp(x.typ, func(a, b float64) float64 { return a + b }))
}

func (b *Builder) FSub(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewFSub(x.ir, y.ir), x, y, floatOp(x.typ, func(a, b float64) float64 { return a - b }))
}

func (b *Builder) FMul(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewFMul(x.ir, y.ir), x, y, floatOp(x.typ, func(a, b float64) float64 { return a * b }))
}

func (b *Builder) FDiv(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewFDiv(x.ir, y.ir), x, y, floatOp(x.typ, func(a, b float64) float64 { return a / b }))
}

func (b *Builder) Add(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewAdd(x.ir, y.ir), x, y, intOp(x.typ, func(a, b int64) int64 { return a + b }))
}

func (b *Builder) Sub(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewSub(x.ir, y.ir), x, y, intOp(x.typ, func(a, b int64) int64 { return a - b }))
}

func (b *Builder) Mul(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewMul(x.ir, y.ir), x, y, intOp(x.typ, func(a, b int64) int64 { return a * b }))
}

// SDiv is signed division; a zero divisor traps.
func (b *Builder) SDiv(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewSDiv(x.ir, y.ir), x, y, intOp(x.typ, func(a, b int64) int64 {
		if b == 0 {
			panic(trapf("integer division by zero"))
		}
		return a / b
	}))
}

func (b *Builder) And(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewAnd(x.ir, y.ir), x, y, intOp(x.typ, func(a, b int64) int64 { return a & b }))
}

func (b *Builder) Or(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewOr(x.ir, y.ir), x, y, intOp(x.typ, func(a, b int64) int64 { return a | b }))
}

func (b *Builder) Xor(x, y *Value) *Value {
	blk := b.live()
	return b.binary(blk.ir.NewXor(x.ir, y.ir), x, y, intOp(x.typ, func(a, b int64) int64 { return a ^ b }))
}

// FNeg negates a float or float vector.
func (b *Builder) FNeg(x *Value) *Value {
	blk := b.live()
	xv := x.eval
	return b.define(blk, blk.ir.NewFNeg(x.ir), func(fr *frame) Val {
		return lanes1(xv(fr), func(a Val) Val { return Val{F: -a.F} })
	})
}

// Neg negates an integer as sub 0, x.
func (b *Builder) Neg(x *Value) *Value {
	return b.Sub(Zero(x.typ), x)
}

// Not flips every bit: xor with all ones.
func (b *Builder) Not(x *Value) *Value {
	return b.Xor(x, AllOnes(x.typ))
}

// cmpType is the i1 (or <N x i1>) result type of a comparison over t.
func cmpType(t types.Type) types.Type {
	if vt, ok := t.(*types.VectorType); ok {
		return types.NewVector(vt.Len, types.I1)
	}
	return types.I1
}

func icmp(pred enum.IPred) func(a, b int64) bool {
	switch pred {
	case enum.IPredEQ:
		return func(a, b int64) bool { return a == b }
	case enum.IPredNE:
		return func(a, b int64) bool { return a != b }
	case enum.IPredSGT:
		return func(a, b int64) bool { return a > b }
	case enum.IPredSGE:
		return func(a, b int64) bool { return a >= b }
	case enum.IPredSLT:
		return func(a, b int64) bool { return a < b }
	case enum.IPredSLE:
		return func(a, b int64) bool { return a <= b }
	case enum.IPredUGT:
		return func(a, b int64) bool { return uint64(a) > uint64(b) } // #nosec G115
	case enum.IPredULT:
		return func(a, b int64) bool { return uint64(a) < uint64(b) } // #nosec G115
	}
	panic(fmt.Sprintf("backend: unsupported integer predicate %v", pred))
}

func fcmp(pred enum.FPred) func(a, b float64) bool {
	ordered := func(f func(a, b float64) bool) func(a, b float64) bool {
		return func(a, b float64) bool { return !math.IsNaN(a) && !math.IsNaN(b) && f(a, b) }
	}
	switch pred {
	case enum.FPredOEQ:
		return ordered(func(a, b float64) bool { return a == b })
	case enum.FPredONE:
		return ordered(func(a, b float64) bool { return a != b })
	case enum.FPredOGT:
		return ordered(func(a, b float64) bool { return a > b })
	case enum.FPredOGE:
		return ordered(func(a, b float64) bool { return a >= b })
	case enum.FPredOLT:
		return ordered(func(a, b float64) bool { return a < b })
	case enum.FPredOLE:
		return ordered(func(a, b float64) bool { return a <= b })
	case enum.FPredUNE:
		return func(a, b float64) bool { return a != b }
	}
	panic(fmt.Sprintf("backend: unsupported float predicate %v", pred))
}

// ICmp compares integers; vectors compare lane by lane.
func (b *Builder) ICmp(pred enum.IPred, x, y *Value) *Value {
	blk := b.live()
	test := icmp(pred)
	return b.binary(blk.ir.NewICmp(pred, x.ir, y.ir), x, y, func(a, b Val) Val { return BoolVal(test(a.I, b.I)) })
}

// FCmp compares floats; vectors compare lane by lane.
func (b *Builder) FCmp(pred enum.FPred, x, y *Value) *Value {
	blk := b.live()
	test := fcmp(pred)
	return b.binary(blk.ir.NewFCmp(pred, x.ir, y.ir), x, y, func(a, b Val) Val { return BoolVal(test(a.F, b.F)) })
}

// FPToSI converts floats to signed integers, truncating toward zero.
func (b *Builder) FPToSI(x *Value, to types.Type) *Value {
	blk := b.live()
	xv := x.eval
	wrap := wrapInt(scalarOf(to).(*types.IntType).BitSize)
	return b.define(blk, blk.ir.NewFPToSI(x.ir, to), func(fr *frame) Val {
		return lanes1(xv(fr), func(a Val) Val {
			if math.IsNaN(a.F) || math.IsInf(a.F, 0) {
				return IntVal(0)
			}
			return IntVal(wrap(int64(math.Trunc(a.F))))
		})
	})
}

// SIToFP converts signed integers to floats.
func (b *Builder) SIToFP(x *Value, to types.Type) *Value {
	blk := b.live()
	xv := x.eval
	round := roundFloat(scalarOf(to))
	return b.define(blk, blk.ir.NewSIToFP(x.ir, to), func(fr *frame) Val {
		return lanes1(xv(fr), func(a Val) Val { return Val{F: round(float64(a.I))} })
	})
}

// PtrToInt exposes an address as an integer.
func (b *Builder) PtrToInt(x *Value, to types.Type) *Value {
	blk := b.live()
	xv := x.eval
	return b.define(blk, blk.ir.NewPtrToInt(x.ir, to), func(fr *frame) Val { return IntVal(xv(fr).I) })
}
