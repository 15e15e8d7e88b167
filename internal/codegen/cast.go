package codegen

import (
	"ksc/internal/backend"
	"ksc/internal/types"
)

// CastValueType converts v from type from to type to:
//
//  1. scalar to scalar converts between int and float, otherwise passes through;
//  2. equal lane counts convert lane by lane;
//  3. a wider source keeps its first lanes, then converts;
//  4. a scalar source is converted, then splatted into every lane.
//
// Any other combination returns v unchanged. Bool is neither int nor float,
// so it is never converted, only truncated or splatted.
func CastValueType(b *backend.Builder, v *backend.Value, from, to types.VarType) *backend.Value {
	srcCnt, destCnt := types.ElementCount(from), types.ElementCount(to)
	toFloat := types.IsFloat(to) && types.IsInt(from)
	toInt := types.IsFloat(from) && types.IsInt(to)

	convert := func(x *backend.Value, lanes int) *backend.Value {
		switch {
		case toInt:
			return b.FPToSI(x, LLVMType(types.Compose(types.Int, lanes)))
		case toFloat:
			return b.SIToFP(x, LLVMType(types.Compose(types.Float, lanes)))
		}
		return x
	}

	switch {
	case srcCnt == 1 && destCnt == 1:
		return convert(v, 1)
	case srcCnt == destCnt:
		return convert(v, destCnt)
	case srcCnt > destCnt && destCnt > 1:
		mask := make([]int, destCnt)
		for i := range mask {
			mask[i] = i
		}
		return convert(b.ShuffleVector(v, backend.Undef(v.Type()), mask), destCnt)
	case srcCnt == 1 && destCnt > 1:
		lane := convert(v, 1)
		out := backend.Undef(LLVMType(types.Compose(to, destCnt)))
		for i := 0; i < destCnt; i++ {
			out = b.InsertElement(out, lane, backend.ConstI32(int64(i)))
		}
		return out
	}
	return v
}
