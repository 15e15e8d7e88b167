package codegen

import (
	"fmt"

	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/backend"
)

// BuildPackedWrapper returns a function with desc's packed signature. When
// no argument is flagged and the return type is already packed, that is
// desc.Func itself. Otherwise <name>_packed unpacks the flagged arguments,
// calls the function, packs by-reference arguments back and packs the
// result.
func BuildPackedWrapper(be *backend.Backend, desc *FunctionDesc) *backend.Func {
	fn := desc.Func
	ret := fn.RetType()
	packedRet := ToPackedType(ret)
	flagged := false
	for _, f := range desc.NeedsPacking {
		flagged = flagged || f
	}
	if !flagged && packedRet == ret {
		return fn
	}

	native := fn.ParamTypes()
	params := make([]backend.Param, len(native))
	for i, t := range native {
		if desc.NeedsPacking[i] {
			t = ToPackedType(t)
		}
		params[i] = backend.Param{Name: argName(desc, i), Type: t}
	}
	wrapper := be.Module().NewFunc(fn.Name()+"_packed", packedRet, params...)

	b := be.Builder()
	saved := b.InsertBlock()
	defer b.SetInsertPoint(saved)
	b.SetInsertPoint(wrapper.NewBlock("entry_packed"))

	args := make([]*backend.Value, len(params))
	for i, p := range wrapper.Params() {
		if !desc.NeedsPacking[i] {
			args[i] = p
			continue
		}
		args[i] = UnpackValue(b, p, native[i])
	}
	result := b.Call(fn, args...)
	for i, p := range wrapper.Params() {
		if desc.NeedsPacking[i] && p.IsPointer() {
			PackValue(b, args[i], p)
		}
	}

	switch {
	case ret.Equal(lltypes.Void):
		b.Ret(nil)
	case packedRet == ret:
		b.Ret(result)
	default:
		slot := b.Alloca(packedRet, "ret_packed")
		PackValue(b, result, slot)
		b.Ret(b.Load(packedRet, slot))
	}
	return wrapper
}

func argName(desc *FunctionDesc, i int) string {
	if i < len(desc.ArgNames) && desc.ArgNames[i] != "" {
		return desc.ArgNames[i]
	}
	return fmt.Sprintf("arg%d", i)
}
