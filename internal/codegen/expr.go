package codegen

import (
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/ast"
	"ksc/internal/backend"
	"ksc/internal/diag"
	"ksc/internal/types"
)

func (l *lowerer) constant(e *ast.Expr, d ast.ConstantData) *backend.Value {
	if d.IsFloat {
		return backend.ConstFloat(d.Float)
	}
	if types.IsFloat(e.Type.Type) {
		return backend.ConstFloat(float64(d.Int))
	}
	return backend.ConstI32(d.Int)
}

// binary lowers the right operand first, then the left, and brings the
// right value to the left operand's type before dispatching on the
// operator.
func (l *lowerer) binary(e *ast.Expr, d ast.BinaryData) *backend.Value {
	if d.Op == "=" {
		v := l.cast(l.value(d.Right), d.Right.Type, d.Left.Type, e)
		l.assign(d.Left, v)
		return l.value(d.Left)
	}
	rhs := l.value(d.Right)
	lhs := l.value(d.Left)
	rhs = l.cast(rhs, d.Right.Type, d.Left.Type, e)

	lt := d.Left.Type.Type
	if !types.IsValueType(lt) || d.Left.Type.ArrayCount > 0 {
		panic(contractf(e, "operator %q on %s", d.Op, d.Left.Type))
	}
	if types.IsFloat(lt) {
		return l.floatBinary(e, d.Op, lhs, rhs)
	}
	return l.intBinary(e, d.Op, lhs, rhs)
}

func (l *lowerer) floatBinary(e *ast.Expr, op string, x, y *backend.Value) *backend.Value {
	switch op {
	case "+":
		return l.b.FAdd(x, y)
	case "-":
		return l.b.FSub(x, y)
	case "*":
		return l.b.FMul(x, y)
	case "/":
		return l.b.FDiv(x, y)
	case "<":
		return l.b.FCmp(enum.FPredOLT, x, y)
	case ">":
		return l.b.FCmp(enum.FPredOGT, x, y)
	case "<=":
		return l.b.FCmp(enum.FPredOLE, x, y)
	case ">=":
		return l.b.FCmp(enum.FPredOGE, x, y)
	case "==":
		return l.b.FCmp(enum.FPredOEQ, x, y)
	case "!=":
		return l.b.FCmp(enum.FPredONE, x, y)
	}
	panic(contractf(e, "operator %q is not defined on floats", op))
}

func (l *lowerer) intBinary(e *ast.Expr, op string, x, y *backend.Value) *backend.Value {
	switch op {
	case "+":
		return l.b.Add(x, y)
	case "-":
		return l.b.Sub(x, y)
	case "*":
		return l.b.Mul(x, y)
	case "/":
		return l.b.SDiv(x, y)
	case "<":
		return l.b.ICmp(enum.IPredSLT, x, y)
	case ">":
		return l.b.ICmp(enum.IPredSGT, x, y)
	case "<=":
		return l.b.ICmp(enum.IPredSLE, x, y)
	case ">=":
		return l.b.ICmp(enum.IPredSGE, x, y)
	case "==":
		return l.b.ICmp(enum.IPredEQ, x, y)
	case "!=":
		return l.b.ICmp(enum.IPredNE, x, y)
	case "||", "|":
		return l.b.Or(x, y)
	case "&&", "&":
		return l.b.And(x, y)
	case "^":
		return l.b.Xor(x, y)
	}
	panic(contractf(e, "unknown binary operator %q", op))
}

func (l *lowerer) unary(e *ast.Expr, d ast.UnaryData) *backend.Value {
	v := l.value(d.Operand)
	t := d.Operand.Type.Type
	switch d.Op {
	case "!":
		if types.IsFloat(t) || !types.IsValueType(t) {
			panic(contractf(e, "logical not on %s", d.Operand.Type))
		}
		return l.b.Not(v)
	case "-":
		if types.IsFloat(t) {
			return l.b.FNeg(v)
		}
		return l.b.Neg(v)
	case "+":
		return v
	}
	panic(contractf(e, "unknown unary operator %q", d.Op))
}

// predicate coerces a condition to a one-bit value: numbers compare
// unequal to zero and extern handles unequal to null.
func (l *lowerer) predicate(v *backend.Value, ti types.TypeInfo, at *ast.Expr) *backend.Value {
	if ti.ArrayCount > 0 {
		panic(contractf(at, "array used as a condition"))
	}
	switch t := ti.Type; {
	case types.IsBool(t):
		return v
	case t == types.ExternType:
		return l.b.ICmp(enum.IPredNE, l.b.PtrToInt(v, lltypes.I64), backend.ConstInt(lltypes.I64, 0))
	case types.ElementCount(t) != 1:
		panic(contractf(at, "vector %s used as a condition", ti))
	case types.IsFloat(t):
		return l.b.FCmp(enum.FPredONE, v, backend.ConstFloat(0))
	case types.IsInt(t):
		return l.b.ICmp(enum.IPredNE, v, backend.ConstI32(0))
	}
	panic(contractf(at, "%s used as a condition", ti))
}

// builtinInit constructs a scalar by casting its only argument, or a vector
// by feeding every argument lane into the result in order. A single scalar
// argument fills every lane.
func (l *lowerer) builtinInit(e *ast.Expr, d ast.BuiltinInitData) *backend.Value {
	target := e.Type.Type
	if !types.IsValueType(target) {
		panic(contractf(e, "constructor of %s", e.Type))
	}
	if len(d.Args) == 0 {
		return backend.Zero(LLVMType(target))
	}
	count := types.ElementCount(target)
	if count == 1 || (len(d.Args) == 1 && types.ElementCount(d.Args[0].Type.Type) == 1) {
		arg := d.Args[0]
		return l.cast(l.value(arg), arg.Type, e.Type, arg)
	}
	elem := types.Scalar(target)
	out := backend.Undef(LLVMType(target))
	pos := 0
	insert := func(lane *backend.Value, from types.VarType, arg *ast.Expr) {
		if pos >= count {
			panic(contractf(e, "too many lanes for %s", target))
		}
		if types.IsBool(from) != types.IsBool(elem) {
			panic(contractf(arg, "cannot build %s from %s lanes", target, from))
		}
		lane = l.cast(lane, types.Of(from), types.Of(elem), arg)
		out = l.b.InsertElement(out, lane, backend.ConstI32(int64(pos)))
		pos++
	}
	for _, arg := range d.Args {
		v := l.value(arg)
		at := arg.Type.Type
		n := types.ElementCount(at)
		if n == 1 {
			insert(v, at, arg)
			continue
		}
		for i := 0; i < n; i++ {
			insert(l.b.ExtractElement(v, backend.ConstI32(int64(i))), types.Scalar(at), arg)
		}
	}
	return out
}

func (l *lowerer) call(e *ast.Expr, d ast.CallData) *backend.Value {
	fn, ok := l.arena.ResolveFunction(l.scope, d.Name)
	if !ok {
		l.fail(diag.CgUnresolvedFunction, e.Span, "call to undeclared function %q", d.Name)
	}
	if l.abandoned[d.Name] {
		l.fail(diag.CgUnresolvedFunction, e.Span, "call to %q, whose body failed to lower", d.Name)
	}
	fd := d.Func
	if fd == nil {
		fd = l.decls[d.Name]
	}
	if fd == nil || len(fd.Args) != len(d.Args) {
		panic(contractf(e, "call of %s does not match its declaration", d.Name))
	}
	args := make([]*backend.Value, len(d.Args))
	for i, arg := range d.Args {
		p := fd.Args[i]
		if p.ByRef {
			info := l.address(arg)
			if info.BelongsToVector {
				panic(contractf(arg, "vector lane passed by reference to %s", d.Name))
			}
			args[i] = info.Addr
			continue
		}
		args[i] = l.cast(l.value(arg), arg.Type, p.Type, arg)
	}
	return l.b.Call(fn, args...)
}

func (l *lowerer) selectValue(e *ast.Expr, d ast.SelectData) *backend.Value {
	var cond *backend.Value
	if types.IsBool(d.Cond.Type.Type) {
		cond = l.value(d.Cond)
	} else {
		cond = l.predicate(l.value(d.Cond), d.Cond.Type, d.Cond)
	}
	then := l.value(d.Then)
	els := l.cast(l.value(d.Else), d.Else.Type, d.Then.Type, d.Else)
	if n := types.ElementCount(d.Cond.Type.Type); n > 1 && n != types.ElementCount(d.Then.Type.Type) {
		panic(contractf(e, "select over %s with a %s condition", d.Then.Type, d.Cond.Type))
	}
	return l.b.Select(cond, then, els)
}
