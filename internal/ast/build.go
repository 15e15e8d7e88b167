package ast

import (
	"ksc/internal/types"
)

// Constructors for hand-built trees. They fill the cached Type the way the
// parser would.

func Int(v int64) *Expr {
	return &Expr{Kind: KindConstant, Type: types.Of(types.Int), Data: ConstantData{Int: v}}
}

func Float(v float64) *Expr {
	return &Expr{Kind: KindConstant, Type: types.Of(types.Float), Data: ConstantData{IsFloat: true, Float: v}}
}

func Bool(v bool) *Expr {
	return &Expr{Kind: KindBoolLiteral, Type: types.Of(types.Bool), Data: BoolData{Value: v}}
}

func Str(s string) *Expr {
	return &Expr{Kind: KindConstString, Type: types.Of(types.Void), Data: StringData{Value: s}}
}

func Ref(name string, ti types.TypeInfo) *Expr {
	return &Expr{Kind: KindVarRef, Type: ti, Data: VarRefData{Name: name}}
}

func Def(name string, ti types.TypeInfo, init *Expr) *Expr {
	return &Expr{Kind: KindVarDef, Type: ti, Data: VarDefData{Name: name, Init: init}}
}

// IsComparison reports whether op yields a predicate.
func IsComparison(op string) bool {
	switch op {
	case "<", "<=", ">", ">=", "==", "!=":
		return true
	}
	return false
}

// Bin builds a binary node; comparisons are bool typed, everything else
// takes the left operand's type.
func Bin(op string, l, r *Expr) *Expr {
	ti := l.Type
	if IsComparison(op) {
		ti = types.Of(types.Compose(types.Bool, types.ElementCount(l.Type.Type)))
	}
	return &Expr{Kind: KindBinary, Type: ti, Data: BinaryData{Op: op, Left: l, Right: r}}
}

// Assign is Bin("=", l, r).
func Assign(l, r *Expr) *Expr { return Bin("=", l, r) }

func Unary(op string, x *Expr) *Expr {
	return &Expr{Kind: KindUnary, Type: x.Type, Data: UnaryData{Op: op, Operand: x}}
}

// Dot builds member access when obj is a struct with that member and a
// swizzle otherwise.
func Dot(obj *Expr, field string) *Expr {
	var ti types.TypeInfo
	if idx := obj.Type.Struct.MemberIndex(field); idx >= 0 {
		m := obj.Type.Struct.Member(idx)
		ti = types.TypeInfo{Type: m.Type, Struct: m.Struct, ArrayCount: m.ArrayCount}
	} else if _, n, ok := types.ConvertSwizzle(field); ok && types.IsValueType(obj.Type.Type) {
		ti = types.Of(types.Compose(obj.Type.Type, n))
	}
	return &Expr{Kind: KindDot, Type: ti, Data: DotData{Object: obj, Field: field}}
}

// Index builds element access; the result drops the array count.
func Index(obj, idx *Expr) *Expr {
	ti := obj.Type
	ti.ArrayCount = 0
	return &Expr{Kind: KindIndex, Type: ti, Data: IndexData{Object: obj, Index: idx}}
}

func Init(t types.VarType, args ...*Expr) *Expr {
	return &Expr{Kind: KindBuiltinInit, Type: types.Of(t), Data: BuiltinInitData{Args: args}}
}

func Call(fd *FuncDeclData, args ...*Expr) *Expr {
	return &Expr{Kind: KindCall, Type: fd.Ret, Data: CallData{Name: fd.Name, Args: args, Func: fd}}
}

func Select(cond, a, b *Expr) *Expr {
	return &Expr{Kind: KindSelect, Type: a.Type, Data: SelectData{Cond: cond, Then: a, Else: b}}
}

// Func builds a function declaration; body nil declares an external function.
func Func(name string, ret types.TypeInfo, args []Arg, body *Expr) (*Expr, *FuncDeclData) {
	fd := &FuncDeclData{Name: name, Args: args, Ret: ret, Body: body}
	for i := range fd.Args {
		if fd.Args[i].TypeString == "" {
			fd.Args[i].TypeString = fd.Args[i].Type.String()
		}
	}
	return &Expr{Kind: KindFuncDecl, Type: ret, Data: fd}, fd
}

func Struct(def *types.StructDef) *Expr {
	return &Expr{Kind: KindStructDef, Type: types.OfStruct(def), Data: StructDefData{Def: def}}
}

func Return(v *Expr) *Expr {
	ti := types.Of(types.Void)
	if v != nil {
		ti = v.Type
	}
	return &Expr{Kind: KindReturn, Type: ti, Data: ReturnData{Value: v}}
}

func If(cond, then, els *Expr) *Expr {
	return &Expr{Kind: KindIf, Type: types.Of(types.Void), Data: IfData{Cond: cond, Then: then, Else: els}}
}

func For(init, cond, step, body *Expr) *Expr {
	return &Expr{Kind: KindFor, Type: types.Of(types.Void), Data: ForData{Init: init, Cond: cond, Step: step, Body: body}}
}

func Block(stmts ...*Expr) *Expr {
	return &Expr{Kind: KindBlock, Type: types.Of(types.Void), Data: BlockData{Stmts: stmts}}
}
