package codegen

import (
	"fmt"

	"ksc/internal/ast"
	"ksc/internal/backend"
	"ksc/internal/diag"
	"ksc/internal/scope"
	"ksc/internal/source"
	"ksc/internal/trace"
	"ksc/internal/types"
)

// ValuePtrInfo is the address of an lvalue. A single swizzle lane is
// addressed through its vector: Addr points at the whole vector and
// LaneIndex selects the lane.
type ValuePtrInfo struct {
	Addr            *backend.Value
	BelongsToVector bool
	LaneIndex       int
	IsFixedArray    bool
}

// declFailure aborts the declaration being lowered after its diagnostic
// has been reported. Sibling declarations continue.
type declFailure struct{}

// lowerer carries the state of one module lowering. Its scope field is the
// innermost open scope; nested constructs swap it and restore it on exit.
type lowerer struct {
	be        *backend.Backend
	b         *backend.Builder
	mod       *backend.Module
	arena     *scope.Arena
	scope     scope.ID
	rep       diag.Reporter
	fn        *ast.FuncDeclData
	decls     map[string]*ast.FuncDeclData
	defined   map[string]bool // names given a body anywhere in the module
	abandoned map[string]bool // functions whose body failed part way
	tracer    trace.Tracer
	span      uint64
}

func newLowerer(be *backend.Backend, rep diag.Reporter, tracer trace.Tracer) *lowerer {
	arena := scope.NewArena(0)
	return &lowerer{
		be:        be,
		b:         be.Builder(),
		mod:       be.Module(),
		arena:     arena,
		scope:     arena.NewModule(),
		rep:       rep,
		decls:     make(map[string]*ast.FuncDeclData),
		defined:   make(map[string]bool),
		abandoned: make(map[string]bool),
		tracer:    tracer,
	}
}

func (l *lowerer) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	diag.ReportError(l.rep, code, sp, fmt.Sprintf(format, args...)).Emit()
}

func (l *lowerer) fail(code diag.Code, sp source.Span, format string, args ...any) {
	l.errorf(code, sp, format, args...)
	panic(declFailure{})
}

// enter opens a block scope under the current one and returns a function
// that closes it again.
func (l *lowerer) enter() func() {
	outer := l.scope
	l.scope = l.arena.CreateBlockChild(outer)
	return func() {
		l.arena.Release(l.scope)
		l.scope = outer
	}
}

// cast converts v from the type of one node to another, warning when
// float lanes are truncated.
func (l *lowerer) cast(v *backend.Value, from, to types.TypeInfo, at *ast.Expr) *backend.Value {
	if ok, truncates := types.IsCompatible(to.Type, from.Type); ok && truncates {
		diag.ReportWarning(l.rep, diag.CgFloatToInt, at.Span,
			fmt.Sprintf("implicit conversion from %s to %s truncates", from, to)).Emit()
	}
	return CastValueType(l.b, v, from.Type, to.Type)
}

// stmt lowers e for its effects.
func (l *lowerer) stmt(e *ast.Expr) {
	if e == nil {
		return
	}
	l.value(e)
}

// value lowers e and returns its result; statements yield nil.
func (l *lowerer) value(e *ast.Expr) *backend.Value {
	switch d := e.Data.(type) {
	case ast.ConstantData:
		return l.constant(e, d)
	case ast.BoolData:
		return backend.ConstBool(d.Value)
	case ast.StringData:
		return nil
	case ast.VarRefData:
		return l.b.Load(l.typeOf(e.Type, e), l.address(e).Addr)
	case ast.VarDefData:
		l.varDef(e, d)
		return nil
	case ast.BinaryData:
		return l.binary(e, d)
	case ast.UnaryData:
		return l.unary(e, d)
	case ast.DotData:
		return l.dot(e, d)
	case ast.IndexData:
		return l.b.Load(l.typeOf(e.Type, e), l.address(e).Addr)
	case ast.BuiltinInitData:
		return l.builtinInit(e, d)
	case ast.CallData:
		return l.call(e, d)
	case ast.SelectData:
		return l.selectValue(e, d)
	case *ast.FuncDeclData:
		l.funcDecl(e, d)
		return nil
	case ast.StructDefData:
		l.structType(e, d.Def)
		return nil
	case ast.ReturnData:
		l.ret(e, d)
		return nil
	case ast.IfData:
		l.ifStmt(e, d)
		return nil
	case ast.ForData:
		l.forStmt(e, d)
		return nil
	case ast.BlockData:
		defer l.enter()()
		for _, s := range d.Stmts {
			l.stmt(s)
		}
		return nil
	}
	panic(contractf(e, "unexpected node payload %T", e.Data))
}

// address computes where an lvalue lives.
func (l *lowerer) address(e *ast.Expr) ValuePtrInfo {
	switch d := e.Data.(type) {
	case ast.VarRefData:
		addr, ok := l.arena.Resolve(l.scope, d.Name, true)
		if !ok {
			l.fail(diag.CgUnresolvedVariable, e.Span, "undeclared variable %q", d.Name)
		}
		return ValuePtrInfo{Addr: addr, IsFixedArray: e.Type.ArrayCount > 0}
	case ast.DotData:
		return l.dotAddress(e, d)
	case ast.IndexData:
		return l.indexAddress(e, d)
	}
	panic(contractf(e, "%s is not addressable", e.Kind))
}

// assign stores v, already of e's type, into the lvalue e.
func (l *lowerer) assign(e *ast.Expr, v *backend.Value) {
	info := l.address(e)
	if !info.BelongsToVector {
		l.b.Store(v, info.Addr)
		return
	}
	vecTy := pointee(info.Addr)
	vec := l.b.Load(vecTy, info.Addr)
	vec = l.b.InsertElement(vec, v, backend.ConstI32(int64(info.LaneIndex)))
	l.b.Store(vec, info.Addr)
}
