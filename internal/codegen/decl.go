package codegen

import (
	"errors"

	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/ast"
	"ksc/internal/backend"
	"ksc/internal/diag"
	"ksc/internal/scope"
	"ksc/internal/types"
)

func (l *lowerer) varDef(e *ast.Expr, d ast.VarDefData) {
	if l.b.Func() == nil {
		panic(contractf(e, "variable %q outside a function", d.Name))
	}
	slot := l.b.Alloca(l.typeOf(e.Type, e), d.Name)
	if err := l.arena.Declare(l.scope, d.Name, slot); err != nil {
		l.reportDeclare(e, err)
		return
	}
	if d.Init != nil {
		v := l.cast(l.value(d.Init), d.Init.Type, e.Type, d.Init)
		l.b.Store(v, slot)
	}
}

func (l *lowerer) reportDeclare(e *ast.Expr, err error) {
	if errors.Is(err, scope.ErrDuplicateName) {
		l.errorf(diag.CgDuplicateName, e.Span, "%v", err)
		return
	}
	l.errorf(diag.CgInternal, e.Span, "%v", err)
}

// structType registers the backend type of def, lowering nested member
// structs first. Repeated definitions reuse the cached type.
func (l *lowerer) structType(e *ast.Expr, def *types.StructDef) *lltypes.StructType {
	if st, ok := l.arena.ResolveStructType(l.scope, def); ok {
		return st
	}
	fields := make([]lltypes.Type, len(def.Members))
	for i, m := range def.Members {
		if m.Type == types.Struct {
			if m.Struct == def {
				panic(contractf(e, "struct %s contains itself", def.Name))
			}
			l.structType(e, m.Struct)
		}
		fields[i] = l.typeOf(types.TypeInfo{Type: m.Type, Struct: m.Struct, ArrayCount: m.ArrayCount}, e)
	}
	st := l.mod.NewStructType("struct."+def.Name, fields...)
	l.arena.DeclareStructType(l.scope, def, st)
	return st
}

// signature builds the backend parameter list; by-reference parameters
// become addresses of their type.
func (l *lowerer) signature(e *ast.Expr, fd *ast.FuncDeclData) (lltypes.Type, []backend.Param) {
	ret := l.typeOf(fd.Ret, e)
	params := make([]backend.Param, len(fd.Args))
	for i, a := range fd.Args {
		t := l.typeOf(a.Type, e)
		if a.ByRef {
			t = lltypes.NewPointer(t)
		}
		params[i] = backend.Param{Name: a.Name, Type: t}
	}
	return ret, params
}

// funcDecl declares fd, binding bodyless declarations to native symbols
// and lowering the body of definitions. It returns nil when the
// declaration could not be made usable.
func (l *lowerer) funcDecl(e *ast.Expr, fd *ast.FuncDeclData) *backend.Func {
	fn, declared := l.arena.ResolveFunction(l.scope, fd.Name)
	switch {
	case declared && !fd.HasBody():
		return fn
	case declared && fn.HasBody():
		l.errorf(diag.CgDuplicateName, e.Span, "function %q is already defined", fd.Name)
		return nil
	case !declared:
		ret, params := l.signature(e, fd)
		fn = l.mod.NewFunc(fd.Name, ret, params...)
		if !fd.HasBody() && !l.defined[fd.Name] {
			if !l.be.Engine().Bind(fn, fd.Name) {
				l.errorf(diag.CgUnresolvedExternal, e.Span, "no native symbol %q for external function", fd.Name)
				return nil
			}
		}
		if err := l.arena.DeclareFunction(l.scope, fd.Name, fn); err != nil {
			l.reportDeclare(e, err)
			return nil
		}
		l.decls[fd.Name] = fd
	}
	if fd.HasBody() {
		l.funcBody(e, fd, fn)
	}
	return fn
}

func (l *lowerer) funcBody(e *ast.Expr, fd *ast.FuncDeclData, fn *backend.Func) {
	saved := l.b.InsertBlock()
	outerScope, outerFn := l.scope, l.fn
	defer func() {
		l.scope, l.fn = outerScope, outerFn
		l.b.SetInsertPoint(saved)
	}()

	name := fd.Name
	entry := fn.NewBlock(name + "_entry")
	exit := fn.CreateBlock(name + "_exit")
	l.b.SetInsertPoint(entry)

	ret := fn.RetType()
	var retAddr *backend.Value
	if !ret.Equal(lltypes.Void) {
		retAddr = l.b.Alloca(ret, name+"_retValue")
	}

	child := l.arena.CreateChild(outerScope, fn, exit, retAddr)
	l.scope, l.fn = child, fd
	for i, a := range fd.Args {
		addr := fn.Param(i)
		if !a.ByRef {
			slot := l.b.Alloca(addr.Type(), a.Name+".addr")
			l.b.Store(addr, slot)
			addr = slot
		}
		if err := l.arena.Declare(child, a.Name, addr); err != nil {
			l.reportDeclare(e, err)
		}
	}

	if body, ok := fd.Body.Data.(ast.BlockData); ok {
		for _, s := range body.Stmts {
			l.stmt(s)
		}
	} else {
		l.stmt(fd.Body)
	}

	l.b.Br(exit)
	fn.Attach(exit)
	l.b.SetInsertPoint(exit)
	if retAddr == nil {
		l.b.Ret(nil)
	} else {
		l.b.Ret(l.b.Load(ret, retAddr))
	}
	l.arena.Release(child)
}
