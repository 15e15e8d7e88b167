package codegen

import (
	"context"
	"errors"
	"fmt"

	"ksc/internal/ast"
	"ksc/internal/backend"
	"ksc/internal/diag"
	"ksc/internal/trace"
)

// ErrLoweringFailed is returned by Compile when any declaration reported an error.
var ErrLoweringFailed = errors.New("lowering failed")

// Options tune one Compile call.
type Options struct {
	// MaxDiagnostics caps the returned bag; 0 means unlimited.
	MaxDiagnostics int
}

// Compile lowers every top-level declaration of m into be's module, in
// order, and describes each struct and each function with a body. A
// failing declaration is reported and skipped. Contract violations in the
// tree panic with ContractError.
func Compile(ctx context.Context, be *backend.Backend, m *ast.Module, opts Options) (*ModuleDesc, *diag.Bag, error) {
	if be == nil || be.Closed() {
		return nil, nil, backend.ErrBackendClosed
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeModule, "lower:"+m.Name, trace.CurrentSpan(ctx).SpanID)

	l := newLowerer(be, diag.NewDedupReporter(diag.BagReporter{Bag: bag}), tracer)
	l.span = span.ID()
	desc := newModuleDesc(m.Name, be.Target().Triple)
	for _, decl := range m.Decls {
		if fd, ok := decl.Data.(*ast.FuncDeclData); ok && fd.HasBody() {
			l.defined[fd.Name] = true
		}
	}
	for _, decl := range m.Decls {
		if err := ctx.Err(); err != nil {
			span.End("canceled")
			return desc, bag, err
		}
		l.lowerDecl(decl, desc)
	}

	span.WithExtra("functions", fmt.Sprint(len(desc.Functions))).
		WithExtra("structs", fmt.Sprint(len(desc.Structs)))
	if bag.HasErrors() {
		span.End("errors")
		return desc, bag, fmt.Errorf("module %s: %w", m.Name, ErrLoweringFailed)
	}
	span.End("")
	return desc, bag, nil
}

func (l *lowerer) lowerDecl(e *ast.Expr, desc *ModuleDesc) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(declFailure); !ok {
				panic(r)
			}
			if d, ok := e.Data.(*ast.FuncDeclData); ok && d.HasBody() {
				l.abandon(d.Name)
			}
			l.b.SetInsertPoint(nil)
		}
	}()

	switch d := e.Data.(type) {
	case *ast.FuncDeclData:
		span := trace.Begin(l.tracer, trace.ScopeNode, "func:"+d.Name, l.span)
		defer span.End("")
		fn := l.funcDecl(e, d)
		if fn == nil || !d.HasBody() {
			return
		}
		fd, err := l.functionDesc(d, fn)
		if err != nil {
			l.errorf(diag.CgInternal, e.Span, "%v", err)
			return
		}
		desc.Functions[d.Name] = fd
	case ast.StructDefData:
		span := trace.Begin(l.tracer, trace.ScopeNode, "struct:"+d.Def.Name, l.span)
		defer span.End("")
		st := l.structType(e, d.Def)
		sd, err := l.structDesc(d.Def, st)
		if err != nil {
			l.errorf(diag.CgInternal, e.Span, "%v", err)
			return
		}
		desc.Structs[d.Def.Name] = sd
	case ast.StringData:
	default:
		panic(contractf(e, "%s is not a top-level declaration", e.Kind))
	}
}

// abandon seals the blocks of a function whose body failed part way and
// refuses later calls to it.
func (l *lowerer) abandon(name string) {
	l.abandoned[name] = true
	fn, ok := l.arena.ResolveFunction(l.scope, name)
	if !ok {
		return
	}
	for _, blk := range fn.Blocks() {
		if !blk.Terminated() {
			l.b.SetInsertPoint(blk)
			l.b.Unreachable()
		}
	}
}
