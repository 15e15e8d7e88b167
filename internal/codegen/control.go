package codegen

import (
	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/ast"
	"ksc/internal/backend"
)

// ret stores a returned value into the function's slot and leaves through
// the exit block.
func (l *lowerer) ret(e *ast.Expr, d ast.ReturnData) {
	s := l.arena.Get(l.scope)
	if s == nil || s.Exit == nil || l.fn == nil {
		panic(contractf(e, "return outside a function"))
	}
	if d.Value != nil {
		v := l.value(d.Value)
		if s.RetAddr != nil {
			l.b.Store(l.cast(v, d.Value.Type, l.fn.Ret, d.Value), s.RetAddr)
		}
	}
	l.b.Br(s.Exit)
}

func (l *lowerer) ifStmt(e *ast.Expr, d ast.IfData) {
	fn := l.b.Func()
	if fn == nil {
		panic(contractf(e, "if outside a function"))
	}
	cond := l.predicate(l.value(d.Cond), d.Cond.Type, d.Cond)

	then := fn.CreateBlock("then")
	els := fn.CreateBlock("else")
	merge := fn.CreateBlock("ifcont")
	l.b.CondBr(cond, then, els)

	fn.Attach(then)
	l.b.SetInsertPoint(then)
	l.branch(d.Then)
	l.b.Br(merge)
	thenEnd := l.b.InsertBlock()

	fn.Attach(els)
	l.b.SetInsertPoint(els)
	l.branch(d.Else)
	l.b.Br(merge)
	elseEnd := l.b.InsertBlock()

	fn.Attach(merge)
	l.b.SetInsertPoint(merge)
	undef := backend.Undef(lltypes.I32)
	l.b.Phi(backend.Incoming{X: undef, Pred: thenEnd}, backend.Incoming{X: undef, Pred: elseEnd})
}

// branch lowers one arm of a conditional in its own scope.
func (l *lowerer) branch(body *ast.Expr) {
	if body == nil {
		return
	}
	defer l.enter()()
	if blk, ok := body.Data.(ast.BlockData); ok {
		for _, s := range blk.Stmts {
			l.stmt(s)
		}
		return
	}
	l.stmt(body)
}

// forStmt runs the body once before the first test of the condition; the
// header phi carries no value.
func (l *lowerer) forStmt(e *ast.Expr, d ast.ForData) {
	fn := l.b.Func()
	if fn == nil {
		panic(contractf(e, "for outside a function"))
	}
	defer l.enter()()
	l.stmt(d.Init)

	loop := fn.CreateBlock("loop")
	after := fn.CreateBlock("afterloop")
	l.b.Br(loop)
	preheader := l.b.InsertBlock()

	fn.Attach(loop)
	l.b.SetInsertPoint(loop)
	undef := backend.Undef(lltypes.I32)
	join := l.b.Phi(backend.Incoming{X: undef, Pred: preheader})

	l.branch(d.Body)
	l.stmt(d.Step)
	cond := backend.ConstBool(true)
	if d.Cond != nil {
		cond = l.predicate(l.value(d.Cond), d.Cond.Type, d.Cond)
	}
	l.b.CondBr(cond, loop, after)
	join.AddIncoming(undef, l.b.InsertBlock())

	fn.Attach(after)
	l.b.SetInsertPoint(after)
}
