package ast

import "ksc/internal/source"

// Module is the root of a typed tree: top-level declarations in source order.
type Module struct {
	Name  string
	File  source.FileID
	Decls []*Expr
}

// Funcs returns the function declarations of the module.
func (m *Module) Funcs() []*FuncDeclData {
	var out []*FuncDeclData
	for _, d := range m.Decls {
		if fd, ok := d.Data.(*FuncDeclData); ok {
			out = append(out, fd)
		}
	}
	return out
}

// Walk calls fn for e and every node below it in pre-order. Returning false
// skips the children of a node.
func Walk(e *Expr, fn func(*Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Children lists the direct sub-expressions of e.
func Children(e *Expr) []*Expr {
	var out []*Expr
	add := func(xs ...*Expr) {
		for _, x := range xs {
			if x != nil {
				out = append(out, x)
			}
		}
	}
	switch d := e.Data.(type) {
	case VarDefData:
		add(d.Init)
	case BinaryData:
		add(d.Left, d.Right)
	case UnaryData:
		add(d.Operand)
	case DotData:
		add(d.Object)
	case IndexData:
		add(d.Object, d.Index)
	case BuiltinInitData:
		add(d.Args...)
	case CallData:
		add(d.Args...)
	case SelectData:
		add(d.Cond, d.Then, d.Else)
	case *FuncDeclData:
		add(d.Body)
	case ReturnData:
		add(d.Value)
	case IfData:
		add(d.Cond, d.Then, d.Else)
	case ForData:
		add(d.Init, d.Cond, d.Step, d.Body)
	case BlockData:
		add(d.Stmts...)
	}
	return out
}
