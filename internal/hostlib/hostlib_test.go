package hostlib

import (
	"bytes"
	"context"
	"testing"

	"ksc/internal/ast"
	"ksc/internal/backend"
	"ksc/internal/codegen"
	"ksc/internal/types"
)

func TestCompareTwoIntFromShader(t *testing.T) {
	target, _ := backend.TargetByTriple("x86_64-unknown-linux-gnu")
	be, err := backend.Initialize(backend.Config{ModuleName: "host", Target: target})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer func() { _ = be.Shutdown() }()
	var out bytes.Buffer
	Register(be.Engine(), &out)

	intT, floatT, voidT := types.Of(types.Int), types.Of(types.Float), types.Of(types.Void)
	cmp, cmpDecl := ast.Func("CompareTwoInt", voidT, []ast.Arg{{Name: "a", Type: intT}, {Name: "b", Type: intT}}, nil)
	sqrt, sqrtDecl := ast.Func("sqrt", floatT, []ast.Arg{{Name: "x", Type: floatT}}, nil)
	run, _ := ast.Func("run_test", floatT, nil, ast.Block(
		ast.Call(cmpDecl, ast.Int(5), ast.Int(3)),
		ast.Return(ast.Call(sqrtDecl, ast.Float(6.25))),
	))
	desc, bag, err := codegen.Compile(context.Background(), be, &ast.Module{Name: "host", Decls: []*ast.Expr{cmp, sqrt, run}}, codegen.Options{})
	if err != nil {
		t.Fatalf("Compile: %v %v", err, bag.Items())
	}
	call, err := desc.Functions["run_test"].Callable(false)
	if err != nil {
		t.Fatalf("Callable: %v", err)
	}
	got, err := call()
	if err != nil {
		t.Fatalf("run_test: %v", err)
	}
	if got.F != 2.5 {
		t.Fatalf("sqrt(6.25) = %v", got.F)
	}
	if out.String() != "test value is 2 (5, 3)" {
		t.Fatalf("output = %q", out.String())
	}
}
