package scope

import (
	"errors"
	"testing"

	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/backend"
	"ksc/internal/types"
)

func TestResolveFindsNearestBinding(t *testing.T) {
	a := NewArena(0)
	root := a.NewModule()
	outer, inner := backend.ConstI32(1), backend.ConstI32(2)
	if err := a.Declare(root, "x", outer); err != nil {
		t.Fatalf("declare root x: %v", err)
	}
	child := a.CreateBlockChild(root)
	if err := a.Declare(child, "x", inner); err != nil {
		t.Fatalf("shadowing in a child scope must be allowed: %v", err)
	}
	grandchild := a.CreateBlockChild(child)

	got, ok := a.Resolve(grandchild, "x", true)
	if !ok || got != inner {
		t.Fatalf("expected the child's binding, got %v", got)
	}
	if _, ok := a.Resolve(grandchild, "x", false); ok {
		t.Fatal("resolve without parent search must not leave the scope")
	}
	if got, _ := a.Resolve(root, "x", true); got != outer {
		t.Fatal("root binding changed")
	}
}

func TestDeclareDuplicateFails(t *testing.T) {
	a := NewArena(0)
	root := a.NewModule()
	first := backend.ConstI32(1)
	if err := a.Declare(root, "x", first); err != nil {
		t.Fatalf("declare: %v", err)
	}
	err := a.Declare(root, "x", backend.ConstI32(2))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("got %v, want ErrDuplicateName", err)
	}
	if got, _ := a.Resolve(root, "x", false); got != first {
		t.Fatal("duplicate declaration overwrote the binding")
	}
}

func TestFunctionsVisibleFromNestedScopes(t *testing.T) {
	a := NewArena(0)
	root := a.NewModule()
	if err := a.DeclareFunction(root, "f", nil); err != nil {
		t.Fatalf("declare f: %v", err)
	}
	if err := a.DeclareFunction(root, "f", nil); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("second f: got %v", err)
	}
	fn := a.CreateChild(root, nil, nil, nil)
	blk := a.CreateBlockChild(fn)
	if _, ok := a.ResolveFunction(blk, "f"); !ok {
		t.Fatal("f must be visible from a nested block")
	}
	if _, ok := a.ResolveFunction(blk, "g"); ok {
		t.Fatal("g was never declared")
	}
}

func TestStructTypeCache(t *testing.T) {
	a := NewArena(0)
	root := a.NewModule()
	def := types.NewStructDef("P", types.Member{Name: "x", Type: types.Float})
	st := lltypes.NewStruct(lltypes.Float)
	a.DeclareStructType(root, def, st)
	child := a.CreateBlockChild(root)
	if got, ok := a.ResolveStructType(child, def); !ok || got != st {
		t.Fatal("struct type not found from child")
	}
	other := types.NewStructDef("P", types.Member{Name: "x", Type: types.Float})
	if _, ok := a.ResolveStructType(child, other); ok {
		t.Fatal("struct cache must be keyed by definition identity")
	}
}

func TestBlockChildInheritsFunctionTriple(t *testing.T) {
	a := NewArena(0)
	root := a.NewModule()
	ret := backend.ConstI32(0)
	fn := a.CreateChild(root, nil, nil, ret)
	blk := a.CreateBlockChild(fn)
	if a.Get(blk).RetAddr != ret || a.Get(blk).Kind != KindBlock {
		t.Fatal("block scope must inherit the return slot")
	}
	if a.Get(root).RetAddr != nil {
		t.Fatal("module scope has no return slot")
	}
}

func TestReleasedScopePanics(t *testing.T) {
	a := NewArena(0)
	root := a.NewModule()
	child := a.CreateBlockChild(root)
	a.Release(child)
	if !a.Get(child).Released() {
		t.Fatal("scope not marked released")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("use of a released scope must panic")
		}
	}()
	_ = a.Declare(child, "x", backend.ConstI32(1))
}
