package codegen

import (
	"bytes"
	"testing"

	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/ast"
	"ksc/internal/backend"
	"ksc/internal/types"
)

func TestToPackedTypeIdentity(t *testing.T) {
	for _, typ := range []lltypes.Type{
		lltypes.I32,
		lltypes.Float,
		lltypes.NewArray(3, lltypes.Float),
		lltypes.NewStruct(lltypes.I32, lltypes.NewArray(2, lltypes.Float)),
		lltypes.NewPointer(lltypes.I32),
	} {
		if got := ToPackedType(typ); got != typ {
			t.Fatalf("ToPackedType(%s) = %s, want the same type", typ, got)
		}
		if NeedsPacking(typ) {
			t.Fatalf("NeedsPacking(%s) = true", typ)
		}
	}
}

func TestToPackedTypeShapes(t *testing.T) {
	cases := []struct {
		in   lltypes.Type
		want string
	}{
		{lltypes.I1, "i32"},
		{lltypes.NewVector(3, lltypes.Float), "[3 x float]"},
		{lltypes.NewVector(2, lltypes.I1), "[2 x i32]"},
		{lltypes.NewArray(2, lltypes.NewVector(4, lltypes.I32)), "[2 x [4 x i32]]"},
		{lltypes.NewStruct(lltypes.I1, lltypes.NewVector(3, lltypes.Float)), "{ i32, [3 x float] }"},
		{lltypes.NewPointer(lltypes.NewVector(4, lltypes.Float)), "[4 x float]*"},
	}
	for _, tc := range cases {
		if got := ToPackedType(tc.in).String(); got != tc.want {
			t.Fatalf("ToPackedType(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

// roundTrip builds fn(x T) T that packs x into packed memory and unpacks it again.
func roundTrip(t *testing.T, be *backend.Backend, name string, typ lltypes.Type) *backend.Func {
	t.Helper()
	f := be.Module().NewFunc(name, typ, backend.Param{Name: "x", Type: typ})
	b := be.Builder()
	b.SetInsertPoint(f.NewBlock("entry"))
	packed := ToPackedType(typ)
	slot := b.Alloca(packed, "packed")
	PackValue(b, f.Param(0), slot)
	b.Ret(UnpackValue(b, b.Load(packed, slot), typ))
	return f
}

func TestPackUnpackRoundTrip(t *testing.T) {
	be := newBackend(t)
	inner := lltypes.NewStruct(lltypes.NewVector(3, lltypes.I1), lltypes.I32)
	outer := lltypes.NewStruct(
		lltypes.NewVector(4, lltypes.Float),
		lltypes.NewArray(2, inner),
		lltypes.I1,
	)
	bools := func(bs ...bool) backend.Val {
		out := make([]backend.Val, len(bs))
		for i, v := range bs {
			out[i] = backend.BoolVal(v)
		}
		return backend.AggVal(out...)
	}
	cases := []struct {
		name string
		typ  lltypes.Type
		in   backend.Val
	}{
		{"scalar", lltypes.I32, backend.IntVal(-9)},
		{"bool", lltypes.I1, backend.BoolVal(true)},
		{"vector", lltypes.NewVector(3, lltypes.Float), backend.AggVal(backend.FloatVal(1), backend.FloatVal(-2.5), backend.FloatVal(3))},
		{"bvec", lltypes.NewVector(4, lltypes.I1), bools(true, false, false, true)},
		{"array", lltypes.NewArray(2, lltypes.NewVector(2, lltypes.I32)), backend.AggVal(
			backend.AggVal(backend.IntVal(1), backend.IntVal(2)),
			backend.AggVal(backend.IntVal(-3), backend.IntVal(4)),
		)},
		{"handle member", lltypes.NewStruct(lltypes.NewVector(3, lltypes.Float), lltypes.NewPointer(lltypes.I8)), backend.AggVal(
			backend.AggVal(backend.FloatVal(1), backend.FloatVal(2), backend.FloatVal(3)),
			backend.IntVal(4096),
		)},
		{"handle array", lltypes.NewArray(2, lltypes.NewStruct(lltypes.I1, lltypes.NewPointer(lltypes.I8))), backend.AggVal(
			backend.AggVal(backend.BoolVal(true), backend.IntVal(64)),
			backend.AggVal(backend.BoolVal(false), backend.IntVal(128)),
		)},
		{"nested", outer, backend.AggVal(
			backend.AggVal(backend.FloatVal(1.5), backend.FloatVal(-2), backend.FloatVal(0), backend.FloatVal(8)),
			backend.AggVal(
				backend.AggVal(bools(true, false, true), backend.IntVal(-7)),
				backend.AggVal(bools(false, false, true), backend.IntVal(2147483647)),
			),
			backend.BoolVal(true),
		)},
	}
	for _, tc := range cases {
		f := roundTrip(t, be, tc.name, tc.typ)
		got, err := be.Engine().Call(f, tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !got.Equal(tc.in) {
			t.Fatalf("%s: unpack(pack(%s)) = %s", tc.name, tc.in, got)
		}
	}
}

func TestPackWidensBoolsToOne(t *testing.T) {
	be := newBackend(t)
	bvec := lltypes.NewVector(3, lltypes.I1)
	packed := ToPackedType(bvec)
	f := be.Module().NewFunc("store", lltypes.Void,
		backend.Param{Name: "v", Type: bvec},
		backend.Param{Name: "out", Type: lltypes.NewPointer(packed)})
	b := be.Builder()
	b.SetInsertPoint(f.NewBlock("entry"))
	PackValue(b, f.Param(0), f.Param(1))
	b.Ret(nil)

	mem := be.Engine().Memory()
	addr := mem.AllocType(packed)
	in := backend.AggVal(backend.BoolVal(true), backend.BoolVal(false), backend.BoolVal(true))
	if _, err := be.Engine().Call(f, in, backend.IntVal(addr)); err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, err := mem.Read(addr, packed)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if lanes := got.Ints(); lanes[0] != 1 || lanes[1] != 0 || lanes[2] != 1 {
		t.Fatalf("packed lanes = %v, want [1 0 1]", lanes)
	}
}

func TestWrapperIdentityWithoutPacking(t *testing.T) {
	be := newBackend(t)
	args := []ast.Arg{{Name: "a", Type: intT}, {Name: "k", Type: floatT}}
	a, k := ast.Ref("a", intT), ast.Ref("k", floatT)
	desc := compile(t, be, define("scale", floatT, args, ast.Return(ast.Bin("*", k, a))))
	fd := desc.Functions["scale"]
	if fd.NeedsPacking[0] || fd.NeedsPacking[1] {
		t.Fatalf("NeedsPacking = %v", fd.NeedsPacking)
	}
	if w := BuildPackedWrapper(be, fd); w != fd.Func {
		t.Fatalf("wrapper = %s, want the function itself", w.Name())
	}
	if _, ok := be.Module().Func("scale_packed"); ok {
		t.Fatal("no wrapper should be emitted")
	}
	call, err := fd.Callable(true)
	if err != nil {
		t.Fatalf("Callable: %v", err)
	}
	got, err := call(backend.IntVal(3), backend.FloatVal(1.5))
	if err != nil || got.F != 4.5 {
		t.Fatalf("scale(3, 1.5) = %v, %v", got.F, err)
	}
}

func TestPackedWrapperByRefVector(t *testing.T) {
	be := newBackend(t)
	f3 := types.Of(types.Float3)
	v := ast.Ref("v", f3)
	desc := compile(t, be, define("bump", voidT, []ast.Arg{{Name: "v", Type: f3, ByRef: true}, {Name: "d", Type: floatT}},
		ast.Assign(ast.Dot(v, "y"), ast.Bin("+", ast.Dot(v, "y"), ast.Ref("d", floatT))),
	))
	fd := desc.Functions["bump"]
	if !fd.NeedsPacking[0] || fd.NeedsPacking[1] {
		t.Fatalf("NeedsPacking = %v", fd.NeedsPacking)
	}
	if fd.ArgTypeStrings[0] != "float3" || fd.ArgumentTypes[0].IsKSCLayout || fd.ArgumentTypes[0].PackedSize != 12 {
		t.Fatalf("argument 0 = %+v", fd.ArgumentTypes[0])
	}

	call, err := fd.Callable(true)
	if err != nil {
		t.Fatalf("Callable: %v", err)
	}
	if fd.PackedFunc().Name() != "bump_packed" || fd.PackedFunc().Entry().Name() != "entry_packed" {
		t.Fatalf("wrapper %s/%s", fd.PackedFunc().Name(), fd.PackedFunc().Entry().Name())
	}

	mem := be.Engine().Memory()
	arr := lltypes.NewArray(3, lltypes.Float)
	addr := mem.AllocType(arr)
	if err := mem.Write(addr, arr, backend.AggVal(backend.FloatVal(1), backend.FloatVal(2), backend.FloatVal(3))); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := call(backend.IntVal(addr), backend.FloatVal(0.5)); err != nil {
		t.Fatalf("bump_packed: %v", err)
	}
	got, err := mem.Read(addr, arr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if lanes := got.Floats(); lanes[0] != 1 || lanes[1] != 2.5 || lanes[2] != 3 {
		t.Fatalf("packed v after call = %v", lanes)
	}
}

func TestPackedWrapperReturnsBools(t *testing.T) {
	be := newBackend(t)
	desc := compile(t, be, define("mask", types.Of(types.Bool4), nil,
		ast.Return(ast.Init(types.Bool4, ast.Bool(true), ast.Bool(false), ast.Bool(true), ast.Bool(true))),
	))
	fd := desc.Functions["mask"]
	call, err := fd.Callable(true)
	if err != nil {
		t.Fatalf("Callable: %v", err)
	}
	got, err := call()
	if err != nil {
		t.Fatalf("mask_packed: %v", err)
	}
	want := []int64{1, 0, 1, 1}
	for i, lane := range got.Ints() {
		if lane != want[i] {
			t.Fatalf("packed result = %v, want %v", got.Ints(), want)
		}
	}
	if fd.PackedFunc().RetType().String() != "[4 x i32]" {
		t.Fatalf("wrapper returns %s", fd.PackedFunc().RetType())
	}
}

func TestPackedWrapperKeepsHandleMembers(t *testing.T) {
	be := newBackend(t)
	def := types.NewStructDef("Tex",
		types.Member{Name: "uv", Type: types.Float3},
		types.Member{Name: "h", Type: types.ExternType},
	)
	st := types.OfStruct(def)
	s := ast.Ref("s", st)
	desc := compile(t, be, ast.Struct(def), define("shift", st, []ast.Arg{{Name: "s", Type: st}},
		ast.Assign(ast.Dot(ast.Dot(s, "uv"), "x"), ast.Float(7)),
		ast.Return(s),
	))
	fd := desc.Functions["shift"]
	if !fd.NeedsPacking[0] {
		t.Fatalf("NeedsPacking = %v", fd.NeedsPacking)
	}
	call, err := fd.Callable(true)
	if err != nil {
		t.Fatalf("Callable: %v", err)
	}
	in := backend.AggVal(
		backend.AggVal(backend.FloatVal(1), backend.FloatVal(2), backend.FloatVal(3)),
		backend.IntVal(4096),
	)
	got, err := call(in)
	if err != nil {
		t.Fatalf("shift_packed: %v", err)
	}
	want := backend.AggVal(
		backend.AggVal(backend.FloatVal(7), backend.FloatVal(2), backend.FloatVal(3)),
		backend.IntVal(4096),
	)
	if !got.Equal(want) {
		t.Fatalf("shift_packed = %s, want %s", got, want)
	}
	if ret := fd.PackedFunc().RetType().String(); ret != "{ [3 x float], i8* }" {
		t.Fatalf("wrapper returns %s", ret)
	}
}

func TestModuleDescMsgpackRoundTrip(t *testing.T) {
	be := newBackend(t)
	def := types.NewStructDef("P",
		types.Member{Name: "x", Type: types.Float},
		types.Member{Name: "flags", Type: types.Bool2},
	)
	f3 := types.Of(types.Float3)
	desc := compile(t, be, ast.Struct(def), define("len2", floatT, []ast.Arg{{Name: "v", Type: f3}},
		ast.Return(ast.Dot(ast.Ref("v", f3), "x")),
	))

	var buf bytes.Buffer
	if err := desc.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeModuleDesc(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != "test" || got.Triple != "x86_64-unknown-linux-gnu" {
		t.Fatalf("header = %s/%s", got.Name, got.Triple)
	}
	sd := got.Structs["P"]
	if sd == nil || sd.Size != desc.Structs["P"].Size || sd.Members["flags"].PackedOffset != 4 {
		t.Fatalf("struct P = %+v", sd)
	}
	fd := got.Functions["len2"]
	if fd == nil || len(fd.NeedsPacking) != 1 || !fd.NeedsPacking[0] || fd.ArgTypeStrings[0] != "float3" {
		t.Fatalf("function len2 = %+v", fd)
	}
	if fd.Func != nil {
		t.Fatal("function handles are not serialized")
	}
	if _, err := fd.Callable(false); err == nil {
		t.Fatal("a decoded descriptor must not be callable")
	}
}
