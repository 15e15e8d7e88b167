package codegen

import (
	"testing"

	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/backend"
	"ksc/internal/types"
)

// castFunc builds a function taking one `from` value and returning it cast
// through the given chain of types.
func castFunc(t *testing.T, be *backend.Backend, name string, chain ...types.VarType) *backend.Func {
	t.Helper()
	last := chain[len(chain)-1]
	f := be.Module().NewFunc(name, LLVMType(last), backend.Param{Name: "x", Type: LLVMType(chain[0])})
	b := be.Builder()
	b.SetInsertPoint(f.NewBlock("entry"))
	v := f.Param(0)
	for i := 1; i < len(chain); i++ {
		v = CastValueType(b, v, chain[i-1], chain[i])
	}
	b.Ret(v)
	return f
}

func TestCastIntFloatRoundTrip(t *testing.T) {
	be := newBackend(t)
	f := castFunc(t, be, "rt", types.Int, types.Float, types.Int)
	for _, x := range []int64{0, 1, -1, 42, -123456, 16777216, -16777216} {
		got, err := be.Engine().Call(f, backend.IntVal(x))
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if got.I != x {
			t.Fatalf("int->float->int(%d) = %d", x, got.I)
		}
	}
}

func TestCastFloatToIntTruncates(t *testing.T) {
	be := newBackend(t)
	f := castFunc(t, be, "trunc", types.Float, types.Int)
	for _, tc := range []struct {
		in   float64
		want int64
	}{{2.9, 2}, {-2.9, -2}, {0.5, 0}} {
		got, _ := be.Engine().Call(f, backend.FloatVal(tc.in))
		if got.I != tc.want {
			t.Fatalf("fptosi(%v) = %d, want %d", tc.in, got.I, tc.want)
		}
	}
}

func TestCastVectorPreservesOrder(t *testing.T) {
	be := newBackend(t)
	f := castFunc(t, be, "vec", types.Int4, types.Float4)
	in := backend.AggVal(backend.IntVal(4), backend.IntVal(-3), backend.IntVal(2), backend.IntVal(-1))
	got, err := be.Engine().Call(f, in)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	want := []float64{4, -3, 2, -1}
	lanes := got.Floats()
	if len(lanes) != len(want) {
		t.Fatalf("lanes = %v", lanes)
	}
	for i := range want {
		if lanes[i] != want[i] {
			t.Fatalf("int4->float4 = %v, want %v", lanes, want)
		}
	}
}

func TestCastTruncatesAndSplats(t *testing.T) {
	be := newBackend(t)
	narrow := castFunc(t, be, "narrow", types.Float4, types.Int2)
	in := backend.AggVal(backend.FloatVal(1.5), backend.FloatVal(-7.25), backend.FloatVal(3), backend.FloatVal(4))
	got, _ := be.Engine().Call(narrow, in)
	if lanes := got.Ints(); len(lanes) != 2 || lanes[0] != 1 || lanes[1] != -7 {
		t.Fatalf("float4->int2 = %v", lanes)
	}

	splat := castFunc(t, be, "splat", types.Int, types.Float3)
	got, _ = be.Engine().Call(splat, backend.IntVal(5))
	if lanes := got.Floats(); len(lanes) != 3 || lanes[0] != 5 || lanes[1] != 5 || lanes[2] != 5 {
		t.Fatalf("int->float3 = %v", lanes)
	}
}

func TestCastPassThrough(t *testing.T) {
	be := newBackend(t)
	b := be.Builder()
	f := be.Module().NewFunc("pt", lltypes.Void, backend.Param{Name: "v", Type: LLVMType(types.Float2)}, backend.Param{Name: "s", Type: LLVMType(types.Float4)})
	b.SetInsertPoint(f.NewBlock("entry"))
	if got := CastValueType(b, f.Param(0), types.Float2, types.Float4); got != f.Param(0) {
		t.Fatal("widening a vector must pass through unchanged")
	}
	if got := CastValueType(b, f.Param(1), types.Float4, types.Float); got != f.Param(1) {
		t.Fatal("narrowing to a scalar must pass through unchanged")
	}
	if got := CastValueType(b, f.Param(0), types.Float2, types.Float2); got != f.Param(0) {
		t.Fatal("identity cast must not emit code")
	}
}
