package backend

import (
	"errors"
	"strings"
	"testing"

	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	target, _ := TargetByTriple("x86_64-unknown-linux-gnu")
	b, err := Initialize(Config{ModuleName: "test", Target: target})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = b.Shutdown() })
	return b
}

func TestInitializeIsExclusive(t *testing.T) {
	b := newTestBackend(t)
	if _, err := Initialize(Config{}); !errors.Is(err, ErrBackendLive) {
		t.Fatalf("second Initialize: got %v, want ErrBackendLive", err)
	}
	if err := b.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := b.Shutdown(); !errors.Is(err, ErrBackendClosed) {
		t.Fatalf("second Shutdown: got %v", err)
	}
	b2, err := Initialize(Config{})
	if err != nil {
		t.Fatalf("Initialize after Shutdown: %v", err)
	}
	_ = b2.Shutdown()
}

func TestAddFunction(t *testing.T) {
	b := newTestBackend(t)
	f := b.Module().NewFunc("add", types.I32, Param{"a", types.I32}, Param{"b", types.I32})
	bld := b.Builder()
	bld.SetInsertPoint(f.NewBlock("entry"))
	bld.Ret(bld.Add(f.Param(0), f.Param(1)))
	if err := f.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	got, err := b.Engine().Call(f, IntVal(3), IntVal(4))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.I != 7 {
		t.Fatalf("add(3,4) = %d", got.I)
	}
	if ir := b.Module().String(); !strings.Contains(ir, "define i32 @add(i32 %a, i32 %b)") {
		t.Fatalf("unexpected IR:\n%s", ir)
	}
}

func TestIntegerWrapAndDivision(t *testing.T) {
	b := newTestBackend(t)
	f := b.Module().NewFunc("wrap", types.I32)
	bld := b.Builder()
	bld.SetInsertPoint(f.NewBlock("entry"))
	bld.Ret(bld.Add(ConstI32(2147483647), ConstI32(1)))
	got, err := b.Engine().Call(f)
	if err != nil || got.I != -2147483648 {
		t.Fatalf("wrap = %d, %v", got.I, err)
	}

	div := b.Module().NewFunc("div", types.I32, Param{"a", types.I32})
	bld.SetInsertPoint(div.NewBlock("entry"))
	bld.Ret(bld.SDiv(ConstI32(1), div.Param(0)))
	_, err = b.Engine().Call(div, IntVal(0))
	var trap *TrapError
	if !errors.As(err, &trap) {
		t.Fatalf("division by zero: got %v, want trap", err)
	}
}

func TestVectorSlotRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	vt := types.NewVector(3, types.Float)
	f := b.Module().NewFunc("swz", types.Float)
	bld := b.Builder()
	bld.SetInsertPoint(f.NewBlock("entry"))
	slot := bld.Alloca(vt, "v")
	v := Undef(vt)
	for i, x := range []float64{1, 2, 3} {
		v = bld.InsertElement(v, ConstFloat(x), ConstI32(int64(i)))
	}
	bld.Store(v, slot)
	loaded := bld.Load(vt, slot)
	zy := bld.ShuffleVector(loaded, Undef(vt), []int{2, 1})
	sum := bld.FAdd(bld.ExtractElement(zy, ConstI32(0)), bld.ExtractElement(zy, ConstI32(1)))
	bld.Ret(sum)

	live := b.Engine().Memory().Live()
	got, err := b.Engine().Call(f)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.F != 5 {
		t.Fatalf("z+y = %v", got.F)
	}
	if b.Engine().Memory().Live() != live {
		t.Fatal("alloca slots must be released on return")
	}
}

func TestLoopWithPhi(t *testing.T) {
	b := newTestBackend(t)
	bld := b.Builder()
	f := b.Module().NewFunc("sum", types.I32, Param{"n", types.I32})
	entry := f.NewBlock("entry")
	loop := f.CreateBlock("loop")
	after := f.CreateBlock("after")

	bld.SetInsertPoint(entry)
	bld.Br(loop)

	f.Attach(loop)
	bld.SetInsertPoint(loop)
	i := bld.Phi(Incoming{ConstI32(0), entry})
	acc := bld.Phi(Incoming{ConstI32(0), entry})
	nextAcc := bld.Add(acc.Value, i.Value)
	nextI := bld.Add(i.Value, ConstI32(1))
	i.AddIncoming(nextI, loop)
	acc.AddIncoming(nextAcc, loop)
	bld.CondBr(bld.ICmp(enum.IPredSLT, nextI, f.Param(0)), loop, after)

	f.Attach(after)
	bld.SetInsertPoint(after)
	bld.Ret(nextAcc)

	got, err := b.Engine().Call(f, IntVal(4))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.I != 6 {
		t.Fatalf("sum(4) = %d, want 6", got.I)
	}
}

func TestEmitAfterTerminatorStartsNewBlock(t *testing.T) {
	b := newTestBackend(t)
	bld := b.Builder()
	f := b.Module().NewFunc("f", types.Void)
	entry := f.NewBlock("entry")
	bld.SetInsertPoint(entry)
	bld.Ret(nil)
	bld.Ret(nil)
	if bld.InsertBlock() == entry || len(f.Blocks()) != 2 {
		t.Fatalf("expected a continuation block, have %d blocks", len(f.Blocks()))
	}
	if err := f.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestNativeSymbolBinding(t *testing.T) {
	b := newTestBackend(t)
	eng := b.Engine()
	eng.RegisterSymbol("twice", func(_ *Memory, args []Val) Val { return IntVal(args[0].I * 2) })
	ext := b.Module().NewFunc("twice", types.I32, Param{"x", types.I32})
	if !eng.Bind(ext, "twice") {
		t.Fatal("Bind failed")
	}
	if eng.Bind(b.Module().NewFunc("missing", types.Void), "missing") {
		t.Fatal("Bind of an unregistered symbol must fail")
	}
	caller := b.Module().NewFunc("caller", types.I32)
	bld := b.Builder()
	bld.SetInsertPoint(caller.NewBlock("entry"))
	bld.Ret(bld.Call(ext, ConstI32(21)))
	got, err := eng.Callable(caller)()
	if err != nil || got.I != 42 {
		t.Fatalf("caller() = %d, %v", got.I, err)
	}
}

func TestMemoryTraps(t *testing.T) {
	b := newTestBackend(t)
	mem := b.Engine().Memory()
	if _, err := mem.Read(0, types.I32); err == nil {
		t.Fatal("null read must trap")
	}
	addr := mem.AllocType(types.I32)
	if err := mem.Write(addr, types.I32, IntVal(-5)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	v, err := mem.Read(addr, types.I32)
	if err != nil || v.I != -5 {
		t.Fatalf("Read = %d, %v", v.I, err)
	}
	if _, err := mem.Read(addr, types.I64); err == nil {
		t.Fatal("overrun must trap")
	}
	mem.Free(addr)
	if _, err := mem.Read(addr, types.I32); err == nil {
		t.Fatal("dangling read must trap")
	}
}

func TestCallArity(t *testing.T) {
	b := newTestBackend(t)
	f := b.Module().NewFunc("g", types.Void, Param{"x", types.I32})
	if _, err := b.Engine().Call(f); !errors.Is(err, ErrArity) {
		t.Fatalf("got %v, want ErrArity", err)
	}
	if _, err := b.Engine().Call(f, IntVal(1)); !errors.Is(err, ErrNoBody) {
		t.Fatalf("got %v, want ErrNoBody", err)
	}
}
