package backend

import (
	"errors"
	"fmt"
	"sort"
)

// maxCallDepth bounds recursion in compiled code.
const maxCallDepth = 4096

var (
	// ErrNoBody is returned when a function has neither a body nor a native binding.
	ErrNoBody = errors.New("function has no body")
	// ErrArity is returned when a call supplies the wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")
)

// Engine executes functions of a module. Native symbols registered before
// lowering satisfy bodyless declarations.
type Engine struct {
	mod     *Module
	mem     *Memory
	symbols map[string]NativeFunc
}

func newEngine(mod *Module) *Engine {
	return &Engine{
		mod:     mod,
		mem:     newMemory(mod.layout),
		symbols: make(map[string]NativeFunc),
	}
}

// Memory returns the memory shared by compiled code and the host.
func (e *Engine) Memory() *Memory { return e.mem }

// RegisterSymbol adds a native implementation under name, replacing any
// previous registration.
func (e *Engine) RegisterSymbol(name string, fn NativeFunc) {
	e.symbols[name] = fn
}

// LookupSymbol finds a registered native symbol.
func (e *Engine) LookupSymbol(name string) (NativeFunc, bool) {
	fn, ok := e.symbols[name]
	return fn, ok
}

// Symbols lists registered symbol names in sorted order.
func (e *Engine) Symbols() []string {
	names := make([]string, 0, len(e.symbols))
	for name := range e.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bind resolves a bodyless function against the symbol table.
func (e *Engine) Bind(f *Func, symbol string) bool {
	fn, ok := e.symbols[symbol]
	if !ok {
		return false
	}
	f.native = fn
	return true
}

// Callable is a host-side entry point into compiled code.
type Callable func(args ...Val) (Val, error)

// Callable returns an entry point for f.
func (e *Engine) Callable(f *Func) Callable {
	return func(args ...Val) (Val, error) { return e.Call(f, args...) }
}

// Call runs f to completion. Run-time traps come back as *TrapError.
func (e *Engine) Call(f *Func, args ...Val) (ret Val, err error) {
	if len(args) != len(f.params) {
		return Val{}, fmt.Errorf("%s: %w: got %d, want %d", f.name, ErrArity, len(args), len(f.params))
	}
	if !f.HasBody() && f.native == nil {
		return Val{}, fmt.Errorf("%s: %w", f.name, ErrNoBody)
	}
	defer recoverTrap(&err)
	return e.invoke(f, args, 0), nil
}

type frame struct {
	eng   *Engine
	fn    *Func
	regs  []Val
	args  []Val
	prev  *Block
	segs  []int64
	depth int
}

func (fr *frame) alloca(size int) int64 {
	addr := fr.eng.mem.Alloc(size)
	fr.segs = append(fr.segs, addr)
	return addr
}

func (e *Engine) invoke(f *Func, args []Val, depth int) Val {
	if depth > maxCallDepth {
		panic(trapf("call depth exceeded in %s", f.name))
	}
	if f.native != nil {
		return f.native(e.mem, args)
	}
	if !f.HasBody() {
		panic(trapf("call of unresolved function %s", f.name))
	}
	fr := &frame{eng: e, fn: f, regs: make([]Val, f.nregs), args: args, depth: depth}
	defer func() {
		for _, addr := range fr.segs {
			e.mem.Free(addr)
		}
	}()
	blk := f.blocks[0]
	for {
		for _, s := range blk.steps {
			s(fr)
		}
		if blk.term == nil {
			panic(trapf("%s: fell off block %s", f.name, blk.name))
		}
		next, ret, done := blk.term(fr)
		if done {
			return ret
		}
		fr.prev, blk = blk, next
	}
}
