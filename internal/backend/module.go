package backend

import (
	"fmt"
	"slices"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"ksc/internal/layout"
)

// Module is the compilation unit every function and struct type lives in.
type Module struct {
	ir     *ir.Module
	layout *layout.LayoutEngine
	funcs  map[string]*Func
	order  []*Func
	named  map[string]*types.StructType
}

func newModule(name string, target Target, le *layout.LayoutEngine) *Module {
	m := ir.NewModule()
	m.SourceFilename = name
	m.TargetTriple = target.Triple
	m.DataLayout = target.DataLayout()
	return &Module{
		ir:     m,
		layout: le,
		funcs:  make(map[string]*Func),
		named:  make(map[string]*types.StructType),
	}
}

// IR returns the underlying LLVM IR module.
func (m *Module) IR() *ir.Module { return m.ir }

// String renders the module as textual LLVM IR.
func (m *Module) String() string { return m.ir.String() }

// Layout returns the data layout engine of the module's target.
func (m *Module) Layout() *layout.LayoutEngine { return m.layout }

// Param describes one formal parameter of a new function.
type Param struct {
	Name string
	Type types.Type
}

// NewFunc declares a function. It has no body until a block is added.
// A clashing symbol name gets a numeric suffix.
func (m *Module) NewFunc(name string, ret types.Type, params ...Param) *Func {
	sym := name
	for i := 1; m.funcs[sym] != nil; i++ {
		sym = fmt.Sprintf("%s.%d", name, i)
	}
	irParams := make([]*ir.Param, len(params))
	for i, p := range params {
		irParams[i] = ir.NewParam(p.Name, p.Type)
	}
	f := &Func{
		mod:   m,
		ir:    m.ir.NewFunc(sym, ret, irParams...),
		name:  sym,
		names: make(map[string]int),
	}
	for _, p := range params {
		if p.Name != "" {
			f.names[p.Name]++
		}
	}
	f.params = make([]*Value, len(params))
	for i, p := range irParams {
		idx := i
		f.params[i] = &Value{ir: p, typ: p.Type(), eval: func(fr *frame) Val { return fr.args[idx] }}
	}
	m.funcs[sym] = f
	m.order = append(m.order, f)
	return f
}

// Func looks up a function by symbol name.
func (m *Module) Func(name string) (*Func, bool) {
	f, ok := m.funcs[name]
	return f, ok
}

// Funcs returns all functions in declaration order.
func (m *Module) Funcs() []*Func { return m.order }

// NewStructType registers a named struct type %<name>.
func (m *Module) NewStructType(name string, fields ...types.Type) *types.StructType {
	st := types.NewStruct(fields...)
	sym := name
	for i := 1; m.named[sym] != nil; i++ {
		sym = fmt.Sprintf("%s.%d", name, i)
	}
	m.ir.NewTypeDef(sym, st)
	m.named[sym] = st
	return st
}

// NativeFunc implements an external function on the host side.
type NativeFunc func(mem *Memory, args []Val) Val

// Func is a function under construction or ready to run.
type Func struct {
	mod     *Module
	ir      *ir.Func
	name    string
	params  []*Value
	blocks  []*Block
	nregs   int
	allocas int
	names   map[string]int
	native  NativeFunc
}

func (f *Func) Name() string { return f.name }
func (f *Func) IR() *ir.Func { return f.ir }
func (f *Func) Sig() *types.FuncType { return f.ir.Sig }
func (f *Func) RetType() types.Type { return f.ir.Sig.RetType }
func (f *Func) Params() []*Value { return f.params }
func (f *Func) Param(i int) *Value { return f.params[i] }
func (f *Func) Blocks() []*Block { return f.blocks }
func (f *Func) Module() *Module { return f.mod }
func (f *Func) HasBody() bool { return len(f.blocks) > 0 }
func (f *Func) IsBound() bool { return f.native != nil }
func (f *Func) ParamTypes() []types.Type { return f.ir.Sig.Params }

// Entry returns the entry block or nil for a declaration.
func (f *Func) Entry() *Block {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

func (f *Func) newReg() int {
	r := f.nregs
	f.nregs++
	return r
}

func (f *Func) uniqueName(name string) string {
	n := f.names[name]
	f.names[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s%d", name, n)
}

// NewBlock creates a block and appends it to the function.
func (f *Func) NewBlock(name string) *Block {
	b := f.CreateBlock(name)
	f.Attach(b)
	return b
}

// CreateBlock creates a block that is not yet part of the layout; Attach adds it.
func (f *Func) CreateBlock(name string) *Block {
	name = f.uniqueName(name)
	b := &Block{fn: f, ir: f.ir.NewBlock(name), name: name}
	// keep the IR block list in attach order
	f.ir.Blocks = f.ir.Blocks[:len(f.ir.Blocks)-1]
	return b
}

// Attach appends a created block to the end of the function.
func (f *Func) Attach(b *Block) {
	if b.attached {
		return
	}
	if b.fn != f {
		panic(fmt.Sprintf("backend: block %s belongs to %s, not %s", b.name, b.fn.name, f.name))
	}
	b.attached = true
	f.blocks = append(f.blocks, b)
	f.ir.Blocks = append(f.ir.Blocks, b.ir)
}

// Verify checks that every block is attached and terminated.
func (f *Func) Verify() error {
	for _, b := range f.blocks {
		if b.term == nil {
			return fmt.Errorf("function %s: block %s has no terminator", f.name, b.name)
		}
	}
	for _, b := range f.blocks {
		if !slices.Contains(f.ir.Blocks, b.ir) {
			return fmt.Errorf("function %s: block %s missing from IR", f.name, b.name)
		}
	}
	return nil
}

type step func(fr *frame)

// termFn ends a block: it yields the successor or, for a return, the result.
type termFn func(fr *frame) (next *Block, ret Val, done bool)

// Block is a basic block.
type Block struct {
	fn       *Func
	ir       *ir.Block
	name     string
	steps    []step
	term     termFn
	attached bool
}

func (b *Block) Name() string { return b.name }
func (b *Block) IR() *ir.Block { return b.ir }
func (b *Block) Func() *Func { return b.fn }
func (b *Block) Terminated() bool { return b.term != nil }
func (b *Block) Attached() bool { return b.attached }
