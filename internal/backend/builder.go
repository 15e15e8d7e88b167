package backend

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Builder appends instructions at a single insertion point.
// Each instruction is recorded twice: as LLVM IR and as an engine step.
type Builder struct {
	mod *Module
	cur *Block
}

// SetInsertPoint moves the builder to the end of blk.
func (b *Builder) SetInsertPoint(blk *Block) { b.cur = blk }

// InsertBlock returns the block instructions currently go into.
func (b *Builder) InsertBlock() *Block { return b.cur }

// Func returns the function being built.
func (b *Builder) Func() *Func {
	if b.cur == nil {
		return nil
	}
	return b.cur.fn
}

// live returns the insertion block. Code emitted after a terminator lands
// in a fresh block with no predecessors, as LLVM's own builder would require.
func (b *Builder) live() *Block {
	if b.cur == nil {
		panic("backend: no insertion point")
	}
	if b.cur.term != nil {
		b.cur = b.cur.fn.NewBlock("unreachable")
	}
	return b.cur
}

func (b *Builder) define(blk *Block, inst value.Value, compute evalFn) *Value {
	r := blk.fn.newReg()
	blk.steps = append(blk.steps, func(fr *frame) { fr.regs[r] = compute(fr) })
	return &Value{ir: inst, typ: inst.Type(), eval: func(fr *frame) Val { return fr.regs[r] }}
}

// Alloca reserves a stack slot for one t in the entry block of the current
// function, so slots inside loops are allocated once per call.
func (b *Builder) Alloca(t types.Type, name string) *Value {
	f := b.Func()
	entry := f.Entry()
	inst := ir.NewAlloca(t)
	if name != "" {
		inst.SetName(f.uniqueName(name))
	}
	pos := f.allocas
	entry.ir.Insts = append(entry.ir.Insts, nil)
	copy(entry.ir.Insts[pos+1:], entry.ir.Insts[pos:])
	entry.ir.Insts[pos] = inst

	size := f.mod.layout.MustLayoutOf(t).Size
	r := f.newReg()
	s := func(fr *frame) { fr.regs[r] = IntVal(fr.alloca(size)) }
	entry.steps = append(entry.steps, nil)
	copy(entry.steps[pos+1:], entry.steps[pos:])
	entry.steps[pos] = s
	f.allocas++
	return &Value{ir: inst, typ: inst.Type(), eval: func(fr *frame) Val { return fr.regs[r] }}
}

// Load reads a t from ptr.
func (b *Builder) Load(t types.Type, ptr *Value) *Value {
	blk := b.live()
	p := ptr.eval
	return b.define(blk, blk.ir.NewLoad(t, ptr.ir), func(fr *frame) Val {
		return fr.eng.mem.Load(p(fr).I, t)
	})
}

// Store writes v to ptr.
func (b *Builder) Store(v, ptr *Value) {
	blk := b.live()
	blk.ir.NewStore(v.ir, ptr.ir)
	t, src, dst := v.typ, v.eval, ptr.eval
	blk.steps = append(blk.steps, func(fr *frame) {
		fr.eng.mem.Store(dst(fr).I, t, src(fr))
	})
}

// GEP computes an element address. The first index steps over whole elemTy
// values; the rest descend into arrays, vectors and struct fields.
func (b *Builder) GEP(elemTy types.Type, ptr *Value, indices ...*Value) *Value {
	blk := b.live()
	irIdx := make([]value.Value, len(indices))
	evals := make([]evalFn, len(indices))
	for i, idx := range indices {
		irIdx[i] = idx.ir
		evals[i] = idx.eval
	}
	base := ptr.eval
	mem := b.mod
	return b.define(blk, blk.ir.NewGetElementPtr(elemTy, ptr.ir, irIdx...), func(fr *frame) Val {
		addr := base(fr).I
		if len(evals) == 0 {
			return IntVal(addr)
		}
		size := int64(mem.layout.MustLayoutOf(elemTy).Size)
		addr += evals[0](fr).I * size
		cur := elemTy
		for _, ev := range evals[1:] {
			off, next := fr.eng.mem.offsetOf(cur, ev(fr).I)
			addr += off
			cur = next
		}
		return IntVal(addr)
	})
}

// ExtractElement reads one vector lane.
func (b *Builder) ExtractElement(vec, idx *Value) *Value {
	blk := b.live()
	v, i := vec.eval, idx.eval
	return b.define(blk, blk.ir.NewExtractElement(vec.ir, idx.ir), func(fr *frame) Val {
		return v(fr).Elems[i(fr).I]
	})
}

// InsertElement returns vec with one lane replaced.
func (b *Builder) InsertElement(vec, elem, idx *Value) *Value {
	blk := b.live()
	v, e, i := vec.eval, elem.eval, idx.eval
	return b.define(blk, blk.ir.NewInsertElement(vec.ir, elem.ir, idx.ir), func(fr *frame) Val {
		out := v(fr).clone()
		out.Elems[i(fr).I] = e(fr)
		return out
	})
}

// ShuffleVector picks lanes from the concatenation of x and y.
func (b *Builder) ShuffleVector(x, y *Value, mask []int) *Value {
	blk := b.live()
	maskTy := types.NewVector(uint64(len(mask)), types.I32)
	elems := make([]constant.Constant, len(mask))
	for i, m := range mask {
		elems[i] = constant.NewInt(types.I32, int64(m))
	}
	xv, yv := x.eval, y.eval
	lanes := append([]int(nil), mask...)
	return b.define(blk, blk.ir.NewShuffleVector(x.ir, y.ir, constant.NewVector(maskTy, elems...)), func(fr *frame) Val {
		src := append(append([]Val(nil), xv(fr).Elems...), yv(fr).Elems...)
		out := Val{Elems: make([]Val, len(lanes))}
		for i, l := range lanes {
			out.Elems[i] = src[l].clone()
		}
		return out
	})
}

// ExtractValue reads one member of an array or struct value.
func (b *Builder) ExtractValue(agg *Value, idx uint64) *Value {
	blk := b.live()
	a := agg.eval
	return b.define(blk, blk.ir.NewExtractValue(agg.ir, idx), func(fr *frame) Val {
		return a(fr).Elems[idx].clone()
	})
}

// InsertValue returns agg with one member replaced.
func (b *Builder) InsertValue(agg, elem *Value, idx uint64) *Value {
	blk := b.live()
	a, e := agg.eval, elem.eval
	return b.define(blk, blk.ir.NewInsertValue(agg.ir, elem.ir, idx), func(fr *frame) Val {
		out := a(fr).clone()
		out.Elems[idx] = e(fr)
		return out
	})
}

// Select picks a or c per cond; a vector cond selects lane by lane.
func (b *Builder) Select(cond, a, c *Value) *Value {
	blk := b.live()
	cv, av, bv := cond.eval, a.eval, c.eval
	return b.define(blk, blk.ir.NewSelect(cond.ir, a.ir, c.ir), func(fr *frame) Val {
		cc := cv(fr)
		if cc.Elems == nil {
			if cc.Bool() {
				return av(fr)
			}
			return bv(fr)
		}
		x, y := av(fr), bv(fr)
		out := Val{Elems: make([]Val, len(cc.Elems))}
		for i, l := range cc.Elems {
			if l.Bool() {
				out.Elems[i] = x.Elems[i]
			} else {
				out.Elems[i] = y.Elems[i]
			}
		}
		return out
	})
}

// Call invokes fn with args.
func (b *Builder) Call(fn *Func, args ...*Value) *Value {
	blk := b.live()
	if len(args) != len(fn.params) {
		panic(fmt.Sprintf("backend: call of %s with %d arguments, want %d", fn.name, len(args), len(fn.params)))
	}
	irArgs := make([]value.Value, len(args))
	evals := make([]evalFn, len(args))
	for i, a := range args {
		irArgs[i] = a.ir
		evals[i] = a.eval
	}
	return b.define(blk, blk.ir.NewCall(fn.ir, irArgs...), func(fr *frame) Val {
		vals := make([]Val, len(evals))
		for i, ev := range evals {
			vals[i] = ev(fr)
		}
		return fr.eng.invoke(fn, vals, fr.depth+1)
	})
}

// Incoming is one (value, predecessor) pair of a phi node.
type Incoming struct {
	X    *Value
	Pred *Block
}

// Phi is a join node; AddIncoming extends it once predecessors are known.
type Phi struct {
	*Value
	inst *ir.InstPhi
	incs []Incoming
}

// AddIncoming records another predecessor.
func (p *Phi) AddIncoming(x *Value, pred *Block) {
	p.inst.Incs = append(p.inst.Incs, ir.NewIncoming(x.ir, pred.ir))
	p.incs = append(p.incs, Incoming{X: x, Pred: pred})
}

// Phi emits a join node over the given incoming pairs.
func (b *Builder) Phi(first Incoming, rest ...Incoming) *Phi {
	blk := b.live()
	inst := blk.ir.NewPhi(ir.NewIncoming(first.X.ir, first.Pred.ir))
	p := &Phi{inst: inst, incs: []Incoming{first}}
	for _, inc := range rest {
		p.AddIncoming(inc.X, inc.Pred)
	}
	p.Value = b.define(blk, inst, func(fr *frame) Val {
		for _, inc := range p.incs {
			if inc.Pred == fr.prev {
				return inc.X.eval(fr)
			}
		}
		panic(trapf("phi in %s: no incoming value for predecessor", blk.name))
	})
	return p
}

// Br ends the current block with an unconditional branch.
func (b *Builder) Br(target *Block) {
	blk := b.live()
	blk.ir.NewBr(target.ir)
	blk.term = func(*frame) (*Block, Val, bool) { return target, Val{}, false }
}

// CondBr ends the current block with a two-way branch on a one-bit predicate.
func (b *Builder) CondBr(cond *Value, then, els *Block) {
	blk := b.live()
	blk.ir.NewCondBr(cond.ir, then.ir, els.ir)
	c := cond.eval
	blk.term = func(fr *frame) (*Block, Val, bool) {
		if c(fr).Bool() {
			return then, Val{}, false
		}
		return els, Val{}, false
	}
}

// Ret ends the current block with a return; v is nil for void functions.
func (b *Builder) Ret(v *Value) {
	blk := b.live()
	if v == nil {
		blk.ir.NewRet(nil)
		blk.term = func(*frame) (*Block, Val, bool) { return nil, Val{}, true }
		return
	}
	blk.ir.NewRet(v.ir)
	ev := v.eval
	blk.term = func(fr *frame) (*Block, Val, bool) { return nil, ev(fr), true }
}

// Unreachable ends the current block with a trap.
func (b *Builder) Unreachable() {
	blk := b.live()
	blk.ir.NewUnreachable()
	name := blk.name
	blk.term = func(*frame) (*Block, Val, bool) {
		panic(trapf("reached unreachable block %s", name))
	}
}
