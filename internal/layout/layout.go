package layout

import (
	"github.com/llir/llvm/ir/types"
)

// TypeLayout is the in-memory layout of a backend type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Stride between consecutive elements of vectors and arrays.
	Stride int

	// Struct-only:
	FieldOffsets []int
	FieldAligns  []int
}

// LayoutEngine computes and caches memory layout for backend types.
// Types are keyed by identity; named structs share one entry per definition.
type LayoutEngine struct {
	Target Target

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		cache:  newCache(),
	}
}

type layoutState struct {
	stack []types.Type
	index map[types.Type]int
}

func newLayoutState() *layoutState {
	return &layoutState{index: make(map[types.Type]int, 16)}
}

// LayoutOf computes and caches the layout of a type.
func (e *LayoutEngine) LayoutOf(t types.Type) (TypeLayout, error) {
	if e == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	l, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return l, err
	}
	return l, nil
}

// MustLayoutOf is LayoutOf for types the compiler built itself.
func (e *LayoutEngine) MustLayoutOf(t types.Type) TypeLayout {
	l, err := e.LayoutOf(t)
	if err != nil {
		panic(err)
	}
	return l
}

func (e *LayoutEngine) layoutOf(t types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := make([]string, 0, len(state.stack)-idx+1)
		for _, s := range state.stack[idx:] {
			cycle = append(cycle, s.String())
		}
		cycle = append(cycle, t.String())
		err := &LayoutError{Kind: LayoutErrRecursiveUnsized, Type: t.String(), Cycle: cycle}
		e.cache.put(t, &cacheEntry{Layout: TypeLayout{Size: 0, Align: 1}, Err: err})
		return TypeLayout{Size: 0, Align: 1}, err
	}

	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	l, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	e.cache.put(t, &cacheEntry{Layout: l, Err: err})
	return l, err
}

// SizeOf returns the allocation size of a type in bytes.
func (e *LayoutEngine) SizeOf(t types.Type) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(t types.Type) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the byte offset of a struct field.
func (e *LayoutEngine) FieldOffset(structT types.Type, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(structT)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}
