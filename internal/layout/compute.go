package layout

import (
	"fortio.org/safecast"
	"github.com/llir/llvm/ir/types"
)

func (e *LayoutEngine) computeLayout(t types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	switch tt := t.(type) {
	case *types.VoidType:
		return TypeLayout{Size: 0, Align: 1}, nil

	case *types.IntType:
		// i1 occupies a whole byte in memory.
		size := (int(tt.BitSize) + 7) / 8
		return scalarLayoutBytes(nextPow2(size)), nil

	case *types.FloatType:
		switch {
		case tt.Equal(types.Half):
			return scalarLayoutBytes(2), nil
		case tt.Equal(types.Float):
			return scalarLayoutBytes(4), nil
		case tt.Equal(types.Double):
			return scalarLayoutBytes(8), nil
		}
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsupported, Type: t.String()}

	case *types.PointerType:
		return e.ptrLayout(), nil

	case *types.VectorType:
		return e.vectorLayout(tt, state)

	case *types.ArrayType:
		return e.arrayLayout(tt, state)

	case *types.StructType:
		if tt.Opaque {
			return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrOpaque, Type: t.String()}
		}
		return e.structLayout(tt, state)
	}
	return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsupported, Type: t.String()}
}

func (e *LayoutEngine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign, Stride: ptrSize}
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size, Stride: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (e *LayoutEngine) length(n uint64, t types.Type) (int, *LayoutError) {
	v, err := safecast.Conv[int](n)
	if err != nil {
		return 0, &LayoutError{Kind: LayoutErrLengthConversion, Type: t.String(), Err: err}
	}
	return v, nil
}

// vectorLayout packs lanes back to back and aligns the whole vector to the
// next power of two of its raw size, so <3 x float> takes 16 bytes.
func (e *LayoutEngine) vectorLayout(t *types.VectorType, state *layoutState) (TypeLayout, *LayoutError) {
	elem, err := e.layoutOf(t.ElemType, state)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	n, err := e.length(t.Len, t)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	raw := elem.Size * n
	align := nextPow2(raw)
	return TypeLayout{Size: roundUp(raw, align), Align: align, Stride: elem.Size}, nil
}

func (e *LayoutEngine) arrayLayout(t *types.ArrayType, state *layoutState) (TypeLayout, *LayoutError) {
	elem, err := e.layoutOf(t.ElemType, state)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	n, err := e.length(t.Len, t)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	align := max(elem.Align, 1)
	stride := roundUp(elem.Size, align)
	return TypeLayout{Size: stride * n, Align: align, Stride: stride}, nil
}

func (e *LayoutEngine) structLayout(t *types.StructType, state *layoutState) (TypeLayout, *LayoutError) {
	offsets := make([]int, len(t.Fields))
	aligns := make([]int, len(t.Fields))

	if t.Packed {
		size := 0
		for i, f := range t.Fields {
			fl, err := e.layoutOf(f, state)
			if err != nil {
				return TypeLayout{Size: 0, Align: 1}, err
			}
			offsets[i] = size
			aligns[i] = 1
			size += fl.Size
		}
		return TypeLayout{Size: size, Align: 1, Stride: size, FieldOffsets: offsets, FieldAligns: aligns}, nil
	}

	size := 0
	align := 1
	for i, f := range t.Fields {
		fl, err := e.layoutOf(f, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fAlign := max(fl.Align, 1)
		size = roundUp(size, fAlign)
		offsets[i] = size
		aligns[i] = fAlign
		size += fl.Size
		align = max(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{Size: size, Align: align, Stride: size, FieldOffsets: offsets, FieldAligns: aligns}, nil
}
