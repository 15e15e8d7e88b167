package layout

import (
	"errors"
	"testing"

	"github.com/llir/llvm/ir/types"
)

func TestScalarAndVectorLayout(t *testing.T) {
	e := New(X86_64LinuxGNU())
	cases := []struct {
		name  string
		typ   types.Type
		size  int
		align int
	}{
		{"i1", types.I1, 1, 1},
		{"i32", types.I32, 4, 4},
		{"float", types.Float, 4, 4},
		{"ptr", types.NewPointer(types.I8), 8, 8},
		{"float2", types.NewVector(2, types.Float), 8, 8},
		{"float3", types.NewVector(3, types.Float), 16, 16},
		{"float8", types.NewVector(8, types.Float), 32, 32},
		{"bool3", types.NewVector(3, types.I1), 4, 4},
		{"packed float3", types.NewArray(3, types.Float), 12, 4},
	}
	for _, tc := range cases {
		l, err := e.LayoutOf(tc.typ)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if l.Size != tc.size || l.Align != tc.align {
			t.Fatalf("%s: size=%d align=%d, want %d/%d", tc.name, l.Size, l.Align, tc.size, tc.align)
		}
	}
}

func TestStructLayoutPadsFields(t *testing.T) {
	e := New(X86_64LinuxGNU())
	st := types.NewStruct(types.NewVector(3, types.Float), types.Float, types.I1)
	l, err := e.LayoutOf(st)
	if err != nil {
		t.Fatal(err)
	}
	if l.Size != 32 || l.Align != 16 {
		t.Fatalf("size=%d align=%d", l.Size, l.Align)
	}
	if l.FieldOffsets[0] != 0 || l.FieldOffsets[1] != 16 || l.FieldOffsets[2] != 20 {
		t.Fatalf("offsets = %v", l.FieldOffsets)
	}

	pair := types.NewStruct(types.Float, types.Float)
	pl, _ := e.LayoutOf(pair)
	if pl.Size != 8 || pl.FieldOffsets[1] != 4 {
		t.Fatalf("pair layout = %+v", pl)
	}
}

func TestRecursiveStructReportsCycle(t *testing.T) {
	e := New(X86_64LinuxGNU())
	node := types.NewStruct()
	node.SetName("Node")
	node.Fields = []types.Type{types.I32, node}
	_, err := e.LayoutOf(node)
	var le *LayoutError
	if !errors.As(err, &le) || le.Kind != LayoutErrRecursiveUnsized {
		t.Fatalf("expected recursive layout error, got %v", err)
	}
	// pointer indirection breaks the cycle
	list := types.NewStruct()
	list.SetName("List")
	list.Fields = []types.Type{types.I32, types.NewPointer(list)}
	if l, err := e.LayoutOf(list); err != nil || l.Size != 16 {
		t.Fatalf("list layout = %+v, %v", l, err)
	}
}
