package codegen

import (
	"errors"
	"fmt"
	"io"
	"sort"

	lltypes "github.com/llir/llvm/ir/types"
	"github.com/vmihailenco/msgpack/v5"

	"ksc/internal/ast"
	"ksc/internal/backend"
	"ksc/internal/types"
)

// ErrDetached is returned when a descriptor has no live function behind it,
// for example after it was decoded from disk.
var ErrDetached = errors.New("descriptor is not attached to a backend")

// TypeDesc describes one argument or return type as the host sees it.
// Size and Align are native; PackedSize is the size in packed layout.
type TypeDesc struct {
	TypeString  string        `msgpack:"type_string"`
	Type        types.VarType `msgpack:"type"`
	ArraySize   int           `msgpack:"array_size,omitempty"`
	Struct      string        `msgpack:"struct,omitempty"`
	Size        int           `msgpack:"size"`
	Align       int           `msgpack:"align"`
	PackedSize  int           `msgpack:"packed_size"`
	IsRef       bool          `msgpack:"is_ref,omitempty"`
	IsKSCLayout bool          `msgpack:"native_layout"`
}

// FunctionDesc describes a function with a body. NeedsPacking[i] is set
// when argument i differs between native and packed layout.
type FunctionDesc struct {
	Name           string     `msgpack:"name"`
	ArgNames       []string   `msgpack:"arg_names"`
	ArgTypeStrings []string   `msgpack:"arg_type_strings"`
	ArgumentTypes  []TypeDesc `msgpack:"arg_types"`
	NeedsPacking   []bool     `msgpack:"needs_packing"`
	ReturnType     TypeDesc   `msgpack:"ret"`

	Func   *backend.Func `msgpack:"-"`
	be     *backend.Backend
	packed *backend.Func
}

// Callable returns an engine entry point. With packed set, arguments and
// the result use the packed layout and the wrapper is built on first use.
func (d *FunctionDesc) Callable(packed bool) (backend.Callable, error) {
	if d.be == nil || d.Func == nil {
		return nil, fmt.Errorf("%s: %w", d.Name, ErrDetached)
	}
	if d.be.Closed() {
		return nil, fmt.Errorf("%s: %w", d.Name, backend.ErrBackendClosed)
	}
	if !packed {
		return d.be.Engine().Callable(d.Func), nil
	}
	return d.be.Engine().Callable(d.PackedFunc()), nil
}

// PackedFunc returns the packed-signature function, building it if needed.
func (d *FunctionDesc) PackedFunc() *backend.Func {
	if d.packed == nil {
		d.packed = BuildPackedWrapper(d.be, d)
	}
	return d.packed
}

// MemberDesc locates one struct member in both layouts.
type MemberDesc struct {
	Index        int    `msgpack:"index"`
	Offset       int    `msgpack:"offset"`
	Size         int    `msgpack:"size"`
	PackedOffset int    `msgpack:"packed_offset"`
	PackedSize   int    `msgpack:"packed_size"`
	TypeString   string `msgpack:"type_string"`
}

// StructDesc is the host view of a struct type.
type StructDesc struct {
	Name       string                `msgpack:"name"`
	Size       int                   `msgpack:"size"`
	Align      int                   `msgpack:"align"`
	PackedSize int                   `msgpack:"packed_size"`
	Members    map[string]MemberDesc `msgpack:"members"`
	Elems      []string              `msgpack:"elems"`
}

// ModuleDesc collects the descriptors of one lowered module.
type ModuleDesc struct {
	Name      string                   `msgpack:"name"`
	Triple    string                   `msgpack:"triple"`
	Structs   map[string]*StructDesc   `msgpack:"structs"`
	Functions map[string]*FunctionDesc `msgpack:"functions"`
}

func newModuleDesc(name, triple string) *ModuleDesc {
	return &ModuleDesc{
		Name:      name,
		Triple:    triple,
		Structs:   make(map[string]*StructDesc),
		Functions: make(map[string]*FunctionDesc),
	}
}

// FunctionNames lists described functions in sorted order.
func (d *ModuleDesc) FunctionNames() []string {
	names := make([]string, 0, len(d.Functions))
	for name := range d.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StructNames lists described structs in sorted order.
func (d *ModuleDesc) StructNames() []string {
	names := make([]string, 0, len(d.Structs))
	for name := range d.Structs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode writes d as msgpack.
func (d *ModuleDesc) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(d)
}

// DecodeModuleDesc reads a descriptor written by Encode. Function handles
// are not restored.
func DecodeModuleDesc(r io.Reader) (*ModuleDesc, error) {
	var d ModuleDesc
	if err := msgpack.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode module descriptor: %w", err)
	}
	return &d, nil
}

func (l *lowerer) typeDesc(ti types.TypeInfo, spelling string, native lltypes.Type, byRef bool) (TypeDesc, error) {
	td := TypeDesc{
		TypeString: spelling,
		Type:       ti.Type,
		ArraySize:  ti.ArrayCount,
		IsRef:      byRef,
	}
	if td.TypeString == "" {
		td.TypeString = ti.String()
	}
	if ti.Struct != nil {
		td.Struct = ti.Struct.Name
	}
	if ti.Type == types.Void {
		td.IsKSCLayout = true
		return td, nil
	}
	le := l.be.Layout()
	tl, err := le.LayoutOf(native)
	if err != nil {
		return td, err
	}
	packed := ToPackedType(native)
	pl, err := le.LayoutOf(packed)
	if err != nil {
		return td, err
	}
	td.Size, td.Align, td.PackedSize = tl.Size, tl.Align, pl.Size
	td.IsKSCLayout = packed == native
	return td, nil
}

func (l *lowerer) functionDesc(fd *ast.FuncDeclData, fn *backend.Func) (*FunctionDesc, error) {
	d := &FunctionDesc{
		Name:           fd.Name,
		ArgNames:       make([]string, len(fd.Args)),
		ArgTypeStrings: make([]string, len(fd.Args)),
		ArgumentTypes:  make([]TypeDesc, len(fd.Args)),
		NeedsPacking:   make([]bool, len(fd.Args)),
		Func:           fn,
		be:             l.be,
	}
	params := fn.ParamTypes()
	for i, a := range fd.Args {
		native := params[i]
		if a.ByRef {
			native = native.(*lltypes.PointerType).ElemType
		}
		td, err := l.typeDesc(a.Type, a.TypeString, native, a.ByRef)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %s: %w", fd.Name, a.Name, err)
		}
		d.ArgNames[i] = a.Name
		d.ArgTypeStrings[i] = td.TypeString
		d.ArgumentTypes[i] = td
		d.NeedsPacking[i] = NeedsPacking(native)
	}
	rt, err := l.typeDesc(fd.Ret, "", fn.RetType(), false)
	if err != nil {
		return nil, fmt.Errorf("%s: return type: %w", fd.Name, err)
	}
	d.ReturnType = rt
	return d, nil
}

func (l *lowerer) structDesc(def *types.StructDef, st *lltypes.StructType) (*StructDesc, error) {
	le := l.be.Layout()
	tl, err := le.LayoutOf(st)
	if err != nil {
		return nil, fmt.Errorf("struct %s: %w", def.Name, err)
	}
	packed := ToPackedType(st).(*lltypes.StructType)
	pl, err := le.LayoutOf(packed)
	if err != nil {
		return nil, fmt.Errorf("struct %s: packed layout: %w", def.Name, err)
	}
	d := &StructDesc{
		Name:       def.Name,
		Size:       tl.Size,
		Align:      tl.Align,
		PackedSize: pl.Size,
		Members:    make(map[string]MemberDesc, len(def.Members)),
		Elems:      make([]string, len(def.Members)),
	}
	for i, m := range def.Members {
		size, err := le.SizeOf(st.Fields[i])
		if err != nil {
			return nil, fmt.Errorf("struct %s: member %s: %w", def.Name, m.Name, err)
		}
		psize, err := le.SizeOf(packed.Fields[i])
		if err != nil {
			return nil, fmt.Errorf("struct %s: member %s: %w", def.Name, m.Name, err)
		}
		d.Members[m.Name] = MemberDesc{
			Index:        i,
			Offset:       tl.FieldOffsets[i],
			Size:         size,
			PackedOffset: pl.FieldOffsets[i],
			PackedSize:   psize,
			TypeString:   m.TypeString,
		}
		d.Elems[i] = m.Name
	}
	return d, nil
}
