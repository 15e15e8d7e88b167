package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"ksc/internal/diag"
	"ksc/internal/source"
	"ksc/internal/types"
)

// DecodeError reports a tree file the decoder could not accept.
type DecodeError struct {
	Code diag.Code
	Path string // location inside the document, e.g. decls[2].body.stmts[0]
	Msg  string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

type jsonModule struct {
	Name  string      `json:"name"`
	Decls []*jsonNode `json:"decls"`
}

type jsonType struct {
	Type   string `json:"type,omitempty"`
	Struct string `json:"struct,omitempty"`
	Array  int    `json:"array,omitempty"`
}

type jsonParam struct {
	jsonType
	Name       string     `json:"name"`
	ByRef      bool       `json:"byRef,omitempty"`
	TypeString string     `json:"typeString,omitempty"`
	Span       *[2]uint32 `json:"span,omitempty"`
}

type jsonMember struct {
	jsonType
	Name       string `json:"name"`
	TypeString string `json:"typeString,omitempty"`
}

type jsonNode struct {
	jsonType
	Kind  string          `json:"kind"`
	Span  *[2]uint32      `json:"span,omitempty"`
	Name  string          `json:"name,omitempty"`
	Op    string          `json:"op,omitempty"`
	Field string          `json:"field,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`

	Left    *jsonNode `json:"left,omitempty"`
	Right   *jsonNode `json:"right,omitempty"`
	Operand *jsonNode `json:"operand,omitempty"`
	Object  *jsonNode `json:"object,omitempty"`
	Index   *jsonNode `json:"index,omitempty"`
	Init    *jsonNode `json:"init,omitempty"`
	Cond    *jsonNode `json:"cond,omitempty"`
	Then    *jsonNode `json:"then,omitempty"`
	Else    *jsonNode `json:"else,omitempty"`
	Step    *jsonNode `json:"step,omitempty"`
	Body    *jsonNode `json:"body,omitempty"`

	Args    []*jsonNode  `json:"args,omitempty"`
	Stmts   []*jsonNode  `json:"stmts,omitempty"`
	Params  []jsonParam  `json:"params,omitempty"`
	Ret     *jsonType    `json:"ret,omitempty"`
	Members []jsonMember `json:"members,omitempty"`
}

type decoder struct {
	file    source.FileID
	structs map[string]*types.StructDef
	funcs   map[string]*FuncDeclData
	calls   []*Expr
}

// Decode reads a typed tree in its JSON encoding. Identifiers are
// normalized to NFC. Calls are linked to their declarations by name.
func Decode(r io.Reader, file source.FileID) (*Module, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var jm jsonModule
	if err := dec.Decode(&jm); err != nil {
		return nil, &DecodeError{Code: diag.TreeMalformed, Msg: err.Error()}
	}
	d := &decoder{
		file:    file,
		structs: make(map[string]*types.StructDef),
		funcs:   make(map[string]*FuncDeclData),
	}
	m := &Module{Name: ident(jm.Name), File: file}
	for i, jn := range jm.Decls {
		e, err := d.node(jn, fmt.Sprintf("decls[%d]", i))
		if err != nil {
			return nil, err
		}
		m.Decls = append(m.Decls, e)
	}
	for _, call := range d.calls {
		cd := call.Data.(CallData)
		if fd, ok := d.funcs[cd.Name]; ok {
			cd.Func = fd
			call.Data = cd
		}
	}
	return m, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte, file source.FileID) (*Module, error) {
	return Decode(bytes.NewReader(data), file)
}

func ident(s string) string { return norm.NFC.String(s) }

func (d *decoder) span(s *[2]uint32) source.Span {
	if s == nil {
		return source.NoSpan
	}
	return source.Span{File: d.file, Start: s[0], End: s[1]}
}

func (d *decoder) typeInfo(jt jsonType, path string) (types.TypeInfo, error) {
	var ti types.TypeInfo
	switch {
	case jt.Struct != "":
		def, ok := d.structs[ident(jt.Struct)]
		if !ok {
			return ti, &DecodeError{Code: diag.TreeBadType, Path: path, Msg: fmt.Sprintf("unknown struct %q", jt.Struct)}
		}
		ti = types.OfStruct(def)
	case jt.Type == "":
		ti = types.Of(types.Void)
	default:
		vt, ok := types.ParseVarType(jt.Type)
		if !ok {
			return ti, &DecodeError{Code: diag.TreeBadType, Path: path, Msg: fmt.Sprintf("unknown type %q", jt.Type)}
		}
		ti = types.Of(vt)
	}
	if jt.Array < 0 {
		return ti, &DecodeError{Code: diag.TreeBadType, Path: path, Msg: "negative array count"}
	}
	ti.ArrayCount = jt.Array
	return ti, nil
}

func (d *decoder) opt(jn *jsonNode, path string) (*Expr, error) {
	if jn == nil {
		return nil, nil
	}
	return d.node(jn, path)
}

func (d *decoder) need(jn *jsonNode, path string) (*Expr, error) {
	if jn == nil {
		return nil, &DecodeError{Code: diag.TreeMalformed, Path: path, Msg: "missing operand"}
	}
	return d.node(jn, path)
}

func (d *decoder) list(jns []*jsonNode, path string) ([]*Expr, error) {
	out := make([]*Expr, 0, len(jns))
	for i, jn := range jns {
		e, err := d.need(jn, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) node(jn *jsonNode, path string) (*Expr, error) {
	kind, ok := ParseKind(jn.Kind)
	if !ok {
		return nil, &DecodeError{Code: diag.TreeUnknownKind, Path: path, Msg: fmt.Sprintf("unknown node kind %q", jn.Kind)}
	}
	e := &Expr{Kind: kind, Span: d.span(jn.Span)}
	if kind != KindStructDef {
		ti, err := d.typeInfo(jn.jsonType, path)
		if err != nil {
			return nil, err
		}
		e.Type = ti
	}
	var err error
	switch kind {
	case KindConstant:
		e.Data, err = constant(e.Type.Type, jn.Value, path)
		if err == nil {
			e.Type = types.Of(types.Int)
			if e.Data.(ConstantData).IsFloat {
				e.Type = types.Of(types.Float)
			}
		}
	case KindBoolLiteral:
		var v bool
		if uerr := json.Unmarshal(jn.Value, &v); uerr != nil {
			return nil, &DecodeError{Code: diag.TreeMalformed, Path: path, Msg: "bool literal needs a boolean value"}
		}
		e.Type = types.Of(types.Bool)
		e.Data = BoolData{Value: v}
	case KindConstString:
		var s string
		if len(jn.Value) > 0 {
			if uerr := json.Unmarshal(jn.Value, &s); uerr != nil {
				return nil, &DecodeError{Code: diag.TreeMalformed, Path: path, Msg: "string literal needs a string value"}
			}
		}
		e.Data = StringData{Value: s}
	case KindVarRef:
		e.Data = VarRefData{Name: ident(jn.Name)}
	case KindVarDef:
		var init *Expr
		init, err = d.opt(jn.Init, path+".init")
		e.Data = VarDefData{Name: ident(jn.Name), Init: init}
	case KindBinary:
		var l, r *Expr
		if l, err = d.need(jn.Left, path+".left"); err == nil {
			r, err = d.need(jn.Right, path+".right")
		}
		e.Data = BinaryData{Op: jn.Op, Left: l, Right: r}
	case KindUnary:
		var x *Expr
		x, err = d.need(jn.Operand, path+".operand")
		if jn.Op != "!" && jn.Op != "-" {
			return nil, &DecodeError{Code: diag.TreeMalformed, Path: path, Msg: fmt.Sprintf("unknown unary operator %q", jn.Op)}
		}
		e.Data = UnaryData{Op: jn.Op, Operand: x}
	case KindDot:
		var obj *Expr
		obj, err = d.need(jn.Object, path+".object")
		if err == nil && obj.Type.Struct.MemberIndex(jn.Field) < 0 {
			if _, _, ok := types.ConvertSwizzle(jn.Field); !ok {
				return nil, &DecodeError{Code: diag.TreeBadSwizzle, Path: path, Msg: fmt.Sprintf("%q is neither a member nor a swizzle", jn.Field)}
			}
		}
		e.Data = DotData{Object: obj, Field: ident(jn.Field)}
	case KindIndex:
		var obj, idx *Expr
		if obj, err = d.need(jn.Object, path+".object"); err == nil {
			idx, err = d.need(jn.Index, path+".index")
		}
		e.Data = IndexData{Object: obj, Index: idx}
	case KindBuiltinInit:
		var args []*Expr
		args, err = d.list(jn.Args, path+".args")
		if err == nil && (len(args) == 0 || len(args) > types.MaxSwizzle) {
			return nil, &DecodeError{Code: diag.TreeMalformed, Path: path, Msg: fmt.Sprintf("constructor takes 1 to 4 arguments, got %d", len(args))}
		}
		e.Data = BuiltinInitData{Args: args}
	case KindCall:
		var args []*Expr
		args, err = d.list(jn.Args, path+".args")
		name := ident(jn.Name)
		e.Data = CallData{Name: name, Args: args}
		d.calls = append(d.calls, e)
	case KindSelect:
		var c, a, b *Expr
		if c, err = d.need(jn.Cond, path+".cond"); err == nil {
			if a, err = d.need(jn.Then, path+".then"); err == nil {
				b, err = d.need(jn.Else, path+".else")
			}
		}
		e.Data = SelectData{Cond: c, Then: a, Else: b}
	case KindFuncDecl:
		e.Data, err = d.funcDecl(jn, e, path)
	case KindStructDef:
		e.Data, err = d.structDef(jn, path)
		if err == nil {
			e.Type = types.OfStruct(e.Data.(StructDefData).Def)
		}
	case KindReturn:
		var v *Expr
		v, err = d.opt(jn.Operand, path+".operand")
		e.Data = ReturnData{Value: v}
	case KindIf:
		var c, t, el *Expr
		if c, err = d.need(jn.Cond, path+".cond"); err == nil {
			if t, err = d.opt(jn.Then, path+".then"); err == nil {
				el, err = d.opt(jn.Else, path+".else")
			}
		}
		e.Data = IfData{Cond: c, Then: t, Else: el}
	case KindFor:
		var fd ForData
		if fd.Init, err = d.opt(jn.Init, path+".init"); err == nil {
			if fd.Cond, err = d.need(jn.Cond, path+".cond"); err == nil {
				if fd.Step, err = d.opt(jn.Step, path+".step"); err == nil {
					fd.Body, err = d.opt(jn.Body, path+".body")
				}
			}
		}
		e.Data = fd
	case KindBlock:
		var stmts []*Expr
		stmts, err = d.list(jn.Stmts, path+".stmts")
		e.Data = BlockData{Stmts: stmts}
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func constant(vt types.VarType, raw json.RawMessage, path string) (Data, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Code: diag.TreeMalformed, Path: path, Msg: "constant without value"}
	}
	text := string(raw)
	if vt == types.Void {
		vt = types.Int
		if strings.ContainsAny(text, ".eE") {
			vt = types.Float
		}
	}
	if types.IsFloat(vt) {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &DecodeError{Code: diag.TreeMalformed, Path: path, Msg: fmt.Sprintf("bad float constant %s", text)}
		}
		return ConstantData{IsFloat: true, Float: f, Text: text}, nil
	}
	if !types.IsInt(vt) {
		return nil, &DecodeError{Code: diag.TreeBadType, Path: path, Msg: fmt.Sprintf("constant of type %s", vt)}
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, &DecodeError{Code: diag.TreeMalformed, Path: path, Msg: fmt.Sprintf("bad int constant %s", text)}
	}
	return ConstantData{Int: i, Text: text}, nil
}

func (d *decoder) funcDecl(jn *jsonNode, e *Expr, path string) (*FuncDeclData, error) {
	fd := &FuncDeclData{Name: ident(jn.Name), Ret: e.Type}
	if jn.Ret != nil {
		ret, err := d.typeInfo(*jn.Ret, path+".ret")
		if err != nil {
			return nil, err
		}
		fd.Ret = ret
		e.Type = ret
	}
	for i, jp := range jn.Params {
		ppath := fmt.Sprintf("%s.params[%d]", path, i)
		ti, err := d.typeInfo(jp.jsonType, ppath)
		if err != nil {
			return nil, err
		}
		ts := jp.TypeString
		if ts == "" {
			ts = ti.String()
		}
		fd.Args = append(fd.Args, Arg{Name: ident(jp.Name), Type: ti, ByRef: jp.ByRef, TypeString: ts, Span: d.span(jp.Span)})
	}
	// registered before the body so recursive calls link
	if _, dup := d.funcs[fd.Name]; !dup {
		d.funcs[fd.Name] = fd
	}
	if jn.Body != nil {
		body, err := d.node(jn.Body, path+".body")
		if err != nil {
			return nil, err
		}
		fd.Body = body
	}
	return fd, nil
}

func (d *decoder) structDef(jn *jsonNode, path string) (StructDefData, error) {
	name := ident(jn.Name)
	if _, dup := d.structs[name]; dup {
		return StructDefData{}, &DecodeError{Code: diag.TreeMalformed, Path: path, Msg: fmt.Sprintf("struct %q defined twice", name)}
	}
	members := make([]types.Member, 0, len(jn.Members))
	for i, jm := range jn.Members {
		ti, err := d.typeInfo(jm.jsonType, fmt.Sprintf("%s.members[%d]", path, i))
		if err != nil {
			return StructDefData{}, err
		}
		members = append(members, types.Member{
			Name:       ident(jm.Name),
			Type:       ti.Type,
			ArrayCount: ti.ArrayCount,
			Struct:     ti.Struct,
			TypeString: jm.TypeString,
		})
	}
	def := types.NewStructDef(name, members...)
	d.structs[name] = def
	return StructDefData{Def: def}, nil
}
