package ast

import (
	"errors"
	"testing"

	"ksc/internal/diag"
	"ksc/internal/types"
)

const addModule = `{
  "name": "sample",
  "decls": [
    {"kind": "StructDef", "name": "P", "members": [
      {"name": "x", "type": "float"},
      {"name": "y", "type": "float"}
    ]},
    {"kind": "FuncDecl", "name": "add", "ret": {"type": "int"}, "span": [0, 40],
     "params": [{"name": "a", "type": "int"}, {"name": "b", "type": "int", "byRef": true}],
     "body": {"kind": "Block", "stmts": [
       {"kind": "Return", "type": "int", "operand":
         {"kind": "Binary", "type": "int", "op": "+",
          "left": {"kind": "VarRef", "name": "a", "type": "int"},
          "right": {"kind": "VarRef", "name": "b", "type": "int"}}}
     ]}},
    {"kind": "FuncDecl", "name": "main", "ret": {"type": "int"},
     "body": {"kind": "Block", "stmts": [
       {"kind": "VarDef", "name": "p", "struct": "P"},
       {"kind": "Return", "type": "int", "operand":
         {"kind": "Call", "name": "add", "type": "int",
          "args": [{"kind": "Constant", "value": 3}, {"kind": "Constant", "value": 4.5}]}}
     ]}}
  ]
}`

func TestDecodeModule(t *testing.T) {
	m, err := DecodeBytes([]byte(addModule), 1)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Name != "sample" || len(m.Decls) != 3 {
		t.Fatalf("unexpected module %q with %d decls", m.Name, len(m.Decls))
	}
	def := m.Decls[0].Data.(StructDefData).Def
	if def.Name != "P" || len(def.Members) != 2 || def.Members[1].TypeString != "float" {
		t.Fatalf("struct decoded as %+v", def)
	}
	funcs := m.Funcs()
	if len(funcs) != 2 || !funcs[0].Args[1].ByRef || funcs[0].Args[0].TypeString != "int" {
		t.Fatalf("unexpected functions %+v", funcs)
	}
	if m.Decls[1].Span.End != 40 || m.Decls[1].Span.File != 1 {
		t.Fatalf("span = %v", m.Decls[1].Span)
	}

	body := funcs[1].Body.Data.(BlockData)
	v := body.Stmts[0]
	if v.Type.Struct != def {
		t.Fatal("variable type must reference the decoded struct")
	}
	if name := v.Data.(VarDefData).Name; name != "p" {
		t.Fatalf("name = %q", name)
	}
	call := body.Stmts[1].Data.(ReturnData).Value.Data.(CallData)
	if call.Func != funcs[0] {
		t.Fatal("call must be linked to its declaration")
	}
	c0 := call.Args[0].Data.(ConstantData)
	c1 := call.Args[1].Data.(ConstantData)
	if c0.IsFloat || c0.Int != 3 || !c1.IsFloat || c1.Float != 4.5 {
		t.Fatalf("constants decoded as %+v %+v", c0, c1)
	}
	if call.Args[1].Type.Type != types.Float {
		t.Fatalf("float literal typed %s", call.Args[1].Type)
	}
}

func TestDecodeNormalizesIdentifiers(t *testing.T) {
	src := `{"name": "m", "decls": [{"kind": "VarDef", "name": "cafe\u0301", "type": "int"}]}`
	m, err := DecodeBytes([]byte(src), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := m.Decls[0].Data.(VarDefData).Name; got != "caf\u00e9" {
		t.Fatalf("name = %q, want NFC form", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		src  string
		code diag.Code
	}{
		{`{"name": "m", "decls": [{"kind": "Lambda"}]}`, diag.TreeUnknownKind},
		{`{"name": "m", "decls": [{"kind": "VarDef", "name": "x", "type": "float5"}]}`, diag.TreeBadType},
		{`{"name": "m", "decls": [{"kind": "VarDef", "name": "x", "struct": "Nope"}]}`, diag.TreeBadType},
		{`{"name": "m", "decls": [{"kind": "Binary", "op": "+", "left": {"kind": "Constant", "value": 1}}]}`, diag.TreeMalformed},
		{`{"name": "m", "decls": [{"kind": "Dot", "field": "xq", "object": {"kind": "VarRef", "name": "v", "type": "float4"}}]}`, diag.TreeBadSwizzle},
		{`{"name": "m", "bogus": 1}`, diag.TreeMalformed},
	}
	for _, tc := range cases {
		_, err := DecodeBytes([]byte(tc.src), 0)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("%s: got %v, want DecodeError", tc.src, err)
		}
		if de.Code != tc.code {
			t.Fatalf("%s: code %s, want %s", tc.src, de.Code, tc.code)
		}
	}
}

func TestBuildersFillTypes(t *testing.T) {
	def := types.NewStructDef("L", types.Member{Name: "color", Type: types.Float3}, types.Member{Name: "w", Type: types.Float, ArrayCount: 4})
	l := Ref("l", types.OfStruct(def))
	if got := Dot(l, "color").Type.Type; got != types.Float3 {
		t.Fatalf("member type %s", got)
	}
	if got := Dot(Dot(l, "color"), "zx").Type.Type; got != types.Float2 {
		t.Fatalf("swizzle type %s", got)
	}
	w := Dot(l, "w")
	if w.Type.ArrayCount != 4 || Index(w, Int(1)).Type.ArrayCount != 0 {
		t.Fatal("array count must be dropped by indexing")
	}
	if Bin("<", Int(1), Int(2)).Type.Type != types.Bool {
		t.Fatal("comparison must be bool typed")
	}
	n := 0
	Walk(Block(Def("x", types.Of(types.Int), Bin("+", Int(1), Int(2)))), func(*Expr) bool { n++; return true })
	if n != 5 {
		t.Fatalf("walked %d nodes, want 5", n)
	}
}
