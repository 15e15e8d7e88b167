package ast

import (
	"ksc/internal/source"
	"ksc/internal/types"
)

// Kind enumerates expression node kinds. Statements and declarations are
// expressions too; they simply produce no value.
type Kind uint8

const (
	// KindConstant is a numeric literal.
	KindConstant Kind = iota
	// KindBoolLiteral is `true` or `false`.
	KindBoolLiteral
	// KindConstString is a string literal; it generates no code.
	KindConstString
	// KindVarRef names a variable.
	KindVarRef
	// KindVarDef declares a variable with an optional initializer.
	KindVarDef
	// KindBinary is a binary operator, including assignment.
	KindBinary
	// KindUnary is `!` or `-`.
	KindUnary
	// KindDot is struct member access or a vector swizzle.
	KindDot
	// KindIndex is `a[i]`.
	KindIndex
	// KindBuiltinInit is a built-in constructor such as `float4(...)`.
	KindBuiltinInit
	// KindCall is a function call.
	KindCall
	// KindSelect is `c ? a : b`.
	KindSelect
	// KindFuncDecl declares a function, with or without a body.
	KindFuncDecl
	// KindStructDef declares a struct type.
	KindStructDef
	// KindReturn is `return` with an optional value.
	KindReturn
	// KindIf is an if statement with an optional else branch.
	KindIf
	// KindFor is a for loop.
	KindFor
	// KindBlock is a braced statement list with its own scope.
	KindBlock
)

var kindNames = [...]string{
	KindConstant:    "Constant",
	KindBoolLiteral: "BoolLiteral",
	KindConstString: "ConstString",
	KindVarRef:      "VarRef",
	KindVarDef:      "VarDef",
	KindBinary:      "Binary",
	KindUnary:       "Unary",
	KindDot:         "Dot",
	KindIndex:       "Index",
	KindBuiltinInit: "BuiltinInit",
	KindCall:        "Call",
	KindSelect:      "Select",
	KindFuncDecl:    "FuncDecl",
	KindStructDef:   "StructDef",
	KindReturn:      "Return",
	KindIf:          "If",
	KindFor:         "For",
	KindBlock:       "Block",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Expr is a typed expression node. Type is the type the parser cached for
// the node; Data holds the kind-specific payload.
type Expr struct {
	Kind Kind
	Type types.TypeInfo
	Span source.Span
	Data Data
}

// Data is the kind-specific payload of an Expr.
type Data interface {
	exprData()
}

// ConstantData holds a numeric literal.
type ConstantData struct {
	IsFloat bool
	Int     int64
	Float   float64
	Text    string // raw spelling, if known
}

func (ConstantData) exprData() {}

// BoolData holds a boolean literal.
type BoolData struct {
	Value bool
}

func (BoolData) exprData() {}

// StringData holds a string literal.
type StringData struct {
	Value string
}

func (StringData) exprData() {}

// VarRefData names a variable. The node's Type carries the array count of
// the referenced definition.
type VarRefData struct {
	Name string
}

func (VarRefData) exprData() {}

// VarDefData declares a variable of the node's Type.
type VarDefData struct {
	Name string
	Init *Expr // nil when absent
}

func (VarDefData) exprData() {}

// BinaryData holds a binary operator.
type BinaryData struct {
	Op    string
	Left  *Expr
	Right *Expr
}

func (BinaryData) exprData() {}

// UnaryData holds a unary operator.
type UnaryData struct {
	Op      string
	Operand *Expr
}

func (UnaryData) exprData() {}

// DotData accesses a struct member or swizzles a vector.
type DotData struct {
	Object *Expr
	Field  string
}

func (DotData) exprData() {}

// IndexData indexes a fixed array or pointer.
type IndexData struct {
	Object *Expr
	Index  *Expr
}

func (IndexData) exprData() {}

// BuiltinInitData constructs a value of the node's Type from up to four
// arguments; vector arguments contribute all their lanes.
type BuiltinInitData struct {
	Args []*Expr
}

func (BuiltinInitData) exprData() {}

// CallData calls a declared function. Func is the declaration the parser
// resolved the call to; when nil it is looked up by Name.
type CallData struct {
	Name string
	Args []*Expr
	Func *FuncDeclData
}

func (CallData) exprData() {}

// SelectData is the ternary operator.
type SelectData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (SelectData) exprData() {}

// Arg is one formal parameter of a function declaration.
type Arg struct {
	Name       string
	Type       types.TypeInfo
	ByRef      bool
	TypeString string
	Span       source.Span
}

// FuncDeclData declares a function. A nil Body makes it external.
type FuncDeclData struct {
	Name string
	Args []Arg
	Ret  types.TypeInfo
	Body *Expr
}

func (*FuncDeclData) exprData() {}

// HasBody reports whether the function is defined in the module.
func (f *FuncDeclData) HasBody() bool { return f.Body != nil }

// StructDefData declares a struct type.
type StructDefData struct {
	Def *types.StructDef
}

func (StructDefData) exprData() {}

// ReturnData holds an optional return value.
type ReturnData struct {
	Value *Expr
}

func (ReturnData) exprData() {}

// IfData is an if statement; Else may be nil.
type IfData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (IfData) exprData() {}

// ForData is a for loop. Each clause may be nil.
type ForData struct {
	Init *Expr
	Cond *Expr
	Step *Expr
	Body *Expr
}

func (ForData) exprData() {}

// BlockData is a statement list.
type BlockData struct {
	Stmts []*Expr
}

func (BlockData) exprData() {}
