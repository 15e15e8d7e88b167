package types

import (
	"errors"
	"fmt"
)

// Member is one field of a struct declaration.
type Member struct {
	Name       string
	Type       VarType
	ArrayCount int        // 0 for a plain member
	Struct     *StructDef // set iff Type == Struct
	TypeString string     // spelling as written, e.g. "float3" or "Light[4]"
}

// StructDef is a struct declaration produced by the parser.
// Identity is the pointer; a StructDef is never mutated after construction.
type StructDef struct {
	Name    string
	Members []Member
}

// NewStructDef creates a StructDef and fills missing type strings.
func NewStructDef(name string, members ...Member) *StructDef {
	def := &StructDef{Name: name, Members: make([]Member, len(members))}
	copy(def.Members, members)
	for i := range def.Members {
		if def.Members[i].TypeString == "" {
			def.Members[i].TypeString = memberTypeString(def.Members[i])
		}
	}
	return def
}

func memberTypeString(m Member) string {
	base := m.Type.String()
	if m.Type == Struct && m.Struct != nil {
		base = m.Struct.Name
	}
	if m.ArrayCount > 0 {
		return fmt.Sprintf("%s[%d]", base, m.ArrayCount)
	}
	return base
}

// MemberIndex returns the position of the named member or -1.
func (d *StructDef) MemberIndex(name string) int {
	if d == nil {
		return -1
	}
	for i := range d.Members {
		if d.Members[i].Name == name {
			return i
		}
	}
	return -1
}

// Member returns the member at idx.
func (d *StructDef) Member(idx int) Member {
	return d.Members[idx]
}

// TypeInfo is the cached type of an expression node.
type TypeInfo struct {
	Type       VarType
	Struct     *StructDef
	ArrayCount int
}

// ErrStructMismatch reports a TypeInfo whose struct reference disagrees with its tag.
var ErrStructMismatch = errors.New("struct reference does not match type tag")

// Validate checks that a struct-typed value carries a StructDef and nothing else does.
func (ti TypeInfo) Validate() error {
	if (ti.Type == Struct) != (ti.Struct != nil) {
		return fmt.Errorf("%s: %w", ti, ErrStructMismatch)
	}
	return nil
}

func (ti TypeInfo) String() string {
	base := ti.Type.String()
	if ti.Type == Struct && ti.Struct != nil {
		base = ti.Struct.Name
	}
	if ti.ArrayCount > 0 {
		return fmt.Sprintf("%s[%d]", base, ti.ArrayCount)
	}
	return base
}

// Of builds a TypeInfo for a built-in type.
func Of(t VarType) TypeInfo { return TypeInfo{Type: t} }

// OfStruct builds a TypeInfo for a struct-typed value.
func OfStruct(def *StructDef) TypeInfo { return TypeInfo{Type: Struct, Struct: def} }
