package scope

import (
	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/backend"
	"ksc/internal/types"
)

// Kind enumerates the lexical levels lowering creates scopes for.
type Kind uint8

const (
	KindInvalid  Kind = iota
	KindModule        // top-level declarations
	KindFunction      // function body; owns a new function/exit/return triple
	KindBlock         // block, if branch or for loop; inherits the triple
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindFunction:
		return "function"
	case KindBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope is one lexical level. Maps are per scope; lookups walk Parent.
type Scope struct {
	Kind   Kind
	Parent ID

	// Enclosing function, its exit block and its return-value slot.
	// RetAddr is nil for void functions.
	Func    *backend.Func
	Exit    *backend.Block
	RetAddr *backend.Value

	vars     map[string]*backend.Value
	structs  map[*types.StructDef]*lltypes.StructType
	funcs    map[string]*backend.Func
	released bool
}

// Released reports whether the scope has been closed by its creator.
func (s *Scope) Released() bool { return s.released }

// Names returns the variables declared directly in this scope.
func (s *Scope) Names() []string {
	out := make([]string, 0, len(s.vars))
	for name := range s.vars {
		out = append(out, name)
	}
	return out
}
