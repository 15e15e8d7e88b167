package scope

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/backend"
	"ksc/internal/types"
)

// ErrDuplicateName is returned when a name is declared twice in one scope.
var ErrDuplicateName = errors.New("duplicate name in scope")

// Arena stores every scope of one compilation. Scopes are never freed
// individually; Release only closes them and the arena is dropped whole.
type Arena struct {
	data []Scope
}

// NewArena creates an arena with an optional capacity hint.
func NewArena(capacity uint32) *Arena {
	if capacity == 0 {
		capacity = 32
	}
	return &Arena{data: make([]Scope, 1, capacity+1)} // index 0 reserved for NoID
}

func (a *Arena) push(s Scope) ID {
	value, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("scope arena overflow: %w", err))
	}
	s.vars = make(map[string]*backend.Value)
	s.structs = make(map[*types.StructDef]*lltypes.StructType)
	s.funcs = make(map[string]*backend.Func)
	a.data = append(a.data, s)
	return ID(value)
}

// NewModule creates a root scope with no enclosing function.
func (a *Arena) NewModule() ID {
	return a.push(Scope{Kind: KindModule})
}

// CreateChild opens a function scope under parent with a new
// function/exit/return triple.
func (a *Arena) CreateChild(parent ID, fn *backend.Func, exit *backend.Block, retAddr *backend.Value) ID {
	a.open(parent)
	return a.push(Scope{Kind: KindFunction, Parent: parent, Func: fn, Exit: exit, RetAddr: retAddr})
}

// CreateBlockChild opens a block scope that inherits the parent's triple.
func (a *Arena) CreateBlockChild(parent ID) ID {
	p := a.open(parent)
	return a.push(Scope{Kind: KindBlock, Parent: parent, Func: p.Func, Exit: p.Exit, RetAddr: p.RetAddr})
}

// Release closes a scope. Any later use of id panics.
func (a *Arena) Release(id ID) {
	a.open(id).released = true
}

// Get returns the scope or nil for an invalid ID.
func (a *Arena) Get(id ID) *Scope {
	if !id.IsValid() || int(id) >= len(a.data) {
		return nil
	}
	return &a.data[id]
}

// Len reports the number of scopes excluding the sentinel.
func (a *Arena) Len() int { return len(a.data) - 1 }

func (a *Arena) open(id ID) *Scope {
	s := a.Get(id)
	if s == nil {
		panic(fmt.Sprintf("scope: invalid scope %d", id))
	}
	if s.released {
		panic(fmt.Sprintf("scope: use of released scope %d", id))
	}
	return s
}

// Declare binds name to addr in scope id.
func (a *Arena) Declare(id ID, name string, addr *backend.Value) error {
	s := a.open(id)
	if _, ok := s.vars[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	s.vars[name] = addr
	return nil
}

// Resolve finds the address bound to name, in id only or also in its ancestors.
func (a *Arena) Resolve(id ID, name string, searchParents bool) (*backend.Value, bool) {
	for cur := id; cur.IsValid(); {
		s := a.open(cur)
		if addr, ok := s.vars[name]; ok {
			return addr, true
		}
		if !searchParents {
			break
		}
		cur = s.Parent
	}
	return nil, false
}

// DeclareStructType caches the backend type built for def.
func (a *Arena) DeclareStructType(id ID, def *types.StructDef, typ *lltypes.StructType) {
	a.open(id).structs[def] = typ
}

// ResolveStructType finds the backend type of def in id or its ancestors.
func (a *Arena) ResolveStructType(id ID, def *types.StructDef) (*lltypes.StructType, bool) {
	for cur := id; cur.IsValid(); {
		s := a.open(cur)
		if typ, ok := s.structs[def]; ok {
			return typ, true
		}
		cur = s.Parent
	}
	return nil, false
}

// DeclareFunction registers fn under name in scope id.
func (a *Arena) DeclareFunction(id ID, name string, fn *backend.Func) error {
	s := a.open(id)
	if _, ok := s.funcs[name]; ok {
		return fmt.Errorf("function %q: %w", name, ErrDuplicateName)
	}
	s.funcs[name] = fn
	return nil
}

// ResolveFunction looks name up through the whole ancestor chain.
func (a *Arena) ResolveFunction(id ID, name string) (*backend.Func, bool) {
	for cur := id; cur.IsValid(); {
		s := a.open(cur)
		if fn, ok := s.funcs[name]; ok {
			return fn, true
		}
		cur = s.Parent
	}
	return nil, false
}
