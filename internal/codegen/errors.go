package codegen

import (
	"fmt"

	"ksc/internal/ast"
	"ksc/internal/source"
)

// ContractError is a violated assumption about the typed tree: the parser
// and type checker guarantee it never happens for well-typed input.
// Lowering panics with it; Compile does not recover.
type ContractError struct {
	Kind ast.Kind
	Span source.Span
	Msg  string
}

func (e ContractError) Error() string {
	return fmt.Sprintf("codegen contract violation at %s (%s): %s", e.Span, e.Kind, e.Msg)
}

func contractf(e *ast.Expr, format string, args ...any) ContractError {
	ce := ContractError{Msg: fmt.Sprintf(format, args...)}
	if e != nil {
		ce.Kind, ce.Span = e.Kind, e.Span
	}
	return ce
}
