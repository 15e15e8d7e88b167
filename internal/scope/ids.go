package scope

// ID identifies a scope in an Arena.
type ID uint32

const (
	// NoID marks the absence of a scope, e.g. the parent of the module scope.
	NoID ID = 0
)

// IsValid reports whether the ID refers to an allocated scope.
func (id ID) IsValid() bool { return id != NoID }
