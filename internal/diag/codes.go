package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// typed tree input
	TreeInfo        Code = 1000
	TreeMalformed   Code = 1001
	TreeUnknownKind Code = 1002
	TreeBadType     Code = 1003
	TreeBadSwizzle  Code = 1004

	// lowering
	CgInfo               Code = 2000
	CgDuplicateName      Code = 2001
	CgUnresolvedExternal Code = 2002
	CgUnresolvedFunction Code = 2003
	CgUnresolvedVariable Code = 2004
	CgFloatToInt         Code = 2005
	CgInternal           Code = 2006

	// I/O and project configuration
	IOLoadFileError   Code = 3001
	IOWriteFileError  Code = 3002
	ProjInvalidConfig Code = 3101

	ObsInfo    Code = 4000
	ObsTimings Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	TreeInfo:             "Typed tree information",
	TreeMalformed:        "Malformed typed tree",
	TreeUnknownKind:      "Unknown node kind",
	TreeBadType:          "Unknown type spelling",
	TreeBadSwizzle:       "Invalid swizzle mask",
	CgInfo:               "Lowering information",
	CgDuplicateName:      "Name already declared in this scope",
	CgUnresolvedExternal: "Unresolved external function",
	CgUnresolvedFunction: "Call to undeclared function",
	CgUnresolvedVariable: "Reference to undeclared variable",
	CgFloatToInt:         "Implicit float to int truncation",
	CgInternal:           "Internal lowering error",
	IOLoadFileError:      "I/O load file error",
	IOWriteFileError:     "I/O write file error",
	ProjInvalidConfig:    "Invalid ksc.toml",
	ObsInfo:              "Observability information",
	ObsTimings:           "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("TREE%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("CG%04d", ic)
	case ic >= 3000 && ic < 3100:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 3100 && ic < 4000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
