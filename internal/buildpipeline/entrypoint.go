package buildpipeline

import (
	"fmt"
	"sort"
	"strings"

	"ksc/internal/codegen"
)

// DefaultEntry is the function `ksc run` calls when none is named.
const DefaultEntry = "main"

// ResolveEntry finds the descriptor of function name across all lowered
// trees. The name must be defined by exactly one tree.
func ResolveEntry(res *CompileResult, name string) (*codegen.FunctionDesc, error) {
	if res == nil {
		return nil, fmt.Errorf("missing compilation result")
	}
	if name == "" {
		name = DefaultEntry
	}
	var found []*Unit
	for _, u := range res.Units {
		if u.Desc == nil {
			continue
		}
		if _, ok := u.Desc.Functions[name]; ok {
			found = append(found, u)
		}
	}
	switch len(found) {
	case 1:
		return found[0].Desc.Functions[name], nil
	case 0:
		return nil, fmt.Errorf("no function %q found; available: %s", name, formatFunctionList(res))
	default:
		paths := make([]string, len(found))
		for i, u := range found {
			paths[i] = u.Path
		}
		return nil, fmt.Errorf("function %q is defined by several trees: %s", name, strings.Join(paths, ", "))
	}
}

func formatFunctionList(res *CompileResult) string {
	var parts []string
	for _, u := range res.Units {
		if u.Desc == nil {
			continue
		}
		for _, fn := range u.Desc.FunctionNames() {
			parts = append(parts, fmt.Sprintf("%s::%s", u.Tree.Name, fn))
		}
	}
	if len(parts) == 0 {
		return "<none>"
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
