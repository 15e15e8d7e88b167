package buildpipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	lltypes "github.com/llir/llvm/ir/types"

	"ksc/internal/backend"
	"ksc/internal/codegen"
	"ksc/internal/trace"
	"ksc/internal/types"
)

// RunRequest lowers the trees and calls one function through the engine.
type RunRequest struct {
	CompileRequest
	Func   string
	Args   []string // one literal per parameter, vectors as "1,2,3"
	Packed bool     // call the packed wrapper instead of the function
}

// RunResult holds the call's outcome. The backend is already shut down.
type RunResult struct {
	Compile *CompileResult
	Func    *codegen.FunctionDesc
	Value   backend.Val
	Result  string            // Value formatted by the return type, "" for void
	Outputs map[string]string // final values of by-reference arguments
	Timings Timings
}

// Run compiles and executes req.Func.
func Run(ctx context.Context, req *RunRequest) (RunResult, error) {
	var result RunResult
	if req == nil {
		return result, fmt.Errorf("missing run request")
	}
	res, err := Compile(ctx, &req.CompileRequest)
	result.Compile = res
	if res != nil {
		defer func() { _ = res.Close() }()
		result.Timings = res.Timings
	}
	if err != nil {
		return result, err
	}
	fd, err := ResolveEntry(res, req.Func)
	if err != nil {
		return result, err
	}
	result.Func = fd
	if len(req.Args) != len(fd.ArgumentTypes) {
		return result, fmt.Errorf("%s takes %d arguments, got %d", fd.Name, len(fd.ArgumentTypes), len(req.Args))
	}

	call, err := fd.Callable(req.Packed)
	if err != nil {
		return result, err
	}
	target := fd.Func
	if req.Packed {
		target = fd.PackedFunc()
	}
	params := target.ParamTypes()
	mem := res.Backend.Engine().Memory()

	args := make([]backend.Val, len(req.Args))
	type outArg struct {
		name string
		td   codegen.TypeDesc
		addr int64
		typ  lltypes.Type
	}
	var outs []outArg
	for i, lit := range req.Args {
		td := fd.ArgumentTypes[i]
		v, err := ParseValue(td, lit)
		if err != nil {
			return result, fmt.Errorf("argument %s: %w", fd.ArgNames[i], err)
		}
		if !td.IsRef {
			args[i] = v
			continue
		}
		elem := params[i].(*lltypes.PointerType).ElemType
		addr := mem.AllocType(elem)
		defer mem.Free(addr)
		if err := mem.Write(addr, elem, v); err != nil {
			return result, fmt.Errorf("argument %s: %w", fd.ArgNames[i], err)
		}
		args[i] = backend.IntVal(addr)
		outs = append(outs, outArg{name: fd.ArgNames[i], td: td, addr: addr, typ: elem})
	}

	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "run:"+target.Name(), trace.CurrentSpan(ctx).SpanID)
	start := time.Now()
	v, err := call(args...)
	result.Timings.Set(StageRun, time.Since(start))
	if err != nil {
		span.End("trap")
		return result, fmt.Errorf("%s: %w", target.Name(), err)
	}
	span.End("")

	result.Value = v
	result.Result = FormatValue(fd.ReturnType, v)
	if len(outs) > 0 {
		result.Outputs = make(map[string]string, len(outs))
		for _, o := range outs {
			after, err := mem.Read(o.addr, o.typ)
			if err != nil {
				return result, fmt.Errorf("argument %s: %w", o.name, err)
			}
			result.Outputs[o.name] = FormatValue(o.td, after)
		}
	}
	return result, nil
}

// ParseValue reads a scalar or vector literal of the described type.
// Vectors take comma-separated lanes; a single lane is splatted.
func ParseValue(td codegen.TypeDesc, lit string) (backend.Val, error) {
	if td.Struct != "" || td.ArraySize > 0 || !types.IsValueType(td.Type) {
		return backend.Val{}, fmt.Errorf("%s values cannot be given as literals", td.TypeString)
	}
	n := types.ElementCount(td.Type)
	parts := strings.Split(lit, ",")
	if len(parts) == 1 && n > 1 {
		for len(parts) < n {
			parts = append(parts, parts[0])
		}
	}
	if len(parts) != n {
		return backend.Val{}, fmt.Errorf("%s needs %d lanes, got %d", td.TypeString, n, len(parts))
	}
	lanes := make([]backend.Val, n)
	for i, p := range parts {
		v, err := parseScalar(types.Scalar(td.Type), strings.TrimSpace(p))
		if err != nil {
			return backend.Val{}, err
		}
		lanes[i] = v
	}
	if n == 1 {
		return lanes[0], nil
	}
	return backend.AggVal(lanes...), nil
}

func parseScalar(t types.VarType, s string) (backend.Val, error) {
	switch {
	case types.IsFloat(t):
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return backend.Val{}, fmt.Errorf("bad float %q", s)
		}
		return backend.FloatVal(f), nil
	case types.IsInt(t):
		i, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return backend.Val{}, fmt.Errorf("bad int %q", s)
		}
		return backend.IntVal(i), nil
	default:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return backend.Val{}, fmt.Errorf("bad bool %q", s)
		}
		return backend.BoolVal(b), nil
	}
}

// FormatValue renders v by its described type; void is "".
func FormatValue(td codegen.TypeDesc, v backend.Val) string {
	if td.Type == types.Void {
		return ""
	}
	if !types.IsValueType(td.Type) || td.ArraySize > 0 {
		return v.String()
	}
	scalar := types.Scalar(td.Type)
	if types.ElementCount(td.Type) == 1 {
		return formatScalar(scalar, v)
	}
	parts := make([]string, len(v.Elems))
	for i, lane := range v.Elems {
		parts[i] = formatScalar(scalar, lane)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatScalar(t types.VarType, v backend.Val) string {
	switch {
	case types.IsFloat(t):
		return strconv.FormatFloat(v.F, 'g', -1, 32)
	case types.IsInt(t):
		return strconv.FormatInt(v.I, 10)
	default:
		return strconv.FormatBool(v.I != 0)
	}
}
