package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ksc/internal/backend"
	"ksc/internal/codegen"
	"ksc/internal/diag"
	"ksc/internal/types"
)

const scaleTree = `{
  "name": "scale",
  "decls": [
    {"kind": "FuncDecl", "name": "main", "ret": {"type": "int"}, "span": [0, 12],
     "params": [{"name": "a", "type": "int"}],
     "body": {"kind": "Block", "stmts": [
       {"kind": "Return", "type": "int", "operand":
         {"kind": "Binary", "type": "int", "op": "*",
          "left": {"kind": "VarRef", "name": "a", "type": "int"},
          "right": {"kind": "Constant", "value": 3}}}
     ]}},
    {"kind": "FuncDecl", "name": "bump",
     "params": [{"name": "v", "type": "float3", "byRef": true}],
     "body": {"kind": "Block", "stmts": [
       {"kind": "Binary", "type": "float", "op": "=",
        "left": {"kind": "Dot", "type": "float", "field": "y",
                 "object": {"kind": "VarRef", "name": "v", "type": "float3"}},
        "right": {"kind": "Constant", "value": 9.5}}
     ]}}
  ]
}`

const otherMainTree = `{"name": "other", "decls": [
  {"kind": "FuncDecl", "name": "main", "ret": {"type": "int"},
   "body": {"kind": "Block", "stmts": [{"kind": "Return", "type": "int", "operand": {"kind": "Constant", "value": 1}}]}}
]}`

func hostTarget() backend.Target {
	t, _ := backend.TargetByTriple("x86_64-unknown-linux-gnu")
	return t
}

func writeTree(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name+TreeSuffix)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) has(file string, stage Stage, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.File == file && ev.Stage == stage && ev.Status == status {
			return true
		}
	}
	return false
}

func TestBuildWritesArtefacts(t *testing.T) {
	dir := t.TempDir()
	tree := writeTree(t, dir, "scale", scaleTree)
	if err := os.WriteFile(filepath.Join(dir, "scale"+SourceSuffix), []byte("int main(int a) { return a * 3; }\n"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	rec := &recorder{}
	out := filepath.Join(dir, "out")
	res, err := Build(context.Background(), &BuildRequest{
		CompileRequest: CompileRequest{Files: []string{tree}, BaseDir: dir, Target: hostTarget(), Jobs: 2, Progress: FuncSink(rec.OnEvent)},
		OutDir:         out,
		EmitLLVM:       true,
		EmitDesc:       true,
		Packed:         true,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !res.Compile.Backend.Closed() {
		t.Fatal("Build must shut the backend down")
	}
	if res.IRPath != filepath.Join(out, "scale.ll") || len(res.DescPaths) != 1 {
		t.Fatalf("artefacts = %s %v", res.IRPath, res.DescPaths)
	}
	ir, err := os.ReadFile(res.IRPath)
	if err != nil {
		t.Fatalf("read IR: %v", err)
	}
	for _, want := range []string{"define i32 @main(", "@bump_packed("} {
		if !strings.Contains(string(ir), want) {
			t.Fatalf("IR lacks %q:\n%s", want, ir)
		}
	}
	desc, err := ReadDesc(res.DescPaths[0])
	if err != nil {
		t.Fatalf("ReadDesc: %v", err)
	}
	if strings.Join(desc.FunctionNames(), ",") != "bump,main" || !desc.Functions["bump"].NeedsPacking[0] {
		t.Fatalf("descriptor = %+v", desc.Functions)
	}
	if u := res.Compile.Units[0]; u.Path != "scale.kst.json" || res.Compile.FileSet.Get(u.Source).Path != filepath.ToSlash(filepath.Join(dir, "scale.ksl")) {
		t.Fatalf("unit %s bound to %s", u.Path, res.Compile.FileSet.Get(u.Source).Path)
	}
	for _, stage := range []Stage{StageLower, StageEmit} {
		if !rec.has("scale.kst.json", stage, StatusDone) {
			t.Fatalf("no %s done event", stage)
		}
	}
}

func TestRunCallsFunction(t *testing.T) {
	dir := t.TempDir()
	tree := writeTree(t, dir, "scale", scaleTree)
	req := func(fn string, packed bool, args ...string) *RunRequest {
		return &RunRequest{
			CompileRequest: CompileRequest{Files: []string{tree}, Target: hostTarget()},
			Func:           fn,
			Args:           args,
			Packed:         packed,
		}
	}

	res, err := Run(context.Background(), req("", false, "14"))
	if err != nil {
		t.Fatalf("Run main: %v", err)
	}
	if res.Result != "42" || res.Value.I != 42 || !res.Timings.Has(StageRun) {
		t.Fatalf("main(14) = %q", res.Result)
	}

	for _, packed := range []bool{false, true} {
		res, err = Run(context.Background(), req("bump", packed, "1,2,3"))
		if err != nil {
			t.Fatalf("Run bump (packed=%v): %v", packed, err)
		}
		if res.Result != "" || res.Outputs["v"] != "(1, 9.5, 3)" {
			t.Fatalf("bump (packed=%v): result %q, v = %q", packed, res.Result, res.Outputs["v"])
		}
	}

	if _, err := Run(context.Background(), req("main", false)); err == nil || !strings.Contains(err.Error(), "takes 1 arguments") {
		t.Fatalf("arity error = %v", err)
	}
}

func TestDecodeErrorsBecomeDiagnostics(t *testing.T) {
	dir := t.TempDir()
	good := writeTree(t, dir, "scale", scaleTree)
	bad := writeTree(t, dir, "bad", `{"name": "bad", "decls": [{"kind": "Goto"}]}`)
	res, err := Compile(context.Background(), &CompileRequest{Files: []string{good, bad}, BaseDir: dir, Target: hostTarget()})
	if res != nil {
		defer func() { _ = res.Close() }()
	}
	if !errors.Is(err, ErrDiagnostics) {
		t.Fatalf("err = %v, want ErrDiagnostics", err)
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.TreeUnknownKind || !strings.Contains(items[0].Message, "bad.kst.json") {
		t.Fatalf("diagnostics = %+v", items)
	}
	if u := res.Units[0]; u.Path != "bad.kst.json" || !u.Failed || u.Tree != nil {
		t.Fatalf("bad unit = %+v", u)
	}
	if u, ok := res.Unit("scale"); !ok || u.Failed || u.Desc == nil {
		t.Fatalf("good unit = %+v", u)
	}
}

func TestResolveEntry(t *testing.T) {
	dir := t.TempDir()
	a := writeTree(t, dir, "scale", scaleTree)
	b := writeTree(t, dir, "other", otherMainTree)
	res, err := Compile(context.Background(), &CompileRequest{Files: []string{a, b}, Target: hostTarget()})
	if res != nil {
		defer func() { _ = res.Close() }()
	}
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := ResolveEntry(res, ""); err == nil || !strings.Contains(err.Error(), "several trees") {
		t.Fatalf("ambiguous main: %v", err)
	}
	if fd, err := ResolveEntry(res, "bump"); err != nil || fd.Name != "bump" {
		t.Fatalf("bump: %v", err)
	}
	if _, err := ResolveEntry(res, "nope"); err == nil || !strings.Contains(err.Error(), "scale::bump") {
		t.Fatalf("missing: %v", err)
	}
}

func TestCompileWithoutFiles(t *testing.T) {
	if _, err := Compile(context.Background(), &CompileRequest{}); !errors.Is(err, ErrNoInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseAndFormatValues(t *testing.T) {
	td := func(vt types.VarType) codegen.TypeDesc {
		return codegen.TypeDesc{TypeString: vt.String(), Type: vt}
	}
	cases := []struct {
		typ  types.VarType
		lit  string
		want string
	}{
		{types.Int, "-7", "-7"},
		{types.Int, "0x10", "16"},
		{types.Float, "2.5", "2.5"},
		{types.Float2, "1.5", "(1.5, 1.5)"},
		{types.Bool3, "true, false,1", "(true, false, true)"},
		{types.Int4, "1,2,3,4", "(1, 2, 3, 4)"},
	}
	for _, tc := range cases {
		v, err := ParseValue(td(tc.typ), tc.lit)
		if err != nil {
			t.Fatalf("ParseValue(%s, %q): %v", tc.typ, tc.lit, err)
		}
		if got := FormatValue(td(tc.typ), v); got != tc.want {
			t.Fatalf("%s %q -> %q, want %q", tc.typ, tc.lit, got, tc.want)
		}
	}
	for _, bad := range []struct {
		d   codegen.TypeDesc
		lit string
	}{
		{td(types.Int2), "1,2,3"},
		{td(types.Float), "x"},
		{codegen.TypeDesc{TypeString: "P", Type: types.Struct, Struct: "P"}, "1"},
		{codegen.TypeDesc{TypeString: "float[2]", Type: types.Float, ArraySize: 2}, "1"},
	} {
		if _, err := ParseValue(bad.d, bad.lit); err == nil {
			t.Fatalf("ParseValue(%s, %q) accepted", bad.d.TypeString, bad.lit)
		}
	}
	if got := FormatValue(td(types.Void), backend.Val{}); got != "" {
		t.Fatalf("void formatted as %q", got)
	}
}
