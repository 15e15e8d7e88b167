package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ksc/internal/buildpipeline"
	"ksc/internal/codegen"
	"ksc/internal/types"
)

const tripleTree = `{"name": "triple", "decls": [
  {"kind": "FuncDecl", "name": "main", "ret": {"type": "int"},
   "params": [{"name": "a", "type": "int"}],
   "body": {"kind": "Block", "stmts": [
     {"kind": "Return", "type": "int", "operand":
       {"kind": "Binary", "type": "int", "op": "*",
        "left": {"kind": "VarRef", "name": "a", "type": "int"},
        "right": {"kind": "Constant", "value": 3}}}]}}
]}`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--color", "off", "--target", "x86_64-unknown-linux-gnu"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildThenDescribe(t *testing.T) {
	dir := t.TempDir()
	tree := filepath.Join(dir, "shaders", "triple"+buildpipeline.TreeSuffix)
	writeFile(t, tree, tripleTree)
	out := filepath.Join(dir, "out")

	got, err := execute(t, "build", "--ui", "off", "--out-dir", out, filepath.Join(dir, "shaders"))
	if err != nil {
		t.Fatalf("build: %v\n%s", err, got)
	}
	if !strings.Contains(got, "triple.ll") || !strings.Contains(got, "triple.kscd") {
		t.Fatalf("build output:\n%s", got)
	}

	got, err = execute(t, "desc", filepath.Join(out, "triple"+buildpipeline.DescSuffix))
	if err != nil {
		t.Fatalf("desc: %v", err)
	}
	for _, want := range []string{"module triple (x86_64-unknown-linux-gnu)", "func main(int a) int"} {
		if !strings.Contains(got, want) {
			t.Fatalf("desc output lacks %q:\n%s", want, got)
		}
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	tree := filepath.Join(dir, "triple"+buildpipeline.TreeSuffix)
	writeFile(t, tree, tripleTree)
	got, err := execute(t, "run", "-f", "main", tree, "--", "14")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, got)
	}
	if got != "42\n" {
		t.Fatalf("run output = %q", got)
	}
}

func TestCollectTreeFilesSkipsOutputAndHidden(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"a.kst.json", "sub/b.kst.json", ".cache/c.kst.json", "build/d.kst.json", "notes.txt"} {
		writeFile(t, filepath.Join(dir, rel), "{}")
	}
	files, err := collectTreeFiles(nil, dir, filepath.Join(dir, "build"))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{filepath.Join(dir, "a.kst.json"), filepath.Join(dir, "sub", "b.kst.json")}
	if strings.Join(files, "|") != strings.Join(want, "|") {
		t.Fatalf("files = %v, want %v", files, want)
	}
	if _, err := collectTreeFiles([]string{filepath.Join(dir, "sub", "missing.kst.json")}, dir, ""); err == nil {
		t.Fatal("a missing file must be reported")
	}
	empty := t.TempDir()
	if _, err := collectTreeFiles(nil, empty, ""); err != buildpipeline.ErrNoInput {
		t.Fatalf("empty dir: %v", err)
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, " on ": uiModeOn, "off": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatal("invalid mode accepted")
	}
	if !shouldUseTUI(uiModeOn, true) || shouldUseTUI(uiModeOff, false) {
		t.Fatal("explicit modes must win")
	}
}

func TestPrintModuleDesc(t *testing.T) {
	f3 := codegen.TypeDesc{TypeString: "float3", Type: types.Float3, Size: 16, Align: 16, PackedSize: 12, IsRef: true}
	d := &codegen.ModuleDesc{
		Name:   "m",
		Triple: "x86_64-unknown-linux-gnu",
		Structs: map[string]*codegen.StructDesc{
			"P": {Name: "P", Size: 8, Align: 4, PackedSize: 8, Elems: []string{"x"},
				Members: map[string]codegen.MemberDesc{"x": {TypeString: "float", Size: 4, PackedSize: 4}}},
		},
		Functions: map[string]*codegen.FunctionDesc{
			"bump": {Name: "bump", ArgNames: []string{"v"}, ArgTypeStrings: []string{"float3"},
				ArgumentTypes: []codegen.TypeDesc{f3}, NeedsPacking: []bool{true},
				ReturnType: codegen.TypeDesc{TypeString: "void", Type: types.Void, IsKSCLayout: true}},
		},
	}
	var buf bytes.Buffer
	if err := printModuleDesc(&buf, d); err != nil {
		t.Fatalf("print: %v", err)
	}
	got := buf.String()
	for _, want := range []string{"struct P", "float x", "func bump(inout float3 v) void", "needs packing"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output lacks %q:\n%s", want, got)
		}
	}
}

func TestFormatPathForOutput(t *testing.T) {
	root := t.TempDir()
	if got := formatPathForOutput(root, filepath.Join(root, "build", "a.ll")); got != "build/a.ll" {
		t.Fatalf("inside root = %q", got)
	}
	outside := filepath.Join(filepath.Dir(root), "elsewhere.ll")
	if got := formatPathForOutput(root, outside); got != outside {
		t.Fatalf("outside root = %q", got)
	}
}
