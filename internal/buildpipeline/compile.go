// Package buildpipeline decodes typed trees, lowers them into one backend
// module and writes the artefacts.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"ksc/internal/ast"
	"ksc/internal/backend"
	"ksc/internal/codegen"
	"ksc/internal/diag"
	"ksc/internal/source"
	"ksc/internal/trace"
)

var (
	// ErrNoInput is returned when a request names no tree files.
	ErrNoInput = errors.New("no typed tree files given")
	// ErrDiagnostics is returned when decoding or lowering reported errors.
	ErrDiagnostics = errors.New("diagnostics reported errors")
)

// CompileRequest configures decoding and lowering.
type CompileRequest struct {
	Files          []string // typed tree files
	BaseDir        string   // display paths are made relative to it
	ModuleName     string   // backend module name, defaults to the first tree
	Target         backend.Target
	MaxDiagnostics int
	Jobs           int // parallel decoders, 0 for GOMAXPROCS
	Progress       ProgressSink
	// Symbols are registered with the engine before lowering so that
	// bodyless declarations can bind to them.
	Symbols map[string]backend.NativeFunc
}

// Unit is one tree file and what became of it.
type Unit struct {
	Path   string // display path
	Source source.FileID
	Tree   *ast.Module
	Desc   *codegen.ModuleDesc
	Failed bool
}

// CompileResult owns the live backend; call Close when done with it.
type CompileResult struct {
	Backend *backend.Backend
	FileSet *source.FileSet
	Units   []*Unit
	Bag     *diag.Bag
	Timings Timings
}

// Close shuts the backend down.
func (r *CompileResult) Close() error {
	if r == nil || r.Backend == nil || r.Backend.Closed() {
		return nil
	}
	return r.Backend.Shutdown()
}

// Unit returns the unit whose tree is named name.
func (r *CompileResult) Unit(name string) (*Unit, bool) {
	for _, u := range r.Units {
		if u.Tree != nil && u.Tree.Name == name {
			return u, true
		}
	}
	return nil, false
}

// Compile decodes every tree in parallel and lowers them one after
// another into a single backend. Trees that fail to decode are skipped.
// Lowering contract violations propagate as panics after the unit is
// marked failed.
func Compile(ctx context.Context, req *CompileRequest) (*CompileResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, fmt.Errorf("missing compile request")
	}
	files := normalizeFiles(req.Files, req.BaseDir)
	if len(files) == 0 {
		return nil, ErrNoInput
	}
	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	res := &CompileResult{
		FileSet: source.NewFileSet(),
		Bag:     diag.NewBag(req.MaxDiagnostics),
		Units:   make([]*Unit, len(files)),
	}
	emitQueued(req.Progress, files)

	decodeSpan := trace.Begin(tracer, trace.ScopePass, "decode", parent)
	start := time.Now()
	err := decodeAll(ctx, req, files, res)
	res.Timings.Set(StageDecode, time.Since(start))
	decodeSpan.WithExtra("files", fmt.Sprint(len(files))).End("")
	if err != nil {
		emitStage(req.Progress, nil, StageDecode, StatusError, err, 0)
		return res, err
	}

	name := req.ModuleName
	if name == "" {
		name = unitName(files[0])
	}
	be, err := backend.Initialize(backend.Config{ModuleName: name, Target: req.Target})
	if err != nil {
		emitStage(req.Progress, nil, StageLower, StatusError, err, 0)
		return res, fmt.Errorf("backend: %w", err)
	}
	res.Backend = be
	for name, fn := range req.Symbols {
		be.Engine().RegisterSymbol(name, fn)
	}

	lowerSpan := trace.Begin(tracer, trace.ScopePass, "lower", parent)
	lctx := trace.WithSpan(ctx, lowerSpan)
	start = time.Now()
	for _, u := range res.Units {
		if u.Failed {
			continue
		}
		if err := lowerUnit(lctx, req, be, u, res.Bag); err != nil {
			lowerSpan.End("aborted")
			return res, err
		}
	}
	res.Timings.Set(StageLower, time.Since(start))
	lowerSpan.End("")

	if res.Bag.HasErrors() || res.failed() {
		return res, ErrDiagnostics
	}
	return res, nil
}

func (r *CompileResult) failed() bool {
	for _, u := range r.Units {
		if u.Failed {
			return true
		}
	}
	return false
}

// decodeAll registers each tree's source sequentially, since FileSet is
// not goroutine-safe, then reads and decodes the trees in parallel.
func decodeAll(ctx context.Context, req *CompileRequest, files []string, res *CompileResult) error {
	for i, file := range files {
		path := resolvePath(file, req.BaseDir)
		u := &Unit{Path: file}
		if id, err := res.FileSet.Load(sourceFor(path)); err == nil {
			u.Source = id
		} else {
			u.Source = res.FileSet.AddVirtual(file, nil)
		}
		res.Units[i] = u
	}

	decodeErrs := make([]error, len(files))
	g, gctx := errgroup.WithContext(ctx)
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(jobs)
	for i, u := range res.Units {
		path := resolvePath(u.Path, req.BaseDir)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			emitFile(req.Progress, u.Path, StageDecode, StatusWorking, nil)
			data, err := os.ReadFile(path) // #nosec G304 -- path named on the command line
			if err != nil {
				return fmt.Errorf("read %s: %w", u.Path, err)
			}
			tree, err := ast.DecodeBytes(data, u.Source)
			if err != nil {
				decodeErrs[i] = err
				return nil
			}
			if tree.Name == "" {
				tree.Name = unitName(u.Path)
			}
			u.Tree = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, u := range res.Units {
		err := decodeErrs[i]
		if err == nil {
			continue
		}
		u.Failed = true
		code := diag.TreeMalformed
		var de *ast.DecodeError
		if errors.As(err, &de) {
			code = de.Code
		}
		res.Bag.Add(diag.NewError(code, source.Span{File: u.Source}, fmt.Sprintf("%s: %v", u.Path, err)))
		trace.Point(trace.FromContext(ctx), trace.ScopePass, "decode-failed", u.Path, trace.CurrentSpan(ctx).SpanID)
		emitFile(req.Progress, u.Path, StageDecode, StatusError, err)
	}
	return nil
}

func lowerUnit(ctx context.Context, req *CompileRequest, be *backend.Backend, u *Unit, bag *diag.Bag) (err error) {
	emitFile(req.Progress, u.Path, StageLower, StatusWorking, nil)
	defer func() {
		if r := recover(); r != nil {
			u.Failed = true
			if ce, ok := r.(codegen.ContractError); ok {
				emitFile(req.Progress, u.Path, StageLower, StatusError, ce)
			}
			panic(r)
		}
	}()
	desc, ubag, err := codegen.Compile(ctx, be, u.Tree, codegen.Options{MaxDiagnostics: req.MaxDiagnostics})
	if ubag != nil {
		for _, d := range ubag.Items() {
			bag.Add(d)
		}
	}
	u.Desc = desc
	switch {
	case err == nil:
		emitFile(req.Progress, u.Path, StageLower, StatusDone, nil)
		return nil
	case errors.Is(err, codegen.ErrLoweringFailed):
		u.Failed = true
		emitFile(req.Progress, u.Path, StageLower, StatusError, err)
		return nil
	default:
		u.Failed = true
		emitFile(req.Progress, u.Path, StageLower, StatusError, err)
		return fmt.Errorf("%s: %w", u.Path, err)
	}
}
