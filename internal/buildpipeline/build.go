package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ksc/internal/codegen"
	"ksc/internal/trace"
)

// BuildRequest configures artefact output.
type BuildRequest struct {
	CompileRequest
	OutDir   string
	EmitLLVM bool // <module>.ll with the whole backend module
	EmitDesc bool // <tree>.kscd per lowered tree
	// Packed emits a <name>_packed wrapper for every function whose
	// signature differs in packed layout.
	Packed bool
}

// BuildResult lists what was written. The backend is already shut down.
type BuildResult struct {
	Compile   *CompileResult
	IRPath    string
	DescPaths []string
	Timings   Timings
}

// Build compiles the request and writes its artefacts. Nothing is written
// when any tree failed.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if req == nil {
		return result, fmt.Errorf("missing build request")
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

	files := make([]string, len(res.Units))
	for i, u := range res.Units {
		files[i] = u.Path
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "emit", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")
	start := time.Now()
	emitStage(req.Progress, files, StageEmit, StatusWorking, nil, 0)

	if req.Packed {
		for _, u := range res.Units {
			for _, name := range u.Desc.FunctionNames() {
				u.Desc.Functions[name].PackedFunc()
			}
		}
	}
	if err := verifyAll(res); err != nil {
		emitStage(req.Progress, files, StageEmit, StatusError, err, 0)
		return result, err
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		err = fmt.Errorf("failed to create output dir: %w", err)
		emitStage(req.Progress, files, StageEmit, StatusError, err, 0)
		return result, err
	}

	if req.EmitLLVM {
		mod := res.Backend.Module()
		path := filepath.Join(outDir, mod.IR().SourceFilename+".ll")
		if err := os.WriteFile(path, []byte(mod.String()), 0o600); err != nil {
			err = fmt.Errorf("failed to write LLVM IR: %w", err)
			emitStage(req.Progress, files, StageEmit, StatusError, err, 0)
			return result, err
		}
		result.IRPath = path
	}
	if req.EmitDesc {
		for _, u := range res.Units {
			path := filepath.Join(outDir, u.Tree.Name+DescSuffix)
			if err := WriteDesc(path, u.Desc); err != nil {
				emitFile(req.Progress, u.Path, StageEmit, StatusError, err)
				return result, err
			}
			result.DescPaths = append(result.DescPaths, path)
		}
	}

	result.Timings.Set(StageEmit, time.Since(start))
	span.WithExtra("descriptors", fmt.Sprint(len(result.DescPaths)))
	emitStage(req.Progress, files, StageEmit, StatusDone, nil, result.Timings.Duration(StageEmit))
	return result, nil
}

// DescSuffix is the extension of serialized module descriptors.
const DescSuffix = ".kscd"

// WriteDesc encodes d to path.
func WriteDesc(path string, d *codegen.ModuleDesc) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if err := d.Encode(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadDesc decodes a descriptor written by WriteDesc.
func ReadDesc(path string) (*codegen.ModuleDesc, error) {
	f, err := os.Open(path) // #nosec G304 -- path named on the command line
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := codegen.DecodeModuleDesc(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func verifyAll(res *CompileResult) error {
	var errs []error
	for _, f := range res.Backend.Module().Funcs() {
		if !f.HasBody() {
			continue
		}
		if err := f.Verify(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
		}
	}
	return errors.Join(errs...)
}
