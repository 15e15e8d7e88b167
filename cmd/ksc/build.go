package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ksc/internal/buildpipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [tree files or directories...]",
	Short: "Lower typed trees to LLVM IR and module descriptors",
	Long: `Build lowers every typed tree (*.kst.json) into one LLVM module and writes
<module>.ll plus a <tree>.kscd descriptor per tree. Without arguments the
project containing ksc.toml, or the working directory, is searched.`,
	RunE: buildExecution,
}

func init() {
	buildCmd.Flags().StringP("out-dir", "o", "", "output directory (default: [build].out_dir)")
	buildCmd.Flags().String("module", "", "LLVM module name (default: first tree)")
	buildCmd.Flags().Bool("emit-llvm", true, "write the LLVM IR module")
	buildCmd.Flags().Bool("emit-desc", true, "write module descriptors")
	buildCmd.Flags().Bool("packed", false, "emit packed-layout wrappers for every function")
	buildCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	moduleName, err := cmd.Flags().GetString("module")
	if err != nil {
		return err
	}
	packed, err := cmd.Flags().GetBool("packed")
	if err != nil {
		return err
	}

	return withSession(cmd, "build", func(ctx context.Context, s *session) error {
		st := s.settings
		cfg := st.manifest.Config
		outDir := st.manifest.ResolveOut()
		if err := overrideString(cmd.Flags().Changed("out-dir"), &outDir, func() (string, error) { return cmd.Flags().GetString("out-dir") }); err != nil {
			return err
		}
		emitLLVM, emitDesc := cfg.Build.EmitLLVM, cfg.Build.EmitDesc
		if cmd.Flags().Changed("emit-llvm") {
			if emitLLVM, err = cmd.Flags().GetBool("emit-llvm"); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("emit-desc") {
			if emitDesc, err = cmd.Flags().GetBool("emit-desc"); err != nil {
				return err
			}
		}

		root := st.manifest.Root
		files, err := collectTreeFiles(args, root, outDir)
		if err != nil {
			return err
		}
		req := buildpipeline.BuildRequest{
			CompileRequest: buildpipeline.CompileRequest{
				Files:          files,
				BaseDir:        root,
				ModuleName:     moduleName,
				Target:         st.target,
				MaxDiagnostics: st.maxDiags,
				Jobs:           st.jobs,
			},
			OutDir:   outDir,
			EmitLLVM: emitLLVM,
			EmitDesc: emitDesc,
			Packed:   packed,
		}

		var res buildpipeline.BuildResult
		if shouldUseTUI(mode, st.quiet) {
			res, err = runBuildWithUI(ctx, "ksc build", buildpipeline.DisplayFiles(files, root), &req)
		} else {
			res, err = buildpipeline.Build(ctx, &req)
		}
		out := cmd.OutOrStdout()
		if perr := printDiagnostics(out, res.Compile, st); perr != nil {
			return perr
		}
		if st.timings && !st.quiet {
			printStageTimings(out, res.Timings)
		}
		if errors.Is(err, buildpipeline.ErrDiagnostics) {
			return errReported
		}
		if err != nil {
			return err
		}
		if st.quiet {
			return nil
		}
		if res.IRPath != "" {
			fmt.Fprintf(out, "wrote %s\n", formatPathForOutput(root, res.IRPath))
		}
		for _, p := range res.DescPaths {
			fmt.Fprintf(out, "wrote %s\n", formatPathForOutput(root, p))
		}
		return nil
	})
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
