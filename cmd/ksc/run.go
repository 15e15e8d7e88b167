package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"ksc/internal/buildpipeline"
	"ksc/internal/hostlib"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [tree files or directories...] [-- args...]",
	Short: "Lower typed trees and call a function in-process",
	Long: `Run lowers the trees like build, binds bodyless declarations to the host
library and calls one function. Arguments after -- are literals, one per
parameter; vectors are written as 1,2,3. By-reference arguments are
printed after the call.`,
	RunE: runExecution,
}

func init() {
	runCmd.Flags().StringP("func", "f", buildpipeline.DefaultEntry, "function to call")
	runCmd.Flags().Bool("packed", false, "call through the packed-layout wrapper")
}

func runExecution(cmd *cobra.Command, args []string) error {
	fn, err := cmd.Flags().GetString("func")
	if err != nil {
		return err
	}
	packed, err := cmd.Flags().GetBool("packed")
	if err != nil {
		return err
	}
	inputs, fnArgs := splitArgsAtDash(cmd, args)

	return withSession(cmd, "run", func(ctx context.Context, s *session) error {
		st := s.settings
		root := st.manifest.Root
		files, err := collectTreeFiles(inputs, root, st.manifest.ResolveOut())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		res, err := buildpipeline.Run(ctx, &buildpipeline.RunRequest{
			CompileRequest: buildpipeline.CompileRequest{
				Files:          files,
				BaseDir:        root,
				Target:         st.target,
				MaxDiagnostics: st.maxDiags,
				Jobs:           st.jobs,
				Symbols:        hostlib.Symbols(out),
			},
			Func:   fn,
			Args:   fnArgs,
			Packed: packed,
		})
		if perr := printDiagnostics(out, res.Compile, st); perr != nil {
			return perr
		}
		if st.timings && !st.quiet {
			printStageTimings(cmd.ErrOrStderr(), res.Timings)
		}
		if errors.Is(err, buildpipeline.ErrDiagnostics) {
			return errReported
		}
		if err != nil {
			return err
		}
		printRunResult(out, res)
		return nil
	})
}

func printRunResult(out io.Writer, res buildpipeline.RunResult) {
	if res.Result != "" {
		fmt.Fprintln(out, res.Result)
	}
	names := make([]string, 0, len(res.Outputs))
	for name := range res.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%s = %s\n", name, res.Outputs[name])
	}
}

// splitArgsAtDash separates inputs from the arguments after "--".
func splitArgsAtDash(cmd *cobra.Command, args []string) (before, after []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}
