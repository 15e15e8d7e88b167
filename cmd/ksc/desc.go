package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ksc/internal/buildpipeline"
	"ksc/internal/codegen"
)

var descCmd = &cobra.Command{
	Use:   "desc <file.kscd>...",
	Short: "Print module descriptors written by build",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for i, path := range args {
			d, err := buildpipeline.ReadDesc(path)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			if err := printModuleDesc(out, d); err != nil {
				return err
			}
		}
		return nil
	},
}

func printModuleDesc(out io.Writer, d *codegen.ModuleDesc) error {
	fmt.Fprintf(out, "module %s (%s)\n", d.Name, d.Triple)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range d.StructNames() {
		sd := d.Structs[name]
		fmt.Fprintf(tw, "struct %s\tsize %d\talign %d\tpacked %d\n", sd.Name, sd.Size, sd.Align, sd.PackedSize)
		for _, member := range sd.Elems {
			m := sd.Members[member]
			fmt.Fprintf(tw, "  %s %s\toffset %d\tsize %d\tpacked %d+%d\n", m.TypeString, member, m.Offset, m.Size, m.PackedOffset, m.PackedSize)
		}
	}
	for _, name := range d.FunctionNames() {
		fd := d.Functions[name]
		params := make([]string, len(fd.ArgNames))
		for i, arg := range fd.ArgNames {
			prefix := ""
			if fd.ArgumentTypes[i].IsRef {
				prefix = "inout "
			}
			params[i] = prefix + fd.ArgTypeStrings[i] + " " + arg
		}
		fmt.Fprintf(tw, "func %s(%s) %s\n", fd.Name, strings.Join(params, ", "), fd.ReturnType.TypeString)
		for i, arg := range fd.ArgNames {
			writeTypeDesc(tw, arg, fd.ArgumentTypes[i], fd.NeedsPacking[i])
		}
		if fd.ReturnType.Size > 0 {
			writeTypeDesc(tw, "return", fd.ReturnType, !fd.ReturnType.IsKSCLayout)
		}
	}
	return tw.Flush()
}

func writeTypeDesc(w io.Writer, label string, td codegen.TypeDesc, needsPacking bool) {
	note := ""
	if needsPacking {
		note = "\tneeds packing"
	}
	fmt.Fprintf(w, "  %s: %s\tsize %d\talign %d\tpacked %d%s\n", label, td.TypeString, td.Size, td.Align, td.PackedSize, note)
}
