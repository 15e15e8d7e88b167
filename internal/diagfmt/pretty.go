package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"ksc/internal/diag"
	"ksc/internal/source"
)

// Pretty prints diagnostics as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed by the source line and a caret underline when the file is known.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	sevColor := map[diag.Severity]*color.Color{
		diag.SevError:   color.New(color.FgRed, color.Bold),
		diag.SevWarning: color.New(color.FgYellow, color.Bold),
		diag.SevInfo:    color.New(color.FgCyan),
	}
	dim := color.New(color.Faint)
	for _, c := range sevColor {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	if opts.Color {
		dim.EnableColor()
	} else {
		dim.DisableColor()
	}

	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			fs.Position(d.Primary),
			sevColor[d.Severity].Sprint(d.Severity.String()),
			d.Code.ID(),
			d.Message)
		if opts.Context {
			writeContext(w, fs, d.Primary, dim)
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", dim.Sprint("note"), fs.Position(n.Span), n.Msg)
		}
	}
}

func writeContext(w io.Writer, fs *source.FileSet, sp source.Span, dim *color.Color) {
	f := fs.Get(sp.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(sp)
	line := f.Line(start.Line)
	if line == "" {
		return
	}
	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		width = int(end.Col - start.Col)
	}
	gutter := fmt.Sprintf("%4d | ", start.Line)
	fmt.Fprintf(w, "%s%s\n", dim.Sprint(gutter), line)
	pad := strings.Repeat(" ", len(gutter)+int(start.Col)-1)
	fmt.Fprintf(w, "%s^%s\n", pad, strings.Repeat("~", width-1))
}
