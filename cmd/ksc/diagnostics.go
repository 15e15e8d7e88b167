package main

import (
	"io"

	"ksc/internal/buildpipeline"
	"ksc/internal/diagfmt"
)

// printDiagnostics renders whatever the pipeline reported.
func printDiagnostics(w io.Writer, res *buildpipeline.CompileResult, st *settings) error {
	if res == nil || res.Bag == nil || res.Bag.Len() == 0 {
		return nil
	}
	res.Bag.Dedup()
	res.Bag.Sort()
	if st.diagsFormat == "json" {
		return diagfmt.JSON(w, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
			Max:              st.maxDiags,
		})
	}
	diagfmt.Pretty(w, res.Bag, res.FileSet, diagfmt.PrettyOpts{
		Color:     st.color,
		ShowNotes: true,
		Context:   true,
	})
	return nil
}
