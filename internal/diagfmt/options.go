package diagfmt

// PrettyOpts configures human-readable output.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	Context   bool // echo the source line with a caret underline
}

// JSONOpts configures JSON output.
type JSONOpts struct {
	IncludePositions bool
	IncludeNotes     bool
	Max              int
}
