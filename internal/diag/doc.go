// Package diag defines the diagnostic model shared by tree decoding, lowering
// and the CLI.
//
// Diagnostic is the central record: Severity, a stable numeric Code, a short
// Message, the Primary span of the offending node and optional Notes. Producers
// emit through a Reporter (usually a BagReporter) and never format or print;
// rendering lives in internal/diagfmt.
//
// Lowering reports recoverable per-declaration problems (duplicate names,
// unresolved externals) here. Contract violations from malformed trees are
// not diagnostics; they abort lowering.
package diag
