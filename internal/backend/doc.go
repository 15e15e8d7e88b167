// Package backend is the code generation collaborator of the lowering engine.
//
// It wraps an LLVM IR module (github.com/llir/llvm) with a Builder that
// records every instruction twice: as IR for textual output and as a step
// of the in-process execution Engine. The Engine runs functions over a
// byte-addressed Memory laid out by package layout, so values that cross
// the host boundary have the same bytes native code would see.
//
// A Backend is process-wide: Initialize it once, lower and run, then
// Shutdown. The Builder's insertion point is shared mutable state, so at
// most one goroutine may lower into a Backend at a time. Lowering a module
// from several goroutines concurrently is not supported.
package backend
