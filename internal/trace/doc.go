// Package trace records what the ksc lowering pipeline is doing.
//
// A Tracer travels in the context. Spans mark the pipeline (driver), each
// stage of a build (pass), each lowered module and each declaration
// (node):
//
//	ctx = trace.WithTracer(ctx, t)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "decode", 0)
//	defer span.End("")
//
// Levels select how deep the output goes: off, error, phase (driver and
// passes), detail (plus modules), debug (plus declarations). Events are
// written as text or NDJSON by a StreamTracer, kept in memory by a
// RingTracer for post-mortem dumps, or both.
package trace
