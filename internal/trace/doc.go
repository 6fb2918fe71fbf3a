// Package trace records what the checker is doing: commands, passes, files
// and single call sites. It is the only logging facility of the module.
//
// Spans nest through the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "bind")
//	defer span.End("")
//
// Each Start under ctx becomes a child of the span ctx carries. Events go to
// a StreamTracer (text or NDJSON, written as they happen) or a RingTracer
// (the last N events, dumped on failure). Nop costs nothing.
//
// Levels select scopes: error keeps driver events, phase adds passes,
// detail adds files and debug adds call sites and edits.
package trace
