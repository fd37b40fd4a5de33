// Package trace records what the lowering pipeline is doing: one span
// per CLI command and phase, one per lowered function, and point events
// for every instance the monomorphization cache creates.
//
// Enable tracing via command-line flags:
//
//	transc lower --trace=- --trace-mode=stream --trace-level=detail crate.tir
//
// Tracers travel in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "roots")
//	err := lowerRoots(ctx)
//	return span.EndErr(err)
//
// In ring mode the last events stay in memory and are dumped when a
// fatal lowering error aborts the run.
package trace
