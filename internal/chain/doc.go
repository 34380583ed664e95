// Package chain assembles modules into an analysis chain and drives the
// chain through its lifecycle.
//
// ARCHITECTURE:
//
// Builder:
// Chain appends modules in execution order and makes the new module the
// current one. Parameter helpers (WithParameters, PushToVector, InsertToMap,
// WithSetter) do not touch the module; they append concrete Command values,
// tagged with the index of the current module, to a queue. The queue is
// applied once, in order, by LoadAllParameters.
//
// Driver:
// Run walks the fixed phase sequence against an Engine:
//
//	Define → LoadAllParameters → PreInitialize → Modify → Initialize → Analyze → Finalize
//
// Any non-OK status before Analyze aborts the run. SKIP outside Analyze is
// treated exactly like QUIT. Once Initialize has been invoked, Finalize is
// always invoked exactly once.
//
// A Builder runs at most once. It is not safe for concurrent use.
package chain
