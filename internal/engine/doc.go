// Package engine implements the reference chain engine used by the chain
// driver.
//
// The engine owns the module list for one run and calls the module
// callbacks for each phase. It is the only place that interprets the full
// status set; the driver only ever sees OK, Skip and Quit-like results.
//
// ARCHITECTURE:
//
// Replicas:
// Replica 0 is the chain as built. When more than one replica is
// requested, PreInitialize ends by copying every module (module.Replicate)
// into replicas 1..n-1. Every replica has its own event flags and counters,
// so the only state shared during Analyze is the loop index.
//
// Event Loop:
//  1. BeginRun on every replica, in replica order
//  2. One goroutine per replica pulls event indices from a shared loopIndex
//  3. processEvent runs the on modules in chain order until a non-OK status
//  4. EndRun on every replica, unless a critical error ended the loop
//
// Counters are only merged after the loop goroutines have returned.
//
// Tracing:
// Every phase is a span named "anlnext.<phase>". The default tracer is a
// no-op; see internal/tracing for exporters.
package engine
