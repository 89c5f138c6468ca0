// Package engine implements the incremental, memoized evaluation
// engine that drives node functions to fixpoint over a dynamically
// discovered dependency graph.
//
// The engine executes compute attempts on a bounded worker pool.
// An attempt that cannot proceed because dependencies are unready
// returns the restart sentinel and fully releases its worker; the
// engine records which dependencies were requested, schedules them,
// and re-invokes the function from scratch once they resolve. No
// continuation state is kept between attempts. Engine-side
// memoization makes the re-fetches of already resolved dependencies
// cheap.
//
// Each key has at most one active attempt at any time. Concurrent
// requesters for the same key share the eventual published result.
// Published values are immutable and survive across Evaluate calls,
// so re-evaluating an already computed graph returns identical
// values without re-invoking any function.
package engine
