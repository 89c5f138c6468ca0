package graph

import "context"

// Value is the immutable result attached to a successfully completed
// node. Values are opaque to the engine; only the owning node function
// interprets them.
type Value any

// Result is a tagged variant holding either a node's value or its
// terminal error. It is the batch-fetch return type, replacing typed
// multi-exception signatures with an explicit value-or-error pair.
type Result struct {
	// Value is the node's published value, nil if the node failed or
	// is not yet available.
	Value Value

	// Err is the node's terminal error, nil if the node succeeded or
	// is not yet available.
	Err error
}

// Env is the evaluation context handed to a node function for one
// attempt. All dependency access goes through it; fetches are memoized
// by the engine.
type Env interface {
	// Get requests the value of a dependency. It returns (nil, nil) if
	// the dependency is not yet available, in which case its
	// computation has been scheduled and the caller should eventually
	// return the restart sentinel. A non-nil error is the dependency's
	// terminal failure; the caller must classify it as direct or
	// transitive before re-reporting.
	Get(key Key) (Value, error)

	// GetAll requests a batch of dependencies and returns a result per
	// key. Entries for unready dependencies have both fields nil.
	GetAll(keys []Key) map[Key]Result

	// AnyMissing reports whether any dependency requested so far in
	// this attempt was unready. Functions use it after a batch of
	// requests to decide whether to proceed or abort the attempt.
	AnyMissing() bool
}

// Function computes values for one kind of node. Implementations must
// be pure with respect to external mutable state: no blocking I/O
// outside Env fetches, no mutation visible beyond the returned value,
// and safe re-invocation any number of times for the same key.
//
// Compute returns exactly one of:
//   - (value, nil): the node's completed value, published once
//   - (nil, nil): the restart sentinel; required inputs were
//     unavailable and the engine will re-invoke the function from
//     scratch once they resolve
//   - (nil, err): a terminal error, persisted as the node's outcome
type Function interface {
	Compute(ctx context.Context, key Key, env Env) (Value, error)
}

// FunctionFunc adapts a plain function to the Function interface.
type FunctionFunc func(ctx context.Context, key Key, env Env) (Value, error)

// Compute implements Function.
func (f FunctionFunc) Compute(ctx context.Context, key Key, env Env) (Value, error) {
	return f(ctx, key, env)
}
