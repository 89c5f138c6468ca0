// Package graph defines the identity, value and function model of the
// gravel evaluation graph.
//
// # Overview
//
// Every unit of incremental computation is addressed by a Key: a pair of
// a FunctionKind tag and an immutable, comparable argument. Equal keys
// denote the same computation, which is memoized exactly once by the
// evaluation engine in pkg/engine.
//
// A node's computation is implemented by a Function. Functions are
// driven through an Env, which exposes memoized dependency fetches. A
// function that finds required dependencies unavailable returns the
// restart sentinel (a nil value with a nil error) and is re-invoked
// from scratch once its dependencies resolve; the engine's cache makes
// re-fetching already-resolved dependencies cheap. Functions must
// therefore be referentially transparent: any state built during an
// abandoned attempt must be discardable with no observable effect.
//
// # Error Classification
//
// Terminal failures are modeled by NodeError, which carries an
// ErrorClass distinguishing:
//
//   - direct: the failure's subject is the node's own request and is
//     reported to the user with full context, exactly once
//   - transitive: the failure originated deeper in a dependency's
//     subgraph and is propagated opaquely, tagged with the offending
//     key, until an ancestor recognizes it as direct
//   - construction: diagnostic error events emitted while assembling a
//     node's result
//   - internal: engine invariant violations (stalls, missing functions)
//
// "Unready" is deliberately not an error class: it is a scheduling
// signal expressed through the restart sentinel and never published.
package graph
