package engine

import "github.com/gravelbuild/gravel/pkg/graph"

// nodeState tracks where a node is in its lifecycle.
type nodeState int

const (
	// statePending means the node exists but no attempt is scheduled.
	statePending nodeState = iota

	// stateQueued means the node is on the work queue.
	stateQueued

	// stateRunning means a worker is executing an attempt for the node.
	stateRunning

	// stateWaiting means the last attempt suspended and the node is
	// waiting for one or more dependencies to complete.
	stateWaiting

	// stateDone means the node has a published value or terminal error.
	stateDone
)

func (s nodeState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateQueued:
		return "queued"
	case stateRunning:
		return "running"
	case stateWaiting:
		return "waiting"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// node is the engine's bookkeeping for one key. All fields are guarded
// by the evaluator's mutex except value and err, which are written
// exactly once before the state becomes done and read-only afterwards.
type node struct {
	key   graph.Key
	state nodeState

	// value and err hold the published outcome once state is done.
	value graph.Value
	err   error

	// waiters are suspended nodes to notify when this node completes.
	waiters []*node

	// awaiting counts unresolved dependencies a waiting node is
	// suspended on. The node is re-queued when it reaches zero.
	awaiting int

	// restarts counts suspended attempts, for diagnostics.
	restarts int
}

// done reports whether the node has a published outcome.
func (n *node) done() bool {
	return n.state == stateDone
}
