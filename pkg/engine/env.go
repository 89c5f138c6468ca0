package engine

import "github.com/gravelbuild/gravel/pkg/graph"

// attemptEnv is the evaluation context handed to a node function for
// one attempt. It records which dependencies were requested so the
// engine can register waiters when the attempt suspends, and which
// dependencies had already failed so unhandled failures can be bubbled
// upward.
type attemptEnv struct {
	ev   *Evaluator
	node *node

	// missing holds dependencies that were unready when requested,
	// deduplicated in request order.
	missing     []graph.Key
	missingSeen map[graph.Key]struct{}

	// failed holds dependencies whose terminal error was returned to
	// the function during this attempt, deduplicated in request order.
	failed     []graph.Key
	failedErrs map[graph.Key]error
}

func newAttemptEnv(ev *Evaluator, n *node) *attemptEnv {
	return &attemptEnv{
		ev:          ev,
		node:        n,
		missingSeen: make(map[graph.Key]struct{}),
		failedErrs:  make(map[graph.Key]error),
	}
}

// Get implements graph.Env.
func (e *attemptEnv) Get(key graph.Key) (graph.Value, error) {
	e.ev.mu.Lock()
	defer e.ev.mu.Unlock()

	e.ev.stats.DepRequests++

	dep := e.ev.ensureNodeLocked(key)
	if dep.done() {
		if dep.err != nil {
			if _, ok := e.failedErrs[key]; !ok {
				e.failed = append(e.failed, key)
				e.failedErrs[key] = dep.err
			}
			return nil, dep.err
		}
		e.ev.stats.CacheHits++
		return dep.value, nil
	}

	// Unready. Schedule the dependency if nothing has yet, and record
	// it so a suspending attempt knows what to wait for.
	if dep.state == statePending {
		e.ev.enqueueLocked(dep)
	}
	if _, ok := e.missingSeen[key]; !ok {
		e.missingSeen[key] = struct{}{}
		e.missing = append(e.missing, key)
	}
	return nil, nil
}

// GetAll implements graph.Env.
func (e *attemptEnv) GetAll(keys []graph.Key) map[graph.Key]graph.Result {
	out := make(map[graph.Key]graph.Result, len(keys))
	for _, key := range keys {
		v, err := e.Get(key)
		out[key] = graph.Result{Value: v, Err: err}
	}
	return out
}

// AnyMissing implements graph.Env.
func (e *attemptEnv) AnyMissing() bool {
	e.ev.mu.Lock()
	defer e.ev.mu.Unlock()
	return len(e.missing) > 0
}

// firstFailed returns the lexicographically smallest failed dependency
// key and its error. Iteration order over fetch results is not
// deterministic, so sibling failures are tie-broken by key text.
func (e *attemptEnv) firstFailed() (graph.Key, error, bool) {
	if len(e.failed) == 0 {
		return graph.Key{}, nil, false
	}
	best := e.failed[0]
	for _, k := range e.failed[1:] {
		if k.String() < best.String() {
			best = k
		}
	}
	return best, e.failedErrs[best], true
}
