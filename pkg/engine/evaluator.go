package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gravelbuild/gravel/pkg/graph"
	"github.com/gravelbuild/gravel/pkg/telemetry"
)

// DefaultParallelism is the worker pool size used when none is given.
const DefaultParallelism = 10

// Options configures an Evaluator.
type Options struct {
	// Parallelism bounds the number of concurrently running compute
	// attempts. Defaults to DefaultParallelism.
	Parallelism int

	// Telemetry carries the logger, metrics, tracer and event bus.
	// Defaults to a no-op instance.
	Telemetry *telemetry.Telemetry
}

// Evaluator drives node functions to fixpoint with memoization. The
// memo table is retained across Evaluate calls; a key computed once is
// never recomputed.
type Evaluator struct {
	parallelism int
	tel         *telemetry.Telemetry
	log         *telemetry.Logger

	functions map[graph.FunctionKind]graph.Function

	// runMu serializes Evaluate calls. Node functions run in parallel
	// inside a call; calls themselves run one at a time.
	runMu sync.Mutex

	// mu guards the node table, the queue and the counters below.
	mu   sync.Mutex
	cond *sync.Cond

	nodes map[graph.Key]*node
	queue []*node

	// outstanding counts queued plus running nodes. The round is over
	// when the queue is empty and outstanding is zero.
	outstanding int
	cancelled   bool

	stats Stats
}

// New creates an evaluator with the given options.
func New(opts Options) *Evaluator {
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NopTelemetry()
	}

	ev := &Evaluator{
		parallelism: opts.Parallelism,
		tel:         opts.Telemetry,
		log:         opts.Telemetry.Logger.NewComponentLogger("engine"),
		functions:   make(map[graph.FunctionKind]graph.Function),
		nodes:       make(map[graph.Key]*node),
	}
	ev.cond = sync.NewCond(&ev.mu)
	return ev
}

// Register installs the function that computes keys of the given kind.
// Registering a kind twice replaces the previous function.
func (ev *Evaluator) Register(kind graph.FunctionKind, fn graph.Function) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.functions[kind] = fn
}

// Evaluate computes or reuses cached values for the root keys and
// everything they transitively require. It returns the outcomes of all
// keys touched during the call. The returned error is non-nil only for
// evaluation-level failures such as cancellation; per-key failures are
// reported through the result.
func (ev *Evaluator) Evaluate(ctx context.Context, roots []graph.Key) (*EvaluationResult, error) {
	ev.runMu.Lock()
	defer ev.runMu.Unlock()

	evaluationID := uuid.New().String()
	ctx = ev.tel.WithContext(ctx)
	ctx = telemetry.WithEvaluationContext(ctx, evaluationID, len(roots))
	log := ev.log.WithEvaluationID(evaluationID)

	log.Debugf("evaluation started with %d roots", len(roots))

	ev.mu.Lock()
	ev.cancelled = false
	ev.stats = Stats{}
	seen := make(map[graph.Key]struct{}, len(roots))
	rootKeys := make([]graph.Key, 0, len(roots))
	for _, key := range roots {
		n := ev.ensureNodeLocked(key)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			rootKeys = append(rootKeys, key)
		}
		if n.done() {
			ev.stats.CacheHits++
			continue
		}
		if n.state == statePending {
			ev.enqueueLocked(n)
		}
	}
	ev.mu.Unlock()

	// Watch for cancellation so idle workers wake up and exit.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			ev.mu.Lock()
			ev.cancelled = true
			ev.cond.Broadcast()
			ev.mu.Unlock()
		case <-watchDone:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < ev.parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev.worker(ctx, evaluationID)
		}()
	}
	wg.Wait()
	close(watchDone)

	if err := ctx.Err(); err != nil {
		ev.resetIncompleteNodes()
		log.Warnf("evaluation cancelled: %v", err)
		telemetry.EndEvaluationContext(ctx, evaluationID, "cancelled", err)
		return nil, err
	}

	ev.failStalledNodes(log)

	result := ev.collectResult(rootKeys)
	status := "ok"
	if result.HasErrors() {
		status = "error"
	}
	log.Debugf("evaluation finished: %d computed, %d restarts, %d cache hits",
		result.Stats.Computed, result.Stats.Restarts, result.Stats.CacheHits)
	telemetry.EndEvaluationContext(ctx, evaluationID, status, nil)
	return result, nil
}

// worker pops nodes off the queue and runs compute attempts until the
// round finishes or the evaluation is cancelled.
func (ev *Evaluator) worker(ctx context.Context, evaluationID string) {
	for {
		ev.mu.Lock()
		for len(ev.queue) == 0 && ev.outstanding > 0 && !ev.cancelled {
			ev.cond.Wait()
		}
		if ev.cancelled || len(ev.queue) == 0 {
			ev.mu.Unlock()
			return
		}
		n := ev.queue[0]
		ev.queue = ev.queue[1:]
		n.state = stateRunning
		ev.mu.Unlock()

		ev.runAttempt(ctx, evaluationID, n)
	}
}

// runAttempt executes one compute attempt for a node and publishes the
// outcome or registers the node as waiting.
func (ev *Evaluator) runAttempt(ctx context.Context, evaluationID string, n *node) {
	fn, ok := ev.functions[n.key.Kind]
	if !ok {
		ev.finish(evaluationID, n, nil, graph.NewInternalError(
			fmt.Sprintf("no function registered for kind %q", n.key.Kind), nil))
		return
	}

	env := newAttemptEnv(ev, n)
	spanCtx, span := ev.tel.Tracer.StartNodeSpan(ctx, n.key.String(), string(n.key.Kind))
	start := time.Now()
	value, err := ev.compute(spanCtx, fn, n.key, env)
	ev.tel.Metrics.RecordAttempt(string(n.key.Kind), time.Since(start))
	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.RecordSuccess(span)
	}
	span.End()

	if ctx.Err() != nil {
		// Cancelled mid-attempt. Discard everything from this attempt;
		// the node reverts to pending so a later call can retry it.
		ev.mu.Lock()
		n.state = statePending
		ev.outstanding--
		ev.cond.Broadcast()
		ev.mu.Unlock()
		return
	}

	if err != nil {
		ev.finish(evaluationID, n, nil, err)
		return
	}
	if value != nil {
		ev.finish(evaluationID, n, value, nil)
		return
	}

	// Restart sentinel. If dependencies were merely unready this is a
	// genuine suspension. If none were unready but some had failed, the
	// function declined to handle the failure and it bubbles up as a
	// transitive error tagged with the offending key. Sentinel returns
	// with neither are a contract violation.
	if len(env.missing) > 0 {
		ev.suspend(evaluationID, n, env)
		return
	}
	if origin, depErr, ok := env.firstFailed(); ok {
		ev.finish(evaluationID, n, nil, graph.NewTransitiveError(origin, depErr))
		return
	}
	ev.finish(evaluationID, n, nil, graph.NewInternalError(
		fmt.Sprintf("node %s suspended without requesting any dependency", n.key), nil))
}

// compute invokes the node function, converting panics into internal
// errors so one misbehaving function cannot take down the pool.
func (ev *Evaluator) compute(ctx context.Context, fn graph.Function, key graph.Key, env graph.Env) (value graph.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = graph.NewInternalError(fmt.Sprintf("node function panic: %v", r), nil)
		}
	}()
	return fn.Compute(ctx, key, env)
}

// finish publishes a node's outcome and wakes its waiters.
func (ev *Evaluator) finish(evaluationID string, n *node, value graph.Value, err error) {
	ev.mu.Lock()
	n.value = value
	n.err = err
	n.state = stateDone
	ev.outstanding--
	if err != nil {
		ev.stats.Failed++
	} else {
		ev.stats.Computed++
	}
	ev.notifyWaitersLocked(n)
	ev.cond.Broadcast()
	ev.mu.Unlock()

	kind := string(n.key.Kind)
	if err != nil {
		class := string(graph.ClassOf(err))
		ev.tel.Metrics.RecordNodeComputed(kind, "error")
		ev.tel.Metrics.RecordError(class)
		_ = ev.tel.Events.PublishNodeFailed(evaluationID, n.key.String(), class, err.Error())
		ev.log.WithEvaluationID(evaluationID).WithNodeKey(n.key.String()).
			Debugf("node failed: %v", err)
	} else {
		ev.tel.Metrics.RecordNodeComputed(kind, "ok")
	}
}

// suspend registers a node as waiting on the unready dependencies its
// attempt requested. If they all completed in the meantime, the node
// goes straight back on the queue.
func (ev *Evaluator) suspend(evaluationID string, n *node, env *attemptEnv) {
	ev.mu.Lock()
	n.state = stateWaiting
	n.awaiting = 0
	n.restarts++
	ev.stats.Restarts++
	ev.outstanding--
	for _, depKey := range env.missing {
		dep := ev.nodes[depKey]
		if dep == nil || dep.done() {
			continue
		}
		dep.waiters = append(dep.waiters, n)
		n.awaiting++
	}
	if n.awaiting == 0 {
		ev.enqueueLocked(n)
	}
	ev.cond.Broadcast()
	ev.mu.Unlock()

	ev.tel.Metrics.RecordRestart(string(n.key.Kind))
	_ = ev.tel.Events.PublishNodeRestarted(evaluationID, n.key.String(), len(env.missing))
}

// notifyWaitersLocked decrements the waiters' outstanding dependency
// counts and re-queues any that became ready. Callers hold ev.mu.
func (ev *Evaluator) notifyWaitersLocked(n *node) {
	for _, w := range n.waiters {
		w.awaiting--
		if w.awaiting == 0 && w.state == stateWaiting {
			ev.enqueueLocked(w)
		}
	}
	n.waiters = nil
}

// ensureNodeLocked returns the node for a key, creating it lazily.
// Callers hold ev.mu.
func (ev *Evaluator) ensureNodeLocked(key graph.Key) *node {
	n, ok := ev.nodes[key]
	if !ok {
		n = &node{key: key, state: statePending}
		ev.nodes[key] = n
	}
	return n
}

// enqueueLocked puts a node on the work queue. Callers hold ev.mu.
func (ev *Evaluator) enqueueLocked(n *node) {
	n.state = stateQueued
	ev.queue = append(ev.queue, n)
	ev.outstanding++
	ev.cond.Signal()
}

// resetIncompleteNodes reverts every node without a published outcome
// to pending after a cancelled call, so a later Evaluate can retry it
// cleanly. Published outcomes are kept.
func (ev *Evaluator) resetIncompleteNodes() {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	for _, n := range ev.nodes {
		if !n.done() {
			n.state = statePending
			n.awaiting = 0
			n.waiters = nil
		}
	}
	ev.queue = nil
	ev.outstanding = 0
}

// failStalledNodes fails any node still waiting after the round went
// idle. With well-behaved functions this only happens on dependency
// cycles, which the engine does not attempt to break.
func (ev *Evaluator) failStalledNodes(log *telemetry.Logger) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	for _, n := range ev.nodes {
		if n.state != stateWaiting {
			continue
		}
		log.WithNodeKey(n.key.String()).Error("node stalled; possible dependency cycle")
		n.err = graph.NewInternalError(
			fmt.Sprintf("evaluation stalled on %s; possible dependency cycle", n.key), nil)
		n.state = stateDone
		n.waiters = nil
		ev.stats.Failed++
	}
}

// collectResult snapshots the outcomes of every completed node in the
// table, keyed by the call's roots in request order.
func (ev *Evaluator) collectResult(roots []graph.Key) *EvaluationResult {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	results := make(map[graph.Key]graph.Result)
	for key, n := range ev.nodes {
		if n.done() {
			results[key] = graph.Result{Value: n.value, Err: n.err}
		}
	}
	return &EvaluationResult{
		roots:   roots,
		results: results,
		Stats:   ev.stats,
	}
}
