package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gravelbuild/gravel/pkg/graph"
)

// word is a minimal comparable key argument for tests.
type word string

func (w word) Tag() string { return string(w) }

const (
	kindLeaf   graph.FunctionKind = "leaf"
	kindSum    graph.FunctionKind = "sum"
	kindBad    graph.FunctionKind = "bad"
	kindCycleA graph.FunctionKind = "cycle_a"
	kindCycleB graph.FunctionKind = "cycle_b"
)

func leafKey(name string) graph.Key { return graph.NewKey(kindLeaf, word(name)) }

func TestEvaluateLeaf(t *testing.T) {
	ev := New(Options{Parallelism: 4})
	ev.Register(kindLeaf, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		return "value-" + key.Tag(), nil
	}))

	res, err := ev.Evaluate(context.Background(), []graph.Key{leafKey("a")})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	v, nodeErr, ok := res.Get(leafKey("a"))
	if !ok || nodeErr != nil {
		t.Fatalf("expected a published value, got ok=%v err=%v", ok, nodeErr)
	}
	if v != "value-a" {
		t.Errorf("unexpected value: %v", v)
	}
	if res.Stats.Computed != 1 {
		t.Errorf("expected 1 computed node, got %d", res.Stats.Computed)
	}
}

func TestRestartResumesWithCachedDeps(t *testing.T) {
	var leafCalls, sumCalls int32

	ev := New(Options{Parallelism: 4})
	ev.Register(kindLeaf, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		atomic.AddInt32(&leafCalls, 1)
		return 21, nil
	}))
	ev.Register(kindSum, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		atomic.AddInt32(&sumCalls, 1)
		a, err := env.Get(leafKey("a"))
		if err != nil {
			return nil, err
		}
		b, err := env.Get(leafKey("b"))
		if err != nil {
			return nil, err
		}
		if env.AnyMissing() {
			return nil, nil
		}
		return a.(int) + b.(int), nil
	}))

	root := graph.NewKey(kindSum, word("root"))
	res, err := ev.Evaluate(context.Background(), []graph.Key{root})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v := res.Value(root); v != 42 {
		t.Fatalf("expected 42, got %v (err: %v)", v, res.Err(root))
	}
	if got := atomic.LoadInt32(&leafCalls); got != 2 {
		t.Errorf("each leaf should be computed once, got %d calls", got)
	}
	// First attempt suspends on the leaves, second completes from cache.
	if got := atomic.LoadInt32(&sumCalls); got != 2 {
		t.Errorf("expected 2 sum attempts, got %d", got)
	}
	if res.Stats.Restarts == 0 {
		t.Error("expected at least one recorded restart")
	}
}

func TestSharedDependencyComputedOnce(t *testing.T) {
	var leafCalls int32

	ev := New(Options{Parallelism: 8})
	ev.Register(kindLeaf, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		atomic.AddInt32(&leafCalls, 1)
		time.Sleep(10 * time.Millisecond)
		return &struct{ n int }{n: 7}, nil
	}))
	ev.Register(kindSum, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		v, err := env.Get(leafKey("shared"))
		if err != nil {
			return nil, err
		}
		if env.AnyMissing() {
			return nil, nil
		}
		return v, nil
	}))

	roots := []graph.Key{
		graph.NewKey(kindSum, word("p1")),
		graph.NewKey(kindSum, word("p2")),
		graph.NewKey(kindSum, word("p3")),
	}
	res, err := ev.Evaluate(context.Background(), roots)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := atomic.LoadInt32(&leafCalls); got != 1 {
		t.Fatalf("shared leaf should be computed exactly once, got %d", got)
	}
	first := res.Value(roots[0])
	for _, root := range roots[1:] {
		if res.Value(root) != first {
			t.Error("all requesters should observe the identical published value")
		}
	}
}

func TestIdempotentReEvaluation(t *testing.T) {
	var calls int32

	ev := New(Options{Parallelism: 2})
	ev.Register(kindLeaf, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		atomic.AddInt32(&calls, 1)
		return key.Tag(), nil
	}))

	roots := []graph.Key{leafKey("a"), leafKey("b")}
	first, err := ev.Evaluate(context.Background(), roots)
	if err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}
	second, err := ev.Evaluate(context.Background(), roots)
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("re-evaluation must not re-invoke functions, got %d calls", got)
	}
	for _, root := range roots {
		if first.Value(root) != second.Value(root) {
			t.Errorf("values differ across evaluations for %s", root)
		}
	}
	if second.Stats.CacheHits < 2 {
		t.Errorf("expected cache hits on re-evaluation, got %d", second.Stats.CacheHits)
	}
}

func TestDirectErrorPublished(t *testing.T) {
	ev := New(Options{Parallelism: 2})
	ev.Register(kindBad, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		return nil, graph.NewDirectError("no such target '"+key.Tag()+"'", nil)
	}))

	root := graph.NewKey(kindBad, word("x"))
	res, err := ev.Evaluate(context.Background(), []graph.Key{root})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	nodeErr := res.Err(root)
	if nodeErr == nil {
		t.Fatal("expected a terminal error")
	}
	if !graph.IsDirect(nodeErr) {
		t.Errorf("expected a direct error, got class %q", graph.ClassOf(nodeErr))
	}
}

func TestUnhandledFailureBubblesAsTransitive(t *testing.T) {
	ev := New(Options{Parallelism: 4})
	ev.Register(kindBad, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		return nil, graph.NewDirectError("broken "+key.Tag(), nil)
	}))
	// The parent batch-fetches two failing deps and declines to handle
	// either failure, returning the restart sentinel.
	ev.Register(kindSum, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		keys := []graph.Key{
			graph.NewKey(kindBad, word("zeta")),
			graph.NewKey(kindBad, word("alpha")),
		}
		env.GetAll(keys)
		return nil, nil
	}))

	root := graph.NewKey(kindSum, word("root"))
	res, err := ev.Evaluate(context.Background(), []graph.Key{root})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	nodeErr := res.Err(root)
	if nodeErr == nil {
		t.Fatal("expected a terminal error")
	}
	if !graph.IsTransitive(nodeErr) {
		t.Fatalf("expected a transitive error, got class %q", graph.ClassOf(nodeErr))
	}
	origin, ok := graph.OriginOf(nodeErr)
	if !ok {
		t.Fatal("expected an originating key on the bubbled error")
	}
	// Sibling failures tie-break lexicographically by key text.
	if want := graph.NewKey(kindBad, word("alpha")); origin != want {
		t.Errorf("expected origin %s, got %s", want, origin)
	}
}

func TestDependencyCycleStalls(t *testing.T) {
	ev := New(Options{Parallelism: 2})
	a := graph.NewKey(kindCycleA, word("a"))
	b := graph.NewKey(kindCycleB, word("b"))
	ev.Register(kindCycleA, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		if _, err := env.Get(b); err != nil {
			return nil, err
		}
		if env.AnyMissing() {
			return nil, nil
		}
		return "a", nil
	}))
	ev.Register(kindCycleB, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		if _, err := env.Get(a); err != nil {
			return nil, err
		}
		if env.AnyMissing() {
			return nil, nil
		}
		return "b", nil
	}))

	res, err := ev.Evaluate(context.Background(), []graph.Key{a})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	nodeErr := res.Err(a)
	if nodeErr == nil {
		t.Fatal("expected the cycle to fail the node")
	}
	if !graph.IsInternal(nodeErr) {
		t.Errorf("expected an internal stall error, got class %q", graph.ClassOf(nodeErr))
	}
}

func TestUnregisteredKindFails(t *testing.T) {
	ev := New(Options{Parallelism: 1})
	root := graph.NewKey("nonexistent", word("x"))
	res, err := ev.Evaluate(context.Background(), []graph.Key{root})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if nodeErr := res.Err(root); !graph.IsInternal(nodeErr) {
		t.Errorf("expected an internal error, got %v", nodeErr)
	}
}

func TestCancellationUnwindsWithoutPublishing(t *testing.T) {
	var calls int32
	release := make(chan struct{})

	ev := New(Options{Parallelism: 2})
	ev.Register(kindLeaf, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// First attempt blocks until cancelled.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
			}
		}
		return "ok", nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	root := leafKey("slow")
	if _, err := ev.Evaluate(ctx, []graph.Key{root}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)

	// A fresh call must be able to retry the key and publish a value.
	res, err := ev.Evaluate(context.Background(), []graph.Key{root})
	if err != nil {
		t.Fatalf("retry Evaluate: %v", err)
	}
	if v := res.Value(root); v != "ok" {
		t.Fatalf("expected the retried value, got %v (err: %v)", v, res.Err(root))
	}
}

func TestFunctionPanicBecomesInternalError(t *testing.T) {
	ev := New(Options{Parallelism: 1})
	ev.Register(kindBad, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		panic("boom")
	}))

	root := graph.NewKey(kindBad, word("p"))
	res, err := ev.Evaluate(context.Background(), []graph.Key{root})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if nodeErr := res.Err(root); !graph.IsInternal(nodeErr) {
		t.Errorf("expected an internal error from the panic, got %v", nodeErr)
	}
}

func TestDeepChainEvaluates(t *testing.T) {
	const depth = 50
	chainKey := func(i int) graph.Key {
		return graph.NewKey(kindSum, word(fmt.Sprintf("n%03d", i)))
	}

	ev := New(Options{Parallelism: 4})
	ev.Register(kindSum, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		var i int
		fmt.Sscanf(key.Tag(), "n%03d", &i)
		if i == 0 {
			return 1, nil
		}
		v, err := env.Get(chainKey(i - 1))
		if err != nil {
			return nil, err
		}
		if env.AnyMissing() {
			return nil, nil
		}
		return v.(int) + 1, nil
	}))

	root := chainKey(depth)
	res, err := ev.Evaluate(context.Background(), []graph.Key{root})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v := res.Value(root); v != depth+1 {
		t.Fatalf("expected %d, got %v (err: %v)", depth+1, v, res.Err(root))
	}
	if res.Stats.Computed != depth+1 {
		t.Errorf("expected %d computed nodes, got %d", depth+1, res.Stats.Computed)
	}
}

func TestEvaluateEmitsNodeSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(prev)

	ev := New(Options{Parallelism: 2})
	ev.Register(kindLeaf, graph.FunctionFunc(func(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
		return "value-" + key.Tag(), nil
	}))
	if _, err := ev.Evaluate(context.Background(), []graph.Key{leafKey("a"), leafKey("b")}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	var nodeSpans, evalSpans int
	for _, s := range recorder.Ended() {
		switch s.Name() {
		case "node.compute":
			nodeSpans++
		case "evaluation.run":
			evalSpans++
		}
	}
	if nodeSpans != 2 {
		t.Errorf("expected one span per compute attempt, got %d", nodeSpans)
	}
	if evalSpans != 1 {
		t.Errorf("expected one evaluation span, got %d", evalSpans)
	}
}
