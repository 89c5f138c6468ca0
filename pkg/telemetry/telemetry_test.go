package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestConfigValidateRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestConfigValidateRejectsBadSamplingRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing.SamplingRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for sampling rate above 1")
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := NopLogger()
	l.Info("hello")
	l.WithEvaluationID("eval-1").WithNodeKey("k").Debug("details")
	l.NewComponentLogger("engine").Warn("warning")
}

func TestLoggerContextRoundTrip(t *testing.T) {
	l := NopLogger()
	ctx := l.WithContext(context.Background())
	if got := FromContext(ctx); got != l {
		t.Fatal("expected the logger stored on the context")
	}
}

func TestNodeSpanCarriesKeyAndKind(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := &Tracer{provider: provider, tracer: provider.Tracer("test")}

	_, span := tr.StartNodeSpan(context.Background(), "configured_target(//app:bin)", "configured_target")
	RecordSuccess(span)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "node.compute" {
		t.Errorf("unexpected span name: %s", spans[0].Name())
	}
	var haveKey, haveKind bool
	for _, attr := range spans[0].Attributes() {
		switch attr.Key {
		case "node.key":
			haveKey = attr.Value.AsString() == "configured_target(//app:bin)"
		case "node.kind":
			haveKind = attr.Value.AsString() == "configured_target"
		}
	}
	if !haveKey || !haveKind {
		t.Errorf("span must carry node.key and node.kind, got %v", spans[0].Attributes())
	}
}

func TestDisabledMetricsAreNilSafe(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordEvaluationStarted("test")
	m.RecordEvaluationCompleted("ok", time.Second)
	m.RecordNodeComputed("configured_target", "ok")
	m.RecordAttempt("configured_target", time.Millisecond)
	m.RecordRestart("configured_target")
	m.RecordCacheHit("package")
	m.RecordDepRequest("configured_target", 3)
	m.RecordError("direct")
	m.SetInFlightAttempts(2)
	m.SetQueuedNodes(5)
}

func TestEnabledMetricsRegister(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{
		Enabled:       true,
		ListenAddress: ":0",
		Path:          "/metrics",
		Namespace:     "gravel_test",
	})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordAttempt("configured_target", 5*time.Millisecond)
	m.RecordRestart("configured_target")
	if m.Handler() == nil {
		t.Fatal("expected a metrics handler")
	}
}

func TestEventPublisherSyncDelivery(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{
		Enabled:    true,
		BufferSize: 10,
	})
	if err != nil {
		t.Fatalf("NewEventPublisher: %v", err)
	}

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{}, 1)
	ep.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		done <- struct{}{}
	}, nil)

	if err := ep.PublishNodeFailed("eval-1", "configured_target(//a:b)", "direct", "no such target"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	e := got[0]
	if e.Type != EventTypeNodeFailed {
		t.Errorf("unexpected event type: %s", e.Type)
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Error("expected ID and timestamp to be populated")
	}
	if e.EvaluationID != "eval-1" {
		t.Errorf("unexpected evaluation id: %s", e.EvaluationID)
	}
}

func TestEventPublisherFilters(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: true, BufferSize: 10})
	if err != nil {
		t.Fatalf("NewEventPublisher: %v", err)
	}

	delivered := make(chan Event, 10)
	ep.Subscribe(func(e Event) { delivered <- e }, FilterByLevel(EventLevelError))

	_ = ep.PublishNodeComputed("eval-1", "package(//a)", time.Millisecond)
	_ = ep.PublishEvaluationFailed("eval-1", "boom")

	select {
	case e := <-delivered:
		if e.Type != EventTypeEvaluationFailed {
			t.Errorf("filter let through event type %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("error-level event was not delivered")
	}
}

func TestDisabledEventPublisherIsNoOp(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewEventPublisher: %v", err)
	}
	if err := ep.PublishEvaluationStarted("eval-1", 1); err != nil {
		t.Fatalf("disabled publisher should accept events, got: %v", err)
	}
	if err := ep.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
