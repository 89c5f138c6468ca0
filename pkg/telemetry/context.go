package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides a unified telemetry interface combining logging, tracing, metrics, and events.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Initialize logger
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	// Initialize tracer
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	// Initialize metrics
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	// Initialize event publisher
	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// NopTelemetry returns a telemetry instance that records nothing. It is
// the default for embedded use of the engine.
func NopTelemetry() *Telemetry {
	cfg := DefaultConfig()
	return &Telemetry{
		Logger:  NopLogger(),
		Tracer:  &Tracer{tracer: otel.Tracer("gravel"), config: cfg.Tracing},
		Metrics: &Metrics{config: cfg.Metrics},
		Events:  &EventPublisher{config: cfg.Events},
		Config:  cfg,
	}
}

// WithContext adds the telemetry instance to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	ctx = t.Logger.WithContext(ctx)
	return ctx
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	// Shutdown in reverse order of initialization
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}

	if err := t.Tracer.Shutdown(ctx); err != nil {
		return err
	}

	// Metrics server is not explicitly shut down here as it may need to continue
	// serving metrics until the very end of the application lifecycle

	return nil
}

// Flush forces all pending telemetry data to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}

// StartMetricsServer starts the metrics HTTP server if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer()
}

// Context Helpers for common instrumentation patterns

// InstrumentedContext creates a context with telemetry, logger fields, and a trace span.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer
}

// StartOperation begins an instrumented operation with logging, tracing, and timing.
func StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &InstrumentedContext{
			Ctx:    ctx,
			Logger: FromContext(ctx),
			Timer:  NewTimer(),
		}
	}

	// Start trace span
	spanCtx, span := tel.Tracer.StartSpan(ctx, operation, attrs...)

	// Create logger with operation field
	logger := tel.Logger.WithField("operation", operation)

	// Add trace context to logger if available
	if span.SpanContext().IsValid() {
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
		})
	}

	return &InstrumentedContext{
		Ctx:    spanCtx,
		Span:   span,
		Logger: logger,
		Timer:  NewTimer(),
	}
}

// End finishes the instrumented operation, recording success or failure.
func (ic *InstrumentedContext) End(err error) {
	if ic.Span != nil {
		if err != nil {
			RecordError(ic.Span, err)
		} else {
			RecordSuccess(ic.Span)
		}
		ic.Span.End()
	}
}

// WithEvaluationContext creates a context enriched with evaluation-scoped telemetry.
func WithEvaluationContext(ctx context.Context, evaluationID string, rootCount int) context.Context {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return ctx
	}

	// Start evaluation span
	spanCtx, span := tel.Tracer.StartEvaluationSpan(ctx, evaluationID, rootCount)

	// Create evaluation-scoped logger
	logger := tel.Logger.WithEvaluationID(evaluationID)
	spanCtx = logger.WithContext(spanCtx)

	// Record evaluation started metric
	tel.Metrics.RecordEvaluationStarted("engine")

	// Publish evaluation started event
	_ = tel.Events.PublishEvaluationStarted(evaluationID, rootCount)

	// Store the span and timer in context for later retrieval
	spanCtx = context.WithValue(spanCtx, evaluationSpanKey{}, span)
	spanCtx = context.WithValue(spanCtx, evaluationTimerKey{}, NewTimer())

	return spanCtx
}

// evaluationSpanKey is the context key for evaluation spans.
type evaluationSpanKey struct{}

// evaluationTimerKey is the context key for evaluation timers.
type evaluationTimerKey struct{}

// EndEvaluationContext completes the evaluation context, recording metrics and events.
func EndEvaluationContext(ctx context.Context, evaluationID, status string, err error) {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return
	}

	// Get the evaluation span from context
	if span, ok := ctx.Value(evaluationSpanKey{}).(trace.Span); ok {
		if err != nil {
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		span.End()
	}

	// Get the timer from context
	timer, ok := ctx.Value(evaluationTimerKey{}).(*Timer)
	if !ok {
		timer = NewTimer()
	}
	duration := timer.Duration()

	// Record metrics
	tel.Metrics.RecordEvaluationCompleted(status, duration)

	// Publish events
	if err != nil {
		_ = tel.Events.PublishEvaluationFailed(evaluationID, err.Error())
	} else {
		_ = tel.Events.PublishEvaluationCompleted(evaluationID, status, duration)
	}
}
