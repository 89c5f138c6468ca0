// Package telemetry provides observability instrumentation for the
// gravel analysis engine.
//
// The package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), Prometheus metrics and an evaluation event
// bus behind one configuration surface.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "gravel"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Add telemetry to context so that components deep in the evaluation
// can retrieve it:
//
//	ctx = tel.WithContext(ctx)
//
// Loggers are plumbed the same way: Logger.WithContext stores a logger
// on the context, FromContext retrieves it (falling back to a default
// logger when absent). Component loggers carry a "component" field;
// evaluation-scoped helpers add evaluation_id, node and label fields.
//
// Metrics cover node computations, attempts, restarts, cache hits and
// errors by class; the registry can be exposed over HTTP with
// Metrics.Handler or StartMetricsServer.
package telemetry
