// Package oteladapters provides OpenTelemetry implementations of the availability
// observability interfaces (Logger, ContextualLogger, MetricsCollector,
// ContextualMetricsCollector, TracingCollector).
//
// Usage:
//
//	meter := otel.Meter("session-availability")
//	tracer := otel.Tracer("session-availability")
//
//	store, _ := postgresengine.NewStoreFromPGXPool(pool,
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("session-availability")),
//	)
package oteladapters
