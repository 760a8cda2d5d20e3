// Package observability provides test doubles for the dependency-free observability interfaces:
// a slog.Handler spy, a MetricsCollector spy, and a TracingCollector spy.
//
// All spies are safe for concurrent use, the engine fetches its inputs in parallel.
package observability
