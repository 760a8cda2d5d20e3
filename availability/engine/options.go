package engine

import (
	"time"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

// Option defines a functional option for configuring Engine.
type Option func(*Engine) error

// WithLockPolicy sets the cutoffs and the location in which locks are evaluated.
func WithLockPolicy(policy availability.LockPolicy) Option {
	return func(e *Engine) error {
		e.lockPolicy = policy
		return nil
	}
}

// WithLockEnforcement decides whether saving a locked cell is logged (LockAdvisory, the default)
// or rejected (LockBlocking).
func WithLockEnforcement(enforcement availability.LockEnforcement) Option {
	return func(e *Engine) error {
		if enforcement != availability.LockAdvisory && enforcement != availability.LockBlocking {
			return availability.ErrInvalidLockEnforcement
		}

		e.lockEnforcement = enforcement

		return nil
	}
}

// WithClock sets the clock used for lock evaluation. Meant for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now != nil {
			e.now = now
		}

		return nil
	}
}

// WithLogger sets the logger for the Engine.
//
// Info level: resolved grids and saved edits
// Warn level: saves of locked cells under advisory enforcement
// Error level: failed fetches and saves.
func WithLogger(logger availability.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine.
func WithContextualLogger(logger availability.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
func WithMetrics(collector availability.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
func WithTracing(collector availability.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}
