package postgresengine

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/session-availability-go/availability"
	"github.com/AntonStoeckl/session-availability-go/availability/postgresengine/internal/adapters"
)

// WritePolicy decides how UpsertOverrides treats rows that changed since they were read.
type WritePolicy int

const (
	// LastWriteWins updates in place regardless of the persisted version.
	LastWriteWins WritePolicy = iota

	// VersionChecked only updates rows whose persisted version equals the version carried
	// by the payload. One stale row fails the whole batch with availability.ErrConcurrencyConflict.
	VersionChecked
)

func (p WritePolicy) String() string {
	switch p {
	case LastWriteWins:
		return "last_write_wins"
	case VersionChecked:
		return "version_checked"
	default:
		return "unknown"
	}
}

// ParseWritePolicy parses the String form of a WritePolicy.
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch s {
	case LastWriteWins.String():
		return LastWriteWins, nil
	case VersionChecked.String():
		return VersionChecked, nil
	default:
		return 0, availability.ErrInvalidWritePolicy
	}
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithSessionsTableName sets the table the session catalog is read from.
func WithSessionsTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return availability.ErrEmptyTableNameSupplied
		}

		s.sessionsTableName = tableName

		return nil
	}
}

// WithBookingsTableName sets the table the booking aggregate is computed from.
func WithBookingsTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return availability.ErrEmptyTableNameSupplied
		}

		s.bookingsTableName = tableName

		return nil
	}
}

// WithOverridesTableName sets the table overrides are read from and written to.
func WithOverridesTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return availability.ErrEmptyTableNameSupplied
		}

		s.overridesTableName = tableName

		return nil
	}
}

// WithWritePolicy sets the WritePolicy of UpsertOverrides. The default is LastWriteWins.
func WithWritePolicy(policy WritePolicy) Option {
	return func(s *Store) error {
		if policy != LastWriteWins && policy != VersionChecked {
			return availability.ErrInvalidWritePolicy
		}

		s.writePolicy = policy

		return nil
	}
}

// WithReplica adds a read replica to a store that was created from a pgx pool.
// Reads only go to the replica for contexts created with availability.WithEventualConsistency.
func WithReplica(replica *pgxpool.Pool) Option {
	return func(s *Store) error {
		if replica == nil {
			return availability.ErrNilDatabaseConnection
		}

		if s.primaryPool == nil {
			return nil // replicas are only supported for pgx pools
		}

		s.db = adapters.NewPGXAdapterWithReplica(s.primaryPool, replica)

		return nil
	}
}

// WithClock sets the clock used for updated_at. Meant for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now != nil {
			s.now = now
		}

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: row counts, durations, concurrency conflicts (production-safe)
// Warn level: skipped rows and cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger availability.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// It receives the same messages as the Logger, with the context for trace correlation.
func WithContextualLogger(logger availability.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives read/write durations, row counts, database errors, and concurrency conflicts.
func WithMetrics(collector availability.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
// Every read and write runs in its own span.
func WithTracing(collector availability.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}
