// Package postgresengine provides a PostgreSQL implementation of the three availability inputs
// and of the override persistence.
//
// One Store serves all of them:
//   - ListSessions reads the session catalog (class_sessions)
//   - SumActivePax aggregates active bookings per date and session (bookings)
//   - QueryOverrides range-scans the sparse override table (calendar_overrides)
//   - UpsertOverrides writes a batch of overrides keyed by (date, session_id)
//
// The store supports pgx, sql.DB, and sqlx connections. A batch upsert is one statement
// inside one transaction, so either all rows are written or none. With the VersionChecked
// write policy each row only updates if the persisted version still is the one the editor
// observed, otherwise the whole batch is rolled back with availability.ErrConcurrencyConflict.
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewStoreFromPGXPool(db)
//
//	// With a read replica, optimistic writes, and structured logging
//	store, _ := postgresengine.NewStoreFromPGXPool(
//		db,
//		postgresengine.WithReplica(replica),
//		postgresengine.WithWritePolicy(postgresengine.VersionChecked),
//		postgresengine.WithLogger(slog.Default()),
//	)
//
//	overrides, _ := store.QueryOverrides(ctx, dateRange)
//	err := store.UpsertOverrides(ctx, rows)
//
// The expected schema is:
//
//	CREATE TABLE class_sessions (
//	    id            TEXT PRIMARY KEY,
//	    base_capacity INTEGER NOT NULL CHECK (base_capacity >= 0),
//	    price         NUMERIC(12, 2) NOT NULL DEFAULT 0
//	);
//
//	CREATE TABLE bookings (
//	    id           UUID PRIMARY KEY,
//	    booking_date DATE NOT NULL,
//	    session_id   TEXT NOT NULL,
//	    pax_count    INTEGER NOT NULL,
//	    status       TEXT
//	);
//
//	CREATE TABLE calendar_overrides (
//	    date            DATE NOT NULL,
//	    session_id      TEXT NOT NULL,
//	    is_closed       BOOLEAN NOT NULL DEFAULT FALSE,
//	    closure_reason  TEXT,
//	    custom_capacity INTEGER CHECK (custom_capacity >= 0),
//	    version         BIGINT NOT NULL DEFAULT 1,
//	    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (date, session_id),
//	    CHECK (NOT (is_closed AND custom_capacity IS NOT NULL))
//	);
package postgresengine
