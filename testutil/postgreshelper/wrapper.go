package postgreshelper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/session-availability-go/availability/postgresengine"
	"github.com/AntonStoeckl/session-availability-go/example/shared/config"
)

const connectTimeout = 3 * time.Second

// Wrapper abstracts over the different database adapters.
type Wrapper interface {
	Store() *postgresengine.Store
	Exec(ctx context.Context, query string, args ...any) error
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing.
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store *postgresengine.Store
}

func (w *PGXPoolWrapper) Store() *postgresengine.Store {
	return w.store
}

func (w *PGXPoolWrapper) Exec(ctx context.Context, query string, args ...any) error {
	_, err := w.pool.Exec(ctx, query, args...)
	return err
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing.
type SQLDBWrapper struct {
	db    *sql.DB
	store *postgresengine.Store
}

func (w *SQLDBWrapper) Store() *postgresengine.Store {
	return w.store
}

func (w *SQLDBWrapper) Exec(ctx context.Context, query string, args ...any) error {
	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing.
type SQLXWrapper struct {
	db    *sqlx.DB
	store *postgresengine.Store
}

func (w *SQLXWrapper) Store() *postgresengine.Store {
	return w.store
}

func (w *SQLXWrapper) Exec(ctx context.Context, query string, args ...any) error {
	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapper connects to the test database with the adapter named by ADAPTER_TYPE,
// applies the schema, and builds a Store with the given options.
// The test is skipped if the database cannot be reached.
func CreateWrapper(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var wrapper Wrapper

	switch adapterType := strings.ToLower(os.Getenv("ADAPTER_TYPE")); adapterType {
	case config.AdapterPGX, "":
		poolConfig, err := config.PostgresPGXPoolConfig(config.PostgresTestDSN())
		require.NoError(t, err, "error parsing the test DSN")

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		require.NoError(t, err, "error creating the DB pool")

		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			t.Skipf("test database not reachable: %v", pingErr)
		}

		store, err := postgresengine.NewStoreFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating the store")

		wrapper = &PGXPoolWrapper{pool: pool, store: store}

	case config.AdapterSQLDB:
		db, err := config.PostgresSQLDB(ctx, config.PostgresTestDSN())
		if err != nil {
			t.Skipf("test database not reachable: %v", err)
		}

		store, err := postgresengine.NewStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating the store")

		wrapper = &SQLDBWrapper{db: db, store: store}

	case config.AdapterSQLX:
		db, err := config.PostgresSQLX(ctx, config.PostgresTestDSN())
		if err != nil {
			t.Skipf("test database not reachable: %v", err)
		}

		store, err := postgresengine.NewStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating the store")

		wrapper = &SQLXWrapper{db: db, store: store}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterType))
	}

	ApplySchema(t, wrapper)

	return wrapper
}

// ApplySchema creates the tables if they do not exist yet.
func ApplySchema(t testing.TB, wrapper Wrapper) {
	t.Helper()

	for _, statement := range schema {
		require.NoError(t, wrapper.Exec(context.Background(), statement), "error applying the schema")
	}
}

// CleanUp empties all tables.
func CleanUp(t testing.TB, wrapper Wrapper) {
	t.Helper()

	err := wrapper.Exec(context.Background(), "TRUNCATE TABLE calendar_overrides, bookings, class_sessions")
	require.NoError(t, err, "error cleaning up the tables")
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS class_sessions (
		id            TEXT PRIMARY KEY,
		base_capacity INTEGER NOT NULL CHECK (base_capacity >= 0),
		price         NUMERIC(12, 2) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id           UUID PRIMARY KEY,
		booking_date DATE NOT NULL,
		session_id   TEXT NOT NULL,
		pax_count    INTEGER NOT NULL,
		status       TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS calendar_overrides (
		date            DATE NOT NULL,
		session_id      TEXT NOT NULL,
		is_closed       BOOLEAN NOT NULL DEFAULT FALSE,
		closure_reason  TEXT,
		custom_capacity INTEGER CHECK (custom_capacity >= 0),
		version         BIGINT NOT NULL DEFAULT 1,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (date, session_id),
		CHECK (NOT (is_closed AND custom_capacity IS NOT NULL))
	)`,
}
