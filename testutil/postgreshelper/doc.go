// Package postgreshelper provides test utilities for running the postgres store against a real
// database, over each supported adapter (pgx, sql.DB, sqlx.DB).
//
// The adapter is selected with the ADAPTER_TYPE environment variable ("pgx.pool" is the default),
// the database with TEST_DATABASE_URL. Tests are skipped when the database is unreachable.
//
// Usage:
//
//	wrapper := postgreshelper.CreateWrapper(t)
//	defer wrapper.Close()
//
//	postgreshelper.CleanUp(t, wrapper)
//	postgreshelper.GivenSessions(t, wrapper, 12, 14)
//
//	store := wrapper.Store()
package postgreshelper
