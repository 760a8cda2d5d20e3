// Package adapters provide database adapter implementations for the PostgreSQL availability store.
//
// Three PostgreSQL libraries are supported: pgx.Pool, sql.DB, and sqlx.DB. All of them are
// hidden behind the DBAdapter interface, so the store builds its SQL once and runs it on
// whatever connection type the application already has.
package adapters
