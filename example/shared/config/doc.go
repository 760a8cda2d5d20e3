// Package config provides configuration helpers for the example availability server.
//
// It loads the environment (optionally from a .env file), builds the PostgreSQL
// connections for the three supported drivers (pgx.Pool, sql.DB, sqlx.DB), and sets up
// the OpenTelemetry providers that export traces and metrics over OTLP/gRPC.
package config
