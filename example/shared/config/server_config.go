package config

import (
	"errors"
	"time"

	"github.com/AntonStoeckl/session-availability-go/availability"
	"github.com/AntonStoeckl/session-availability-go/availability/postgresengine"
)

// Database adapter types, selected with ADAPTER_TYPE.
const (
	AdapterPGX   = "pgx.pool"
	AdapterSQLDB = "sql.db"
	AdapterSQLX  = "sqlx.db"
)

const (
	defaultListenAddress = ":8080"
	defaultEditTTL       = 30 * time.Minute
	defaultTimezone      = "UTC"
)

var ErrUnknownAdapterType = errors.New("unknown database adapter type")

// ServerConfig holds the configuration of the availability server.
type ServerConfig struct {
	ListenAddress        string
	AdapterType          string
	PrimaryDSN           string
	ReplicaDSN           string
	WritePolicy          postgresengine.WritePolicy
	LockEnforcement      availability.LockEnforcement
	Location             *time.Location
	EditTTL              time.Duration
	ObservabilityEnabled bool
}

// LoadServerConfig reads the server configuration from the environment.
//
//	LISTEN_ADDRESS          default ":8080"
//	ADAPTER_TYPE            pgx.pool (default), sql.db, sqlx.db
//	DATABASE_URL            primary DSN
//	DATABASE_REPLICA_URL    optional replica DSN, pgx.pool only
//	WRITE_POLICY            version_checked (default), last_write_wins
//	LOCK_ENFORCEMENT        advisory (default), blocking
//	TIMEZONE                IANA name of the studio's zone, default UTC
//	EDIT_TTL                idle lifetime of an open edit, default 30m
//	OBSERVABILITY_ENABLED   export traces and metrics over OTLP
func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		ListenAddress:        GetEnv("LISTEN_ADDRESS", defaultListenAddress),
		AdapterType:          GetEnv("ADAPTER_TYPE", AdapterPGX),
		PrimaryDSN:           PostgresDSN(),
		ReplicaDSN:           PostgresReplicaDSN(),
		EditTTL:              GetEnvDuration("EDIT_TTL", defaultEditTTL),
		ObservabilityEnabled: GetEnvBool("OBSERVABILITY_ENABLED", false),
	}

	switch cfg.AdapterType {
	case AdapterPGX, AdapterSQLDB, AdapterSQLX:
	default:
		return ServerConfig{}, errors.Join(ErrUnknownAdapterType, errors.New(cfg.AdapterType))
	}

	writePolicy, err := postgresengine.ParseWritePolicy(GetEnv("WRITE_POLICY", postgresengine.VersionChecked.String()))
	if err != nil {
		return ServerConfig{}, err
	}
	cfg.WritePolicy = writePolicy

	enforcement, err := availability.ParseLockEnforcement(GetEnv("LOCK_ENFORCEMENT", availability.LockAdvisory.String()))
	if err != nil {
		return ServerConfig{}, err
	}
	cfg.LockEnforcement = enforcement

	location, err := time.LoadLocation(GetEnv("TIMEZONE", defaultTimezone))
	if err != nil {
		return ServerConfig{}, err
	}
	cfg.Location = location

	return cfg, nil
}
