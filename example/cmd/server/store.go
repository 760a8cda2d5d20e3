package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/session-availability-go/availability/postgresengine"
	"github.com/AntonStoeckl/session-availability-go/example/shared/config"
)

// openStore connects with the configured adapter. The returned func closes all connections.
func openStore(
	ctx context.Context,
	cfg config.ServerConfig,
	logger *slog.Logger,
	options ...postgresengine.Option,
) (*postgresengine.Store, func(), error) {
	options = append([]postgresengine.Option{postgresengine.WithWritePolicy(cfg.WritePolicy)}, options...)

	switch cfg.AdapterType {
	case config.AdapterPGX:
		return openPGXStore(ctx, cfg, logger, options)

	case config.AdapterSQLDB:
		db, err := config.PostgresSQLDB(ctx, cfg.PrimaryDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := postgresengine.NewStoreFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	case config.AdapterSQLX:
		db, err := config.PostgresSQLX(ctx, cfg.PrimaryDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := postgresengine.NewStoreFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	default:
		return nil, nil, errors.Join(config.ErrUnknownAdapterType, errors.New(cfg.AdapterType))
	}
}

// openPGXStore opens the primary pool and, if a replica DSN is configured, a replica pool
// for eventually consistent grid reads.
func openPGXStore(
	ctx context.Context,
	cfg config.ServerConfig,
	logger *slog.Logger,
	options []postgresengine.Option,
) (*postgresengine.Store, func(), error) {
	primary, err := newPGXPool(ctx, cfg.PrimaryDSN)
	if err != nil {
		return nil, nil, err
	}

	closers := []func(){primary.Close}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.ReplicaDSN != "" {
		replica, replicaErr := newPGXPool(ctx, cfg.ReplicaDSN)
		if replicaErr != nil {
			closeAll()
			return nil, nil, replicaErr
		}

		closers = append(closers, replica.Close)
		options = append(options, postgresengine.WithReplica(replica))
		logger.Info("replica pool connected")
	}

	store, err := postgresengine.NewStoreFromPGXPool(primary, options...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	return store, closeAll, nil
}

func newPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := config.PostgresPGXPoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
