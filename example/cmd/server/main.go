package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/session-availability-go/availability"
	"github.com/AntonStoeckl/session-availability-go/availability/engine"
	"github.com/AntonStoeckl/session-availability-go/availability/oteladapters"
	"github.com/AntonStoeckl/session-availability-go/availability/postgresengine"
	"github.com/AntonStoeckl/session-availability-go/example/httpapi"
	"github.com/AntonStoeckl/session-availability-go/example/shared/config"
)

const (
	serviceName    = "session-availability"
	serviceVersion = "1.0.0"

	evictionInterval = time.Minute
	shutdownTimeout  = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(logger); err != nil {
		logger.Error("server stopped with error", "error", err.Error())
		os.Exit(1)
	}
}

//nolint:funlen
func run(logger *slog.Logger) error {
	config.LoadEnv(logger)

	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	instr := instrumentation{logger: logger}

	if cfg.ObservabilityEnabled {
		providers, obsErr := config.NewObservabilityProviders(ctx, serviceName, serviceVersion)
		if obsErr != nil {
			return obsErr
		}

		defer func() {
			if shutdownErr := providers.Shutdown(); shutdownErr != nil {
				logger.Warn("shutting down observability providers failed", "error", shutdownErr.Error())
			}
		}()

		instr = otelInstrumentation(serviceName)

		logger.Info("observability enabled",
			"traces_endpoint", config.TracesEndpoint(),
			"metrics_endpoint", config.MetricsEndpoint(),
		)
	}

	store, closeStore, err := openStore(ctx, cfg, logger, instr.storeOptions()...)
	if err != nil {
		return err
	}
	defer closeStore()

	lockPolicy, err := availability.NewLockPolicy(availability.WithLocation(cfg.Location))
	if err != nil {
		return err
	}

	engineOptions := append(instr.engineOptions(),
		engine.WithLockPolicy(lockPolicy),
		engine.WithLockEnforcement(cfg.LockEnforcement),
	)

	eng, err := engine.NewEngine(store, store, store, engineOptions...)
	if err != nil {
		return err
	}

	registry := httpapi.NewEditRegistry(cfg.EditTTL, nil)
	go registry.RunEviction(ctx, evictionInterval, func(count int) {
		logger.Info("expired edit sessions evicted", "count", count)
	})

	app := httpapi.NewApp(httpapi.NewHandler(eng, registry, logger))

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"address", cfg.ListenAddress,
			"adapter", cfg.AdapterType,
			"write_policy", cfg.WritePolicy.String(),
			"lock_enforcement", cfg.LockEnforcement.String(),
			"timezone", cfg.Location.String(),
		)
		listenErr <- app.Listen(cfg.ListenAddress)
	}()

	select {
	case err = <-listenErr:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return app.ShutdownWithContext(shutdownCtx)
}

// instrumentation is what the store and the engine report to.
// Without OpenTelemetry only the contextual logger is set.
type instrumentation struct {
	logger  availability.ContextualLogger
	metrics availability.MetricsCollector
	tracing availability.TracingCollector
}

// otelInstrumentation uses the globally registered OpenTelemetry providers.
// Logs go through the slog bridge, so they carry the trace and span ids of the request.
func otelInstrumentation(name string) instrumentation {
	return instrumentation{
		logger:  oteladapters.NewSlogBridgeLogger(name),
		metrics: oteladapters.NewMetricsCollector(otel.Meter(name)),
		tracing: oteladapters.NewTracingCollector(otel.Tracer(name)),
	}
}

func (i instrumentation) storeOptions() []postgresengine.Option {
	options := []postgresengine.Option{postgresengine.WithContextualLogger(i.logger)}

	if i.metrics != nil {
		options = append(options, postgresengine.WithMetrics(i.metrics))
	}

	if i.tracing != nil {
		options = append(options, postgresengine.WithTracing(i.tracing))
	}

	return options
}

func (i instrumentation) engineOptions() []engine.Option {
	options := []engine.Option{engine.WithContextualLogger(i.logger)}

	if i.metrics != nil {
		options = append(options, engine.WithMetrics(i.metrics))
	}

	if i.tracing != nil {
		options = append(options, engine.WithTracing(i.tracing))
	}

	return options
}
