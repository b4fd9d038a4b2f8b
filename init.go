package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tournevent/xpsrate/internal/config"
	"github.com/tournevent/xpsrate/internal/telemetry"
	"github.com/tournevent/xpsrate/pkg/shipper"
	"github.com/tournevent/xpsrate/pkg/shipper/xps"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg      *config.Config
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	registry *shipper.Registry
	closers  []func(context.Context) error
}

func bootstrap(ctx context.Context) (*app, error) {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, metrics: telemetry.NewMetrics(nil)}

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		tracer = otel.Tracer(cfg.ServiceName)
	} else {
		a.closers = append(a.closers, tracerShutdown)
	}

	store, storeClose := initCatalogStore(ctx, cfg, logger)
	a.closers = append(a.closers, storeClose)

	registry, err := initShipperRegistry(ctx, cfg, logger, tracer, a.metrics, store)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.registry = registry
	return a, nil
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Shutdown step failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.ServiceName)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return otel.Tracer(cfg.ServiceName), func(context.Context) error { return nil }, nil
	}

	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

// initCatalogStore shares catalogs through Redis when REDIS_URL is set and
// reachable, and keeps them in process otherwise.
func initCatalogStore(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (xps.CatalogStore, func(context.Context) error) {
	noop := func(context.Context) error { return nil }
	if cfg.RedisURL == "" {
		return xps.NewMemoryStore(cfg.CatalogTTL), noop
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("Invalid REDIS_URL, using in-process catalog cache", zap.Error(err))
		return xps.NewMemoryStore(cfg.CatalogTTL), noop
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, using in-process catalog cache", zap.Error(err))
		_ = client.Close()
		return xps.NewMemoryStore(cfg.CatalogTTL), noop
	}

	logger.Info("Using Redis catalog cache", zap.String("addr", opts.Addr))
	return xps.NewRedisStore(client, cfg.CatalogTTL), func(context.Context) error { return client.Close() }
}

func initShipperRegistry(ctx context.Context, cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer, metrics *telemetry.Metrics, store xps.CatalogStore) (*shipper.Registry, error) {
	methods, err := cfg.Methods()
	if err != nil {
		return nil, fmt.Errorf("loading shipping methods: %w", err)
	}

	ctx, span := tracer.Start(ctx, "xpsrate.WarmCatalogs", trace.WithAttributes(cfg.Attributes()...))
	defer span.End()

	registry := shipper.NewRegistry()
	for _, m := range methods {
		client := xps.New(m.XPSConfig(), logger, tracer,
			xps.WithCatalogStore(store),
			xps.WithRecorder(metrics),
		)

		// A method whose catalog cannot be resolved stays registered and
		// offers no services until the next refresh.
		if err := client.Warm(ctx); err != nil {
			logger.Warn("Shipping method has no services",
				zap.String("method_id", m.ID),
				zap.Error(err),
			)
		}
		registry.Register(client)
	}
	return registry, nil
}
