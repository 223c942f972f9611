package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"orbitus-api/internal/assistant"
	"orbitus-api/internal/config"
	"orbitus-api/internal/db"
	"orbitus-api/internal/logger"
	"orbitus-api/internal/messaging"
	"orbitus-api/internal/metrics"
	"orbitus-api/internal/ratelimit"
	"orbitus-api/internal/schema"
	"orbitus-api/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

type App struct {
	config    *config.Config
	server    *http.Server
	logger    *slog.Logger
	db        *bun.DB
	telemetry *telemetry.Telemetry
	publisher messaging.Publisher
	redis     *redis.Client
}

// New loads configuration, connects every dependency, migrates the schema and builds the router.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := logger.NewWithServiceContext(ServiceName, Version, cfg.Env)
	slog.SetDefault(slogLogger)
	slogLogger.Info("initializing application", "git_commit", GitCommit, "build_time", BuildTime)

	app := &App{config: cfg, logger: slogLogger}

	app.telemetry, err = telemetry.Init(ctx, cfg.Telemetry.OTLPEndpoint, ServiceName, Version, slogLogger)
	if err != nil {
		return nil, err
	}
	m := app.telemetry.Metrics
	meter := otel.Meter(ServiceName)
	if err := metrics.RegisterRuntime(meter); err != nil {
		slogLogger.Warn("failed to register runtime metrics", "error", err)
	}

	app.db, err = db.New(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := m.Database.RegisterDB(app.db.DB, meter); err != nil {
		slogLogger.Warn("failed to register database metrics", "error", err)
	}

	if err := schema.Migrate(ctx, app.db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if cfg.Seed.Enabled {
		if err := schema.Seed(ctx, app.db, m, slogLogger); err != nil {
			return nil, fmt.Errorf("failed to seed database: %w", err)
		}
	}

	publisher, err := messaging.New(cfg.Messaging, slogLogger)
	if err != nil {
		slogLogger.Warn("failed to initialize event publisher, events disabled", "error", err)
		publisher = messaging.Noop{}
	}
	app.publisher = messaging.Instrument(publisher, cfg.Messaging.Driver, m.Events)

	deps := Dependencies{
		Config:    cfg,
		DB:        app.db,
		Metrics:   m,
		Publisher: app.publisher,
		Logger:    slogLogger,
	}

	if cfg.Redis.Addr != "" {
		client, err := ratelimit.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slogLogger.Warn("redis unavailable, login throttling disabled", "error", err)
		} else {
			app.redis = client
			window := time.Duration(cfg.Redis.LoginWindowSeconds) * time.Second
			deps.Redis = client
			deps.Limiter = ratelimit.New(client, cfg.Redis.LoginAttempts, window)
		}
	}

	if provider := assistant.NewAnthropicProvider(cfg.Assistant); provider != nil {
		deps.Assistant = provider
	} else {
		slogLogger.Info("assistant API key not configured, assistant disabled")
	}

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      NewRouter(deps),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	slogLogger.Info("application initialized successfully")
	return app, nil
}

// Run blocks serving HTTP until Shutdown is called.
func (a *App) Run() error {
	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")
	err := a.server.Shutdown(ctx)

	if closeErr := a.publisher.Close(); closeErr != nil {
		a.logger.Warn("failed to close event publisher", "error", closeErr)
	}
	if a.redis != nil {
		if closeErr := a.redis.Close(); closeErr != nil {
			a.logger.Warn("failed to close redis client", "error", closeErr)
		}
	}
	if closeErr := a.db.Close(); closeErr != nil {
		a.logger.Warn("failed to close database", "error", closeErr)
	}
	if closeErr := a.telemetry.Shutdown(ctx, a.logger); closeErr != nil {
		a.logger.Warn("failed to shutdown telemetry", "error", closeErr)
	}

	return err
}
