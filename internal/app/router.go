package app

import (
	"context"
	"log/slog"

	"orbitus-api/internal/assistant"
	"orbitus-api/internal/auth"
	"orbitus-api/internal/blocker"
	"orbitus-api/internal/config"
	"orbitus-api/internal/curriculum"
	"orbitus-api/internal/dashboard"
	"orbitus-api/internal/goal"
	"orbitus-api/internal/health"
	"orbitus-api/internal/lesson"
	"orbitus-api/internal/messaging"
	"orbitus-api/internal/metrics"
	"orbitus-api/internal/middleware"
	"orbitus-api/internal/student"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// Dependencies are the connected clients the router is built from.
// Publisher, Limiter, Redis and Assistant are optional.
type Dependencies struct {
	Config    *config.Config
	DB        *bun.DB
	Metrics   *metrics.Metrics
	Publisher messaging.Publisher
	Limiter   auth.LoginLimiter
	Redis     *redis.Client
	Assistant assistant.Provider
	Logger    *slog.Logger
}

func NewRouter(deps Dependencies) chi.Router {
	cfg, logger, m := deps.Config, deps.Logger, deps.Metrics

	publisher := deps.Publisher
	if publisher == nil {
		publisher = messaging.Noop{}
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	healthHandler := health.NewHandler(m.Health, logger)
	healthHandler.AddCheck("postgres", func(ctx context.Context) error { return deps.DB.PingContext(ctx) })
	if deps.Redis != nil {
		healthHandler.AddCheck("redis", func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() })
	}
	healthHandler.RegisterRoutes(router)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL())
	authService := auth.NewService(auth.NewRepository(deps.DB, m), tokens, cfg.Auth.RefreshTTL(), deps.Limiter, logger, m)
	auth.NewHandler(authService, tokens, cfg.Auth.SecureCookies, logger).RegisterRoutes(router)

	studentHandler := student.NewHandler(student.NewService(student.NewRepository(deps.DB, m)), logger, m)
	lessonHandler := lesson.NewHandler(lesson.NewService(lesson.NewRepository(deps.DB, m), publisher, logger, m), logger)
	blockerHandler := blocker.NewHandler(blocker.NewService(blocker.NewRepository(deps.DB, m), m), logger)
	goalHandler := goal.NewHandler(goal.NewService(goal.NewRepository(deps.DB, m), m), logger)
	dashboardHandler := dashboard.NewHandler(dashboard.NewService(dashboard.NewRepository(deps.DB, m)), logger)
	curriculumHandler := curriculum.NewHandler(curriculum.NewRepository(deps.DB, m), logger)
	assistantHandler := assistant.NewHandler(assistant.NewService(deps.Assistant, logger), logger)

	write := auth.RequireRole(auth.RoleAdmin)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens, logger))
		r.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleViewer))

		curriculumHandler.RegisterRoutes(r)
		studentHandler.RegisterRoutes(r, write)
		lessonHandler.RegisterRoutes(r, write)
		blockerHandler.RegisterRoutes(r, write)
		goalHandler.RegisterRoutes(r, write)
		dashboardHandler.RegisterRoutes(r)
		assistantHandler.RegisterRoutes(r)
	})

	return router
}
