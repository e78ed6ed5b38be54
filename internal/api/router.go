package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rensmac/sqlgate/internal/api/handler"
	customMiddleware "github.com/rensmac/sqlgate/internal/api/middleware"
	"github.com/rensmac/sqlgate/internal/config"
	"github.com/rensmac/sqlgate/internal/repository/postgres"
	"github.com/rensmac/sqlgate/internal/repository/redis"
	"github.com/rensmac/sqlgate/internal/security"
	"github.com/rensmac/sqlgate/internal/service"
	"github.com/rensmac/sqlgate/internal/sqlguard"
	"github.com/rensmac/sqlgate/internal/warehouse"
)

// NewRouter creates and configures the HTTP router. The warehouse router is
// built by the caller, which owns its lifecycle; auditSink receives the
// security event trail.
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client, whRouter *warehouse.Router, auditSink io.Writer) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Security components
	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	keyRing := security.NewAPIKeyRing(cfg.Auth.APIKeys)

	// The gate keeps its own compiled-in limits; nothing configurable here.
	guard := sqlguard.New(nil)

	// Repositories and caches
	auditRepo := postgres.NewAuditRepository(db.Pool)
	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)
	resultCache := redis.NewResultCache(redisClient, cfg.Security.CacheTTL)

	// Services
	recorder := service.NewAuditRecorder(auditRepo, auditSink)
	authService := service.NewAuthService(keyRing, jwtManager)
	queryService := service.NewQueryService(
		guard,
		whRouter,
		cfg.Warehouse.Active,
		resultCache,
		recorder,
		cfg.Security.DefaultMaxRows,
		cfg.Security.QueryTimeout,
		cfg.Security.SlowQueryThreshold,
	)
	catalogService := service.NewCatalogService(guard, whRouter, cfg.Warehouse.Active, cfg.Security.QueryTimeout)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	queryHandler := handler.NewQueryHandler(queryService)
	tableHandler := handler.NewTableHandler(catalogService)
	sampleHandler := handler.NewSampleHandler(catalogService)
	auditHandler := handler.NewAuditHandler(recorder)

	// Auth middleware
	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db, redisClient, whRouter, cfg.Warehouse.Active))

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", authHandler.Token)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			// Query endpoints
			r.Post("/query", queryHandler.Execute)
			r.Post("/query/validate", queryHandler.Validate)

			// Catalog routes
			r.Route("/tables", func(r chi.Router) {
				r.Get("/", tableHandler.List)
				r.Get("/{table}/preview", tableHandler.Preview)
			})
			r.Get("/samples", sampleHandler.List)

			// Operator routes
			r.Get("/audit/recent", auditHandler.Recent)
			r.Get("/audit/stats", auditHandler.Stats)
			r.Post("/cache/flush", handler.FlushCache(resultCache))
		})
	})

	return r
}
