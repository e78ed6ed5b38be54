package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rensmac/sqlgate/internal/api"
	"github.com/rensmac/sqlgate/internal/config"
	"github.com/rensmac/sqlgate/internal/repository/postgres"
	"github.com/rensmac/sqlgate/internal/repository/redis"
	"github.com/rensmac/sqlgate/internal/warehouse"
	whclickhouse "github.com/rensmac/sqlgate/internal/warehouse/clickhouse"
	whmysql "github.com/rensmac/sqlgate/internal/warehouse/mysql"
	whpostgres "github.com/rensmac/sqlgate/internal/warehouse/postgres"
	whsqlite "github.com/rensmac/sqlgate/internal/warehouse/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("warehouse", cfg.Warehouse.Active).
		Msg("Starting SQL gate server")

	// Run audit store migrations if requested
	if cfg.Audit.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.AuditDB.DSN(), cfg.Audit.MigrationsSource); err != nil {
			log.Fatal().Err(err).Msg("Failed to run audit store migrations")
		}
	}

	// Initialize audit database
	db, err := postgres.NewDB(context.Background(), cfg.AuditDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to audit database")
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Security events additionally go to a rotated operator file trail
	auditSink, err := rotatelogs.New(
		filepath.Join(cfg.Audit.LogDir, "gate-audit.%Y%m%d.log"),
		rotatelogs.WithMaxAge(time.Duration(cfg.Audit.RetentionDays)*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audit log sink")
	}

	// Initialize warehouse router with supported engines
	whRouter := warehouse.NewRouter()
	whRouter.RegisterKind("postgres", whpostgres.NewAdapter)
	whRouter.RegisterKind("mysql", whmysql.NewAdapter)
	whRouter.RegisterKind("sqlite", whsqlite.NewAdapter)
	whRouter.RegisterKind("clickhouse", whclickhouse.NewAdapter)

	for name, target := range cfg.Warehouse.Targets {
		err := whRouter.RegisterTarget(name, warehouse.Target{
			Kind: target.Kind,
			Config: warehouse.ConnectionConfig{
				Host:           target.Host,
				Port:           target.Port,
				Database:       target.Database,
				Schema:         target.Schema,
				Username:       target.Username,
				Password:       target.Password,
				SSLMode:        target.SSLMode,
				TimeoutSeconds: target.TimeoutSeconds,
			},
		})
		if err != nil {
			log.Fatal().Err(err).Str("warehouse", name).Msg("Failed to register warehouse")
		}
	}
	defer whRouter.CloseAll()

	if _, ok := whRouter.Lookup(cfg.Warehouse.Active); !ok {
		log.Fatal().Str("warehouse", cfg.Warehouse.Active).Msg("Active warehouse is not configured")
	}

	// Initialize router
	router := api.NewRouter(cfg, db, redisClient, whRouter, auditSink)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
