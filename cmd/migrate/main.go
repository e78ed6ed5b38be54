package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rensmac/sqlgate/internal/config"
	"github.com/rensmac/sqlgate/internal/repository/postgres"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	fmt.Printf("Migrating audit store at %s:%d...\n", cfg.AuditDB.Host, cfg.AuditDB.Port)

	if err := postgres.RunMigrations(cfg.AuditDB.DSN(), cfg.Audit.MigrationsSource); err != nil {
		panic(fmt.Sprintf("Failed to run migrations: %v", err))
	}

	fmt.Println("Audit store migrations applied")
}
