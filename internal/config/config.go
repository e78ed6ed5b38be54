package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	AuditDB   DatabaseConfig  `mapstructure:"audit_db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	// APIKeys maps principal names to bcrypt hashes of their keys.
	APIKeys map[string]string `mapstructure:"api_keys"`
}

// WarehouseConfig declares the query targets. Active names the one
// queries are routed to; the rest stay registered but idle.
type WarehouseConfig struct {
	Active  string                  `mapstructure:"active"`
	Targets map[string]TargetConfig `mapstructure:"targets"`
}

type TargetConfig struct {
	Kind           string `mapstructure:"kind"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	Schema         string `mapstructure:"schema"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SecurityConfig tunes the execution path. The gate's own limits are
// compiled in and deliberately absent here.
type SecurityConfig struct {
	DefaultMaxRows     int             `mapstructure:"default_max_rows"`
	QueryTimeout       time.Duration   `mapstructure:"query_timeout"`
	SlowQueryThreshold time.Duration   `mapstructure:"slow_query_threshold"`
	CacheTTL           time.Duration   `mapstructure:"cache_ttl"`
	RateLimit          RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuditConfig struct {
	LogDir           string `mapstructure:"log_dir"`
	RetentionDays    int    `mapstructure:"retention_days"`
	MigrateOnStart   bool   `mapstructure:"migrate_on_start"`
	MigrationsSource string `mapstructure:"migrations_source"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.middleware_timeout", "60s")

	// Audit store
	v.SetDefault("audit_db.host", "localhost")
	v.SetDefault("audit_db.port", 5432)
	v.SetDefault("audit_db.user", "sqlgate")
	v.SetDefault("audit_db.database", "sqlgate")
	v.SetDefault("audit_db.ssl_mode", "disable")
	v.SetDefault("audit_db.max_conns", 10)
	v.SetDefault("audit_db.min_conns", 2)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.access_token_ttl", "15m")

	// Warehouse
	v.SetDefault("warehouse.active", "primary")

	// Security
	v.SetDefault("security.default_max_rows", 1000)
	v.SetDefault("security.query_timeout", "30s")
	v.SetDefault("security.slow_query_threshold", "10s")
	v.SetDefault("security.cache_ttl", "60s")
	v.SetDefault("security.rate_limit.requests_per_minute", 60)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Audit trail
	v.SetDefault("audit.log_dir", "logs")
	v.SetDefault("audit.retention_days", 7)
	v.SetDefault("audit.migrate_on_start", false)
	v.SetDefault("audit.migrations_source", "file://migrations")
}

func bindEnvVars(v *viper.Viper) {
	// Audit store
	v.BindEnv("audit_db.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// Warehouse credentials for the conventional primary target
	v.BindEnv("warehouse.targets.primary.password", "WAREHOUSE_PASSWORD")
}
