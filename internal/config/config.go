package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment backends
const (
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendNeo4j  = "neo4j"
	BackendMemory = "memory"
)

// Database holds the relational store settings
type Database struct {
	// Driver is either "sqlite3" or "postgres"
	Driver string
	// DSN is a file path for sqlite3 or a connection string for postgres
	DSN string
}

// Redis holds the redis environment settings
type Redis struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Neo4j holds the neo4j environment settings
type Neo4j struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

// Config represents the configuration of the service
type Config struct {
	Database Database
	// Environment backend for the denormalized edge store
	EnvironmentBackend string
	Redis              Redis
	Neo4j              Neo4j
	// Address the JSON API listens on
	HTTPAddr string
	// Origins allowed by CORS, empty allows any
	AllowOrigins []string
	// Interval between edge store reconciliations, zero disables the job
	ReconcileInterval time.Duration
	// Rebuild item relations from the edge store after each reconciliation
	SyncItemRelations bool
	// Default language of translated objects
	DefaultLang string
	// LogMode is "dev" or "prod"
	LogMode string
	// LogLevel overrides the level implied by LogMode, e.g. "info"
	LogLevel string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: Database{
			Driver: "sqlite3",
			DSN:    "data/flashcards.db",
		},
		EnvironmentBackend: BackendSQL,
		Redis: Redis{
			Addr:   "localhost:6379",
			Prefix: "env",
		},
		Neo4j: Neo4j{
			User:    "neo4j",
			Timeout: 10 * time.Second,
		},
		HTTPAddr:          ":8080",
		ReconcileInterval: time.Hour,
		SyncItemRelations: true,
		DefaultLang:       "en",
		LogMode:           "dev",
	}
}

// Load reads .env (if present) and overrides the defaults with environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()

	if v := env("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := env("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	switch cfg.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	if v := env("ENVIRONMENT_BACKEND"); v != "" {
		cfg.EnvironmentBackend = strings.ToLower(v)
	}
	switch cfg.EnvironmentBackend {
	case BackendSQL, BackendRedis, BackendNeo4j, BackendMemory:
	default:
		return nil, fmt.Errorf("unsupported ENVIRONMENT_BACKEND %q", cfg.EnvironmentBackend)
	}

	if v := env("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	cfg.Redis.Password = env("REDIS_PASSWORD")
	if v := env("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("invalid REDIS_DB %q", v)
		}
		cfg.Redis.DB = db
	}
	if v := env("REDIS_PREFIX"); v != "" {
		cfg.Redis.Prefix = v
	}

	cfg.Neo4j.URI = env("NEO4J_URI")
	if v := env("NEO4J_USER"); v != "" {
		cfg.Neo4j.User = v
	}
	cfg.Neo4j.Password = env("NEO4J_PASSWORD")
	cfg.Neo4j.Database = env("NEO4J_DATABASE")
	if v := env("NEO4J_TIMEOUT_SECONDS"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid NEO4J_TIMEOUT_SECONDS %q", v)
		}
		cfg.Neo4j.Timeout = time.Duration(sec) * time.Second
	}
	if cfg.EnvironmentBackend == BackendNeo4j && cfg.Neo4j.URI == "" {
		return nil, fmt.Errorf("NEO4J_URI is required for the neo4j environment backend")
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := env("CORS_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
			}
		}
	}
	if v := env("RECONCILE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid RECONCILE_INTERVAL %q", v)
		}
		cfg.ReconcileInterval = d
	}
	if v := env("SYNC_ITEM_RELATIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SYNC_ITEM_RELATIONS %q", v)
		}
		cfg.SyncItemRelations = b
	}
	if v := env("DEFAULT_LANG"); v != "" {
		cfg.DefaultLang = v
	}
	if v := env("LOG_MODE"); v != "" {
		cfg.LogMode = v
	}
	cfg.LogLevel = strings.ToLower(env("LOG_LEVEL"))

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
