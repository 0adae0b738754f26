package environment

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashcards/internal/config"
)

// Open returns the environment backend selected in the configuration.
// db is only used by the sql backend.
func Open(ctx context.Context, cfg *config.Config, db *sqlx.DB) (Environment, error) {
	switch cfg.EnvironmentBackend {
	case config.BackendSQL:
		if db == nil {
			return nil, fmt.Errorf("sql environment requires a database connection")
		}
		return NewSQL(ctx, db)
	case config.BackendRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case config.BackendNeo4j:
		return NewNeo4j(ctx, Neo4jOptions{
			URI:      cfg.Neo4j.URI,
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
			Timeout:  cfg.Neo4j.Timeout,
		})
	case config.BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown environment backend %q", cfg.EnvironmentBackend)
	}
}
