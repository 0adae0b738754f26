package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, "sqlite3", cfg.Database.Driver)
		assert.Equal(t, BackendSQL, cfg.EnvironmentBackend)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, time.Hour, cfg.ReconcileInterval)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "postgres")
		t.Setenv("DB_DSN", "postgres://localhost/flashcards")
		t.Setenv("ENVIRONMENT_BACKEND", "Redis")
		t.Setenv("REDIS_ADDR", "redis:6379")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("RECONCILE_INTERVAL", "15m")
		t.Setenv("SYNC_ITEM_RELATIONS", "false")
		t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://example.org")
		t.Setenv("LOG_LEVEL", "WARN")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "postgres://localhost/flashcards", cfg.Database.DSN)
		assert.Equal(t, BackendRedis, cfg.EnvironmentBackend)
		assert.Equal(t, "redis:6379", cfg.Redis.Addr)
		assert.Equal(t, 2, cfg.Redis.DB)
		assert.Equal(t, 15*time.Minute, cfg.ReconcileInterval)
		assert.False(t, cfg.SyncItemRelations)
		assert.Equal(t, []string{"http://localhost:3000", "https://example.org"}, cfg.AllowOrigins)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("invalid values", func(t *testing.T) {
		cases := map[string]string{
			"DB_DRIVER":           "mysql",
			"ENVIRONMENT_BACKEND": "etcd",
			"RECONCILE_INTERVAL":  "soon",
			"REDIS_DB":            "-1",
		}
		for key, value := range cases {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, value)
				_, err := FromEnv()
				assert.Error(t, err)
			})
		}
	})

	t.Run("neo4j requires uri", func(t *testing.T) {
		t.Setenv("ENVIRONMENT_BACKEND", "neo4j")
		t.Setenv("NEO4J_URI", "")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}
