package environment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnvironment runs the behaviour every backend must share
func testEnvironment(t *testing.T, env Environment) {
	ctx := context.Background()

	t.Run("write and read", func(t *testing.T) {
		require.NoError(t, env.Write(ctx, KeyChild, 1, 10, 20, false))
		v, ok, err := env.Read(ctx, KeyChild, 10, 20)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1.0, v)

		_, ok, err = env.Read(ctx, KeyChild, 20, 10)
		require.NoError(t, err)
		assert.False(t, ok, "directed facts must not be readable reversed")
	})

	t.Run("overwrite keeps a single fact", func(t *testing.T) {
		require.NoError(t, env.Write(ctx, "weight", 1, 1, 2, false))
		require.NoError(t, env.Write(ctx, "weight", 3, 1, 2, false))
		edges, err := env.Edges(ctx, "weight")
		require.NoError(t, err)
		assert.Equal(t, []Edge{{Key: "weight", Item: 1, ItemSecondary: 2, Value: 3}}, edges)
	})

	t.Run("symmetric facts", func(t *testing.T) {
		require.NoError(t, env.Write(ctx, "similar", 0.5, 7, 3, true))
		for _, p := range [][2]int64{{3, 7}, {7, 3}} {
			v, ok, err := env.Read(ctx, "similar", p[0], p[1])
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 0.5, v)
		}
		require.NoError(t, env.Delete(ctx, "similar", 7, 3))
		_, ok, err := env.Read(ctx, "similar", 3, 7)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, env.Write(ctx, KeyParent, 1, 20, 10, false))
		require.NoError(t, env.Delete(ctx, KeyParent, 20, 10))
		_, ok, err := env.Read(ctx, KeyParent, 20, 10)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, env.Delete(ctx, KeyParent, 99, 98), "deleting a missing fact")
	})

	t.Run("edges are ordered and scoped by key", func(t *testing.T) {
		require.NoError(t, env.Write(ctx, "order", 1, 5, 6, false))
		require.NoError(t, env.Write(ctx, "order", 1, 2, 9, false))
		require.NoError(t, env.Write(ctx, "order", 1, 2, 3, false))
		require.NoError(t, env.Write(ctx, "other", 1, 1, 1, false))

		edges, err := env.Edges(ctx, "order")
		require.NoError(t, err)
		assert.Equal(t, []Edge{
			{Key: "order", Item: 2, ItemSecondary: 3, Value: 1},
			{Key: "order", Item: 2, ItemSecondary: 9, Value: 1},
			{Key: "order", Item: 5, ItemSecondary: 6, Value: 1},
		}, edges)

		edges, err = env.Edges(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, edges)
	})
}

func TestMemory(t *testing.T) {
	testEnvironment(t, NewMemory())
}

func TestSQL(t *testing.T) {
	db, err := sqlx.Connect("sqlite3", filepath.Join(t.TempDir(), "env.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env, err := NewSQL(context.Background(), db)
	require.NoError(t, err)
	testEnvironment(t, env)

	// creating the table twice is fine
	_, err = NewSQL(context.Background(), db)
	assert.NoError(t, err)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := "env-test-" + filepath.Base(t.TempDir())
	env, err := NewRedis(ctx, RedisOptions{Addr: addr, Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() {
		keys, _ := env.rdb.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			env.rdb.Del(ctx, keys...)
		}
		env.Close()
	})
	testEnvironment(t, env)
}

// TestNeo4j wipes every :Item node, NEO4J_URI must point at a scratch database
func TestNeo4j(t *testing.T) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}
	ctx := context.Background()
	env, err := NewNeo4j(ctx, Neo4jOptions{
		URI:      uri,
		User:     os.Getenv("NEO4J_USER"),
		Password: os.Getenv("NEO4J_PASSWORD"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = env.write(ctx, `MATCH (i:Item) DETACH DELETE i`, nil)
		env.Close()
	})
	testEnvironment(t, env)
}

func TestFieldRoundTrip(t *testing.T) {
	item, secondary, err := parseField(field(12, 345))
	require.NoError(t, err)
	assert.Equal(t, int64(12), item)
	assert.Equal(t, int64(345), secondary)

	for _, bad := range []string{"", "12", "a:1", "1:b"} {
		_, _, err := parseField(bad)
		assert.Error(t, err, bad)
	}
}
