package environment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis keeps one hash per key, with "<item>:<item_secondary>" fields. Symmetric
// facts live in a separate hash so they are never confused with directed ones.
type Redis struct {
	rdb    *goredis.Client
	prefix string
}

// RedisOptions configures the redis environment
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects to redis and verifies the connection
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "env"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, prefix: prefix}, nil
}

func (r *Redis) hash(key string, symmetric bool) string {
	if symmetric {
		return r.prefix + ":sym:" + key
	}
	return r.prefix + ":" + key
}

func (r *Redis) Write(ctx context.Context, key string, value float64, item, itemSecondary int64, symmetric bool) error {
	item, itemSecondary = pair(item, itemSecondary, symmetric)
	if err := r.rdb.HSet(ctx, r.hash(key, symmetric), field(item, itemSecondary), value).Err(); err != nil {
		return fmt.Errorf("failed to write %s(%d, %d): %w", key, item, itemSecondary, err)
	}
	return nil
}

func (r *Redis) Read(ctx context.Context, key string, item, itemSecondary int64) (float64, bool, error) {
	v, err := r.rdb.HGet(ctx, r.hash(key, false), field(item, itemSecondary)).Float64()
	if errors.Is(err, goredis.Nil) {
		a, b := pair(item, itemSecondary, true)
		v, err = r.rdb.HGet(ctx, r.hash(key, true), field(a, b)).Float64()
	}
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s(%d, %d): %w", key, item, itemSecondary, err)
	}
	return v, true, nil
}

func (r *Redis) Delete(ctx context.Context, key string, item, itemSecondary int64) error {
	a, b := pair(item, itemSecondary, true)
	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HDel(ctx, r.hash(key, false), field(item, itemSecondary))
		pipe.HDel(ctx, r.hash(key, true), field(a, b))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s(%d, %d): %w", key, item, itemSecondary, err)
	}
	return nil
}

func (r *Redis) Edges(ctx context.Context, key string) ([]Edge, error) {
	edges := []Edge{}
	for _, symmetric := range []bool{false, true} {
		all, err := r.rdb.HGetAll(ctx, r.hash(key, symmetric)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list %s edges: %w", key, err)
		}
		for f, raw := range all {
			item, secondary, err := parseField(f)
			if err != nil {
				return nil, err
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed value of %s(%s): %w", key, f, err)
			}
			edges = append(edges, Edge{Key: key, Item: item, ItemSecondary: secondary, Value: value})
		}
	}
	sortEdges(edges)
	return edges, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
