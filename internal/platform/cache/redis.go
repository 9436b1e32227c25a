package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr, password string, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("redis connection established", zap.String("addr", addr))
	return rdb, nil
}

// Redis is a Cache backed by a Redis server.
type Redis struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, logger: logger}
}

func genKey(namespace string) string { return "cache:gen:" + namespace }

func (c *Redis) entryKey(ctx context.Context, namespace, key string) (string, error) {
	gen, err := c.rdb.Get(ctx, genKey(namespace)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("cache:%s:%d:%s", namespace, gen, key), nil
}

func (c *Redis) Get(ctx context.Context, namespace, key string, dst any) bool {
	k, err := c.entryKey(ctx, namespace, key)
	if err != nil {
		c.logger.Warn("cache generation lookup failed", zap.String("namespace", namespace), zap.Error(err))
		return false
	}
	b, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", k), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func (c *Redis) Set(ctx context.Context, namespace, key string, value any) {
	k, err := c.entryKey(ctx, namespace, key)
	if err != nil {
		c.logger.Warn("cache generation lookup failed", zap.String("namespace", namespace), zap.Error(err))
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, k, b, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", k), zap.Error(err))
	}
}

func (c *Redis) Invalidate(ctx context.Context, namespace string) {
	if err := c.rdb.Incr(ctx, genKey(namespace)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", zap.String("namespace", namespace), zap.Error(err))
	}
}
