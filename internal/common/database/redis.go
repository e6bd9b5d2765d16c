// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"mergington-activities/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// Signup and unregister are single EVALSHA round trips and listing is one
// pipeline, so a small pool covers a school's traffic. The read timeout
// bounds how long a request can wait on a slow script.
const (
	redisDialTimeout  = 5 * time.Second
	redisIOTimeout    = 3 * time.Second
	redisPoolSize     = 10
	redisMinIdleConns = 2
)

// RedisClient owns the connection behind the redis storage driver.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis builds the roster client. go-redis connects lazily; openStore
// pings with backoff before seeding the catalog.
func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisIOTimeout,
		WriteTimeout: redisIOTimeout,
		PoolSize:     redisPoolSize,
		MinIdleConns: redisMinIdleConns,
	})
	return &RedisClient{Client: rdb}
}

// Ping backs /ready when the redis driver is selected.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
