package redisdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/bioterms-backend/internal/platform/envutil"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

type Client struct {
	Redis *redis.Client
	log   *logger.Logger
}

// NewFromEnv dials Redis using REDIS_ADDR / REDIS_PASSWORD / REDIS_DB. A
// missing REDIS_ADDR returns (nil, nil); the service then runs without a
// cache.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("redisdb: logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		DB:       envutil.Int("REDIS_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisdb: ping: %w", err)
	}

	return &Client{
		Redis: client,
		log:   log.With("client", "RedisDB"),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.Redis == nil {
		return nil
	}
	err := c.Redis.Close()
	c.Redis = nil
	return err
}
