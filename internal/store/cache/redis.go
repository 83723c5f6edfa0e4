package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/platform/redisdb"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// RedisCache implements Cache on Redis with JSON payloads.
type RedisCache struct {
	db  *redisdb.Client
	log *logger.Logger
}

func NewRedisCache(db *redisdb.Client, log *logger.Logger) (*RedisCache, error) {
	if db == nil {
		return nil, fmt.Errorf("cache: redis client required")
	}
	if log == nil {
		return nil, fmt.Errorf("cache: logger required")
	}
	return &RedisCache{db: db, log: log.With("store", "RedisCache")}, nil
}

// getJSON loads and decodes one key. A missing key or an undecodable
// payload both read as a miss; the bad payload is deleted on the way out.
func getJSON(ctx context.Context, c *RedisCache, key string, out any) (bool, error) {
	raw, err := c.db.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn("evicting unreadable cache payload", "key", key, "error", err)
		_ = c.db.Redis.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func setJSON(ctx context.Context, c *RedisCache, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := c.db.Redis.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) delete(ctx context.Context, key string) error {
	if err := c.db.Redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) GetVocabularyStatus(ctx context.Context, prefix terminology.Prefix) (*terminology.VocabularyStatus, error) {
	var status terminology.VocabularyStatus
	hit, err := getJSON(ctx, c, vocabularyStatusKey(prefix), &status)
	if err != nil || !hit {
		return nil, err
	}
	return &status, nil
}

func (c *RedisCache) SetVocabularyStatus(ctx context.Context, status terminology.VocabularyStatus) error {
	return setJSON(ctx, c, vocabularyStatusKey(status.Prefix), status, StatusTTL)
}

func (c *RedisCache) InvalidateVocabularyStatus(ctx context.Context, prefix terminology.Prefix) error {
	return c.delete(ctx, vocabularyStatusKey(prefix))
}

func (c *RedisCache) GetAnnotationStatus(ctx context.Context, source, target terminology.Prefix) (*terminology.AnnotationStatus, error) {
	var status terminology.AnnotationStatus
	hit, err := getJSON(ctx, c, annotationStatusKey(source, target), &status)
	if err != nil || !hit {
		return nil, err
	}
	return &status, nil
}

func (c *RedisCache) SetAnnotationStatus(ctx context.Context, status terminology.AnnotationStatus) error {
	return setJSON(ctx, c, annotationStatusKey(status.PrefixSource, status.PrefixTarget), status, StatusTTL)
}

func (c *RedisCache) InvalidateAnnotationStatus(ctx context.Context, source, target terminology.Prefix) error {
	return c.delete(ctx, annotationStatusKey(source, target))
}

func (c *RedisCache) GetSimilarityStatus(ctx context.Context, prefix terminology.Prefix) (*terminology.SimilarityStatus, error) {
	var status terminology.SimilarityStatus
	hit, err := getJSON(ctx, c, similarityStatusKey(prefix), &status)
	if err != nil || !hit {
		return nil, err
	}
	return &status, nil
}

func (c *RedisCache) SetSimilarityStatus(ctx context.Context, status terminology.SimilarityStatus) error {
	return setJSON(ctx, c, similarityStatusKey(status.Prefix), status, StatusTTL)
}

func (c *RedisCache) InvalidateSimilarityStatus(ctx context.Context, prefix terminology.Prefix) error {
	return c.delete(ctx, similarityStatusKey(prefix))
}

func (c *RedisCache) GetSiteMap(ctx context.Context) (string, error) {
	raw, err := c.db.Redis.Get(ctx, siteMapKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache: get %s: %w", siteMapKey, err)
	}
	return raw, nil
}

func (c *RedisCache) SetSiteMap(ctx context.Context, xml string) error {
	if err := c.db.Redis.Set(ctx, siteMapKey, xml, SiteMapTTL).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", siteMapKey, err)
	}
	return nil
}

func (c *RedisCache) Purge(ctx context.Context) error {
	if err := c.db.Redis.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("cache: purge: %w", err)
	}
	return nil
}
