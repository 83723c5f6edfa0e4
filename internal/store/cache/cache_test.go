package cache

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/bioterms-backend/internal/platform/redisdb"
	"github.com/yungbote/bioterms-backend/internal/store/testutil"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

func TestNoopCacheAlwaysMisses(t *testing.T) {
	c := NewNoop()
	ctx := context.Background()

	if err := c.SetVocabularyStatus(ctx, terminology.VocabularyStatus{Prefix: terminology.PrefixHPO}); err != nil {
		t.Fatalf("set: %v", err)
	}
	status, err := c.GetVocabularyStatus(ctx, terminology.PrefixHPO)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if status != nil {
		t.Errorf("noop cache must miss, got %+v", status)
	}
	if xml, _ := c.GetSiteMap(ctx); xml != "" {
		t.Errorf("noop site map must miss, got %q", xml)
	}
	if err := c.Purge(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := vocabularyStatusKey(terminology.PrefixHPO); got != "vocab_status:hpo" {
		t.Errorf("vocabulary key: %q", got)
	}
	if got := annotationStatusKey(terminology.PrefixORDO, terminology.PrefixHPO); got != "anno_status:ordo:hpo" {
		t.Errorf("annotation key: %q", got)
	}
	if got := similarityStatusKey(terminology.PrefixHPO); got != "sim_status:hpo" {
		t.Errorf("similarity key: %q", got)
	}
}

// redisCache connects to TEST_REDIS_ADDR or skips.
func redisCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis cache integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 9})
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	c, err := NewRedisCache(&redisdb.Client{Redis: client}, testutil.Logger(t))
	if err != nil {
		t.Fatalf("new redis cache: %v", err)
	}
	return c
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c := redisCache(t)
	ctx := context.Background()

	status := terminology.VocabularyStatus{
		Prefix:       terminology.PrefixHPO,
		Name:         "Human Phenotype Ontology",
		Loaded:       true,
		ConceptCount: 17000,
	}
	if err := c.SetVocabularyStatus(ctx, status); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.GetVocabularyStatus(ctx, terminology.PrefixHPO)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ConceptCount != 17000 || got.Name != status.Name {
		t.Errorf("round trip: %+v", got)
	}

	if err := c.InvalidateVocabularyStatus(ctx, terminology.PrefixHPO); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, err = c.GetVocabularyStatus(ctx, terminology.PrefixHPO)
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if got != nil {
		t.Errorf("expected miss after invalidate, got %+v", got)
	}
}

func TestRedisCacheEvictsInvalidPayload(t *testing.T) {
	c := redisCache(t)
	ctx := context.Background()

	key := vocabularyStatusKey(terminology.PrefixHPO)
	if err := c.db.Redis.Set(ctx, key, "not json", 0).Err(); err != nil {
		t.Fatalf("seed bad payload: %v", err)
	}
	got, err := c.GetVocabularyStatus(ctx, terminology.PrefixHPO)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected miss for invalid payload, got %+v", got)
	}
	// The bad payload is gone.
	if exists := c.db.Redis.Exists(ctx, key).Val(); exists != 0 {
		t.Errorf("invalid payload should be deleted")
	}
}

func TestRedisCacheSiteMapAndPurge(t *testing.T) {
	c := redisCache(t)
	ctx := context.Background()

	if err := c.SetSiteMap(ctx, "<urlset/>"); err != nil {
		t.Fatalf("set site map: %v", err)
	}
	xml, err := c.GetSiteMap(ctx)
	if err != nil {
		t.Fatalf("get site map: %v", err)
	}
	if xml != "<urlset/>" {
		t.Errorf("site map: %q", xml)
	}

	if err := c.Purge(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
	xml, _ = c.GetSiteMap(ctx)
	if xml != "" {
		t.Errorf("expected empty site map after purge, got %q", xml)
	}
}
