package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// TTLs for the cached payloads. Statuses go stale within the hour; the
// site map only changes when vocabularies come and go.
const (
	StatusTTL  = time.Hour
	SiteMapTTL = 24 * time.Hour
)

// Key layout.
const (
	siteMapKey = "assets:site_map"
)

func vocabularyStatusKey(prefix terminology.Prefix) string {
	return fmt.Sprintf("vocab_status:%s", prefix)
}

func annotationStatusKey(source, target terminology.Prefix) string {
	return fmt.Sprintf("anno_status:%s:%s", source, target)
}

func similarityStatusKey(prefix terminology.Prefix) string {
	return fmt.Sprintf("sim_status:%s", prefix)
}

// Cache is the status/assets cache in front of the stores. Get methods
// return (nil, nil) on a miss; an unreadable payload counts as a miss and
// is evicted.
type Cache interface {
	GetVocabularyStatus(ctx context.Context, prefix terminology.Prefix) (*terminology.VocabularyStatus, error)
	SetVocabularyStatus(ctx context.Context, status terminology.VocabularyStatus) error
	InvalidateVocabularyStatus(ctx context.Context, prefix terminology.Prefix) error

	GetAnnotationStatus(ctx context.Context, source, target terminology.Prefix) (*terminology.AnnotationStatus, error)
	SetAnnotationStatus(ctx context.Context, status terminology.AnnotationStatus) error
	InvalidateAnnotationStatus(ctx context.Context, source, target terminology.Prefix) error

	GetSimilarityStatus(ctx context.Context, prefix terminology.Prefix) (*terminology.SimilarityStatus, error)
	SetSimilarityStatus(ctx context.Context, status terminology.SimilarityStatus) error
	InvalidateSimilarityStatus(ctx context.Context, prefix terminology.Prefix) error

	GetSiteMap(ctx context.Context) (string, error)
	SetSiteMap(ctx context.Context, xml string) error

	// Purge clears everything the cache holds.
	Purge(ctx context.Context) error
}

// Noop is the Cache used when no cache backend is configured; every read
// is a miss and writes vanish.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (Noop) GetVocabularyStatus(context.Context, terminology.Prefix) (*terminology.VocabularyStatus, error) {
	return nil, nil
}
func (Noop) SetVocabularyStatus(context.Context, terminology.VocabularyStatus) error { return nil }
func (Noop) InvalidateVocabularyStatus(context.Context, terminology.Prefix) error    { return nil }

func (Noop) GetAnnotationStatus(context.Context, terminology.Prefix, terminology.Prefix) (*terminology.AnnotationStatus, error) {
	return nil, nil
}
func (Noop) SetAnnotationStatus(context.Context, terminology.AnnotationStatus) error { return nil }
func (Noop) InvalidateAnnotationStatus(context.Context, terminology.Prefix, terminology.Prefix) error {
	return nil
}

func (Noop) GetSimilarityStatus(context.Context, terminology.Prefix) (*terminology.SimilarityStatus, error) {
	return nil, nil
}
func (Noop) SetSimilarityStatus(context.Context, terminology.SimilarityStatus) error { return nil }
func (Noop) InvalidateSimilarityStatus(context.Context, terminology.Prefix) error    { return nil }

func (Noop) GetSiteMap(context.Context) (string, error) { return "", nil }
func (Noop) SetSiteMap(context.Context, string) error   { return nil }

func (Noop) Purge(context.Context) error { return nil }
