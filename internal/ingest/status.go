package ingest

import (
	"context"

	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// VocabularyStatus aggregates what the stores currently hold for one
// vocabulary, cache-first with store fallback.
func (s *Service) VocabularyStatus(ctx context.Context, prefix terminology.Prefix) (terminology.VocabularyStatus, error) {
	if cached, err := s.cache.GetVocabularyStatus(ctx, prefix); err != nil {
		s.log.Warn("vocabulary status cache read", "prefix", prefix, "error", err)
	} else if cached != nil {
		return *cached, nil
	}

	loader, err := s.vocabs.Get(prefix)
	if err != nil {
		return terminology.VocabularyStatus{}, err
	}
	d := loader.Descriptor()

	status := terminology.VocabularyStatus{
		Prefix:            d.Prefix,
		Name:              d.Name,
		Annotations:       d.Annotations,
		SimilarityMethods: d.SimilarityMethods,
	}
	downloaded, err := s.vocabs.FilesExist(prefix)
	if err != nil {
		return terminology.VocabularyStatus{}, err
	}
	status.FileDownloaded = downloaded
	if when, ok := s.vocabs.DownloadTime(prefix); ok {
		status.FileDownloadTime = &when
	}

	status.ConceptCount, err = s.graph.CountTerms(ctx, prefix)
	if err != nil {
		return terminology.VocabularyStatus{}, err
	}
	status.RelationshipCount, err = s.graph.CountInternalRelationships(ctx, prefix)
	if err != nil {
		return terminology.VocabularyStatus{}, err
	}
	status.Loaded = status.ConceptCount > 0

	if err := s.cache.SetVocabularyStatus(ctx, status); err != nil {
		s.log.Warn("vocabulary status cache write", "prefix", prefix, "error", err)
	}
	return status, nil
}

// VocabularyStatuses reports every registered vocabulary in registry
// order.
func (s *Service) VocabularyStatuses(ctx context.Context) ([]terminology.VocabularyStatus, error) {
	prefixes := s.vocabs.Prefixes()
	out := make([]terminology.VocabularyStatus, 0, len(prefixes))
	for _, prefix := range prefixes {
		status, err := s.VocabularyStatus(ctx, prefix)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

// Prefixes lists the registered vocabularies.
func (s *Service) Prefixes() []terminology.Prefix {
	return s.vocabs.Prefixes()
}

// AnnotationStatus reports the state of one annotation pair, cache-first.
func (s *Service) AnnotationStatus(ctx context.Context, p1, p2 terminology.Prefix) (terminology.AnnotationStatus, error) {
	loader, err := s.annots.Get(p1, p2)
	if err != nil {
		return terminology.AnnotationStatus{}, err
	}
	d := loader.Descriptor()

	if cached, err := s.cache.GetAnnotationStatus(ctx, d.Prefix1, d.Prefix2); err != nil {
		s.log.Warn("annotation status cache read", "source", d.Prefix1, "target", d.Prefix2, "error", err)
	} else if cached != nil {
		return *cached, nil
	}

	count, err := s.graph.CountAnnotations(ctx, d.Prefix1, d.Prefix2)
	if err != nil {
		return terminology.AnnotationStatus{}, err
	}
	status := terminology.AnnotationStatus{
		PrefixSource:      d.Prefix1,
		PrefixTarget:      d.Prefix2,
		Name:              d.Name,
		Loaded:            count > 0,
		RelationshipCount: count,
	}
	if err := s.cache.SetAnnotationStatus(ctx, status); err != nil {
		s.log.Warn("annotation status cache write", "source", d.Prefix1, "target", d.Prefix2, "error", err)
	}
	return status, nil
}

// AnnotationStatuses reports every registered annotation pair.
func (s *Service) AnnotationStatuses(ctx context.Context) ([]terminology.AnnotationStatus, error) {
	pairs := s.annots.Pairs()
	out := make([]terminology.AnnotationStatus, 0, len(pairs))
	for _, pair := range pairs {
		status, err := s.AnnotationStatus(ctx, pair.First, pair.Second)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

// SimilarityStatus reports the stored similarity edge counts for a
// vocabulary, cache-first.
func (s *Service) SimilarityStatus(ctx context.Context, prefix terminology.Prefix) (terminology.SimilarityStatus, error) {
	if cached, err := s.cache.GetSimilarityStatus(ctx, prefix); err != nil {
		s.log.Warn("similarity status cache read", "prefix", prefix, "error", err)
	} else if cached != nil {
		return *cached, nil
	}

	status, err := s.sim.Status(ctx, prefix)
	if err != nil {
		return terminology.SimilarityStatus{}, err
	}
	if err := s.cache.SetSimilarityStatus(ctx, status); err != nil {
		s.log.Warn("similarity status cache write", "prefix", prefix, "error", err)
	}
	return status, nil
}
