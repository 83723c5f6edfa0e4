package ingest

import (
	"context"

	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// DownloadAnnotation fetches the mapping files for an annotation pair.
func (s *Service) DownloadAnnotation(ctx context.Context, p1, p2 terminology.Prefix) error {
	loader, err := s.annots.Get(p1, p2)
	if err != nil {
		return err
	}
	return loader.Download(ctx)
}

// LoadAnnotation parses an annotation mapping and persists its edges. Both
// vocabularies must already be loaded. When the pair is already annotated,
// the load is skipped unless overwrite is set, in which case the existing
// edges are deleted first.
func (s *Service) LoadAnnotation(ctx context.Context, p1, p2 terminology.Prefix, overwrite bool) error {
	loader, err := s.annots.Get(p1, p2)
	if err != nil {
		return err
	}
	d := loader.Descriptor()
	if err := s.requireLoaded(ctx, d.Prefix1); err != nil {
		return err
	}
	if err := s.requireLoaded(ctx, d.Prefix2); err != nil {
		return err
	}

	count, err := s.graph.CountAnnotations(ctx, d.Prefix1, d.Prefix2)
	if err != nil {
		return err
	}
	if count > 0 {
		if !overwrite {
			s.log.Info("annotation already loaded",
				"source", d.Prefix1, "target", d.Prefix2, "edges", count)
			return nil
		}
		if err := s.graph.DeleteAnnotations(ctx, d.Prefix1, d.Prefix2); err != nil {
			return err
		}
	}

	annotations, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	if err := s.graph.SaveAnnotations(ctx, annotations); err != nil {
		return err
	}
	if err := s.cache.InvalidateAnnotationStatus(ctx, d.Prefix1, d.Prefix2); err != nil {
		s.log.Warn("invalidate annotation status", "source", d.Prefix1, "target", d.Prefix2, "error", err)
	}
	s.log.Info("annotation loaded",
		"source", d.Prefix1, "target", d.Prefix2, "edges", len(annotations))
	return nil
}

// DeleteAnnotation removes the stored annotation edges for a pair.
func (s *Service) DeleteAnnotation(ctx context.Context, p1, p2 terminology.Prefix) error {
	loader, err := s.annots.Get(p1, p2)
	if err != nil {
		return err
	}
	d := loader.Descriptor()
	if err := s.graph.DeleteAnnotations(ctx, d.Prefix1, d.Prefix2); err != nil {
		return err
	}
	if err := s.cache.InvalidateAnnotationStatus(ctx, d.Prefix1, d.Prefix2); err != nil {
		s.log.Warn("invalidate annotation status", "source", d.Prefix1, "target", d.Prefix2, "error", err)
	}
	s.log.Info("annotation deleted", "source", d.Prefix1, "target", d.Prefix2)
	return nil
}

// DeleteAnnotationFiles removes the downloaded mapping files for a pair.
func (s *Service) DeleteAnnotationFiles(p1, p2 terminology.Prefix) error {
	return s.annots.DeleteFiles(p1, p2)
}

// CalculateSimilarity runs the similarity engine for a vocabulary and
// refreshes its cached similarity status. Empty method/corpus mean every
// supported combination; threshold 0 falls back to the engine default.
func (s *Service) CalculateSimilarity(ctx context.Context, prefix terminology.Prefix, method terminology.SimilarityMethod, corpus terminology.Prefix, threshold float64) error {
	defer s.lock(prefix)()
	if err := s.sim.Calculate(ctx, prefix, method, corpus, threshold); err != nil {
		return err
	}
	if err := s.cache.InvalidateSimilarityStatus(ctx, prefix); err != nil {
		s.log.Warn("invalidate similarity status", "prefix", prefix, "error", err)
	}
	return nil
}
