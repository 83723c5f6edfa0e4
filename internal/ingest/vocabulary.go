package ingest

import (
	"context"
	"fmt"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/store/docstore"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

// DownloadVocabulary fetches a vocabulary's release files. With redownload
// the existing files are removed first; otherwise an already-complete
// download returns immediately.
func (s *Service) DownloadVocabulary(ctx context.Context, prefix terminology.Prefix, redownload bool) error {
	loader, err := s.vocabs.Get(prefix)
	if err != nil {
		return err
	}
	defer s.lock(prefix)()

	if redownload {
		if err := s.vocabs.DeleteFiles(prefix); err != nil {
			return err
		}
	}
	if err := loader.Download(ctx); err != nil {
		return err
	}
	if err := s.cache.InvalidateVocabularyStatus(ctx, prefix); err != nil {
		s.log.Warn("invalidate vocabulary status", "prefix", prefix, "error", err)
	}
	s.log.Info("vocabulary downloaded", "prefix", prefix)
	return nil
}

// LoadVocabulary parses the downloaded files and persists concepts to the
// document store and the internal graph (plus any release-carried
// annotations) to the graph store. With dropExisting the vocabulary is
// deleted from both stores first. After the load the two stores must
// agree on the concept count.
func (s *Service) LoadVocabulary(ctx context.Context, prefix terminology.Prefix, dropExisting bool) error {
	loader, err := s.vocabs.Get(prefix)
	if err != nil {
		return err
	}
	defer s.lock(prefix)()

	if dropExisting {
		if err := s.deleteVocabularyData(ctx, prefix); err != nil {
			return err
		}
	}
	if err := s.graph.CreateIndexes(ctx); err != nil {
		return err
	}
	if err := s.docs.CreateIndex(ctx, prefix, docstore.IndexSpec{Field: "nGrams"}, false); err != nil {
		return err
	}

	var saved int
	sink := func(ctx context.Context, payload vocab.Payload) error {
		n, err := s.docs.SaveTerms(ctx, prefix, payload.Concepts)
		if err != nil {
			return err
		}
		saved += n
		if err := s.graph.SaveVocabularyGraph(ctx, payload.Concepts, payload.Graph); err != nil {
			return err
		}
		if len(payload.Annotations) > 0 {
			if err := s.graph.SaveAnnotations(ctx, payload.Annotations); err != nil {
				return err
			}
		}
		return nil
	}
	if err := loader.Load(ctx, sink); err != nil {
		return err
	}

	if err := s.checkConsistency(ctx, prefix); err != nil {
		return err
	}
	if err := s.cache.InvalidateVocabularyStatus(ctx, prefix); err != nil {
		s.log.Warn("invalidate vocabulary status", "prefix", prefix, "error", err)
	}
	s.log.Info("vocabulary loaded", "prefix", prefix, "concepts", saved)
	return nil
}

// checkConsistency verifies the post-load invariant: every document has a
// graph node. The graph may hold more nodes than documents — edge
// endpoints such as replaced-by targets of withdrawn alternate ids exist
// only as nodes — but never fewer.
func (s *Service) checkConsistency(ctx context.Context, prefix terminology.Prefix) error {
	docCount, err := s.docs.CountTerms(ctx, prefix)
	if err != nil {
		return err
	}
	nodeCount, err := s.graph.CountTerms(ctx, prefix)
	if err != nil {
		return err
	}
	if nodeCount < docCount {
		return fmt.Errorf("ingest: store mismatch for %s: %d documents, %d graph nodes", prefix, docCount, nodeCount)
	}
	if nodeCount > docCount {
		s.log.Info("graph-only nodes after load",
			"prefix", prefix, "documents", docCount, "nodes", nodeCount)
	}
	return nil
}

// EmbedVocabulary streams the vocabulary's documents through the vector
// store and backfills the resulting point ids onto the documents.
func (s *Service) EmbedVocabulary(ctx context.Context, prefix terminology.Prefix) error {
	if s.vectors == nil {
		return apierr.Validation(fmt.Errorf("no vector store is configured"))
	}
	if _, err := s.vocabs.Get(prefix); err != nil {
		return err
	}
	defer s.lock(prefix)()

	if err := s.requireLoaded(ctx, prefix); err != nil {
		return err
	}

	var embedded int64
	batch := make([]terminology.Concept, 0, embedBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		mapping, err := s.vectors.InsertConcepts(ctx, prefix, batch)
		if err != nil {
			return err
		}
		updated, err := s.docs.UpdateVectorMapping(ctx, prefix, mapping)
		if err != nil {
			return err
		}
		embedded += updated
		batch = batch[:0]
		return nil
	}

	err := s.docs.Terms(ctx, prefix, 0)(func(c terminology.Concept) error {
		batch = append(batch, c)
		if len(batch) >= embedBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	if err := s.cache.InvalidateVocabularyStatus(ctx, prefix); err != nil {
		s.log.Warn("invalidate vocabulary status", "prefix", prefix, "error", err)
	}
	s.log.Info("vocabulary embedded", "prefix", prefix, "concepts", embedded)
	return nil
}

// DeleteVocabulary removes the vocabulary from every store and drops its
// cached statuses. Downloaded release files stay on disk.
func (s *Service) DeleteVocabulary(ctx context.Context, prefix terminology.Prefix) error {
	if _, err := s.vocabs.Get(prefix); err != nil {
		return err
	}
	defer s.lock(prefix)()
	return s.deleteVocabularyData(ctx, prefix)
}

// DeleteVocabularyFiles removes the downloaded release files for a prefix.
func (s *Service) DeleteVocabularyFiles(prefix terminology.Prefix) error {
	return s.vocabs.DeleteFiles(prefix)
}

func (s *Service) deleteVocabularyData(ctx context.Context, prefix terminology.Prefix) error {
	if err := s.docs.DeleteAll(ctx, prefix); err != nil {
		return err
	}
	if err := s.graph.DeleteVocabularyGraph(ctx, prefix); err != nil {
		return err
	}
	if s.vectors != nil {
		if err := s.vectors.DeleteForPrefix(ctx, prefix); err != nil {
			return err
		}
	}
	if err := s.cache.InvalidateVocabularyStatus(ctx, prefix); err != nil {
		s.log.Warn("invalidate vocabulary status", "prefix", prefix, "error", err)
	}
	if err := s.cache.InvalidateSimilarityStatus(ctx, prefix); err != nil {
		s.log.Warn("invalidate similarity status", "prefix", prefix, "error", err)
	}
	s.log.Info("vocabulary deleted", "prefix", prefix)
	return nil
}
