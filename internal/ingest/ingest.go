// Package ingest orchestrates the write side of the service: vocabulary
// download/load/embed/delete, annotation load/delete, similarity
// calculation, and the cached status summaries over all of it. Ingests
// for the same prefix are serialized in-process.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/bioterms-backend/internal/annot"
	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/similarity"
	"github.com/yungbote/bioterms-backend/internal/store/cache"
	"github.com/yungbote/bioterms-backend/internal/store/docstore"
	"github.com/yungbote/bioterms-backend/internal/store/graphstore"
	"github.com/yungbote/bioterms-backend/internal/store/vectorstore"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

// embedBatchSize is how many documents stream into the vector store per
// mapping write-back.
const embedBatchSize = 1000

// Service drives ingestion against the configured stores. Vectors may be
// nil when no vector backend is deployed; embedding then fails with a
// validation error and everything else works.
type Service struct {
	vocabs  *vocab.Registry
	annots  *annot.Registry
	docs    docstore.DocumentStore
	graph   graphstore.GraphStore
	vectors vectorstore.VectorStore
	cache   cache.Cache
	sim     *similarity.Engine
	log     *logger.Logger

	mu    sync.Mutex
	locks map[terminology.Prefix]*sync.Mutex
}

func NewService(
	vocabs *vocab.Registry,
	annots *annot.Registry,
	docs docstore.DocumentStore,
	graph graphstore.GraphStore,
	vectors vectorstore.VectorStore,
	c cache.Cache,
	sim *similarity.Engine,
	log *logger.Logger,
) (*Service, error) {
	if vocabs == nil || annots == nil || docs == nil || graph == nil || sim == nil {
		return nil, fmt.Errorf("ingest: registries, stores, and similarity engine required")
	}
	if log == nil {
		return nil, fmt.Errorf("ingest: logger required")
	}
	if c == nil {
		c = cache.NewNoop()
	}
	return &Service{
		vocabs:  vocabs,
		annots:  annots,
		docs:    docs,
		graph:   graph,
		vectors: vectors,
		cache:   c,
		sim:     sim,
		log:     log.With("component", "ingest"),
		locks:   make(map[terminology.Prefix]*sync.Mutex),
	}, nil
}

// lock serializes ingest operations per prefix and returns the unlock.
func (s *Service) lock(prefix terminology.Prefix) func() {
	s.mu.Lock()
	l, ok := s.locks[prefix]
	if !ok {
		l = &sync.Mutex{}
		s.locks[prefix] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// GeneSymbolGuard adapts the graph store into the check gene-linking
// vocabulary loaders run before parsing.
func GeneSymbolGuard(graph graphstore.GraphStore) vocab.GeneSymbolGuard {
	return func(ctx context.Context) error {
		count, err := graph.CountTerms(ctx, terminology.PrefixHGNCSymbol)
		if err != nil {
			return err
		}
		if count == 0 {
			return apierr.VocabularyNotLoaded(fmt.Errorf("vocabulary %q is not loaded", terminology.PrefixHGNCSymbol))
		}
		return nil
	}
}

func (s *Service) requireLoaded(ctx context.Context, prefix terminology.Prefix) error {
	count, err := s.graph.CountTerms(ctx, prefix)
	if err != nil {
		return err
	}
	if count == 0 {
		return apierr.VocabularyNotLoaded(fmt.Errorf("vocabulary %q is not loaded", prefix))
	}
	return nil
}
