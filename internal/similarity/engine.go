// Package similarity precomputes pairwise similarity scores between the
// concepts of a vocabulary, grounded in its cross-vocabulary annotations,
// and persists them as similar_to edges in the graph store.
package similarity

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/store/graphstore"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

const (
	// DefaultThreshold is the minimum score kept when the caller does not
	// supply one.
	DefaultThreshold = 0.2
	// flushSize is how many accepted scores accumulate before a graph
	// write.
	flushSize = 10_000
)

// pairScorer is one similarity method prepared for a (vocabulary, corpus)
// pair: the candidate nodes and a pure pair score.
type pairScorer interface {
	nodes() []string
	score(a, b string) (float64, bool)
}

// Engine computes and persists similarity scores.
type Engine struct {
	graph        graphstore.GraphStore
	vocabs       *vocab.Registry
	processLimit int
	log          *logger.Logger
}

func NewEngine(graph graphstore.GraphStore, vocabs *vocab.Registry, processLimit int, log *logger.Logger) *Engine {
	if processLimit < 1 {
		processLimit = 1
	}
	return &Engine{
		graph:        graph,
		vocabs:       vocabs,
		processLimit: processLimit,
		log:          log.With("component", "similarity"),
	}
}

// Combinations lists every method/corpus key supported for a vocabulary:
// each of its similarity methods crossed with each of its annotation
// partners.
func (e *Engine) Combinations(prefix terminology.Prefix) ([]graphstore.SimilarityKey, error) {
	loader, err := e.vocabs.Get(prefix)
	if err != nil {
		return nil, err
	}
	d := loader.Descriptor()
	if len(d.SimilarityMethods) == 0 || len(d.Annotations) == 0 {
		return nil, apierr.Validation(fmt.Errorf("similarity is not supported for vocabulary %q", prefix))
	}
	keys := make([]graphstore.SimilarityKey, 0, len(d.SimilarityMethods)*len(d.Annotations))
	for _, method := range d.SimilarityMethods {
		for _, corpus := range d.Annotations {
			keys = append(keys, graphstore.SimilarityKey{Method: method, Corpus: corpus})
		}
	}
	return keys, nil
}

// Calculate computes similarity scores for a vocabulary and stores those
// at or above the threshold. Method and corpus narrow the supported
// combinations; empty values mean every supported one. A threshold of 0
// falls back to DefaultThreshold.
func (e *Engine) Calculate(ctx context.Context, prefix terminology.Prefix, method terminology.SimilarityMethod, corpus terminology.Prefix, threshold float64) error {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	keys, err := e.Combinations(prefix)
	if err != nil {
		return err
	}
	if method != "" || corpus != "" {
		filtered := keys[:0]
		for _, key := range keys {
			if method != "" && key.Method != method {
				continue
			}
			if corpus != "" && key.Corpus != corpus {
				continue
			}
			filtered = append(filtered, key)
		}
		if len(filtered) == 0 {
			return apierr.Validation(fmt.Errorf("vocabulary %q does not support similarity method %q with corpus %q", prefix, method, corpus))
		}
		keys = filtered
	}
	if err := e.requireLoaded(ctx, prefix); err != nil {
		return err
	}

	// Every combination must be computable before any write happens.
	corpora := make([]terminology.Prefix, 0, len(keys))
	seen := make(map[terminology.Prefix]struct{})
	for _, key := range keys {
		if _, ok := seen[key.Corpus]; ok {
			continue
		}
		seen[key.Corpus] = struct{}{}
		corpora = append(corpora, key.Corpus)
		if err := e.requireLoaded(ctx, key.Corpus); err != nil {
			return err
		}
		annotated, err := e.graph.CountAnnotations(ctx, prefix, key.Corpus)
		if err != nil {
			return err
		}
		if annotated == 0 {
			return apierr.VocabularyNotLoaded(fmt.Errorf("annotations between %q and %q are not loaded", prefix, key.Corpus))
		}
	}

	g, err := e.graph.VocabularyGraph(ctx, prefix)
	if err != nil {
		return err
	}
	d, err := buildDAG(g)
	if err != nil {
		return err
	}

	for _, corpus := range corpora {
		annotations, err := e.graph.AnnotationGraph(ctx, prefix, corpus)
		if err != nil {
			return err
		}
		idx := buildAnnotationIndex(annotations, prefix, corpus)
		counts := d.annotationCounts(idx)

		for _, key := range keys {
			if key.Corpus != corpus {
				continue
			}
			var model pairScorer
			switch key.Method {
			case terminology.SimilarityRelevance:
				model = newRelevanceModel(d, counts)
			case terminology.SimilarityCoAnnotation:
				model = newCoannotationModel(d, idx, counts)
			default:
				return apierr.Validation(fmt.Errorf("unsupported similarity method %q", key.Method))
			}
			e.log.Info("calculating similarity",
				"prefix", prefix, "method", key.Method, "corpus", key.Corpus,
				"candidates", len(model.nodes()))
			if err := e.scorePairs(ctx, prefix, key, model, threshold); err != nil {
				return err
			}
		}
	}
	return nil
}

// Status reports the stored similarity edge counts for every supported
// combination of a vocabulary.
func (e *Engine) Status(ctx context.Context, prefix terminology.Prefix) (terminology.SimilarityStatus, error) {
	keys, err := e.Combinations(prefix)
	if err != nil {
		return terminology.SimilarityStatus{}, err
	}
	counts, err := e.graph.CountSimilarityRelationships(ctx, prefix, keys)
	if err != nil {
		return terminology.SimilarityStatus{}, err
	}
	return terminology.SimilarityStatus{Prefix: prefix, SimilarityCounts: counts}, nil
}

func (e *Engine) requireLoaded(ctx context.Context, prefix terminology.Prefix) error {
	count, err := e.graph.CountTerms(ctx, prefix)
	if err != nil {
		return err
	}
	if count == 0 {
		return apierr.VocabularyNotLoaded(fmt.Errorf("vocabulary %q is not loaded", prefix))
	}
	return nil
}

// scorePairs evaluates every unordered candidate pair with a bounded
// worker pool and writes accepted scores in batches. Pairs are stored
// once, lexicographically ordered, and never between a node and itself.
func (e *Engine) scorePairs(ctx context.Context, prefix terminology.Prefix, key graphstore.SimilarityKey, model pairScorer, threshold float64) error {
	// Cancelling on early return unblocks any worker parked on the
	// results channel.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	candidates := model.nodes()
	results := make(chan graphstore.SimilarityScore, flushSize)
	done := make(chan error, 1)

	go func() {
		grp, gctx := errgroup.WithContext(ctx)
		grp.SetLimit(e.processLimit)
		for i := range candidates {
			if gctx.Err() != nil {
				break
			}
			grp.Go(func() error {
				a := candidates[i]
				for _, b := range candidates[i+1:] {
					score, ok := model.score(a, b)
					if !ok || score < threshold {
						continue
					}
					from, to := a, b
					if to < from {
						from, to = to, from
					}
					select {
					case results <- graphstore.SimilarityScore{ConceptFrom: from, ConceptTo: to, Score: score}:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				return nil
			})
		}
		done <- grp.Wait()
		close(results)
	}()

	saved := 0
	buffer := make([]graphstore.SimilarityScore, 0, flushSize)
	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		if err := e.graph.SaveSimilarityScores(ctx, prefix, prefix, buffer, key); err != nil {
			return err
		}
		saved += len(buffer)
		buffer = buffer[:0]
		return nil
	}

	for score := range results {
		buffer = append(buffer, score)
		if len(buffer) >= flushSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := <-done; err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	e.log.Info("similarity scores saved",
		"prefix", prefix, "property", key.Property(), "scores", saved)
	return nil
}
