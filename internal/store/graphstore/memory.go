package graphstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// nodeRef addresses one concept node across vocabularies.
type nodeRef struct {
	Prefix terminology.Prefix
	ID     string
}

// MemoryStore is the in-process GraphStore used when Neo4j is not
// configured. It mirrors the Neo4j backend's result shapes and ordering so
// the two are interchangeable in tests and small deployments.
type MemoryStore struct {
	mu  sync.RWMutex
	log *logger.Logger

	graphs      map[terminology.Prefix]*terminology.Graph
	nodes       map[terminology.Prefix]map[string]struct{}
	annotations []terminology.Annotation
	// similarity holds one score map per undirected neighbor pair, indexed
	// from both ends.
	similarity map[nodeRef]map[nodeRef]map[string]float64
}

func NewMemoryStore(log *logger.Logger) *MemoryStore {
	if log != nil {
		log = log.With("store", "MemoryGraphStore")
	}
	return &MemoryStore{
		log:        log,
		graphs:     make(map[terminology.Prefix]*terminology.Graph),
		nodes:      make(map[terminology.Prefix]map[string]struct{}),
		similarity: make(map[nodeRef]map[nodeRef]map[string]float64),
	}
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) SaveVocabularyGraph(ctx context.Context, concepts []terminology.Concept, graph *terminology.Graph) error {
	if len(concepts) == 0 {
		return nil
	}
	prefix := concepts[0].Prefix

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.graphs[prefix]
	if stored == nil {
		stored = terminology.NewGraph()
		s.graphs[prefix] = stored
	}
	ids := s.nodes[prefix]
	if ids == nil {
		ids = make(map[string]struct{})
		s.nodes[prefix] = ids
	}
	for _, c := range concepts {
		ids[c.ConceptID] = struct{}{}
		stored.AddNode(c.ConceptID)
	}
	if graph != nil {
		for _, id := range graph.Nodes() {
			ids[id] = struct{}{}
			stored.AddNode(id)
		}
		for _, e := range graph.Edges() {
			stored.AddEdge(e.From, e.To, e.Label)
		}
	}
	return nil
}

func (s *MemoryStore) VocabularyGraph(ctx context.Context, prefix terminology.Prefix) (*terminology.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := terminology.NewGraph()
	stored := s.graphs[prefix]
	if stored == nil {
		return out, nil
	}
	for _, n := range stored.Nodes() {
		out.AddNode(n)
	}
	for _, e := range stored.Edges() {
		out.AddEdge(e.From, e.To, e.Label)
	}
	return out, nil
}

func (s *MemoryStore) DeleteVocabularyGraph(ctx context.Context, prefix terminology.Prefix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.graphs, prefix)
	delete(s.nodes, prefix)

	kept := s.annotations[:0]
	for _, a := range s.annotations {
		if a.PrefixFrom == prefix || a.PrefixTo == prefix {
			continue
		}
		kept = append(kept, a)
	}
	s.annotations = kept

	for ref := range s.similarity {
		if ref.Prefix != prefix {
			continue
		}
		for other := range s.similarity[ref] {
			delete(s.similarity[other], ref)
			if len(s.similarity[other]) == 0 {
				delete(s.similarity, other)
			}
		}
		delete(s.similarity, ref)
	}
	return nil
}

func (s *MemoryStore) CountTerms(ctx context.Context, prefix terminology.Prefix) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.nodes[prefix])), nil
}

func (s *MemoryStore) CountInternalRelationships(ctx context.Context, prefix terminology.Prefix) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g := s.graphs[prefix]; g != nil {
		return int64(g.EdgeCount()), nil
	}
	return 0, nil
}

func (s *MemoryStore) hasNode(prefix terminology.Prefix, id string) bool {
	_, ok := s.nodes[prefix][id]
	return ok
}

func (s *MemoryStore) SaveAnnotations(ctx context.Context, annotations []terminology.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range annotations {
		// Matching Neo4j MATCH semantics: edges to unknown nodes are
		// silently skipped.
		if !s.hasNode(a.PrefixFrom, a.ConceptIDFrom) || !s.hasNode(a.PrefixTo, a.ConceptIDTo) {
			continue
		}
		if a.Type == "" {
			a.Type = terminology.AnnotationAnnotatedWith
		}
		if idx := s.findAnnotation(a); idx >= 0 {
			if len(a.Properties) > 0 {
				existing := s.annotations[idx]
				if existing.Properties == nil {
					existing.Properties = make(map[string]string, len(a.Properties))
				}
				for k, v := range a.Properties {
					existing.Properties[k] = v
				}
				s.annotations[idx] = existing
			}
			continue
		}
		if len(a.Properties) > 0 {
			props := make(map[string]string, len(a.Properties))
			for k, v := range a.Properties {
				props[k] = v
			}
			a.Properties = props
		}
		s.annotations = append(s.annotations, a)
	}
	return nil
}

func (s *MemoryStore) findAnnotation(a terminology.Annotation) int {
	for i, existing := range s.annotations {
		if existing.PrefixFrom == a.PrefixFrom &&
			existing.ConceptIDFrom == a.ConceptIDFrom &&
			existing.PrefixTo == a.PrefixTo &&
			existing.ConceptIDTo == a.ConceptIDTo &&
			existing.Type == a.Type {
			return i
		}
	}
	return -1
}

func annotationMatchesPair(a terminology.Annotation, prefix1, prefix2 terminology.Prefix) bool {
	return (a.PrefixFrom == prefix1 && a.PrefixTo == prefix2) ||
		(a.PrefixFrom == prefix2 && a.PrefixTo == prefix1)
}

func (s *MemoryStore) AnnotationGraph(ctx context.Context, prefix1, prefix2 terminology.Prefix) ([]terminology.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []terminology.Annotation
	for _, a := range s.annotations {
		if !annotationMatchesPair(a, prefix1, prefix2) {
			continue
		}
		copied := a
		if len(a.Properties) > 0 {
			copied.Properties = make(map[string]string, len(a.Properties))
			for k, v := range a.Properties {
				copied.Properties[k] = v
			}
		}
		out = append(out, copied)
	}
	return out, nil
}

func (s *MemoryStore) DeleteAnnotations(ctx context.Context, prefix1, prefix2 terminology.Prefix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.annotations[:0]
	for _, a := range s.annotations {
		if annotationMatchesPair(a, prefix1, prefix2) {
			continue
		}
		kept = append(kept, a)
	}
	s.annotations = kept
	return nil
}

func (s *MemoryStore) CountAnnotations(ctx context.Context, prefix1, prefix2 terminology.Prefix) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, a := range s.annotations {
		if annotationMatchesPair(a, prefix1, prefix2) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) SaveSimilarityScores(ctx context.Context, prefixFrom, prefixTo terminology.Prefix, scores []SimilarityScore, key SimilarityKey) error {
	property := key.Property()
	if !validPropertyName(property) {
		return apierr.Validation(fmt.Errorf("invalid similarity property %q", property))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range scores {
		from := nodeRef{Prefix: prefixFrom, ID: sc.ConceptFrom}
		to := nodeRef{Prefix: prefixTo, ID: sc.ConceptTo}
		if !s.hasNode(from.Prefix, from.ID) || !s.hasNode(to.Prefix, to.ID) {
			continue
		}
		s.setScore(from, to, property, sc.Score)
		s.setScore(to, from, property, sc.Score)
	}
	return nil
}

func (s *MemoryStore) setScore(from, to nodeRef, property string, score float64) {
	neighbors := s.similarity[from]
	if neighbors == nil {
		neighbors = make(map[nodeRef]map[string]float64)
		s.similarity[from] = neighbors
	}
	props := neighbors[to]
	if props == nil {
		props = make(map[string]float64)
		neighbors[to] = props
	}
	props[property] = score
}

func (s *MemoryStore) CountSimilarityRelationships(ctx context.Context, prefix terminology.Prefix, keys []SimilarityKey) ([]terminology.SimilarityCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type pair struct{ a, b nodeRef }
	out := make([]terminology.SimilarityCount, 0, len(keys))
	for _, key := range keys {
		property := key.Property()
		seen := make(map[pair]struct{})
		for from, neighbors := range s.similarity {
			if from.Prefix != prefix {
				continue
			}
			for to, props := range neighbors {
				if _, ok := props[property]; !ok {
					continue
				}
				p := pair{a: from, b: to}
				if to.Prefix < from.Prefix || (to.Prefix == from.Prefix && to.ID < from.ID) {
					p = pair{a: to, b: from}
				}
				seen[p] = struct{}{}
			}
		}
		out = append(out, terminology.SimilarityCount{
			Method: key.Method,
			Corpus: key.Corpus,
			Count:  int64(len(seen)),
		})
	}
	return out, nil
}

func (s *MemoryStore) CreateIndexes(ctx context.Context) error { return nil }

func (s *MemoryStore) ExpandTerms(ctx context.Context, prefix terminology.Prefix, conceptIDs []string, maxDepth, limit int) terminology.Seq[terminology.ExpandedTerm] {
	return func(yield func(terminology.ExpandedTerm) error) error {
		s.mu.RLock()
		children := make(map[string][]string)
		if g := s.graphs[prefix]; g != nil {
			for _, e := range g.Edges() {
				if e.Label != terminology.RelIsA {
					continue
				}
				children[e.To] = append(children[e.To], e.From)
			}
		}
		roots := make([]string, 0, len(conceptIDs))
		for _, id := range conceptIDs {
			if s.hasNode(prefix, id) {
				roots = append(roots, id)
			}
		}
		s.mu.RUnlock()
		sort.Strings(roots)

		for _, root := range roots {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			descendants := bfsDescendants(children, root, maxDepth)
			if limit > 0 && len(descendants) > limit {
				descendants = descendants[:limit]
			}
			if err := yield(terminology.ExpandedTerm{ConceptID: root, Descendants: descendants}); err != nil {
				return err
			}
		}
		return nil
	}
}

// bfsDescendants walks child edges breadth-first from root, excluding the
// root itself. maxDepth of 0 means unbounded.
func bfsDescendants(children map[string][]string, root string, maxDepth int) []string {
	visited := map[string]struct{}{root: {}}
	frontier := []string{root}
	var out []string
	for depth := 1; len(frontier) > 0 && (maxDepth == 0 || depth <= maxDepth); depth++ {
		var next []string
		for _, node := range frontier {
			kids := append([]string(nil), children[node]...)
			sort.Strings(kids)
			for _, kid := range kids {
				if _, ok := visited[kid]; ok {
					continue
				}
				visited[kid] = struct{}{}
				out = append(out, kid)
				next = append(next, kid)
			}
		}
		frontier = next
	}
	return out
}

type scoredMatch struct {
	ref   nodeRef
	score float64
}

// bestMatches collects the neighbors of one source node whose best passing
// property score meets the threshold, ordered score-descending with ties
// broken by prefix then id.
func (s *MemoryStore) bestMatches(from nodeRef, threshold float64, method terminology.SimilarityMethod, corpus terminology.Prefix, samePrefix bool) []scoredMatch {
	var matches []scoredMatch
	for to, props := range s.similarity[from] {
		if samePrefix && to.Prefix != from.Prefix {
			continue
		}
		best := 0.0
		found := false
		for k, v := range props {
			if v < threshold || !matchesKey(k, method, corpus) {
				continue
			}
			if !found || v > best {
				best = v
				found = true
			}
		}
		if found {
			matches = append(matches, scoredMatch{ref: to, score: best})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if matches[i].ref.Prefix != matches[j].ref.Prefix {
			return matches[i].ref.Prefix < matches[j].ref.Prefix
		}
		return matches[i].ref.ID < matches[j].ref.ID
	})
	return matches
}

func (s *MemoryStore) SimilarTerms(ctx context.Context, q SimilarQuery) terminology.Seq[terminology.SimilarTerm] {
	return func(yield func(terminology.SimilarTerm) error) error {
		s.mu.RLock()
		ids := make([]string, 0, len(q.ConceptIDs))
		for _, id := range q.ConceptIDs {
			if s.hasNode(q.Prefix, id) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)

		type result struct {
			conceptID string
			groups    []terminology.SimilarGroup
		}
		var results []result
		for _, id := range ids {
			matches := s.bestMatches(nodeRef{Prefix: q.Prefix, ID: id}, q.Threshold, q.Method, q.Corpus, q.SamePrefix)
			if len(matches) == 0 {
				continue
			}
			if q.Limit > 0 && len(matches) > q.Limit {
				matches = matches[:q.Limit]
			}
			grouped := make(map[terminology.Prefix][]string)
			var order []terminology.Prefix
			for _, m := range matches {
				if _, ok := grouped[m.ref.Prefix]; !ok {
					order = append(order, m.ref.Prefix)
				}
				grouped[m.ref.Prefix] = append(grouped[m.ref.Prefix], m.ref.ID)
			}
			sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
			groups := make([]terminology.SimilarGroup, 0, len(order))
			for _, p := range order {
				groups = append(groups, terminology.SimilarGroup{Prefix: p, SimilarConcepts: grouped[p]})
			}
			results = append(results, result{conceptID: id, groups: groups})
		}
		s.mu.RUnlock()

		for _, r := range results {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := yield(terminology.SimilarTerm{ConceptID: r.conceptID, SimilarGroups: r.groups}); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *MemoryStore) TranslateTerms(ctx context.Context, q TranslateQuery) terminology.Seq[terminology.TranslatedTerm] {
	return func(yield func(terminology.TranslatedTerm) error) error {
		s.mu.RLock()
		ids := make([]string, 0, len(q.ConceptIDs))
		for _, id := range q.ConceptIDs {
			if s.hasNode(q.Prefix, id) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)

		var out []terminology.TranslatedTerm
		for _, id := range ids {
			matches := s.bestMatches(nodeRef{Prefix: q.Prefix, ID: id}, q.Threshold, "", "", false)
			var allowed []scoredMatch
			for _, m := range matches {
				set, ok := q.ConstraintIDs[m.ref.Prefix]
				if !ok {
					continue
				}
				if _, ok := set[m.ref.ID]; !ok {
					continue
				}
				allowed = append(allowed, m)
			}
			if q.Limit > 0 && len(allowed) > q.Limit {
				allowed = allowed[:q.Limit]
			}
			for _, m := range allowed {
				out = append(out, terminology.TranslatedTerm{
					ConceptID: m.ref.ID,
					Prefix:    m.ref.Prefix,
					Score:     m.score,
				})
			}
		}
		s.mu.RUnlock()

		for _, t := range out {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := yield(t); err != nil {
				return err
			}
		}
		return nil
	}
}
