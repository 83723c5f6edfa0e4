package graphstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/platform/neo4jdb"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const (
	writeBatchSize = 1000

	retryAttempts    = 3
	retryBaseBackoff = time.Second
	retryFactor      = 2
)

// Neo4jStore persists vocabulary graphs, annotations, and similarity edges
// in Neo4j. Concepts carry the shared :Concept label plus one secondary
// label per concept type, and are keyed by (prefix, id).
type Neo4jStore struct {
	db  *neo4jdb.Client
	log *logger.Logger
}

func NewNeo4jStore(db *neo4jdb.Client, log *logger.Logger) (*Neo4jStore, error) {
	if db == nil {
		return nil, fmt.Errorf("graphstore: neo4j client required")
	}
	if log == nil {
		return nil, fmt.Errorf("graphstore: logger required")
	}
	return &Neo4jStore{db: db, log: log.With("store", "Neo4jGraphStore")}, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

// withRetry reruns fn on transient cluster errors with exponential backoff.
func (s *Neo4jStore) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := retryBaseBackoff
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !neo4j.IsRetryable(err) || attempt == retryAttempts {
			break
		}
		s.log.Warn("transient graph store error; retrying", "operation", op, "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return apierr.TransientStore(ctx.Err())
		}
		backoff *= retryFactor
	}
	if neo4j.IsRetryable(err) {
		return apierr.TransientStore(err)
	}
	return err
}

func (s *Neo4jStore) write(ctx context.Context, op, query string, params map[string]any) error {
	return s.withRetry(ctx, op, func() error {
		session := s.db.Session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			return fmt.Errorf("graphstore: %s: %w", op, err)
		}
		return nil
	})
}

func (s *Neo4jStore) readCount(ctx context.Context, op, query string, params map[string]any) (int64, error) {
	var count int64
	err := s.withRetry(ctx, op, func() error {
		session := s.db.Session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)
		result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			record, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			return record.Values[0], nil
		})
		if err != nil {
			return fmt.Errorf("graphstore: %s: %w", op, err)
		}
		count, _ = result.(int64)
		return nil
	})
	return count, err
}

const upsertNodesQuery = `
UNWIND $concepts AS concept
MERGE (n:Concept {id: concept.id, prefix: concept.prefix})
SET n.status = concept.status
WITH n, concept
CALL apoc.create.addLabels(n, concept.labels) YIELD node
RETURN count(node)`

const upsertEdgesQuery = `
UNWIND $edges AS edge
MATCH (source:Concept {id: edge[0], prefix: $prefix})
MATCH (target:Concept {id: edge[1], prefix: $prefix})
WITH source, target, coalesce(edge[2], 'related_to') AS rel_label
CALL apoc.merge.relationship(source, rel_label, {}, {}, target) YIELD rel
RETURN count(rel)`

func (s *Neo4jStore) SaveVocabularyGraph(ctx context.Context, concepts []terminology.Concept, graph *terminology.Graph) error {
	if len(concepts) == 0 {
		return nil
	}
	prefix := concepts[0].Prefix

	nodes := make([]map[string]any, 0, len(concepts))
	byID := make(map[string]struct{}, len(concepts))
	for _, c := range concepts {
		labels := make([]string, 0, len(c.ConceptTypes))
		for _, t := range c.ConceptTypes {
			labels = append(labels, string(t))
		}
		nodes = append(nodes, map[string]any{
			"id":     c.ConceptID,
			"prefix": string(c.Prefix),
			"status": string(c.Status),
			"labels": labels,
		})
		byID[c.ConceptID] = struct{}{}
	}
	if graph != nil {
		// Graph-only nodes (edge endpoints without a concept record) still
		// need a node so hierarchy edges resolve.
		for _, id := range graph.Nodes() {
			if _, seen := byID[id]; seen {
				continue
			}
			nodes = append(nodes, map[string]any{
				"id":     id,
				"prefix": string(prefix),
				"status": string(terminology.StatusActive),
				"labels": []string{},
			})
		}
	}

	for start := 0; start < len(nodes); start += writeBatchSize {
		end := min(start+writeBatchSize, len(nodes))
		params := map[string]any{"concepts": nodes[start:end]}
		if err := s.write(ctx, "save nodes", upsertNodesQuery, params); err != nil {
			return err
		}
	}

	if graph == nil {
		return nil
	}
	edges := graph.Edges()
	rows := make([][]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []any{e.From, e.To, string(e.Label)})
	}
	for start := 0; start < len(rows); start += writeBatchSize {
		end := min(start+writeBatchSize, len(rows))
		params := map[string]any{
			"edges":  rows[start:end],
			"prefix": string(prefix),
		}
		if err := s.write(ctx, "save edges", upsertEdgesQuery, params); err != nil {
			return err
		}
	}
	return nil
}

const vocabularyGraphQuery = `
MATCH (a:Concept {prefix: $prefix})-[r]->(b:Concept {prefix: $prefix})
WHERE type(r) <> 'similar_to'
RETURN a.id AS from, b.id AS to, type(r) AS label`

func (s *Neo4jStore) VocabularyGraph(ctx context.Context, prefix terminology.Prefix) (*terminology.Graph, error) {
	graph := terminology.NewGraph()
	err := s.withRetry(ctx, "vocabulary graph", func() error {
		session := s.db.Session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)
		result, err := session.Run(ctx, vocabularyGraphQuery, map[string]any{"prefix": string(prefix)})
		if err != nil {
			return fmt.Errorf("graphstore: vocabulary graph: %w", err)
		}
		for result.Next(ctx) {
			rec := result.Record()
			from, _ := rec.Values[0].(string)
			to, _ := rec.Values[1].(string)
			label, _ := rec.Values[2].(string)
			graph.AddEdge(from, to, terminology.RelationshipType(label))
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}
	return graph, nil
}

const deleteVocabularyQuery = `
MATCH (n:Concept {prefix: $prefix})
CALL { WITH n DETACH DELETE n } IN TRANSACTIONS OF 1000 ROWS`

func (s *Neo4jStore) DeleteVocabularyGraph(ctx context.Context, prefix terminology.Prefix) error {
	// CALL ... IN TRANSACTIONS needs an implicit (auto-commit) transaction.
	return s.withRetry(ctx, "delete vocabulary", func() error {
		session := s.db.Session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)
		result, err := session.Run(ctx, deleteVocabularyQuery, map[string]any{"prefix": string(prefix)})
		if err != nil {
			return fmt.Errorf("graphstore: delete vocabulary: %w", err)
		}
		_, err = result.Consume(ctx)
		if err != nil {
			return fmt.Errorf("graphstore: delete vocabulary: %w", err)
		}
		return nil
	})
}

func (s *Neo4jStore) CountTerms(ctx context.Context, prefix terminology.Prefix) (int64, error) {
	const query = `MATCH (n:Concept {prefix: $prefix}) RETURN count(n)`
	return s.readCount(ctx, "count terms", query, map[string]any{"prefix": string(prefix)})
}

func (s *Neo4jStore) CountInternalRelationships(ctx context.Context, prefix terminology.Prefix) (int64, error) {
	const query = `
MATCH (:Concept {prefix: $prefix})-[r]->(:Concept {prefix: $prefix})
WHERE type(r) <> 'similar_to'
RETURN count(r)`
	return s.readCount(ctx, "count relationships", query, map[string]any{"prefix": string(prefix)})
}

const saveAnnotationsQuery = `
UNWIND $annotations AS annotation
MATCH (source:Concept {id: annotation.idFrom, prefix: annotation.prefixFrom})
MATCH (target:Concept {id: annotation.idTo, prefix: annotation.prefixTo})
WITH source, target,
     coalesce(annotation.annotationType, 'annotated_with') AS rel_label,
     coalesce(annotation.properties, {}) AS props
CALL apoc.merge.relationship(source, rel_label, {}, props, target) YIELD rel
SET rel += props
RETURN count(rel)`

func (s *Neo4jStore) SaveAnnotations(ctx context.Context, annotations []terminology.Annotation) error {
	rows := make([]map[string]any, 0, len(annotations))
	for _, a := range annotations {
		row := map[string]any{
			"idFrom":     a.ConceptIDFrom,
			"prefixFrom": string(a.PrefixFrom),
			"idTo":       a.ConceptIDTo,
			"prefixTo":   string(a.PrefixTo),
		}
		if a.Type != "" {
			row["annotationType"] = string(a.Type)
		}
		if len(a.Properties) > 0 {
			props := make(map[string]any, len(a.Properties))
			for k, v := range a.Properties {
				props[k] = v
			}
			row["properties"] = props
		}
		rows = append(rows, row)
	}
	for start := 0; start < len(rows); start += writeBatchSize {
		end := min(start+writeBatchSize, len(rows))
		params := map[string]any{"annotations": rows[start:end]}
		if err := s.write(ctx, "save annotations", saveAnnotationsQuery, params); err != nil {
			return err
		}
	}
	return nil
}

const annotationGraphQuery = `
MATCH (a:Concept {prefix: $prefix_1})-[r]-(b:Concept {prefix: $prefix_2})
WHERE type(r) <> 'similar_to'
RETURN a.id AS a_id, b.id AS b_id, type(r) AS rel_label, properties(r) AS props,
       startNode(r) = a AS forward`

func (s *Neo4jStore) AnnotationGraph(ctx context.Context, prefix1, prefix2 terminology.Prefix) ([]terminology.Annotation, error) {
	var out []terminology.Annotation
	err := s.withRetry(ctx, "annotation graph", func() error {
		session := s.db.Session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)
		result, err := session.Run(ctx, annotationGraphQuery, map[string]any{
			"prefix_1": string(prefix1),
			"prefix_2": string(prefix2),
		})
		if err != nil {
			return fmt.Errorf("graphstore: annotation graph: %w", err)
		}
		out = out[:0]
		for result.Next(ctx) {
			rec := result.Record()
			aID, _ := rec.Values[0].(string)
			bID, _ := rec.Values[1].(string)
			label, _ := rec.Values[2].(string)
			rawProps, _ := rec.Values[3].(map[string]any)
			forward, _ := rec.Values[4].(bool)

			var props map[string]string
			if len(rawProps) > 0 {
				props = make(map[string]string, len(rawProps))
				for k, v := range rawProps {
					props[k] = fmt.Sprintf("%v", v)
				}
			}

			a := terminology.Annotation{
				PrefixFrom:    prefix1,
				ConceptIDFrom: aID,
				PrefixTo:      prefix2,
				ConceptIDTo:   bID,
				Type:          terminology.AnnotationType(label),
				Properties:    props,
			}
			if !forward {
				a.PrefixFrom, a.PrefixTo = prefix2, prefix1
				a.ConceptIDFrom, a.ConceptIDTo = bID, aID
			}
			out = append(out, a)
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Neo4jStore) DeleteAnnotations(ctx context.Context, prefix1, prefix2 terminology.Prefix) error {
	const query = `
MATCH (:Concept {prefix: $prefix_1})-[r]-(:Concept {prefix: $prefix_2})
WHERE type(r) <> 'similar_to'
DELETE r`
	return s.write(ctx, "delete annotations", query, map[string]any{
		"prefix_1": string(prefix1),
		"prefix_2": string(prefix2),
	})
}

func (s *Neo4jStore) CountAnnotations(ctx context.Context, prefix1, prefix2 terminology.Prefix) (int64, error) {
	const query = `
MATCH (:Concept {prefix: $prefix_1})-[r]-(:Concept {prefix: $prefix_2})
WHERE type(r) <> 'similar_to'
RETURN count(r)`
	return s.readCount(ctx, "count annotations", query, map[string]any{
		"prefix_1": string(prefix1),
		"prefix_2": string(prefix2),
	})
}

func (s *Neo4jStore) SaveSimilarityScores(ctx context.Context, prefixFrom, prefixTo terminology.Prefix, scores []SimilarityScore, key SimilarityKey) error {
	property := key.Property()
	if !validPropertyName(property) {
		return apierr.Validation(fmt.Errorf("invalid similarity property %q", property))
	}
	// Property names cannot be parameterized, so the sanitized name is
	// interpolated directly.
	query := fmt.Sprintf(`
UNWIND $scores AS score
MATCH (source:Concept {id: score[0], prefix: $prefix_from})
MATCH (target:Concept {id: score[1], prefix: $prefix_to})
CALL apoc.merge.relationship(source, 'similar_to', {}, {}, target) YIELD rel
SET rel.`+"`%s`"+` = score[2]
RETURN count(rel)`, property)

	for start := 0; start < len(scores); start += writeBatchSize {
		end := min(start+writeBatchSize, len(scores))
		rows := make([][]any, 0, end-start)
		for _, sc := range scores[start:end] {
			rows = append(rows, []any{sc.ConceptFrom, sc.ConceptTo, sc.Score})
		}
		params := map[string]any{
			"scores":      rows,
			"prefix_from": string(prefixFrom),
			"prefix_to":   string(prefixTo),
		}
		if err := s.write(ctx, "save similarity scores", query, params); err != nil {
			return err
		}
	}
	return nil
}

func (s *Neo4jStore) CountSimilarityRelationships(ctx context.Context, prefix terminology.Prefix, keys []SimilarityKey) ([]terminology.SimilarityCount, error) {
	out := make([]terminology.SimilarityCount, 0, len(keys))
	for _, key := range keys {
		property := key.Property()
		if !validPropertyName(property) {
			return nil, apierr.Validation(fmt.Errorf("invalid similarity property %q", property))
		}
		query := fmt.Sprintf(`
MATCH (:Concept {prefix: $prefix})-[r:similar_to]-(:Concept)
WHERE r.`+"`%s`"+` IS NOT NULL
RETURN count(DISTINCT r)`, property)
		count, err := s.readCount(ctx, "count similarity", query, map[string]any{"prefix": string(prefix)})
		if err != nil {
			return nil, err
		}
		out = append(out, terminology.SimilarityCount{
			Method: key.Method,
			Corpus: key.Corpus,
			Count:  count,
		})
	}
	return out, nil
}

func validPropertyName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == ':':
		default:
			return false
		}
	}
	return true
}

func (s *Neo4jStore) CreateIndexes(ctx context.Context) error {
	statements := []string{
		`CREATE INDEX concept_prefix_index IF NOT EXISTS FOR (n:Concept) ON (n.prefix)`,
		`CREATE INDEX concept_id_index IF NOT EXISTS FOR (n:Concept) ON (n.id)`,
		`CREATE CONSTRAINT concept_prefix_id_unique IF NOT EXISTS FOR (n:Concept) REQUIRE (n.prefix, n.id) IS UNIQUE`,
	}
	for _, stmt := range statements {
		if err := s.write(ctx, "create index", stmt, nil); err != nil {
			return apierr.IndexCreation(err)
		}
	}
	return nil
}

func (s *Neo4jStore) ExpandTerms(ctx context.Context, prefix terminology.Prefix, conceptIDs []string, maxDepth, limit int) terminology.Seq[terminology.ExpandedTerm] {
	return func(yield func(terminology.ExpandedTerm) error) error {
		var b strings.Builder
		params := map[string]any{
			"prefix":      string(prefix),
			"concept_ids": conceptIDs,
		}

		b.WriteString(`
MATCH (n:Concept {prefix: $prefix})
WHERE n.id IN $concept_ids`)
		if maxDepth > 0 {
			b.WriteString(`
CALL {
  WITH n
  CALL apoc.path.expandConfig(n, {
    relationshipFilter: 'is_a<',
    labelFilter: '+Concept',
    minLevel: 1,
    maxLevel: $depth,
    bfs: true,
    uniqueness: 'NODE_GLOBAL'
  }) YIELD path
  RETURN collect(DISTINCT last(nodes(path)).id) AS all_desc
}`)
			params["depth"] = maxDepth
		} else {
			b.WriteString(`
OPTIONAL MATCH (n)<-[:is_a*]-(descendant:Concept)
WITH n, collect(DISTINCT descendant.id) AS all_desc`)
		}
		if limit > 0 {
			b.WriteString(`
RETURN n.id AS concept_id, all_desc[0..$limit] AS descendants`)
			params["limit"] = limit
		} else {
			b.WriteString(`
RETURN n.id AS concept_id, all_desc AS descendants`)
		}
		b.WriteString(`
ORDER BY concept_id`)

		session := s.db.Session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)
		result, err := session.Run(ctx, b.String(), params)
		if err != nil {
			return fmt.Errorf("graphstore: expand terms: %w", err)
		}
		for result.Next(ctx) {
			rec := result.Record()
			conceptID, _ := rec.Values[0].(string)
			raw, _ := rec.Values[1].([]any)
			descendants := make([]string, 0, len(raw))
			for _, v := range raw {
				if id, ok := v.(string); ok {
					descendants = append(descendants, id)
				}
			}
			if err := yield(terminology.ExpandedTerm{ConceptID: conceptID, Descendants: descendants}); err != nil {
				return err
			}
		}
		return result.Err()
	}
}

func (s *Neo4jStore) SimilarTerms(ctx context.Context, q SimilarQuery) terminology.Seq[terminology.SimilarTerm] {
	return func(yield func(terminology.SimilarTerm) error) error {
		keyFilter := "props[k] >= $threshold"
		params := map[string]any{
			"prefix":      string(q.Prefix),
			"concept_ids": q.ConceptIDs,
			"threshold":   q.Threshold,
		}
		if q.Method != "" {
			keyFilter += " AND (k = $method OR k STARTS WITH $method + ':')"
			params["method"] = string(q.Method)
		}
		if q.Corpus != "" {
			keyFilter += " AND k ENDS WITH ':' + $corpus"
			params["corpus"] = string(q.Corpus)
		}

		var b strings.Builder
		b.WriteString(`
MATCH (n:Concept {prefix: $prefix})
WHERE n.id IN $concept_ids
MATCH (n)-[r:similar_to]-(m:Concept)`)
		if q.SamePrefix {
			b.WriteString(`
WHERE m.prefix = $prefix`)
		}
		b.WriteString(`
WITH n, m, apoc.convert.toMap(r) AS props
WITH n, m, [k IN keys(props) WHERE ` + keyFilter + `] AS valid_keys, props
WHERE size(valid_keys) > 0
WITH n, m, apoc.coll.max([k IN valid_keys | props[k]]) AS score
ORDER BY n.id, score DESC
WITH n, collect({id: m.id, prefix: m.prefix}) AS matches`)
		if q.Limit > 0 {
			b.WriteString(`
WITH n, matches[0..$limit] AS matches`)
			params["limit"] = q.Limit
		}
		b.WriteString(`
UNWIND matches AS entry
WITH n, entry.prefix AS similar_prefix, collect(entry.id) AS similar_ids
ORDER BY n.id, similar_prefix
RETURN n.id AS concept_id, collect({prefix: similar_prefix, ids: similar_ids}) AS groups
ORDER BY concept_id`)

		session := s.db.Session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)
		result, err := session.Run(ctx, b.String(), params)
		if err != nil {
			return fmt.Errorf("graphstore: similar terms: %w", err)
		}
		for result.Next(ctx) {
			rec := result.Record()
			conceptID, _ := rec.Values[0].(string)
			rawGroups, _ := rec.Values[1].([]any)
			groups := make([]terminology.SimilarGroup, 0, len(rawGroups))
			for _, rg := range rawGroups {
				gm, ok := rg.(map[string]any)
				if !ok {
					continue
				}
				prefix, _ := gm["prefix"].(string)
				rawIDs, _ := gm["ids"].([]any)
				ids := make([]string, 0, len(rawIDs))
				for _, v := range rawIDs {
					if id, ok := v.(string); ok {
						ids = append(ids, id)
					}
				}
				groups = append(groups, terminology.SimilarGroup{
					Prefix:          terminology.Prefix(prefix),
					SimilarConcepts: ids,
				})
			}
			if err := yield(terminology.SimilarTerm{ConceptID: conceptID, SimilarGroups: groups}); err != nil {
				return err
			}
		}
		return result.Err()
	}
}

func (s *Neo4jStore) TranslateTerms(ctx context.Context, q TranslateQuery) terminology.Seq[terminology.TranslatedTerm] {
	return func(yield func(terminology.TranslatedTerm) error) error {
		targetPrefixes := make([]string, 0, len(q.ConstraintIDs))
		constraints := make(map[string]any, len(q.ConstraintIDs))
		for prefix, ids := range q.ConstraintIDs {
			targetPrefixes = append(targetPrefixes, string(prefix))
			list := make([]string, 0, len(ids))
			for id := range ids {
				list = append(list, id)
			}
			sort.Strings(list)
			constraints[string(prefix)] = list
		}
		sort.Strings(targetPrefixes)

		params := map[string]any{
			"prefix":          string(q.Prefix),
			"concept_ids":     q.ConceptIDs,
			"threshold":       q.Threshold,
			"target_prefixes": targetPrefixes,
			"constraints":     constraints,
		}

		var b strings.Builder
		b.WriteString(`
MATCH (n:Concept {prefix: $prefix})
WHERE n.id IN $concept_ids
MATCH (n)-[r:similar_to]-(m:Concept)
WHERE m.prefix IN $target_prefixes
  AND m.id IN coalesce($constraints[m.prefix], [])
WITH n, m, apoc.convert.toMap(r) AS props
WITH n, m, [k IN keys(props) WHERE props[k] >= $threshold] AS valid_keys, props
WHERE size(valid_keys) > 0
WITH n, m, apoc.coll.max([k IN valid_keys | props[k]]) AS score
ORDER BY n.id, score DESC
WITH n, collect({id: m.id, prefix: m.prefix, score: score}) AS matches`)
		if q.Limit > 0 {
			b.WriteString(`
WITH n, matches[0..$limit] AS matches`)
			params["limit"] = q.Limit
		}
		b.WriteString(`
UNWIND matches AS entry
RETURN entry.id AS concept_id, entry.prefix AS target_prefix, entry.score AS score
ORDER BY n.id`)

		session := s.db.Session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)
		result, err := session.Run(ctx, b.String(), params)
		if err != nil {
			return fmt.Errorf("graphstore: translate terms: %w", err)
		}
		for result.Next(ctx) {
			rec := result.Record()
			conceptID, _ := rec.Values[0].(string)
			prefix, _ := rec.Values[1].(string)
			score, _ := rec.Values[2].(float64)
			if err := yield(terminology.TranslatedTerm{
				ConceptID: conceptID,
				Prefix:    terminology.Prefix(prefix),
				Score:     score,
			}); err != nil {
				return err
			}
		}
		return result.Err()
	}
}
