package graphstore

import (
	"context"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// SimilarityScore is one precomputed score between two concepts. The
// prefixes of both sides are supplied on the save call.
type SimilarityScore struct {
	ConceptFrom string
	ConceptTo   string
	Score       float64
}

// SimilarityKey identifies one similarity configuration: a method,
// optionally restricted to an annotation corpus. It maps to the property
// name stored on similar_to edges.
type SimilarityKey struct {
	Method terminology.SimilarityMethod
	Corpus terminology.Prefix
}

// Property renders the edge property name: "method" or "method:corpus".
func (k SimilarityKey) Property() string {
	if k.Corpus != "" {
		return string(k.Method) + ":" + string(k.Corpus)
	}
	return string(k.Method)
}

// SimilarQuery selects similar terms for a set of source concepts.
type SimilarQuery struct {
	Prefix     terminology.Prefix
	ConceptIDs []string
	// Threshold is the minimum stored score a property must reach.
	Threshold float64
	// SamePrefix restricts matches to the source vocabulary.
	SamePrefix bool
	// Corpus and Method filter which score properties count; empty means
	// no filter on that axis.
	Corpus terminology.Prefix
	Method terminology.SimilarityMethod
	// Limit caps matches per source concept; 0 means unlimited.
	Limit int
}

// TranslateQuery maps source concepts into constrained target sets via
// similarity edges.
type TranslateQuery struct {
	Prefix     terminology.Prefix
	ConceptIDs []string
	// ConstraintIDs allows only the listed concept IDs per target prefix.
	ConstraintIDs map[terminology.Prefix]map[string]struct{}
	Threshold     float64
	// Limit caps translations per source concept; 0 means unlimited.
	Limit int
}

// GraphStore holds the relationship side of the service: vocabulary
// graphs, cross-vocabulary annotations, and similarity edges.
type GraphStore interface {
	Close(ctx context.Context) error

	// SaveVocabularyGraph upserts the nodes (with conceptTypes as
	// secondary labels) and then the labeled edges of one vocabulary.
	SaveVocabularyGraph(ctx context.Context, concepts []terminology.Concept, graph *terminology.Graph) error
	VocabularyGraph(ctx context.Context, prefix terminology.Prefix) (*terminology.Graph, error)
	DeleteVocabularyGraph(ctx context.Context, prefix terminology.Prefix) error
	CountTerms(ctx context.Context, prefix terminology.Prefix) (int64, error)
	CountInternalRelationships(ctx context.Context, prefix terminology.Prefix) (int64, error)

	SaveAnnotations(ctx context.Context, annotations []terminology.Annotation) error
	// AnnotationGraph returns the annotation edges between two
	// vocabularies regardless of their stored direction.
	AnnotationGraph(ctx context.Context, prefix1, prefix2 terminology.Prefix) ([]terminology.Annotation, error)
	DeleteAnnotations(ctx context.Context, prefix1, prefix2 terminology.Prefix) error
	CountAnnotations(ctx context.Context, prefix1, prefix2 terminology.Prefix) (int64, error)

	// SaveSimilarityScores merges one similar_to edge per pair, setting
	// the key's property to the score. Writes are batched internally.
	SaveSimilarityScores(ctx context.Context, prefixFrom, prefixTo terminology.Prefix, scores []SimilarityScore, key SimilarityKey) error
	CountSimilarityRelationships(ctx context.Context, prefix terminology.Prefix, keys []SimilarityKey) ([]terminology.SimilarityCount, error)

	CreateIndexes(ctx context.Context) error

	// ExpandTerms streams the descendant set per root concept, following
	// IS_A edges in reverse. maxDepth and limit of 0 mean unbounded.
	ExpandTerms(ctx context.Context, prefix terminology.Prefix, conceptIDs []string, maxDepth, limit int) terminology.Seq[terminology.ExpandedTerm]
	SimilarTerms(ctx context.Context, q SimilarQuery) terminology.Seq[terminology.SimilarTerm]
	TranslateTerms(ctx context.Context, q TranslateQuery) terminology.Seq[terminology.TranslatedTerm]
}

// matchesKey reports whether a stored property name passes the
// method/corpus filter of a query.
func matchesKey(key string, method terminology.SimilarityMethod, corpus terminology.Prefix) bool {
	switch {
	case method == "" && corpus == "":
		return true
	case corpus == "":
		return key == string(method) || strings.HasPrefix(key, string(method)+":")
	case method == "":
		return strings.HasSuffix(key, ":"+string(corpus))
	default:
		return (key == string(method) || strings.HasPrefix(key, string(method)+":")) &&
			strings.HasSuffix(key, ":"+string(corpus))
	}
}
