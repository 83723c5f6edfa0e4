package terminology

import (
	"fmt"
	"strings"
)

// Prefix identifies the vocabulary a concept belongs to. It doubles as the
// collection/table name in the document store and as a node label in the
// graph store.
type Prefix string

const (
	PrefixHPO        Prefix = "hpo"
	PrefixORDO       Prefix = "ordo"
	PrefixSNOMED     Prefix = "snomed"
	PrefixNCIT       Prefix = "ncit"
	PrefixOMIM       Prefix = "omim"
	PrefixHGNC       Prefix = "hgnc"
	PrefixHGNCSymbol Prefix = "hgnc_symbol"
	PrefixCTV3       Prefix = "ctv3"
	PrefixEnsembl    Prefix = "ensembl"
	PrefixReactome   Prefix = "reactome"
)

// AllPrefixes lists every supported vocabulary in registry order.
func AllPrefixes() []Prefix {
	return []Prefix{
		PrefixHPO,
		PrefixORDO,
		PrefixSNOMED,
		PrefixNCIT,
		PrefixOMIM,
		PrefixHGNC,
		PrefixHGNCSymbol,
		PrefixCTV3,
		PrefixEnsembl,
		PrefixReactome,
	}
}

// ParsePrefix normalizes and validates a vocabulary prefix from user input.
func ParsePrefix(raw string) (Prefix, error) {
	candidate := Prefix(strings.ToLower(strings.TrimSpace(raw)))
	for _, p := range AllPrefixes() {
		if candidate == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown vocabulary prefix %q", raw)
}

func (p Prefix) String() string { return string(p) }

// ConceptStatus marks whether a concept is current in its vocabulary.
type ConceptStatus string

const (
	StatusActive     ConceptStatus = "active"
	StatusDeprecated ConceptStatus = "deprecated"
)

// ConceptType tags the role a concept plays inside its vocabulary graph.
type ConceptType string

const (
	TypeGene       ConceptType = "gene"
	TypeTranscript ConceptType = "transcript"
	TypeExon       ConceptType = "exon"
	TypeProtein    ConceptType = "protein"
	TypePathway    ConceptType = "pathway"
	TypeReaction   ConceptType = "reaction"
)

// RelationshipType labels edges inside a single vocabulary graph.
type RelationshipType string

const (
	RelIsA        RelationshipType = "is_a"
	RelPartOf     RelationshipType = "part_of"
	RelReplacedBy RelationshipType = "replaced_by"
	RelRelatedTo  RelationshipType = "related_to"
)

// AnnotationType labels cross-vocabulary annotation edges. An empty type
// stores as the generic "annotated_with".
type AnnotationType string

const (
	AnnotationAnnotatedWith AnnotationType = "annotated_with"
	AnnotationHasSymbol     AnnotationType = "has_symbol"
	AnnotationExact         AnnotationType = "exact"
	AnnotationBroad         AnnotationType = "broad"
	AnnotationNarrow        AnnotationType = "narrow"
	AnnotationRelated       AnnotationType = "related"
)

// SimilarityMethod names a precomputed similarity scoring method.
type SimilarityMethod string

const (
	SimilarityRelevance    SimilarityMethod = "relevance"
	SimilarityCoAnnotation SimilarityMethod = "coannotation"
)

// ParseSimilarityMethod validates a similarity method from user input.
func ParseSimilarityMethod(raw string) (SimilarityMethod, error) {
	switch SimilarityMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case SimilarityRelevance:
		return SimilarityRelevance, nil
	case SimilarityCoAnnotation:
		return SimilarityCoAnnotation, nil
	}
	return "", fmt.Errorf("unknown similarity method %q", raw)
}
