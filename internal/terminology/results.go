package terminology

// Seq is a pull-style iterator over streamed store results. The consumer's
// yield callback may return an error to stop iteration early; the iterator
// returns the first error from either side.
type Seq[T any] func(yield func(T) error) error

// Collect drains a Seq into a slice.
func Collect[T any](seq Seq[T]) ([]T, error) {
	var out []T
	err := seq(func(v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// ExpandedTerm is the result of a descendant expansion for one root
// concept. The root itself is never part of Descendants.
type ExpandedTerm struct {
	ConceptID   string   `json:"conceptId"`
	Descendants []string `json:"descendants"`
}

// SimilarGroup collects the similar concept IDs found in one vocabulary.
type SimilarGroup struct {
	Prefix          Prefix   `json:"prefix"`
	SimilarConcepts []string `json:"similarConcepts"`
}

// SimilarTerm is the similarity result for one queried concept, grouped by
// the vocabulary of the matches.
type SimilarTerm struct {
	ConceptID     string         `json:"conceptId"`
	SimilarGroups []SimilarGroup `json:"similarGroups"`
}

// TranslatedTerm is one translation candidate with its similarity score.
type TranslatedTerm struct {
	ConceptID string  `json:"conceptId"`
	Prefix    Prefix  `json:"prefix"`
	Score     float64 `json:"score"`
}
