package terminology

import "time"

// VocabularyStatus aggregates what the stores currently hold for one
// vocabulary.
type VocabularyStatus struct {
	Prefix            Prefix             `json:"prefix"`
	Name              string             `json:"name"`
	FileDownloaded    bool               `json:"fileDownloaded"`
	FileDownloadTime  *time.Time         `json:"fileDownloadTime,omitempty"`
	Loaded            bool               `json:"loaded"`
	ConceptCount      int64              `json:"conceptCount"`
	RelationshipCount int64              `json:"relationshipCount"`
	Annotations       []Prefix           `json:"annotations"`
	SimilarityMethods []SimilarityMethod `json:"similarityMethods"`
}

// AnnotationStatus reports the state of one cross-vocabulary annotation
// set.
type AnnotationStatus struct {
	PrefixSource      Prefix `json:"prefixSource"`
	PrefixTarget      Prefix `json:"prefixTarget"`
	Name              string `json:"name"`
	Loaded            bool   `json:"loaded"`
	RelationshipCount int64  `json:"relationshipCount"`
}

// SimilarityCount is the number of stored similarity edges for one
// method (optionally restricted to one annotation corpus).
type SimilarityCount struct {
	Method SimilarityMethod `json:"method"`
	Corpus Prefix           `json:"corpus,omitempty"`
	Count  int64            `json:"count"`
}

// SimilarityStatus reports the stored similarity scores for one
// vocabulary, broken down per method/corpus key.
type SimilarityStatus struct {
	Prefix           Prefix            `json:"prefix"`
	SimilarityCounts []SimilarityCount `json:"similarityCounts"`
}
