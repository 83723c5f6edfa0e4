package docstore

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// IndexSpec names one concept field to index in a vocabulary's collection.
type IndexSpec struct {
	Field  string
	Unique bool
}

// DocumentStore holds the document side of the service: one collection (or
// table pair) per vocabulary prefix carrying the full concept record plus
// its derived n-gram and search-text fields.
type DocumentStore interface {
	Close(ctx context.Context) error

	// CreateIndex ensures the given field index. A conflicting existing
	// index fails with an index_creation error unless overwrite is set,
	// which drops and recreates it.
	CreateIndex(ctx context.Context, prefix terminology.Prefix, spec IndexSpec, overwrite bool) error

	// SaveTerms inserts the concepts, generating n-grams and search text
	// on the way in. Duplicate concept IDs fail individually without
	// failing the batch; the count of newly stored records is returned.
	SaveTerms(ctx context.Context, prefix terminology.Prefix, concepts []terminology.Concept) (int, error)
	CountTerms(ctx context.Context, prefix terminology.Prefix) (int64, error)

	// DeleteAll drops the vocabulary's collection and recreates it empty
	// with its base indexes.
	DeleteAll(ctx context.Context, prefix terminology.Prefix) error

	// Terms streams the vocabulary's concepts; limit of 0 means all.
	Terms(ctx context.Context, prefix terminology.Prefix, limit int) terminology.Seq[terminology.Concept]
	TermsByIDs(ctx context.Context, prefix terminology.Prefix, ids []string) terminology.Seq[terminology.Concept]

	// AutoComplete streams concepts whose n-gram set covers every
	// normalized query token, best match first.
	AutoComplete(ctx context.Context, prefix terminology.Prefix, query string, limit int) terminology.Seq[terminology.Concept]

	// UpdateVectorMapping backfills vector point IDs onto concepts,
	// keyed by concept ID. It returns the number of updated records.
	UpdateVectorMapping(ctx context.Context, prefix terminology.Prefix, mapping map[string]string) (int64, error)
}

// missingLabelLength sorts unlabeled concepts behind every realistic label.
const missingLabelLength = 999

// termDocument is a concept with its derived search fields, as stored.
type termDocument struct {
	Concept    terminology.Concept
	NGrams     []string
	SearchText string
}

// buildTermDocuments derives n-grams and search text for a batch of
// concepts on a bounded worker pool. N-gram generation dominates ingest CPU
// time, so it fans out up to processLimit goroutines.
func buildTermDocuments(ctx context.Context, concepts []terminology.Concept, processLimit int) ([]termDocument, error) {
	if processLimit < 1 {
		processLimit = 1
	}
	docs := make([]termDocument, len(concepts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(processLimit)
	for i := range concepts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := concepts[i]
			docs[i] = termDocument{
				Concept:    c,
				NGrams:     c.NGrams(),
				SearchText: c.SearchText(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// positionScore is the code-point index of the query inside the search
// text, case-insensitively; -1 when absent. Lower sorts first.
func positionScore(searchText, query string) int {
	idx := strings.Index(strings.ToLower(searchText), strings.ToLower(query))
	if idx < 0 {
		return -1
	}
	return utf8.RuneCountInString(searchText[:idx])
}

func labelLength(label string) int {
	if label == "" {
		return missingLabelLength
	}
	return utf8.RuneCountInString(label)
}

// candidate is one auto-complete match prior to ranking. Payload carries
// whatever the backend needs to materialize the concept afterwards.
type candidate struct {
	ConceptID  string
	Label      string
	SearchText string
	Payload    any
}

// rankAutoComplete orders candidates by position score against the
// whitespace-free score query, then label length, then concept ID, and
// truncates to limit. Both backends produce identical ordering through this
// scheme: the document backend mirrors it in its aggregation pipeline, the
// relational backend ranks here.
func rankAutoComplete(cands []candidate, scoreQuery string, limit int) []candidate {
	type scored struct {
		candidate
		position int
		labelLen int
	}
	items := make([]scored, 0, len(cands))
	for _, c := range cands {
		items = append(items, scored{
			candidate: c,
			position:  positionScore(c.SearchText, scoreQuery),
			labelLen:  labelLength(c.Label),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].position != items[j].position {
			return items[i].position < items[j].position
		}
		if items[i].labelLen != items[j].labelLen {
			return items[i].labelLen < items[j].labelLen
		}
		return items[i].ConceptID < items[j].ConceptID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]candidate, 0, len(items))
	for _, s := range items {
		out = append(out, s.candidate)
	}
	return out
}
