package vocab

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const hpoOWLURL = "https://github.com/obophenotype/human-phenotype-ontology/releases/latest/download/hp.owl"

// HPOLoader ingests the Human Phenotype Ontology from its OWL release.
type HPOLoader struct {
	fetch *Fetcher
	log   *logger.Logger
}

func (l *HPOLoader) Descriptor() Descriptor {
	return Descriptor{
		Prefix: terminology.PrefixHPO,
		Name:   "Human Phenotype Ontology",
		Annotations: []terminology.Prefix{
			terminology.PrefixORDO,
			terminology.PrefixHGNCSymbol,
		},
		SimilarityMethods: []terminology.SimilarityMethod{
			terminology.SimilarityRelevance,
			terminology.SimilarityCoAnnotation,
		},
		FilePaths:     []string{"hpo/hp.owl"},
		TimestampFile: "hpo/.timestamp",
	}
}

func (l *HPOLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	if err := l.fetch.Download(ctx, hpoOWLURL, d.FilePaths[0], nil); err != nil {
		return err
	}
	return l.fetch.WriteTimestamp(d.TimestampFile)
}

func (l *HPOLoader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("HPO owl file not found"))
	}

	classes, err := ReadOWLClasses(l.fetch.Path(d.FilePaths[0]))
	if err != nil {
		return err
	}

	graph := terminology.NewGraph()
	concepts := make([]terminology.Concept, 0, len(classes))

	for _, class := range classes {
		if !strings.HasPrefix(class.Name, "HP_") {
			continue
		}
		conceptID := lastUnderscoreSegment(class.Name)

		status := terminology.StatusActive
		if class.Deprecated {
			status = terminology.StatusDeprecated
		}
		concept := terminology.Concept{
			Prefix:     terminology.PrefixHPO,
			ConceptID:  conceptID,
			Label:      first(class.Labels),
			Definition: first(class.Definitions),
			Comment:    first(class.Comments),
			Status:     status,
		}
		concepts = append(concepts, concept)
		graph.AddNode(conceptID)

		for _, parent := range class.Parents {
			if strings.HasPrefix(parent, "HP_") {
				graph.AddEdge(conceptID, lastUnderscoreSegment(parent), terminology.RelIsA)
			}
		}
		for _, alt := range class.AlternativeIDs {
			graph.AddEdge(lastColonSegment(alt), conceptID, terminology.RelReplacedBy)
		}
		for _, alt := range class.Consider {
			graph.AddEdge(lastColonSegment(alt), conceptID, terminology.RelReplacedBy)
		}
	}

	l.log.Info("HPO classes parsed", "concepts", len(concepts), "edges", graph.EdgeCount())
	return sink(ctx, Payload{Concepts: concepts, Graph: graph})
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func lastUnderscoreSegment(name string) string {
	if i := strings.LastIndexByte(name, '_'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func lastColonSegment(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
