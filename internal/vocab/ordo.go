package vocab

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const ordoOWLURL = "https://data.bioontology.org/ontologies/ORDO/download"

// movedToProperty is Orphanet's "moved to" relation: the restriction filler
// is the term that replaces a deprecated one.
const movedToProperty = "Orphanet_C056"

// partOfProperty is BFO "part of"; ORDO models classification group
// membership with it and it counts as hierarchy here.
const partOfProperty = "BFO_0000050"

// ORDOLoader ingests the Orphanet Rare Disease Ontology from BioPortal.
type ORDOLoader struct {
	fetch *Fetcher
	log   *logger.Logger
}

func (l *ORDOLoader) Descriptor() Descriptor {
	return Descriptor{
		Prefix:            terminology.PrefixORDO,
		Name:              "Orphanet Rare Disease Ontology",
		Annotations: []terminology.Prefix{
			terminology.PrefixHPO,
			terminology.PrefixSNOMED,
			terminology.PrefixOMIM,
			terminology.PrefixHGNCSymbol,
		},
		SimilarityMethods: []terminology.SimilarityMethod{terminology.SimilarityRelevance},
		FilePaths:         []string{"ordo/ordo_orphanet.owl"},
		TimestampFile:     "ordo/.timestamp",
	}
}

func (l *ORDOLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	headers, err := l.fetch.BioPortalHeaders()
	if err != nil {
		return err
	}
	if err := l.fetch.Download(ctx, ordoOWLURL, d.FilePaths[0], headers); err != nil {
		return err
	}
	return l.fetch.WriteTimestamp(d.TimestampFile)
}

func (l *ORDOLoader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("ORDO owl file not found"))
	}

	classes, err := ReadOWLClasses(l.fetch.Path(d.FilePaths[0]))
	if err != nil {
		return err
	}

	graph := terminology.NewGraph()
	concepts := make([]terminology.Concept, 0, len(classes))

	for _, class := range classes {
		if !strings.HasPrefix(class.Name, "Orphanet_") {
			continue
		}
		conceptID := lastUnderscoreSegment(class.Name)

		concept := terminology.Concept{
			Prefix:     terminology.PrefixORDO,
			ConceptID:  conceptID,
			Label:      first(class.Labels),
			Definition: first(class.Definitions),
			Synonyms:   class.Synonyms,
			Status:     terminology.StatusActive,
		}
		graph.AddNode(conceptID)

		for _, parent := range class.Parents {
			if strings.HasPrefix(parent, "Orphanet_") {
				graph.AddEdge(conceptID, lastUnderscoreSegment(parent), terminology.RelIsA)
			}
		}
		for _, restriction := range class.Restrictions {
			switch {
			case restriction.Property == movedToProperty:
				concept.Status = terminology.StatusDeprecated
				if strings.HasPrefix(restriction.Value, "Orphanet_") {
					graph.AddEdge(conceptID, lastUnderscoreSegment(restriction.Value), terminology.RelReplacedBy)
				}
			case strings.HasPrefix(restriction.Property, partOfProperty):
				if strings.HasPrefix(restriction.Value, "Orphanet_") {
					graph.AddEdge(conceptID, lastUnderscoreSegment(restriction.Value), terminology.RelIsA)
				}
			}
		}

		concepts = append(concepts, concept)
	}

	l.log.Info("ORDO classes parsed", "concepts", len(concepts), "edges", graph.EdgeCount())
	return sink(ctx, Payload{Concepts: concepts, Graph: graph})
}
