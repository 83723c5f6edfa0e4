package vocab

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const omimCSVURL = "https://data.bioontology.org/ontologies/OMIM/download?download_format=csv"

// OMIMLoader ingests Online Mendelian Inheritance in Man from the BioPortal
// CSV export.
type OMIMLoader struct {
	fetch *Fetcher
	log   *logger.Logger
}

func (l *OMIMLoader) Descriptor() Descriptor {
	return Descriptor{
		Prefix:            terminology.PrefixOMIM,
		Name:   "Online Mendelian Inheritance in Man",
		Annotations: []terminology.Prefix{
			terminology.PrefixORDO,
			terminology.PrefixHGNCSymbol,
		},
		SimilarityMethods: []terminology.SimilarityMethod{terminology.SimilarityRelevance},
		FilePaths:         []string{"omim/omim.csv"},
		TimestampFile:     "omim/.timestamp",
	}
}

func (l *OMIMLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	headers, err := l.fetch.BioPortalHeaders()
	if err != nil {
		return err
	}

	gzRel := "omim/omim.gz"
	if err := l.fetch.Download(ctx, omimCSVURL, gzRel, headers); err != nil {
		return err
	}
	defer l.fetch.Remove(gzRel)
	if err := ExtractFromGzip(l.fetch.Path(gzRel), l.fetch.Path(d.FilePaths[0])); err != nil {
		return err
	}
	return l.fetch.WriteTimestamp(d.TimestampFile)
}

func (l *OMIMLoader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("OMIM CSV file not found"))
	}

	table, err := ReadTable(l.fetch.Path(d.FilePaths[0]), TableOptions{Header: true})
	if err != nil {
		return err
	}

	graph := terminology.NewGraph()
	concepts := make([]terminology.Concept, 0, len(table.Rows))

	for _, row := range table.Rows {
		classID := table.Field(row, "Class ID")
		if classID == "" {
			continue
		}
		conceptID := lastSlashSegment(classID)

		var synonyms []string
		if raw := table.Field(row, "Synonyms"); raw != "" {
			synonyms = strings.Split(raw, "|")
		}
		status := terminology.StatusActive
		if strings.EqualFold(table.Field(row, "Obsolete"), "true") {
			status = terminology.StatusDeprecated
		}
		concepts = append(concepts, terminology.Concept{
			Prefix:    terminology.PrefixOMIM,
			ConceptID: conceptID,
			Label:     table.Field(row, "Preferred Label"),
			Synonyms:  synonyms,
			Status:    status,
		})
		graph.AddNode(conceptID)

		if parents := table.Field(row, "Parents"); parents != "" {
			for _, parent := range strings.Split(parents, "|") {
				graph.AddEdge(conceptID, lastSlashSegment(parent), terminology.RelIsA)
			}
		}
		if movedFrom := table.Field(row, "Moved from"); movedFrom != "" {
			graph.AddEdge(lastSlashSegment(movedFrom), conceptID, terminology.RelReplacedBy)
		}
	}

	l.log.Info("OMIM concepts parsed", "concepts", len(concepts), "edges", graph.EdgeCount())
	return sink(ctx, Payload{Concepts: concepts, Graph: graph})
}

func lastSlashSegment(iri string) string {
	if i := strings.LastIndexByte(iri, '/'); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
