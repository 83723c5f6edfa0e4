package vocab

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const (
	reactomePathwayURL  = "https://artifactory.cafevariome.org/repository/cv3-bioterms/data/reactome/reactome_pathways.csv"
	reactomeReactionURL = "https://artifactory.cafevariome.org/repository/cv3-bioterms/data/reactome/reactome_reactions.csv"
	reactomeMappingURL  = "https://artifactory.cafevariome.org/repository/cv3-bioterms/data/reactome/reactome_pathway_to_reaction.csv"
)

// ReactomeLoader ingests the pre-exported Reactome pathway and reaction
// tables.
type ReactomeLoader struct {
	fetch *Fetcher
	log   *logger.Logger
}

func (l *ReactomeLoader) Descriptor() Descriptor {
	return Descriptor{
		Prefix: terminology.PrefixReactome,
		Name:   "Reactome Pathways",
		FilePaths: []string{
			"reactome/pathway.csv",
			"reactome/reaction.csv",
			"reactome/pathway_to_reaction.csv",
		},
		TimestampFile: "reactome/.timestamp",
	}
}

func (l *ReactomeLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	if err := l.fetch.Download(ctx, reactomePathwayURL, d.FilePaths[0], nil); err != nil {
		return err
	}
	if err := l.fetch.Download(ctx, reactomeReactionURL, d.FilePaths[1], nil); err != nil {
		return err
	}
	if err := l.fetch.Download(ctx, reactomeMappingURL, d.FilePaths[2], nil); err != nil {
		return err
	}
	return l.fetch.WriteTimestamp(d.TimestampFile)
}

func (l *ReactomeLoader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("Reactome release files not found"))
	}

	graph := terminology.NewGraph()
	var concepts []terminology.Concept

	appendTable := func(rel string, conceptType terminology.ConceptType) error {
		table, err := ReadTable(l.fetch.Path(rel), TableOptions{Header: true})
		if err != nil {
			return err
		}
		for _, row := range table.Rows {
			stID := table.Field(row, "st_id")
			if stID == "" {
				continue
			}
			var synonyms []string
			if raw := table.Field(row, "synonyms"); raw != "" {
				synonyms = strings.Split(raw, "|")
			}
			concepts = append(concepts, terminology.Concept{
				Prefix:       terminology.PrefixReactome,
				ConceptID:    stID,
				ConceptTypes: []terminology.ConceptType{conceptType},
				Label:        table.Field(row, "display_name"),
				Synonyms:     synonyms,
				Status:       terminology.StatusActive,
			})
			graph.AddNode(stID)
		}
		return nil
	}

	if err := appendTable(d.FilePaths[0], terminology.TypePathway); err != nil {
		return err
	}
	if err := appendTable(d.FilePaths[1], terminology.TypeReaction); err != nil {
		return err
	}

	mapping, err := ReadTable(l.fetch.Path(d.FilePaths[2]), TableOptions{Header: true})
	if err != nil {
		return err
	}
	for _, row := range mapping.Rows {
		reaction := mapping.Field(row, "reaction")
		pathway := mapping.Field(row, "pathway")
		if reaction != "" && pathway != "" {
			graph.AddEdge(reaction, pathway, terminology.RelPartOf)
		}
	}

	l.log.Info("Reactome tables parsed", "concepts", len(concepts), "edges", graph.EdgeCount())
	return sink(ctx, Payload{Concepts: concepts, Graph: graph})
}
