package vocab

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const ncitFlatURL = "https://evs.nci.nih.gov/ftp1/NCI_Thesaurus/Thesaurus.FLAT.zip"

// ncitColumns is the fixed schema of the headerless Thesaurus.FLAT export.
var ncitColumns = []string{
	"code",
	"concept_iri",
	"parents",
	"synonyms",
	"definition",
	"display_name",
	"concept_status",
	"semantic_type",
	"concept_in_subset",
}

// NCITLoader ingests the National Cancer Institute Thesaurus flat export.
type NCITLoader struct {
	fetch *Fetcher
	log   *logger.Logger
}

func (l *NCITLoader) Descriptor() Descriptor {
	return Descriptor{
		Prefix:            terminology.PrefixNCIT,
		Name:              "National Cancer Institute Thesaurus",
		Annotations:       []terminology.Prefix{terminology.PrefixHGNCSymbol},
		SimilarityMethods: []terminology.SimilarityMethod{terminology.SimilarityRelevance},
		FilePaths:         []string{"ncit/thesaurus.txt"},
		TimestampFile:     "ncit/.timestamp",
	}
}

func (l *NCITLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	members := []ArchiveMember{{Pattern: "Thesaurus.txt", Dest: d.FilePaths[0]}}
	if err := l.fetch.DownloadArchive(ctx, ncitFlatURL, "ncit/Thesaurus.FLAT.zip", members, nil); err != nil {
		return err
	}
	return l.fetch.WriteTimestamp(d.TimestampFile)
}

func (l *NCITLoader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("NCIT flat file not found"))
	}

	table, err := ReadTable(l.fetch.Path(d.FilePaths[0]), TableOptions{Comma: '\t', Columns: ncitColumns})
	if err != nil {
		return err
	}

	graph := terminology.NewGraph()
	concepts := make([]terminology.Concept, 0, len(table.Rows))

	for _, row := range table.Rows {
		code := table.Field(row, "code")
		if code == "" {
			continue
		}
		// The synonyms column leads with the preferred name.
		synonyms := strings.Split(table.Field(row, "synonyms"), "|")
		label := synonyms[0]
		rest := synonyms[1:]
		if len(rest) == 0 {
			rest = nil
		}

		status := terminology.StatusActive
		if table.Field(row, "concept_status") == "Obsolete_Concept" {
			status = terminology.StatusDeprecated
		}
		concepts = append(concepts, terminology.Concept{
			Prefix:     terminology.PrefixNCIT,
			ConceptID:  code,
			Label:      label,
			Synonyms:   rest,
			Definition: table.Field(row, "definition"),
			Status:     status,
		})
		graph.AddNode(code)

		if parents := table.Field(row, "parents"); parents != "" {
			for _, parent := range strings.Split(parents, "|") {
				graph.AddEdge(code, parent, terminology.RelIsA)
			}
		}
	}

	l.log.Info("NCIT concepts parsed", "concepts", len(concepts), "edges", graph.EdgeCount())
	return sink(ctx, Payload{Concepts: concepts, Graph: graph})
}
