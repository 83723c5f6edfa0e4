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
	hgncSymbolURL    = "https://storage.googleapis.com/public-download-files/hgnc/tsv/tsv/hgnc_complete_set.txt"
	hgncWithdrawnURL = "https://storage.googleapis.com/public-download-files/hgnc/tsv/tsv/withdrawn.txt"

	// hgncMergedColumn carries the merge targets of a withdrawn symbol as
	// "HGNC:1|SYM|Approved" reports joined by ", ".
	hgncMergedColumn = "MERGED_INTO_REPORT(S) (i.e HGNC_ID|SYMBOL|STATUS)"
)

// HGNCLoader ingests the HUGO Gene Nomenclature Committee complete set and
// its withdrawn-symbol companion.
type HGNCLoader struct {
	fetch *Fetcher
	log   *logger.Logger
}

func (l *HGNCLoader) Descriptor() Descriptor {
	return Descriptor{
		Prefix: terminology.PrefixHGNC,
		Name:   "HUGO Gene Nomenclature Committee",
		FilePaths: []string{
			"hgnc/symbol.txt",
			"hgnc/withdrawn.txt",
		},
		TimestampFile: "hgnc/.timestamp",
	}
}

func (l *HGNCLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	if err := l.fetch.Download(ctx, hgncSymbolURL, d.FilePaths[0], nil); err != nil {
		return err
	}
	if err := l.fetch.Download(ctx, hgncWithdrawnURL, d.FilePaths[1], nil); err != nil {
		return err
	}
	return l.fetch.WriteTimestamp(d.TimestampFile)
}

func (l *HGNCLoader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("HGNC release files not found"))
	}

	symbolTable, err := ReadTable(l.fetch.Path(d.FilePaths[0]), TableOptions{Comma: '\t', Header: true})
	if err != nil {
		return err
	}
	withdrawnTable, err := ReadTable(l.fetch.Path(d.FilePaths[1]), TableOptions{Comma: '\t', Header: true})
	if err != nil {
		return err
	}

	graph := terminology.NewGraph()
	var concepts []terminology.Concept
	var annotations []terminology.Annotation

	for _, row := range symbolTable.Rows {
		hgncID := symbolTable.Field(row, "hgnc_id")
		if hgncID == "" {
			continue
		}
		conceptID := lastColonSegment(hgncID)
		symbol := symbolTable.Field(row, "symbol")

		var synonyms []string
		if aliases := symbolTable.Field(row, "alias_symbol"); aliases != "" {
			for _, alias := range strings.Split(aliases, "|") {
				synonyms = append(synonyms, alias)
				annotations = append(annotations, terminology.Annotation{
					PrefixFrom:    terminology.PrefixHGNC,
					ConceptIDFrom: conceptID,
					PrefixTo:      terminology.PrefixHGNCSymbol,
					ConceptIDTo:   alias,
					Type:          terminology.AnnotationHasSymbol,
				})
			}
		}
		if names := symbolTable.Field(row, "alias_name"); names != "" {
			synonyms = append(synonyms, strings.Split(names, "|")...)
		}

		location := symbolTable.Field(row, "location_sortable")
		if location == "" {
			location = symbolTable.Field(row, "location")
		}

		status := terminology.StatusDeprecated
		if symbolTable.Field(row, "status") == "Approved" {
			status = terminology.StatusActive
		}
		concepts = append(concepts, terminology.Concept{
			Prefix:     terminology.PrefixHGNC,
			ConceptID:  conceptID,
			Label:      symbol,
			Synonyms:   synonyms,
			Definition: symbolTable.Field(row, "name"),
			Location:   location,
			Status:     status,
		})
		graph.AddNode(conceptID)
		annotations = append(annotations, terminology.Annotation{
			PrefixFrom:    terminology.PrefixHGNC,
			ConceptIDFrom: conceptID,
			PrefixTo:      terminology.PrefixHGNCSymbol,
			ConceptIDTo:   symbol,
			Type:          terminology.AnnotationHasSymbol,
		})
	}

	for _, row := range withdrawnTable.Rows {
		if withdrawnTable.Field(row, "STATUS") == "Entry Withdrawn" {
			continue
		}
		hgncID := withdrawnTable.Field(row, "HGNC_ID")
		if hgncID == "" {
			continue
		}
		conceptID := lastColonSegment(hgncID)
		withdrawnSymbol := withdrawnTable.Field(row, "WITHDRAWN_SYMBOL")

		concepts = append(concepts, terminology.Concept{
			Prefix:    terminology.PrefixHGNC,
			ConceptID: conceptID,
			Label:     withdrawnSymbol,
			Status:    terminology.StatusDeprecated,
		})
		graph.AddNode(conceptID)

		for _, report := range strings.Split(withdrawnTable.Field(row, hgncMergedColumn), ", ") {
			target := strings.Split(report, "|")[0]
			if !strings.Contains(target, ":") {
				continue
			}
			graph.AddEdge(conceptID, lastColonSegment(target), terminology.RelReplacedBy)
			annotations = append(annotations, terminology.Annotation{
				PrefixFrom:    terminology.PrefixHGNC,
				ConceptIDFrom: conceptID,
				PrefixTo:      terminology.PrefixHGNCSymbol,
				ConceptIDTo:   withdrawnSymbol,
				Type:          terminology.AnnotationHasSymbol,
			})
		}
	}

	l.log.Info("HGNC rows parsed",
		"concepts", len(concepts),
		"edges", graph.EdgeCount(),
		"annotations", len(annotations),
	)
	return sink(ctx, Payload{Concepts: concepts, Graph: graph, Annotations: annotations})
}
