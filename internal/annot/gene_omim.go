package annot

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

// The gene mapping lives in the same BioPortal OMIM export the vocabulary
// loader consumes; one upstream revision pointed this download at the
// NCIt-HGNC mapping by mistake.
const omimCSVURL = "https://data.bioontology.org/ontologies/OMIM/download?download_format=csv"

// GeneOMIMLoader ingests the Gene Symbol column of the OMIM export.
type GeneOMIMLoader struct {
	fetch *vocab.Fetcher
	log   *logger.Logger
}

func (l *GeneOMIMLoader) Descriptor() Descriptor {
	return Descriptor{
		Name:      "OMIM Mapping to HGNC Gene Symbol",
		Prefix1:   terminology.PrefixOMIM,
		Prefix2:   terminology.PrefixHGNCSymbol,
		FilePaths: []string{"omim/omim.csv"},
	}
}

func (l *GeneOMIMLoader) Download(ctx context.Context) error {
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
	return vocab.ExtractFromGzip(l.fetch.Path(gzRel), l.fetch.Path(d.FilePaths[0]))
}

func (l *GeneOMIMLoader) Load(ctx context.Context) ([]terminology.Annotation, error) {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return nil, apierr.FilesNotFound(fmt.Errorf("OMIM gene mapping file not found"))
	}

	table, err := vocab.ReadTable(l.fetch.Path(d.FilePaths[0]), vocab.TableOptions{Header: true})
	if err != nil {
		return nil, err
	}

	var annotations []terminology.Annotation
	for _, row := range table.Rows {
		symbols := table.Field(row, "Gene Symbol")
		classID := table.Field(row, "Class ID")
		if symbols == "" || classID == "" {
			continue
		}
		omimID := lastSlashSegment(classID)
		for _, symbol := range strings.Split(symbols, "|") {
			annotations = append(annotations, terminology.Annotation{
				PrefixFrom:    terminology.PrefixOMIM,
				ConceptIDFrom: omimID,
				PrefixTo:      terminology.PrefixHGNCSymbol,
				ConceptIDTo:   symbol,
			})
		}
	}

	l.log.Info("OMIM gene mapping parsed", "annotations", len(annotations))
	return annotations, nil
}

func lastSlashSegment(iri string) string {
	if i := strings.LastIndexByte(iri, '/'); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
