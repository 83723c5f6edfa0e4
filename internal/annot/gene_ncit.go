package annot

import (
	"context"
	"fmt"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

const geneNCITURL = "https://evs.nci.nih.gov/ftp1/NCI_Thesaurus/Mappings/NCIt-HGNC_Mapping.txt"

// GeneNCITLoader ingests the NCIt to HGNC gene mapping.
type GeneNCITLoader struct {
	fetch *vocab.Fetcher
	log   *logger.Logger
}

func (l *GeneNCITLoader) Descriptor() Descriptor {
	return Descriptor{
		Name:      "NCIT Mapping to HGNC Gene Symbol",
		Prefix1:   terminology.PrefixNCIT,
		Prefix2:   terminology.PrefixHGNCSymbol,
		FilePaths: []string{"ncit/gene_mapping.txt"},
	}
}

func (l *GeneNCITLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	return l.fetch.Download(ctx, geneNCITURL, d.FilePaths[0], nil)
}

func (l *GeneNCITLoader) Load(ctx context.Context) ([]terminology.Annotation, error) {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return nil, apierr.FilesNotFound(fmt.Errorf("NCIT-HGNC symbol mapping file not found"))
	}

	table, err := vocab.ReadTable(l.fetch.Path(d.FilePaths[0]), vocab.TableOptions{
		Comma:   '\t',
		Columns: []string{"ncit_id", "hgnc_id"},
	})
	if err != nil {
		return nil, err
	}

	annotations := make([]terminology.Annotation, 0, len(table.Rows))
	for _, row := range table.Rows {
		ncitID := table.Field(row, "ncit_id")
		hgncID := table.Field(row, "hgnc_id")
		if ncitID == "" || hgncID == "" {
			continue
		}
		annotations = append(annotations, terminology.Annotation{
			PrefixFrom:    terminology.PrefixNCIT,
			ConceptIDFrom: ncitID,
			PrefixTo:      terminology.PrefixHGNCSymbol,
			ConceptIDTo:   lastColonSegment(hgncID),
		})
	}

	l.log.Info("NCIT-HGNC mapping parsed", "annotations", len(annotations))
	return annotations, nil
}
