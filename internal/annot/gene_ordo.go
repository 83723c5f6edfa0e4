package annot

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

const geneORDOURL = "https://www.orphadata.com/data/xml/en_product6.xml"

// GeneORDOLoader ingests the Orphanet en_product6 export: disorders and
// their associated gene symbols.
type GeneORDOLoader struct {
	fetch *vocab.Fetcher
	log   *logger.Logger
}

func (l *GeneORDOLoader) Descriptor() Descriptor {
	return Descriptor{
		Name:      "ORDO Mapping to HGNC Gene Symbol",
		Prefix1:   terminology.PrefixORDO,
		Prefix2:   terminology.PrefixHGNCSymbol,
		FilePaths: []string{"ordo/gene_mapping.xml"},
	}
}

func (l *GeneORDOLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	return l.fetch.Download(ctx, geneORDOURL, d.FilePaths[0], nil)
}

// product6Disorder is one Disorder element of the en_product6 tree.
type product6Disorder struct {
	OrphaCode    string `xml:"OrphaCode"`
	Associations []struct {
		Symbol string `xml:"Gene>Symbol"`
	} `xml:"DisorderGeneAssociationList>DisorderGeneAssociation"`
}

func (l *GeneORDOLoader) Load(ctx context.Context) ([]terminology.Annotation, error) {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return nil, apierr.FilesNotFound(fmt.Errorf("ORDO gene mapping file not found"))
	}

	file, err := os.Open(l.fetch.Path(d.FilePaths[0]))
	if err != nil {
		return nil, fmt.Errorf("annot: open %s: %w", d.FilePaths[0], err)
	}
	defer file.Close()

	// Stream Disorder elements; the export runs to hundreds of megabytes.
	var annotations []terminology.Annotation
	decoder := xml.NewDecoder(file)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apierr.Parse(fmt.Errorf("ORDO gene mapping: %w", err))
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "Disorder" {
			continue
		}
		var disorder product6Disorder
		if err := decoder.DecodeElement(&disorder, &start); err != nil {
			return nil, apierr.Parse(fmt.Errorf("ORDO gene mapping disorder: %w", err))
		}
		for _, association := range disorder.Associations {
			if association.Symbol == "" {
				continue
			}
			annotations = append(annotations, terminology.Annotation{
				PrefixFrom:    terminology.PrefixORDO,
				ConceptIDFrom: disorder.OrphaCode,
				PrefixTo:      terminology.PrefixHGNCSymbol,
				ConceptIDTo:   association.Symbol,
			})
		}
	}

	l.log.Info("ORDO gene mapping parsed", "annotations", len(annotations))
	return annotations, nil
}
