package annot

import (
	"context"
	"fmt"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

const geneHPOURL = "https://github.com/obophenotype/human-phenotype-ontology/releases/latest/download/genes_to_phenotype.txt"

// hpoFrequencyCodes maps the HP frequency subontology terms to the short
// codes the annotation properties carry.
var hpoFrequencyCodes = map[string]string{
	"0040285": "E",  // Excluded
	"0040284": "VR", // Very rare
	"0040283": "OC", // Occasional
	"0040282": "F",  // Frequent
	"0040281": "VF", // Very frequent
	"0040280": "O",  // Obligate
}

// GeneHPOLoader ingests the HPO genes_to_phenotype association file: gene
// symbols annotated with the phenotypes they cause.
type GeneHPOLoader struct {
	fetch *vocab.Fetcher
	log   *logger.Logger
}

func (l *GeneHPOLoader) Descriptor() Descriptor {
	return Descriptor{
		Name:      "HGNC Gene Symbol Mapping to HPO",
		Prefix1:   terminology.PrefixHGNCSymbol,
		Prefix2:   terminology.PrefixHPO,
		FilePaths: []string{"hpo/gene_mapping.txt"},
	}
}

func (l *GeneHPOLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	return l.fetch.Download(ctx, geneHPOURL, d.FilePaths[0], nil)
}

func (l *GeneHPOLoader) Load(ctx context.Context) ([]terminology.Annotation, error) {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return nil, apierr.FilesNotFound(fmt.Errorf("gene-HPO mapping file not found"))
	}

	table, err := vocab.ReadTable(l.fetch.Path(d.FilePaths[0]), vocab.TableOptions{Comma: '\t', Header: true})
	if err != nil {
		return nil, err
	}

	var annotations []terminology.Annotation
	for _, row := range table.Rows {
		symbol := table.Field(row, "gene_symbol")
		if symbol == "" || symbol == "-" {
			// No corresponding HGNC symbol.
			continue
		}
		frequency := "UN"
		if raw := table.Field(row, "frequency"); raw != "" && raw != "-" {
			if code, ok := hpoFrequencyCodes[lastColonSegment(raw)]; ok {
				frequency = code
			}
		}
		annotations = append(annotations, terminology.Annotation{
			PrefixFrom:    terminology.PrefixHGNCSymbol,
			ConceptIDFrom: symbol,
			PrefixTo:      terminology.PrefixHPO,
			ConceptIDTo:   lastColonSegment(table.Field(row, "hpo_id")),
			Properties:    map[string]string{"frequency": frequency},
		})
	}

	l.log.Info("gene-HPO mapping parsed", "annotations", len(annotations))
	return annotations, nil
}
