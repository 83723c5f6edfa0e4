package annot

import (
	"context"
	"fmt"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

// The Orphanet map package is distributed through the NLM UMLS download
// service, not TRUD.
const ordoSnomedPackageURL = "https://download.nlm.nih.gov/umls/kss/IHTSDO2025/IHTSDO20250701/SnomedCT_SNOMEDOrphanetMapPackage_PRODUCTION_20250930T120000Z.zip"

// ORDOSnomedLoader ingests the SNOMED CT Orphanet SimpleMap refset.
type ORDOSnomedLoader struct {
	fetch *vocab.Fetcher
	log   *logger.Logger
}

func (l *ORDOSnomedLoader) Descriptor() Descriptor {
	return Descriptor{
		Name:      "SNOMED CT Orphanet Map package",
		Prefix1:   terminology.PrefixSNOMED,
		Prefix2:   terminology.PrefixORDO,
		FilePaths: []string{"snomed/orphanet_map/mapping.txt"},
	}
}

func (l *ORDOSnomedLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	releaseURL, err := l.fetch.UMLSDownloadURL(ordoSnomedPackageURL)
	if err != nil {
		return err
	}
	members := []vocab.ArchiveMember{
		{Pattern: "SnomedCT_SNOMEDOrphanetMapPackage*/Full/Refset/Map/der2_sRefset_OrphanetSimpleMapFull*.txt", Dest: d.FilePaths[0]},
	}
	return l.fetch.DownloadArchive(ctx, releaseURL, "snomed/orphanet_map.zip", members, nil)
}

func (l *ORDOSnomedLoader) Load(ctx context.Context) ([]terminology.Annotation, error) {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return nil, apierr.FilesNotFound(fmt.Errorf("SNOMED Orphanet mapping file not found"))
	}

	table, err := vocab.ReadRF2(l.fetch.Path(d.FilePaths[0]))
	if err != nil {
		return nil, err
	}

	annotations := make([]terminology.Annotation, 0, len(table.Rows))
	for _, row := range table.Rows {
		// Retired map members stay in the Full refset; only active rows
		// count.
		if table.Field(row, "active") == "0" {
			continue
		}
		source := table.Field(row, "referencedComponentId")
		target := table.Field(row, "mapTarget")
		if source == "" || target == "" {
			continue
		}
		annotations = append(annotations, terminology.Annotation{
			PrefixFrom:    terminology.PrefixSNOMED,
			ConceptIDFrom: source,
			PrefixTo:      terminology.PrefixORDO,
			ConceptIDTo:   target,
		})
	}

	l.log.Info("SNOMED-ORDO mapping parsed", "annotations", len(annotations))
	return annotations, nil
}
