package annot

import (
	"context"
	"fmt"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

// The SimpleMap refset ships inside the SNOMED International release,
// TRUD item 4.
const trudItemSnomedInternational = 4

// CTV3SnomedLoader ingests the SNOMED CT to CTV3 SimpleMap refset.
type CTV3SnomedLoader struct {
	fetch *vocab.Fetcher
	log   *logger.Logger
}

func (l *CTV3SnomedLoader) Descriptor() Descriptor {
	return Descriptor{
		Name:      "SNOMED Mapping to CTV3",
		Prefix1:   terminology.PrefixSNOMED,
		Prefix2:   terminology.PrefixCTV3,
		FilePaths: []string{"snomed/international/ctv3_snomed_map.txt"},
	}
}

func (l *CTV3SnomedLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	releaseURL, err := l.fetch.TrudReleaseURL(ctx, trudItemSnomedInternational)
	if err != nil {
		return err
	}
	members := []vocab.ArchiveMember{
		{Pattern: "SnomedCT_InternationalRF2*/Full/Refset/Map/der2_sRefset_SimpleMapFull_INT*.txt", Dest: d.FilePaths[0]},
	}
	return l.fetch.DownloadArchive(ctx, releaseURL, "snomed/simple_map.zip", members, nil)
}

func (l *CTV3SnomedLoader) Load(ctx context.Context) ([]terminology.Annotation, error) {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return nil, apierr.FilesNotFound(fmt.Errorf("CTV3 to SNOMED mapping file not found"))
	}

	table, err := vocab.ReadRF2(l.fetch.Path(d.FilePaths[0]))
	if err != nil {
		return nil, err
	}

	annotations := make([]terminology.Annotation, 0, len(table.Rows))
	for _, row := range table.Rows {
		source := table.Field(row, "referencedComponentId")
		target := table.Field(row, "mapTarget")
		if source == "" || target == "" {
			continue
		}
		annotations = append(annotations, terminology.Annotation{
			PrefixFrom:    terminology.PrefixSNOMED,
			ConceptIDFrom: source,
			PrefixTo:      terminology.PrefixCTV3,
			ConceptIDTo:   target,
		})
	}

	l.log.Info("SNOMED-CTV3 mapping parsed", "annotations", len(annotations))
	return annotations, nil
}
