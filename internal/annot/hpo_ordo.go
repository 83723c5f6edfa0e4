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

const hoomOWLURL = "https://data.bioontology.org/ontologies/HOOM/download"

// HOOMLoader ingests the HPO-ORDO Ontological Module: Orphanet disorders
// annotated with HPO phenotypes and a frequency code.
type HOOMLoader struct {
	fetch *vocab.Fetcher
	log   *logger.Logger
}

func (l *HOOMLoader) Descriptor() Descriptor {
	return Descriptor{
		Name:      "HPO - ORDO Ontological Module",
		Prefix1:   terminology.PrefixORDO,
		Prefix2:   terminology.PrefixHPO,
		FilePaths: []string{"hoom/hoom_orphanet.owl"},
	}
}

func (l *HOOMLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	headers, err := l.fetch.BioPortalHeaders()
	if err != nil {
		return err
	}
	return l.fetch.Download(ctx, hoomOWLURL, d.FilePaths[0], headers)
}

// Load parses the HOOM classes. Association classes are named
// "Orpha:<ordo>_HP:<hpo>_<scheme>:<frequency>"; everything else is scaffold.
func (l *HOOMLoader) Load(ctx context.Context) ([]terminology.Annotation, error) {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return nil, apierr.FilesNotFound(fmt.Errorf("HOOM owl file not found"))
	}

	classes, err := vocab.ReadOWLClasses(l.fetch.Path(d.FilePaths[0]))
	if err != nil {
		return nil, err
	}

	var annotations []terminology.Annotation
	for _, class := range classes {
		if !strings.HasPrefix(class.Name, "Orpha:") {
			continue
		}
		parts := strings.SplitN(class.Name, "_", 3)
		if len(parts) != 3 {
			continue
		}
		ordoID := afterColon(parts[0])
		hpoID := afterColon(parts[1])
		frequency := afterColon(parts[2])
		if ordoID == "" || hpoID == "" {
			continue
		}
		annotations = append(annotations, terminology.Annotation{
			PrefixFrom:    terminology.PrefixORDO,
			ConceptIDFrom: ordoID,
			PrefixTo:      terminology.PrefixHPO,
			ConceptIDTo:   hpoID,
			Properties:    map[string]string{"frequency": frequency},
		})
	}

	l.log.Info("HOOM classes parsed", "annotations", len(annotations))
	return annotations, nil
}

func afterColon(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

func lastColonSegment(s string) string {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}
