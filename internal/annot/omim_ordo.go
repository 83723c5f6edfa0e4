package annot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

const omimORDOURL = "https://www.orphadata.com/data/json/en_product1.json.tar.gz"

// OMIMORDOLoader ingests the Orphanet en_product1 alignment: disorders and
// their external references into OMIM.
type OMIMORDOLoader struct {
	fetch *vocab.Fetcher
	log   *logger.Logger
}

func (l *OMIMORDOLoader) Descriptor() Descriptor {
	return Descriptor{
		Name:      "ORDO - OMIM Alignment Data",
		Prefix1:   terminology.PrefixORDO,
		Prefix2:   terminology.PrefixOMIM,
		FilePaths: []string{"ordo/alignment.json"},
	}
}

func (l *OMIMORDOLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	tarRel := "ordo/omim_alignment.json.tar.gz"
	if err := l.fetch.Download(ctx, omimORDOURL, tarRel, nil); err != nil {
		return err
	}
	defer l.fetch.Remove(tarRel)
	members := []vocab.ArchiveMember{
		{Pattern: "en_product1.json", Dest: l.fetch.Path(d.FilePaths[0])},
	}
	return vocab.ExtractFromTarGz(l.fetch.Path(tarRel), members)
}

// flexString decodes a JSON value that Orphanet emits sometimes as a
// string and sometimes as a number.
type flexString string

func (s *flexString) UnmarshalJSON(raw []byte) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
		*s = flexString(value)
		return nil
	}
	var value json.Number
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	*s = flexString(value.String())
	return nil
}

type product1Alignment struct {
	JDBOR []struct {
		DisorderList []struct {
			Disorder []struct {
				OrphaCode             flexString `json:"OrphaCode"`
				ExternalReferenceList []struct {
					Count             flexString `json:"count"`
					ExternalReference []struct {
						Source    string     `json:"Source"`
						Reference flexString `json:"Reference"`
					} `json:"ExternalReference"`
				} `json:"ExternalReferenceList"`
			} `json:"Disorder"`
		} `json:"DisorderList"`
	} `json:"JDBOR"`
}

func (l *OMIMORDOLoader) Load(ctx context.Context) ([]terminology.Annotation, error) {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return nil, apierr.FilesNotFound(fmt.Errorf("ORDO alignment file not found"))
	}

	raw, err := os.ReadFile(l.fetch.Path(d.FilePaths[0]))
	if err != nil {
		return nil, fmt.Errorf("annot: read %s: %w", d.FilePaths[0], err)
	}
	var alignment product1Alignment
	if err := json.Unmarshal(raw, &alignment); err != nil {
		return nil, apierr.Parse(fmt.Errorf("ORDO alignment: %w", err))
	}

	var annotations []terminology.Annotation
	for _, jdbor := range alignment.JDBOR {
		for _, list := range jdbor.DisorderList {
			for _, disorder := range list.Disorder {
				for _, references := range disorder.ExternalReferenceList {
					if count, err := strconv.Atoi(string(references.Count)); err == nil && count == 0 {
						continue
					}
					for _, reference := range references.ExternalReference {
						if reference.Source != "OMIM" {
							continue
						}
						annotations = append(annotations, terminology.Annotation{
							PrefixFrom:    terminology.PrefixORDO,
							ConceptIDFrom: string(disorder.OrphaCode),
							PrefixTo:      terminology.PrefixOMIM,
							ConceptIDTo:   string(reference.Reference),
						})
					}
				}
			}
		}
	}

	l.log.Info("ORDO-OMIM alignment parsed", "annotations", len(annotations))
	return annotations, nil
}
