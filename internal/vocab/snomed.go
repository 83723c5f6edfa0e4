package vocab

import (
	"context"
	"fmt"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// NHS TRUD item numbers for the three SNOMED CT releases.
const (
	trudItemSnomedInternational = 4
	trudItemSnomedUKClinical    = 101
	trudItemSnomedUKDrug        = 105
)

// RF2 concrete-value identifiers.
const (
	snomedFullyDefinedStatus = "900000000000073002"
	snomedFSNTypeID          = "900000000000003001"
	snomedIsATypeID          = "116680003"
	snomedReplacedByTypeID   = "370124000"
)

// snomedRelease groups one release's four RF2 terminology files.
type snomedRelease struct {
	name         string
	memberPrefix string
	concept      string
	description  string
	definition   string
	relationship string
}

func snomedReleases() []snomedRelease {
	build := func(name, memberPrefix string) snomedRelease {
		return snomedRelease{
			name:         name,
			memberPrefix: memberPrefix,
			concept:      fmt.Sprintf("snomed/%s/concept.txt", name),
			description:  fmt.Sprintf("snomed/%s/description.txt", name),
			definition:   fmt.Sprintf("snomed/%s/definition.txt", name),
			relationship: fmt.Sprintf("snomed/%s/relationship.txt", name),
		}
	}
	return []snomedRelease{
		build("international", "SnomedCT_InternationalRF2*"),
		build("uk_clinical", "SnomedCT_UKClinicalRF2*"),
		build("uk_drug", "SnomedCT_UKDrugRF2*"),
	}
}

// SnomedLoader ingests the International, UK Clinical, and UK Drug SNOMED CT
// releases from NHS TRUD.
type SnomedLoader struct {
	fetch *Fetcher
	log   *logger.Logger
}

func (l *SnomedLoader) Descriptor() Descriptor {
	var paths []string
	for _, release := range snomedReleases() {
		paths = append(paths, release.concept, release.description, release.definition, release.relationship)
	}
	return Descriptor{
		Prefix: terminology.PrefixSNOMED,
		Name:   "SNOMED Clinical Terms",
		Annotations: []terminology.Prefix{
			terminology.PrefixCTV3,
			terminology.PrefixORDO,
		},
		SimilarityMethods: []terminology.SimilarityMethod{
			terminology.SimilarityRelevance,
			terminology.SimilarityCoAnnotation,
		},
		FilePaths:     paths,
		TimestampFile: "snomed/.timestamp",
	}
}

func (l *SnomedLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}

	items := []int{trudItemSnomedInternational, trudItemSnomedUKClinical, trudItemSnomedUKDrug}
	for i, release := range snomedReleases() {
		releaseURL, err := l.fetch.TrudReleaseURL(ctx, items[i])
		if err != nil {
			return err
		}
		members := []ArchiveMember{
			{Pattern: release.memberPrefix + "/Full/Terminology/sct2_Concept*.txt", Dest: release.concept},
			{Pattern: release.memberPrefix + "/Full/Terminology/sct2_Description*.txt", Dest: release.description},
			{Pattern: release.memberPrefix + "/Full/Terminology/sct2_TextDefinition*.txt", Dest: release.definition},
			{Pattern: release.memberPrefix + "/Full/Terminology/sct2_Relationship_*.txt", Dest: release.relationship},
		}
		if err := l.fetch.DownloadArchive(ctx, releaseURL, fmt.Sprintf("snomed/%s.zip", release.name), members, nil); err != nil {
			return err
		}
	}
	return l.fetch.WriteTimestamp(d.TimestampFile)
}

// Load parses the three releases sequentially, handing each to the sink on
// its own so only one release is resident at a time.
func (l *SnomedLoader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("SNOMED release files not found"))
	}

	for _, release := range snomedReleases() {
		payload, err := l.loadRelease(release)
		if err != nil {
			return err
		}
		l.log.Info("SNOMED release parsed",
			"release", release.name,
			"concepts", len(payload.Concepts),
			"edges", payload.Graph.EdgeCount(),
		)
		if err := sink(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

func (l *SnomedLoader) loadRelease(release snomedRelease) (Payload, error) {
	concepts := make(map[string]*terminology.Concept)
	var order []string

	conceptTable, err := ReadRF2(l.fetch.Path(release.concept))
	if err != nil {
		return Payload{}, err
	}
	for _, row := range conceptTable.Rows {
		id := conceptTable.Field(row, "id")
		fullyDefined := conceptTable.Field(row, "definitionStatusId") == snomedFullyDefinedStatus
		status := terminology.StatusActive
		if conceptTable.Field(row, "active") == "0" {
			status = terminology.StatusDeprecated
		}
		concepts[id] = &terminology.Concept{
			Prefix:       terminology.PrefixSNOMED,
			ConceptID:    id,
			FullyDefined: &fullyDefined,
			Status:       status,
		}
		order = append(order, id)
	}

	descriptionTable, err := ReadRF2(l.fetch.Path(release.description))
	if err != nil {
		return Payload{}, err
	}
	for _, row := range descriptionTable.Rows {
		conceptID := descriptionTable.Field(row, "conceptId")
		concept, ok := concepts[conceptID]
		if !ok {
			// Descriptions occasionally reference concepts outside the
			// concept file; carry them without a status.
			concept = &terminology.Concept{
				Prefix:    terminology.PrefixSNOMED,
				ConceptID: conceptID,
			}
			concepts[conceptID] = concept
			order = append(order, conceptID)
		}
		term := descriptionTable.Field(row, "term")
		if descriptionTable.Field(row, "typeId") == snomedFSNTypeID {
			concept.Label = term
		} else {
			concept.Synonyms = append(concept.Synonyms, term)
		}
	}

	definitionTable, err := ReadRF2(l.fetch.Path(release.definition))
	if err != nil {
		return Payload{}, err
	}
	for _, row := range definitionTable.Rows {
		conceptID := definitionTable.Field(row, "conceptId")
		concept, ok := concepts[conceptID]
		if !ok {
			return Payload{}, apierr.Parse(fmt.Errorf("SNOMED definition references unknown concept %s", conceptID))
		}
		concept.Definition = definitionTable.Field(row, "term")
	}

	graph := terminology.NewGraph()
	out := make([]terminology.Concept, 0, len(order))
	for _, id := range order {
		out = append(out, *concepts[id])
		graph.AddNode(id)
	}

	relationshipTable, err := ReadRF2(l.fetch.Path(release.relationship))
	if err != nil {
		return Payload{}, err
	}
	for _, row := range relationshipTable.Rows {
		source := relationshipTable.Field(row, "sourceId")
		destination := relationshipTable.Field(row, "destinationId")
		switch relationshipTable.Field(row, "typeId") {
		case snomedIsATypeID:
			graph.AddEdge(source, destination, terminology.RelIsA)
		case snomedReplacedByTypeID:
			graph.AddEdge(source, destination, terminology.RelReplacedBy)
		}
	}

	return Payload{Concepts: out, Graph: graph}, nil
}
