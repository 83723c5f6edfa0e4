package vocab

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const trudItemCTV3 = 19

// CTV3Loader ingests Clinical Terms Version 3 (Read Codes) from the NHS
// TRUD release.
type CTV3Loader struct {
	fetch *Fetcher
	log   *logger.Logger
}

func (l *CTV3Loader) Descriptor() Descriptor {
	return Descriptor{
		Prefix:            terminology.PrefixCTV3,
		Name:              "Clinical Terms Version 3 (Read Codes)",
		Annotations:       []terminology.Prefix{terminology.PrefixSNOMED},
		SimilarityMethods: []terminology.SimilarityMethod{terminology.SimilarityRelevance},
		FilePaths: []string{
			"ctv3/concept.v3",
			"ctv3/description.v3",
			"ctv3/term.v3",
			"ctv3/hierarchy.v3",
			"ctv3/redundancy.map",
		},
		TimestampFile: "ctv3/.timestamp",
	}
}

func (l *CTV3Loader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	releaseURL, err := l.fetch.TrudReleaseURL(ctx, trudItemCTV3)
	if err != nil {
		return err
	}
	members := []ArchiveMember{
		{Pattern: "V3/Concept.v3", Dest: d.FilePaths[0]},
		{Pattern: "V3/Descrip.v3", Dest: d.FilePaths[1]},
		{Pattern: "V3/Terms.v3", Dest: d.FilePaths[2]},
		{Pattern: "V3/V3hier.v3", Dest: d.FilePaths[3]},
		{Pattern: "V3/Redun.map", Dest: d.FilePaths[4]},
	}
	if err := l.fetch.DownloadArchive(ctx, releaseURL, "ctv3/readctv3.zip", members, nil); err != nil {
		return err
	}
	return l.fetch.WriteTimestamp(d.TimestampFile)
}

// ctv3Terms is one concept's term references split by description type:
// "P" rows carry the preferred term, "S" rows the synonyms.
type ctv3Terms struct {
	preferred []string
	synonyms  []string
}

func (l *CTV3Loader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("CTV3 release files not found"))
	}

	conceptRows, err := readPipeFile(l.fetch.Path(d.FilePaths[0]))
	if err != nil {
		return err
	}
	descriptionRows, err := readPipeFile(l.fetch.Path(d.FilePaths[1]))
	if err != nil {
		return err
	}
	termRows, err := readPipeFile(l.fetch.Path(d.FilePaths[2]))
	if err != nil {
		return err
	}

	// term_id -> (term_30, term_60, term_198); the label is the longest
	// populated form.
	termText := make(map[string]string, len(termRows))
	for _, row := range termRows {
		if len(row) < 1 {
			continue
		}
		termText[row[0]] = pickTermText(field(row, 4), field(row, 3), field(row, 2))
	}

	terms := make(map[string]*ctv3Terms)
	for _, row := range descriptionRows {
		if len(row) < 3 {
			continue
		}
		conceptID, termID, termType := row[0], row[1], row[2]
		group, ok := terms[conceptID]
		if !ok {
			group = &ctv3Terms{}
			terms[conceptID] = group
		}
		switch termType {
		case "P":
			group.preferred = append(group.preferred, termID)
		case "S":
			group.synonyms = append(group.synonyms, termID)
		}
	}

	graph := terminology.NewGraph()
	concepts := make([]terminology.Concept, 0, len(conceptRows))
	for _, row := range conceptRows {
		if len(row) < 2 {
			continue
		}
		conceptID, conceptStatus := row[0], row[1]

		status := terminology.StatusDeprecated
		if conceptStatus == "C" || conceptStatus == "O" {
			status = terminology.StatusActive
		}
		concept := terminology.Concept{
			Prefix:    terminology.PrefixCTV3,
			ConceptID: conceptID,
			Status:    status,
		}
		if group, ok := terms[conceptID]; ok {
			if len(group.preferred) > 0 {
				concept.Label = termText[group.preferred[0]]
			} else if len(group.synonyms) > 0 {
				concept.Label = termText[group.synonyms[0]]
			}
			for _, termID := range group.synonyms {
				if text := termText[termID]; text != "" {
					concept.Synonyms = append(concept.Synonyms, text)
				}
			}
		}
		concepts = append(concepts, concept)
		graph.AddNode(conceptID)
	}

	hierarchyRows, err := readPipeFile(l.fetch.Path(d.FilePaths[3]))
	if err != nil {
		return err
	}
	for _, row := range hierarchyRows {
		if len(row) >= 2 {
			graph.AddEdge(row[0], row[1], terminology.RelIsA)
		}
	}

	redundancyRows, err := readPipeFile(l.fetch.Path(d.FilePaths[4]))
	if err != nil {
		return err
	}
	for _, row := range redundancyRows {
		if len(row) >= 2 {
			// current_id | old_id: the old code was replaced by the
			// current one.
			graph.AddEdge(row[1], row[0], terminology.RelReplacedBy)
		}
	}

	l.log.Info("CTV3 files parsed", "concepts", len(concepts), "edges", graph.EdgeCount())
	return sink(ctx, Payload{Concepts: concepts, Graph: graph})
}

// readPipeFile parses a Read-Codes pipe-delimited file. The V3 files carry
// no quoting, so a raw split is both faster and safer than CSV parsing.
func readPipeFile(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: open %s: %w", path, err)
	}
	defer file.Close()

	var rows [][]string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "|"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	return rows, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func pickTermText(term198, term60, term30 string) string {
	if term198 != "" {
		return term198
	}
	if term60 != "" {
		return term60
	}
	return term30
}
