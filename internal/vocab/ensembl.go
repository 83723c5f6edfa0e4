package vocab

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const ensemblGTFURL = "https://ftp.ensembl.org/pub/release-113/gtf/homo_sapiens/Homo_sapiens.GRCh38.113.gtf.gz"

// gtfAttributePattern picks `key "value"` pairs out of the GTF attribute
// column.
var gtfAttributePattern = regexp.MustCompile(`(\S+)\s"([^"]+)"`)

// EnsemblLoader ingests the human Ensembl annotation GTF: genes,
// transcripts, exons, and proteins, chained with PART_OF edges and linked
// to gene symbols via HAS_SYMBOL annotations.
type EnsemblLoader struct {
	fetch *Fetcher
	guard GeneSymbolGuard
	log   *logger.Logger
}

func (l *EnsemblLoader) Descriptor() Descriptor {
	return Descriptor{
		Prefix:        terminology.PrefixEnsembl,
		Name:          "Ensembl",
		FilePaths:     []string{"ensembl/homo-sapien.gtf"},
		TimestampFile: "ensembl/.timestamp",
	}
}

func (l *EnsemblLoader) Download(ctx context.Context) error {
	d := l.Descriptor()
	if l.fetch.FilesExist(d.FilePaths) {
		return nil
	}
	gzRel := "ensembl/homo-sapien.gz"
	if err := l.fetch.Download(ctx, ensemblGTFURL, gzRel, nil); err != nil {
		return err
	}
	defer l.fetch.Remove(gzRel)
	if err := ExtractFromGzip(l.fetch.Path(gzRel), l.fetch.Path(d.FilePaths[0])); err != nil {
		return err
	}
	return l.fetch.WriteTimestamp(d.TimestampFile)
}

func (l *EnsemblLoader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("Ensembl gtf file not found"))
	}
	// Every gene annotation links into the symbol vocabulary, so that one
	// has to be in place first.
	if l.guard != nil {
		if err := l.guard(ctx); err != nil {
			return err
		}
	}

	file, err := os.Open(l.fetch.Path(d.FilePaths[0]))
	if err != nil {
		return fmt.Errorf("vocab: open %s: %w", d.FilePaths[0], err)
	}
	defer file.Close()

	graph := terminology.NewGraph()
	var annotations []terminology.Annotation

	type bucket struct {
		concepts []terminology.Concept
		seen     map[string]struct{}
	}
	newBucket := func() *bucket { return &bucket{seen: make(map[string]struct{})} }
	genes, transcripts, exons, proteins := newBucket(), newBucket(), newBucket(), newBucket()
	add := func(b *bucket, c terminology.Concept) bool {
		if _, ok := b.seen[c.ConceptID]; ok {
			return false
		}
		b.seen[c.ConceptID] = struct{}{}
		b.concepts = append(b.concepts, c)
		graph.AddNode(c.ConceptID)
		return true
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "\t", 9)
		if len(fields) < 9 {
			continue
		}
		seqname, feature := fields[0], fields[2]
		start, _ := strconv.ParseInt(fields[3], 10, 64)
		end, _ := strconv.ParseInt(fields[4], 10, 64)

		attributes := make(map[string]string)
		for _, match := range gtfAttributePattern.FindAllStringSubmatch(fields[8], -1) {
			attributes[match[1]] = match[2]
		}

		switch feature {
		case "gene":
			geneID := attributes["gene_id"]
			if geneID == "" {
				continue
			}
			label := attributes["gene_name"]
			if add(genes, terminology.Concept{
				Prefix:       terminology.PrefixEnsembl,
				ConceptID:    geneID,
				Label:        label,
				ConceptTypes: []terminology.ConceptType{terminology.TypeGene},
				BioType:      attributes["gene_biotype"],
				Start:        start,
				End:          end,
				Sequence:     seqname,
				Status:       terminology.StatusActive,
			}) && label != "" {
				annotations = append(annotations, terminology.Annotation{
					PrefixFrom:    terminology.PrefixEnsembl,
					ConceptIDFrom: geneID,
					PrefixTo:      terminology.PrefixHGNCSymbol,
					ConceptIDTo:   label,
					Type:          terminology.AnnotationHasSymbol,
				})
			}
		case "transcript":
			transcriptID := attributes["transcript_id"]
			if transcriptID == "" {
				continue
			}
			add(transcripts, terminology.Concept{
				Prefix:       terminology.PrefixEnsembl,
				ConceptID:    transcriptID,
				Label:        attributes["transcript_name"],
				ConceptTypes: []terminology.ConceptType{terminology.TypeTranscript},
				BioType:      attributes["transcript_biotype"],
				Start:        start,
				End:          end,
				Sequence:     seqname,
				Status:       terminology.StatusActive,
			})
			graph.AddEdge(transcriptID, attributes["gene_id"], terminology.RelPartOf)
		case "exon":
			exonID := attributes["exon_id"]
			if exonID == "" {
				continue
			}
			add(exons, terminology.Concept{
				Prefix:       terminology.PrefixEnsembl,
				ConceptID:    exonID,
				ConceptTypes: []terminology.ConceptType{terminology.TypeExon},
				Start:        start,
				End:          end,
				Sequence:     seqname,
				Status:       terminology.StatusActive,
			})
			graph.AddEdge(exonID, attributes["transcript_id"], terminology.RelPartOf)
		case "CDS":
			proteinID := attributes["protein_id"]
			if proteinID == "" {
				continue
			}
			add(proteins, terminology.Concept{
				Prefix:       terminology.PrefixEnsembl,
				ConceptID:    proteinID,
				ConceptTypes: []terminology.ConceptType{terminology.TypeProtein},
				Start:        start,
				End:          end,
				Sequence:     seqname,
				Status:       terminology.StatusActive,
			})
			graph.AddEdge(proteinID, attributes["transcript_id"], terminology.RelPartOf)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("vocab: read %s: %w", d.FilePaths[0], err)
	}

	concepts := make([]terminology.Concept, 0,
		len(genes.concepts)+len(transcripts.concepts)+len(exons.concepts)+len(proteins.concepts))
	concepts = append(concepts, genes.concepts...)
	concepts = append(concepts, transcripts.concepts...)
	concepts = append(concepts, exons.concepts...)
	concepts = append(concepts, proteins.concepts...)

	l.log.Info("Ensembl gtf parsed",
		"genes", len(genes.concepts),
		"transcripts", len(transcripts.concepts),
		"exons", len(exons.concepts),
		"proteins", len(proteins.concepts),
	)
	return sink(ctx, Payload{Concepts: concepts, Graph: graph, Annotations: annotations})
}
