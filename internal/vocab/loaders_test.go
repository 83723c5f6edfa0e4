package vocab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/bioterms-backend/internal/config"
	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/store/testutil"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

func writeData(t *testing.T, fetch *Fetcher, rel, content string) {
	t.Helper()
	dest := fetch.Path(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func collect(t *testing.T, loader Loader) []Payload {
	t.Helper()
	var out []Payload
	err := loader.Load(context.Background(), func(ctx context.Context, p Payload) error {
		out = append(out, p)
		return nil
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return out
}

func hasEdge(g *terminology.Graph, from, to string, label terminology.RelationshipType) bool {
	for _, e := range g.Edges() {
		if e == (terminology.Edge{From: from, To: to, Label: label}) {
			return true
		}
	}
	return false
}

func conceptByID(t *testing.T, concepts []terminology.Concept, id string) terminology.Concept {
	t.Helper()
	for _, c := range concepts {
		if c.ConceptID == id {
			return c
		}
	}
	t.Fatalf("concept %s not in payload", id)
	return terminology.Concept{}
}

func TestHPOLoader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "hpo/hp.owl", owlFixture)
	loader := &HPOLoader{fetch: fetch, log: testutil.Logger(t)}

	payloads := collect(t, loader)
	if len(payloads) != 1 {
		t.Fatalf("payloads: %d", len(payloads))
	}
	p := payloads[0]

	// Only HP_ classes count; the Orphanet class in the fixture is skipped.
	if len(p.Concepts) != 3 {
		t.Fatalf("concepts: %d", len(p.Concepts))
	}
	abnormality := conceptByID(t, p.Concepts, "0000118")
	if abnormality.Label != "Phenotypic abnormality" || abnormality.Definition != "A phenotypic abnormality." {
		t.Errorf("concept fields: %+v", abnormality)
	}
	if old := conceptByID(t, p.Concepts, "0000708"); old.Status != terminology.StatusDeprecated {
		t.Errorf("deprecated class status: %s", old.Status)
	}

	// Hierarchy edges run child -> parent.
	if !hasEdge(p.Graph, "0000118", "0000001", terminology.RelIsA) {
		t.Errorf("is_a edge missing: %v", p.Graph.Edges())
	}
	if !hasEdge(p.Graph, "0000117", "0000118", terminology.RelReplacedBy) {
		t.Errorf("alternative-id edge missing")
	}
	if !hasEdge(p.Graph, "0000118", "0000708", terminology.RelReplacedBy) {
		t.Errorf("consider edge missing")
	}
}

func TestHPOLoaderMissingFiles(t *testing.T) {
	loader := &HPOLoader{fetch: newTestFetcher(t, config.Config{}), log: testutil.Logger(t)}
	err := loader.Load(context.Background(), func(context.Context, Payload) error { return nil })
	if !apierr.HasCode(err, apierr.CodeFilesNotFound) {
		t.Errorf("expected files_not_found, got %v", err)
	}
}

const ordoFixture = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#"
         xmlns:owl="http://www.w3.org/2002/07/owl#"
         xmlns:efo="http://www.ebi.ac.uk/efo/">
  <owl:Class rdf:about="http://www.orpha.net/ORDO/Orphanet_558">
    <rdfs:label>Marfan syndrome</rdfs:label>
    <efo:definition>A connective tissue disorder.</efo:definition>
    <efo:alternative_term>MFS</efo:alternative_term>
    <rdfs:subClassOf rdf:resource="http://www.orpha.net/ORDO/Orphanet_68367"/>
    <rdfs:subClassOf>
      <owl:Restriction>
        <owl:onProperty rdf:resource="http://purl.obolibrary.org/obo/BFO_0000050"/>
        <owl:someValuesFrom rdf:resource="http://www.orpha.net/ORDO/Orphanet_98733"/>
      </owl:Restriction>
    </rdfs:subClassOf>
  </owl:Class>
  <owl:Class rdf:about="http://www.orpha.net/ORDO/Orphanet_1000">
    <rdfs:label>Retired syndrome</rdfs:label>
    <rdfs:subClassOf>
      <owl:Restriction>
        <owl:onProperty rdf:resource="http://www.orpha.net/ORDO/Orphanet_C056"/>
        <owl:someValuesFrom rdf:resource="http://www.orpha.net/ORDO/Orphanet_558"/>
      </owl:Restriction>
    </rdfs:subClassOf>
  </owl:Class>
</rdf:RDF>
`

func TestORDOLoader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "ordo/ordo_orphanet.owl", ordoFixture)
	loader := &ORDOLoader{fetch: fetch, log: testutil.Logger(t)}

	p := collect(t, loader)[0]
	if len(p.Concepts) != 2 {
		t.Fatalf("concepts: %d", len(p.Concepts))
	}

	marfan := conceptByID(t, p.Concepts, "558")
	if marfan.Label != "Marfan syndrome" || len(marfan.Synonyms) != 1 || marfan.Synonyms[0] != "MFS" {
		t.Errorf("marfan concept: %+v", marfan)
	}
	if marfan.Status != terminology.StatusActive {
		t.Errorf("status: %s", marfan.Status)
	}
	if !hasEdge(p.Graph, "558", "68367", terminology.RelIsA) {
		t.Errorf("subClassOf edge missing")
	}
	// part_of restrictions count as hierarchy.
	if !hasEdge(p.Graph, "558", "98733", terminology.RelIsA) {
		t.Errorf("part_of edge missing")
	}

	retired := conceptByID(t, p.Concepts, "1000")
	if retired.Status != terminology.StatusDeprecated {
		t.Errorf("moved_to class should be deprecated")
	}
	if !hasEdge(p.Graph, "1000", "558", terminology.RelReplacedBy) {
		t.Errorf("moved_to edge missing")
	}
}

const (
	snomedConceptFixture = "id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId\n" +
		"101\t20230101\t1\tm\t900000000000073002\n" +
		"102\t20230101\t0\tm\t900000000000074008\n"
	snomedDescriptionFixture = "id\teffectiveTime\tactive\tmoduleId\tconceptId\tlanguageCode\ttypeId\tterm\tcaseSignificanceId\n" +
		"d1\t20230101\t1\tm\t101\ten\t900000000000003001\tMarfan syndrome (disorder)\tc\n" +
		"d2\t20230101\t1\tm\t101\ten\t900000000000013009\tMarfan's syndrome\tc\n" +
		"d3\t20230101\t1\tm\t103\ten\t900000000000013009\tOrphan description\tc\n"
	snomedDefinitionFixture = "id\teffectiveTime\tactive\tmoduleId\tconceptId\tlanguageCode\ttypeId\tterm\tcaseSignificanceId\n" +
		"f1\t20230101\t1\tm\t101\ten\t900000000000550004\tA heritable disorder of connective tissue.\tc\n"
	snomedRelationshipFixture = "id\teffectiveTime\tactive\tmoduleId\tsourceId\tdestinationId\trelationshipGroup\ttypeId\tcharacteristicTypeId\tmodifierId\n" +
		"r1\t20230101\t1\tm\t101\t102\t0\t116680003\tc\tm\n" +
		"r2\t20230101\t1\tm\t102\t101\t0\t370124000\tc\tm\n" +
		"r3\t20230101\t1\tm\t101\t102\t0\t999999\tc\tm\n"

	snomedEmptyHeader = "id\teffectiveTime\tactive\n"
)

func writeSnomedFixtures(t *testing.T, fetch *Fetcher) {
	writeData(t, fetch, "snomed/international/concept.txt", snomedConceptFixture)
	writeData(t, fetch, "snomed/international/description.txt", snomedDescriptionFixture)
	writeData(t, fetch, "snomed/international/definition.txt", snomedDefinitionFixture)
	writeData(t, fetch, "snomed/international/relationship.txt", snomedRelationshipFixture)
	for _, release := range []string{"uk_clinical", "uk_drug"} {
		for _, file := range []string{"concept.txt", "description.txt", "definition.txt", "relationship.txt"} {
			writeData(t, fetch, fmt.Sprintf("snomed/%s/%s", release, file), snomedEmptyHeader)
		}
	}
}

func TestSnomedLoader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeSnomedFixtures(t, fetch)
	loader := &SnomedLoader{fetch: fetch, log: testutil.Logger(t)}

	payloads := collect(t, loader)
	if len(payloads) != 3 {
		t.Fatalf("expected one payload per release, got %d", len(payloads))
	}
	p := payloads[0]
	if len(p.Concepts) != 3 {
		t.Fatalf("concepts: %d", len(p.Concepts))
	}

	marfan := conceptByID(t, p.Concepts, "101")
	if marfan.Label != "Marfan syndrome (disorder)" {
		t.Errorf("label from FSN row: %q", marfan.Label)
	}
	if len(marfan.Synonyms) != 1 || marfan.Synonyms[0] != "Marfan's syndrome" {
		t.Errorf("synonyms: %v", marfan.Synonyms)
	}
	if marfan.Definition != "A heritable disorder of connective tissue." {
		t.Errorf("definition: %q", marfan.Definition)
	}
	if marfan.FullyDefined == nil || !*marfan.FullyDefined {
		t.Errorf("fullyDefined flag: %v", marfan.FullyDefined)
	}
	if inactive := conceptByID(t, p.Concepts, "102"); inactive.Status != terminology.StatusDeprecated {
		t.Errorf("inactive concept status: %s", inactive.Status)
	}
	// A description row for an id absent from the concept file still yields
	// a concept, with no status.
	if orphan := conceptByID(t, p.Concepts, "103"); orphan.Status != "" || len(orphan.Synonyms) != 1 {
		t.Errorf("orphan description concept: %+v", orphan)
	}

	if !hasEdge(p.Graph, "101", "102", terminology.RelIsA) {
		t.Errorf("is_a edge missing")
	}
	if !hasEdge(p.Graph, "102", "101", terminology.RelReplacedBy) {
		t.Errorf("replaced_by edge missing")
	}
	if hasEdge(p.Graph, "101", "102", terminology.RelRelatedTo) {
		t.Errorf("unmapped typeIds must not produce edges")
	}

	// The empty releases still sink, with nothing in them.
	if len(payloads[1].Concepts) != 0 || payloads[1].Graph.NodeCount() != 0 {
		t.Errorf("empty release payload: %+v", payloads[1])
	}
}

func TestSnomedLoaderUnknownDefinitionConcept(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeSnomedFixtures(t, fetch)
	writeData(t, fetch, "snomed/international/definition.txt",
		"id\teffectiveTime\tactive\tmoduleId\tconceptId\tlanguageCode\ttypeId\tterm\tcaseSignificanceId\n"+
			"f1\t20230101\t1\tm\t999\ten\t900000000000550004\tDangling definition.\tc\n")
	loader := &SnomedLoader{fetch: fetch, log: testutil.Logger(t)}

	err := loader.Load(context.Background(), func(context.Context, Payload) error { return nil })
	if !apierr.HasCode(err, apierr.CodeParse) {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestNCITLoader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "ncit/thesaurus.txt",
		"C100\thttp://iri/C100\tC200|C300\tCancer|Malignant neoplasm\tA malignant growth.\tCancer\t\tNeoplastic Process\t\n"+
			"C400\thttp://iri/C400\t\tRetired term\t\t\tObsolete_Concept\t\t\n")
	loader := &NCITLoader{fetch: fetch, log: testutil.Logger(t)}

	p := collect(t, loader)[0]
	if len(p.Concepts) != 2 {
		t.Fatalf("concepts: %d", len(p.Concepts))
	}
	cancer := conceptByID(t, p.Concepts, "C100")
	if cancer.Label != "Cancer" {
		t.Errorf("label is the first synonym entry: %q", cancer.Label)
	}
	if len(cancer.Synonyms) != 1 || cancer.Synonyms[0] != "Malignant neoplasm" {
		t.Errorf("synonyms: %v", cancer.Synonyms)
	}
	if cancer.Definition != "A malignant growth." {
		t.Errorf("definition: %q", cancer.Definition)
	}
	if !hasEdge(p.Graph, "C100", "C200", terminology.RelIsA) || !hasEdge(p.Graph, "C100", "C300", terminology.RelIsA) {
		t.Errorf("parent edges: %v", p.Graph.Edges())
	}
	if retired := conceptByID(t, p.Concepts, "C400"); retired.Status != terminology.StatusDeprecated || retired.Synonyms != nil {
		t.Errorf("obsolete concept: %+v", retired)
	}
}

func TestOMIMLoader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "omim/omim.csv",
		"Class ID,Preferred Label,Synonyms,Obsolete,Parents,Moved from\n"+
			"http://purl.bioontology.org/ontology/OMIM/154700,MARFAN SYNDROME,MFS|MFS1,false,http://purl.bioontology.org/ontology/OMIM/MTHU000001,\n"+
			"http://purl.bioontology.org/ontology/OMIM/100500,OLD ENTRY,,true,,154700\n")
	loader := &OMIMLoader{fetch: fetch, log: testutil.Logger(t)}

	p := collect(t, loader)[0]
	marfan := conceptByID(t, p.Concepts, "154700")
	if marfan.Label != "MARFAN SYNDROME" || len(marfan.Synonyms) != 2 {
		t.Errorf("marfan concept: %+v", marfan)
	}
	if !hasEdge(p.Graph, "154700", "MTHU000001", terminology.RelIsA) {
		t.Errorf("parent edge missing")
	}
	if old := conceptByID(t, p.Concepts, "100500"); old.Status != terminology.StatusDeprecated {
		t.Errorf("obsolete row status: %s", old.Status)
	}
	if !hasEdge(p.Graph, "154700", "100500", terminology.RelReplacedBy) {
		t.Errorf("moved-from edge missing")
	}
}

const hgncSymbolFixture = "hgnc_id\tsymbol\tname\tlocation\tlocation_sortable\tstatus\talias_symbol\talias_name\n" +
	"HGNC:5\tA1BG\talpha-1-B glycoprotein\t19q13.43\t19q13.43\tApproved\tA1B|ABG\tHGC glycoprotein\n" +
	"HGNC:6\tA1CF\tAPOBEC1 complementation factor\t10q11.23\t\tApproved\t\t\n"

const hgncWithdrawnFixture = "HGNC_ID\tSTATUS\tWITHDRAWN_SYMBOL\tMERGED_INTO_REPORT(S) (i.e HGNC_ID|SYMBOL|STATUS)\n" +
	"HGNC:99\tMerged/Split\tOLD1\tHGNC:5|A1BG|Approved\n" +
	"HGNC:98\tEntry Withdrawn\tGONE1\t\n"

func TestHGNCLoader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "hgnc/symbol.txt", hgncSymbolFixture)
	writeData(t, fetch, "hgnc/withdrawn.txt", hgncWithdrawnFixture)
	loader := &HGNCLoader{fetch: fetch, log: testutil.Logger(t)}

	p := collect(t, loader)[0]
	// Two approved rows plus one merged withdrawal; fully withdrawn
	// entries are dropped.
	if len(p.Concepts) != 3 {
		t.Fatalf("concepts: %d", len(p.Concepts))
	}

	a1bg := conceptByID(t, p.Concepts, "5")
	if a1bg.Label != "A1BG" || a1bg.Definition != "alpha-1-B glycoprotein" || a1bg.Location != "19q13.43" {
		t.Errorf("a1bg concept: %+v", a1bg)
	}
	if len(a1bg.Synonyms) != 3 {
		t.Errorf("synonyms include aliases and alias names: %v", a1bg.Synonyms)
	}

	withdrawn := conceptByID(t, p.Concepts, "99")
	if withdrawn.Label != "OLD1" || withdrawn.Status != terminology.StatusDeprecated {
		t.Errorf("withdrawn concept: %+v", withdrawn)
	}
	if !hasEdge(p.Graph, "99", "5", terminology.RelReplacedBy) {
		t.Errorf("merge edge missing")
	}

	// Two alias annotations, one per approved symbol, one for the
	// withdrawn symbol.
	if len(p.Annotations) != 5 {
		t.Fatalf("annotations: %d", len(p.Annotations))
	}
	for _, a := range p.Annotations {
		if a.PrefixFrom != terminology.PrefixHGNC || a.PrefixTo != terminology.PrefixHGNCSymbol {
			t.Errorf("annotation prefixes: %+v", a)
		}
		if a.Type != terminology.AnnotationHasSymbol {
			t.Errorf("annotation type: %+v", a)
		}
	}
}

func TestHGNCSymbolLoader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "hgnc/symbol.txt", hgncSymbolFixture)
	writeData(t, fetch, "hgnc/withdrawn.txt", hgncWithdrawnFixture)
	hgnc := &HGNCLoader{fetch: fetch, log: testutil.Logger(t)}
	loader := &HGNCSymbolLoader{fetch: fetch, hgnc: hgnc, log: testutil.Logger(t)}

	p := collect(t, loader)[0]
	// Active: A1B, A1BG, A1CF, ABG. Withdrawn: OLD1.
	if len(p.Concepts) != 5 {
		t.Fatalf("concepts: %d", len(p.Concepts))
	}
	for _, c := range p.Concepts {
		if c.ConceptID != c.Label {
			t.Errorf("symbol concepts use the symbol as id and label: %+v", c)
		}
	}
	if c := conceptByID(t, p.Concepts, "A1B"); c.Status != terminology.StatusActive {
		t.Errorf("alias symbol should be active: %+v", c)
	}
	if c := conceptByID(t, p.Concepts, "OLD1"); c.Status != terminology.StatusDeprecated {
		t.Errorf("withdrawn symbol should be deprecated: %+v", c)
	}
	if p.Graph.NodeCount() != 5 || p.Graph.EdgeCount() != 0 {
		t.Errorf("symbol graph is nodes only: %d nodes, %d edges", p.Graph.NodeCount(), p.Graph.EdgeCount())
	}
}

func TestCTV3Loader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "ctv3/concept.v3", "X1|C|x|y\nX2|R|x|y\n")
	writeData(t, fetch, "ctv3/description.v3", "X1|T1|P\nX1|T2|S\n")
	writeData(t, fetch, "ctv3/term.v3", "T1|s|Short label|Medium label|Long preferred label\nT2|s|Syn30||\n")
	writeData(t, fetch, "ctv3/hierarchy.v3", "X2|X1|1\n")
	writeData(t, fetch, "ctv3/redundancy.map", "X1|X9\n")
	loader := &CTV3Loader{fetch: fetch, log: testutil.Logger(t)}

	p := collect(t, loader)[0]
	if len(p.Concepts) != 2 {
		t.Fatalf("concepts: %d", len(p.Concepts))
	}

	x1 := conceptByID(t, p.Concepts, "X1")
	if x1.Label != "Long preferred label" {
		t.Errorf("label picks the longest populated term form: %q", x1.Label)
	}
	if len(x1.Synonyms) != 1 || x1.Synonyms[0] != "Syn30" {
		t.Errorf("synonyms: %v", x1.Synonyms)
	}
	if x1.Status != terminology.StatusActive {
		t.Errorf("status C is active: %s", x1.Status)
	}
	if x2 := conceptByID(t, p.Concepts, "X2"); x2.Status != terminology.StatusDeprecated || x2.Label != "" {
		t.Errorf("termless concept: %+v", x2)
	}

	if !hasEdge(p.Graph, "X2", "X1", terminology.RelIsA) {
		t.Errorf("hierarchy edge missing")
	}
	if !hasEdge(p.Graph, "X9", "X1", terminology.RelReplacedBy) {
		t.Errorf("redundancy edge missing")
	}
}

const gtfFixture = `#!genome-build GRCh38
1	ensembl	gene	1000	2000	.	+	.	gene_id "ENSG01"; gene_name "A1BG"; gene_biotype "protein_coding";
1	ensembl	transcript	1000	1900	.	+	.	gene_id "ENSG01"; transcript_id "ENST01"; transcript_name "A1BG-201"; transcript_biotype "protein_coding";
1	ensembl	exon	1000	1100	.	+	.	gene_id "ENSG01"; transcript_id "ENST01"; exon_id "ENSE01";
1	ensembl	CDS	1010	1090	.	+	0	gene_id "ENSG01"; transcript_id "ENST01"; protein_id "ENSP01";
1	ensembl	exon	1000	1100	.	+	.	gene_id "ENSG01"; transcript_id "ENST01"; exon_id "ENSE01";
`

func TestEnsemblLoader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "ensembl/homo-sapien.gtf", gtfFixture)

	guardCalled := false
	loader := &EnsemblLoader{
		fetch: fetch,
		guard: func(ctx context.Context) error { guardCalled = true; return nil },
		log:   testutil.Logger(t),
	}

	p := collect(t, loader)[0]
	if !guardCalled {
		t.Errorf("gene symbol guard was not consulted")
	}
	// Gene, transcript, exon (deduplicated), protein.
	if len(p.Concepts) != 4 {
		t.Fatalf("concepts: %d", len(p.Concepts))
	}

	gene := conceptByID(t, p.Concepts, "ENSG01")
	if gene.Label != "A1BG" || gene.BioType != "protein_coding" || gene.Start != 1000 || gene.End != 2000 || gene.Sequence != "1" {
		t.Errorf("gene concept: %+v", gene)
	}
	if len(gene.ConceptTypes) != 1 || gene.ConceptTypes[0] != terminology.TypeGene {
		t.Errorf("gene concept types: %v", gene.ConceptTypes)
	}

	if !hasEdge(p.Graph, "ENST01", "ENSG01", terminology.RelPartOf) {
		t.Errorf("transcript edge missing")
	}
	if !hasEdge(p.Graph, "ENSE01", "ENST01", terminology.RelPartOf) {
		t.Errorf("exon edge missing")
	}
	if !hasEdge(p.Graph, "ENSP01", "ENST01", terminology.RelPartOf) {
		t.Errorf("protein edge missing")
	}

	if len(p.Annotations) != 1 {
		t.Fatalf("annotations: %d", len(p.Annotations))
	}
	a := p.Annotations[0]
	if a.ConceptIDFrom != "ENSG01" || a.ConceptIDTo != "A1BG" || a.PrefixTo != terminology.PrefixHGNCSymbol {
		t.Errorf("symbol annotation: %+v", a)
	}
}

func TestEnsemblLoaderGuardError(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "ensembl/homo-sapien.gtf", gtfFixture)
	loader := &EnsemblLoader{
		fetch: fetch,
		guard: func(ctx context.Context) error {
			return apierr.VocabularyNotLoaded(fmt.Errorf("gene symbol vocabulary is not loaded"))
		},
		log: testutil.Logger(t),
	}
	err := loader.Load(context.Background(), func(context.Context, Payload) error { return nil })
	if !apierr.HasCode(err, apierr.CodeVocabularyNotLoaded) {
		t.Errorf("expected vocabulary_not_loaded, got %v", err)
	}
}

func TestReactomeLoader(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	writeData(t, fetch, "reactome/pathway.csv",
		"st_id,display_name,synonyms\nR-HSA-1,Signal Transduction,Signalling|Signaling\n")
	writeData(t, fetch, "reactome/reaction.csv",
		"st_id,display_name,synonyms\nR-HSA-2,Receptor binding,\n")
	writeData(t, fetch, "reactome/pathway_to_reaction.csv",
		"pathway,reaction\nR-HSA-1,R-HSA-2\n")
	loader := &ReactomeLoader{fetch: fetch, log: testutil.Logger(t)}

	p := collect(t, loader)[0]
	if len(p.Concepts) != 2 {
		t.Fatalf("concepts: %d", len(p.Concepts))
	}
	pathway := conceptByID(t, p.Concepts, "R-HSA-1")
	if len(pathway.ConceptTypes) != 1 || pathway.ConceptTypes[0] != terminology.TypePathway {
		t.Errorf("pathway types: %v", pathway.ConceptTypes)
	}
	if len(pathway.Synonyms) != 2 {
		t.Errorf("pathway synonyms: %v", pathway.Synonyms)
	}
	reaction := conceptByID(t, p.Concepts, "R-HSA-2")
	if len(reaction.ConceptTypes) != 1 || reaction.ConceptTypes[0] != terminology.TypeReaction {
		t.Errorf("reaction types: %v", reaction.ConceptTypes)
	}
	if !hasEdge(p.Graph, "R-HSA-2", "R-HSA-1", terminology.RelPartOf) {
		t.Errorf("part_of edge missing")
	}
}

func TestRegistry(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	registry, err := NewRegistry(fetch, nil, testutil.Logger(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	prefixes := registry.Prefixes()
	if len(prefixes) != len(terminology.AllPrefixes()) {
		t.Fatalf("registry covers every prefix, got %d", len(prefixes))
	}
	for i, p := range terminology.AllPrefixes() {
		if prefixes[i] != p {
			t.Errorf("registry order: %v", prefixes)
			break
		}
	}

	loader, err := registry.Get(terminology.PrefixSNOMED)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loader.Descriptor().Name != "SNOMED Clinical Terms" {
		t.Errorf("descriptor: %+v", loader.Descriptor())
	}

	if _, err := registry.Get(terminology.Prefix("nope")); !apierr.HasCode(err, apierr.CodeValidation) {
		t.Errorf("unknown prefix: %v", err)
	}
}

func TestRegistryDeleteFiles(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	registry, err := NewRegistry(fetch, nil, testutil.Logger(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	writeData(t, fetch, "hpo/hp.owl", owlFixture)
	if err := fetch.WriteTimestamp("hpo/.timestamp"); err != nil {
		t.Fatalf("write timestamp: %v", err)
	}
	if err := registry.DeleteFiles(terminology.PrefixHPO); err != nil {
		t.Fatalf("delete files: %v", err)
	}
	if fetch.FilesExist([]string{"hpo/hp.owl"}) {
		t.Errorf("release file should be gone")
	}
	if _, ok := fetch.ReadTimestamp("hpo/.timestamp"); ok {
		t.Errorf("timestamp should be gone")
	}
}
