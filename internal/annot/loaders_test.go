package annot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/bioterms-backend/internal/config"
	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/store/testutil"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

func newTestFetcher(t *testing.T) *vocab.Fetcher {
	t.Helper()
	fetch, err := vocab.NewFetcher(config.Config{DataDir: t.TempDir()}, nil, testutil.Logger(t))
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return fetch
}

func writeData(t *testing.T, fetch *vocab.Fetcher, rel, content string) {
	t.Helper()
	dest := fetch.Path(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func wantAnnotation(t *testing.T, annotations []terminology.Annotation, want terminology.Annotation) {
	t.Helper()
	for _, a := range annotations {
		if a.PrefixFrom == want.PrefixFrom && a.ConceptIDFrom == want.ConceptIDFrom &&
			a.PrefixTo == want.PrefixTo && a.ConceptIDTo == want.ConceptIDTo {
			if want.Properties != nil {
				for k, v := range want.Properties {
					if a.Properties[k] != v {
						t.Errorf("annotation %+v property %s = %q, want %q", a, k, a.Properties[k], v)
					}
				}
			}
			return
		}
	}
	t.Errorf("annotation %+v not found in %+v", want, annotations)
}

const hoomFixture = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#"
         xmlns:owl="http://www.w3.org/2002/07/owl#">
  <owl:Class rdf:about="http://www.semanticweb.org/ontology/HOOM#Orpha:558_HP:0001519_HP:0040281">
    <rdfs:label>Marfan - Disproportionate tall stature</rdfs:label>
  </owl:Class>
  <owl:Class rdf:about="http://www.semanticweb.org/ontology/HOOM#Association">
    <rdfs:label>Association</rdfs:label>
  </owl:Class>
</rdf:RDF>
`

func TestHOOMLoader(t *testing.T) {
	fetch := newTestFetcher(t)
	writeData(t, fetch, "hoom/hoom_orphanet.owl", hoomFixture)
	loader := &HOOMLoader{fetch: fetch, log: testutil.Logger(t)}

	annotations, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(annotations) != 1 {
		t.Fatalf("annotations: %d", len(annotations))
	}
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixORDO,
		ConceptIDFrom: "558",
		PrefixTo:      terminology.PrefixHPO,
		ConceptIDTo:   "0001519",
		Properties:    map[string]string{"frequency": "0040281"},
	})
}

func TestHOOMLoaderMissingFiles(t *testing.T) {
	loader := &HOOMLoader{fetch: newTestFetcher(t), log: testutil.Logger(t)}
	if _, err := loader.Load(context.Background()); !apierr.HasCode(err, apierr.CodeFilesNotFound) {
		t.Errorf("expected files_not_found, got %v", err)
	}
}

func TestGeneHPOLoader(t *testing.T) {
	fetch := newTestFetcher(t)
	writeData(t, fetch, "hpo/gene_mapping.txt",
		"ncbi_gene_id\tgene_symbol\thpo_id\thpo_name\tfrequency\tdisease_id\n"+
			"2200\tFBN1\tHP:0001519\tDisproportionate tall stature\tHP:0040281\tOMIM:154700\n"+
			"2200\tFBN1\tHP:0000545\tMyopia\t-\tOMIM:154700\n"+
			"2200\tFBN1\tHP:0000501\tGlaucoma\t12/46\tOMIM:154700\n"+
			"-\t-\tHP:0000001\tAll\t-\tOMIM:000000\n")
	loader := &GeneHPOLoader{fetch: fetch, log: testutil.Logger(t)}

	annotations, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// The row without a gene symbol is dropped.
	if len(annotations) != 3 {
		t.Fatalf("annotations: %d", len(annotations))
	}
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixHGNCSymbol,
		ConceptIDFrom: "FBN1",
		PrefixTo:      terminology.PrefixHPO,
		ConceptIDTo:   "0001519",
		Properties:    map[string]string{"frequency": "VF"},
	})
	// "-" and ratio frequencies both fall back to unknown.
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixHGNCSymbol,
		ConceptIDFrom: "FBN1",
		PrefixTo:      terminology.PrefixHPO,
		ConceptIDTo:   "0000545",
		Properties:    map[string]string{"frequency": "UN"},
	})
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixHGNCSymbol,
		ConceptIDFrom: "FBN1",
		PrefixTo:      terminology.PrefixHPO,
		ConceptIDTo:   "0000501",
		Properties:    map[string]string{"frequency": "UN"},
	})
}

func TestCTV3SnomedLoader(t *testing.T) {
	fetch := newTestFetcher(t)
	writeData(t, fetch, "snomed/international/ctv3_snomed_map.txt",
		"id\teffectiveTime\tactive\tmoduleId\trefsetId\treferencedComponentId\tmapTarget\n"+
			"m1\t20200101\t1\tm\tr\t101\tX1old\n"+
			"m1\t20230101\t1\tm\tr\t101\tX1\n"+
			"m2\t20230101\t1\tm\tr\t102\tX2\n")
	loader := &CTV3SnomedLoader{fetch: fetch, log: testutil.Logger(t)}

	annotations, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// The duplicate map member keeps only its latest effectiveTime row.
	if len(annotations) != 2 {
		t.Fatalf("annotations: %d", len(annotations))
	}
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixSNOMED,
		ConceptIDFrom: "101",
		PrefixTo:      terminology.PrefixCTV3,
		ConceptIDTo:   "X1",
	})
}

func TestGeneNCITLoader(t *testing.T) {
	fetch := newTestFetcher(t)
	writeData(t, fetch, "ncit/gene_mapping.txt", "C100\tHGNC:5\nC200\tHGNC:6\n")
	loader := &GeneNCITLoader{fetch: fetch, log: testutil.Logger(t)}

	annotations, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(annotations) != 2 {
		t.Fatalf("annotations: %d", len(annotations))
	}
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixNCIT,
		ConceptIDFrom: "C100",
		PrefixTo:      terminology.PrefixHGNCSymbol,
		ConceptIDTo:   "5",
	})
}

func TestGeneOMIMLoader(t *testing.T) {
	fetch := newTestFetcher(t)
	writeData(t, fetch, "omim/omim.csv",
		"Class ID,Preferred Label,Gene Symbol\n"+
			"http://purl.bioontology.org/ontology/OMIM/154700,MARFAN SYNDROME,FBN1|FBN2\n"+
			"http://purl.bioontology.org/ontology/OMIM/100100,NO GENE,\n")
	loader := &GeneOMIMLoader{fetch: fetch, log: testutil.Logger(t)}

	annotations, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(annotations) != 2 {
		t.Fatalf("annotations: %d", len(annotations))
	}
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixOMIM,
		ConceptIDFrom: "154700",
		PrefixTo:      terminology.PrefixHGNCSymbol,
		ConceptIDTo:   "FBN2",
	})
}

const product6Fixture = `<?xml version="1.0" encoding="UTF-8"?>
<JDBOR date="2025-07-01">
  <DisorderList count="2">
    <Disorder id="1">
      <OrphaCode>558</OrphaCode>
      <Name lang="en">Marfan syndrome</Name>
      <DisorderGeneAssociationList count="2">
        <DisorderGeneAssociation>
          <Gene id="g1"><Symbol>FBN1</Symbol></Gene>
        </DisorderGeneAssociation>
        <DisorderGeneAssociation>
          <Gene id="g2"><Symbol>TGFBR2</Symbol></Gene>
        </DisorderGeneAssociation>
      </DisorderGeneAssociationList>
    </Disorder>
    <Disorder id="2">
      <OrphaCode>1000</OrphaCode>
      <Name lang="en">No gene disorder</Name>
    </Disorder>
  </DisorderList>
</JDBOR>
`

func TestGeneORDOLoader(t *testing.T) {
	fetch := newTestFetcher(t)
	writeData(t, fetch, "ordo/gene_mapping.xml", product6Fixture)
	loader := &GeneORDOLoader{fetch: fetch, log: testutil.Logger(t)}

	annotations, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(annotations) != 2 {
		t.Fatalf("annotations: %d", len(annotations))
	}
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixORDO,
		ConceptIDFrom: "558",
		PrefixTo:      terminology.PrefixHGNCSymbol,
		ConceptIDTo:   "TGFBR2",
	})
}

const product1Fixture = `{
  "JDBOR": [{
    "DisorderList": [{
      "Disorder": [
        {
          "OrphaCode": 558,
          "ExternalReferenceList": [{
            "count": "2",
            "ExternalReference": [
              {"Source": "OMIM", "Reference": "154700"},
              {"Source": "ICD-10", "Reference": "Q87.4"}
            ]
          }]
        },
        {
          "OrphaCode": "1000",
          "ExternalReferenceList": [{
            "count": 0,
            "ExternalReference": []
          }]
        }
      ]
    }]
  }]
}`

func TestOMIMORDOLoader(t *testing.T) {
	fetch := newTestFetcher(t)
	writeData(t, fetch, "ordo/alignment.json", product1Fixture)
	loader := &OMIMORDOLoader{fetch: fetch, log: testutil.Logger(t)}

	annotations, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Non-OMIM sources and empty reference lists are dropped.
	if len(annotations) != 1 {
		t.Fatalf("annotations: %d", len(annotations))
	}
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixORDO,
		ConceptIDFrom: "558",
		PrefixTo:      terminology.PrefixOMIM,
		ConceptIDTo:   "154700",
	})
}

func TestORDOSnomedLoader(t *testing.T) {
	fetch := newTestFetcher(t)
	writeData(t, fetch, "snomed/orphanet_map/mapping.txt",
		"id\teffectiveTime\tactive\tmoduleId\trefsetId\treferencedComponentId\tmapTarget\n"+
			"m1\t20230101\t1\tm\tr\t101\t558\n"+
			"m2\t20230101\t0\tm\tr\t102\t1000\n")
	loader := &ORDOSnomedLoader{fetch: fetch, log: testutil.Logger(t)}

	annotations, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Inactive rows are dropped.
	if len(annotations) != 1 {
		t.Fatalf("annotations: %d", len(annotations))
	}
	wantAnnotation(t, annotations, terminology.Annotation{
		PrefixFrom:    terminology.PrefixSNOMED,
		ConceptIDFrom: "101",
		PrefixTo:      terminology.PrefixORDO,
		ConceptIDTo:   "558",
	})
}

func TestRegistry(t *testing.T) {
	fetch := newTestFetcher(t)
	registry, err := NewRegistry(fetch, testutil.Logger(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if pairs := registry.Pairs(); len(pairs) != 8 {
		t.Fatalf("pairs: %d", len(pairs))
	}

	// Lookup is unordered.
	a, err := registry.Get(terminology.PrefixHPO, terminology.PrefixORDO)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := registry.Get(terminology.PrefixORDO, terminology.PrefixHPO)
	if err != nil {
		t.Fatalf("get reversed: %v", err)
	}
	if a != b {
		t.Errorf("pair lookup should be order independent")
	}

	if _, err := registry.Get(terminology.PrefixHPO, terminology.PrefixReactome); !apierr.HasCode(err, apierr.CodeValidation) {
		t.Errorf("unknown pair: %v", err)
	}
}

func TestRegistryDeleteFiles(t *testing.T) {
	fetch := newTestFetcher(t)
	registry, err := NewRegistry(fetch, testutil.Logger(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	writeData(t, fetch, "hoom/hoom_orphanet.owl", hoomFixture)

	if err := registry.DeleteFiles(terminology.PrefixHPO, terminology.PrefixORDO); err != nil {
		t.Fatalf("delete files: %v", err)
	}
	if fetch.FilesExist([]string{"hoom/hoom_orphanet.owl"}) {
		t.Errorf("mapping file should be gone")
	}
}
