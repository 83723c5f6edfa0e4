package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

const owlFixture = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#"
         xmlns:owl="http://www.w3.org/2002/07/owl#"
         xmlns:obo="http://purl.obolibrary.org/obo/"
         xmlns:efo="http://www.ebi.ac.uk/efo/"
         xmlns:oboInOwl="http://www.geneontology.org/formats/oboInOwl#">
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_0000001">
    <rdfs:label>All</rdfs:label>
  </owl:Class>
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_0000118">
    <rdfs:label>Phenotypic abnormality</rdfs:label>
    <obo:IAO_0000115>A phenotypic abnormality.</obo:IAO_0000115>
    <rdfs:comment>Root of the phenotype branch.</rdfs:comment>
    <rdfs:subClassOf rdf:resource="http://purl.obolibrary.org/obo/HP_0000001"/>
    <oboInOwl:hasAlternativeId>HP:0000117</oboInOwl:hasAlternativeId>
  </owl:Class>
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
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_0000708">
    <rdfs:label>Old behaviour term</rdfs:label>
    <owl:deprecated rdf:datatype="http://www.w3.org/2001/XMLSchema#boolean">true</owl:deprecated>
    <oboInOwl:consider>HP:0000118</oboInOwl:consider>
  </owl:Class>
</rdf:RDF>
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReadOWLClasses(t *testing.T) {
	classes, err := ReadOWLClasses(writeFixture(t, "fixture.owl", owlFixture))
	if err != nil {
		t.Fatalf("read owl: %v", err)
	}
	if len(classes) != 4 {
		t.Fatalf("expected 4 classes, got %d", len(classes))
	}

	byName := make(map[string]OWLClass, len(classes))
	for _, c := range classes {
		byName[c.Name] = c
	}

	abnormality := byName["HP_0000118"]
	if got := first(abnormality.Labels); got != "Phenotypic abnormality" {
		t.Errorf("label: %q", got)
	}
	if got := first(abnormality.Definitions); got != "A phenotypic abnormality." {
		t.Errorf("definition: %q", got)
	}
	if got := first(abnormality.Comments); got != "Root of the phenotype branch." {
		t.Errorf("comment: %q", got)
	}
	if len(abnormality.Parents) != 1 || abnormality.Parents[0] != "HP_0000001" {
		t.Errorf("parents: %v", abnormality.Parents)
	}
	if len(abnormality.AlternativeIDs) != 1 || abnormality.AlternativeIDs[0] != "HP:0000117" {
		t.Errorf("alternative ids: %v", abnormality.AlternativeIDs)
	}

	marfan := byName["Orphanet_558"]
	if got := first(marfan.Definitions); got != "A connective tissue disorder." {
		t.Errorf("efo definition: %q", got)
	}
	if len(marfan.Synonyms) != 1 || marfan.Synonyms[0] != "MFS" {
		t.Errorf("synonyms: %v", marfan.Synonyms)
	}
	if len(marfan.Parents) != 1 || marfan.Parents[0] != "Orphanet_68367" {
		t.Errorf("parents: %v", marfan.Parents)
	}
	if len(marfan.Restrictions) != 1 {
		t.Fatalf("restrictions: %v", marfan.Restrictions)
	}
	if r := marfan.Restrictions[0]; r.Property != "BFO_0000050" || r.Value != "Orphanet_98733" {
		t.Errorf("restriction: %+v", r)
	}

	old := byName["HP_0000708"]
	if !old.Deprecated {
		t.Errorf("deprecated flag not picked up")
	}
	if len(old.Consider) != 1 || old.Consider[0] != "HP:0000118" {
		t.Errorf("consider: %v", old.Consider)
	}
}

func TestFragment(t *testing.T) {
	cases := map[string]string{
		"http://purl.obolibrary.org/obo/HP_0000118": "HP_0000118",
		"http://example.org/onto#Orphanet_558":      "Orphanet_558",
		"bare":                                      "bare",
	}
	for iri, want := range cases {
		if got := fragment(iri); got != want {
			t.Errorf("fragment(%q) = %q, want %q", iri, got, want)
		}
	}
}
