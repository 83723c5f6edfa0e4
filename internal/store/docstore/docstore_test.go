package docstore

import (
	"context"
	"testing"

	"github.com/yungbote/bioterms-backend/internal/terminology"
)

func TestPositionScore(t *testing.T) {
	if got := positionScore("558 MarfanSyndrome", "marfan"); got != 4 {
		t.Errorf("expected position 4, got %d", got)
	}
	if got := positionScore("558 MarfanSyndrome", "absent"); got != -1 {
		t.Errorf("expected -1 for a miss, got %d", got)
	}
}

func TestLabelLength(t *testing.T) {
	if got := labelLength(""); got != missingLabelLength {
		t.Errorf("missing label: got %d", got)
	}
	if got := labelLength("abc"); got != 3 {
		t.Errorf("label length: got %d", got)
	}
}

func TestRankAutoComplete(t *testing.T) {
	cands := []candidate{
		{ConceptID: "3", Label: "zz syndrome", SearchText: "3 zzsyndrome marfan"},
		{ConceptID: "1", Label: "Marfan syndrome", SearchText: "1 Marfansyndrome"},
		{ConceptID: "2", Label: "Marfanoid", SearchText: "2 Marfanoid"},
		{ConceptID: "4", Label: "", SearchText: "4 Marfanvariant"},
	}

	ranked := rankAutoComplete(cands, "marfan", 0)
	// Position 2 ties for 1, 2, and 4; shorter label wins, missing label
	// sorts last among the tied; the late-position match comes after.
	wantOrder := []string{"2", "1", "4", "3"}
	for i, want := range wantOrder {
		if ranked[i].ConceptID != want {
			t.Fatalf("rank[%d]: got %q, want %q (full order %+v)", i, ranked[i].ConceptID, want, ranked)
		}
	}

	limited := rankAutoComplete(cands, "marfan", 2)
	if len(limited) != 2 || limited[0].ConceptID != "2" || limited[1].ConceptID != "1" {
		t.Errorf("limit: got %+v", limited)
	}
}

func TestRankAutoCompleteScoresWithoutWhitespace(t *testing.T) {
	// Search texts never contain whitespace, so a multi-word query scores
	// by its whitespace-free form.
	cands := []candidate{
		{ConceptID: "2", Label: "Acute Marfan syndrome", SearchText: "2 AcuteMarfansyndrome"},
		{ConceptID: "1", Label: "Marfan syndrome", SearchText: "1 Marfansyndrome"},
	}
	_, scoreQuery := terminology.SearchQueryTerms("Marfan syndrome")
	if scoreQuery != "marfansyndrome" {
		t.Fatalf("score query: got %q", scoreQuery)
	}
	ranked := rankAutoComplete(cands, scoreQuery, 0)
	if ranked[0].ConceptID != "1" || ranked[1].ConceptID != "2" {
		t.Errorf("earlier match must rank first: %+v", ranked)
	}
}

func TestRankAutoCompleteTieBreaksOnConceptID(t *testing.T) {
	cands := []candidate{
		{ConceptID: "b", Label: "same", SearchText: "b same"},
		{ConceptID: "a", Label: "same", SearchText: "a same"},
	}
	ranked := rankAutoComplete(cands, "same", 0)
	if ranked[0].ConceptID != "a" || ranked[1].ConceptID != "b" {
		t.Errorf("concept id tie-break: got %+v", ranked)
	}
}

func TestBuildTermDocuments(t *testing.T) {
	concepts := []terminology.Concept{
		{Prefix: terminology.PrefixHPO, ConceptID: "0001", Label: "Marfan syndrome"},
		{Prefix: terminology.PrefixHPO, ConceptID: "0002"},
	}
	docs, err := buildTermDocuments(context.Background(), concepts, 2)
	if err != nil {
		t.Fatalf("build term documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Concept.ConceptID != "0001" {
		t.Errorf("document order must match input, got %q first", docs[0].Concept.ConceptID)
	}
	if docs[0].SearchText != "0001 Marfansyndrome" {
		t.Errorf("search text: got %q", docs[0].SearchText)
	}
	if len(docs[0].NGrams) == 0 {
		t.Errorf("expected n-grams for a labeled concept")
	}
	if len(docs[1].NGrams) != 2 {
		// Bare concept id "0002": grams "0002" and "000"/"002".
		t.Logf("n-grams for bare id: %v", docs[1].NGrams)
	}
}

func TestBuildTermDocumentsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	concepts := make([]terminology.Concept, 100)
	for i := range concepts {
		concepts[i] = terminology.Concept{ConceptID: "x", Label: "some label"}
	}
	if _, err := buildTermDocuments(ctx, concepts, 1); err == nil {
		t.Fatalf("expected context error")
	}
}
