package terminology

import (
	"reflect"
	"sort"
	"strings"
	"testing"
)

func TestNGramsIncludesConceptID(t *testing.T) {
	c := &Concept{Prefix: PrefixHPO, ConceptID: "HP:0001250"}
	grams := toSet(c.NGrams())

	if _, ok := grams["hp:0001250"]; !ok {
		t.Fatalf("expected whole lowercased concept id in n-grams, got %d grams", len(grams))
	}
	if _, ok := grams["hp:"]; !ok {
		t.Errorf("expected 3-gram prefix of the concept id")
	}
}

func TestNGramsTokenRules(t *testing.T) {
	c := &Concept{
		Prefix:    PrefixHPO,
		ConceptID: "X1",
		Label:     `Seizure (of "brain")`,
		Synonyms:  []string{"fit", "Epileptic seizure"},
	}
	grams := toSet(c.NGrams())

	// Tokens of length <= 2 are skipped ("of") and so is "fit" only if
	// longer than 2; "fit" has 3 characters and must be present.
	if _, ok := grams["fit"]; !ok {
		t.Errorf("expected token of length 3 to be indexed")
	}
	if _, ok := grams["of"]; ok {
		t.Errorf("2-character tokens must not be indexed")
	}
	for g := range grams {
		if len(g) < NGramMinLength || len(g) > NGramMaxLength {
			t.Errorf("n-gram %q outside [%d, %d]", g, NGramMinLength, NGramMaxLength)
		}
		if strings.ContainsAny(g, `()"'`) && g != strings.ToLower(c.ConceptID) {
			t.Errorf("n-gram %q carries stripped characters", g)
		}
	}
	if _, ok := grams["sei"]; !ok {
		t.Errorf("expected substring of lowercased label token")
	}
	if _, ok := grams["seizure"]; !ok {
		t.Errorf("expected full lowercased label token as its own gram")
	}
}

func TestNGramsLongTokenCapped(t *testing.T) {
	long := strings.Repeat("a", 30)
	c := &Concept{Prefix: PrefixHPO, ConceptID: "Y", Label: long}
	for _, g := range c.NGrams() {
		if len(g) > NGramMaxLength {
			t.Fatalf("gram %q exceeds max length", g)
		}
	}
}

func TestSearchQueryTerms(t *testing.T) {
	tokens, scoreQuery := SearchQueryTerms(`Marfan's (syndrome) of X1`)
	// "of" and "x1" are below the minimum token length; the apostrophe
	// splits "marfan's" the same way indexed tokens are split.
	want := []string{"marfan", "syndrome"}
	if !reflect.DeepEqual(tokens, want) {
		t.Fatalf("tokens: got %v, want %v", tokens, want)
	}
	if scoreQuery != "marfanssyndromeofx1" {
		t.Errorf("score query: got %q", scoreQuery)
	}
}

func TestSearchQueryTermsCapsAndDeduplicates(t *testing.T) {
	long := strings.Repeat("a", 30)
	tokens, _ := SearchQueryTerms("seizure Seizure " + long)
	want := []string{"seizure", strings.Repeat("a", NGramMaxLength)}
	if !reflect.DeepEqual(tokens, want) {
		t.Fatalf("tokens: got %v, want %v", tokens, want)
	}

	if tokens, _ := SearchQueryTerms("of (x)"); tokens != nil {
		t.Errorf("expected no tokens from short words, got %v", tokens)
	}
}

func TestSearchText(t *testing.T) {
	c := &Concept{
		Prefix:    PrefixORDO,
		ConceptID: "558",
		Label:     "Marfan syndrome (type 1)",
		Synonyms:  []string{"MFS 1", `Marfan's`},
	}
	got := c.SearchText()
	want := "558 Marfansyndrometype1 MFS1 Marfans"
	if got != want {
		t.Fatalf("search text mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestSearchTextNoLabel(t *testing.T) {
	c := &Concept{Prefix: PrefixSNOMED, ConceptID: "12345"}
	if got := c.SearchText(); got != "12345" {
		t.Fatalf("expected bare concept id, got %q", got)
	}
}

func TestCanonicalText(t *testing.T) {
	tests := []struct {
		name string
		c    Concept
		want string
	}{
		{
			name: "full",
			c: Concept{
				Label:      "Seizure",
				Definition: "A sudden attack.",
				Synonyms:   []string{"fit", "convulsion"},
			},
			want: "Seizure: A sudden attack. (fit convulsion)",
		},
		{
			name: "label only",
			c:    Concept{Label: "Seizure"},
			want: "Seizure",
		},
		{
			name: "definition only",
			c:    Concept{Definition: "A sudden attack."},
			want: "A sudden attack.",
		},
		{
			name: "empty",
			c:    Concept{},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.CanonicalText(); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestParsePrefix(t *testing.T) {
	p, err := ParsePrefix("  HPO ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != PrefixHPO {
		t.Fatalf("got %q", p)
	}
	if _, err := ParsePrefix("nope"); err == nil {
		t.Fatalf("expected error for unknown prefix")
	}
}

func TestGraphDeduplicatesEdges(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b", RelIsA)
	g.AddEdge("a", "b", RelIsA)
	g.AddEdge("a", "b", RelPartOf)

	if g.EdgeCount() != 2 {
		t.Fatalf("expected 2 distinct edges, got %d", g.EdgeCount())
	}
	if g.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.NodeCount())
	}

	labels := make([]string, 0, 2)
	for _, e := range g.Edges() {
		labels = append(labels, string(e.Label))
	}
	sort.Strings(labels)
	if labels[0] != "is_a" || labels[1] != "part_of" {
		t.Fatalf("unexpected edge labels %v", labels)
	}
}

func TestCollect(t *testing.T) {
	seq := Seq[int](func(yield func(int) error) error {
		for i := 1; i <= 3; i++ {
			if err := yield(i); err != nil {
				return err
			}
		}
		return nil
	})
	got, err := Collect(seq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected values %v", got)
	}
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}
