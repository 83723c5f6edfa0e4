package terminology

import (
	"strings"
)

// Concept is a term in one of the supported vocabularies. The optional
// variant fields only carry values for the vocabularies that define them
// (FullyDefined for SNOMED, the genomic coordinates for Ensembl, Location
// for gene vocabularies, Inferred for Reactome); everywhere else they stay
// at their zero value and drop out of the JSON encoding.
type Concept struct {
	ConceptTypes []ConceptType `json:"conceptTypes,omitempty" bson:"conceptTypes,omitempty"`
	Prefix       Prefix        `json:"prefix" bson:"prefix"`
	ConceptID    string        `json:"conceptId" bson:"conceptId"`
	Label        string        `json:"label,omitempty" bson:"label,omitempty"`
	Synonyms     []string      `json:"synonyms,omitempty" bson:"synonyms,omitempty"`
	Definition   string        `json:"definition,omitempty" bson:"definition,omitempty"`
	Comment      string        `json:"comment,omitempty" bson:"comment,omitempty"`
	Status       ConceptStatus `json:"status" bson:"status"`
	VectorID     string        `json:"vectorId,omitempty" bson:"vectorId,omitempty"`

	FullyDefined *bool  `json:"fullyDefined,omitempty" bson:"fullyDefined,omitempty"`
	BioType      string `json:"bioType,omitempty" bson:"bioType,omitempty"`
	Start        int64  `json:"start,omitempty" bson:"start,omitempty"`
	End          int64  `json:"end,omitempty" bson:"end,omitempty"`
	Sequence     string `json:"sequence,omitempty" bson:"sequence,omitempty"`
	Location     string `json:"location,omitempty" bson:"location,omitempty"`
	Inferred     *bool  `json:"inferred,omitempty" bson:"inferred,omitempty"`
}

const (
	NGramMinLength = 3
	NGramMaxLength = 20
)

// stripSearchChars removes parentheses, quotes, and whitespace-class
// characters, replacing each with the given string.
func stripSearchChars(text, replacement string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '(', ')', '"', '\'', ' ', '\t', '\n', '\r', '\f', '\v':
			b.WriteString(replacement)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NGrams generates the substring index terms for auto-complete search from
// the concept's identifier, label, and synonyms. Tokens shorter than three
// characters are skipped; substring lengths range from NGramMinLength to
// NGramMaxLength. The whole lowercased concept ID is always a target.
func (c *Concept) NGrams() []string {
	targets := map[string]struct{}{
		strings.ToLower(c.ConceptID): {},
	}

	addTokens := func(text string) {
		cleaned := stripSearchChars(text, " ")
		for _, word := range strings.Fields(cleaned) {
			if len(word) > 2 {
				targets[strings.ToLower(word)] = struct{}{}
			}
		}
	}

	if c.Label != "" {
		addTokens(c.Label)
	}
	for _, synonym := range c.Synonyms {
		addTokens(synonym)
	}

	grams := make(map[string]struct{})
	for target := range targets {
		targetLen := len(target)
		for n := NGramMinLength; n <= NGramMaxLength; n++ {
			if n > targetLen {
				break
			}
			for start := 0; start <= targetLen-n; start++ {
				grams[target[start:start+n]] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(grams))
	for g := range grams {
		out = append(out, g)
	}
	return out
}

// SearchQueryTerms normalizes an auto-complete query the same way concept
// search fields are built: lowercased, with the search character class
// stripped. Tokens shorter than NGramMinLength are dropped and longer ones
// capped at NGramMaxLength so each token can match a stored n-gram.
// scoreQuery is the stripped query with all whitespace removed, used for
// position scoring against SearchText.
func SearchQueryTerms(query string) (tokens []string, scoreQuery string) {
	lowered := strings.ToLower(query)
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(stripSearchChars(lowered, " ")) {
		if len(word) < NGramMinLength {
			continue
		}
		if len(word) > NGramMaxLength {
			word = word[:NGramMaxLength]
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		tokens = append(tokens, word)
	}
	return tokens, stripSearchChars(lowered, "")
}

// SearchText builds the string auto-complete results are position-scored
// against: the concept ID followed by the label and each synonym with
// parentheses, quotes, and whitespace removed.
func (c *Concept) SearchText() string {
	var b strings.Builder
	b.WriteString(c.ConceptID)

	if c.Label != "" {
		b.WriteByte(' ')
		b.WriteString(stripSearchChars(c.Label, ""))
	}
	for _, synonym := range c.Synonyms {
		b.WriteByte(' ')
		b.WriteString(stripSearchChars(synonym, ""))
	}
	return b.String()
}

// CanonicalText renders the concept as "label: definition (synonyms)" for
// text embedding. Empty parts are dropped and the result carries no leading
// or trailing separators.
func (c *Concept) CanonicalText() string {
	var b strings.Builder

	if c.Label != "" {
		b.WriteString(c.Label)
		b.WriteString(": ")
	}
	if c.Definition != "" {
		b.WriteString(c.Definition)
		b.WriteByte(' ')
	}
	if len(c.Synonyms) > 0 {
		b.WriteByte('(')
		b.WriteString(strings.Join(c.Synonyms, " "))
		b.WriteByte(')')
	}
	return strings.Trim(b.String(), " :")
}
