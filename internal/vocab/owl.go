package vocab

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// OWLRestriction is a subClassOf restriction reduced to the property and
// the filler class, both as IRI fragment names.
type OWLRestriction struct {
	Property string
	Value    string
}

// OWLClass is the slice of an RDF/XML ontology class the loaders consume.
// Names are IRI fragments (the part after the last '#' or '/').
type OWLClass struct {
	Name           string
	Labels         []string
	Definitions    []string
	Comments       []string
	Synonyms       []string
	Deprecated     bool
	Parents        []string
	Restrictions   []OWLRestriction
	AlternativeIDs []string
	Consider       []string
}

// fragment reduces an IRI to its terminal name.
func fragment(iri string) string {
	if i := strings.LastIndexByte(iri, '#'); i >= 0 {
		return iri[i+1:]
	}
	if i := strings.LastIndexByte(iri, '/'); i >= 0 {
		return iri[i+1:]
	}
	return iri
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// ReadOWLClasses streams an RDF/XML ontology file and returns its named
// classes in document order. Only the annotation properties the vocabulary
// loaders use are captured; everything else is skipped without buffering.
func ReadOWLClasses(path string) ([]OWLClass, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := xml.NewDecoder(file)
	var classes []OWLClass

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return classes, nil
		}
		if err != nil {
			return nil, fmt.Errorf("vocab: parse %s: %w", path, err)
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "Class" {
			continue
		}
		about := attrValue(el, "about")
		if about == "" {
			if err := decoder.Skip(); err != nil {
				return nil, fmt.Errorf("vocab: parse %s: %w", path, err)
			}
			continue
		}
		class, err := readOWLClass(decoder, about)
		if err != nil {
			return nil, fmt.Errorf("vocab: parse %s: %w", path, err)
		}
		classes = append(classes, class)
	}
}

func readOWLClass(decoder *xml.Decoder, about string) (OWLClass, error) {
	class := OWLClass{Name: fragment(about)}

	for {
		tok, err := decoder.Token()
		if err != nil {
			return class, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "subClassOf":
				if err := readSubClassOf(decoder, t, &class); err != nil {
					return class, err
				}
			case "label":
				text, err := elementText(decoder)
				if err != nil {
					return class, err
				}
				if text != "" {
					class.Labels = append(class.Labels, text)
				}
			case "IAO_0000115", "definition":
				text, err := elementText(decoder)
				if err != nil {
					return class, err
				}
				if text != "" {
					class.Definitions = append(class.Definitions, text)
				}
			case "comment":
				text, err := elementText(decoder)
				if err != nil {
					return class, err
				}
				if text != "" {
					class.Comments = append(class.Comments, text)
				}
			case "alternative_term", "hasExactSynonym":
				text, err := elementText(decoder)
				if err != nil {
					return class, err
				}
				if text != "" {
					class.Synonyms = append(class.Synonyms, text)
				}
			case "deprecated":
				text, err := elementText(decoder)
				if err != nil {
					return class, err
				}
				if strings.EqualFold(text, "true") {
					class.Deprecated = true
				}
			case "hasAlternativeId":
				text, err := elementText(decoder)
				if err != nil {
					return class, err
				}
				if text != "" {
					class.AlternativeIDs = append(class.AlternativeIDs, text)
				}
			case "consider":
				text, err := elementText(decoder)
				if err != nil {
					return class, err
				}
				if text != "" {
					class.Consider = append(class.Consider, text)
				}
			default:
				if err := decoder.Skip(); err != nil {
					return class, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "Class" {
				return class, nil
			}
		}
	}
}

// readSubClassOf handles both forms of the axiom: a plain resource
// reference (a named parent) and an inline owl:Restriction.
func readSubClassOf(decoder *xml.Decoder, el xml.StartElement, class *OWLClass) error {
	if resource := attrValue(el, "resource"); resource != "" {
		class.Parents = append(class.Parents, fragment(resource))
		return decoder.Skip()
	}

	var restriction OWLRestriction
	for {
		tok, err := decoder.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Restriction":
				// Descend; the property and filler are direct children.
			case "onProperty":
				restriction.Property = fragment(attrValue(t, "resource"))
				if err := decoder.Skip(); err != nil {
					return err
				}
			case "someValuesFrom", "allValuesFrom", "hasValue":
				if resource := attrValue(t, "resource"); resource != "" {
					restriction.Value = fragment(resource)
					if err := decoder.Skip(); err != nil {
						return err
					}
				}
				// Inline class fillers fall through and are walked like
				// any other nesting level.
			case "Class":
				if about := attrValue(t, "about"); about != "" && restriction.Value == "" {
					restriction.Value = fragment(about)
				}
				if err := decoder.Skip(); err != nil {
					return err
				}
			default:
				if err := decoder.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "subClassOf" {
				if restriction.Property != "" && restriction.Value != "" {
					class.Restrictions = append(class.Restrictions, restriction)
				}
				return nil
			}
		}
	}
}

func elementText(decoder *xml.Decoder) (string, error) {
	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if err := decoder.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return strings.TrimSpace(b.String()), nil
		}
	}
}
