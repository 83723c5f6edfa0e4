package similarity

import "math"

// relevanceModel scores concept pairs with Relevance semantic similarity:
// the Lin similarity of the pair's most informative common ancestor,
// damped by how generic that ancestor is.
type relevanceModel struct {
	d        *dag
	counts   map[string]int
	maxCount int
	ic       map[string]float64
	ranked   []string
}

func newRelevanceModel(d *dag, counts map[string]int) *relevanceModel {
	m := &relevanceModel{
		d:      d,
		counts: counts,
		ic:     make(map[string]float64, len(counts)),
	}
	for _, n := range d.order {
		if counts[n] > m.maxCount {
			m.maxCount = counts[n]
		}
	}
	if m.maxCount == 0 {
		return m
	}
	// Information content is defined only for annotated nodes. The order
	// slice keeps node iteration deterministic.
	for _, n := range d.order {
		if counts[n] > 0 {
			m.ic[n] = -math.Log(float64(counts[n]) / float64(m.maxCount))
			m.ranked = append(m.ranked, n)
		}
	}
	return m
}

func (m *relevanceModel) nodes() []string {
	return m.ranked
}

// score computes the Relevance similarity of two concepts. The boolean is
// false when the pair has no annotated common ancestor or carries no
// information.
func (m *relevanceModel) score(a, b string) (float64, bool) {
	icA, okA := m.ic[a]
	icB, okB := m.ic[b]
	if !okA || !okB || icA+icB == 0 {
		return 0, false
	}

	ancestorsA := m.d.ancestors(a)
	micaIC := -1.0
	micaCount := 0
	for ancestor := range m.d.ancestors(b) {
		if _, shared := ancestorsA[ancestor]; !shared {
			continue
		}
		ic, ok := m.ic[ancestor]
		if !ok {
			continue
		}
		if ic > micaIC {
			micaIC = ic
			micaCount = m.counts[ancestor]
		}
	}
	if micaIC < 0 {
		return 0, false
	}

	lin := 2 * micaIC / (icA + icB)
	damping := 1 - float64(micaCount)/float64(m.maxCount)
	return lin * damping, true
}
