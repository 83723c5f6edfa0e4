package similarity

import "math"

// coannotationModel scores concept pairs by how often their subtrees are
// annotated with the same corpus concepts: normalized pointwise mutual
// information weighted by the Jaccard index of the two annotation sets.
type coannotationModel struct {
	total  int
	ranked []string
	sets   map[string]map[string]struct{}
}

func newCoannotationModel(d *dag, idx *annotationIndex, counts map[string]int) *coannotationModel {
	m := &coannotationModel{
		total: idx.corpusTotal,
		sets:  make(map[string]map[string]struct{}),
	}
	// Unannotated subtrees can never score; prune them up front.
	for _, n := range d.order {
		if counts[n] == 0 {
			continue
		}
		set := make(map[string]struct{})
		for descendant := range d.descendants(n) {
			for corpusID := range idx.neighbors[descendant] {
				set[corpusID] = struct{}{}
			}
		}
		m.ranked = append(m.ranked, n)
		m.sets[n] = set
	}
	return m
}

func (m *coannotationModel) nodes() []string {
	return m.ranked
}

func (m *coannotationModel) score(a, b string) (float64, bool) {
	setA := m.sets[a]
	setB := m.sets[b]
	if len(setA) == 0 || len(setB) == 0 {
		return 0, false
	}
	intersection := 0
	for id := range setA {
		if _, ok := setB[id]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0, false
	}

	n := float64(m.total)
	i := float64(intersection)
	npmi := 1.0
	if i < n {
		pmi := math.Log(i * n / (float64(len(setA)) * float64(len(setB))))
		npmi = (1 + pmi/math.Log(n/i)) / 2
	}
	union := len(setA) + len(setB) - intersection
	jaccard := i / float64(union)
	return npmi * jaccard, true
}
