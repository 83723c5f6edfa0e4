package similarity

import (
	"fmt"

	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// dag is a vocabulary graph restricted to hierarchy edges (IS_A and
// PART_OF), prepared for annotation counting. Edges run child -> parent;
// order lists every node children-first.
type dag struct {
	order    []string
	parents  map[string][]string
	children map[string][]string
}

func buildDAG(g *terminology.Graph) (*dag, error) {
	d := &dag{
		parents:  make(map[string][]string),
		children: make(map[string][]string),
	}

	nodes := g.Nodes()
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n] = 0
	}
	for _, e := range g.Edges() {
		if e.Label != terminology.RelIsA && e.Label != terminology.RelPartOf {
			continue
		}
		d.parents[e.From] = append(d.parents[e.From], e.To)
		d.children[e.To] = append(d.children[e.To], e.From)
		inDegree[e.To]++
	}

	// Kahn's algorithm over child -> parent edges yields children before
	// their parents.
	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	d.order = make([]string, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		d.order = append(d.order, n)
		for _, parent := range d.parents[n] {
			inDegree[parent]--
			if inDegree[parent] == 0 {
				queue = append(queue, parent)
			}
		}
	}
	if len(d.order) != len(nodes) {
		return nil, fmt.Errorf("similarity: hierarchy contains a cycle (%d of %d nodes ordered)", len(d.order), len(nodes))
	}
	return d, nil
}

// annotationCounts computes the cumulative annotation count per node: its
// direct annotation degree plus the counts of its children. Children are
// processed first, so each child's count already covers its own subtree.
func (d *dag) annotationCounts(idx *annotationIndex) map[string]int {
	counts := make(map[string]int, len(d.order))
	for _, node := range d.order {
		total := idx.degree[node]
		for _, child := range d.children[node] {
			total += counts[child]
		}
		counts[node] = total
	}
	return counts
}

// ancestors returns the ancestor set of a node, itself included.
func (d *dag) ancestors(node string) map[string]struct{} {
	return d.closure(node, d.parents)
}

// descendants returns the descendant set of a node, itself included.
func (d *dag) descendants(node string) map[string]struct{} {
	return d.closure(node, d.children)
}

func (d *dag) closure(node string, next map[string][]string) map[string]struct{} {
	seen := map[string]struct{}{node: {}}
	queue := []string{node}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range next[n] {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			queue = append(queue, m)
		}
	}
	return seen
}

// annotationIndex is the view of one (target, corpus) annotation edge set
// keyed by target concept.
type annotationIndex struct {
	// degree counts the annotation edges incident to a target concept.
	degree map[string]int
	// neighbors holds the corpus concepts annotating a target concept.
	neighbors map[string]map[string]struct{}
	// corpusTotal counts the distinct corpus concepts in the edge set.
	corpusTotal int
}

func buildAnnotationIndex(annotations []terminology.Annotation, target, corpus terminology.Prefix) *annotationIndex {
	idx := &annotationIndex{
		degree:    make(map[string]int),
		neighbors: make(map[string]map[string]struct{}),
	}
	corpusSeen := make(map[string]struct{})

	link := func(targetID, corpusID string) {
		idx.degree[targetID]++
		set, ok := idx.neighbors[targetID]
		if !ok {
			set = make(map[string]struct{})
			idx.neighbors[targetID] = set
		}
		set[corpusID] = struct{}{}
		corpusSeen[corpusID] = struct{}{}
	}

	for _, a := range annotations {
		switch {
		case a.PrefixFrom == target && a.PrefixTo == corpus:
			link(a.ConceptIDFrom, a.ConceptIDTo)
		case a.PrefixFrom == corpus && a.PrefixTo == target:
			link(a.ConceptIDTo, a.ConceptIDFrom)
		}
	}
	idx.corpusTotal = len(corpusSeen)
	return idx
}
