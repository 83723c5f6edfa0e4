package terminology

// Edge is a directed, labeled relationship between two concepts of the
// same vocabulary. Hierarchy edges point child -> parent.
type Edge struct {
	From  string
	To    string
	Label RelationshipType
}

// Graph is the in-memory relationship graph a vocabulary loader builds
// before it is persisted. Nodes are concept IDs; parallel edges with the
// same (from, to, label) collapse into one.
type Graph struct {
	nodes map[string]struct{}
	edges map[Edge]struct{}
	order []Edge
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]struct{}),
		edges: make(map[Edge]struct{}),
	}
}

func (g *Graph) AddNode(conceptID string) {
	g.nodes[conceptID] = struct{}{}
}

// AddEdge records a labeled edge, implicitly adding both endpoints.
func (g *Graph) AddEdge(from, to string, label RelationshipType) {
	g.AddNode(from)
	g.AddNode(to)
	e := Edge{From: from, To: to, Label: label}
	if _, seen := g.edges[e]; seen {
		return
	}
	g.edges[e] = struct{}{}
	g.order = append(g.order, e)
}

func (g *Graph) HasNode(conceptID string) bool {
	_, ok := g.nodes[conceptID]
	return ok
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns the node set. The order is unspecified.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.order))
	copy(out, g.order)
	return out
}

// Annotation is a directed mapping between concepts of two different
// vocabularies. An empty Type persists as AnnotationAnnotatedWith.
type Annotation struct {
	PrefixFrom    Prefix            `json:"prefixFrom"`
	ConceptIDFrom string            `json:"conceptIdFrom"`
	PrefixTo      Prefix            `json:"prefixTo"`
	ConceptIDTo   string            `json:"conceptIdTo"`
	Type          AnnotationType    `json:"annotationType,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
}
