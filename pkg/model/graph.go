package model

// Snapshot is an ordered copy of a flow's nodes and edges.
// It is the common data model handed to validation, export and the browser.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewSnapshot creates a new empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}

// AddNode appends a node to the snapshot.
func (s *Snapshot) AddNode(node Node) {
	s.Nodes = append(s.Nodes, node)
}

// AddEdge appends an edge to the snapshot.
func (s *Snapshot) AddEdge(edge Edge) {
	s.Edges = append(s.Edges, edge)
}

// NodeIDs returns the node ids in snapshot order
func (s *Snapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}
