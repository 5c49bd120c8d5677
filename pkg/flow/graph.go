package flow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ritzau/flow-builder/pkg/model"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrDuplicateOutgoingConnection = errors.New("a source handle can only have one outgoing connection")
	ErrNodeNotFound                = errors.New("node not found")
	ErrEdgeNotFound                = errors.New("edge not found")
	ErrDuplicateNodeID             = errors.New("duplicate node ID")
)

// Graph is the in-memory flow: nodes in insertion order and edges in creation order.
// It enforces the connection-time rule that a source handle has at most one outgoing edge.
// Graph is not safe for concurrent use.
type Graph struct {
	nodes     *orderedmap.OrderedMap[string, *model.Node]
	edges     []model.Edge
	ids       IDGenerator
	newEdgeID func() string
}

// Option configures a Graph
type Option func(*Graph)

// WithIDGenerator replaces the node id generator
func WithIDGenerator(ids IDGenerator) Option {
	return func(g *Graph) { g.ids = ids }
}

// WithEdgeIDs replaces the edge id generator used when a connection carries no id
func WithEdgeIDs(next func() string) Option {
	return func(g *Graph) { g.newEdgeID = next }
}

// NewGraph creates a new empty flow graph
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		nodes:     orderedmap.New[string, *model.Node](),
		edges:     make([]model.Edge, 0),
		ids:       NewTimestampIDs(nil),
		newEdgeID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateNode adds a node of the given type at the given position with default data
func (g *Graph) CreateNode(t model.NodeType, pos model.Position) (model.Node, error) {
	data, err := model.DefaultData(t)
	if err != nil {
		return model.Node{}, err
	}

	id := g.ids.NextNodeID(t)
	for g.hasNode(id) {
		id = g.ids.NextNodeID(t)
	}

	node := &model.Node{
		ID:       id,
		Type:     t,
		Position: pos,
		Data:     data,
	}
	g.nodes.Set(id, node)
	return node.Clone(), nil
}

// Connect appends an edge for the connection unless its source handle already has an
// outgoing edge, in which case ErrDuplicateOutgoingConnection is returned and the graph is
// left unchanged. Self-loops, fan-in and cycles are allowed.
func (g *Graph) Connect(c model.Connection) (model.Edge, error) {
	for _, e := range g.edges {
		if c.SameSource(e) {
			return model.Edge{}, fmt.Errorf("%w: %s already connects to %s", ErrDuplicateOutgoingConnection, handleName(e.Source, e.SourceHandle), e.Target)
		}
	}

	id := c.ID
	if id == "" {
		id = g.newEdgeID()
	}

	edge := model.Edge{
		ID:           id,
		Source:       c.Source,
		SourceHandle: c.SourceHandle,
		Target:       c.Target,
		TargetHandle: c.TargetHandle,
	}
	g.edges = append(g.edges, edge)
	return edge, nil
}

// UpdateNodeData merges a partial update into a node's data
func (g *Graph) UpdateNodeData(id string, patch model.NodeDataPatch) (model.Node, error) {
	node, ok := g.nodes.Get(id)
	if !ok {
		return model.Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	data, err := patch.Apply(node.Data)
	if err != nil {
		return model.Node{}, fmt.Errorf("updating node %s: %w", id, err)
	}
	node.Data = data
	return node.Clone(), nil
}

// MoveNode records a new canvas position for a node
func (g *Graph) MoveNode(id string, pos model.Position) (model.Node, error) {
	node, ok := g.nodes.Get(id)
	if !ok {
		return model.Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	node.Position = pos
	return node.Clone(), nil
}

// RemoveNode deletes a node and every edge attached to it.
// It returns the removed edges.
func (g *Graph) RemoveNode(id string) ([]model.Edge, error) {
	if _, ok := g.nodes.Delete(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	var removed []model.Edge
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	return removed, nil
}

// RemoveEdge deletes an edge by id
func (g *Graph) RemoveEdge(id string) (model.Edge, error) {
	for i, e := range g.edges {
		if e.ID == id {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return e, nil
		}
	}
	return model.Edge{}, fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
}

// Node returns a copy of the node with the given id
func (g *Graph) Node(id string) (model.Node, bool) {
	node, ok := g.nodes.Get(id)
	if !ok {
		return model.Node{}, false
	}
	return node.Clone(), true
}

// Nodes returns copies of all nodes in insertion order
func (g *Graph) Nodes() []model.Node {
	nodes := make([]model.Node, 0, g.nodes.Len())
	for pair := g.nodes.Oldest(); pair != nil; pair = pair.Next() {
		nodes = append(nodes, pair.Value.Clone())
	}
	return nodes
}

// Edges returns a copy of all edges in creation order
func (g *Graph) Edges() []model.Edge {
	edges := make([]model.Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// Len returns the number of nodes and edges
func (g *Graph) Len() (nodes, edges int) {
	return g.nodes.Len(), len(g.edges)
}

// Snapshot returns an ordered copy of the whole graph
func (g *Graph) Snapshot() *model.Snapshot {
	return &model.Snapshot{
		Nodes: g.Nodes(),
		Edges: g.Edges(),
	}
}

// Load replaces the graph contents with a snapshot.
// Node ids must be unique and no source handle may have more than one outgoing edge,
// the same rule Connect enforces. On error the graph is left unchanged.
func (g *Graph) Load(s *model.Snapshot) error {
	nodes := orderedmap.New[string, *model.Node]()
	for _, n := range s.Nodes {
		if _, exists := nodes.Get(n.ID); exists {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		if n.Data == nil {
			data, err := model.DefaultData(n.Type)
			if err != nil {
				return fmt.Errorf("node %s: %w", n.ID, err)
			}
			n.Data = data
		}
		c := n.Clone()
		nodes.Set(c.ID, &c)
	}

	edges := make([]model.Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		candidate := model.Connection{Source: e.Source, SourceHandle: e.SourceHandle}
		for _, prev := range edges {
			if candidate.SameSource(prev) {
				return fmt.Errorf("%w: edges %s and %s both leave %s", ErrDuplicateOutgoingConnection, prev.ID, e.ID, handleName(e.Source, e.SourceHandle))
			}
		}
		edges = append(edges, e)
	}

	g.nodes = nodes
	g.edges = edges
	return nil
}

func (g *Graph) hasNode(id string) bool {
	_, ok := g.nodes.Get(id)
	return ok
}

func handleName(node, handle string) string {
	if handle == "" {
		return node
	}
	return node + "." + handle
}
