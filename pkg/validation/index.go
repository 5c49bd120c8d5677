package validation

import (
	"cmp"
	"slices"

	"github.com/ritzau/flow-builder/pkg/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// flowIndex is a directed graph view of a flow keyed by string node ids.
// Ids referenced only by edges get a vertex too, so dangling edges are tolerated.
type flowIndex struct {
	graph     *simple.DirectedGraph
	ids       map[string]int64
	selfLoops map[int64]bool // simple graphs cannot hold self edges
}

func buildIndex(nodes []model.Node, edges []model.Edge) *flowIndex {
	idx := &flowIndex{
		graph:     simple.NewDirectedGraph(),
		ids:       make(map[string]int64),
		selfLoops: make(map[int64]bool),
	}

	for _, n := range nodes {
		idx.add(n.ID)
	}

	for _, e := range edges {
		from := idx.add(e.Source)
		to := idx.add(e.Target)
		if from == to {
			idx.selfLoops[from] = true
			continue
		}
		if !idx.graph.HasEdgeFromTo(from, to) {
			idx.graph.SetEdge(idx.graph.NewEdge(idx.graph.Node(from), idx.graph.Node(to)))
		}
	}

	return idx
}

func (idx *flowIndex) add(id string) int64 {
	if gid, exists := idx.ids[id]; exists {
		return gid
	}
	gid := int64(len(idx.ids))
	idx.ids[id] = gid
	idx.graph.AddNode(simple.Node(gid))
	return gid
}

// hasIncoming reports whether any edge targets the node
func (idx *flowIndex) hasIncoming(id string) bool {
	gid, ok := idx.ids[id]
	if !ok {
		return false
	}
	return idx.selfLoops[gid] || idx.graph.To(gid).Len() > 0
}

// hasOutgoing reports whether any edge leaves the node
func (idx *flowIndex) hasOutgoing(id string) bool {
	gid, ok := idx.ids[id]
	if !ok {
		return false
	}
	return idx.selfLoops[gid] || idx.graph.From(gid).Len() > 0
}

// reachableFrom returns the set of node ids reachable from the given id, itself included
func (idx *flowIndex) reachableFrom(id string) map[string]bool {
	reached := make(map[string]bool)
	start, ok := idx.ids[id]
	if !ok {
		return reached
	}

	byGraphID := idx.names()

	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			reached[byGraphID[n.ID()]] = true
		},
	}
	bf.Walk(idx.graph, idx.graph.Node(start), nil)
	reached[id] = true

	return reached
}

// loops returns the groups of nodes that lie on a cycle, including self-loops.
// Members and groups follow the order of nodes; ids known only from edges sort last.
func (idx *flowIndex) loops(nodes []model.Node) [][]string {
	order := make(map[string]int, len(nodes))
	for i, n := range nodes {
		order[n.ID] = i
	}
	compare := func(a, b string) int {
		ra, oka := order[a]
		rb, okb := order[b]
		switch {
		case oka && okb:
			return cmp.Compare(ra, rb)
		case oka:
			return -1
		case okb:
			return 1
		default:
			return cmp.Compare(a, b)
		}
	}

	byGraphID := idx.names()
	loops := make([][]string, 0)
	for _, scc := range topo.TarjanSCC(idx.graph) {
		if len(scc) == 1 && !idx.selfLoops[scc[0].ID()] {
			continue
		}
		ids := make([]string, 0, len(scc))
		for _, n := range scc {
			ids = append(ids, byGraphID[n.ID()])
		}
		slices.SortFunc(ids, compare)
		loops = append(loops, ids)
	}
	slices.SortFunc(loops, func(a, b []string) int { return compare(a[0], b[0]) })
	return loops
}

func (idx *flowIndex) names() map[int64]string {
	byGraphID := make(map[int64]string, len(idx.ids))
	for name, gid := range idx.ids {
		byGraphID[gid] = name
	}
	return byGraphID
}
