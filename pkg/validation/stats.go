package validation

import "github.com/ritzau/flow-builder/pkg/model"

// FlowStats summarizes the shape of a flow. It is informational and never gates save.
type FlowStats struct {
	TotalNodes   int      `json:"totalNodes"`
	TotalEdges   int      `json:"totalEdges"`
	StartNodes   int      `json:"startNodes"`
	EndNodes     int      `json:"endNodes"`
	StartNodeIDs []string `json:"startNodeIds"`
	EndNodeIDs   []string `json:"endNodeIds"`

	// Nodes the single start node cannot reach. Empty unless exactly one start node exists.
	UnreachableNodeIDs []string `json:"unreachableNodeIds"`

	// Groups of nodes that can repeat. Loops are allowed; this only reports them.
	Loops [][]string `json:"loops"`
}

// Stats derives node/edge counts and the entry (start) and exit (end) nodes of a flow
func Stats(nodes []model.Node, edges []model.Edge) FlowStats {
	idx := buildIndex(nodes, edges)

	stats := FlowStats{
		TotalNodes:         len(nodes),
		TotalEdges:         len(edges),
		StartNodeIDs:       make([]string, 0),
		EndNodeIDs:         make([]string, 0),
		UnreachableNodeIDs: make([]string, 0),
		Loops:              idx.loops(nodes),
	}

	for _, n := range nodes {
		if !idx.hasIncoming(n.ID) {
			stats.StartNodeIDs = append(stats.StartNodeIDs, n.ID)
		}
		if !idx.hasOutgoing(n.ID) {
			stats.EndNodeIDs = append(stats.EndNodeIDs, n.ID)
		}
	}
	stats.StartNodes = len(stats.StartNodeIDs)
	stats.EndNodes = len(stats.EndNodeIDs)

	if stats.StartNodes == 1 {
		reached := idx.reachableFrom(stats.StartNodeIDs[0])
		for _, n := range nodes {
			if !reached[n.ID] {
				stats.UnreachableNodeIDs = append(stats.UnreachableNodeIDs, n.ID)
			}
		}
	}

	return stats
}
