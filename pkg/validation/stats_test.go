package validation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/flow-builder/pkg/model"
)

func TestStats(t *testing.T) {
	tests := []struct {
		name  string
		nodes []model.Node
		edges []model.Edge
		want  FlowStats
	}{
		{
			name: "empty",
			want: FlowStats{
				StartNodeIDs:       []string{},
				EndNodeIDs:         []string{},
				UnreachableNodeIDs: []string{},
				Loops:              [][]string{},
			},
		},
		{
			name:  "chain",
			nodes: nodes("a", "b", "c"),
			edges: []model.Edge{edge("a", "b"), edge("b", "c")},
			want: FlowStats{
				TotalNodes:         3,
				TotalEdges:         2,
				StartNodes:         1,
				EndNodes:           1,
				StartNodeIDs:       []string{"a"},
				EndNodeIDs:         []string{"c"},
				UnreachableNodeIDs: []string{},
				Loops:              [][]string{},
			},
		},
		{
			name:  "single start with detached cycle",
			nodes: nodes("a", "b", "c", "d"),
			edges: []model.Edge{edge("a", "b"), edge("c", "d"), edge("d", "c")},
			want: FlowStats{
				TotalNodes:         4,
				TotalEdges:         3,
				StartNodes:         1,
				EndNodes:           1,
				StartNodeIDs:       []string{"a"},
				EndNodeIDs:         []string{"b"},
				UnreachableNodeIDs: []string{"c", "d"},
				Loops:              [][]string{{"c", "d"}},
			},
		},
		{
			name:  "two starts skip reachability",
			nodes: nodes("a", "b"),
			want: FlowStats{
				TotalNodes:         2,
				StartNodes:         2,
				EndNodes:           2,
				StartNodeIDs:       []string{"a", "b"},
				EndNodeIDs:         []string{"a", "b"},
				UnreachableNodeIDs: []string{},
				Loops:              [][]string{},
			},
		},
		{
			name:  "self loop node is neither start nor end",
			nodes: nodes("a"),
			edges: []model.Edge{edge("a", "a")},
			want: FlowStats{
				TotalNodes:         1,
				TotalEdges:         1,
				StartNodeIDs:       []string{},
				EndNodeIDs:         []string{},
				UnreachableNodeIDs: []string{},
				Loops:              [][]string{{"a"}},
			},
		},
		{
			name:  "loop back to a later node",
			nodes: nodes("a", "b", "c"),
			edges: []model.Edge{edge("a", "b"), edge("b", "c"), edge("c", "b")},
			want: FlowStats{
				TotalNodes:         3,
				TotalEdges:         3,
				StartNodes:         1,
				StartNodeIDs:       []string{"a"},
				EndNodeIDs:         []string{},
				UnreachableNodeIDs: []string{},
				Loops:              [][]string{{"b", "c"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Stats(tt.nodes, tt.edges)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
