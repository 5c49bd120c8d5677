package validation

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/ritzau/flow-builder/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodes(ids ...string) []model.Node {
	out := make([]model.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Node{ID: id, Type: model.NodeTypeTextMessage, Data: &model.TextMessageData{Label: id}})
	}
	return out
}

func edge(source, target string) model.Edge {
	return model.Edge{ID: source + "->" + target, Source: source, Target: target}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		nodes       []model.Node
		edges       []model.Edge
		wantValid   bool
		wantEntries []string
	}{
		{
			name:      "empty flow",
			wantValid: true,
		},
		{
			name:      "single node",
			nodes:     nodes("n1"),
			wantValid: true,
		},
		{
			name:        "two unconnected nodes",
			nodes:       nodes("n1", "n2"),
			wantValid:   false,
			wantEntries: []string{"n1", "n2"},
		},
		{
			name:        "two connected nodes",
			nodes:       nodes("n1", "n2"),
			edges:       []model.Edge{edge("n1", "n2")},
			wantValid:   true,
			wantEntries: []string{"n1"},
		},
		{
			name:        "three nodes one edge",
			nodes:       nodes("n1", "n2", "n3"),
			edges:       []model.Edge{edge("n1", "n2")},
			wantValid:   false,
			wantEntries: []string{"n1", "n3"},
		},
		{
			name:      "cycle has no entry node",
			nodes:     nodes("n1", "n2"),
			edges:     []model.Edge{edge("n1", "n2"), edge("n2", "n1")},
			wantValid: true,
		},
		{
			name:        "self loop counts as incoming",
			nodes:       nodes("n1", "n2"),
			edges:       []model.Edge{edge("n1", "n1")},
			wantValid:   true,
			wantEntries: []string{"n2"},
		},
		{
			name:        "dangling edge is tolerated",
			nodes:       nodes("n1", "n2"),
			edges:       []model.Edge{edge("ghost", "n2")},
			wantValid:   true,
			wantEntries: []string{"n1"},
		},
		{
			name:        "duplicate ids are reported per entry",
			nodes:       nodes("n1", "n1"),
			wantValid:   false,
			wantEntries: []string{"n1", "n1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.nodes, tt.edges)

			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantEntries, result.EntryNodes)
			if tt.wantValid {
				assert.Empty(t, result.Message)
				assert.NoError(t, result.Err())
			} else {
				assert.NotEmpty(t, result.Message)
				var topoErr *InvalidEntryTopologyError
				require.True(t, errors.As(result.Err(), &topoErr))
				assert.Equal(t, tt.wantEntries, topoErr.EntryNodes)
			}
		})
	}
}

func TestValidateMessageText(t *testing.T) {
	result := Validate(nodes("textNode_1", "textNode_2"), nil)

	assert.Equal(t,
		"Cannot save Flow: More than one node has empty target handles. Nodes without incoming connections: textNode_1, textNode_2",
		result.Message)
	assert.Equal(t, result.Message, result.Err().Error())
}

func TestValidateIsIdempotent(t *testing.T) {
	ns := nodes("a", "b", "c")
	es := []model.Edge{edge("a", "b")}

	first := Validate(ns, es)
	second := Validate(ns, es)

	assert.Equal(t, first, second)
}

func TestValidateIgnoresOrdering(t *testing.T) {
	ns := nodes("a", "b", "c", "d", "e")
	es := []model.Edge{edge("a", "b"), edge("b", "c"), edge("d", "c")}

	baseline := Validate(ns, es)
	baselineEntries := sortedCopy(baseline.EntryNodes)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffledNodes := append([]model.Node(nil), ns...)
		shuffledEdges := append([]model.Edge(nil), es...)
		rng.Shuffle(len(shuffledNodes), func(i, j int) { shuffledNodes[i], shuffledNodes[j] = shuffledNodes[j], shuffledNodes[i] })
		rng.Shuffle(len(shuffledEdges), func(i, j int) { shuffledEdges[i], shuffledEdges[j] = shuffledEdges[j], shuffledEdges[i] })

		got := Validate(shuffledNodes, shuffledEdges)
		assert.Equal(t, baseline.Valid, got.Valid)
		assert.Equal(t, baselineEntries, sortedCopy(got.EntryNodes))
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	ns := nodes("a", "b")
	es := []model.Edge{edge("a", "b")}

	Validate(ns, es)

	assert.Equal(t, nodes("a", "b"), ns)
	assert.Equal(t, []model.Edge{edge("a", "b")}, es)
}

func TestValidateSnapshotNil(t *testing.T) {
	assert.True(t, ValidateSnapshot(nil).Valid)
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func TestResultSummary(t *testing.T) {
	valid := Validate(nodes("a", "b"), []model.Edge{edge("a", "b")})
	assert.Equal(t, "valid (1 entry node(s))", valid.Summary())

	invalid := Validate(nodes("a", "b"), nil)
	assert.Equal(t, invalid.Message, invalid.Summary())
}
