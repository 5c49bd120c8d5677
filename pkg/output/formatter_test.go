package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ritzau/flow-builder/pkg/model"
	"github.com/ritzau/flow-builder/pkg/validation"
)

func textNode(id, label string) model.Node {
	return model.Node{ID: id, Type: model.NodeTypeTextMessage, Data: &model.TextMessageData{Label: label}}
}

func report(flow *model.Snapshot) string {
	color.NoColor = true
	var buf bytes.Buffer
	PrintFlowReport(&buf, "flow.json", flow,
		validation.ValidateSnapshot(flow),
		validation.Stats(flow.Nodes, flow.Edges))
	return buf.String()
}

func TestPrintFlowReportValid(t *testing.T) {
	flow := model.NewSnapshot()
	flow.AddNode(textNode("a", "hello"))
	flow.AddNode(textNode("b", "bye"))
	flow.AddNode(textNode("c", "again?"))
	flow.AddEdge(model.Edge{ID: "e1", Source: "a", Target: "b"})
	flow.AddEdge(model.Edge{ID: "e2", Source: "b", Target: "c"})
	flow.AddEdge(model.Edge{ID: "e3", Source: "c", Target: "b"})

	got := report(flow)

	for _, want := range []string{"File: flow.json", "Nodes: 3", "Edges: 3", "Start nodes (1):", `a  "hello"`, "Loops (1):", "b -> c", "✓ Flow can be saved"} {
		if !strings.Contains(got, want) {
			t.Errorf("Report missing %q:\n%s", want, got)
		}
	}
}

func TestPrintFlowReportInvalid(t *testing.T) {
	flow := model.NewSnapshot()
	flow.AddNode(textNode("a", "hello"))
	flow.AddNode(textNode("b", "multi\nline"))

	got := report(flow)

	if !strings.Contains(got, "✗ Flow cannot be saved") {
		t.Errorf("Expected failure verdict:\n%s", got)
	}
	if !strings.Contains(got, "Nodes without incoming connections: a, b") {
		t.Errorf("Expected validation message:\n%s", got)
	}
	if !strings.Contains(got, `b  "multi line"`) {
		t.Errorf("Expected label on one line:\n%s", got)
	}
}
