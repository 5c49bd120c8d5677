package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/flow-builder/pkg/model"
	"github.com/ritzau/flow-builder/pkg/validation"
)

// PrintFlowReport prints a nicely formatted validation report with colors
func PrintFlowReport(w io.Writer, path string, flow *model.Snapshot, result validation.Result, stats validation.FlowStats) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	labels := make(map[string]string, len(flow.Nodes))
	for _, n := range flow.Nodes {
		labels[n.ID] = n.Label()
	}

	// Header
	bold.Fprintln(w, "Flow Builder - Flow Check")
	bold.Fprintln(w, "=========================")
	fmt.Fprintf(w, "File: %s\n", path)
	fmt.Fprintf(w, "Nodes: %d\n", stats.TotalNodes)
	fmt.Fprintf(w, "Edges: %d\n", stats.TotalEdges)
	fmt.Fprintln(w)

	printNodeList(w, cyan, "Start nodes", stats.StartNodeIDs, labels)
	printNodeList(w, cyan, "End nodes", stats.EndNodeIDs, labels)
	if len(stats.UnreachableNodeIDs) > 0 {
		printNodeList(w, yellow, "Unreachable from start", stats.UnreachableNodeIDs, labels)
	}
	if len(stats.Loops) > 0 {
		cyan.Fprintf(w, "Loops (%d):\n", len(stats.Loops))
		for _, loop := range stats.Loops {
			fmt.Fprintf(w, "  %s\n", strings.Join(loop, " -> "))
		}
		fmt.Fprintln(w)
	}

	// Verdict
	if result.Valid {
		green.Fprintln(w, "✓ Flow can be saved")
		return
	}

	red.Fprintln(w, "✗ Flow cannot be saved")
	fmt.Fprintf(w, "  %s\n", result.Message)
	yellow.Fprintln(w, "  Connect every node except the first one to an incoming edge.")
}

func printNodeList(w io.Writer, c *color.Color, title string, ids []string, labels map[string]string) {
	c.Fprintf(w, "%s (%d):\n", title, len(ids))
	for _, id := range ids {
		label := strings.ReplaceAll(labels[id], "\n", " ")
		if label == "" {
			fmt.Fprintf(w, "  %s\n", id)
			continue
		}
		fmt.Fprintf(w, "  %s  %q\n", id, label)
	}
	fmt.Fprintln(w)
}
