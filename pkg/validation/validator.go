// Package validation decides whether a flow may be saved.
//
// The save-time rule is global: in a flow with more than one node, at most one node may
// lack incoming edges (the single entry point). It is evaluated only on demand.
package validation

import (
	"fmt"
	"strings"

	"github.com/ritzau/flow-builder/pkg/model"
)

const entryTopologyPrefix = "Cannot save Flow: More than one node has empty target handles. Nodes without incoming connections: "

// InvalidEntryTopologyError reports a flow with more than one entry node
type InvalidEntryTopologyError struct {
	EntryNodes []string
}

func (e *InvalidEntryTopologyError) Error() string {
	return entryTopologyPrefix + strings.Join(e.EntryNodes, ", ")
}

// Result is the outcome of validating a flow
type Result struct {
	Valid      bool     `json:"valid"`
	Message    string   `json:"message"`
	EntryNodes []string `json:"entryNodes,omitempty"` // Nodes without incoming edges, in node order
}

// Err returns the result as an error, or nil when the flow is valid
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	ids := make([]string, len(r.EntryNodes))
	copy(ids, r.EntryNodes)
	return &InvalidEntryTopologyError{EntryNodes: ids}
}

// Validate checks the flow against the single-entry-point rule.
// It is a pure function of its inputs and never fails on empty collections,
// duplicate ids or edges that reference missing nodes.
func Validate(nodes []model.Node, edges []model.Edge) Result {
	if len(nodes) <= 1 {
		return Result{Valid: true}
	}

	entries := entryNodes(buildIndex(nodes, edges), nodes)
	if len(entries) > 1 {
		err := &InvalidEntryTopologyError{EntryNodes: entries}
		return Result{
			Valid:      false,
			Message:    err.Error(),
			EntryNodes: entries,
		}
	}

	return Result{Valid: true, EntryNodes: entries}
}

// ValidateSnapshot is Validate over a snapshot
func ValidateSnapshot(s *model.Snapshot) Result {
	if s == nil {
		return Result{Valid: true}
	}
	return Validate(s.Nodes, s.Edges)
}

func entryNodes(idx *flowIndex, nodes []model.Node) []string {
	var entries []string
	for _, n := range nodes {
		if !idx.hasIncoming(n.ID) {
			entries = append(entries, n.ID)
		}
	}
	return entries
}

// Summary renders a one-line description of a result for logs and the console
func (r Result) Summary() string {
	if r.Valid {
		return fmt.Sprintf("valid (%d entry node(s))", len(r.EntryNodes))
	}
	return r.Message
}
