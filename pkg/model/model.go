package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NodeType represents the kind of node placed on the canvas
type NodeType string

const (
	NodeTypeTextMessage NodeType = "textNode" // Sends a single text message
)

// DefaultTextMessageLabel is the label given to freshly dropped text message nodes
const DefaultTextMessageLabel = "text message"

var (
	ErrUnknownNodeType   = errors.New("unknown node type")
	ErrPatchTypeMismatch = errors.New("patch does not match node type")
)

// Position is a point on the canvas. It carries no meaning for validation.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData is the per-type payload of a node. Each node type has exactly one
// implementation.
type NodeData interface {
	NodeType() NodeType
	clone() NodeData
}

// NodeDataPatch is a partial update of a NodeData value. Nil fields are left untouched.
type NodeDataPatch interface {
	NodeType() NodeType
	Apply(data NodeData) (NodeData, error)
}

// TextMessageData is the payload of a text message node
type TextMessageData struct {
	Label string `json:"label" yaml:"label"`
}

func (d *TextMessageData) NodeType() NodeType { return NodeTypeTextMessage }

func (d *TextMessageData) clone() NodeData {
	c := *d
	return &c
}

// TextMessagePatch updates the fields of a TextMessageData
type TextMessagePatch struct {
	Label *string `json:"label,omitempty"`
}

func (p *TextMessagePatch) NodeType() NodeType { return NodeTypeTextMessage }

// Apply returns a copy of data with the non-nil patch fields merged in
func (p *TextMessagePatch) Apply(data NodeData) (NodeData, error) {
	text, ok := data.(*TextMessageData)
	if !ok {
		return nil, fmt.Errorf("%w: %s patch on %s node", ErrPatchTypeMismatch, p.NodeType(), data.NodeType())
	}
	merged := *text
	if p.Label != nil {
		merged.Label = *p.Label
	}
	return &merged, nil
}

// DefaultData returns the data a new node of the given type starts with
func DefaultData(t NodeType) (NodeData, error) {
	switch t {
	case NodeTypeTextMessage:
		return &TextMessageData{Label: DefaultTextMessageLabel}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}
}

// DecodeData decodes a raw JSON payload into the variant for the given type.
// An empty payload yields the type's default data.
func DecodeData(t NodeType, raw json.RawMessage) (NodeData, error) {
	data, err := DefaultData(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("decoding %s data: %w", t, err)
	}
	return data, nil
}

// DecodePatch decodes a raw JSON partial update for the given node type
func DecodePatch(t NodeType, raw json.RawMessage) (NodeDataPatch, error) {
	switch t {
	case NodeTypeTextMessage:
		var p TextMessagePatch
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding %s patch: %w", t, err)
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}
}

// Node represents a message step in the flow
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Clone returns a deep copy of the node
func (n Node) Clone() Node {
	if n.Data != nil {
		n.Data = n.Data.clone()
	}
	return n
}

// Label returns the display label of the node, or "" if its type has none
func (n Node) Label() string {
	if text, ok := n.Data.(*TextMessageData); ok {
		return text.Label
	}
	return ""
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// UnmarshalJSON picks the data variant from the node type
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	data, err := DecodeData(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("node %q: %w", raw.ID, err)
	}
	*n = Node{ID: raw.ID, Type: raw.Type, Position: raw.Position, Data: data}
	return nil
}

// Edge represents a directed connection from a source handle to a target handle
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`             // Source node ID
	SourceHandle string `json:"sourceHandle" yaml:"sourceHandle"` // Empty for the node's default handle
	Target       string `json:"target" yaml:"target"`             // Target node ID
	TargetHandle string `json:"targetHandle" yaml:"targetHandle"`
}

// Connection is a proposed edge as reported by a connect gesture
type Connection struct {
	ID           string `json:"id,omitempty"` // Optional; generated when empty
	Source       string `json:"source" validate:"required"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target" validate:"required"`
	TargetHandle string `json:"targetHandle"`
}

// SameSource reports whether the edge leaves from the connection's source handle
func (c Connection) SameSource(e Edge) bool {
	return e.Source == c.Source && e.SourceHandle == c.SourceHandle
}
