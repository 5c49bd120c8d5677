// Package flowfile reads and writes flow documents as JSON or YAML.
//
// Both formats carry the same shape: a list of nodes (id, type, position, data) and a list
// of edges. Node data is decoded into the variant for the node's type.
package flowfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ritzau/flow-builder/pkg/model"
)

// Format is a flow document encoding
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown flow file format")

// ParseFormat accepts "json", "yaml" or "yml". An empty string means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == YAML {
		return "application/yaml"
	}
	return "application/json"
}

// yamlNode mirrors model.Node; data stays undecoded until the type is known
type yamlNode struct {
	ID       string         `yaml:"id"`
	Type     model.NodeType `yaml:"type"`
	Position model.Position `yaml:"position"`
	Data     yaml.Node      `yaml:"data,omitempty"`
}

type yamlDocument struct {
	Nodes []yamlNode   `yaml:"nodes"`
	Edges []model.Edge `yaml:"edges"`
}

type yamlNodeOut struct {
	ID       string         `yaml:"id"`
	Type     model.NodeType `yaml:"type"`
	Position model.Position `yaml:"position"`
	Data     model.NodeData `yaml:"data"`
}

type yamlDocumentOut struct {
	Nodes []yamlNodeOut `yaml:"nodes"`
	Edges []model.Edge  `yaml:"edges"`
}

// Decode reads a flow document
func Decode(r io.Reader, format Format) (*model.Snapshot, error) {
	var (
		snapshot *model.Snapshot
		err      error
	)
	switch format {
	case JSON:
		snapshot, err = decodeJSON(r)
	case YAML:
		snapshot, err = decodeYAML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if snapshot.Nodes == nil {
		snapshot.Nodes = make([]model.Node, 0)
	}
	if snapshot.Edges == nil {
		snapshot.Edges = make([]model.Edge, 0)
	}
	return snapshot, nil
}

func decodeJSON(r io.Reader) (*model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decoding JSON flow: %w", err)
	}
	return &snapshot, nil
}

func decodeYAML(r io.Reader) (*model.Snapshot, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding YAML flow: %w", err)
	}

	snapshot := model.NewSnapshot()
	for _, n := range doc.Nodes {
		data, err := model.DefaultData(n.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		if !n.Data.IsZero() {
			if err := n.Data.Decode(data); err != nil {
				return nil, fmt.Errorf("node %q: decoding %s data: %w", n.ID, n.Type, err)
			}
		}
		snapshot.AddNode(model.Node{ID: n.ID, Type: n.Type, Position: n.Position, Data: data})
	}
	for _, e := range doc.Edges {
		snapshot.AddEdge(e)
	}
	return snapshot, nil
}

// Encode writes a flow document
func Encode(w io.Writer, snapshot *model.Snapshot, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshot); err != nil {
			return fmt.Errorf("encoding JSON flow: %w", err)
		}
		return nil
	case YAML:
		doc := yamlDocumentOut{
			Nodes: make([]yamlNodeOut, 0, len(snapshot.Nodes)),
			Edges: snapshot.Edges,
		}
		for _, n := range snapshot.Nodes {
			doc.Nodes = append(doc.Nodes, yamlNodeOut{ID: n.ID, Type: n.Type, Position: n.Position, Data: n.Data})
		}
		if doc.Edges == nil {
			doc.Edges = make([]model.Edge, 0)
		}

		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding YAML flow: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Load reads a flow document from disk, picking the format from the extension
func Load(path string) (*model.Snapshot, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening flow file: %w", err)
	}
	defer f.Close()

	snapshot, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snapshot, nil
}
