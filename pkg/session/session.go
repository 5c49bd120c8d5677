// Package session coordinates one editing session: the flow graph, the selected node and
// the error banner. Every user action goes through a Session, which applies it atomically
// and tells observers about the resulting state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ritzau/flow-builder/pkg/banner"
	"github.com/ritzau/flow-builder/pkg/flow"
	"github.com/ritzau/flow-builder/pkg/logging"
	"github.com/ritzau/flow-builder/pkg/model"
	"github.com/ritzau/flow-builder/pkg/validation"
)

// DuplicateConnectionMessage is the banner text for a rejected connect gesture
const DuplicateConnectionMessage = "A source handle can only have one outgoing connection."

// Recorder receives activity counts. *metrics.Registry implements it.
type Recorder interface {
	NodeCreated(nodeType string)
	Connection(accepted bool)
	Save(accepted bool)
	FlowSize(nodes, edges int)
}

type nopRecorder struct{}

func (nopRecorder) NodeCreated(string) {}
func (nopRecorder) Connection(bool)    {}
func (nopRecorder) Save(bool)          {}
func (nopRecorder) FlowSize(int, int)  {}

// State is what the browser needs to render the editor
type State struct {
	Nodes          []model.Node   `json:"nodes"`
	Edges          []model.Edge   `json:"edges"`
	SelectedNodeID string         `json:"selectedNodeId,omitempty"`
	Banner         banner.Message `json:"banner"`
}

// SaveReport describes an accepted save
type SaveReport struct {
	SavedAt time.Time           `json:"savedAt"`
	Stats   validation.FlowStats `json:"stats"`
}

// Options configures a Session
type Options struct {
	ConnectBannerTTL time.Duration // How long a rejected connection stays on screen
	SaveBannerTTL    time.Duration // How long a rejected save stays on screen
	Sink             Sink
	Recorder         Recorder
	Graph            *flow.Graph
	BannerOptions    []banner.Option
	Now              func() time.Time
}

// Session is safe for concurrent use; operations are serialized.
type Session struct {
	mu       sync.Mutex
	graph    *flow.Graph
	selected string
	banner   *banner.Banner

	connectTTL time.Duration
	saveTTL    time.Duration
	sink       Sink
	recorder   Recorder
	now        func() time.Time

	seq uint64 // Bumped under mu for every accepted mutation

	obsMu           sync.RWMutex
	stateObservers  []func(State)
	bannerObservers []func(banner.Message)

	// Observers see states and banners in order; late arrivals of older ones are dropped
	publishMu     sync.Mutex
	publishedSeq  uint64
	bannerShownMu sync.Mutex
	bannerShown   uint64
}

// change is a state captured under mu together with its position in the mutation order
type change struct {
	state State
	seq   uint64
}

// New creates a session with an empty flow
func New(opts Options) *Session {
	s := &Session{
		graph:      opts.Graph,
		connectTTL: opts.ConnectBannerTTL,
		saveTTL:    opts.SaveBannerTTL,
		sink:       opts.Sink,
		recorder:   opts.Recorder,
		now:        opts.Now,
	}
	if s.graph == nil {
		s.graph = flow.NewGraph()
	}
	if s.sink == nil {
		s.sink = LogSink{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	bannerOpts := append([]banner.Option{banner.OnChange(s.bannerChanged), banner.WithClock(s.now)}, opts.BannerOptions...)
	s.banner = banner.New(bannerOpts...)
	return s
}

// OnChange registers an observer called after every accepted mutation. States arrive in
// mutation order; one superseded by a newer state before delivery is skipped.
// Observers must not call back into the session.
func (s *Session) OnChange(f func(State)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.stateObservers = append(s.stateObservers, f)
}

// OnBannerChange registers an observer called whenever the banner is shown or cleared,
// including when it expires on its own. Observers must not call back into the session.
func (s *Session) OnBannerChange(f func(banner.Message)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.bannerObservers = append(s.bannerObservers, f)
}

// DropNode creates a node for a palette tag at the drop position
func (s *Session) DropNode(ctx context.Context, t model.NodeType, pos model.Position) (model.Node, error) {
	if _, ok := model.LookupPaletteItem(t); !ok {
		return model.Node{}, fmt.Errorf("%w: %q is not in the palette", model.ErrUnknownNodeType, t)
	}

	s.mu.Lock()
	node, err := s.graph.CreateNode(t, pos)
	if err != nil {
		s.mu.Unlock()
		return model.Node{}, err
	}
	c := s.changeLocked()
	s.mu.Unlock()

	logging.InfoContext(ctx, "node created", "id", node.ID, "type", string(t))
	s.recorder.NodeCreated(string(t))
	s.changed(c)
	return node, nil
}

// Connect adds an edge unless its source handle already has one. A rejected connection
// shows a banner and leaves the flow unchanged; an accepted one clears any banner.
func (s *Session) Connect(ctx context.Context, conn model.Connection) (model.Edge, error) {
	s.mu.Lock()
	edge, err := s.graph.Connect(conn)
	if err != nil {
		duplicate := errors.Is(err, flow.ErrDuplicateOutgoingConnection)
		if duplicate {
			// The banner follows the graph's order of connect gestures
			s.banner.Show(banner.KindDuplicateOutgoingConnection, DuplicateConnectionMessage, s.connectTTL)
		}
		s.mu.Unlock()
		if duplicate {
			logging.InfoContext(ctx, "connection rejected", "source", conn.Source, "sourceHandle", conn.SourceHandle, "target", conn.Target)
			s.recorder.Connection(false)
		}
		return model.Edge{}, err
	}
	s.banner.Clear()
	c := s.changeLocked()
	s.mu.Unlock()

	logging.InfoContext(ctx, "edge created", "id", edge.ID, "source", edge.Source, "target", edge.Target)
	s.recorder.Connection(true)
	s.changed(c)
	return edge, nil
}

// UpdateNodeData merges a typed partial update into a node's data
func (s *Session) UpdateNodeData(ctx context.Context, id string, patch model.NodeDataPatch) (model.Node, error) {
	s.mu.Lock()
	node, err := s.graph.UpdateNodeData(id, patch)
	if err != nil {
		s.mu.Unlock()
		return model.Node{}, err
	}
	c := s.changeLocked()
	s.mu.Unlock()

	logging.DebugContext(ctx, "node data updated", "id", id)
	s.changed(c)
	return node, nil
}

// PatchNodeData decodes a raw partial update for the node's type and applies it
func (s *Session) PatchNodeData(ctx context.Context, id string, raw json.RawMessage) (model.Node, error) {
	s.mu.Lock()
	current, ok := s.graph.Node(id)
	s.mu.Unlock()
	if !ok {
		return model.Node{}, fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
	}

	patch, err := model.DecodePatch(current.Type, raw)
	if err != nil {
		return model.Node{}, err
	}
	return s.UpdateNodeData(ctx, id, patch)
}

// MoveNode records a node's new position after a drag
func (s *Session) MoveNode(ctx context.Context, id string, pos model.Position) (model.Node, error) {
	s.mu.Lock()
	node, err := s.graph.MoveNode(id, pos)
	if err != nil {
		s.mu.Unlock()
		return model.Node{}, err
	}
	c := s.changeLocked()
	s.mu.Unlock()

	logging.TraceContext(ctx, "node moved", "id", id, "x", pos.X, "y", pos.Y)
	s.changed(c)
	return node, nil
}

// RemoveNode deletes a node with its edges and drops the selection if it pointed there
func (s *Session) RemoveNode(ctx context.Context, id string) error {
	s.mu.Lock()
	removed, err := s.graph.RemoveNode(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.selected == id {
		s.selected = ""
	}
	c := s.changeLocked()
	s.mu.Unlock()

	logging.InfoContext(ctx, "node removed", "id", id, "edgesRemoved", len(removed))
	s.changed(c)
	return nil
}

// RemoveEdge deletes an edge
func (s *Session) RemoveEdge(ctx context.Context, id string) error {
	s.mu.Lock()
	edge, err := s.graph.RemoveEdge(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	c := s.changeLocked()
	s.mu.Unlock()

	logging.InfoContext(ctx, "edge removed", "id", id, "source", edge.Source, "target", edge.Target)
	s.changed(c)
	return nil
}

// Select makes a node the target of the settings panel and returns it
func (s *Session) Select(id string) (model.Node, error) {
	s.mu.Lock()
	node, ok := s.graph.Node(id)
	if !ok {
		s.mu.Unlock()
		return model.Node{}, fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
	}
	s.selected = id
	c := s.changeLocked()
	s.mu.Unlock()

	s.changed(c)
	return node, nil
}

// Deselect returns the side panel to the palette
func (s *Session) Deselect() {
	s.mu.Lock()
	if s.selected == "" {
		s.mu.Unlock()
		return
	}
	s.selected = ""
	c := s.changeLocked()
	s.mu.Unlock()

	s.changed(c)
}

// Selected returns the selected node, if any
func (s *Session) Selected() (model.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return model.Node{}, false
	}
	return s.graph.Node(s.selected)
}

// Node returns a node by id
func (s *Session) Node(id string) (model.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Node(id)
}

// Save validates the current flow. An invalid flow shows a banner naming the entry nodes
// and returns *validation.InvalidEntryTopologyError; a valid one clears the banner and is
// handed to the sink.
func (s *Session) Save(ctx context.Context) (*SaveReport, error) {
	s.mu.Lock()
	snapshot := s.graph.Snapshot()
	result := validation.ValidateSnapshot(snapshot)
	if result.Valid {
		s.banner.Clear()
	} else {
		s.banner.Show(banner.KindInvalidEntryTopology, result.Message, s.saveTTL)
	}
	s.mu.Unlock()

	if !result.Valid {
		logging.InfoContext(ctx, "save rejected", "summary", result.Summary())
		s.recorder.Save(false)
		return nil, result.Err()
	}

	logging.DebugContext(ctx, "flow validated", "summary", result.Summary())
	if err := s.sink.Persist(ctx, snapshot); err != nil {
		s.recorder.Save(false)
		return nil, fmt.Errorf("handing flow to sink: %w", err)
	}
	s.recorder.Save(true)

	return &SaveReport{
		SavedAt: s.now(),
		Stats:   validation.Stats(snapshot.Nodes, snapshot.Edges),
	}, nil
}

// Stats returns informational statistics for the current flow
func (s *Session) Stats() validation.FlowStats {
	snapshot := s.Snapshot()
	return validation.Stats(snapshot.Nodes, snapshot.Edges)
}

// Snapshot returns a copy of the current flow
func (s *Session) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Snapshot()
}

// State returns everything the editor renders
func (s *Session) State() State {
	s.mu.Lock()
	state := s.stateLocked()
	s.mu.Unlock()
	return s.withBanner(state)
}

// Banner returns the message currently shown
func (s *Session) Banner() banner.Message {
	return s.banner.Current()
}

// DismissBanner clears the banner before it expires
func (s *Session) DismissBanner() {
	s.banner.Clear()
}

func (s *Session) stateLocked() State {
	return State{
		Nodes:          s.graph.Nodes(),
		Edges:          s.graph.Edges(),
		SelectedNodeID: s.selected,
	}
}

func (s *Session) changeLocked() change {
	s.seq++
	return change{state: s.stateLocked(), seq: s.seq}
}

func (s *Session) withBanner(state State) State {
	state.Banner = s.banner.Current()
	return state
}

func (s *Session) changed(c change) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if c.seq <= s.publishedSeq {
		logging.Trace("dropping superseded state", "seq", c.seq, "published", s.publishedSeq)
		return
	}
	s.publishedSeq = c.seq

	state := s.withBanner(c.state)
	s.recorder.FlowSize(len(state.Nodes), len(state.Edges))

	s.obsMu.RLock()
	observers := append([]func(State){}, s.stateObservers...)
	s.obsMu.RUnlock()

	for _, observe := range observers {
		observe(state)
	}
}

func (s *Session) bannerChanged(msg banner.Message) {
	s.bannerShownMu.Lock()
	defer s.bannerShownMu.Unlock()
	if msg.Generation <= s.bannerShown {
		return
	}
	s.bannerShown = msg.Generation

	s.obsMu.RLock()
	observers := append([]func(banner.Message){}, s.bannerObservers...)
	s.obsMu.RUnlock()

	for _, observe := range observers {
		observe(msg)
	}
}
