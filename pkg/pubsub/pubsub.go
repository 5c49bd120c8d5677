package pubsub

import (
	"context"
	"encoding/json"
	"errors"
)

// Topics the editor publishes on
const (
	TopicFlowState = "flow_state" // Full editor state after every accepted change
	TopicBanner    = "banner"     // Banner shown, cleared or expired
	TopicAssets    = "assets"     // Static assets changed on disk (dev mode)
)

// Event types
const (
	EventState  = "state"
	EventSaved  = "saved"
	EventBanner = "banner"
	EventReload = "reload"
)

var (
	ErrClosed       = errors.New("publisher is closed")
	ErrUnknownTopic = errors.New("unknown topic")
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "flow_state", "banner")
	Type    string          `json:"type"`    // Event type (e.g., "state", "saved", "reload")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// AssetsChanged is the payload of a reload event
type AssetsChanged struct {
	Paths      []string `json:"paths"`
	StylesOnly bool     `json:"stylesOnly"`
}

// FlowSaved is the payload of a saved event
type FlowSaved struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// EditorTopics returns the buffering used by the editor. Flow state is not buffered since
// every subscriber starts from a fresh snapshot; the banner replays its latest value; reload
// notices are only for pages that are already open.
func EditorTopics() map[string]TopicConfig {
	return map[string]TopicConfig{
		TopicFlowState: {BufferSize: 0},
		TopicBanner:    {BufferSize: 1},
		TopicAssets:    {BufferSize: 0},
	}
}
