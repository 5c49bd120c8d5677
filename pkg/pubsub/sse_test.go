package pubsub

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReplayLastOnly(t *testing.T) {
	// Buffer size 5, but only the last event is replayed
	pub := NewTopicPublisher(map[string]TopicConfig{"test": {BufferSize: 5}})
	defer pub.Close()

	// Publish 3 events
	for i := 1; i <= 3; i++ {
		err := pub.Publish("test", "event", map[string]int{"num": i})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe and verify we get only last event
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive only last event (version 3)
	select {
	case event := <-sub.Events():
		if event.Version != 3 {
			t.Errorf("Expected version 3, got %d", event.Version)
		}
		t.Logf("Received last event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}

	// Verify no more events are sent
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected extra event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no extra events
	}
}

func TestNoBuffer(t *testing.T) {
	pub := NewTopicPublisher(map[string]TopicConfig{"test": {BufferSize: 0}})
	defer pub.Close()

	// Publish events before subscribing
	for i := 1; i <= 3; i++ {
		err := pub.Publish("test", "event", map[string]int{"num": i})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe - should not receive any replayed events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Verify no events are received (because none were buffered)
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected replayed event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no events replayed
		t.Log("Correctly received no events (buffer disabled)")
	}

	// Now publish a new event - subscriber should receive it
	err = pub.Publish("test", "event", map[string]int{"num": 4})
	if err != nil {
		t.Fatalf("Failed to publish new event: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Version != 4 {
			t.Errorf("Expected version 4, got %d", event.Version)
		}
		t.Logf("Received new event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for new event")
	}
}

func TestTopicPublisherRejectsUnknownTopics(t *testing.T) {
	pub := NewTopicPublisher(EditorTopics())
	defer pub.Close()

	if !pub.HasTopic(TopicFlowState) {
		t.Errorf("Expected %s to be a known topic", TopicFlowState)
	}
	if pub.HasTopic("workspace_status") {
		t.Error("Expected workspace_status to be unknown")
	}

	if _, err := pub.Subscribe(context.Background(), "workspace_status"); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Subscribe() error = %v, want ErrUnknownTopic", err)
	}
	if err := pub.Publish("workspace_status", "x", nil); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Publish() error = %v, want ErrUnknownTopic", err)
	}
}

func TestBannerReplaysLatest(t *testing.T) {
	pub := NewTopicPublisher(EditorTopics())
	defer pub.Close()

	for _, text := range []string{"first", "second"} {
		if err := pub.Publish(TopicBanner, EventBanner, map[string]string{"text": text}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicBanner)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		if !strings.Contains(string(event.Data), "second") {
			t.Errorf("Expected latest banner, got %s", event.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for banner replay")
	}
}

func TestPublishAfterClose(t *testing.T) {
	pub := NewTopicPublisher(EditorTopics())
	pub.Close()

	if err := pub.Publish(TopicBanner, EventBanner, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() error = %v, want ErrClosed", err)
	}
	if _, err := pub.Subscribe(context.Background(), TopicBanner); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() error = %v, want ErrClosed", err)
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	event := Event{Topic: TopicAssets, Type: EventReload, Data: []byte(`{"paths":["app.js"]}`), Version: 2}

	if err := WriteSSE(&buf, event); err != nil {
		t.Fatalf("WriteSSE() error = %v", err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "data: {") || !strings.HasSuffix(got, "}\n\n") {
		t.Errorf("Unexpected SSE framing: %q", got)
	}
	if !strings.Contains(got, `"type":"reload"`) {
		t.Errorf("Expected event type in payload: %q", got)
	}
}
