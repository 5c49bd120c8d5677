package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ritzau/flow-builder/pkg/logging"
	"github.com/ritzau/flow-builder/pkg/pubsub"
)

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !s.publisher.HasTopic(topic) {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("unknown topic %q", topic))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Create subscription before the first snapshot so no change slips between them
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	if topic == pubsub.TopicFlowState {
		if err := s.writeInitialState(w); err != nil {
			logging.WarnContext(r.Context(), "error writing initial state", "error", err)
			return
		}
		flusher.Flush()
	}

	// Stream events
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// writeInitialState sends the current state as version 0 so a new page can render at once
func (s *Server) writeInitialState(w http.ResponseWriter) error {
	data, err := json.Marshal(s.session.State())
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return pubsub.WriteSSE(w, pubsub.Event{
		Topic: pubsub.TopicFlowState,
		Type:  pubsub.EventState,
		Data:  data,
	})
}
