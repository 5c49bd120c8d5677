package session

import (
	"context"
	"errors"

	"github.com/ritzau/flow-builder/pkg/logging"
	"github.com/ritzau/flow-builder/pkg/model"
)

// Sink receives every flow that passes validation on save.
// Storing it is the sink's business; the editor only hands it over.
type Sink interface {
	Persist(ctx context.Context, flow *model.Snapshot) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, flow *model.Snapshot) error

func (f SinkFunc) Persist(ctx context.Context, flow *model.Snapshot) error {
	return f(ctx, flow)
}

// LogSink logs saved flows
type LogSink struct{}

func (LogSink) Persist(ctx context.Context, flow *model.Snapshot) error {
	logging.InfoContext(ctx, "flow saved",
		"nodes", len(flow.Nodes),
		"edges", len(flow.Edges),
		"nodeIds", flow.NodeIDs(),
	)
	return nil
}

// MultiSink hands the flow to every sink in order and joins their errors
type MultiSink []Sink

func (m MultiSink) Persist(ctx context.Context, flow *model.Snapshot) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Persist(ctx, flow); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
