// Package metrics exposes Prometheus counters for editor activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	labelNodeType = "node_type"
	labelOutcome  = "outcome"
)

// Outcome label values
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Registry holds the editor's collectors. A separate registry per server keeps tests
// independent of the process-wide default.
type Registry struct {
	registry    *prometheus.Registry
	nodes       *prometheus.CounterVec
	connections *prometheus.CounterVec
	saves       *prometheus.CounterVec
	flowSize    *prometheus.GaugeVec
}

// NewRegistry creates and registers all collectors
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flow_builder_nodes_created_total",
			Help: "The number of nodes dropped onto the canvas",
		}, []string{labelNodeType}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flow_builder_connections_total",
			Help: "The number of connect gestures by outcome",
		}, []string{labelOutcome}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flow_builder_saves_total",
			Help: "The number of save attempts by outcome",
		}, []string{labelOutcome}),
		flowSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flow_builder_flow_elements",
			Help: "Current number of nodes and edges in the flow",
		}, []string{"element"}),
	}

	r.registry.MustRegister(
		r.nodes,
		r.connections,
		r.saves,
		r.flowSize,
		collectors.NewGoCollector(),
	)
	return r
}

// NodeCreated counts a dropped node
func (r *Registry) NodeCreated(nodeType string) {
	r.nodes.WithLabelValues(nodeType).Inc()
}

// Connection counts a connect gesture
func (r *Registry) Connection(accepted bool) {
	r.connections.WithLabelValues(outcome(accepted)).Inc()
}

// Save counts a save attempt
func (r *Registry) Save(accepted bool) {
	r.saves.WithLabelValues(outcome(accepted)).Inc()
}

// FlowSize records the current number of nodes and edges
func (r *Registry) FlowSize(nodes, edges int) {
	r.flowSize.WithLabelValues("nodes").Set(float64(nodes))
	r.flowSize.WithLabelValues("edges").Set(float64(edges))
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func outcome(accepted bool) string {
	if accepted {
		return OutcomeAccepted
	}
	return OutcomeRejected
}
