package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vidinfra/docvault/internal/audit"
	ierr "github.com/vidinfra/docvault/internal/errors"
)

const outcomeOK = "ok"

// Metrics counts collection calls and consumed audit events
type Metrics struct {
	Operations     *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	SoftDeletes    *prometheus.CounterVec
	EventsConsumed *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_collection_operations_total",
			Help: "Collection calls by operation and outcome",
		}, []string{"collection", "operation", "outcome"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_collection_rejections_total",
			Help: "Calls refused by the lifecycle rules before reaching storage",
		}, []string{"collection", "code"}),
		SoftDeletes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_collection_soft_deletes_total",
			Help: "Deletes translated into soft deletes",
		}, []string{"collection"}),
		EventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_audit_events_consumed_total",
			Help: "Audit events handled by the consumer",
		}, []string{"collection", "action"}),
		gatherer: prometheus.DefaultGatherer,
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Observe implements audit.Observer
func (m *Metrics) Observe(collection string, op *audit.Operation, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = ierr.Code(err)
	}
	m.Operations.WithLabelValues(collection, op.Name, outcome).Inc()

	if err != nil {
		if ierr.IsAlreadyDeleted(err) || ierr.IsNotDeleted(err) || ierr.IsForbiddenFieldMutation(err) {
			m.Rejections.WithLabelValues(collection, outcome).Inc()
		}
		return
	}

	if op.Soft {
		m.SoftDeletes.WithLabelValues(collection).Inc()
	}
}

// IncEventConsumed records one handled audit event
func (m *Metrics) IncEventConsumed(event audit.Event) {
	m.EventsConsumed.WithLabelValues(event.Collection, string(event.Action)).Inc()
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
