// Package metrics exposes prometheus collectors for form sessions and the
// schema store. Metrics implements session.Observer, and InstrumentStore
// wraps a store.Store, so neither package imports prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

const namespace = "formbuilder"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	edits        prometheus.Counter
	editDuration prometheus.Histogram
	affected     prometheus.Histogram
	derivations  *prometheus.CounterVec
	failures     *prometheus.CounterVec
	submits      *prometheus.CounterVec
	storeOps     *prometheus.CounterVec
	sessions     prometheus.Gauge
}

var _ session.Observer = (*Metrics)(nil)

// New registers every collector on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		edits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_applied_total",
			Help:      "Edits applied to form sessions",
		}),
		editDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "edit_duration_seconds",
			Help:      "Time spent applying an edit including recomputation",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		affected: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "edit_affected_fields",
			Help:      "Derived fields recomputed per edit",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		derivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derivations_total",
			Help:      "Derived value evaluations by outcome",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Validation failures by rule",
		}, []string{"rule"}),
		submits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submits_total",
			Help:      "Form submissions by outcome",
		}, []string{"outcome"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Schema store operations by op and outcome",
		}, []string{"op", "outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Form sessions currently held by the API",
		}),
	}
	m.registry.MustRegister(
		m.edits,
		m.editDuration,
		m.affected,
		m.derivations,
		m.failures,
		m.submits,
		m.storeOps,
		m.sessions,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) EditApplied(_ string, affected int, elapsed time.Duration) {
	m.edits.Inc()
	m.affected.Observe(float64(affected))
	m.editDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) DerivationEvaluated(_ string, err error) {
	m.derivations.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ValidationFailed(failure *validation.Failure) {
	if failure == nil {
		return
	}
	m.failures.WithLabelValues(string(failure.Rule)).Inc()
}

func (m *Metrics) Submitted(ok bool) {
	if ok {
		m.submits.WithLabelValues("ok").Inc()
		return
	}
	m.submits.WithLabelValues("invalid").Inc()
}

// SessionOpened and SessionClosed track sessions held by the HTTP API.
func (m *Metrics) SessionOpened() { m.sessions.Inc() }
func (m *Metrics) SessionClosed() { m.sessions.Dec() }

// InstrumentStore counts every operation on s.
func (m *Metrics) InstrumentStore(s store.Store) store.Store {
	return &instrumentedStore{next: s, ops: m.storeOps}
}

type instrumentedStore struct {
	next store.Store
	ops  *prometheus.CounterVec
}

func (s *instrumentedStore) Save(ctx context.Context, form schema.FormSchema) error {
	err := s.next.Save(ctx, form)
	s.ops.WithLabelValues(store.OpSave, outcome(err)).Inc()
	return err
}

func (s *instrumentedStore) LoadAll(ctx context.Context) ([]schema.FormSchema, error) {
	forms, err := s.next.LoadAll(ctx)
	s.ops.WithLabelValues(store.OpLoadAll, outcome(err)).Inc()
	return forms, err
}

func (s *instrumentedStore) DeleteByID(ctx context.Context, id string) error {
	err := s.next.DeleteByID(ctx, id)
	s.ops.WithLabelValues(store.OpDelete, outcome(err)).Inc()
	return err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
