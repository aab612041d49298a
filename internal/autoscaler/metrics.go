package autoscaler

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "hsmscale"

// Metrics counts dispatcher decisions. A nil *Metrics records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	events    *prometheus.CounterVec
	nodeOps   *prometheus.CounterVec
	ruleOps   *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewMetrics registers the controller metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Events handled, by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		nodeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "node_operations_total",
			Help:      "Node create and delete requests issued.",
		}, []string{"op"}),
		ruleOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rule_operations_total",
			Help:      "Scheduler rule enable and disable requests issued.",
		}, []string{"rule", "op"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time of one event dispatch, AWS calls included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
	}
	m.registry.MustRegister(m.events, m.nodeOps, m.ruleOps, m.durations)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeEvent(trigger, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(trigger, outcome).Inc()
	m.durations.WithLabelValues(trigger).Observe(took.Seconds())
}

func (m *Metrics) observeNodeOp(op string) {
	if m == nil {
		return
	}
	m.nodeOps.WithLabelValues(op).Inc()
}

func (m *Metrics) observeRuleOp(rule, op string) {
	if m == nil {
		return
	}
	m.ruleOps.WithLabelValues(rule, op).Inc()
}
