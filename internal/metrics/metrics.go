// Package metrics exposes Prometheus collectors for annotation traffic and
// rendering.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricMessagesSent     = "annotate_messages_sent_total"
	MetricMessagesReceived = "annotate_messages_received_total"
	MetricMessagesDropped  = "annotate_messages_dropped_total"
	MetricRenderSeconds    = "annotate_render_seconds"
)

// Metrics holds the engine's collectors. All operations are thread-safe.
type Metrics struct {
	sent     *prometheus.CounterVec
	received *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	render   prometheus.Histogram
}

// New creates the collectors without registering them.
func New() *Metrics {
	return &Metrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMessagesSent,
			Help: "Protocol messages broadcast, by type",
		}, []string{"type"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMessagesReceived,
			Help: "Protocol messages accepted from other participants, by type",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMessagesDropped,
			Help: "Protocol messages dropped, by reason",
		}, []string{"reason"}),
		render: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRenderSeconds,
			Help:    "Time spent rendering one overlay frame",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors, for registration and tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.sent, m.received, m.dropped, m.render}
}

func (m *Metrics) IncSent(kind string)      { m.sent.WithLabelValues(kind).Inc() }
func (m *Metrics) IncReceived(kind string)  { m.received.WithLabelValues(kind).Inc() }
func (m *Metrics) IncDropped(reason string) { m.dropped.WithLabelValues(reason).Inc() }

// RenderObserver is the histogram render durations are recorded into.
func (m *Metrics) RenderObserver() prometheus.Observer { return m.render }
