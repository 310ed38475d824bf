package expander

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dtnitsch/notion-corpus/models"
)

// Metrics holds the expansion collectors. Each instance owns its registry so
// batch runs can be exported independently.
type Metrics struct {
	Registry *prometheus.Registry

	attempts *prometheus.CounterVec
	inFlight prometheus.Gauge
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the expansion collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notion_corpus",
			Subsystem: "expander",
			Name:      "fetch_attempts_total",
			Help:      "Link fetches by outcome and error type.",
		}, []string{"outcome", "error_type"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notion_corpus",
			Subsystem: "expander",
			Name:      "fetches_in_flight",
			Help:      "Link fetches currently running.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notion_corpus",
			Subsystem: "expander",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of link fetches.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(m.attempts, m.inFlight, m.duration)
	return m
}

func (m *Metrics) observe(r models.FetchResult) {
	outcome := "success"
	if !r.OK() {
		outcome = "failure"
	}
	m.attempts.WithLabelValues(outcome, r.ErrorType()).Inc()
	m.duration.WithLabelValues(outcome).Observe(r.Duration.Seconds())
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
