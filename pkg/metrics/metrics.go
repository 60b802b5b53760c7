package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Kind selects the collector built for a Metric.
type Kind string

const (
	KindCounterVec   Kind = "counter_vec"
	KindHistogramVec Kind = "histogram_vec"
	KindSummaryVec   Kind = "summary_vec"
)

// LatencyBuckets are in milliseconds. Gateway calls time out at 30s, so the tail stops at 60s.
var LatencyBuckets = []float64{
	10, 25, 50, 100, 200, 300, 500,
	750, 1000, 1500, 2000, 3000, 5000,
	10000, 20000, 30000, 60000,
}

// Metric describes one labelled collector. MetricCollector is filled in by register.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Kind            Kind
	Labels          []string
}

// NewMetric builds the collector for m. Unknown kinds yield nil.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Kind {
	case KindCounterVec:
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Labels)
	case KindHistogramVec:
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   LatencyBuckets,
		}, m.Labels)
	case KindSummaryVec:
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Labels)
	}
	return nil
}

// RefererKey carries the calling surface (web app, admin panel) into the ref label.
const RefererKey = "X-Referer"
