package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts decodes by outcome and records how long they take
type Metrics struct {
	decodes *prometheus.CounterVec
	latency prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		decodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rawlab",
			Name:      "decodes_total",
			Help:      "raw buffers decoded, by outcome",
		}, []string{"kind"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rawlab",
			Name:      "decode_seconds",
			Help:      "time to unpack, render and encode one buffer",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	if err := reg.Register(m.decodes); err != nil {
		return nil, err
	}
	if err := reg.Register(m.latency); err != nil {
		return nil, err
	}
	return m, nil
}

// Observe records one decode; kind is "ok" or the error kind
func (m *Metrics) Observe(kind string, d time.Duration) {
	m.decodes.WithLabelValues(kind).Inc()
	m.latency.Observe(d.Seconds())
}
