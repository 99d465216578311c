package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeModified  = "modified"
	outcomeUnchanged = "unchanged"
	outcomeSkipped   = "skipped"
	outcomeError     = "error"
)

// Metrics counts messages seen by the proxy
type Metrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
}

// NewMetrics registers the proxy collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tidyhttp",
			Name:      "messages_total",
			Help:      "Messages passing through the proxy by direction and outcome.",
		}, []string{"direction", "outcome"}),
		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tidyhttp",
			Name:      "removed_bytes_total",
			Help:      "Body bytes removed by blank-line normalization.",
		}, []string{"direction"}),
	}
}

func (m *Metrics) observe(direction, outcome string, removed int) {
	m.messages.WithLabelValues(direction, outcome).Inc()
	if removed > 0 {
		m.bytes.WithLabelValues(direction).Add(float64(removed))
	}
}
