package collection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcome labels.
const (
	resultOK       = "ok"
	resultAbsorbed = "absorbed"
	resultError    = "error"
)

// Metrics holds the collectors shared by every cache instance.
type Metrics struct {
	operations      *prometheus.CounterVec
	items           *prometheus.GaugeVec
	refreshDuration *prometheus.HistogramVec
}

// NewMetrics registers the cache collectors with reg. A nil reg yields
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collection_operations_total",
			Help: "Cache operations by collection, operation and result",
		}, []string{"kind", "op", "result"}),
		items: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "collection_items",
			Help: "Number of items currently in each mirror",
		}, []string{"kind"}),
		refreshDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collection_refresh_duration_seconds",
			Help:    "Duration of authoritative refetches",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}
}
