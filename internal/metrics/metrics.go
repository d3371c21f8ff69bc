// Package metrics exposes prometheus instrumentation for the proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the proxy's prometheus collectors.
type Metrics struct {
	Requests       *prometheus.CounterVec
	Rewrites       *prometheus.CounterVec
	UpstreamErrors prometheus.Counter
	Duration       *prometheus.HistogramVec
}

// New registers the proxy collectors with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tronbridge",
			Name:      "requests_total",
			Help:      "Exchanges handled, by route and JSON-RPC method.",
		}, []string{"route", "method"}),
		Rewrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tronbridge",
			Name:      "rewrites_total",
			Help:      "Request/response rewrites applied, by rule.",
		}, []string{"rule"}),
		UpstreamErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tronbridge",
			Name:      "upstream_errors_total",
			Help:      "Upstream dispatch failures surfaced as 502.",
		}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tronbridge",
			Name:      "exchange_duration_seconds",
			Help:      "Wall time of a full exchange, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}
