package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Firing outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	PriceUpdates        *prometheus.CounterVec
	PriceUpdateFailures *prometheus.CounterVec
	Firings             *prometheus.CounterVec
	FiringDuration      *prometheus.HistogramVec

	SearchRequests  prometheus.Counter
	SearchCacheHits prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates prometheus metrics registered on reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PriceUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_updates_total",
			Help:      "The total number of price samples appended by the tracker",
		}, []string{"interval"}),
		PriceUpdateFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_update_failures_total",
			Help:      "The total number of flights the tracker failed to update",
		}, []string{"interval"}),
		Firings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_firings_total",
			Help:      "The total number of tracker firings by outcome",
		}, []string{"interval", "outcome"}),
		FiringDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tracking_firing_duration_seconds",
			Help:      "Time taken by one tracker firing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"interval"}),
		SearchRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "The total number of ranked searches served",
		}),
		SearchCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_hits_total",
			Help:      "The total number of searches answered from cache",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route, method and status code",
		}, []string{"route", "method", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),
	}
}
