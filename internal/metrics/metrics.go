package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratedesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	calendarFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratedesk",
			Name:      "calendar_fetches_total",
			Help:      "Month fetches against the pricing backend by outcome.",
		},
		[]string{"outcome"},
	)

	rateSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratedesk",
			Name:      "rate_saves_total",
			Help:      "Stock/price save attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	exports = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ratedesk",
			Name:      "exports_total",
			Help:      "Calendar exports written.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, calendarFetches, rateSaves, exports)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncFetch increments the month-fetch counter; outcome is "ok" or "error".
func IncFetch(outcome string) {
	calendarFetches.WithLabelValues(outcome).Inc()
}

// IncSave increments the save counter for a kind (single, range, paste).
func IncSave(kind, outcome string) {
	rateSaves.WithLabelValues(kind, outcome).Inc()
}

// IncExport increments the export counter.
func IncExport() {
	exports.Inc()
}
