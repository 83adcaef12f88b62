// Package metrics exposes Prometheus metrics for monitoring journal health
// and performance.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventrail_events_ingested_total",
			Help: "Total number of events durably recorded",
		},
	)

	IngestFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventrail_ingest_failures_total",
			Help: "Total number of failed ingest attempts",
		},
	)

	ContentOverflowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventrail_content_overflows_total",
			Help: "Total number of payloads placed in the blob store",
		},
	)

	QueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventrail_queries_total",
			Help: "Total number of executed queries",
		},
	)

	QueryFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventrail_query_failures_total",
			Help: "Total number of failed queries",
		},
	)

	QueryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventrail_query_rows_returned",
			Help:    "Rows returned per listing query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

// Register registers all journal metrics with the given registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		EventsIngestedTotal,
		IngestFailuresTotal,
		ContentOverflowsTotal,
		QueriesTotal,
		QueryFailuresTotal,
		QueryRowsReturned,
	)
}
