// Package metrics provides Prometheus instrumentation for the moderation
// pipeline: counters for rows read, scoring calls, degraded responses, and
// recorded flags.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RowsRead counts rows fetched from a source, labeled by source name.
	RowsRead = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_rows_read_total",
		Help: "Total number of rows read from sources",
	}, []string{"source"})

	// UnitsScored counts scoring calls made against the scoring service.
	UnitsScored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moderation_scoring_calls_total",
		Help: "Total number of scoring service calls",
	})

	// ScoringDegraded counts scoring calls that degraded to a zero score map
	// (non-success response or transport failure).
	ScoringDegraded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moderation_scoring_degraded_total",
		Help: "Total number of scoring calls degraded to zero scores",
	})

	// FlagsRecorded counts flag records produced, labeled by category.
	FlagsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_flags_recorded_total",
		Help: "Total number of flag records produced",
	}, []string{"category"})

	// PageRetries counts page fetches that were retried after a transient
	// store failure.
	PageRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moderation_page_retries_total",
		Help: "Total number of retried page fetches",
	})
)

func init() {
	prometheus.MustRegister(
		RowsRead,
		UnitsScored,
		ScoringDegraded,
		FlagsRecorded,
		PageRetries,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
