package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching pipeline metrics.
var (
	CorpusEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_entries",
			Help:      "Number of corpus entries loaded for the current run",
		},
	)

	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Query batches processed",
		},
		[]string{"mode", "status"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries matched against the corpus",
		},
		[]string{"mode", "result"}, // "matched" / "unmatched"
	)

	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time spent scoring one query against the full corpus",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"mode"},
	)

	PhaseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_failures_total",
			Help:      "Runs aborted, by the phase that failed",
		},
		[]string{"mode", "phase"},
	)
)

// MatchResult returns the label value for a matched or unmatched query.
func MatchResult(matched bool) string {
	if matched {
		return "matched"
	}
	return "unmatched"
}
