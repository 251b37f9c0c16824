// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	PagesFetched       prometheus.Counter
	PagesSkipped       prometheus.Counter
	PagesFailed        prometheus.Counter
	ListingsSkipped    *prometheus.CounterVec
	ObservationsStaged prometheus.Counter
	SourceLatency      prometheus.Histogram

	// Aggregation metrics
	CandidatesAggregated prometheus.Counter
	CandidatesFailed     prometheus.Counter
	SummariesUpserted    prometheus.Counter

	// Retention metrics
	ObservationsPruned prometheus.Counter

	// Pipeline metrics
	StageRunsTotal    *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	RunsSkipped       prometheus.Counter
	LastSuccessfulRun *prometheus.GaugeVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "skyblock_price_lab"
	}

	return &Metrics{
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pages_fetched_total",
			Help:      "Total number of auction pages fetched and processed",
		}),
		PagesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pages_skipped_total",
			Help:      "Total number of pages skipped because freshness did not advance",
		}),
		PagesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pages_failed_total",
			Help:      "Total number of page fetches that failed",
		}),
		ListingsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_skipped_total",
			Help:      "Total number of listings not staged, by reason",
		}, []string{"reason"}),
		ObservationsStaged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_staged_total",
			Help:      "Total number of raw observations written",
		}),
		SourceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "source_request_seconds",
			Help:      "Latency of auction page requests",
			Buckets:   prometheus.DefBuckets,
		}),

		CandidatesAggregated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "candidates_aggregated_total",
			Help:      "Total number of (item, variant) summaries computed",
		}),
		CandidatesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "candidates_failed_total",
			Help:      "Total number of candidates skipped due to errors",
		}),
		SummariesUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "summaries_upserted_total",
			Help:      "Total number of summary rows written",
		}),

		ObservationsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "observations_pruned_total",
			Help:      "Total number of raw observations deleted by retention",
		}),

		StageRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_runs_total",
			Help:      "Total number of stage runs by stage and status",
		}, []string{"stage", "status"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of stage runs",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		RunsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_skipped_total",
			Help:      "Total number of runs skipped because another run held the lock",
		}),
		LastSuccessfulRun: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per stage",
		}, []string{"stage"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPageFetched increments the pages fetched counter.
func RecordPageFetched() {
	DefaultMetrics.PagesFetched.Inc()
}

// RecordPageSkipped increments the stale pages counter.
func RecordPageSkipped() {
	DefaultMetrics.PagesSkipped.Inc()
}

// RecordPageFailed increments the failed pages counter.
func RecordPageFailed() {
	DefaultMetrics.PagesFailed.Inc()
}

// RecordListingSkipped records a listing dropped for reason.
func RecordListingSkipped(reason string) {
	DefaultMetrics.ListingsSkipped.WithLabelValues(reason).Inc()
}

// RecordObservationsStaged adds n written observations.
func RecordObservationsStaged(n int) {
	DefaultMetrics.ObservationsStaged.Add(float64(n))
}

// RecordSourceLatency records one auction page request.
func RecordSourceLatency(seconds float64) {
	DefaultMetrics.SourceLatency.Observe(seconds)
}

// RecordCandidateAggregated increments the aggregated candidates counter.
func RecordCandidateAggregated() {
	DefaultMetrics.CandidatesAggregated.Inc()
}

// RecordCandidateFailed increments the failed candidates counter.
func RecordCandidateFailed() {
	DefaultMetrics.CandidatesFailed.Inc()
}

// RecordSummariesUpserted adds n written summaries.
func RecordSummariesUpserted(n int) {
	DefaultMetrics.SummariesUpserted.Add(float64(n))
}

// RecordObservationsPruned adds n deleted observations.
func RecordObservationsPruned(n int64) {
	DefaultMetrics.ObservationsPruned.Add(float64(n))
}

// RecordRunSkipped increments the skipped runs counter.
func RecordRunSkipped() {
	DefaultMetrics.RunsSkipped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordStageRun records a stage run.
func RecordStageRun(stage, status string, duration time.Duration) {
	DefaultMetrics.StageRunsTotal.WithLabelValues(stage, status).Inc()
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if status == "success" {
		DefaultMetrics.LastSuccessfulRun.WithLabelValues(stage).SetToCurrentTime()
	}
}
