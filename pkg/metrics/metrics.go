// Package metrics provides Prometheus metrics for parse jobs: rows and
// bytes parsed, chunk planning outcomes, warning volume and parse latency.
// All metrics are registered automatically on first import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsParsed tracks the total number of rows written to tapes.
	// Labels: mode (parallel/single/transposed)
	RowsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsar_rows_parsed_total",
			Help: "Total number of rows parsed",
		},
		[]string{"mode"},
	)

	// BytesParsed tracks the total input bytes consumed.
	BytesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsar_bytes_parsed_total",
			Help: "Total input bytes parsed",
		},
		[]string{"mode"},
	)

	// WarningsEmitted tracks non-fatal row diagnostics by kind.
	WarningsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsar_warnings_total",
			Help: "Total parse warnings emitted",
		},
		[]string{"kind"},
	)

	// ChunksPlanned tracks how many chunks each plan produced.
	ChunksPlanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsar_chunks_planned_total",
			Help: "Total chunks produced by boundary planning",
		},
	)

	// PlanFallbacks counts plans that failed boundary verification and
	// fell back to a single worker.
	PlanFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsar_plan_fallbacks_total",
			Help: "Chunk plans abandoned in favor of single-worker parsing",
		},
	)

	// PoolsAbandoned counts reference pools that crossed the cardinality
	// threshold and stopped interning.
	PoolsAbandoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsar_ref_pools_abandoned_total",
			Help: "Reference pools abandoned for exceeding the cardinality threshold",
		},
	)

	// ParseLatency tracks end-to-end parse durations in seconds.
	// Labels: mode (parallel/single/transposed)
	ParseLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsar_parse_duration_seconds",
			Help:    "End-to-end parse latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"mode"},
	)
)

// Timer measures one parse run and reports it to ParseLatency on Stop.
type Timer struct {
	start time.Time
	mode  string
}

// NewTimer starts timing a parse run under the given mode label.
func NewTimer(mode string) *Timer {
	return &Timer{start: time.Now(), mode: mode}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	ParseLatency.WithLabelValues(t.mode).Observe(d.Seconds())
	return d
}
