package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fleetfuel_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	batchCreateTotal   *prometheus.CounterVec
	batchCreateLatency *prometheus.HistogramVec

	batchCompleteTotal   *prometheus.CounterVec
	batchCompleteLatency *prometheus.HistogramVec

	batchExportTotal   *prometheus.CounterVec
	batchExportLatency *prometheus.HistogramVec

	scheduleRuns *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		batchCreateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batch_create_total",
				Help: "Total batch create operations by result",
			},
			[]string{"result"},
		)
		batchCreateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "batch_create_latency_seconds",
				Help:    "Batch create latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		batchCompleteTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batch_complete_total",
				Help: "Total batch complete operations by result",
			},
			[]string{"result"},
		)
		batchCompleteLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "batch_complete_latency_seconds",
				Help:    "Batch complete latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		batchExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batch_export_total",
				Help: "Total batch export operations by format and result",
			},
			[]string{"format", "result"},
		)
		batchExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "batch_export_latency_seconds",
				Help:    "Batch export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		scheduleRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "schedule_runs_total",
				Help: "Total scheduled batch runs by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			batchCreateTotal,
			batchCreateLatency,
			batchCompleteTotal,
			batchCompleteLatency,
			batchExportTotal,
			batchExportLatency,
			scheduleRuns,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveBatchCreate records create latency and result.
func ObserveBatchCreate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if batchCreateTotal != nil {
		batchCreateTotal.WithLabelValues(result).Inc()
	}
	if batchCreateLatency != nil {
		batchCreateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveBatchComplete records complete latency and result.
func ObserveBatchComplete(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if batchCompleteTotal != nil {
		batchCompleteTotal.WithLabelValues(result).Inc()
	}
	if batchCompleteLatency != nil {
		batchCompleteLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveBatchExport records export latency, format and result.
func ObserveBatchExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if batchExportTotal != nil {
		batchExportTotal.WithLabelValues(format, result).Inc()
	}
	if batchExportLatency != nil {
		batchExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncScheduleRun increments scheduled run counter by outcome.
func IncScheduleRun(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if scheduleRuns != nil {
		scheduleRuns.WithLabelValues(outcome).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
