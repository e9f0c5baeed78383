package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "safetyband_"

	resultSuccess   = "success"
	resultError     = "error"
	resultDuplicate = "duplicate"
	resultIgnored   = "ignored"
	resultSkipped   = "skipped"

	settingsSourceConfigured = "configured"
	settingsSourceFallback   = "fallback"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	groupingTotal   *prometheus.CounterVec
	groupingLatency *prometheus.HistogramVec
	groupingRecords *prometheus.CounterVec

	settingsResponses *prometheus.CounterVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "device_messages_total",
				Help: "Total device messages by request type and result",
			},
			[]string{"request_type", "result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "device_message_latency_seconds",
				Help:    "Device message handling latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"request_type"},
		)

		groupingTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "hav_grouping_runs_total",
				Help: "Total HAV grouping runs by result",
			},
			[]string{"result"},
		)
		groupingLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "hav_grouping_latency_seconds",
				Help:    "HAV grouping latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		groupingRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "hav_events_written_total",
				Help: "Total reallocated HAV events written by severity",
			},
			[]string{"severity"},
		)

		settingsResponses = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settings_responses_total",
				Help: "Total wearable settings responses by source",
			},
			[]string{"source"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "exposure_report_total",
				Help: "Total exposure report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "exposure_report_latency_seconds",
				Help:    "Exposure report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			groupingTotal,
			groupingLatency,
			groupingRecords,
			settingsResponses,
			reportExportTotal,
			reportExportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveDeviceMessage records a device message and its handling time.
func ObserveDeviceMessage(requestType, result string, duration time.Duration) {
	if requestType == "" {
		requestType = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(requestType, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(requestType).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// ObserveGrouping records a grouping run.
func ObserveGrouping(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if groupingTotal != nil {
		groupingTotal.WithLabelValues(result).Inc()
	}
	if groupingLatency != nil {
		groupingLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddGroupedRecords counts written HAV events for one severity.
func AddGroupedRecords(severity string, count int) {
	if count <= 0 {
		return
	}
	if groupingRecords != nil {
		groupingRecords.WithLabelValues(severity).Add(float64(count))
	}
}

// IncSettingsResponse counts a settings reply by where its values came from.
func IncSettingsResponse(fallback bool) {
	source := settingsSourceConfigured
	if fallback {
		source = settingsSourceFallback
	}
	if settingsResponses != nil {
		settingsResponses.WithLabelValues(source).Inc()
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess   = resultSuccess
	ResultError     = resultError
	ResultDuplicate = resultDuplicate
	ResultIgnored   = resultIgnored
	ResultSkipped   = resultSkipped
)
