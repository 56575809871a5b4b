// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package metrics defines the Prometheus instrumentation for mentorsync:
// API latency/throughput, sync run outcomes, external API calls, database
// query timing, and circuit breaker state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postgres_query_duration_seconds",
			Help:    "Duration of Postgres queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postgres_query_errors_total",
			Help: "Total number of Postgres query errors",
		},
		[]string{"operation", "table"},
	)

	// Sync run metrics
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by source and outcome",
		},
		[]string{"source", "status"},
	)

	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"source"},
	)

	SyncRecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_upserted_total",
			Help: "Total records upserted by source",
		},
		[]string{"source"},
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful sync by source",
		},
		[]string{"source"},
	)

	ETLRecordErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_record_errors_total",
			Help: "Total per-record errors logged during ETL merges",
		},
	)

	MentorsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mentors_by_status",
			Help: "Current mentor count by status category",
		},
		[]string{"status"},
	)

	// External API client metrics
	ExternalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_api_requests_total",
			Help: "Total requests to external APIs",
		},
		[]string{"api", "status"}, // status: "success", "error", "rate_limited"
	)

	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_api_request_duration_seconds",
			Help:    "External API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"api"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current consecutive failure count per circuit breaker",
		},
		[]string{"name"},
	)

	// Realtime hub metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)
)

// RecordAPIRequest records metrics for one handled API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records timing and error state for one database query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordSyncRun records the outcome of one sync or ETL run.
func RecordSyncRun(source, status string, duration time.Duration, upserted int) {
	SyncRunsTotal.WithLabelValues(source, status).Inc()
	SyncRunDuration.WithLabelValues(source).Observe(duration.Seconds())
	if upserted > 0 {
		SyncRecordsUpserted.WithLabelValues(source).Add(float64(upserted))
	}
	if status == "completed" {
		SyncLastSuccess.WithLabelValues(source).SetToCurrentTime()
	}
}

// RecordExternalRequest records one call to an external API.
func RecordExternalRequest(api, status string, duration time.Duration) {
	ExternalRequestsTotal.WithLabelValues(api, status).Inc()
	ExternalRequestDuration.WithLabelValues(api).Observe(duration.Seconds())
}
