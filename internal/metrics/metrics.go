// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package metrics provides Prometheus instrumentation for the session engine,
// the TMDB catalog client, the websocket transport and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session engine metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelmatch_sessions_active",
			Help: "Current number of live sessions",
		},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelmatch_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsTerminated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmatch_sessions_terminated_total",
			Help: "Total number of sessions terminated",
		},
		[]string{"reason"}, // "host_left", "empty"
	)

	SwipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmatch_swipes_total",
			Help: "Total number of swipe actions",
		},
		[]string{"verdict"}, // "like", "dislike"
	)

	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelmatch_matches_total",
			Help: "Total number of movie matches found",
		},
	)

	// Catalog provider metrics
	CatalogFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmatch_catalog_fetches_total",
			Help: "Total number of TMDB page fetches",
		},
		[]string{"operation", "status"}, // operation: "discover", "genres"; status: "ok", "error"
	)

	CatalogFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelmatch_catalog_fetch_duration_seconds",
			Help:    "Duration of TMDB API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelmatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmatch_circuit_breaker_requests_total",
			Help: "Total circuit breaker request outcomes",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)

	// WebSocket transport metrics
	WSClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelmatch_websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmatch_websocket_messages_sent_total",
			Help: "Total websocket messages sent by event type",
		},
		[]string{"event"},
	)

	// HTTP API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmatch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelmatch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCatalogFetch records a TMDB API call outcome.
func RecordCatalogFetch(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	CatalogFetches.WithLabelValues(operation, status).Inc()
	CatalogFetchDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
