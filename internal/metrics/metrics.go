// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package metrics instruments the ingestion pipeline with Prometheus:
// provider fetches, merges, feed imports and dispatch outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_fetches_total",
			Help: "Total number of provider movie fetches by outcome",
		},
		[]string{"outcome"}, // "ok", "timeout", "connect", "decode", "invalid", "status", "exhausted"
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tmdb_fetch_duration_seconds",
			Help:    "Duration of provider movie fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tmdb_rate_limit_waits_total",
			Help: "Total number of 429 responses waited out",
		},
	)

	// Reconciliation metrics
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_merges_total",
			Help: "Total number of payload merges by outcome",
		},
		[]string{"outcome"}, // "ok", "unknown_ref", "error"
	)

	MoviesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_movies_deleted_total",
			Help: "Total number of movies removed because the provider no longer has them",
		},
	)

	// Bulk feed metrics
	FeedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_rows_total",
			Help: "Total number of bulk feed rows by feed and disposition",
		},
		[]string{"feed", "disposition"}, // feed: "ratings", "titles"; disposition: "kept", "filtered", "malformed"
	)

	FeedChunksPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_chunks_published_total",
			Help: "Total number of feed chunks handed to dispatch",
		},
		[]string{"feed"},
	)

	// Dispatch metrics
	ChunksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_chunks_processed_total",
			Help: "Total number of chunks consumed by outcome",
		},
		[]string{"topic", "outcome"}, // "ok", "poisoned"
	)

	// Worker pool metrics
	PoolActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_pool_active_workers",
			Help: "Current number of busy fetch workers",
		},
	)

	PoolQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_pool_queue_depth",
			Help: "Current number of movie ids waiting for a worker",
		},
	)
)

// FetchSucceeded records one successful provider fetch.
func FetchSucceeded() {
	FetchesTotal.WithLabelValues("ok").Inc()
}

// FetchFailed records one failed provider fetch with its failure class.
func FetchFailed(class string) {
	FetchesTotal.WithLabelValues(class).Inc()
}

// FetchRateLimited records one 429 wait.
func FetchRateLimited() {
	RateLimitWaits.Inc()
}

// ObserveFetch records the wall time of one fetch, successful or not.
func ObserveFetch(start time.Time) {
	FetchDuration.Observe(time.Since(start).Seconds())
}

// MergeSucceeded records one completed merge.
func MergeSucceeded() {
	MergesTotal.WithLabelValues("ok").Inc()
}

// MergeFailed records one failed merge with its failure class.
func MergeFailed(class string) {
	MergesTotal.WithLabelValues(class).Inc()
}
