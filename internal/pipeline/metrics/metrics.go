// Package metrics exposes the pipeline's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts pipeline runs by outcome: success, failure or
	// cache_hit.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biorempp_pipeline_runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"outcome"})

	// StageDurationSeconds measures how long each merge stage takes.
	StageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "biorempp_pipeline_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biorempp_result_cache_hits_total",
		Help: "Result cache lookups that returned a stored result",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biorempp_result_cache_misses_total",
		Help: "Result cache lookups that found nothing usable",
	})

	CacheStoreFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biorempp_result_cache_store_failures_total",
		Help: "Failed attempts to store a finished result in the cache",
	})

	// MergeRetriesTotal counts retried merge attempts per stage.
	MergeRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biorempp_merge_retries_total",
		Help: "Merge attempts that failed and were retried",
	}, []string{"stage"})

	// BreakerOpensTotal counts closed-to-open transitions per reference table.
	BreakerOpensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biorempp_circuit_breaker_opens_total",
		Help: "Circuit breaker transitions to open",
	}, []string{"table"})

	// BreakerRejectionsTotal counts stages skipped because a breaker was open.
	BreakerRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biorempp_circuit_breaker_rejections_total",
		Help: "Merge stages skipped due to an open circuit breaker",
	}, []string{"table"})
)
