package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Upstream metrics
	UpstreamRequests   *prometheus.CounterVec
	UpstreamDuration   *prometheus.HistogramVec
	RateLimitRemaining prometheus.Gauge
	RateLimited        prometheus.Gauge

	// Cache metrics
	CacheLookups *prometheus.CounterVec
	CacheErrors  *prometheus.CounterVec
	StorePurged  prometheus.Counter

	// Fetch orchestrator metrics
	Fetches          *prometheus.CounterVec
	RetryAttempts    prometheus.Counter
	ScheduledRetries prometheus.Counter

	// Bounty pipeline metrics
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	StageCandidates  *prometheus.CounterVec
	Verifications    *prometheus.CounterVec
	BountiesListed   prometheus.Gauge
	NewBounties      prometheus.Counter

	// Enrichment metrics
	EnrichmentLookups *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			// Upstream metrics
			UpstreamRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "issuehub_upstream_requests_total",
					Help: "Total number of upstream API requests by endpoint and status class",
				},
				[]string{"endpoint", "status"},
			),
			UpstreamDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "issuehub_upstream_request_duration_seconds",
					Help:    "Duration of upstream API requests in seconds",
					Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
				},
				[]string{"endpoint"},
			),
			RateLimitRemaining: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "issuehub_rate_limit_remaining",
				Help: "Remaining upstream quota as last reported",
			}),
			RateLimited: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "issuehub_rate_limited",
				Help: "1 while the upstream rate limit window is active",
			}),

			// Cache metrics
			CacheLookups: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "issuehub_cache_lookups_total",
					Help: "Cache lookups by cache name and result (hit or miss)",
				},
				[]string{"cache", "result"},
			),
			CacheErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "issuehub_cache_errors_total",
					Help: "Swallowed cache backend errors by cache name",
				},
				[]string{"cache"},
			),
			StorePurged: promauto.NewCounter(prometheus.CounterOpts{
				Name: "issuehub_store_purged_entries_total",
				Help: "Expired entries physically removed from the persistent store",
			}),

			// Fetch orchestrator metrics
			Fetches: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "issuehub_fetches_total",
					Help: "Search fetches by outcome",
				},
				[]string{"outcome"},
			),
			RetryAttempts: promauto.NewCounter(prometheus.CounterOpts{
				Name: "issuehub_retry_attempts_total",
				Help: "Retries performed after a retryable upstream failure",
			}),
			ScheduledRetries: promauto.NewCounter(prometheus.CounterOpts{
				Name: "issuehub_scheduled_retries_total",
				Help: "Retries deferred until the rate limit window resets",
			}),

			// Bounty pipeline metrics
			PipelineRuns: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "issuehub_pipeline_runs_total",
					Help: "Bounty pipeline runs by trigger and outcome",
				},
				[]string{"trigger", "outcome"},
			),
			PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "issuehub_pipeline_duration_seconds",
				Help:    "Duration of bounty pipeline runs in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~4min
			}),
			StageCandidates: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "issuehub_pipeline_stage_candidates_total",
					Help: "Candidates surviving each pipeline stage",
				},
				[]string{"stage"},
			),
			Verifications: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "issuehub_legitimacy_verifications_total",
					Help: "Repository legitimacy verdicts by verdict and source",
				},
				[]string{"verdict", "source"},
			),
			BountiesListed: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "issuehub_bounties_listed",
				Help: "Current size of the bounty result set",
			}),
			NewBounties: promauto.NewCounter(prometheus.CounterOpts{
				Name: "issuehub_new_bounties_total",
				Help: "Bounties first seen during silent refreshes",
			}),

			// Enrichment metrics
			EnrichmentLookups: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "issuehub_enrichment_lookups_total",
					Help: "Language enrichment lookups by outcome",
				},
				[]string{"outcome"},
			),
		}
	})
	return metricsInstance
}
