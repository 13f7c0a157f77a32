package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nekozukan_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nekozukan_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LikeMutations counts like relationship and counter mutations by operation and result.
	LikeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nekozukan_like_mutations_total",
		Help: "Total like mutations by operation and result",
	}, []string{"operation", "result"})

	// FeedCacheLookups counts feed cache lookups by result (hit, miss, error).
	FeedCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nekozukan_feed_cache_lookups_total",
		Help: "Feed page cache lookups by result",
	}, []string{"result"})

	// UploadBytes records the size of accepted uploads.
	UploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nekozukan_upload_bytes",
		Help:    "Size of accepted uploads in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordLikeMutation increments the like mutation counter.
func RecordLikeMutation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LikeMutations.WithLabelValues(operation, result).Inc()
}
