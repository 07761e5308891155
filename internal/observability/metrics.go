package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectboard_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "projectboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// BoardOperations counts successful core mutations by kind.
	BoardOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectboard_board_operations_total",
		Help: "Total number of board mutations by operation",
	}, []string{"operation"})

	// ActivitiesRecorded counts activity entries by type.
	ActivitiesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectboard_activities_recorded_total",
		Help: "Total number of card activity entries recorded",
	}, []string{"type"})

	// TokenAuthentications counts external API authentications by outcome.
	TokenAuthentications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectboard_token_authentications_total",
		Help: "Total number of API token authentications by outcome",
	}, []string{"outcome"})

	// ImportRuns counts import runs by final status.
	ImportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectboard_import_runs_total",
		Help: "Total number of board import runs by status",
	}, []string{"status"})

	// BulkItems counts bulk operation items by result.
	BulkItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectboard_bulk_items_total",
		Help: "Total number of bulk operation items by result",
	}, []string{"operation", "result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
