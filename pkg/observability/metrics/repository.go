package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Repository operation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeMiss    = "miss"
	OutcomeError   = "error"
)

var (
	// Labels: collection, operation
	repositoryOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_operation_duration_seconds",
			Help:    "Document repository operation duration in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"collection", "operation"},
	)

	// Labels: collection, operation, outcome
	repositoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_operations_total",
			Help: "Total number of document repository operations by outcome",
		},
		[]string{"collection", "operation", "outcome"},
	)
)

// RecordRepositoryOperation records one repository call.
func RecordRepositoryOperation(collection, operation, outcome string, duration time.Duration) {
	repositoryOperationDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
	repositoryOperationsTotal.WithLabelValues(collection, operation, outcome).Inc()
}
