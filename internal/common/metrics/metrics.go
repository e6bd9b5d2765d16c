// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess      = "success"
	ResultNotFound     = "not_found"
	ResultDuplicate    = "duplicate"
	ResultNotSignedUp  = "not_signed_up"
	ResultFull         = "full"
	ResultInvalidEmail = "invalid_email"
	ResultError        = "error"
)

// UnknownActivity is used as the activity label when the name did not
// resolve, so client input cannot grow label cardinality.
const UnknownActivity = "unknown"

var (
	SignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_signups_total",
			Help: "Total number of signup attempts by activity and result",
		},
		[]string{"activity", "result"},
	)

	UnregistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_unregistrations_total",
			Help: "Total number of unregister attempts by activity and result",
		},
		[]string{"activity", "result"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "activity_store_operation_duration_seconds",
			Help:    "Duration of roster store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SeededActivities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "activity_catalog_seeded",
			Help: "Number of activities inserted from the catalog at startup",
		},
	)
)
