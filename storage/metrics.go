// Package storage holds concerns shared by the storage backends
package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationHistogram storage operation durations by backend, operation and status
var OperationHistogram = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "wandkit",
		Subsystem: "storage",
		Name:      "operation_duration_seconds",
		Help:      "A histogram of storage operation durations",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"storage", "operation", "status"},
)

func init() {
	prometheus.MustRegister(OperationHistogram)
}

// Track starts timing an operation, the returned func records it
func Track(storage, operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		OperationHistogram.WithLabelValues(storage, operation, status).
			Observe(time.Since(start).Seconds())
	}
}
