package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsPublished tracks snapshots written to Redis
	SnapshotsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stagesync_snapshots_published_total",
			Help: "Total number of stage snapshots published",
		},
	)

	// SnapshotBytes tracks the size of the last published snapshot
	SnapshotBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stagesync_snapshot_bytes",
			Help: "Size in bytes of the last published stage snapshot",
		},
	)

	// StoreErrors tracks Redis operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stagesync_store_errors_total",
			Help: "Total number of snapshot store operation errors",
		},
		[]string{"operation"}, // "get", "publish", "delete"
	)
)
