// Package metrics registers the Prometheus instruments for sync traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRequests counts processed sync requests by outcome status code.
	SyncRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitesync_sync_requests_total",
		Help: "Sync requests processed, by HTTP status.",
	}, []string{"status"})

	// OutboxItems counts outbox items by entity, operation and result.
	OutboxItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitesync_outbox_items_total",
		Help: "Outbox items processed, by entity, operation and result.",
	}, []string{"entity", "op", "result"})

	// SyncDuration observes end-to-end sync request durations.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitesync_sync_duration_seconds",
		Help:    "End-to-end sync request duration.",
		Buckets: prometheus.DefBuckets,
	})

	// TombstonesPurged counts tombstones removed by the retention worker.
	TombstonesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitesync_tombstones_purged_total",
		Help: "Tombstones removed by the retention worker.",
	})
)
