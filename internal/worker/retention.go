package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldsafe/sitesync/internal/metrics"
)

// TombstonePurger defines the store operations needed by the retention worker.
type TombstonePurger interface {
	PurgeTombstonesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionWorker periodically purges tombstones older than the TTL.
// Clients offline longer than the TTL must full-resync.
type RetentionWorker struct {
	store    TombstonePurger
	interval time.Duration
	ttl      time.Duration
}

// NewRetentionWorker creates a worker with the given store, interval and TTL.
func NewRetentionWorker(store TombstonePurger, interval, ttl time.Duration) *RetentionWorker {
	return &RetentionWorker{
		store:    store,
		interval: interval,
		ttl:      ttl,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// Does NOT run immediately on start.
func (w *RetentionWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "tombstone-retention",
		"interval", w.interval.String(),
		"ttl", w.ttl.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "tombstone-retention",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runPurge(ctx)
		}
	}
}

// runPurge executes a single purge cycle.
func (w *RetentionWorker) runPurge(ctx context.Context) {
	start := time.Now()
	cutoff := start.Add(-w.ttl)

	purged, err := w.store.PurgeTombstonesBefore(ctx, cutoff)
	if err != nil {
		// Check for graceful shutdown
		if ctx.Err() != nil {
			return
		}
		slog.Error("tombstone purge failed",
			"component", "worker",
			"action", "purge_failed",
			"error", err,
		)
		return
	}

	metrics.TombstonesPurged.Add(float64(purged))
	slog.Info("tombstone purge completed",
		"component", "worker",
		"action", "purge_complete",
		"purged", purged,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
