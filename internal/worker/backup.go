package worker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldsafe/sitesync/internal/backup"
)

// BackupStore defines the store operations needed by the backup worker.
type BackupStore interface {
	BackupTo(ctx context.Context, path string) error
}

// BackupWorker periodically writes a consistent database copy and uploads
// it through the configured uploader.
type BackupWorker struct {
	store    BackupStore
	uploader backup.Uploader
	interval time.Duration
}

// NewBackupWorker creates a worker with the given store, uploader and interval.
func NewBackupWorker(store BackupStore, uploader backup.Uploader, interval time.Duration) *BackupWorker {
	return &BackupWorker{
		store:    store,
		uploader: uploader,
		interval: interval,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
func (w *BackupWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "backup",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "backup",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runBackup(ctx)
		}
	}
}

// runBackup executes a single backup cycle.
func (w *BackupWorker) runBackup(ctx context.Context) {
	start := time.Now()

	path := filepath.Join(os.TempDir(), "sitesync-backup.db")
	// VACUUM INTO refuses to overwrite an existing file
	_ = os.Remove(path)

	if err := w.store.BackupTo(ctx, path); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("backup generation failed",
			"component", "worker",
			"action", "backup_failed",
			"error", err,
		)
		return
	}
	defer os.Remove(path)

	if err := w.uploader.Upload(ctx, path); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("backup upload failed",
			"component", "worker",
			"action", "backup_upload_failed",
			"error", err,
		)
		return
	}

	slog.Info("backup completed",
		"component", "worker",
		"action", "backup_complete",
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
