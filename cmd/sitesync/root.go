package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fieldsafe/sitesync/internal/api"
	"github.com/fieldsafe/sitesync/internal/auth"
	"github.com/fieldsafe/sitesync/internal/backup"
	"github.com/fieldsafe/sitesync/internal/config"
	"github.com/fieldsafe/sitesync/internal/reconcile"
	"github.com/fieldsafe/sitesync/internal/store"
	"github.com/fieldsafe/sitesync/internal/worker"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sitesync",
	Short: "SiteSync - offline sync server for site-safety records",
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	// Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)
	slog.Info("logger initialized", "level", cfg.Log.Level)

	// Initialize store (migrations, WAL mode)
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	// Token verification and the reconciliation engine
	tokens := auth.NewManager([]byte(cfg.Auth.Secret), time.Duration(cfg.Auth.TokenTTL))
	reconciler := reconcile.New(db)

	// HTTP router
	handler := api.NewHandler(db, reconciler, tokens, Version)
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	// Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// Background workers
	var wg sync.WaitGroup

	retention := worker.NewRetentionWorker(db,
		time.Duration(cfg.Retention.Interval),
		time.Duration(cfg.Retention.TombstoneTTL))
	startWorker(ctx, &wg, "tombstone-retention", retention.Run)

	uploader, err := backup.NewUploader(cfg.Backup)
	if err != nil {
		return err
	}
	if _, noop := uploader.(*backup.NoopUploader); !noop {
		backups := worker.NewBackupWorker(db, uploader, time.Duration(cfg.Backup.Interval))
		startWorker(ctx, &wg, "backup", backups.Run)
	}

	// Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel() // Trigger shutdown on server failure
		}
	}()

	// Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Wait for workers to complete
	wg.Wait()

	// Close store
	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
