package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fieldsafe/sitesync/internal/metrics"
	"github.com/fieldsafe/sitesync/internal/reconcile"
	"github.com/fieldsafe/sitesync/internal/store"
	syncwire "github.com/fieldsafe/sitesync/internal/sync"
)

// Sync handles POST /api/v1/sync.
//
// The request carries the client's watermark and its outbox; the response
// carries the new watermark, the ids the client may retire, the id map for
// offline-minted identifiers, the delta and the conflicts. Conflicts are
// data: the response is 200 even when every item conflicted. The only
// fail-fast conditions are authentication (handled by middleware) and a
// malformed body, both checked before any store access.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	principal := MustPrincipalFromContext(ctx)

	var req syncwire.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.SyncRequests.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		WriteBadRequest(w)
		return
	}

	result := h.reconciler.Apply(ctx, principal, req.Outbox)

	// The new watermark is taken after the batch is applied so every row
	// stamped by this request sorts at or before it. It is a server
	// timestamp: client clocks never define the sync window.
	now := time.Now().UTC()

	lastSync := reconcile.ParseWatermark(req.LastSync)
	changes, tombstones, err := h.reconciler.Delta(ctx, principal, lastSync)
	if err != nil {
		slog.Error("delta query failed",
			"component", "api",
			"action", "sync_failed",
			"principal", principal,
			"error", err,
		)
		metrics.SyncRequests.WithLabelValues(strconv.Itoa(http.StatusInternalServerError)).Inc()
		WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := syncwire.Response{
		Now:              store.FormatTime(now),
		AppliedOutboxIDs: result.AppliedIDs,
		IDMap:            result.IDMap,
		Changes:          changes,
		Tombstones:       tombstones,
		Conflicts:        result.Conflicts,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)

	durationMS := time.Since(start).Milliseconds()
	recordItemMetrics(req.Outbox, result)
	metrics.SyncRequests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	metrics.SyncDuration.Observe(time.Since(start).Seconds())

	if err := h.store.AppendSyncLog(ctx, &store.SyncLogEntry{
		UserID:     principal,
		Items:      len(req.Outbox),
		Applied:    len(result.AppliedIDs),
		Conflicts:  len(result.Conflicts),
		DurationMS: durationMS,
	}); err != nil {
		slog.Warn("failed to record sync log", "principal", principal, "error", err)
	}

	slog.Info("sync completed",
		"component", "api",
		"action", "sync",
		"principal", principal,
		"items", len(req.Outbox),
		"applied", len(result.AppliedIDs),
		"id_map", len(result.IDMap),
		"conflicts", len(result.Conflicts),
		"tombstones", len(tombstones),
		"duration_ms", durationMS,
	)
}

// recordItemMetrics attributes each outbox item to applied or conflict.
func recordItemMetrics(outbox []syncwire.OutboxItem, result *reconcile.ApplyResult) {
	applied := make(map[int64]bool, len(result.AppliedIDs))
	for _, id := range result.AppliedIDs {
		applied[id] = true
	}

	for i := range outbox {
		item := &outbox[i]
		outcome := "conflict"
		if applied[item.ID] {
			outcome = "applied"
		}
		metrics.OutboxItems.WithLabelValues(string(item.Entity), item.Op, outcome).Inc()
	}
}
