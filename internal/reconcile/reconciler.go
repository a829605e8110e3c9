// Package reconcile applies client outbox batches against the
// authoritative store and computes per-principal deltas.
//
// Items are applied strictly in the order submitted, never reordered or
// parallelized: later items may reference ids assigned to earlier creates
// in the same batch. Every per-item failure is converted into a conflict
// entry and the batch continues; partial success is the normal case.
//
// Known limitation: a create retried after a lost response inserts a
// second row. The only dedup key is the client-minted local_id, which the
// server does not track across requests; clients must retain the returned
// id map to retire applied creates.
package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fieldsafe/sitesync/internal/store"
	syncwire "github.com/fieldsafe/sitesync/internal/sync"
)

// Conflict reason strings returned to clients.
const (
	ReasonNoID              = "no id"
	ReasonRemoteIDRequired  = "remote_id requerido"
	ReasonEntityUnsupported = "entidad no soportada"
	ReasonVersionConflict   = "conflicto de versión"
)

// Reconciler applies outbox batches and assembles deltas for a principal.
// It is stateless across requests: the watermark always travels with the
// request, never lives on the server.
type Reconciler struct {
	store    store.Store
	handlers map[syncwire.EntityKind]entityHandler
}

// New creates a Reconciler over the given store.
func New(s store.Store) *Reconciler {
	return &Reconciler{
		store: s,
		handlers: map[syncwire.EntityKind]entityHandler{
			syncwire.EntityProjects:        &projectHandler{store: s},
			syncwire.EntityWorkers:         &workerHandler{store: s},
			syncwire.EntityFindings:        &findingHandler{store: s},
			syncwire.EntityMobileDocuments: &documentHandler{store: s},
		},
	}
}

// ApplyResult reports what happened to each item of a batch.
type ApplyResult struct {
	AppliedIDs []int64
	IDMap      []syncwire.IDMapEntry
	Conflicts  []syncwire.Conflict
}

// Apply processes the batch for a single principal, in submitted order.
func (r *Reconciler) Apply(ctx context.Context, principal int64, outbox []syncwire.OutboxItem) *ApplyResult {
	result := &ApplyResult{
		AppliedIDs: make([]int64, 0, len(outbox)),
		IDMap:      make([]syncwire.IDMapEntry, 0),
		Conflicts:  make([]syncwire.Conflict, 0),
	}

	for i := range outbox {
		item := &outbox[i]
		applied, idEntry, conflict := r.applyItem(ctx, principal, item)

		if conflict != nil {
			slog.Debug("outbox item conflicted",
				"component", "reconcile",
				"principal", principal,
				"outbox_id", item.ID,
				"entity", item.Entity,
				"op", item.Op,
				"reason", conflict.Reason,
			)
			result.Conflicts = append(result.Conflicts, *conflict)
			continue
		}
		if idEntry != nil {
			result.IDMap = append(result.IDMap, *idEntry)
		}
		if applied {
			result.AppliedIDs = append(result.AppliedIDs, item.ID)
		}
	}

	return result
}

// applyItem dispatches one outbox item. It never lets an error escape:
// any failure becomes a conflict so sibling items are unaffected.
func (r *Reconciler) applyItem(ctx context.Context, principal int64, item *syncwire.OutboxItem) (applied bool, idEntry *syncwire.IDMapEntry, conflict *syncwire.Conflict) {
	handler, ok := r.handlers[item.Entity]
	if !ok {
		return false, nil, r.conflict(item, ReasonEntityUnsupported, nil)
	}

	switch item.Op {
	case syncwire.OpCreate:
		return r.applyCreate(ctx, principal, handler, item)
	case syncwire.OpUpdate:
		return r.applyUpdate(ctx, principal, handler, item)
	case syncwire.OpDelete:
		return r.applyDelete(ctx, principal, item)
	default:
		return false, nil, r.conflict(item, ReasonEntityUnsupported, nil)
	}
}

func (r *Reconciler) applyCreate(ctx context.Context, principal int64, handler entityHandler, item *syncwire.OutboxItem) (bool, *syncwire.IDMapEntry, *syncwire.Conflict) {
	payload, err := parsePayload(item.Payload)
	if err != nil {
		return false, nil, r.conflict(item, err.Error(), nil)
	}

	remoteID, err := handler.create(ctx, principal, payload)
	if err != nil {
		if errors.Is(err, store.ErrNoID) {
			return false, nil, r.conflict(item, ReasonNoID, nil)
		}
		return false, nil, r.conflict(item, err.Error(), nil)
	}

	return true, &syncwire.IDMapEntry{
		Entity:   item.Entity,
		LocalID:  item.LocalID,
		RemoteID: remoteID,
	}, nil
}

func (r *Reconciler) applyUpdate(ctx context.Context, principal int64, handler entityHandler, item *syncwire.OutboxItem) (bool, *syncwire.IDMapEntry, *syncwire.Conflict) {
	if item.RemoteID == nil {
		return false, nil, r.conflict(item, ReasonRemoteIDRequired, nil)
	}

	payload, err := parsePayload(item.Payload)
	if err != nil {
		return false, nil, r.conflict(item, err.Error(), nil)
	}

	// Optimistic concurrency: reject when the stored row is newer than
	// the client's copy, returning the server row for local resolution.
	// No lock is held between this read and the write below; the
	// tolerated race is last-writer-wins without detection.
	stored, exists, err := handler.updatedAt(ctx, principal, *item.RemoteID)
	if err != nil {
		return false, nil, r.conflict(item, err.Error(), nil)
	}
	clientTS := clientUpdatedAt(payload)
	if exists && clientTS != nil && stored.After(*clientTS) {
		serverRow, fetchErr := handler.fetch(ctx, principal, *item.RemoteID)
		if fetchErr != nil {
			serverRow = nil
		}
		return false, nil, r.conflict(item, ReasonVersionConflict, serverRow)
	}

	// A nonexistent row, or one owned by another principal, affects zero
	// rows and still counts as applied: replaying an update of an
	// already-deleted entity must not error.
	if err := handler.update(ctx, principal, *item.RemoteID, payload); err != nil {
		return false, nil, r.conflict(item, err.Error(), nil)
	}
	return true, nil, nil
}

func (r *Reconciler) applyDelete(ctx context.Context, principal int64, item *syncwire.OutboxItem) (bool, *syncwire.IDMapEntry, *syncwire.Conflict) {
	// A delete of a pending local-only create never reached the store;
	// trivially satisfied.
	if item.RemoteID == nil {
		return true, nil, nil
	}

	if _, err := r.store.DeleteEntity(ctx, item.Entity, principal, *item.RemoteID); err != nil {
		return false, nil, r.conflict(item, err.Error(), nil)
	}

	// Tombstone append is unconditional, even when the delete affected
	// zero rows: a replayed delete must still certify the tombstone for
	// other clients.
	if err := r.store.AppendTombstone(ctx, principal, item.Entity, *item.RemoteID); err != nil {
		return false, nil, r.conflict(item, err.Error(), nil)
	}
	return true, nil, nil
}

func (r *Reconciler) conflict(item *syncwire.OutboxItem, reason string, serverRow any) *syncwire.Conflict {
	return &syncwire.Conflict{
		OutboxID:  item.ID,
		Entity:    item.Entity,
		RemoteID:  item.RemoteID,
		Reason:    reason,
		ServerRow: serverRow,
	}
}
