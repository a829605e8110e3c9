package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldsafe/sitesync/internal/store"
	syncwire "github.com/fieldsafe/sitesync/internal/sync"
)

// ParseWatermark parses a client lastSync value. A missing or unparsable
// watermark yields the zero time, which makes every delta query a full
// resync.
func ParseWatermark(lastSync *string) time.Time {
	if lastSync == nil {
		return time.Time{}
	}
	t, err := store.ParseTime(*lastSync)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Delta assembles the principal's changes newer than lastSync: per-kind
// rows with updated_at > lastSync, the full admonition snapshot, and
// tombstones with deleted_at > lastSync.
func (r *Reconciler) Delta(ctx context.Context, principal int64, lastSync time.Time) (syncwire.Changes, []syncwire.Tombstone, error) {
	var changes syncwire.Changes
	var err error

	if changes.Projects, err = r.store.ListProjectsSince(ctx, principal, lastSync); err != nil {
		return changes, nil, fmt.Errorf("delta projects: %w", err)
	}
	if changes.Workers, err = r.store.ListWorkersSince(ctx, principal, lastSync); err != nil {
		return changes, nil, fmt.Errorf("delta workers: %w", err)
	}
	if changes.Findings, err = r.store.ListFindingsSince(ctx, principal, lastSync); err != nil {
		return changes, nil, fmt.Errorf("delta findings: %w", err)
	}
	if changes.MobileDocuments, err = r.store.ListMobileDocumentsSince(ctx, principal, lastSync); err != nil {
		return changes, nil, fmt.Errorf("delta mobile documents: %w", err)
	}

	// Admonitions are a full snapshot: never mutated from the client, so
	// there is no staleness window to protect, only freshness to provide.
	if changes.Admonitions, err = r.store.ListAdmonitions(ctx, principal); err != nil {
		return changes, nil, fmt.Errorf("delta admonitions: %w", err)
	}

	tombstones, err := r.store.ListTombstonesSince(ctx, principal, lastSync)
	if err != nil {
		return changes, nil, fmt.Errorf("delta tombstones: %w", err)
	}

	return changes, tombstones, nil
}
