package reconcile

import (
	"context"
	"time"

	"github.com/fieldsafe/sitesync/internal/store"
	syncwire "github.com/fieldsafe/sitesync/internal/sync"
	"github.com/fieldsafe/sitesync/internal/types"
)

// entityHandler applies outbox operations for one entity kind. Deletes
// and tombstones are handled generically by the Reconciler; handlers own
// payload coercion and the typed store calls.
type entityHandler interface {
	create(ctx context.Context, principal int64, payload map[string]any) (int64, error)
	update(ctx context.Context, principal, remoteID int64, payload map[string]any) error
	updatedAt(ctx context.Context, principal, remoteID int64) (time.Time, bool, error)
	fetch(ctx context.Context, principal, remoteID int64) (any, error)
}

// --- projects ---

type projectHandler struct {
	store store.Store
}

func coerceProject(m map[string]any) *types.Project {
	return &types.Project{
		Name:      coerceString(m, "name"),
		Address:   coerceNullString(m, "address"),
		Client:    coerceNullString(m, "client"),
		Status:    coerceString(m, "status"),
		StartDate: coerceNullTime(m, "start_date"),
		EndDate:   coerceNullTime(m, "end_date"),
		Notes:     coerceNullString(m, "notes"),
	}
}

func (h *projectHandler) create(ctx context.Context, principal int64, payload map[string]any) (int64, error) {
	return h.store.InsertProject(ctx, principal, coerceProject(payload))
}

func (h *projectHandler) update(ctx context.Context, principal, remoteID int64, payload map[string]any) error {
	return h.store.UpdateProject(ctx, principal, remoteID, coerceProject(payload))
}

func (h *projectHandler) updatedAt(ctx context.Context, principal, remoteID int64) (time.Time, bool, error) {
	return h.store.EntityUpdatedAt(ctx, syncwire.EntityProjects, principal, remoteID)
}

func (h *projectHandler) fetch(ctx context.Context, principal, remoteID int64) (any, error) {
	return h.store.GetProject(ctx, principal, remoteID)
}

// --- workers ---

type workerHandler struct {
	store store.Store
}

func coerceWorker(m map[string]any) *types.Worker {
	return &types.Worker{
		ProjectID:  coerceNullInt(m, "project_id"),
		Name:       coerceString(m, "name"),
		NationalID: coerceString(m, "national_id"),
		Role:       coerceNullString(m, "role"),
		Phone:      coerceNullString(m, "phone"),
		Company:    coerceNullString(m, "company"),
	}
}

func (h *workerHandler) create(ctx context.Context, principal int64, payload map[string]any) (int64, error) {
	return h.store.InsertWorker(ctx, principal, coerceWorker(payload))
}

func (h *workerHandler) update(ctx context.Context, principal, remoteID int64, payload map[string]any) error {
	return h.store.UpdateWorker(ctx, principal, remoteID, coerceWorker(payload))
}

func (h *workerHandler) updatedAt(ctx context.Context, principal, remoteID int64) (time.Time, bool, error) {
	return h.store.EntityUpdatedAt(ctx, syncwire.EntityWorkers, principal, remoteID)
}

func (h *workerHandler) fetch(ctx context.Context, principal, remoteID int64) (any, error) {
	return h.store.GetWorker(ctx, principal, remoteID)
}

// --- findings ---

type findingHandler struct {
	store store.Store
}

func coerceFinding(m map[string]any) *types.Finding {
	return &types.Finding{
		ProjectID:   coerceNullInt(m, "project_id"),
		Description: coerceString(m, "description"),
		Severity:    coerceString(m, "severity"),
		Status:      coerceString(m, "status"),
		Location:    coerceNullString(m, "location"),
		Photos:      coerceStringSlice(m, "photos"),
		DueDate:     coerceNullTime(m, "due_date"),
		ResolvedAt:  coerceNullTime(m, "resolved_at"),
	}
}

func (h *findingHandler) create(ctx context.Context, principal int64, payload map[string]any) (int64, error) {
	return h.store.InsertFinding(ctx, principal, coerceFinding(payload))
}

func (h *findingHandler) update(ctx context.Context, principal, remoteID int64, payload map[string]any) error {
	return h.store.UpdateFinding(ctx, principal, remoteID, coerceFinding(payload))
}

func (h *findingHandler) updatedAt(ctx context.Context, principal, remoteID int64) (time.Time, bool, error) {
	return h.store.EntityUpdatedAt(ctx, syncwire.EntityFindings, principal, remoteID)
}

func (h *findingHandler) fetch(ctx context.Context, principal, remoteID int64) (any, error) {
	return h.store.GetFinding(ctx, principal, remoteID)
}

// --- mobile documents ---

type documentHandler struct {
	store store.Store
}

func coerceMobileDocument(m map[string]any) *types.MobileDocument {
	return &types.MobileDocument{
		Name:    coerceString(m, "name"),
		DocType: coerceString(m, "doc_type"),
		FileRef: coerceNullString(m, "file_ref"),
		Photos:  coerceStringSlice(m, "photos"),
		Notes:   coerceNullString(m, "notes"),
	}
}

func (h *documentHandler) create(ctx context.Context, principal int64, payload map[string]any) (int64, error) {
	return h.store.InsertMobileDocument(ctx, principal, coerceMobileDocument(payload))
}

func (h *documentHandler) update(ctx context.Context, principal, remoteID int64, payload map[string]any) error {
	return h.store.UpdateMobileDocument(ctx, principal, remoteID, coerceMobileDocument(payload))
}

func (h *documentHandler) updatedAt(ctx context.Context, principal, remoteID int64) (time.Time, bool, error) {
	return h.store.EntityUpdatedAt(ctx, syncwire.EntityMobileDocuments, principal, remoteID)
}

func (h *documentHandler) fetch(ctx context.Context, principal, remoteID int64) (any, error) {
	return h.store.GetMobileDocument(ctx, principal, remoteID)
}
