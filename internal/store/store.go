package store

import (
	"context"
	"time"

	syncwire "github.com/fieldsafe/sitesync/internal/sync"
	"github.com/fieldsafe/sitesync/internal/types"
)

// Store defines the interface contract for the authoritative entity store,
// the tombstone log and the sync audit log. Every read and write is scoped
// by the owning principal.
type Store interface {
	InsertProject(ctx context.Context, userID int64, p *types.Project) (int64, error)
	UpdateProject(ctx context.Context, userID, id int64, p *types.Project) error
	GetProject(ctx context.Context, userID, id int64) (*types.Project, error)
	ListProjectsSince(ctx context.Context, userID int64, since time.Time) ([]types.Project, error)

	InsertWorker(ctx context.Context, userID int64, w *types.Worker) (int64, error)
	UpdateWorker(ctx context.Context, userID, id int64, w *types.Worker) error
	GetWorker(ctx context.Context, userID, id int64) (*types.Worker, error)
	ListWorkersSince(ctx context.Context, userID int64, since time.Time) ([]types.Worker, error)

	InsertFinding(ctx context.Context, userID int64, f *types.Finding) (int64, error)
	UpdateFinding(ctx context.Context, userID, id int64, f *types.Finding) error
	GetFinding(ctx context.Context, userID, id int64) (*types.Finding, error)
	ListFindingsSince(ctx context.Context, userID int64, since time.Time) ([]types.Finding, error)

	InsertMobileDocument(ctx context.Context, userID int64, d *types.MobileDocument) (int64, error)
	UpdateMobileDocument(ctx context.Context, userID, id int64, d *types.MobileDocument) error
	GetMobileDocument(ctx context.Context, userID, id int64) (*types.MobileDocument, error)
	ListMobileDocumentsSince(ctx context.Context, userID int64, since time.Time) ([]types.MobileDocument, error)

	InsertAdmonition(ctx context.Context, userID int64, a *types.Admonition) (int64, error)
	ListAdmonitions(ctx context.Context, userID int64) ([]types.Admonition, error)

	EntityUpdatedAt(ctx context.Context, kind syncwire.EntityKind, userID, id int64) (time.Time, bool, error)
	DeleteEntity(ctx context.Context, kind syncwire.EntityKind, userID, id int64) (int64, error)

	AppendTombstone(ctx context.Context, userID int64, kind syncwire.EntityKind, remoteID int64) error
	ListTombstonesSince(ctx context.Context, userID int64, since time.Time) ([]syncwire.Tombstone, error)
	PurgeTombstonesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	AppendSyncLog(ctx context.Context, entry *SyncLogEntry) error

	GetStats(ctx context.Context) (*Stats, error)
	BackupTo(ctx context.Context, path string) error
	Close() error
}

// Stats holds aggregate row counts for the health endpoint.
type Stats struct {
	Projects        int64 `json:"projects"`
	Workers         int64 `json:"workers"`
	Findings        int64 `json:"findings"`
	MobileDocuments int64 `json:"mobile_documents"`
	Tombstones      int64 `json:"tombstones"`
}

// SyncLogEntry is one audit record per processed sync request.
type SyncLogEntry struct {
	ID         string
	UserID     int64
	Items      int
	Applied    int
	Conflicts  int
	DurationMS int64
}
