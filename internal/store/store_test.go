package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	syncwire "github.com/fieldsafe/sitesync/internal/sync"
	"github.com/fieldsafe/sitesync/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

func TestProject_InsertGetUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertProject(ctx, 1, &types.Project{
		Name:    "Obra Norte",
		Address: strPtr("Calle Mayor 12"),
		Status:  "active",
	})
	if err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}
	if id == 0 {
		t.Fatal("InsertProject() returned id 0")
	}

	p, err := s.GetProject(ctx, 1, id)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if p.Name != "Obra Norte" || p.Address == nil || *p.Address != "Calle Mayor 12" {
		t.Errorf("GetProject() = %+v", p)
	}
	if p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped on insert")
	}

	first := p.UpdatedAt
	time.Sleep(5 * time.Millisecond)

	if err := s.UpdateProject(ctx, 1, id, &types.Project{Name: "Obra Sur", Status: "active"}); err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}

	p, err = s.GetProject(ctx, 1, id)
	if err != nil {
		t.Fatalf("GetProject() after update error = %v", err)
	}
	if p.Name != "Obra Sur" {
		t.Errorf("Name = %q after update", p.Name)
	}
	if !p.UpdatedAt.After(first) {
		t.Errorf("UpdatedAt not re-stamped: %v -> %v", first, p.UpdatedAt)
	}
}

func TestProject_GetScopedByPrincipal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertProject(ctx, 1, &types.Project{Name: "Mine"})
	if err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}

	if _, err := s.GetProject(ctx, 2, id); err != ErrNotFound {
		t.Errorf("GetProject() cross-principal error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_OtherPrincipalAffectsZeroRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertProject(ctx, 1, &types.Project{Name: "Mine"})
	if err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}

	// Update as another principal: no error, no change
	if err := s.UpdateProject(ctx, 2, id, &types.Project{Name: "Stolen"}); err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}

	p, err := s.GetProject(ctx, 1, id)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if p.Name != "Mine" {
		t.Errorf("cross-principal update mutated the row: %q", p.Name)
	}
}

func TestListProjectsSince_Watermark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertProject(ctx, 1, &types.Project{Name: "Before"}); err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	watermark := time.Now().UTC()
	time.Sleep(5 * time.Millisecond)

	if _, err := s.InsertProject(ctx, 1, &types.Project{Name: "After"}); err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}

	rows, err := s.ListProjectsSince(ctx, 1, watermark)
	if err != nil {
		t.Fatalf("ListProjectsSince() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "After" {
		t.Errorf("ListProjectsSince() = %+v, want only After", rows)
	}

	// Epoch watermark returns everything
	all, err := s.ListProjectsSince(ctx, 1, time.Time{})
	if err != nil {
		t.Fatalf("ListProjectsSince(epoch) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListProjectsSince(epoch) returned %d rows, want 2", len(all))
	}

	// Other principals see nothing
	other, err := s.ListProjectsSince(ctx, 2, time.Time{})
	if err != nil {
		t.Fatalf("ListProjectsSince(other) error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListProjectsSince(other) returned %d rows, want 0", len(other))
	}
}

func TestFinding_PhotosCoalesceOnUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertFinding(ctx, 1, &types.Finding{
		Description: "Falta barandilla",
		Severity:    "high",
		Status:      "open",
		Photos:      []string{"a.jpg", "b.jpg"},
	})
	if err != nil {
		t.Fatalf("InsertFinding() error = %v", err)
	}

	// Update without photos keeps the stored list
	if err := s.UpdateFinding(ctx, 1, id, &types.Finding{
		Description: "Falta barandilla",
		Severity:    "high",
		Status:      "resolved",
	}); err != nil {
		t.Fatalf("UpdateFinding() error = %v", err)
	}

	f, err := s.GetFinding(ctx, 1, id)
	if err != nil {
		t.Fatalf("GetFinding() error = %v", err)
	}
	if f.Status != "resolved" {
		t.Errorf("Status = %q", f.Status)
	}
	if len(f.Photos) != 2 {
		t.Errorf("Photos after empty update = %v, want kept [a.jpg b.jpg]", f.Photos)
	}

	// Update with photos replaces the stored list
	if err := s.UpdateFinding(ctx, 1, id, &types.Finding{
		Description: "Falta barandilla",
		Severity:    "high",
		Status:      "resolved",
		Photos:      []string{"c.jpg"},
	}); err != nil {
		t.Fatalf("UpdateFinding() error = %v", err)
	}

	f, err = s.GetFinding(ctx, 1, id)
	if err != nil {
		t.Fatalf("GetFinding() error = %v", err)
	}
	if len(f.Photos) != 1 || f.Photos[0] != "c.jpg" {
		t.Errorf("Photos after replace = %v, want [c.jpg]", f.Photos)
	}
}

func TestWorker_ProjectReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	projectID, err := s.InsertProject(ctx, 1, &types.Project{Name: "Obra"})
	if err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}

	id, err := s.InsertWorker(ctx, 1, &types.Worker{
		ProjectID:  int64Ptr(projectID),
		Name:       "Juan",
		NationalID: "12345678A",
	})
	if err != nil {
		t.Fatalf("InsertWorker() error = %v", err)
	}

	w, err := s.GetWorker(ctx, 1, id)
	if err != nil {
		t.Fatalf("GetWorker() error = %v", err)
	}
	if w.ProjectID == nil || *w.ProjectID != projectID {
		t.Errorf("ProjectID = %v, want %d", w.ProjectID, projectID)
	}
}

func TestEntityUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertProject(ctx, 1, &types.Project{Name: "Obra"})
	if err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}

	ts, exists, err := s.EntityUpdatedAt(ctx, syncwire.EntityProjects, 1, id)
	if err != nil {
		t.Fatalf("EntityUpdatedAt() error = %v", err)
	}
	if !exists || ts.IsZero() {
		t.Errorf("EntityUpdatedAt() = (%v, %v)", ts, exists)
	}

	_, exists, err = s.EntityUpdatedAt(ctx, syncwire.EntityProjects, 1, id+100)
	if err != nil {
		t.Fatalf("EntityUpdatedAt() missing row error = %v", err)
	}
	if exists {
		t.Error("EntityUpdatedAt() reported a missing row as existing")
	}

	// Other principal does not see the row
	_, exists, err = s.EntityUpdatedAt(ctx, syncwire.EntityProjects, 2, id)
	if err != nil {
		t.Fatalf("EntityUpdatedAt() cross-principal error = %v", err)
	}
	if exists {
		t.Error("EntityUpdatedAt() leaked a row across principals")
	}

	if _, _, err := s.EntityUpdatedAt(ctx, "bogus", 1, id); err == nil {
		t.Error("expected error for unknown entity kind")
	}
}

func TestDeleteEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertProject(ctx, 1, &types.Project{Name: "Obra"})
	if err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}

	// Cross-principal delete affects zero rows
	n, err := s.DeleteEntity(ctx, syncwire.EntityProjects, 2, id)
	if err != nil {
		t.Fatalf("DeleteEntity() cross-principal error = %v", err)
	}
	if n != 0 {
		t.Errorf("cross-principal delete affected %d rows", n)
	}

	n, err = s.DeleteEntity(ctx, syncwire.EntityProjects, 1, id)
	if err != nil {
		t.Fatalf("DeleteEntity() error = %v", err)
	}
	if n != 1 {
		t.Errorf("delete affected %d rows, want 1", n)
	}

	// Replayed delete of an absent row is not an error
	n, err = s.DeleteEntity(ctx, syncwire.EntityProjects, 1, id)
	if err != nil {
		t.Fatalf("DeleteEntity() replay error = %v", err)
	}
	if n != 0 {
		t.Errorf("replayed delete affected %d rows", n)
	}
}

func TestTombstones_AppendListPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AppendTombstone(ctx, 1, syncwire.EntityWorkers, 7); err != nil {
		t.Fatalf("AppendTombstone() error = %v", err)
	}
	// A replayed delete appends a second row for the same id
	if err := s.AppendTombstone(ctx, 1, syncwire.EntityWorkers, 7); err != nil {
		t.Fatalf("AppendTombstone() replay error = %v", err)
	}

	stones, err := s.ListTombstonesSince(ctx, 1, time.Time{})
	if err != nil {
		t.Fatalf("ListTombstonesSince() error = %v", err)
	}
	if len(stones) != 2 {
		t.Fatalf("ListTombstonesSince() returned %d, want 2", len(stones))
	}
	if stones[0].Entity != syncwire.EntityWorkers || stones[0].RemoteID != 7 {
		t.Errorf("tombstone = %+v", stones[0])
	}

	// Other principal sees nothing
	other, err := s.ListTombstonesSince(ctx, 2, time.Time{})
	if err != nil {
		t.Fatalf("ListTombstonesSince(other) error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("tombstones leaked across principals: %d", len(other))
	}

	time.Sleep(5 * time.Millisecond)
	purged, err := s.PurgeTombstonesBefore(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("PurgeTombstonesBefore() error = %v", err)
	}
	if purged != 2 {
		t.Errorf("PurgeTombstonesBefore() purged %d, want 2", purged)
	}

	stones, err = s.ListTombstonesSince(ctx, 1, time.Time{})
	if err != nil {
		t.Fatalf("ListTombstonesSince() after purge error = %v", err)
	}
	if len(stones) != 0 {
		t.Errorf("tombstones remain after purge: %d", len(stones))
	}
}

func TestAdmonitions_InsertList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertAdmonition(ctx, 1, &types.Admonition{
		Reason:   "Sin casco",
		Severity: "low",
	}); err != nil {
		t.Fatalf("InsertAdmonition() error = %v", err)
	}

	list, err := s.ListAdmonitions(ctx, 1)
	if err != nil {
		t.Fatalf("ListAdmonitions() error = %v", err)
	}
	if len(list) != 1 || list[0].Reason != "Sin casco" {
		t.Errorf("ListAdmonitions() = %+v", list)
	}

	other, err := s.ListAdmonitions(ctx, 2)
	if err != nil {
		t.Fatalf("ListAdmonitions(other) error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("admonitions leaked across principals: %d", len(other))
	}
}

func TestAppendSyncLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &SyncLogEntry{UserID: 1, Items: 3, Applied: 2, Conflicts: 1, DurationMS: 12}
	if err := s.AppendSyncLog(ctx, entry); err != nil {
		t.Fatalf("AppendSyncLog() error = %v", err)
	}
	if entry.ID == "" {
		t.Error("AppendSyncLog() did not assign an id")
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertProject(ctx, 1, &types.Project{Name: "Obra"}); err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}
	if err := s.AppendTombstone(ctx, 1, syncwire.EntityProjects, 99); err != nil {
		t.Fatalf("AppendTombstone() error = %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.Projects != 1 || stats.Tombstones != 1 {
		t.Errorf("GetStats() = %+v", stats)
	}
}

func TestBackupTo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertProject(ctx, 1, &types.Project{Name: "Obra"}); err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "backup.db")
	if err := s.BackupTo(ctx, path); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("backup file is empty")
	}
}
