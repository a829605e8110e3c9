package store

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// AppendSyncLog records one audit row per processed sync request.
// A missing ID is filled in with a fresh ULID.
func (s *SQLiteStore) AppendSyncLog(ctx context.Context, entry *SyncLogEntry) error {
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (id, user_id, items, applied, conflicts, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, entry.Items, entry.Applied, entry.Conflicts, entry.DurationMS)
	if err != nil {
		return fmt.Errorf("append sync log: %w", err)
	}
	return nil
}
