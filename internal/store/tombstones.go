package store

import (
	"context"
	"fmt"
	"time"

	syncwire "github.com/fieldsafe/sitesync/internal/sync"
)

// AppendTombstone records a server-observed delete for the principal.
// The append is unconditional: replaying a delete must still certify the
// tombstone exists for other clients, so a second delete of the same id
// appends a second row.
func (s *SQLiteStore) AppendTombstone(ctx context.Context, userID int64, kind syncwire.EntityKind, remoteID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tombstones (user_id, entity, remote_id)
		VALUES (?, ?, ?)
	`, userID, string(kind), remoteID)
	if err != nil {
		return fmt.Errorf("append tombstone: %w", err)
	}
	return nil
}

// ListTombstonesSince returns the principal's tombstones with deleted_at
// strictly newer than since.
func (s *SQLiteStore) ListTombstonesSince(ctx context.Context, userID int64, since time.Time) ([]syncwire.Tombstone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity, remote_id, deleted_at
		FROM tombstones
		WHERE user_id = ? AND deleted_at > ?
		ORDER BY id ASC
	`, userID, FormatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query tombstones: %w", err)
	}
	defer rows.Close()

	tombstones := make([]syncwire.Tombstone, 0)
	for rows.Next() {
		var t syncwire.Tombstone
		var entity string
		if err := rows.Scan(&entity, &t.RemoteID, &t.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan tombstone: %w", err)
		}
		t.Entity = syncwire.EntityKind(entity)
		tombstones = append(tombstones, t)
	}
	return tombstones, rows.Err()
}

// PurgeTombstonesBefore removes tombstones older than cutoff across all
// principals. Returns the number of rows removed.
func (s *SQLiteStore) PurgeTombstonesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tombstones WHERE deleted_at < ?
	`, FormatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}
	return result.RowsAffected()
}
