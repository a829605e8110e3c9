package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldsafe/sitesync/internal/types"
)

// InsertAdmonition inserts an admonition owned by the principal.
// Admonitions are written by the web application only; the sync protocol
// reads them as a full snapshot.
func (s *SQLiteStore) InsertAdmonition(ctx context.Context, userID int64, a *types.Admonition) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO admonitions (user_id, worker_id, project_id, reason, severity, issued_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, nullInt64(a.WorkerID), nullInt64(a.ProjectID), a.Reason, a.Severity,
		nullTimeString(a.IssuedAt))
	if err != nil {
		return 0, fmt.Errorf("insert admonition: %w", err)
	}
	return lastInsertID(result)
}

// ListAdmonitions returns every admonition owned by the principal,
// deliberately unfiltered by any watermark.
func (s *SQLiteStore) ListAdmonitions(ctx context.Context, userID int64) ([]types.Admonition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, worker_id, project_id, reason, severity, issued_at, updated_at
		FROM admonitions
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query admonitions: %w", err)
	}
	defer rows.Close()

	admonitions := make([]types.Admonition, 0)
	for rows.Next() {
		var a types.Admonition
		var workerID, projectID sql.NullInt64
		var issuedAt sql.NullString
		var updatedAt string

		if err := rows.Scan(&a.ID, &a.UserID, &workerID, &projectID, &a.Reason,
			&a.Severity, &issuedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan admonition: %w", err)
		}

		a.WorkerID = scanNullInt64(workerID)
		a.ProjectID = scanNullInt64(projectID)
		a.IssuedAt = scanNullTime(issuedAt)
		a.UpdatedAt = scanTime(updatedAt)
		admonitions = append(admonitions, a)
	}
	return admonitions, rows.Err()
}
