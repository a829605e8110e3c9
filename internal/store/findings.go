package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldsafe/sitesync/internal/types"
)

// InsertFinding inserts a new finding owned by the principal.
func (s *SQLiteStore) InsertFinding(ctx context.Context, userID int64, f *types.Finding) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO findings (user_id, project_id, description, severity, status, location, photos, due_date, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, nullInt64(f.ProjectID), f.Description, f.Severity, f.Status,
		nullString(f.Location), photosParam(f.Photos),
		nullTimeString(f.DueDate), nullTimeString(f.ResolvedAt))
	if err != nil {
		return 0, fmt.Errorf("insert finding: %w", err)
	}
	return lastInsertID(result)
}

// UpdateFinding updates a finding scoped by (id, principal). The photos
// column uses COALESCE(new, photos): a non-empty client list replaces the
// stored one, absence keeps it. This is done store-side to keep the
// update a single atomic statement.
func (s *SQLiteStore) UpdateFinding(ctx context.Context, userID, id int64, f *types.Finding) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE findings
		SET project_id = ?, description = ?, severity = ?, status = ?, location = ?,
		    photos = COALESCE(?, photos), due_date = ?, resolved_at = ?,
		    updated_at = `+sqliteNow+`
		WHERE id = ? AND user_id = ?
	`, nullInt64(f.ProjectID), f.Description, f.Severity, f.Status,
		nullString(f.Location), photosParam(f.Photos),
		nullTimeString(f.DueDate), nullTimeString(f.ResolvedAt),
		id, userID)
	if err != nil {
		return fmt.Errorf("update finding: %w", err)
	}
	return nil
}

// GetFinding retrieves a finding scoped by (id, principal).
func (s *SQLiteStore) GetFinding(ctx context.Context, userID, id int64) (*types.Finding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, project_id, description, severity, status, location, photos, due_date, resolved_at, updated_at
		FROM findings
		WHERE id = ? AND user_id = ?
	`, id, userID)

	f, err := scanFinding(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan finding: %w", err)
	}
	return f, nil
}

// ListFindingsSince returns the principal's findings with updated_at
// strictly newer than since.
func (s *SQLiteStore) ListFindingsSince(ctx context.Context, userID int64, since time.Time) ([]types.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, description, severity, status, location, photos, due_date, resolved_at, updated_at
		FROM findings
		WHERE user_id = ? AND updated_at > ?
		ORDER BY id ASC
	`, userID, FormatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	findings := make([]types.Finding, 0)
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		findings = append(findings, *f)
	}
	return findings, rows.Err()
}

func scanFinding(scanner interface{ Scan(...any) error }) (*types.Finding, error) {
	var f types.Finding
	var projectID sql.NullInt64
	var location, photos, dueDate, resolvedAt sql.NullString
	var updatedAt string

	err := scanner.Scan(&f.ID, &f.UserID, &projectID, &f.Description, &f.Severity,
		&f.Status, &location, &photos, &dueDate, &resolvedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	f.ProjectID = scanNullInt64(projectID)
	f.Location = scanNullString(location)
	f.Photos = scanPhotos(photos)
	f.DueDate = scanNullTime(dueDate)
	f.ResolvedAt = scanNullTime(resolvedAt)
	f.UpdatedAt = scanTime(updatedAt)
	return &f, nil
}
