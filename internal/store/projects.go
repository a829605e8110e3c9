package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldsafe/sitesync/internal/types"
)

// InsertProject inserts a new project owned by the principal. The store
// stamps updated_at at insert time via the column default.
func (s *SQLiteStore) InsertProject(ctx context.Context, userID int64, p *types.Project) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (user_id, name, address, client, status, start_date, end_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, p.Name, nullString(p.Address), nullString(p.Client), p.Status,
		nullTimeString(p.StartDate), nullTimeString(p.EndDate), nullString(p.Notes))
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	return lastInsertID(result)
}

// UpdateProject updates a project scoped by (id, principal), re-stamping
// updated_at. Zero affected rows is not an error.
func (s *SQLiteStore) UpdateProject(ctx context.Context, userID, id int64, p *types.Project) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, address = ?, client = ?, status = ?, start_date = ?, end_date = ?, notes = ?,
		    updated_at = `+sqliteNow+`
		WHERE id = ? AND user_id = ?
	`, p.Name, nullString(p.Address), nullString(p.Client), p.Status,
		nullTimeString(p.StartDate), nullTimeString(p.EndDate), nullString(p.Notes),
		id, userID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// GetProject retrieves a project scoped by (id, principal).
func (s *SQLiteStore) GetProject(ctx context.Context, userID, id int64) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, address, client, status, start_date, end_date, notes, updated_at
		FROM projects
		WHERE id = ? AND user_id = ?
	`, id, userID)

	p, err := scanProject(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return p, nil
}

// ListProjectsSince returns the principal's projects with updated_at
// strictly newer than since.
func (s *SQLiteStore) ListProjectsSince(ctx context.Context, userID int64, since time.Time) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, address, client, status, start_date, end_date, notes, updated_at
		FROM projects
		WHERE user_id = ? AND updated_at > ?
		ORDER BY id ASC
	`, userID, FormatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]types.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func scanProject(scanner interface{ Scan(...any) error }) (*types.Project, error) {
	var p types.Project
	var address, client, startDate, endDate, notes sql.NullString
	var updatedAt string

	err := scanner.Scan(&p.ID, &p.UserID, &p.Name, &address, &client, &p.Status,
		&startDate, &endDate, &notes, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Address = scanNullString(address)
	p.Client = scanNullString(client)
	p.StartDate = scanNullTime(startDate)
	p.EndDate = scanNullTime(endDate)
	p.Notes = scanNullString(notes)
	p.UpdatedAt = scanTime(updatedAt)
	return &p, nil
}
