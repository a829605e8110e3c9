package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldsafe/sitesync/internal/types"
)

// InsertWorker inserts a new worker owned by the principal.
func (s *SQLiteStore) InsertWorker(ctx context.Context, userID int64, w *types.Worker) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (user_id, project_id, name, national_id, role, phone, company)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, userID, nullInt64(w.ProjectID), w.Name, w.NationalID,
		nullString(w.Role), nullString(w.Phone), nullString(w.Company))
	if err != nil {
		return 0, fmt.Errorf("insert worker: %w", err)
	}
	return lastInsertID(result)
}

// UpdateWorker updates a worker scoped by (id, principal).
func (s *SQLiteStore) UpdateWorker(ctx context.Context, userID, id int64, w *types.Worker) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workers
		SET project_id = ?, name = ?, national_id = ?, role = ?, phone = ?, company = ?,
		    updated_at = `+sqliteNow+`
		WHERE id = ? AND user_id = ?
	`, nullInt64(w.ProjectID), w.Name, w.NationalID,
		nullString(w.Role), nullString(w.Phone), nullString(w.Company),
		id, userID)
	if err != nil {
		return fmt.Errorf("update worker: %w", err)
	}
	return nil
}

// GetWorker retrieves a worker scoped by (id, principal).
func (s *SQLiteStore) GetWorker(ctx context.Context, userID, id int64) (*types.Worker, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, project_id, name, national_id, role, phone, company, updated_at
		FROM workers
		WHERE id = ? AND user_id = ?
	`, id, userID)

	w, err := scanWorker(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan worker: %w", err)
	}
	return w, nil
}

// ListWorkersSince returns the principal's workers with updated_at
// strictly newer than since.
func (s *SQLiteStore) ListWorkersSince(ctx context.Context, userID int64, since time.Time) ([]types.Worker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, name, national_id, role, phone, company, updated_at
		FROM workers
		WHERE user_id = ? AND updated_at > ?
		ORDER BY id ASC
	`, userID, FormatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()

	workers := make([]types.Worker, 0)
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		workers = append(workers, *w)
	}
	return workers, rows.Err()
}

func scanWorker(scanner interface{ Scan(...any) error }) (*types.Worker, error) {
	var w types.Worker
	var projectID sql.NullInt64
	var role, phone, company sql.NullString
	var updatedAt string

	err := scanner.Scan(&w.ID, &w.UserID, &projectID, &w.Name, &w.NationalID,
		&role, &phone, &company, &updatedAt)
	if err != nil {
		return nil, err
	}

	w.ProjectID = scanNullInt64(projectID)
	w.Role = scanNullString(role)
	w.Phone = scanNullString(phone)
	w.Company = scanNullString(company)
	w.UpdatedAt = scanTime(updatedAt)
	return &w, nil
}

// nullInt64 converts a *int64 into a sql-friendly value.
func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// scanNullInt64 converts a scanned nullable column into a *int64.
func scanNullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
