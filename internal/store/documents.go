package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldsafe/sitesync/internal/types"
)

// InsertMobileDocument inserts a new mobile document owned by the principal.
func (s *SQLiteStore) InsertMobileDocument(ctx context.Context, userID int64, d *types.MobileDocument) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO mobile_documents (user_id, name, doc_type, file_ref, photos, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, d.Name, d.DocType, nullString(d.FileRef), photosParam(d.Photos), nullString(d.Notes))
	if err != nil {
		return 0, fmt.Errorf("insert mobile document: %w", err)
	}
	return lastInsertID(result)
}

// UpdateMobileDocument updates a document scoped by (id, principal).
// Photos use the same COALESCE merge as findings.
func (s *SQLiteStore) UpdateMobileDocument(ctx context.Context, userID, id int64, d *types.MobileDocument) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mobile_documents
		SET name = ?, doc_type = ?, file_ref = ?, photos = COALESCE(?, photos), notes = ?,
		    updated_at = `+sqliteNow+`
		WHERE id = ? AND user_id = ?
	`, d.Name, d.DocType, nullString(d.FileRef), photosParam(d.Photos), nullString(d.Notes),
		id, userID)
	if err != nil {
		return fmt.Errorf("update mobile document: %w", err)
	}
	return nil
}

// GetMobileDocument retrieves a document scoped by (id, principal).
func (s *SQLiteStore) GetMobileDocument(ctx context.Context, userID, id int64) (*types.MobileDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, doc_type, file_ref, photos, notes, updated_at
		FROM mobile_documents
		WHERE id = ? AND user_id = ?
	`, id, userID)

	d, err := scanMobileDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan mobile document: %w", err)
	}
	return d, nil
}

// ListMobileDocumentsSince returns the principal's documents with
// updated_at strictly newer than since.
func (s *SQLiteStore) ListMobileDocumentsSince(ctx context.Context, userID int64, since time.Time) ([]types.MobileDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, doc_type, file_ref, photos, notes, updated_at
		FROM mobile_documents
		WHERE user_id = ? AND updated_at > ?
		ORDER BY id ASC
	`, userID, FormatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query mobile documents: %w", err)
	}
	defer rows.Close()

	docs := make([]types.MobileDocument, 0)
	for rows.Next() {
		d, err := scanMobileDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mobile document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func scanMobileDocument(scanner interface{ Scan(...any) error }) (*types.MobileDocument, error) {
	var d types.MobileDocument
	var fileRef, photos, notes sql.NullString
	var updatedAt string

	err := scanner.Scan(&d.ID, &d.UserID, &d.Name, &d.DocType, &fileRef, &photos, &notes, &updatedAt)
	if err != nil {
		return nil, err
	}

	d.FileRef = scanNullString(fileRef)
	d.Photos = scanPhotos(photos)
	d.Notes = scanNullString(notes)
	d.UpdatedAt = scanTime(updatedAt)
	return &d, nil
}
