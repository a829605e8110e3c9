package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	syncwire "github.com/fieldsafe/sitesync/internal/sync"
	_ "modernc.org/sqlite"
)

// TimeLayout is the canonical timestamp format stored in every row.
// It matches SQLite's strftime('%Y-%m-%dT%H:%M:%fZ', 'now') output, so
// lexicographic comparison in SQL equals chronological comparison.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// sqliteNow is the SQL expression the store stamps updated_at with.
// Timestamps are always store-side, never client-supplied.
const sqliteNow = "strftime('%Y-%m-%dT%H:%M:%fZ', 'now')"

// SQLiteStore is the SQLite-backed authoritative store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// entityTables maps wire entity kinds to their table names. The closed
// set doubles as SQL-injection protection for the generic helpers below.
var entityTables = map[syncwire.EntityKind]string{
	syncwire.EntityProjects:        "projects",
	syncwire.EntityWorkers:         "workers",
	syncwire.EntityFindings:        "findings",
	syncwire.EntityMobileDocuments: "mobile_documents",
}

// EntityUpdatedAt reads the stored updated_at for a row scoped by
// (id, principal). The second return is false when the row does not exist.
func (s *SQLiteStore) EntityUpdatedAt(ctx context.Context, kind syncwire.EntityKind, userID, id int64) (time.Time, bool, error) {
	table, ok := entityTables[kind]
	if !ok {
		return time.Time{}, false, fmt.Errorf("%w: %s", ErrUnknownEntity, kind)
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT updated_at FROM %s WHERE id = ? AND user_id = ?", table),
		id, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query updated_at: %w", err)
	}

	t, err := ParseTime(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse updated_at %q: %w", raw, err)
	}
	return t, true, nil
}

// DeleteEntity removes a row scoped by (id, principal) and reports how
// many rows were affected. Zero rows is not an error: replaying a delete
// of an already-absent row must succeed.
func (s *SQLiteStore) DeleteEntity(ctx context.Context, kind syncwire.EntityKind, userID, id int64) (int64, error) {
	table, ok := entityTables[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEntity, kind)
	}

	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ?", table),
		id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return result.RowsAffected()
}

// GetStats returns aggregate row counts for the health endpoint.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	counts := []struct {
		table string
		dest  *int64
	}{
		{"projects", &stats.Projects},
		{"workers", &stats.Workers},
		{"findings", &stats.Findings},
		{"mobile_documents", &stats.MobileDocuments},
		{"tombstones", &stats.Tombstones},
	}

	for _, c := range counts {
		err := s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)).Scan(c.dest)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return stats, nil
}

// BackupTo writes a consistent copy of the database to path via VACUUM INTO.
func (s *SQLiteStore) BackupTo(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return nil
}

// FormatTime renders a timestamp in the store's canonical layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a timestamp in the store's canonical layout. It also
// accepts plain RFC 3339 for values written by other tooling.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// lastInsertID extracts the id of an inserted row, normalizing failures
// to ErrNoID.
func lastInsertID(result sql.Result) (int64, error) {
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoID, err)
	}
	if id == 0 {
		return 0, ErrNoID
	}
	return id, nil
}

// nullString converts a *string into a sql-friendly value.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullTimeString renders an optional timestamp for storage.
func nullTimeString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

// scanNullString converts a scanned nullable column into a *string.
func scanNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// scanNullTime parses a scanned nullable timestamp column.
func scanNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := ParseTime(ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// scanTime parses a mandatory timestamp column, falling back to the zero
// time on corruption rather than failing the whole row.
func scanTime(raw string) time.Time {
	t, err := ParseTime(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// photosParam serializes a photo reference list for storage. An empty or
// nil slice serializes as NULL so updates can keep the existing value via
// COALESCE(new, photos).
func photosParam(photos []string) any {
	if len(photos) == 0 {
		return nil
	}
	b, err := json.Marshal(photos)
	if err != nil {
		return nil
	}
	return string(b)
}

// scanPhotos deserializes a stored photo reference list.
func scanPhotos(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var photos []string
	if err := json.Unmarshal([]byte(ns.String), &photos); err != nil {
		return nil
	}
	return photos
}
