package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	path TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	params TEXT NOT NULL DEFAULT '',
	run_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL,
	applied_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON artifacts(kind);
`

// ErrSchemaTooNew is returned when the database was written by a newer
// release of the tool.
var ErrSchemaTooNew = errors.New("manifest schema is newer than this binary")

// SQLiteStore implements Manifest using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex // Protects concurrent access
	path string
}

// NewSQLiteStore opens the manifest database, creating it if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL lets concurrent crop workers read while one commits
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("insert schema version: %w", err)
		}
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("check schema version: %w", err)
	case version > schemaVersion:
		db.Close()
		return nil, fmt.Errorf("%w: %s has v%d, want v%d", ErrSchemaTooNew, dbPath, version, schemaVersion)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Put records an entry using INSERT OR REPLACE.
func (s *SQLiteStore) Put(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO artifacts (path, kind, fingerprint, params, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.Path, string(entry.Kind), entry.Fingerprint, entry.Params, entry.RunID, formatTime(createdAt),
	)
	return err
}

// Get retrieves the entry for path.
func (s *SQLiteStore) Get(path string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT path, kind, fingerprint, params, run_id, created_at
		FROM artifacts WHERE path = ?
	`, path)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// Delete removes the entry for path.
func (s *SQLiteStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM artifacts WHERE path = ?", path)
	return err
}

// List returns entries of one kind, or all entries for an empty kind.
func (s *SQLiteStore) List(kind Kind) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT path, kind, fingerprint, params, run_id, created_at FROM artifacts`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY path ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var kind, createdAt string

	err := row.Scan(&entry.Path, &kind, &entry.Fingerprint, &entry.Params, &entry.RunID, &createdAt)
	if err != nil {
		return nil, err
	}

	entry.Kind = Kind(kind)
	entry.CreatedAt = parseTime(createdAt)
	return &entry, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
