package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func createTestEntry(name string, kind Kind) *Entry {
	return &Entry{
		Path:        "/work/reports_cc/" + name,
		Kind:        kind,
		Fingerprint: "fp-" + name,
		Params:      `{"crop":360}`,
		RunID:       "run-1",
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_PutAndGet(t *testing.T) {
	store := newTestStore(t)
	entry := createTestEntry("dis_360.json", KindReport)

	if err := store.Put(entry); err != nil {
		t.Fatalf("failed to put entry: %v", err)
	}

	got, err := store.Get(entry.Path)
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry, got nil")
	}
	if got.Kind != KindReport {
		t.Errorf("expected kind %s, got %s", KindReport, got.Kind)
	}
	if got.Fingerprint != entry.Fingerprint {
		t.Errorf("expected fingerprint %s, got %s", entry.Fingerprint, got.Fingerprint)
	}
	if got.Params != entry.Params {
		t.Errorf("expected params %s, got %s", entry.Params, got.Params)
	}
	if got.RunID != entry.RunID {
		t.Errorf("expected run id %s, got %s", entry.RunID, got.RunID)
	}
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", entry.CreatedAt, got.CreatedAt)
	}
}

func TestSQLiteStore_PutReplaces(t *testing.T) {
	store := newTestStore(t)
	entry := createTestEntry("dis_360.json", KindReport)
	if err := store.Put(entry); err != nil {
		t.Fatal(err)
	}

	entry.Fingerprint = "fp-new"
	entry.RunID = "run-2"
	if err := store.Put(entry); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(entry.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Fingerprint != "fp-new" || got.RunID != "run-2" {
		t.Errorf("entry not replaced: %+v", got)
	}

	all, err := store.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 entry, got %d", len(all))
	}
}

func TestSQLiteStore_PutDefaultsCreatedAt(t *testing.T) {
	store := newTestStore(t)
	entry := createTestEntry("dis_360.json", KindReport)
	entry.CreatedAt = time.Time{}

	if err := store.Put(entry); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(entry.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get("/nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestStore(t)
	entry := createTestEntry("ref_dis_360.yuv", KindRefYUV)
	if err := store.Put(entry); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(entry.Path); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	got, err := store.Get(entry.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("expected entry to be deleted")
	}

	// Deleting again is not an error
	if err := store.Delete(entry.Path); err != nil {
		t.Errorf("delete of missing entry failed: %v", err)
	}
}

func TestSQLiteStore_ListByKind(t *testing.T) {
	store := newTestStore(t)
	for _, e := range []*Entry{
		createTestEntry("b_360.json", KindReport),
		createTestEntry("a_360.json", KindReport),
		createTestEntry("ref_b_360.yuv", KindRefYUV),
	} {
		if err := store.Put(e); err != nil {
			t.Fatal(err)
		}
	}

	reports, err := store.List(KindReport)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if filepath.Base(reports[0].Path) != "a_360.json" {
		t.Errorf("expected entries ordered by path, got %s first", reports[0].Path)
	}

	all, err := store.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 entries, got %d", len(all))
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "manifest.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	entry := createTestEntry("dis_360.json", KindReport)
	if err := store.Put(entry); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(entry.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Fingerprint != entry.Fingerprint {
		t.Errorf("entry did not survive reopen: %+v", got)
	}
	if reopened.Path() != dbPath {
		t.Errorf("expected path %s, got %s", dbPath, reopened.Path())
	}
}

func TestSQLiteStore_RejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "manifest.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion+1); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := NewSQLiteStore(dbPath); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("expected ErrSchemaTooNew, got %v", err)
	}
}

func TestSQLiteStore_ImplementsManifest(t *testing.T) {
	var _ Manifest = newTestStore(t)
}
